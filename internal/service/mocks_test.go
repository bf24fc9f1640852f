package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/qmsworks/qms/internal/models"
)

// mockUserStore serves users from a map keyed by username.
type mockUserStore struct {
	users map[string]*models.User
}

func (m *mockUserStore) GetByUsername(_ context.Context, username string) (*models.User, error) {
	if u, ok := m.users[username]; ok {
		return u, nil
	}

	return nil, models.ErrUserNotFound
}

func (m *mockUserStore) GetByID(_ context.Context, id string) (*models.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}

	return nil, models.ErrUserNotFound
}

// mockAccess records access events synchronously.
type mockAccess struct {
	mu     sync.Mutex
	events []string
}

func (m *mockAccess) Record(event string, _ *models.Actor, _ string, _ models.ClientMeta, _ map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *mockAccess) getEvents() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.events...)
}

// mockAccessWriter captures events written by AccessWorker.
type mockAccessWriter struct {
	mu     sync.Mutex
	events []models.AccessEvent
}

func (m *mockAccessWriter) RecordAccess(_ context.Context, e models.AccessEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)

	return nil
}

func (m *mockAccessWriter) getEvents() []models.AccessEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]models.AccessEvent(nil), m.events...)
}

// mockReauth returns err for every password except ok.
type mockReauth struct {
	mu    sync.Mutex
	calls int
	ok    string
	err   error
}

func (m *mockReauth) Reauthenticate(_ context.Context, _ models.Actor, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if password == m.ok {
		return nil
	}

	if m.err != nil {
		return m.err
	}

	return models.ErrPasswordMismatch
}

// mockDocumentStore records calls and returns configured responses.
type mockDocumentStore struct {
	mu    sync.Mutex
	calls []string

	getDocument    func(ctx context.Context, code string) (*models.Document, error)
	listDocuments  func(ctx context.Context, opts models.DocumentListOpts) (*models.DocumentPage, error)
	createDocument func(ctx context.Context, actor models.Actor, req models.CreateDocumentRequest) (*models.Document, error)
	addRevision    func(ctx context.Context, actor models.Actor, code string, req models.AddRevisionRequest) (*models.Document, error)

	// status is the current status seen by Transition.
	status    models.DocumentStatus
	lastEntry *models.AuditEntry
}

func (m *mockDocumentStore) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockDocumentStore) GetDocument(ctx context.Context, code string) (*models.Document, error) {
	m.record("GetDocument")
	return m.getDocument(ctx, code)
}

func (m *mockDocumentStore) ListDocuments(ctx context.Context, opts models.DocumentListOpts) (*models.DocumentPage, error) {
	m.record("ListDocuments")
	return m.listDocuments(ctx, opts)
}

func (m *mockDocumentStore) CreateDocument(
	ctx context.Context, actor models.Actor, req models.CreateDocumentRequest,
) (*models.Document, error) {
	m.record("CreateDocument")
	return m.createDocument(ctx, actor, req)
}

func (m *mockDocumentStore) AddRevision(
	ctx context.Context, actor models.Actor, code string, req models.AddRevisionRequest,
) (*models.Document, error) {
	m.record("AddRevision")
	return m.addRevision(ctx, actor, code, req)
}

func (m *mockDocumentStore) Transition(
	_ context.Context, actor models.Actor, code string, action models.AuditAction, reason string,
	next func(from models.DocumentStatus) (models.DocumentStatus, error),
) (*models.Document, error) {
	m.record("Transition")

	to, err := next(m.status)
	if err != nil {
		return nil, err
	}

	m.lastEntry = models.NewAuditEntry(actor, action, models.EntityDocument, code, reason).
		Change("status", string(m.status), string(to))
	m.status = to

	return &models.Document{Code: code, Status: to}, nil
}

// mockSignatureStore keeps signatures in memory.
type mockSignatureStore struct {
	mu       sync.Mutex
	sigs     []models.Signature
	signed   map[string]bool // revisionID|userID
	payloads map[string]string
	entries  []*models.AuditEntry
	nextID   int
	err      error
}

func newMockSignatureStore() *mockSignatureStore {
	return &mockSignatureStore{signed: map[string]bool{}, payloads: map[string]string{}}
}

func (m *mockSignatureStore) ListSignatures(_ context.Context, _ string) ([]models.Signature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]models.Signature(nil), m.sigs...), nil
}

func (m *mockSignatureStore) HasSigned(_ context.Context, revisionID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.signed[revisionID+"|"+userID], nil
}

func (m *mockSignatureStore) CreateSignature(_ context.Context, sig *models.Signature, entry *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}

	m.nextID++
	sig.ID = fmt.Sprintf("sig-%d", m.nextID)
	sig.SignedAt = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	entry.SignatureID = sig.ID

	m.signed[sig.RevisionID+"|"+sig.UserID] = true
	m.payloads[sig.ID] = sig.Payload
	m.sigs = append(m.sigs, *sig)
	m.entries = append(m.entries, entry)

	return nil
}

func (m *mockSignatureStore) OpenPayload(_ context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.payloads[id]
	if !ok {
		return "", models.ErrRecordNotFound
	}

	return p, nil
}

// mockArtifactStore keeps governance artifacts in memory.
type mockArtifactStore struct {
	mu        sync.Mutex
	artifacts []*models.GovernanceArtifact
	entries   []*models.AuditEntry
	updates   map[string]models.VerificationStatus
	updateErr error
}

func newMockArtifactStore(artifacts ...*models.GovernanceArtifact) *mockArtifactStore {
	return &mockArtifactStore{artifacts: artifacts, updates: map[string]models.VerificationStatus{}}
}

func (m *mockArtifactStore) LatestArtifact(_ context.Context, entityType, entityID string) (*models.GovernanceArtifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.artifacts) - 1; i >= 0; i-- {
		a := m.artifacts[i]
		if a.EntityType == entityType && a.EntityID == entityID {
			cp := *a
			return &cp, nil
		}
	}

	return nil, models.ErrArtifactNotFound
}

func (m *mockArtifactStore) ListLatestArtifacts(_ context.Context) ([]models.GovernanceArtifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.GovernanceArtifact, 0, len(m.artifacts))
	for _, a := range m.artifacts {
		out = append(out, *a)
	}

	return out, nil
}

func (m *mockArtifactStore) CreateArtifact(_ context.Context, a *models.GovernanceArtifact, entry *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a.ID = "art-new"
	verified := models.VerificationVerified
	a.VerificationStatus = &verified
	m.artifacts = append(m.artifacts, a)
	m.entries = append(m.entries, entry)

	return nil
}

func (m *mockArtifactStore) UpdateVerification(
	_ context.Context, id string, status models.VerificationStatus, _ time.Time,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.updateErr != nil {
		return m.updateErr
	}

	m.updates[id] = status

	return nil
}

// mockRecords serves record states by document code.
type mockRecords map[string]*models.RecordState

func (m mockRecords) RecordState(_ context.Context, code string) (*models.RecordState, error) {
	return m[code], nil
}

// mockAuditAppender captures standalone appends.
type mockAuditAppender struct {
	mu      sync.Mutex
	entries []*models.AuditEntry
}

func (m *mockAuditAppender) Append(_ context.Context, e *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)

	return nil
}

// mockAuditReader serves a fixed trail.
type mockAuditReader struct {
	entries []models.AuditEntry
	query   func(ctx context.Context, opts models.AuditQueryOpts) (*models.AuditPage, error)
}

func (m *mockAuditReader) Query(ctx context.Context, opts models.AuditQueryOpts) (*models.AuditPage, error) {
	return m.query(ctx, opts)
}

func (m *mockAuditReader) EntityTrail(_ context.Context, entityType, entityID string) ([]models.AuditEntry, error) {
	var out []models.AuditEntry

	for _, e := range m.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}

	return out, nil
}

func (m *mockAuditReader) Walk(_ context.Context, _ models.AuditQueryOpts, fn func(*models.AuditEntry) error) error {
	for i := range m.entries {
		e := m.entries[i]
		if err := fn(&e); err != nil {
			return err
		}
	}

	return nil
}
