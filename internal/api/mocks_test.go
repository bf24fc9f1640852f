package api_test

import (
	"context"
	"io"
	"sync"

	"github.com/qmsworks/qms/internal/models"
)

// mockAuthService implements domain.AuthService for testing.
type mockAuthService struct {
	loginFn    func(ctx context.Context, req models.LoginRequest, meta models.ClientMeta) (*models.LoginResponse, error)
	validateFn func(ctx context.Context, token string) (*models.Actor, error)
	currentFn  func(ctx context.Context, userID string) (*models.User, error)
}

func (m *mockAuthService) Login(ctx context.Context, req models.LoginRequest, meta models.ClientMeta) (*models.LoginResponse, error) {
	return m.loginFn(ctx, req, meta)
}

func (m *mockAuthService) ValidateToken(ctx context.Context, token string) (*models.Actor, error) {
	return m.validateFn(ctx, token)
}

func (m *mockAuthService) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	return m.currentFn(ctx, userID)
}

// mockDocumentService implements domain.DocumentService for testing.
type mockDocumentService struct {
	listFn       func(ctx context.Context, opts models.DocumentListOpts) (*models.DocumentPage, error)
	getFn        func(ctx context.Context, code string) (*models.Document, error)
	createFn     func(ctx context.Context, actor models.Actor, req models.CreateDocumentRequest) (*models.Document, error)
	revisionFn   func(ctx context.Context, actor models.Actor, code string, req models.AddRevisionRequest) (*models.Document, error)
	transitionFn func(ctx context.Context, actor models.Actor, code string, req models.TransitionRequest) (*models.Document, error)
}

func (m *mockDocumentService) ListDocuments(ctx context.Context, opts models.DocumentListOpts) (*models.DocumentPage, error) {
	return m.listFn(ctx, opts)
}

func (m *mockDocumentService) GetDocument(ctx context.Context, code string) (*models.Document, error) {
	return m.getFn(ctx, code)
}

func (m *mockDocumentService) CreateDocument(ctx context.Context, actor models.Actor, req models.CreateDocumentRequest) (*models.Document, error) {
	return m.createFn(ctx, actor, req)
}

func (m *mockDocumentService) AddRevision(ctx context.Context, actor models.Actor, code string, req models.AddRevisionRequest) (*models.Document, error) {
	return m.revisionFn(ctx, actor, code, req)
}

func (m *mockDocumentService) Transition(ctx context.Context, actor models.Actor, code string, req models.TransitionRequest) (*models.Document, error) {
	return m.transitionFn(ctx, actor, code, req)
}

// mockSignatureService implements domain.SignatureService for testing.
type mockSignatureService struct {
	signFn     func(ctx context.Context, actor models.Actor, code string, req models.SignRequest, meta models.ClientMeta) (*models.Signature, error)
	listFn     func(ctx context.Context, code string) ([]models.Signature, error)
	manifestFn func(ctx context.Context, code string, w io.Writer) error
}

func (m *mockSignatureService) Sign(
	ctx context.Context, actor models.Actor, code string, req models.SignRequest, meta models.ClientMeta,
) (*models.Signature, error) {
	return m.signFn(ctx, actor, code, req, meta)
}

func (m *mockSignatureService) ListSignatures(ctx context.Context, code string) ([]models.Signature, error) {
	return m.listFn(ctx, code)
}

func (m *mockSignatureService) WriteManifest(ctx context.Context, code string, w io.Writer) error {
	return m.manifestFn(ctx, code, w)
}

// mockApprovalService implements domain.ApprovalService for testing.
type mockApprovalService struct {
	approveFn func(ctx context.Context, actor models.Actor, entityType, entityID string, req models.ApprovalRequest) (*models.GovernanceArtifact, error)
	rejectFn  func(ctx context.Context, actor models.Actor, entityType, entityID string, req models.ApprovalRequest) (*models.AuditEntry, error)
}

func (m *mockApprovalService) Approve(
	ctx context.Context, actor models.Actor, entityType, entityID string, req models.ApprovalRequest,
) (*models.GovernanceArtifact, error) {
	return m.approveFn(ctx, actor, entityType, entityID, req)
}

func (m *mockApprovalService) Reject(
	ctx context.Context, actor models.Actor, entityType, entityID string, req models.ApprovalRequest,
) (*models.AuditEntry, error) {
	return m.rejectFn(ctx, actor, entityType, entityID, req)
}

// mockGovernanceService implements domain.GovernanceService for testing.
type mockGovernanceService struct {
	approvalFn func(ctx context.Context, entityType, entityID string) (*models.GovernanceApprovalData, error)
}

func (m *mockGovernanceService) Approval(ctx context.Context, entityType, entityID string) (*models.GovernanceApprovalData, error) {
	return m.approvalFn(ctx, entityType, entityID)
}

func (m *mockGovernanceService) ReverifyAll(context.Context) (map[models.VerificationStatus]int, error) {
	return nil, nil
}

// mockAuditService implements domain.AuditService for testing.
type mockAuditService struct {
	listFn   func(ctx context.Context, opts models.AuditQueryOpts) (*models.AuditPage, error)
	trailFn  func(ctx context.Context, entityType, entityID string) ([]models.AuditEntry, error)
	csvFn    func(ctx context.Context, opts models.AuditQueryOpts, w io.Writer) error
	xlsxFn   func(ctx context.Context, opts models.AuditQueryOpts, w io.Writer) error
	verifyFn func(ctx context.Context) (*models.ChainReport, error)
}

func (m *mockAuditService) ListAudit(ctx context.Context, opts models.AuditQueryOpts) (*models.AuditPage, error) {
	return m.listFn(ctx, opts)
}

func (m *mockAuditService) EntityTrail(ctx context.Context, entityType, entityID string) ([]models.AuditEntry, error) {
	return m.trailFn(ctx, entityType, entityID)
}

func (m *mockAuditService) ExportCSV(ctx context.Context, opts models.AuditQueryOpts, w io.Writer) error {
	return m.csvFn(ctx, opts, w)
}

func (m *mockAuditService) ExportXLSX(ctx context.Context, opts models.AuditQueryOpts, w io.Writer) error {
	return m.xlsxFn(ctx, opts, w)
}

func (m *mockAuditService) VerifyChain(ctx context.Context) (*models.ChainReport, error) {
	return m.verifyFn(ctx)
}

// mockAccess implements domain.AccessRecorder and records event names.
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
