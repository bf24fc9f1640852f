package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/qmsworks/qms/internal/models"
)

// rowQuerier is satisfied by both the pool and a transaction.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// documentSelect joins each document with its latest revision and the
// display names of their authors.
const documentSelect = `
	SELECT d.id, d.code, d.title, d.status, du.name, d.created_at, d.updated_at,
		r.id, r.number, r.content_hash, r.reason, ru.name, r.created_at
	FROM documents d
	JOIN users du ON du.id = d.created_by
	LEFT JOIN LATERAL (
		SELECT id, number, content_hash, reason, created_by, created_at
		FROM document_revisions
		WHERE document_id = d.id
		ORDER BY number DESC
		LIMIT 1
	) r ON true
	LEFT JOIN users ru ON ru.id = r.created_by`

// TransitionFunc resolves the target status for a document currently in from.
type TransitionFunc = func(from models.DocumentStatus) (models.DocumentStatus, error)

// DocumentStore handles controlled documents and their revisions.
type DocumentStore struct {
	Base
}

// NewDocumentStore creates a DocumentStore.
func NewDocumentStore(base Base) *DocumentStore {
	return &DocumentStore{Base: base}
}

func scanDocument(scan func(dest ...any) error) (*models.Document, error) {
	var (
		d         models.Document
		status    string
		revID     *string
		revNumber *int
		revHash   *string
		revReason *string
		revBy     *string
		revAt     *time.Time
	)

	if err := scan(&d.ID, &d.Code, &d.Title, &status, &d.CreatedBy, &d.CreatedAt, &d.UpdatedAt,
		&revID, &revNumber, &revHash, &revReason, &revBy, &revAt); err != nil {
		return nil, err
	}

	d.Status = models.DocumentStatus(status)

	if revID != nil {
		d.LatestRevision = &models.Revision{
			ID:          *revID,
			Number:      *revNumber,
			ContentHash: *revHash,
			Reason:      deref(revReason),
			CreatedBy:   deref(revBy),
			CreatedAt:   *revAt,
		}
	}

	return &d, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}

func getDocument(ctx context.Context, q rowQuerier, code string) (*models.Document, error) {
	d, err := scanDocument(q.QueryRow(ctx, documentSelect+" WHERE d.code = $1", code).Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrDocumentNotFound
		}

		return nil, fmt.Errorf("getting document %s: %w", code, err)
	}

	return d, nil
}

// GetDocument returns a document with its latest revision.
func (s *DocumentStore) GetDocument(ctx context.Context, code string) (*models.Document, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	return getDocument(ctx, s.Pool, code)
}

// ListDocuments returns one page of documents ordered by code.
func (s *DocumentStore) ListDocuments(ctx context.Context, opts models.DocumentListOpts) (*models.DocumentPage, error) {
	opts.Limit = clampLimit(opts.Limit, 25)
	if opts.Page < 1 {
		opts.Page = 1
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // read-only.

	where := ""
	args := make([]any, 0, 3)

	if opts.Status != "" {
		where = " WHERE d.status = $1"
		args = append(args, string(opts.Status))
	}

	var total int
	if err := tx.QueryRow(ctx, "SELECT count(*) FROM documents d"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting documents: %w", err)
	}

	n := len(args)
	query := documentSelect + where + fmt.Sprintf(" ORDER BY d.code LIMIT $%d OFFSET $%d", n+1, n+2)
	args = append(args, opts.Limit, (opts.Page-1)*opts.Limit)

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	docs := make([]models.Document, 0, opts.Limit)

	for rows.Next() {
		d, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}

		docs = append(docs, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return &models.DocumentPage{
		Documents:  docs,
		Pagination: models.NewPagination(opts.Page, opts.Limit, total),
	}, nil
}

// CreateDocument inserts a DRAFT document with revision 1 and records the
// creation in the audit trail.
func (s *DocumentStore) CreateDocument(
	ctx context.Context, actor models.Actor, req models.CreateDocumentRequest,
) (*models.Document, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating document: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	docID := uuid.NewString()

	_, err = tx.Exec(ctx,
		`INSERT INTO documents (id, code, title, status, created_by) VALUES ($1, $2, $3, $4, $5)`,
		docID, req.Code, req.Title, string(models.StatusDraft), actor.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, models.ErrDuplicateKey
		}

		return nil, fmt.Errorf("inserting document: %w", err)
	}

	hash := models.ContentHash(req.Content)
	if err := insertRevision(ctx, tx, docID, 1, req.Content, hash, "initial revision", actor.ID); err != nil {
		return nil, err
	}

	entry := models.NewAuditEntry(actor, models.ActionCreate, models.EntityDocument, req.Code, "document created").
		Change("status", nil, string(models.StatusDraft)).
		Change("revision", nil, 1).
		Change("contentHash", nil, hash)

	if err := s.appendAudit(ctx, tx, entry); err != nil {
		return nil, err
	}

	doc, err := getDocument(ctx, tx, req.Code)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing create document: %w", err)
	}

	s.committed(entry)

	return doc, nil
}

func insertRevision(ctx context.Context, tx pgx.Tx, docID string, number int, content, hash, reason, userID string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO document_revisions (id, document_id, number, content, content_hash, reason, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.NewString(), docID, number, content, hash, reason, userID,
	)
	if err != nil {
		return fmt.Errorf("inserting revision %d: %w", number, err)
	}

	return nil
}

// lockDocument selects the document row FOR UPDATE.
func lockDocument(ctx context.Context, tx pgx.Tx, code string) (id string, status models.DocumentStatus, err error) {
	var raw string

	err = tx.QueryRow(ctx, `SELECT id, status FROM documents WHERE code = $1 FOR UPDATE`, code).Scan(&id, &raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", models.ErrDocumentNotFound
		}

		return "", "", fmt.Errorf("locking document %s: %w", code, err)
	}

	return id, models.DocumentStatus(raw), nil
}

// AddRevision appends a new revision to a DRAFT document.
func (s *DocumentStore) AddRevision(
	ctx context.Context, actor models.Actor, code string, req models.AddRevisionRequest,
) (*models.Document, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("adding revision: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	docID, status, err := lockDocument(ctx, tx, code)
	if err != nil {
		return nil, err
	}

	if status != models.StatusDraft {
		return nil, models.ErrRevisionNotAllowed
	}

	var current int
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(number), 0) FROM document_revisions WHERE document_id = $1`, docID,
	).Scan(&current); err != nil {
		return nil, fmt.Errorf("reading current revision: %w", err)
	}

	next := current + 1
	hash := models.ContentHash(req.Content)

	if err := insertRevision(ctx, tx, docID, next, req.Content, hash, req.Reason, actor.ID); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `UPDATE documents SET updated_at = now() WHERE id = $1`, docID); err != nil {
		return nil, fmt.Errorf("touching document: %w", err)
	}

	entry := models.NewAuditEntry(actor, models.ActionUpdate, models.EntityDocument, code, req.Reason).
		Change("revision", current, next).
		Change("contentHash", nil, hash)

	if err := s.appendAudit(ctx, tx, entry); err != nil {
		return nil, err
	}

	doc, err := getDocument(ctx, tx, code)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing revision: %w", err)
	}

	s.committed(entry)

	return doc, nil
}

// Transition moves a document to the status chosen by next, recording the
// change under action. The row is locked while next runs.
func (s *DocumentStore) Transition(
	ctx context.Context, actor models.Actor, code string,
	action models.AuditAction, reason string, next TransitionFunc,
) (*models.Document, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("transitioning document: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	docID, from, err := lockDocument(ctx, tx, code)
	if err != nil {
		return nil, err
	}

	to, err := next(from)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE documents SET status = $1, updated_at = now() WHERE id = $2`, string(to), docID,
	); err != nil {
		return nil, fmt.Errorf("updating document status: %w", err)
	}

	entry := models.NewAuditEntry(actor, action, models.EntityDocument, code, reason).
		Change("status", string(from), string(to))

	if err := s.appendAudit(ctx, tx, entry); err != nil {
		return nil, err
	}

	doc, err := getDocument(ctx, tx, code)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transition: %w", err)
	}

	s.committed(entry)

	return doc, nil
}

// RecordState returns the current version and content hash of a document,
// or nil if it does not exist or has no revision.
func (s *DocumentStore) RecordState(ctx context.Context, code string) (*models.RecordState, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var (
		number int
		hash   string
	)

	err := s.Pool.QueryRow(ctx, `
		SELECT r.number, r.content_hash
		FROM documents d
		JOIN document_revisions r ON r.document_id = d.id
		WHERE d.code = $1
		ORDER BY r.number DESC
		LIMIT 1`, code,
	).Scan(&number, &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil //nolint:nilnil // absence is a valid state for verification.
		}

		return nil, fmt.Errorf("reading record state for %s: %w", code, err)
	}

	return &models.RecordState{Version: strconv.Itoa(number), Hash: hash}, nil
}
