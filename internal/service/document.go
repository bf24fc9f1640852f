package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/qmsworks/qms/internal/domain"
	"github.com/qmsworks/qms/internal/models"
)

// Compile-time check: *DocumentService must satisfy domain.DocumentService.
var _ domain.DocumentService = (*DocumentService)(nil)

// DocumentStore is the data-access interface DocumentService depends on.
type DocumentStore interface {
	GetDocument(ctx context.Context, code string) (*models.Document, error)
	ListDocuments(ctx context.Context, opts models.DocumentListOpts) (*models.DocumentPage, error)
	CreateDocument(ctx context.Context, actor models.Actor, req models.CreateDocumentRequest) (*models.Document, error)
	AddRevision(ctx context.Context, actor models.Actor, code string, req models.AddRevisionRequest) (*models.Document, error)
	Transition(
		ctx context.Context, actor models.Actor, code string, action models.AuditAction, reason string,
		next func(from models.DocumentStatus) (models.DocumentStatus, error),
	) (*models.Document, error)
}

// DocumentService validates document requests and drives the lifecycle.
type DocumentService struct {
	store DocumentStore
	log   *logrus.Logger
}

// NewDocumentService creates a DocumentService.
func NewDocumentService(store DocumentStore, log *logrus.Logger) *DocumentService {
	return &DocumentService{store: store, log: log}
}

// ListDocuments returns a page of documents (pass-through).
func (s *DocumentService) ListDocuments(ctx context.Context, opts models.DocumentListOpts) (*models.DocumentPage, error) {
	if opts.Status != "" && !opts.Status.Valid() {
		return nil, models.NewValidationError("status", "unknown status %q", opts.Status)
	}

	return s.store.ListDocuments(ctx, opts)
}

// GetDocument returns a document with its latest revision (pass-through).
func (s *DocumentService) GetDocument(ctx context.Context, code string) (*models.Document, error) {
	return s.store.GetDocument(ctx, code)
}

// CreateDocument creates a DRAFT document with its first revision.
func (s *DocumentService) CreateDocument(
	ctx context.Context, actor models.Actor, req models.CreateDocumentRequest,
) (*models.Document, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	doc, err := s.store.CreateDocument(ctx, actor, req)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"code": doc.Code, "user_id": actor.ID}).Info("document created")

	return doc, nil
}

// AddRevision adds a revision to a DRAFT document.
func (s *DocumentService) AddRevision(
	ctx context.Context, actor models.Actor, code string, req models.AddRevisionRequest,
) (*models.Document, error) {
	if err := models.ValidateDocumentCode(code); err != nil {
		return nil, err
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	return s.store.AddRevision(ctx, actor, code, req)
}

// Transition applies a lifecycle event to a document.
func (s *DocumentService) Transition(
	ctx context.Context, actor models.Actor, code string, req models.TransitionRequest,
) (*models.Document, error) {
	if err := models.ValidateDocumentCode(code); err != nil {
		return nil, err
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	doc, err := s.store.Transition(ctx, actor, code, transitionAction(req.Event), req.Reason,
		func(from models.DocumentStatus) (models.DocumentStatus, error) {
			return NextStatus(ctx, from, req.Event)
		})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"code":    code,
		"event":   req.Event,
		"status":  doc.Status,
		"user_id": actor.ID,
	}).Info("document transitioned")

	return doc, nil
}
