package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qmsworks/qms/internal/domain"
	"github.com/qmsworks/qms/internal/metrics"
	"github.com/qmsworks/qms/internal/models"
)

// Compile-time check: *SignatureService must satisfy domain.SignatureService.
var _ domain.SignatureService = (*SignatureService)(nil)

// DocumentReader loads a document with its latest revision.
type DocumentReader interface {
	GetDocument(ctx context.Context, code string) (*models.Document, error)
}

// SignatureStore is the data-access interface SignatureService depends on.
type SignatureStore interface {
	ListSignatures(ctx context.Context, code string) ([]models.Signature, error)
	HasSigned(ctx context.Context, revisionID, userID string) (bool, error)
	CreateSignature(ctx context.Context, sig *models.Signature, entry *models.AuditEntry) error
	OpenPayload(ctx context.Context, signatureID string) (string, error)
}

// SignatureService records e-signatures on the latest revision of a document.
type SignatureService struct {
	docs DocumentReader
	sigs SignatureStore
	auth domain.Reauthenticator
	log  *logrus.Logger
	now  func() time.Time
}

// NewSignatureService creates a SignatureService.
func NewSignatureService(
	docs DocumentReader, sigs SignatureStore, auth domain.Reauthenticator, log *logrus.Logger,
) *SignatureService {
	return &SignatureService{docs: docs, sigs: sigs, auth: auth, log: log, now: time.Now}
}

// Sign records actor's signature on the latest revision of document code.
// The checks run in the same order the signing gate is evaluated: an existing
// signature wins over signability.
func (s *SignatureService) Sign(
	ctx context.Context, actor models.Actor, code string, req models.SignRequest, meta models.ClientMeta,
) (*models.Signature, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.Method == models.MethodTyped &&
		!strings.EqualFold(strings.TrimSpace(req.SignatureData), strings.TrimSpace(actor.Name)) {
		return nil, models.NewValidationError("signatureData", "typed name must match your account name")
	}

	doc, err := s.docs.GetDocument(ctx, code)
	if err != nil {
		return nil, err
	}

	if doc.LatestRevision != nil {
		signed, err := s.sigs.HasSigned(ctx, doc.LatestRevision.ID, actor.ID)
		if err != nil {
			return nil, err
		}

		if signed {
			return nil, models.ErrAlreadySigned
		}
	}

	if !doc.Signable() {
		return nil, models.ErrNotSignable
	}

	if req.Password != "" {
		if err := s.auth.Reauthenticate(ctx, actor, req.Password); err != nil {
			return nil, err
		}
	}

	sig := &models.Signature{
		DocumentCode:   doc.Code,
		RevisionNumber: doc.LatestRevision.Number,
		Method:         req.Method,
		Role:           req.Role,
		User:           models.SignatureUser{Name: actor.Name, Email: actor.Email},
		DocumentID:     doc.ID,
		RevisionID:     doc.LatestRevision.ID,
		UserID:         actor.ID,
		Payload:        req.SignatureData,
		UserAgent:      meta.UserAgent,
		ClientIP:       meta.IP,
	}

	reason := fmt.Sprintf("%s signature (%s)", req.Role, req.Method)
	entry := models.NewAuditEntry(actor, models.ActionSign, models.EntityDocument, doc.Code, reason).
		Change("revision", nil, doc.LatestRevision.Number)

	if err := s.sigs.CreateSignature(ctx, sig, entry); err != nil {
		return nil, err
	}

	metrics.SignaturesTotal.WithLabelValues(string(req.Method)).Inc()

	s.log.WithFields(logrus.Fields{
		"code":         doc.Code,
		"revision":     sig.RevisionNumber,
		"method":       sig.Method,
		"role":         sig.Role,
		"user_id":      actor.ID,
		"signature_id": sig.ID,
	}).Info("document signed")

	return sig, nil
}

// ListSignatures returns the signatures on the latest revision of code.
func (s *SignatureService) ListSignatures(ctx context.Context, code string) ([]models.Signature, error) {
	if err := models.ValidateDocumentCode(code); err != nil {
		return nil, err
	}

	return s.sigs.ListSignatures(ctx, code)
}
