// Package domain defines the canonical service interfaces shared by the REST
// handlers and the background jobs. Consumers should depend on these
// interfaces rather than re-declaring equivalent ones.
package domain

import (
	"context"
	"io"

	"github.com/qmsworks/qms/internal/models"
)

// AuthService defines login and token operations.
type AuthService interface {
	Login(ctx context.Context, req models.LoginRequest, meta models.ClientMeta) (*models.LoginResponse, error)
	ValidateToken(ctx context.Context, token string) (*models.Actor, error)
	CurrentUser(ctx context.Context, userID string) (*models.User, error)
}

// Reauthenticator re-checks a signed-in user's password before a signature
// or approval is recorded.
type Reauthenticator interface {
	Reauthenticate(ctx context.Context, actor models.Actor, password string) error
}

// DocumentService defines controlled-document operations.
type DocumentService interface {
	ListDocuments(ctx context.Context, opts models.DocumentListOpts) (*models.DocumentPage, error)
	GetDocument(ctx context.Context, code string) (*models.Document, error)
	CreateDocument(ctx context.Context, actor models.Actor, req models.CreateDocumentRequest) (*models.Document, error)
	AddRevision(ctx context.Context, actor models.Actor, code string, req models.AddRevisionRequest) (*models.Document, error)
	Transition(ctx context.Context, actor models.Actor, code string, req models.TransitionRequest) (*models.Document, error)
}

// SignatureService defines e-signature operations on documents.
type SignatureService interface {
	Sign(ctx context.Context, actor models.Actor, code string, req models.SignRequest, meta models.ClientMeta) (*models.Signature, error)
	ListSignatures(ctx context.Context, code string) ([]models.Signature, error)
	WriteManifest(ctx context.Context, code string, w io.Writer) error
}

// ApprovalService defines governance approval and rejection.
type ApprovalService interface {
	Approve(ctx context.Context, actor models.Actor, entityType, entityID string, req models.ApprovalRequest) (*models.GovernanceArtifact, error)
	Reject(ctx context.Context, actor models.Actor, entityType, entityID string, req models.ApprovalRequest) (*models.AuditEntry, error)
}

// GovernanceService defines governance artifact lookup and verification.
type GovernanceService interface {
	Approval(ctx context.Context, entityType, entityID string) (*models.GovernanceApprovalData, error)
	ReverifyAll(ctx context.Context) (map[models.VerificationStatus]int, error)
}

// AuditService defines read access to the audit trail.
type AuditService interface {
	ListAudit(ctx context.Context, opts models.AuditQueryOpts) (*models.AuditPage, error)
	EntityTrail(ctx context.Context, entityType, entityID string) ([]models.AuditEntry, error)
	ExportCSV(ctx context.Context, opts models.AuditQueryOpts, w io.Writer) error
	ExportXLSX(ctx context.Context, opts models.AuditQueryOpts, w io.Writer) error
	VerifyChain(ctx context.Context) (*models.ChainReport, error)
}

// AccessRecorder records operational access events. Implementations must not block.
type AccessRecorder interface {
	Record(event string, actor *models.Actor, username string, meta models.ClientMeta, detail map[string]any)
}
