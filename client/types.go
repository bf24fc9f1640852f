package client

import "time"

// Document statuses.
const (
	StatusDraft     = "DRAFT"
	StatusInReview  = "IN_REVIEW"
	StatusEffective = "EFFECTIVE"
	StatusRetired   = "RETIRED"
)

// Signature methods.
const (
	MethodTyped     = "TYPED"
	MethodDrawn     = "DRAWN"
	MethodClickwrap = "CLICKWRAP"
)

// Signature roles.
const (
	RoleApprover     = "APPROVER"
	RoleAcknowledger = "ACKNOWLEDGER"
)

// ClickwrapPhrase is the exact confirmation a click-wrap signer must type.
const ClickwrapPhrase = "I UNDERSTAND"

// Governance verification statuses.
const (
	VerificationVerified = "VERIFIED"
	VerificationStale    = "STALE"
	VerificationInvalid  = "INVALID"
)

// User is a QMS account.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// LoginResponse is returned by the login endpoint.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
}

// Revision is one content version of a document.
type Revision struct {
	Number      int       `json:"number"`
	ContentHash string    `json:"contentHash"`
	Reason      string    `json:"reason,omitempty"`
	CreatedBy   string    `json:"createdBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Document is a controlled document.
type Document struct {
	ID             string    `json:"id"`
	Code           string    `json:"code"`
	Title          string    `json:"title"`
	Status         string    `json:"status"`
	LatestRevision *Revision `json:"latestRevision"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// DocumentPage is one page of the document listing.
type DocumentPage struct {
	Documents  []Document `json:"documents"`
	Pagination Pagination `json:"pagination"`
}

// CreateDocumentRequest is the payload for creating a draft document.
type CreateDocumentRequest struct {
	Code    string `json:"code"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// AddRevisionRequest is the payload for adding a revision to a draft.
type AddRevisionRequest struct {
	Content string `json:"content"`
	Reason  string `json:"reason"`
}

// TransitionRequest is the payload for a lifecycle transition.
type TransitionRequest struct {
	Event  string `json:"event"`
	Reason string `json:"reason"`
}

// SignatureUser identifies a signer.
type SignatureUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Signature is a recorded e-signature.
type Signature struct {
	ID             string        `json:"id"`
	DocumentCode   string        `json:"documentCode,omitempty"`
	RevisionNumber int           `json:"revisionNumber,omitempty"`
	Method         string        `json:"method"`
	Role           string        `json:"role"`
	SignedAt       time.Time     `json:"signedAt"`
	User           SignatureUser `json:"user"`
}

// SignRequest is the payload of the sign endpoint.
type SignRequest struct {
	Method        string `json:"method"`
	Role          string `json:"role"`
	SignatureData string `json:"signatureData"`
	Password      string `json:"password,omitempty"`
}

// ApprovalRequest re-asserts credentials for a governance decision.
type ApprovalRequest struct {
	Username string    `json:"username"`
	Password string    `json:"password"`
	Reason   string    `json:"reason"`
	SignedAt time.Time `json:"signedAt"`
}

// GovernanceArtifact is the signed approval of one record version.
type GovernanceArtifact struct {
	ID                 string     `json:"id,omitempty"`
	EntityType         string     `json:"entityType"`
	EntityID           string     `json:"entityId"`
	RecordVersion      string     `json:"recordVersion"`
	QMSHash            string     `json:"qmsHash"`
	SignedAt           time.Time  `json:"signedAt"`
	VerifiedAt         *time.Time `json:"verifiedAt"`
	VerificationStatus *string    `json:"verificationStatus"`
	SignedBy           string     `json:"signedBy,omitempty"`
	Reason             string     `json:"reason,omitempty"`
}

// Verification is the live comparison of an artifact with its record.
type Verification struct {
	Status         string    `json:"status"`
	Reason         string    `json:"reason,omitempty"`
	CurrentVersion string    `json:"currentVersion,omitempty"`
	CurrentHash    string    `json:"currentHash,omitempty"`
	CheckedAt      time.Time `json:"checkedAt"`
}

// GovernanceApprovalData is returned by the approval lookup endpoint.
type GovernanceApprovalData struct {
	HasArtifact  bool                `json:"hasArtifact"`
	Artifact     *GovernanceArtifact `json:"artifact,omitempty"`
	Verification *Verification       `json:"verification,omitempty"`
}

// FieldChange is the before and after value of one field.
type FieldChange struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// AuditEntry is one row of the audit trail.
type AuditEntry struct {
	ID          string                 `json:"id"`
	EntityType  string                 `json:"entityType"`
	EntityID    string                 `json:"entityId"`
	Action      string                 `json:"action"`
	UserID      string                 `json:"userId"`
	UserName    string                 `json:"userName"`
	Timestamp   time.Time              `json:"timestamp"`
	Changes     map[string]FieldChange `json:"changes,omitempty"`
	Reason      string                 `json:"reason,omitempty"`
	SignatureID string                 `json:"signatureId,omitempty"`
	Hash        string                 `json:"hash,omitempty"`
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// AuditPage is one page of the audit trail.
type AuditPage struct {
	Logs       []AuditEntry `json:"logs"`
	Pagination Pagination   `json:"pagination"`
}

// AuditFilters narrows the audit listing and export. Empty fields are not sent.
type AuditFilters struct {
	StartDate string
	EndDate   string
	Action    string
}

// ChainReport is the outcome of an audit hash-chain verification.
type ChainReport struct {
	Valid     bool      `json:"valid"`
	Checked   int64     `json:"checked"`
	BrokenAt  int64     `json:"brokenAt,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	HeadHash  string    `json:"headHash,omitempty"`
	CheckedAt time.Time `json:"checkedAt"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      string  `json:"database"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
}
