package models

import (
	"strings"
	"time"
)

// VerificationStatus is the outcome of re-checking a governance artifact.
type VerificationStatus string

// Verification statuses.
const (
	VerificationVerified VerificationStatus = "VERIFIED"
	VerificationInvalid  VerificationStatus = "INVALID"
	VerificationStale    VerificationStatus = "STALE"
)

// GovernanceArtifact asserts that a specific version and hash of a record was signed off.
type GovernanceArtifact struct {
	ID                 string              `json:"id"`
	EntityType         string              `json:"entityType"`
	EntityID           string              `json:"entityId"`
	RecordVersion      string              `json:"recordVersion"`
	QMSHash            string              `json:"qmsHash"`
	SignedBy           string              `json:"signedBy"`
	Reason             string              `json:"reason"`
	SignedAt           time.Time           `json:"signedAt"`
	VerifiedAt         *time.Time          `json:"verifiedAt"`
	VerificationStatus *VerificationStatus `json:"verificationStatus"`

	SignedByID string `json:"-"`
}

// Verification is the live comparison of an artifact against its record.
type Verification struct {
	Status         VerificationStatus `json:"status"`
	Reason         string             `json:"reason,omitempty"`
	CurrentVersion string             `json:"currentVersion,omitempty"`
	CurrentHash    string             `json:"currentHash,omitempty"`
	CheckedAt      time.Time          `json:"checkedAt"`
}

// GovernanceApprovalData is the response body of the approval lookup.
type GovernanceApprovalData struct {
	HasArtifact  bool                `json:"hasArtifact"`
	Artifact     *GovernanceArtifact `json:"artifact,omitempty"`
	Verification *Verification       `json:"verification,omitempty"`
}

// RecordState is the current version and content hash of an approvable record.
type RecordState struct {
	Version string
	Hash    string
}

// Verify compares a signed artifact against the record's current state.
// A nil current state means the record no longer exists.
func Verify(a *GovernanceArtifact, current *RecordState, now time.Time) Verification {
	v := Verification{CheckedAt: now}

	switch {
	case current == nil:
		v.Status = VerificationInvalid
		v.Reason = "the approved record no longer exists"
	case current.Version != a.RecordVersion:
		v.Status = VerificationStale
		v.Reason = "record changed after approval: signed version " + a.RecordVersion + ", current version " + current.Version
	case current.Hash != a.QMSHash:
		v.Status = VerificationInvalid
		v.Reason = "content hash does not match the approved hash for version " + a.RecordVersion
	default:
		v.Status = VerificationVerified
	}

	if current != nil {
		v.CurrentVersion = current.Version
		v.CurrentHash = current.Hash
	}

	return v
}

// Approval decisions.
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

// ApprovalRequest re-asserts credentials for a critical approval.
type ApprovalRequest struct {
	Username string    `json:"username"`
	Password string    `json:"password"`
	Reason   string    `json:"reason"`
	SignedAt time.Time `json:"signedAt"`
}

// Validate checks that all credential fields are present.
func (r *ApprovalRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return NewValidationError("username", "is required")
	}

	if r.Password == "" {
		return NewValidationError("password", "is required")
	}

	if strings.TrimSpace(r.Reason) == "" {
		return NewValidationError("reason", "is required")
	}

	if len(r.Reason) > 2000 {
		return ErrFieldTooLong("reason", 2000)
	}

	return nil
}
