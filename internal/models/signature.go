package models

import (
	"strings"
	"time"
)

// SignatureMethod is how a signer expressed their signature.
type SignatureMethod string

// Signature methods.
const (
	MethodTyped     SignatureMethod = "TYPED"
	MethodDrawn     SignatureMethod = "DRAWN"
	MethodClickwrap SignatureMethod = "CLICKWRAP"
)

// SignatureRole is the capacity in which a user signs.
type SignatureRole string

// Signature roles.
const (
	RoleApprover     SignatureRole = "APPROVER"
	RoleAcknowledger SignatureRole = "ACKNOWLEDGER"
)

// ClickwrapPhrase is the exact confirmation text required for click-wrap signing.
const ClickwrapPhrase = "I UNDERSTAND"

// maxSignatureData bounds the signature payload (drawn images are data URLs).
const maxSignatureData = 512 << 10

// SignatureUser identifies the signer.
type SignatureUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Signature is a recorded e-signature on a document revision.
type Signature struct {
	ID             string          `json:"id"`
	DocumentCode   string          `json:"documentCode"`
	RevisionNumber int             `json:"revisionNumber"`
	Method         SignatureMethod `json:"method"`
	Role           SignatureRole   `json:"role"`
	SignedAt       time.Time       `json:"signedAt"`
	User           SignatureUser   `json:"user"`

	// Populated on insert only; never serialized.
	DocumentID string `json:"-"`
	RevisionID string `json:"-"`
	UserID     string `json:"-"`
	Payload    string `json:"-"`
	UserAgent  string `json:"-"`
	ClientIP   string `json:"-"`
}

// SignRequest is the body of POST /api/cmmc/documents/:code/sign.
type SignRequest struct {
	Method        SignatureMethod `json:"method"`
	Role          SignatureRole   `json:"role"`
	SignatureData string          `json:"signatureData"`
	Password      string          `json:"password,omitempty"`
}

// Validate applies the per-method capture rules.
func (r *SignRequest) Validate() error {
	switch r.Role {
	case RoleApprover, RoleAcknowledger:
	default:
		return NewValidationError("role", "must be APPROVER or ACKNOWLEDGER")
	}

	if len(r.SignatureData) > maxSignatureData {
		return ErrFieldTooLong("signatureData", maxSignatureData)
	}

	switch r.Method {
	case MethodTyped:
		if strings.TrimSpace(r.SignatureData) == "" {
			return NewValidationError("signatureData", "full name is required")
		}
		if r.Password == "" {
			return NewValidationError("password", "is required for typed signatures")
		}
	case MethodDrawn:
		if r.SignatureData == "" {
			return NewValidationError("signatureData", "a drawn signature is required")
		}
	case MethodClickwrap:
		if r.SignatureData != ClickwrapPhrase {
			return NewValidationError("signatureData", "type %q to confirm", ClickwrapPhrase)
		}
	default:
		return NewValidationError("method", "must be TYPED, DRAWN or CLICKWRAP")
	}

	return nil
}
