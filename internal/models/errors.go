package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures for API clients. It is sent as the "code" field
// of every error response so clients never have to parse messages.
type ErrorKind string

// Error kinds.
const (
	KindValidation   ErrorKind = "VALIDATION"
	KindUnauthorized ErrorKind = "UNAUTHORIZED"
	KindForbidden    ErrorKind = "FORBIDDEN"
	KindNotFound     ErrorKind = "NOT_FOUND"
	KindConflict     ErrorKind = "CONFLICT"
	KindRateLimited  ErrorKind = "RATE_LIMITED"
	KindInternal     ErrorKind = "INTERNAL"
)

// Sentinel errors for entity lookups.
var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrArtifactNotFound = errors.New("governance artifact not found")
	ErrRecordNotFound   = errors.New("record not found")
)

// Sentinel errors for signing and approval.
var (
	ErrNotSignable        = errors.New("document is not signable")
	ErrAlreadySigned      = errors.New("you have already signed this document")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrPasswordMismatch   = errors.New("password verification failed")
	ErrSignerMismatch     = errors.New("credentials do not belong to the signed-in user")
	ErrTooManyAttempts    = errors.New("too many failed attempts, try again later")
	ErrInvalidTransition  = errors.New("transition not allowed from current status")
	ErrRevisionNotAllowed = errors.New("revisions can only be added to draft documents")
	ErrUnsupportedEntity  = errors.New("entity type does not support governance approval")
	ErrInsufficientRole   = errors.New("insufficient role for this action")
	ErrDuplicateKey       = errors.New("duplicate key")
)

// ValidationError reports a field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}

	return e.Field + ": " + e.Message
}

// NewValidationError returns a ValidationError for field.
func NewValidationError(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ErrFieldTooLong returns an error indicating a field exceeds its maximum length.
func ErrFieldTooLong(field string, maxLen int) error {
	return NewValidationError(field, "exceeds maximum length of %d", maxLen)
}

// KindOf maps an error to the kind reported to clients.
func KindOf(err error) ErrorKind {
	var ve *ValidationError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return KindValidation
	case errors.Is(err, ErrDocumentNotFound), errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrArtifactNotFound), errors.Is(err, ErrRecordNotFound):
		return KindNotFound
	case errors.Is(err, ErrNotSignable), errors.Is(err, ErrAlreadySigned),
		errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrRevisionNotAllowed),
		errors.Is(err, ErrDuplicateKey):
		return KindConflict
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrPasswordMismatch),
		errors.Is(err, ErrInvalidToken):
		return KindUnauthorized
	case errors.Is(err, ErrSignerMismatch), errors.Is(err, ErrInsufficientRole):
		return KindForbidden
	case errors.Is(err, ErrTooManyAttempts):
		return KindRateLimited
	case errors.Is(err, ErrUnsupportedEntity):
		return KindValidation
	default:
		return KindInternal
	}
}
