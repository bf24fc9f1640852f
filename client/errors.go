package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind is the structured error classification sent by the server.
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

// PermissionMessage replaces the server message of FORBIDDEN errors.
const PermissionMessage = "You do not have permission to perform this action."

// APIError represents a non-2xx response from the QMS API.
type APIError struct {
	StatusCode int
	Kind       ErrorKind
	Message    string
	RequestID  string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// errorBody is the wire shape of an error response.
type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId"`
}

// parseAPIError decodes an error body. Unparseable or empty bodies are
// treated as {}; the kind falls back to one derived from the status.
func parseAPIError(statusCode int, body []byte) *APIError {
	var eb errorBody
	_ = json.Unmarshal(body, &eb) //nolint:errcheck // tolerated, see above

	apiErr := &APIError{
		StatusCode: statusCode,
		Kind:       ErrorKind(eb.Code),
		Message:    eb.Error,
		RequestID:  eb.RequestID,
	}

	if apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("Request failed (%d)", statusCode)
	}

	if !apiErr.Kind.known() {
		apiErr.Kind = kindForStatus(statusCode)
	}

	return apiErr
}

func (k ErrorKind) known() bool {
	switch k {
	case KindValidation, KindUnauthorized, KindForbidden, KindNotFound,
		KindConflict, KindRateLimited, KindInternal:
		return true
	}

	return false
}

func kindForStatus(status int) ErrorKind {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusTooManyRequests:
		return KindRateLimited
	default:
		return KindInternal
	}
}

// KindOf returns the kind of an *APIError in err's chain, or "".
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}

	return ""
}

// IsNotFound reports whether err is a NOT_FOUND API error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsConflict reports whether err is a CONFLICT API error.
func IsConflict(err error) bool { return KindOf(err) == KindConflict }

// IsForbidden reports whether err is a FORBIDDEN API error.
func IsForbidden(err error) bool { return KindOf(err) == KindForbidden }

// IsUnauthorized reports whether err is an UNAUTHORIZED API error.
func IsUnauthorized(err error) bool { return KindOf(err) == KindUnauthorized }

// UserMessage returns the text to show a user for err. Permission failures
// get a fixed message; everything else is shown verbatim.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	if IsForbidden(err) {
		return PermissionMessage
	}

	return err.Error()
}
