package client

import (
	"context"
	"strings"
	"sync"
)

// FieldError is a local validation failure. It blocks submission; nothing is
// sent to the server.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

// Signer submits a signature. *SignatureService satisfies it.
type Signer interface {
	Sign(ctx context.Context, code string, req SignRequest) (*Signature, error)
}

// SignatureForm captures a signature on one document. Fields are cleared
// after a successful submission and kept after a failed one so the user can
// correct and resubmit.
type SignatureForm struct {
	mu sync.Mutex

	DocumentCode string
	Method       string
	Role         string
	FullName     string
	Password     string
	DrawnImage   *string
	Confirmation string

	signer   Signer
	onSigned func()
	err      error
}

// NewSignatureForm creates a form for code. onSigned is called after every
// successful submission, typically to re-fetch the signatures list.
func NewSignatureForm(code string, signer Signer, onSigned func()) *SignatureForm {
	return &SignatureForm{
		DocumentCode: code,
		Method:       MethodTyped,
		Role:         RoleApprover,
		signer:       signer,
		onSigned:     onSigned,
	}
}

// SetConfirmation stores click-wrap input upper-cased as typed. It does not trim.
func (f *SignatureForm) SetConfirmation(input string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Confirmation = strings.ToUpper(input)
}

// Validate applies the capture rules of the selected method.
func (f *SignatureForm) Validate() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.validateLocked()
}

func (f *SignatureForm) validateLocked() error {
	switch f.Method {
	case MethodTyped:
		if strings.TrimSpace(f.FullName) == "" {
			return &FieldError{Field: "fullName", Message: "Type your full name to sign"}
		}
		if f.Password == "" {
			return &FieldError{Field: "password", Message: "Enter your password to sign"}
		}
	case MethodDrawn:
		if f.DrawnImage == nil || *f.DrawnImage == "" {
			return &FieldError{Field: "drawnImage", Message: "Draw your signature before submitting"}
		}
	case MethodClickwrap:
		if f.Confirmation != ClickwrapPhrase {
			return &FieldError{Field: "confirmation", Message: "Type " + ClickwrapPhrase + " to confirm"}
		}
	default:
		return &FieldError{Field: "method", Message: "Choose a signature method"}
	}

	switch f.Role {
	case RoleApprover, RoleAcknowledger:
	default:
		return &FieldError{Field: "role", Message: "Choose a signature role"}
	}

	return nil
}

// request builds the submission for the selected method.
func (f *SignatureForm) request() SignRequest {
	req := SignRequest{Method: f.Method, Role: f.Role, Password: f.Password}

	switch f.Method {
	case MethodTyped:
		req.SignatureData = strings.TrimSpace(f.FullName)
	case MethodDrawn:
		req.SignatureData = *f.DrawnImage
	case MethodClickwrap:
		req.SignatureData = f.Confirmation
	}

	return req
}

// Submit validates and posts the signature. A validation failure returns a
// *FieldError without contacting the server.
func (f *SignatureForm) Submit(ctx context.Context) error {
	f.mu.Lock()
	if err := f.validateLocked(); err != nil {
		f.err = err
		f.mu.Unlock()
		return err
	}
	req := f.request()
	f.mu.Unlock()

	_, err := f.signer.Sign(ctx, f.DocumentCode, req)

	f.mu.Lock()
	f.err = err
	if err == nil {
		f.FullName = ""
		f.Password = ""
		f.DrawnImage = nil
		f.Confirmation = ""
	}
	f.mu.Unlock()

	if err != nil {
		return err
	}

	if f.onSigned != nil {
		f.onSigned()
	}

	return nil
}

// Err returns the message of the last failed submission, or "".
func (f *SignatureForm) Err() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return UserMessage(f.err)
}
