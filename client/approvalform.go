package client

import (
	"context"
	"strings"
	"sync"
	"time"
)

// ApprovalHandler receives a completed approval. GovernanceService.Handler
// returns one bound to an entity and decision.
type ApprovalHandler func(ctx context.Context, req ApprovalRequest) error

// ApprovalForm captures credentials and a reason for a governance decision.
type ApprovalForm struct {
	mu sync.Mutex

	Username string
	Password string
	Reason   string

	handler ApprovalHandler
	now     func() time.Time
	err     error
}

// NewApprovalForm creates a form submitting to handler.
func NewApprovalForm(handler ApprovalHandler) *ApprovalForm {
	return &ApprovalForm{handler: handler, now: time.Now}
}

// Validate requires every field to be non-blank.
func (f *ApprovalForm) Validate() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.validateLocked()
}

func (f *ApprovalForm) validateLocked() error {
	switch {
	case strings.TrimSpace(f.Username) == "":
		return &FieldError{Field: "username", Message: "Username is required"}
	case strings.TrimSpace(f.Password) == "":
		return &FieldError{Field: "password", Message: "Password is required"}
	case strings.TrimSpace(f.Reason) == "":
		return &FieldError{Field: "reason", Message: "A reason is required"}
	}

	return nil
}

// Submit validates, stamps the signing time and hands the request to the handler.
func (f *ApprovalForm) Submit(ctx context.Context) error {
	f.mu.Lock()
	if err := f.validateLocked(); err != nil {
		f.err = err
		f.mu.Unlock()
		return err
	}
	req := ApprovalRequest{
		Username: strings.TrimSpace(f.Username),
		Password: f.Password,
		Reason:   strings.TrimSpace(f.Reason),
		SignedAt: f.now().UTC(),
	}
	f.mu.Unlock()

	err := f.handler(ctx, req)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.err = err
	if err == nil {
		f.Password = ""
		f.Reason = ""
	}

	return err
}

// Err returns the message of the last failed submission, or "".
func (f *ApprovalForm) Err() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return UserMessage(f.err)
}
