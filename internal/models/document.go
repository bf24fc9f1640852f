// Package models defines the data types shared by the QMS server layers.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"
)

// DocumentStatus is the lifecycle status of a controlled document.
type DocumentStatus string

// Document statuses.
const (
	StatusDraft     DocumentStatus = "DRAFT"
	StatusInReview  DocumentStatus = "IN_REVIEW"
	StatusEffective DocumentStatus = "EFFECTIVE"
	StatusRetired   DocumentStatus = "RETIRED"
)

// Valid reports whether s is a known document status.
func (s DocumentStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusInReview, StatusEffective, StatusRetired:
		return true
	}

	return false
}

// Document lifecycle events.
const (
	EventSubmit  = "submit"
	EventApprove = "approve"
	EventReject  = "reject"
	EventRetire  = "retire"
	EventRevise  = "revise"
)

// Document is a controlled document as exposed by the API.
type Document struct {
	ID             string         `json:"id"`
	Code           string         `json:"code"`
	Title          string         `json:"title"`
	Status         DocumentStatus `json:"status"`
	LatestRevision *Revision      `json:"latestRevision"`
	CreatedBy      string         `json:"createdBy,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// Signable reports whether the document can accept signatures at all.
func (d *Document) Signable() bool {
	return d.Status != StatusRetired && d.LatestRevision != nil
}

// Revision is one immutable content version of a document.
type Revision struct {
	ID          string    `json:"id"`
	Number      int       `json:"number"`
	ContentHash string    `json:"contentHash"`
	Reason      string    `json:"reason,omitempty"`
	CreatedBy   string    `json:"createdBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ContentHash returns the "sha256:<hex>" digest of revision content.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))

	return "sha256:" + hex.EncodeToString(sum[:])
}

var documentCodePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// ValidateDocumentCode checks that code is usable as a path segment.
func ValidateDocumentCode(code string) error {
	if code == "" {
		return NewValidationError("code", "is required")
	}

	if !documentCodePattern.MatchString(code) {
		return NewValidationError("code", "must be 1-64 characters of letters, digits, '.', '_' or '-'")
	}

	return nil
}

// CreateDocumentRequest is the payload for creating a document in DRAFT.
type CreateDocumentRequest struct {
	Code    string `json:"code"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Validate checks required fields on CreateDocumentRequest.
func (r *CreateDocumentRequest) Validate() error {
	r.Code = strings.TrimSpace(r.Code)
	r.Title = strings.TrimSpace(r.Title)

	if err := ValidateDocumentCode(r.Code); err != nil {
		return err
	}

	if r.Title == "" {
		return NewValidationError("title", "is required")
	}

	if len(r.Title) > 500 {
		return ErrFieldTooLong("title", 500)
	}

	if r.Content == "" {
		return NewValidationError("content", "is required")
	}

	return nil
}

// AddRevisionRequest is the payload for adding a revision to a draft document.
type AddRevisionRequest struct {
	Content string `json:"content"`
	Reason  string `json:"reason"`
}

// Validate checks required fields on AddRevisionRequest.
func (r *AddRevisionRequest) Validate() error {
	if r.Content == "" {
		return NewValidationError("content", "is required")
	}

	if strings.TrimSpace(r.Reason) == "" {
		return NewValidationError("reason", "is required")
	}

	return nil
}

// TransitionRequest is the payload for a lifecycle transition.
type TransitionRequest struct {
	Event  string `json:"event"`
	Reason string `json:"reason"`
}

// Validate checks required fields on TransitionRequest.
func (r *TransitionRequest) Validate() error {
	switch r.Event {
	case EventSubmit, EventApprove, EventReject, EventRetire, EventRevise:
	default:
		return NewValidationError("event", "unknown event %q", r.Event)
	}

	if strings.TrimSpace(r.Reason) == "" {
		return NewValidationError("reason", "is required")
	}

	return nil
}

// DocumentListOpts holds filters for listing documents.
type DocumentListOpts struct {
	Status DocumentStatus
	Page   int
	Limit  int
}

// DocumentPage is the response body of the document listing.
type DocumentPage struct {
	Documents  []Document `json:"documents"`
	Pagination Pagination `json:"pagination"`
}
