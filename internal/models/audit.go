package models

import "time"

// AuditAction is the kind of state change an audit entry records.
type AuditAction string

// Audit actions accepted by the audit trail.
const (
	ActionCreate  AuditAction = "create"
	ActionUpdate  AuditAction = "update"
	ActionDelete  AuditAction = "delete"
	ActionApprove AuditAction = "approve"
	ActionReject  AuditAction = "reject"
	ActionSign    AuditAction = "sign"
)

// Valid reports whether a is one of the known audit actions.
func (a AuditAction) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionApprove, ActionReject, ActionSign:
		return true
	}

	return false
}

// Entity types recorded in the audit trail.
const (
	EntityDocument = "document"
)

// FieldChange is the before and after value of a single field.
type FieldChange struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// AuditEntry is one immutable row of the audit trail.
type AuditEntry struct {
	Seq         int64                  `json:"seq"`
	ID          string                 `json:"id"`
	EntityType  string                 `json:"entityType"`
	EntityID    string                 `json:"entityId"`
	Action      AuditAction            `json:"action"`
	UserID      string                 `json:"userId"`
	UserName    string                 `json:"userName"`
	Timestamp   time.Time              `json:"timestamp"`
	Changes     map[string]FieldChange `json:"changes,omitempty"`
	Reason      string                 `json:"reason,omitempty"`
	SignatureID string                 `json:"signatureId,omitempty"`
	PrevHash    string                 `json:"prevHash"`
	Hash        string                 `json:"hash"`
}

// NewAuditEntry starts an entry attributed to actor. Changes may be added
// before it is appended.
func NewAuditEntry(actor Actor, action AuditAction, entityType, entityID, reason string) *AuditEntry {
	return &AuditEntry{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		UserID:     actor.ID,
		UserName:   actor.Name,
		Reason:     reason,
	}
}

// Change records a field transition on e and returns e.
func (e *AuditEntry) Change(field string, from, to any) *AuditEntry {
	if e.Changes == nil {
		e.Changes = make(map[string]FieldChange)
	}

	e.Changes[field] = FieldChange{From: from, To: to}

	return e
}

// AuditQueryOpts holds filters for listing the audit trail.
type AuditQueryOpts struct {
	EntityType string
	EntityID   string
	Action     string
	StartDate  *time.Time
	EndDate    *time.Time
	Page       int
	Limit      int
}

// Offset returns the row offset for the requested page.
func (o AuditQueryOpts) Offset() int {
	if o.Page <= 1 {
		return 0
	}

	return (o.Page - 1) * o.Limit
}

// Pagination describes one page of a paginated listing.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes the page count for total rows. TotalPages is never below one.
func NewPagination(page, limit, total int) Pagination {
	pages := 1
	if limit > 0 && total > 0 {
		pages = (total + limit - 1) / limit
	}

	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

// AuditPage is the response body of the audit listing.
type AuditPage struct {
	Logs       []AuditEntry `json:"logs"`
	Pagination Pagination   `json:"pagination"`
}

// ChainReport is the outcome of walking the audit hash chain.
type ChainReport struct {
	Valid     bool      `json:"valid"`
	Checked   int64     `json:"checked"`
	BrokenAt  int64     `json:"brokenAt,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	HeadHash  string    `json:"headHash,omitempty"`
	CheckedAt time.Time `json:"checkedAt"`
}
