package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/qmsworks/qms/internal/models"
)

// AccessStore records operational access events (logins, exports, downloads).
// These are not part of the regulated audit trail.
type AccessStore struct {
	Base
}

// NewAccessStore creates an AccessStore.
func NewAccessStore(base Base) *AccessStore {
	return &AccessStore{Base: base}
}

// RecordAccess inserts one access event.
func (s *AccessStore) RecordAccess(ctx context.Context, r models.AccessEvent) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	detail := ""
	if len(r.Detail) > 0 {
		b, err := json.Marshal(r.Detail)
		if err != nil {
			return fmt.Errorf("marshaling access detail: %w", err)
		}

		detail = string(b)
	}

	_, err := s.Pool.Exec(ctx, `
		INSERT INTO access_events (event, user_id, username, client_ip, user_agent, browser, os, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.Event, r.UserID, r.Username, r.ClientIP, r.UserAgent, r.Browser, r.OS, detail,
	)
	if err != nil {
		return fmt.Errorf("inserting access event: %w", err)
	}

	return nil
}
