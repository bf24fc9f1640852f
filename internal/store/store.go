// Package store provides focused, single-concern data access stores for
// documents, signatures, governance artifacts and the audit trail.
//
// Each store embeds Base for the shared pool, crypto and logger. Every
// mutation that the audit trail must record appends its entry inside the
// same transaction (see appendAudit), so a failed append rolls the change back.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/qmsworks/qms/internal/crypto"
	"github.com/qmsworks/qms/internal/db"
	"github.com/qmsworks/qms/internal/dbpool"
	"github.com/qmsworks/qms/internal/metrics"
	"github.com/qmsworks/qms/internal/models"
)

const defaultQueryTimeout = 30 * time.Second

// Base contains shared dependencies for all stores.
type Base struct {
	Pool   *dbpool.Pool
	Log    *logrus.Logger
	Crypto *crypto.Service
}

// withTimeout creates a context with the default query timeout.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultQueryTimeout)
}

// beginTx starts a read-write transaction.
func (b *Base) beginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := b.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	return tx, nil
}

// beginReadTx starts a read-only transaction.
func (b *Base) beginReadTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := b.Pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("beginning read transaction: %w", err)
	}

	return tx, nil
}

// committed publishes audit entries after their transaction has committed.
// Notification is best-effort; the entries are already durable.
func (b *Base) committed(entries ...*models.AuditEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, e := range entries {
		metrics.AuditAppendsTotal.WithLabelValues(string(e.Action)).Inc()

		payload, _ := json.Marshal(db.AuditNotification{ //nolint:errcheck // plain struct, cannot fail.
			Type:       db.EventAuditAppended,
			Seq:        e.Seq,
			ID:         e.ID,
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			Action:     string(e.Action),
			Hash:       e.Hash,
		})

		if _, err := b.Pool.Exec(ctx, "SELECT pg_notify($1, $2)", db.AuditChannel, string(payload)); err != nil {
			b.Log.WithError(err).WithField("audit_id", e.ID).Warn("failed to send audit notification")
		}
	}
}
