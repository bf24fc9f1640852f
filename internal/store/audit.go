package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/qmsworks/qms/internal/auditchain"
	"github.com/qmsworks/qms/internal/models"
)

// auditChainLock is the pg_advisory_xact_lock key that serialises appends
// so every entry links to the hash of the one committed before it.
const auditChainLock int64 = 0x716d735f61756474 // "qms_audt"

// exportTimeout bounds full-table walks (export and chain verification).
const exportTimeout = 5 * time.Minute

const auditColumns = `seq, id, entity_type, entity_id, action, user_id, user_name,
	"timestamp", changes, reason, signature_id, prev_hash, hash`

// AuditStore provides read access to the append-only audit_trail table and
// standalone appends for events that change no other table.
type AuditStore struct {
	Base
}

// NewAuditStore creates an AuditStore.
func NewAuditStore(base Base) *AuditStore {
	return &AuditStore{Base: base}
}

// appendAudit seals e onto the hash chain and inserts it within tx. The
// advisory lock is held until tx ends, so concurrent appends queue behind it.
func (b *Base) appendAudit(ctx context.Context, tx pgx.Tx, e *models.AuditEntry) error {
	if !e.Action.Valid() {
		return fmt.Errorf("appending audit entry: invalid action %q", e.Action)
	}

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", auditChainLock); err != nil {
		return fmt.Errorf("locking audit chain: %w", err)
	}

	var prevHash string

	err := tx.QueryRow(ctx, "SELECT hash FROM audit_trail ORDER BY seq DESC LIMIT 1").Scan(&prevHash)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("reading audit chain head: %w", err)
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	if err := auditchain.Seal(e, prevHash); err != nil {
		return err
	}

	var changesJSON []byte
	if len(e.Changes) > 0 {
		changesJSON, err = json.Marshal(e.Changes)
		if err != nil {
			return fmt.Errorf("marshaling audit changes: %w", err)
		}
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO audit_trail (id, entity_type, entity_id, action, user_id, user_name,
			"timestamp", changes, reason, signature_id, prev_hash, hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING seq`,
		e.ID, e.EntityType, e.EntityID, string(e.Action), e.UserID, e.UserName,
		e.Timestamp, changesJSON, e.Reason, e.SignatureID, e.PrevHash, e.Hash,
	).Scan(&e.Seq)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	return nil
}

// Append records a standalone audit entry in its own transaction.
func (s *AuditStore) Append(ctx context.Context, e *models.AuditEntry) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	if err := s.appendAudit(ctx, tx, e); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing audit entry: %w", err)
	}

	s.committed(e)

	return nil
}

// buildAuditFilter builds the WHERE clause and args from AuditQueryOpts.
func buildAuditFilter(opts models.AuditQueryOpts) (where string, args []any, nextArg int) {
	var conditions []string
	argIdx := 1

	add := func(cond string, v any) {
		conditions = append(conditions, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(argIdx)))
		args = append(args, v)
		argIdx++
	}

	if opts.EntityType != "" {
		add("entity_type = ?", opts.EntityType)
	}
	if opts.EntityID != "" {
		add("entity_id = ?", opts.EntityID)
	}
	if opts.Action != "" {
		add("action = ?", opts.Action)
	}
	if opts.StartDate != nil {
		add(`"timestamp" >= ?`, *opts.StartDate)
	}
	if opts.EndDate != nil {
		add(`"timestamp" <= ?`, *opts.EndDate)
	}

	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	return where, args, argIdx
}

// Query returns one page of entries matching opts, newest first, with the
// total match count.
func (s *AuditStore) Query(ctx context.Context, opts models.AuditQueryOpts) (*models.AuditPage, error) {
	opts.Limit = clampLimit(opts.Limit, 25)
	if opts.Page < 1 {
		opts.Page = 1
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on early return.

	where, args, argIdx := buildAuditFilter(opts)

	var total int
	if err := tx.QueryRow(ctx, "SELECT count(*) FROM audit_trail "+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting audit entries: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM audit_trail %s ORDER BY seq DESC LIMIT $%d OFFSET $%d",
		auditColumns, where, argIdx, argIdx+1)
	args = append(args, opts.Limit, opts.Offset())

	logs := make([]models.AuditEntry, 0, opts.Limit)

	err = s.scanAuditRows(ctx, tx, query, args, func(e *models.AuditEntry) error {
		logs = append(logs, *e)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &models.AuditPage{
		Logs:       logs,
		Pagination: models.NewPagination(opts.Page, opts.Limit, total),
	}, nil
}

// EntityTrail returns every entry for one entity in chain order.
func (s *AuditStore) EntityTrail(ctx context.Context, entityType, entityID string) ([]models.AuditEntry, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on early return.

	entries := []models.AuditEntry{}

	err = s.scanAuditRows(ctx, tx,
		"SELECT "+auditColumns+" FROM audit_trail WHERE entity_type = $1 AND entity_id = $2 ORDER BY seq",
		[]any{entityType, entityID},
		func(e *models.AuditEntry) error {
			entries = append(entries, *e)

			return nil
		})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// Walk streams entries matching opts in ascending seq order to fn.
// Page and Limit are ignored. Walk stops at the first error from fn.
func (s *AuditStore) Walk(ctx context.Context, opts models.AuditQueryOpts, fn func(*models.AuditEntry) error) error {
	ctx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()

	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly, IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("beginning audit walk: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // read-only.

	where, args, _ := buildAuditFilter(opts)

	return s.scanAuditRows(ctx, tx, "SELECT "+auditColumns+" FROM audit_trail "+where+" ORDER BY seq", args, fn)
}

// scanAuditRows executes query and passes each scanned entry to fn.
func (s *AuditStore) scanAuditRows(
	ctx context.Context, tx pgx.Tx, query string, args []any, fn func(*models.AuditEntry) error,
) error {
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("querying audit trail: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e           models.AuditEntry
			action      string
			changesJSON []byte
		)

		if err := rows.Scan(&e.Seq, &e.ID, &e.EntityType, &e.EntityID, &action, &e.UserID, &e.UserName,
			&e.Timestamp, &changesJSON, &e.Reason, &e.SignatureID, &e.PrevHash, &e.Hash); err != nil {
			return fmt.Errorf("scanning audit entry: %w", err)
		}

		e.Action = models.AuditAction(action)
		e.Timestamp = e.Timestamp.UTC()

		if changesJSON != nil {
			if err := json.Unmarshal(changesJSON, &e.Changes); err != nil {
				return fmt.Errorf("decoding changes for audit entry %s: %w", e.ID, err)
			}
		}

		if err := fn(&e); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating audit trail: %w", err)
	}

	return nil
}
