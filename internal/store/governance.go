package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/qmsworks/qms/internal/models"
)

const artifactColumns = `id, entity_type, entity_id, record_version, qms_hash, signed_by_id, signed_by,
	reason, signed_at, verified_at, verification_status`

// GovernanceStore handles governance approval artifacts.
type GovernanceStore struct {
	Base
}

// NewGovernanceStore creates a GovernanceStore.
func NewGovernanceStore(base Base) *GovernanceStore {
	return &GovernanceStore{Base: base}
}

func scanArtifact(scan func(dest ...any) error) (*models.GovernanceArtifact, error) {
	var (
		a      models.GovernanceArtifact
		status *string
	)

	if err := scan(&a.ID, &a.EntityType, &a.EntityID, &a.RecordVersion, &a.QMSHash, &a.SignedByID, &a.SignedBy,
		&a.Reason, &a.SignedAt, &a.VerifiedAt, &status); err != nil {
		return nil, err
	}

	if status != nil {
		vs := models.VerificationStatus(*status)
		a.VerificationStatus = &vs
	}

	return &a, nil
}

// LatestArtifact returns the most recent artifact for an entity.
func (s *GovernanceStore) LatestArtifact(ctx context.Context, entityType, entityID string) (*models.GovernanceArtifact, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	a, err := scanArtifact(s.Pool.QueryRow(ctx, `
		SELECT `+artifactColumns+`
		FROM governance_artifacts
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC, signed_at DESC
		LIMIT 1`, entityType, entityID,
	).Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrArtifactNotFound
		}

		return nil, fmt.Errorf("getting governance artifact: %w", err)
	}

	return a, nil
}

// ListLatestArtifacts returns the newest artifact for every approved entity.
func (s *GovernanceStore) ListLatestArtifacts(ctx context.Context) ([]models.GovernanceArtifact, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx, `
		SELECT DISTINCT ON (entity_type, entity_id) `+artifactColumns+`
		FROM governance_artifacts
		ORDER BY entity_type, entity_id, created_at DESC, signed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing governance artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []models.GovernanceArtifact

	for rows.Next() {
		a, err := scanArtifact(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning governance artifact: %w", err)
		}

		artifacts = append(artifacts, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating governance artifacts: %w", err)
	}

	return artifacts, nil
}

// CreateArtifact inserts a as VERIFIED at signing time and appends entry in
// the same transaction.
func (s *GovernanceStore) CreateArtifact(
	ctx context.Context, a *models.GovernanceArtifact, entry *models.AuditEntry,
) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx)
	if err != nil {
		return fmt.Errorf("creating governance artifact: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	a.ID = uuid.NewString()
	verified := models.VerificationVerified
	a.VerificationStatus = &verified
	now := time.Now().UTC()
	a.VerifiedAt = &now

	_, err = tx.Exec(ctx, `
		INSERT INTO governance_artifacts (id, entity_type, entity_id, record_version, qms_hash,
			signed_by_id, signed_by, reason, signed_at, verified_at, verification_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.EntityType, a.EntityID, a.RecordVersion, a.QMSHash,
		a.SignedByID, a.SignedBy, a.Reason, a.SignedAt, a.VerifiedAt, string(verified),
	)
	if err != nil {
		return fmt.Errorf("inserting governance artifact: %w", err)
	}

	entry.Change("recordVersion", nil, a.RecordVersion).Change("qmsHash", nil, a.QMSHash)

	if err := s.appendAudit(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing governance artifact: %w", err)
	}

	s.committed(entry)

	return nil
}

// UpdateVerification stores the outcome of a verification run.
func (s *GovernanceStore) UpdateVerification(
	ctx context.Context, id string, status models.VerificationStatus, verifiedAt time.Time,
) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tag, err := s.Pool.Exec(ctx,
		`UPDATE governance_artifacts SET verification_status = $1, verified_at = $2 WHERE id = $3`,
		string(status), verifiedAt, id,
	)
	if err != nil {
		return fmt.Errorf("updating artifact verification: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return models.ErrArtifactNotFound
	}

	return nil
}
