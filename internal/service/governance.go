package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qmsworks/qms/internal/domain"
	"github.com/qmsworks/qms/internal/metrics"
	"github.com/qmsworks/qms/internal/models"
)

// Compile-time check: *GovernanceService must satisfy domain.GovernanceService.
var _ domain.GovernanceService = (*GovernanceService)(nil)

// RecordStateReader resolves the current version and hash of a document.
type RecordStateReader interface {
	RecordState(ctx context.Context, code string) (*models.RecordState, error)
}

// ArtifactStore is the data-access interface for governance artifacts.
type ArtifactStore interface {
	LatestArtifact(ctx context.Context, entityType, entityID string) (*models.GovernanceArtifact, error)
	ListLatestArtifacts(ctx context.Context) ([]models.GovernanceArtifact, error)
	CreateArtifact(ctx context.Context, a *models.GovernanceArtifact, entry *models.AuditEntry) error
	UpdateVerification(ctx context.Context, id string, status models.VerificationStatus, verifiedAt time.Time) error
}

// currentRecordState returns the state of the approvable record, nil when it
// no longer exists.
func currentRecordState(
	ctx context.Context, records RecordStateReader, entityType, entityID string,
) (*models.RecordState, error) {
	switch entityType {
	case models.EntityDocument:
		return records.RecordState(ctx, entityID)
	default:
		return nil, models.ErrUnsupportedEntity
	}
}

// GovernanceService looks up approval artifacts and verifies them against
// the live record.
type GovernanceService struct {
	artifacts ArtifactStore
	records   RecordStateReader
	log       *logrus.Logger
	now       func() time.Time
}

// NewGovernanceService creates a GovernanceService.
func NewGovernanceService(artifacts ArtifactStore, records RecordStateReader, log *logrus.Logger) *GovernanceService {
	return &GovernanceService{artifacts: artifacts, records: records, log: log, now: time.Now}
}

// Approval returns the latest artifact for an entity, verified now. An
// entity without an artifact is not an error.
func (s *GovernanceService) Approval(
	ctx context.Context, entityType, entityID string,
) (*models.GovernanceApprovalData, error) {
	if entityType != models.EntityDocument {
		return nil, models.ErrUnsupportedEntity
	}

	a, err := s.artifacts.LatestArtifact(ctx, entityType, entityID)
	if err != nil {
		if errors.Is(err, models.ErrArtifactNotFound) {
			return &models.GovernanceApprovalData{HasArtifact: false}, nil
		}

		return nil, err
	}

	v, err := s.verify(ctx, a)
	if err != nil {
		return nil, err
	}

	return &models.GovernanceApprovalData{HasArtifact: true, Artifact: a, Verification: &v}, nil
}

// verify compares a with its record and persists the outcome on a. A failed
// write is logged; the live result is still returned.
func (s *GovernanceService) verify(ctx context.Context, a *models.GovernanceArtifact) (models.Verification, error) {
	state, err := currentRecordState(ctx, s.records, a.EntityType, a.EntityID)
	if err != nil {
		return models.Verification{}, err
	}

	v := models.Verify(a, state, s.now().UTC())

	if err := s.artifacts.UpdateVerification(ctx, a.ID, v.Status, v.CheckedAt); err != nil {
		s.log.WithError(err).WithField("artifact_id", a.ID).Warn("failed to persist verification result")
		return v, nil
	}

	if prev := a.VerificationStatus; prev != nil && *prev != v.Status {
		s.log.WithFields(logrus.Fields{
			"entity_type": a.EntityType,
			"entity_id":   a.EntityID,
			"from":        *prev,
			"to":          v.Status,
		}).Warn("governance verification status changed")
	}

	status := v.Status
	checked := v.CheckedAt
	a.VerificationStatus = &status
	a.VerifiedAt = &checked

	return v, nil
}

// ReverifyAll re-checks the latest artifact of every approved entity and
// returns the count per status.
func (s *GovernanceService) ReverifyAll(ctx context.Context) (map[models.VerificationStatus]int, error) {
	artifacts, err := s.artifacts.ListLatestArtifacts(ctx)
	if err != nil {
		return nil, err
	}

	counts := map[models.VerificationStatus]int{
		models.VerificationVerified: 0,
		models.VerificationStale:    0,
		models.VerificationInvalid:  0,
	}

	for i := range artifacts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		v, err := s.verify(ctx, &artifacts[i])
		if err != nil {
			s.log.WithError(err).WithField("artifact_id", artifacts[i].ID).Warn("skipping artifact verification")
			continue
		}

		counts[v.Status]++
	}

	for status, n := range counts {
		metrics.GovernanceArtifacts.WithLabelValues(string(status)).Set(float64(n))
	}

	return counts, nil
}
