package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qmsworks/qms/internal/domain"
	"github.com/qmsworks/qms/internal/models"
)

// Compile-time check: *ApprovalService must satisfy domain.ApprovalService.
var _ domain.ApprovalService = (*ApprovalService)(nil)

// AuditAppender appends a standalone audit entry.
type AuditAppender interface {
	Append(ctx context.Context, e *models.AuditEntry) error
}

// ApprovalService records governance approvals and rejections. Both require
// the signed-in user to re-enter their own credentials.
type ApprovalService struct {
	artifacts ArtifactStore
	records   RecordStateReader
	audit     AuditAppender
	auth      domain.Reauthenticator
	log       *logrus.Logger
	now       func() time.Time
}

// NewApprovalService creates an ApprovalService.
func NewApprovalService(
	artifacts ArtifactStore, records RecordStateReader, audit AuditAppender,
	auth domain.Reauthenticator, log *logrus.Logger,
) *ApprovalService {
	return &ApprovalService{
		artifacts: artifacts,
		records:   records,
		audit:     audit,
		auth:      auth,
		log:       log,
		now:       time.Now,
	}
}

// confirm validates req, checks that it names actor and re-verifies the
// password, then returns the current state of the record.
func (s *ApprovalService) confirm(
	ctx context.Context, actor models.Actor, entityType, entityID string, req *models.ApprovalRequest,
) (*models.RecordState, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if !strings.EqualFold(strings.TrimSpace(req.Username), actor.Username) {
		return nil, models.ErrSignerMismatch
	}

	state, err := currentRecordState(ctx, s.records, entityType, entityID)
	if err != nil {
		return nil, err
	}

	if state == nil {
		return nil, models.ErrRecordNotFound
	}

	if err := s.auth.Reauthenticate(ctx, actor, req.Password); err != nil {
		return nil, err
	}

	return state, nil
}

// Approve signs off the current version and hash of a record.
func (s *ApprovalService) Approve(
	ctx context.Context, actor models.Actor, entityType, entityID string, req models.ApprovalRequest,
) (*models.GovernanceArtifact, error) {
	state, err := s.confirm(ctx, actor, entityType, entityID, &req)
	if err != nil {
		return nil, err
	}

	a := &models.GovernanceArtifact{
		EntityType:    entityType,
		EntityID:      entityID,
		RecordVersion: state.Version,
		QMSHash:       state.Hash,
		SignedBy:      actor.Name,
		SignedByID:    actor.ID,
		Reason:        strings.TrimSpace(req.Reason),
		SignedAt:      s.now().UTC(),
	}

	entry := models.NewAuditEntry(actor, models.ActionApprove, entityType, entityID, a.Reason)

	if err := s.artifacts.CreateArtifact(ctx, a, entry); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"entity_type":    entityType,
		"entity_id":      entityID,
		"record_version": a.RecordVersion,
		"user_id":        actor.ID,
	}).Info("governance approval recorded")

	return a, nil
}

// Reject records a rejection of the current version of a record. No artifact is created.
func (s *ApprovalService) Reject(
	ctx context.Context, actor models.Actor, entityType, entityID string, req models.ApprovalRequest,
) (*models.AuditEntry, error) {
	state, err := s.confirm(ctx, actor, entityType, entityID, &req)
	if err != nil {
		return nil, err
	}

	entry := models.NewAuditEntry(actor, models.ActionReject, entityType, entityID, strings.TrimSpace(req.Reason)).
		Change("recordVersion", nil, state.Version)

	if err := s.audit.Append(ctx, entry); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"entity_type": entityType,
		"entity_id":   entityID,
		"user_id":     actor.ID,
	}).Info("governance rejection recorded")

	return entry, nil
}
