package client

import (
	"context"
	"net/url"
)

// Governance decisions.
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

// GovernanceService handles governance approval lookups and decisions.
type GovernanceService struct {
	c *Client
}

func governancePath(entityType, entityID string) string {
	return "/api/governance/" + url.PathEscape(entityType) + "/" + url.PathEscape(entityID)
}

// ApprovalURL returns the approval lookup path for an entity, for use with
// GovernancePanel.
func ApprovalURL(entityType, entityID string) string {
	return governancePath(entityType, entityID) + "/approval"
}

// Approval fetches GovernanceApprovalData from an API path or absolute URL.
func (s *GovernanceService) Approval(ctx context.Context, approvalURL string) (*GovernanceApprovalData, error) {
	var data GovernanceApprovalData
	if err := s.c.get(ctx, approvalURL, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Approve signs the current version of a record.
func (s *GovernanceService) Approve(ctx context.Context, entityType, entityID string, req ApprovalRequest) (*GovernanceArtifact, error) {
	var a GovernanceArtifact
	if err := s.c.post(ctx, governancePath(entityType, entityID)+"/approve", req, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Reject records a rejection of a record in the audit trail.
func (s *GovernanceService) Reject(ctx context.Context, entityType, entityID string, req ApprovalRequest) (*AuditEntry, error) {
	var e AuditEntry
	if err := s.c.post(ctx, governancePath(entityType, entityID)+"/reject", req, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Handler adapts a decision on one entity to an ApprovalHandler.
func (s *GovernanceService) Handler(entityType, entityID, decision string) ApprovalHandler {
	return func(ctx context.Context, req ApprovalRequest) error {
		var err error
		if decision == DecisionReject {
			_, err = s.Reject(ctx, entityType, entityID, req)
		} else {
			_, err = s.Approve(ctx, entityType, entityID, req)
		}
		return err
	}
}
