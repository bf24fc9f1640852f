package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/qmsworks/qms/internal/domain"
	"github.com/qmsworks/qms/internal/models"
)

// GovernanceHandler serves governance approval endpoints.
type GovernanceHandler struct {
	governance domain.GovernanceService
	approvals  domain.ApprovalService
	log        *logrus.Logger
}

// NewGovernanceHandler creates a GovernanceHandler.
func NewGovernanceHandler(governance domain.GovernanceService, approvals domain.ApprovalService, log *logrus.Logger) *GovernanceHandler {
	return &GovernanceHandler{governance: governance, approvals: approvals, log: log}
}

// entityRef reads the :entityType and :entityId path parameters.
func entityRef(c *gin.Context) (entityType, entityID string, ok bool) {
	entityType, entityID = c.Param("entityType"), c.Param("entityId")
	if entityType == "" || entityID == "" || len(entityType) > 64 || len(entityID) > 255 {
		respondBadRequest(c, "invalid entity reference")
		return "", "", false
	}

	return entityType, entityID, true
}

// Approval handles GET /api/governance/:entityType/:entityId/approval.
func (h *GovernanceHandler) Approval(c *gin.Context) {
	entityType, entityID, ok := entityRef(c)
	if !ok {
		return
	}

	data, err := h.governance.Approval(c.Request.Context(), entityType, entityID)
	if err != nil {
		respondServiceError(c, h.log, "governance.approval", err)
		return
	}

	c.JSON(http.StatusOK, data)
}

// decision reads the actor, entity and approval body shared by approve and reject.
func (h *GovernanceHandler) decision(c *gin.Context) (actor models.Actor, entityType, entityID string, req models.ApprovalRequest, ok bool) {
	if actor, ok = actorFrom(c); !ok {
		return
	}

	if entityType, entityID, ok = entityRef(c); !ok {
		return
	}

	ok = bindJSON(c, &req)

	return
}

// Approve handles POST /api/governance/:entityType/:entityId/approve.
func (h *GovernanceHandler) Approve(c *gin.Context) {
	actor, entityType, entityID, req, ok := h.decision(c)
	if !ok {
		return
	}

	artifact, err := h.approvals.Approve(c.Request.Context(), actor, entityType, entityID, req)
	if err != nil {
		respondServiceError(c, h.log, "governance.approve", err)
		return
	}

	c.JSON(http.StatusCreated, artifact)
}

// Reject handles POST /api/governance/:entityType/:entityId/reject.
func (h *GovernanceHandler) Reject(c *gin.Context) {
	actor, entityType, entityID, req, ok := h.decision(c)
	if !ok {
		return
	}

	entry, err := h.approvals.Reject(c.Request.Context(), actor, entityType, entityID, req)
	if err != nil {
		respondServiceError(c, h.log, "governance.reject", err)
		return
	}

	c.JSON(http.StatusCreated, entry)
}
