package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/qmsworks/qms/internal/domain"
	"github.com/qmsworks/qms/internal/models"
)

// DocumentHandler serves controlled-document endpoints.
type DocumentHandler struct {
	svc   domain.DocumentService
	audit domain.AuditService
	log   *logrus.Logger
}

// NewDocumentHandler creates a DocumentHandler.
func NewDocumentHandler(svc domain.DocumentService, audit domain.AuditService, log *logrus.Logger) *DocumentHandler {
	return &DocumentHandler{svc: svc, audit: audit, log: log}
}

// documentCode reads and validates the :code path parameter.
func documentCode(c *gin.Context) (string, bool) {
	code := c.Param("code")
	if err := models.ValidateDocumentCode(code); err != nil {
		respondBadRequest(c, err.Error())
		return "", false
	}

	return code, true
}

// List handles GET /api/cmmc/documents.
func (h *DocumentHandler) List(c *gin.Context) {
	page, limit, ok := parsePage(c)
	if !ok {
		return
	}

	result, err := h.svc.ListDocuments(c.Request.Context(), models.DocumentListOpts{
		Status: models.DocumentStatus(c.Query("status")),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		respondServiceError(c, h.log, "document.list", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Get handles GET /api/cmmc/documents/:code.
func (h *DocumentHandler) Get(c *gin.Context) {
	code, ok := documentCode(c)
	if !ok {
		return
	}

	doc, err := h.svc.GetDocument(c.Request.Context(), code)
	if err != nil {
		respondServiceError(c, h.log, "document.get", err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// Create handles POST /api/cmmc/documents.
func (h *DocumentHandler) Create(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req models.CreateDocumentRequest
	if !bindJSON(c, &req) {
		return
	}

	doc, err := h.svc.CreateDocument(c.Request.Context(), actor, req)
	if err != nil {
		respondServiceError(c, h.log, "document.create", err)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

// AddRevision handles POST /api/cmmc/documents/:code/revisions.
func (h *DocumentHandler) AddRevision(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	code, ok := documentCode(c)
	if !ok {
		return
	}

	var req models.AddRevisionRequest
	if !bindJSON(c, &req) {
		return
	}

	doc, err := h.svc.AddRevision(c.Request.Context(), actor, code, req)
	if err != nil {
		respondServiceError(c, h.log, "document.revision", err)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

// Transition handles POST /api/cmmc/documents/:code/transitions.
func (h *DocumentHandler) Transition(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	code, ok := documentCode(c)
	if !ok {
		return
	}

	var req models.TransitionRequest
	if !bindJSON(c, &req) {
		return
	}

	doc, err := h.svc.Transition(c.Request.Context(), actor, code, req)
	if err != nil {
		respondServiceError(c, h.log, "document.transition", err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// Trail handles GET /api/cmmc/documents/:code/audit.
func (h *DocumentHandler) Trail(c *gin.Context) {
	code, ok := documentCode(c)
	if !ok {
		return
	}

	entries, err := h.audit.EntityTrail(c.Request.Context(), models.EntityDocument, code)
	if err != nil {
		respondServiceError(c, h.log, "document.trail", err)
		return
	}

	if entries == nil {
		entries = []models.AuditEntry{}
	}

	c.JSON(http.StatusOK, gin.H{"logs": entries})
}
