package api

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/qmsworks/qms/internal/domain"
	"github.com/qmsworks/qms/internal/models"
)

// Access events recorded by the HTTP layer.
const (
	AccessManifestDownload = "manifest.download"
	AccessAuditExport      = "audit.export"
)

// SignatureHandler serves document signature endpoints.
type SignatureHandler struct {
	svc    domain.SignatureService
	access domain.AccessRecorder
	log    *logrus.Logger
}

// NewSignatureHandler creates a SignatureHandler.
func NewSignatureHandler(svc domain.SignatureService, access domain.AccessRecorder, log *logrus.Logger) *SignatureHandler {
	return &SignatureHandler{svc: svc, access: access, log: log}
}

// Sign handles POST /api/cmmc/documents/:code/sign.
func (h *SignatureHandler) Sign(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	code, ok := documentCode(c)
	if !ok {
		return
	}

	var req models.SignRequest
	if !bindJSON(c, &req) {
		return
	}

	sig, err := h.svc.Sign(c.Request.Context(), actor, code, req, clientMeta(c))
	if err != nil {
		respondServiceError(c, h.log, "signature.create", err)
		return
	}

	c.JSON(http.StatusCreated, sig)
}

// List handles GET /api/cmmc/documents/:code/signatures.
func (h *SignatureHandler) List(c *gin.Context) {
	code, ok := documentCode(c)
	if !ok {
		return
	}

	sigs, err := h.svc.ListSignatures(c.Request.Context(), code)
	if err != nil {
		respondServiceError(c, h.log, "signature.list", err)
		return
	}

	if sigs == nil {
		sigs = []models.Signature{}
	}

	c.JSON(http.StatusOK, gin.H{"signatures": sigs})
}

// Manifest handles GET /api/cmmc/documents/:code/signatures/manifest.
// The PDF is rendered into memory first so a failure can still be answered as JSON.
func (h *SignatureHandler) Manifest(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	code, ok := documentCode(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.svc.WriteManifest(c.Request.Context(), code, &buf); err != nil {
		respondServiceError(c, h.log, "signature.manifest", err)
		return
	}

	h.access.Record(AccessManifestDownload, &actor, "", clientMeta(c), map[string]any{"documentCode": code})

	c.Header("Content-Disposition", `attachment; filename="`+code+`-signatures.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
