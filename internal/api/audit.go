package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/qmsworks/qms/internal/domain"
	"github.com/qmsworks/qms/internal/middleware"
	"github.com/qmsworks/qms/internal/models"
)

// Export formats and their response metadata.
var exportFormats = map[string]struct {
	contentType string
	filename    string
}{
	"csv":  {"text/csv; charset=utf-8", "audit-log.csv"},
	"xlsx": {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "audit-log.xlsx"},
}

// AuditHandler serves audit trail endpoints.
type AuditHandler struct {
	svc    domain.AuditService
	access domain.AccessRecorder
	log    *logrus.Logger
}

// NewAuditHandler creates an AuditHandler.
func NewAuditHandler(svc domain.AuditService, access domain.AccessRecorder, log *logrus.Logger) *AuditHandler {
	return &AuditHandler{svc: svc, access: access, log: log}
}

// List handles GET /api/system/audit.
func (h *AuditHandler) List(c *gin.Context) {
	page, limit, ok := parsePage(c)
	if !ok {
		return
	}

	opts, ok := auditFilters(c)
	if !ok {
		return
	}

	opts.Page, opts.Limit = page, limit

	result, err := h.svc.ListAudit(c.Request.Context(), opts)
	if err != nil {
		respondServiceError(c, h.log, "audit.list", err)
		return
	}

	if result.Logs == nil {
		result.Logs = []models.AuditEntry{}
	}

	c.JSON(http.StatusOK, result)
}

// Export handles GET /api/system/audit/export. The body is streamed. An
// error after the first byte has been sent drops the connection before the
// response is terminated, so clients see a read error instead of a short file.
func (h *AuditHandler) Export(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	format := c.DefaultQuery("format", "csv")

	meta, known := exportFormats[format]
	if !known {
		respondBadRequest(c, "format must be csv or xlsx")
		return
	}

	opts, ok := auditFilters(c)
	if !ok {
		return
	}

	c.Header("Content-Type", meta.contentType)
	c.Header("Content-Disposition", `attachment; filename="`+meta.filename+`"`)
	c.Status(http.StatusOK)

	export := h.svc.ExportCSV
	if format == "xlsx" {
		export = h.svc.ExportXLSX
	}

	if err := export(c.Request.Context(), opts, c.Writer); err != nil {
		if !c.Writer.Written() {
			c.Writer.Header().Del("Content-Disposition")
			c.Writer.Header().Del("Content-Type")
			respondServiceError(c, h.log, "audit.export", err)

			return
		}

		h.log.WithError(err).WithField("request_id", c.GetString(middleware.RequestIDKey)).Error("audit export aborted mid-stream")
		c.Abort()
		panic(http.ErrAbortHandler)
	}

	h.access.Record(AccessAuditExport, &actor, "", clientMeta(c), map[string]any{"format": format})
}

// Verify handles GET /api/system/audit/verify.
func (h *AuditHandler) Verify(c *gin.Context) {
	report, err := h.svc.VerifyChain(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.log, "audit.verify", err)
		return
	}

	c.JSON(http.StatusOK, report)
}
