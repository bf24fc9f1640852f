package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/qmsworks/qms/internal/httputil"
	"github.com/qmsworks/qms/internal/metrics"
)

// respondError delegates to the shared httputil.RespondError helper.
func respondError(c *gin.Context, status int, code, message string) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()
	httputil.RespondError(c, status, code, message)
}
