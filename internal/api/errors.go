package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/qmsworks/qms/internal/httputil"
	"github.com/qmsworks/qms/internal/metrics"
	"github.com/qmsworks/qms/internal/middleware"
	"github.com/qmsworks/qms/internal/models"
	"github.com/qmsworks/qms/internal/security"
)

// kindStatus maps error kinds to HTTP status codes.
var kindStatus = map[models.ErrorKind]int{
	models.KindValidation:   http.StatusBadRequest,
	models.KindUnauthorized: http.StatusUnauthorized,
	models.KindForbidden:    http.StatusForbidden,
	models.KindNotFound:     http.StatusNotFound,
	models.KindConflict:     http.StatusConflict,
	models.KindRateLimited:  http.StatusTooManyRequests,
	models.KindInternal:     http.StatusInternalServerError,
}

// respondError writes a standardized JSON error response, pulling the request
// ID from the Gin context (set by the request ID middleware).
func respondError(c *gin.Context, status int, kind models.ErrorKind, message string) {
	metrics.ErrorsTotal.WithLabelValues(string(kind)).Inc()
	httputil.RespondError(c, status, string(kind), message)
}

// respondBadRequest answers a body or query that could not be decoded.
func respondBadRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, models.KindValidation, message)
}

// respondServiceError maps a service error to its kind and status. Internal
// errors are logged with op and answered with a generic message.
func respondServiceError(c *gin.Context, log *logrus.Logger, op string, err error) {
	kind := models.KindOf(err)

	status, ok := kindStatus[kind]
	if !ok || kind == models.KindInternal {
		log.WithError(err).WithFields(logrus.Fields{
			"op":         op,
			"request_id": c.GetString(middleware.RequestIDKey),
		}).Error("request failed")
		respondError(c, http.StatusInternalServerError, models.KindInternal, "internal server error")

		return
	}

	if kind == models.KindRateLimited {
		c.Header("Retry-After", strconv.Itoa(int(security.BruteForceLockout.Seconds())))
	}

	respondError(c, status, kind, err.Error())
}
