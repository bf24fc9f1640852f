package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/qmsworks/qms/internal/models"
)

// Recovery turns handler panics into a 500 error body. A panic with
// http.ErrAbortHandler is passed on to net/http, which drops the connection
// without terminating the response, so a client never mistakes a truncated
// stream for a complete one.
func Recovery(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			log.WithFields(logrus.Fields{
				"method":     c.Request.Method,
				"path":       c.Request.URL.Path,
				"request_id": c.GetString(RequestIDKey),
				"stack":      string(debug.Stack()),
			}).Errorf("panic recovered: %v", rec)

			if c.Writer.Written() {
				c.Abort()
				return
			}

			respondError(c, http.StatusInternalServerError, string(models.KindInternal), "internal error")
		}()

		c.Next()
	}
}
