package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Request body limits. Drawn signatures arrive as data URLs and need more room
// than the other JSON payloads.
const (
	DefaultBodyLimit   int64 = 64 << 10
	SignatureBodyLimit int64 = 1 << 20
)

// MaxBodySize returns middleware that limits request bodies to def bytes, or
// to the limit registered in overrides for the matched route pattern.
func MaxBodySize(def int64, overrides map[string]int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := def
		if v, ok := overrides[c.FullPath()]; ok {
			limit = v
		}

		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}

		c.Next()
	}
}
