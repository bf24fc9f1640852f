// Package httputil provides shared HTTP response helpers.
package httputil

import "github.com/gin-gonic/gin"

// RequestIDKey is the gin context key holding the request ID.
const RequestIDKey = "request_id"

// ErrorBody is the JSON body of every non-2xx response.
type ErrorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

// RespondError writes a standardized JSON error response and aborts the request.
func RespondError(c *gin.Context, status int, code, message string) {
	body := ErrorBody{Error: message, Code: code}

	if rid, exists := c.Get(RequestIDKey); exists {
		if s, ok := rid.(string); ok {
			body.RequestID = s
		}
	}

	c.AbortWithStatusJSON(status, body)
}
