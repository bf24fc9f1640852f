package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/qmsworks/qms/internal/models"
)

// authTimingFloor is the minimum response time for rejected tokens so that
// failures caused by signature checks and user lookups look alike.
const authTimingFloor = 50 * time.Millisecond

// ActorKey is the gin context key holding the authenticated models.Actor.
const ActorKey = "actor"

// TokenValidator resolves a bearer token to the user it was issued to.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*models.Actor, error)
}

// enforceTimingFloor sleeps if needed so the response takes at least authTimingFloor.
func enforceTimingFloor(start time.Time) {
	if elapsed := time.Since(start); elapsed < authTimingFloor {
		time.Sleep(authTimingFloor - elapsed)
	}
}

// AuthMiddleware returns Gin middleware that authenticates requests via a
// Bearer JWT and stores the actor in the context.
func AuthMiddleware(validator TokenValidator, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if c.Writer.Status() == http.StatusUnauthorized {
				enforceTimingFloor(start)
			}
		}()

		token := ExtractBearerToken(c)
		if token == "" {
			respondError(c, http.StatusUnauthorized, string(models.KindUnauthorized), "missing or invalid authorization header")
			return
		}

		actor, err := validator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, models.ErrInvalidToken) {
				log.WithError(err).Error("token validation failed")
				respondError(c, http.StatusInternalServerError, string(models.KindInternal), "internal error")

				return
			}

			logAuthFailure(log, c)
			respondError(c, http.StatusUnauthorized, string(models.KindUnauthorized), "invalid or expired token")

			return
		}

		c.Set(ActorKey, *actor)
		c.Next()
	}
}

// RequireRole rejects requests whose actor holds none of roles. It must run
// after AuthMiddleware.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, string(models.KindUnauthorized), "authentication required")
			return
		}

		if !actor.HasRole(roles...) {
			respondError(c, http.StatusForbidden, string(models.KindForbidden), models.ErrInsufficientRole.Error())
			return
		}

		c.Next()
	}
}

// ActorFrom returns the authenticated actor stored by AuthMiddleware.
func ActorFrom(c *gin.Context) (models.Actor, bool) {
	v, ok := c.Get(ActorKey)
	if !ok {
		return models.Actor{}, false
	}

	actor, ok := v.(models.Actor)

	return actor, ok
}

// ExtractBearerToken extracts the token from the Authorization header.
func ExtractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return ""
	}

	return strings.TrimPrefix(header, "Bearer ")
}

// logAuthFailure logs a rejected token without recording the token itself.
func logAuthFailure(log *logrus.Logger, c *gin.Context) {
	log.WithFields(logrus.Fields{
		"client_ip":  c.ClientIP(),
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"user_agent": c.Request.UserAgent(),
		"request_id": c.GetString(RequestIDKey),
	}).Warn("authentication failed: invalid token")
}
