package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/qmsworks/qms/internal/middleware"
	"github.com/qmsworks/qms/internal/models"
	"github.com/qmsworks/qms/internal/ws"
)

// Pagination bounds shared by every listing endpoint.
const (
	defaultPageLimit = 25
	maxPageLimit     = 100
)

// dateOnly is the calendar-date layout accepted for audit filters.
const dateOnly = "2006-01-02"

// actorFrom returns the authenticated actor or answers 401.
func actorFrom(c *gin.Context) (models.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, models.KindUnauthorized, "authentication required")
	}

	return actor, ok
}

// clientMeta captures the request origin recorded with signatures and access events.
func clientMeta(c *gin.Context) models.ClientMeta {
	return models.ClientMeta{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

// bindJSON decodes the request body into dst or answers 400.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondBadRequest(c, "invalid request body")
		return false
	}

	return true
}

// parsePage reads page and limit query parameters. Page must be at least 1
// and limit within 1..maxPageLimit; anything else is a validation error.
func parsePage(c *gin.Context) (page, limit int, ok bool) {
	page, limit = 1, defaultPageLimit

	if s := c.Query("page"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			respondBadRequest(c, "page must be a positive integer")
			return 0, 0, false
		}
		page = v
	}

	if s := c.Query("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > maxPageLimit {
			respondBadRequest(c, "limit must be between 1 and 100")
			return 0, 0, false
		}
		limit = v
	}

	return page, limit, true
}

// parseDate accepts RFC 3339 timestamps or YYYY-MM-DD dates. A date-only
// value with endOfDay set covers the whole day.
func parseDate(value string, endOfDay bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}

	t, err := time.Parse(dateOnly, value)
	if err != nil {
		return nil, err
	}

	if endOfDay {
		t = t.Add(24*time.Hour - time.Microsecond)
	}

	return &t, nil
}

// auditFilters reads the date and action filters shared by the audit listing and export.
func auditFilters(c *gin.Context) (models.AuditQueryOpts, bool) {
	start, err := parseDate(c.Query("startDate"), false)
	if err != nil {
		respondBadRequest(c, "invalid startDate, use RFC3339 or YYYY-MM-DD")
		return models.AuditQueryOpts{}, false
	}

	end, err := parseDate(c.Query("endDate"), true)
	if err != nil {
		respondBadRequest(c, "invalid endDate, use RFC3339 or YYYY-MM-DD")
		return models.AuditQueryOpts{}, false
	}

	return models.AuditQueryOpts{
		EntityType: c.Query("entityType"),
		EntityID:   c.Query("entityId"),
		Action:     c.Query("action"),
		StartDate:  start,
		EndDate:    end,
	}, true
}

func wsHandler(appCtx context.Context, log *logrus.Logger, hub *ws.Hub, corsOrigins []string, validator ws.TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFrom(c)
		if !ok {
			return
		}

		// Kept for periodic re-validation while the stream is open.
		token := middleware.ExtractBearerToken(c)

		// CORS origins are reused as WebSocket origin patterns.
		conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
			OriginPatterns:       corsOrigins,
			CompressionMode:      websocket.CompressionContextTakeover,
			CompressionThreshold: 128,
		})
		if err != nil {
			log.WithError(err).Error("websocket accept failed")

			return
		}

		client := ws.NewClient(hub, conn, validator, actor.ID, token)
		hub.Register(client)

		// Cancel when either the server shuts down or the request ends.
		wsCtx, wsCancel := context.WithCancel(appCtx)
		go func() {
			select {
			case <-c.Request.Context().Done():
				wsCancel()
			case <-wsCtx.Done():
			}
		}()

		go client.WritePump(wsCtx)
		client.ReadPump(wsCtx)
		wsCancel()
	}
}

func ginLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		fields := logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"client":   c.ClientIP(),
		}
		if rid, exists := c.Get(middleware.RequestIDKey); exists {
			fields["request_id"] = rid
		}
		if actor, ok := middleware.ActorFrom(c); ok {
			fields["user_id"] = actor.ID
		}
		log.WithFields(fields).Info("request")
	}
}
