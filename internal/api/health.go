// Package api provides HTTP handlers for the QMS server.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Pinger checks database connectivity.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// AppliedVersionFunc reports the schema version recorded in the database.
type AppliedVersionFunc func(ctx context.Context) (int64, error)

// StreamCounter reports the number of open audit stream connections.
type StreamCounter interface {
	ClientCount() int
}

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	pool      Pinger
	applied   AppliedVersionFunc
	want      int64
	streams   StreamCounter
	log       *logrus.Logger
	version   string
	startTime time.Time
}

// NewHealthHandler creates a HealthHandler. want is the schema version the
// binary was built with; readiness fails until the database has reached it.
func NewHealthHandler(
	pool Pinger, applied AppliedVersionFunc, want int64, streams StreamCounter, log *logrus.Logger, version string,
) *HealthHandler {
	return &HealthHandler{
		pool:      pool,
		applied:   applied,
		want:      want,
		streams:   streams,
		log:       log,
		version:   version,
		startTime: time.Now(),
	}
}

// readinessResponse is the JSON payload returned by the readiness endpoint.
type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// healthResponse is the JSON payload returned by the liveness endpoint.
type healthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      string  `json:"database"`
	StreamClients int     `json:"streamClients"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
}

// Liveness handles GET /api/health.
func (h *HealthHandler) Liveness(c *gin.Context) {
	resp := healthResponse{
		Status:        "ok",
		Version:       h.version,
		Database:      "connected",
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}

	// Best-effort database ping (non-fatal for liveness).
	if h.pool != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := h.pool.HealthCheck(ctx); err != nil {
			resp.Database = "disconnected"
		}
	} else {
		resp.Database = "not_configured"
	}

	if h.streams != nil {
		resp.StreamClients = h.streams.ClientCount()
	}

	c.JSON(http.StatusOK, resp)
}

// Readiness handles GET /api/ready. It checks the database and that every
// embedded migration has been applied.
func (h *HealthHandler) Readiness(c *gin.Context) {
	checks := map[string]string{
		"database": "ok",
		"schema":   "ok",
	}
	status := "ready"
	statusCode := http.StatusOK

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if h.pool == nil {
		checks["database"] = "not_configured"
	} else if err := h.pool.HealthCheck(ctx); err != nil {
		h.log.WithError(err).Error("readiness: database health check failed")
		checks["database"] = "error"
	}

	if checks["database"] == "ok" {
		if err := h.checkSchema(ctx); err != nil {
			h.log.WithError(err).Error("readiness: schema check failed")
			checks["schema"] = "error"
		}
	} else {
		checks["schema"] = "unknown"
	}

	if checks["database"] != "ok" || checks["schema"] != "ok" {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, readinessResponse{
		Status: status,
		Checks: checks,
	})
}

// checkSchema compares the applied migration version with the embedded one.
func (h *HealthHandler) checkSchema(ctx context.Context) error {
	got, err := h.applied(ctx)
	if err != nil {
		return fmt.Errorf("schema check: %w", err)
	}

	if got < h.want {
		return fmt.Errorf("schema at version %d, want %d", got, h.want)
	}

	return nil
}
