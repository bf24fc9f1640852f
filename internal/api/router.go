package api

import (
	"context"
	"net/http"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/qmsworks/qms/internal/db"
	"github.com/qmsworks/qms/internal/dbpool"
	"github.com/qmsworks/qms/internal/domain"
	"github.com/qmsworks/qms/internal/middleware"
	"github.com/qmsworks/qms/internal/models"
	"github.com/qmsworks/qms/internal/ws"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Log         *logrus.Logger
	Pool        *dbpool.Pool
	Hub         *ws.Hub
	Auth        domain.AuthService
	Documents   domain.DocumentService
	Signatures  domain.SignatureService
	Approvals   domain.ApprovalService
	Governance  domain.GovernanceService
	Audit       domain.AuditService
	Access      domain.AccessRecorder
	CORSOrigins []string
	Version     string
	Production  bool
	Sentry      bool
}

// Router-level limits.
const (
	rateLimit = 50  // requests per second per IP
	rateBurst = 100 // token bucket burst size
)

// Route patterns referenced by middleware.
const (
	signRoute   = "/api/cmmc/documents/:code/sign"
	streamRoute = "/api/system/audit/stream"
)

// setupMiddleware configures all middleware on the Gin engine.
func setupMiddleware(ctx context.Context, r *gin.Engine, deps *RouterDeps) {
	r.SetTrustedProxies(nil) //nolint:errcheck // nil always succeeds.
	if deps.Sentry {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	r.Use(middleware.Recovery(deps.Log))
	r.Use(middleware.RequestID(deps.Log))
	r.Use(ginLogger(deps.Log))
	r.Use(middleware.SecurityHeaders(deps.Production))
	r.Use(middleware.MaxBodySize(middleware.DefaultBodyLimit, map[string]int64{
		signRoute: middleware.SignatureBodyLimit,
	}))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition", middleware.RequestIDHeader},
		MaxAge:           1 * time.Hour,
		AllowCredentials: false,
	}))
	r.Use(middleware.NewRateLimiter(ctx, rateLimit, rateBurst).Handler())
	r.Use(middleware.PrometheusMiddleware(streamRoute))

	// Metrics endpoint (unauthenticated, like health).
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// registerRoutes sets up all API route handlers on the given router group.
func registerRoutes(ctx context.Context, api *gin.RouterGroup, deps *RouterDeps) {
	log := deps.Log

	health := NewHealthHandler(pinger(deps.Pool), func(ctx context.Context) (int64, error) {
		return db.AppliedVersion(ctx, deps.Pool)
	}, db.SchemaVersion(), streamCounter(deps.Hub), log, deps.Version)
	auth := NewAuthHandler(deps.Auth, log)
	documents := NewDocumentHandler(deps.Documents, deps.Audit, log)
	signatures := NewSignatureHandler(deps.Signatures, deps.Access, log)
	governance := NewGovernanceHandler(deps.Governance, deps.Approvals, log)
	audit := NewAuditHandler(deps.Audit, deps.Access, log)

	// Health, readiness and login are unauthenticated.
	api.GET("/health", health.Liveness)
	api.GET("/ready", health.Readiness)
	api.POST("/auth/login", auth.Login)

	authed := api.Group("", middleware.AuthMiddleware(deps.Auth, log))
	editors := middleware.RequireRole(models.UserRoleAdmin, models.UserRoleQA)

	authed.GET("/auth/me", auth.Me)

	// Controlled documents and signatures.
	docs := authed.Group("/cmmc/documents")
	docs.GET("", documents.List)
	docs.POST("", editors, documents.Create)
	docs.GET("/:code", documents.Get)
	docs.POST("/:code/revisions", editors, documents.AddRevision)
	docs.POST("/:code/transitions", editors, documents.Transition)
	docs.GET("/:code/audit", documents.Trail)
	docs.GET("/:code/signatures", signatures.List)
	docs.GET("/:code/signatures/manifest", signatures.Manifest)
	docs.POST("/:code/sign", signatures.Sign)

	// Governance approvals.
	gov := authed.Group("/governance/:entityType/:entityId")
	gov.GET("/approval", governance.Approval)
	gov.POST("/approve", editors, governance.Approve)
	gov.POST("/reject", editors, governance.Reject)

	// System audit trail.
	system := authed.Group("/system/audit", editors)
	system.GET("", audit.List)
	system.GET("/export", gzip.Gzip(gzip.DefaultCompression), audit.Export)
	system.GET("/verify", middleware.RequireRole(models.UserRoleAdmin), audit.Verify)
	system.GET("/stream", wsHandler(ctx, log, deps.Hub, deps.CORSOrigins, deps.Auth))
}

// pinger avoids storing a typed nil pool in the Pinger interface.
func pinger(pool *dbpool.Pool) Pinger {
	if pool == nil {
		return nil
	}

	return pool
}

// streamCounter avoids storing a typed nil hub in the StreamCounter interface.
func streamCounter(hub *ws.Hub) StreamCounter {
	if hub == nil {
		return nil
	}

	return hub
}

// NewRouter creates and configures the Gin engine with all middleware and routes.
func NewRouter(ctx context.Context, deps *RouterDeps) http.Handler {
	r := gin.New()
	setupMiddleware(ctx, r, deps)
	registerRoutes(ctx, r.Group("/api"), deps)

	return r
}
