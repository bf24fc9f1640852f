// Command qms-server runs the QMS REST API: controlled documents,
// e-signatures, governance approvals and the hash-chained audit trail.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/qmsworks/qms/internal/api"
	"github.com/qmsworks/qms/internal/config"
	"github.com/qmsworks/qms/internal/crypto"
	"github.com/qmsworks/qms/internal/db"
	"github.com/qmsworks/qms/internal/db/migrations"
	"github.com/qmsworks/qms/internal/dbpool"
	"github.com/qmsworks/qms/internal/security"
	"github.com/qmsworks/qms/internal/service"
	"github.com/qmsworks/qms/internal/store"
	"github.com/qmsworks/qms/internal/ws"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})

	if err := run(log); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func setLogLevel(log *logrus.Logger, level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("unknown LOG_LEVEL, using info")
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
}

func initSentry(cfg *config.Config, log *logrus.Logger) bool {
	if cfg.SentryDSN.Value() == "" {
		return false
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN.Value(),
		Environment:      cfg.Environment,
		Release:          "qms-server@" + config.Version,
		TracesSampleRate: 0.2,
	})
	if err != nil {
		log.WithError(err).Error("sentry initialization failed")
		return false
	}

	log.Info("sentry initialized")
	return true
}

func run(log *logrus.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	setLogLevel(log, cfg.LogLevel)

	sentryEnabled := initSentry(cfg, log)
	if sentryEnabled {
		defer sentry.Flush(2 * time.Second)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := dbpool.NewPool(ctx, cfg.DatabaseURL.Value(), dbpool.Options{MaxConns: int32(cfg.DBMaxConns)})
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, log, migrations.FS); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	keys, err := crypto.NewStaticProvider(cfg.EncryptionKey.Value())
	if err != nil {
		return fmt.Errorf("loading encryption key: %w", err)
	}

	base := store.Base{Pool: pool, Log: log, Crypto: crypto.NewService(keys)}
	users := store.NewUserStore(base)
	documents := store.NewDocumentStore(base)
	signatures := store.NewSignatureStore(base)
	artifacts := store.NewGovernanceStore(base)
	auditLog := store.NewAuditStore(base)

	access := service.NewAccessWorker(store.NewAccessStore(base), log, cfg.AccessQueueSize)
	guard := security.NewBruteForceGuard(ctx, log)

	authSvc := service.NewAuthService(users, guard, access, []byte(cfg.JWTSecret.Value()), cfg.TokenTTL, log)
	documentSvc := service.NewDocumentService(documents, log)
	signatureSvc := service.NewSignatureService(documents, signatures, authSvc, log)
	governanceSvc := service.NewGovernanceService(artifacts, documents, log)
	approvalSvc := service.NewApprovalService(artifacts, documents, auditLog, authSvc, log)
	auditSvc := service.NewAuditService(auditLog, log)

	scheduler, err := service.NewScheduler(
		governanceSvc, auditSvc, cfg.GovernanceVerifySchedule, cfg.AuditVerifySchedule, log,
	)
	if err != nil {
		return err
	}

	hub := ws.NewHub(log)
	if err := db.NewNotifyBridge(log, pool, hub).Start(ctx); err != nil {
		return fmt.Errorf("starting audit notifications: %w", err)
	}

	router := api.NewRouter(ctx, &api.RouterDeps{
		Log:         log,
		Pool:        pool,
		Hub:         hub,
		Auth:        authSvc,
		Documents:   documentSvc,
		Signatures:  signatureSvc,
		Approvals:   approvalSvc,
		Governance:  governanceSvc,
		Audit:       auditSvc,
		Access:      access,
		CORSOrigins: cfg.CORSOrigins,
		Version:     config.Version,
		Production:  cfg.IsProduction(),
		Sentry:      sentryEnabled,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		access.Run(gctx)
		return nil
	})
	g.Go(func() error {
		scheduler.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.WithFields(logrus.Fields{
			"addr":        srv.Addr,
			"version":     config.Version,
			"environment": cfg.Environment,
		}).Info("qms-server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("qms-server stopped")
	return nil
}
