package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/qmsworks/qms/internal/domain"
)

// jobTimeout bounds a single scheduled run.
const jobTimeout = 10 * time.Minute

// Scheduler runs periodic integrity checks: governance re-verification and
// audit chain verification.
type Scheduler struct {
	cron       *cron.Cron
	governance domain.GovernanceService
	audit      domain.AuditService
	log        *logrus.Logger
}

// NewScheduler registers both jobs on standard five-field cron specs.
func NewScheduler(
	governance domain.GovernanceService, audit domain.AuditService,
	governanceSpec, auditSpec string, log *logrus.Logger,
) (*Scheduler, error) {
	s := &Scheduler{
		cron:       cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		governance: governance,
		audit:      audit,
		log:        log,
	}

	if _, err := s.cron.AddFunc(governanceSpec, s.reverifyGovernance); err != nil {
		return nil, fmt.Errorf("scheduling governance verification %q: %w", governanceSpec, err)
	}

	if _, err := s.cron.AddFunc(auditSpec, s.verifyAuditChain); err != nil {
		return nil, fmt.Errorf("scheduling audit chain verification %q: %w", auditSpec, err)
	}

	return s, nil
}

// Run starts the scheduler and blocks until ctx is cancelled, then waits for
// running jobs to finish.
func (s *Scheduler) Run(ctx context.Context) {
	s.cron.Start()
	s.log.WithField("jobs", len(s.cron.Entries())).Info("scheduler started")

	<-ctx.Done()

	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) reverifyGovernance() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()

	counts, err := s.governance.ReverifyAll(ctx)
	if err != nil {
		s.log.WithError(err).Error("scheduled governance verification failed")
		return
	}

	fields := logrus.Fields{"duration": time.Since(start).String()}
	for status, n := range counts {
		fields[string(status)] = n
	}

	s.log.WithFields(fields).Info("governance artifacts re-verified")
}

func (s *Scheduler) verifyAuditChain() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	report, err := s.audit.VerifyChain(ctx)
	if err != nil {
		s.log.WithError(err).Error("scheduled audit chain verification failed")
		return
	}

	s.log.WithFields(logrus.Fields{
		"valid":   report.Valid,
		"checked": report.Checked,
	}).Info("audit chain verified")
}
