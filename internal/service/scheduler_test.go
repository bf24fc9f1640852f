package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qmsworks/qms/internal/models"
)

func TestNewScheduler_RejectsBadSpec(t *testing.T) {
	gov := NewGovernanceService(newMockArtifactStore(), mockRecords{}, testLogger())
	audit := NewAuditService(&mockAuditReader{}, testLogger())

	_, err := NewScheduler(gov, audit, "every hour", "0 3 * * *", testLogger())
	assert.Error(t, err)

	_, err = NewScheduler(gov, audit, "0 * * * *", "61 * * * *", testLogger())
	assert.Error(t, err)
}

func TestScheduler_JobsRunAgainstServices(t *testing.T) {
	artifacts := newMockArtifactStore(artifactFor("SOP-001", "1", "sha256:a"))
	gov := NewGovernanceService(artifacts, mockRecords{"SOP-001": {Version: "2", Hash: "sha256:b"}}, testLogger())
	audit := NewAuditService(&mockAuditReader{entries: sealedTrail(t, 2)}, testLogger())

	s, err := NewScheduler(gov, audit, "0 * * * *", "30 2 * * *", testLogger())
	require.NoError(t, err)

	s.reverifyGovernance()
	s.verifyAuditChain()

	assert.Equal(t, models.VerificationStale, artifacts.updates["art-SOP-001"])
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	gov := NewGovernanceService(newMockArtifactStore(), mockRecords{}, testLogger())
	audit := NewAuditService(&mockAuditReader{}, testLogger())

	s, err := NewScheduler(gov, audit, "0 * * * *", "30 2 * * *", testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
