package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

// scriptedFetcher answers a call from byURL when the URL has an entry and
// from a queue of responses otherwise. A response with a non-nil gate blocks
// until the gate is closed.
type scriptedFetcher struct {
	mu    sync.Mutex
	urls  []string
	queue []fetchResult
	byURL map[string]fetchResult
}

type fetchResult struct {
	data *GovernanceApprovalData
	err  error
	gate chan struct{}
}

func (f *scriptedFetcher) Approval(ctx context.Context, approvalURL string) (*GovernanceApprovalData, error) {
	f.mu.Lock()
	f.urls = append(f.urls, approvalURL)
	r, ok := f.byURL[approvalURL]
	if !ok {
		r = f.queue[0]
		f.queue = f.queue[1:]
	}
	f.mu.Unlock()

	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return r.data, r.err
}

func (f *scriptedFetcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.urls)
}

func wait(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fetch to settle")
	}
}

func signedInSession(t *testing.T, token string) *Session {
	t.Helper()
	s := NewSession(&MemoryStore{})
	require.NoError(t, s.Set(token, User{ID: "u1"}))
	return s
}

func TestEffectiveStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data *GovernanceApprovalData
		want string
	}{
		{"nil data", nil, VerificationInvalid},
		{"verification wins", &GovernanceApprovalData{
			Artifact:     &GovernanceArtifact{VerificationStatus: strPtr(VerificationVerified)},
			Verification: &Verification{Status: VerificationStale},
		}, VerificationStale},
		{"artifact fallback", &GovernanceApprovalData{
			Artifact: &GovernanceArtifact{VerificationStatus: strPtr(VerificationVerified)},
		}, VerificationVerified},
		{"both absent", &GovernanceApprovalData{Artifact: &GovernanceArtifact{}}, VerificationInvalid},
		{"empty verification", &GovernanceApprovalData{
			Artifact:     &GovernanceArtifact{VerificationStatus: strPtr(VerificationStale)},
			Verification: &Verification{},
		}, VerificationStale},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, EffectiveStatus(tt.data))
		})
	}
}

func TestSeverityFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, SeveritySuccess, SeverityFor(VerificationVerified))
	assert.Equal(t, SeverityWarning, SeverityFor(VerificationStale))
	assert.Equal(t, SeverityDanger, SeverityFor(VerificationInvalid))
	assert.Equal(t, SeverityDanger, SeverityFor("SOMETHING_NEW"))
	assert.Equal(t, SeverityDanger, SeverityFor(""))
}

func TestRenderApproval(t *testing.T) {
	t.Parallel()

	empty := RenderApproval(&GovernanceApprovalData{HasArtifact: false})
	assert.True(t, empty.Empty)
	assert.Equal(t, MsgNoApproval, empty.Message)

	verified := RenderApproval(&GovernanceApprovalData{
		HasArtifact:  true,
		Artifact:     &GovernanceArtifact{RecordVersion: "3", QMSHash: "abc"},
		Verification: &Verification{Status: VerificationVerified, Reason: "ignored"},
	})
	assert.Equal(t, SeveritySuccess, verified.Severity)
	assert.Empty(t, verified.Reason, "reason is hidden when verified")
	assert.Equal(t, "3", verified.RecordVersion)

	stale := RenderApproval(&GovernanceApprovalData{
		HasArtifact:  true,
		Artifact:     &GovernanceArtifact{RecordVersion: "3"},
		Verification: &Verification{Status: VerificationStale, Reason: "record version changed"},
	})
	assert.Equal(t, SeverityWarning, stale.Severity)
	assert.Equal(t, "record version changed", stale.Reason)
}

func TestGovernancePanel_FetchesOncePerKey(t *testing.T) {
	t.Parallel()

	ok := &GovernanceApprovalData{HasArtifact: true, Artifact: &GovernanceArtifact{}, Verification: &Verification{Status: VerificationVerified}}
	fetcher := &scriptedFetcher{queue: []fetchResult{{data: ok}, {data: ok}, {data: ok}}}
	session := signedInSession(t, "t1")
	p := NewGovernancePanel(fetcher, session)
	t.Cleanup(p.Close)

	ctx := context.Background()
	url := ApprovalURL("document", "SOP-001")

	wait(t, p.Sync(ctx, url))
	wait(t, p.Sync(ctx, url))
	assert.Equal(t, 1, fetcher.calls(), "unchanged inputs must not re-fetch")
	assert.Equal(t, PanelReady, p.View().State)

	require.NoError(t, session.Set("t2", User{ID: "u1"}))
	wait(t, p.Sync(ctx, url))
	assert.Equal(t, 2, fetcher.calls(), "token change re-fetches")

	wait(t, p.Sync(ctx, ApprovalURL("document", "SOP-002")))
	assert.Equal(t, 3, fetcher.calls(), "url change re-fetches")
}

func TestGovernancePanel_DropsSupersededResponse(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	stale := &GovernanceApprovalData{HasArtifact: true, Artifact: &GovernanceArtifact{RecordVersion: "old"}}
	fresh := &GovernanceApprovalData{HasArtifact: true, Artifact: &GovernanceArtifact{RecordVersion: "new"}}
	fetcher := &scriptedFetcher{byURL: map[string]fetchResult{
		"/api/governance/document/A/approval": {data: stale, gate: gate},
		"/api/governance/document/B/approval": {data: fresh},
	}}

	p := NewGovernancePanel(fetcher, signedInSession(t, "t1"))
	t.Cleanup(p.Close)

	ctx := context.Background()
	first := p.Sync(ctx, "/api/governance/document/A/approval")
	assert.Equal(t, PanelLoading, p.View().State)

	second := p.Sync(ctx, "/api/governance/document/B/approval")
	wait(t, second)
	close(gate)
	wait(t, first)

	assert.Equal(t, "new", p.View().RecordVersion)
}

func TestGovernancePanel_ErrorAndRetry(t *testing.T) {
	t.Parallel()

	fetcher := &scriptedFetcher{queue: []fetchResult{
		{err: &APIError{StatusCode: 403, Kind: KindForbidden, Message: "nope"}},
		{data: &GovernanceApprovalData{HasArtifact: false}},
	}}
	p := NewGovernancePanel(fetcher, signedInSession(t, "t1"))
	t.Cleanup(p.Close)

	ctx := context.Background()
	wait(t, p.Sync(ctx, "/x"))

	view := p.View()
	assert.Equal(t, PanelError, view.State)
	assert.Equal(t, PermissionMessage, view.Err)

	wait(t, p.Sync(ctx, "/x"))
	assert.True(t, p.View().Empty)
}

func TestGovernancePanel_CloseCancelsInFlight(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	fetcher := &scriptedFetcher{queue: []fetchResult{{data: &GovernanceApprovalData{}, gate: gate}}}
	p := NewGovernancePanel(fetcher, signedInSession(t, "t1"))

	done := p.Sync(context.Background(), "/x")
	p.Close()
	wait(t, done)

	assert.Equal(t, PanelLoading, p.View().State, "results after close are dropped")

	wait(t, p.Sync(context.Background(), "/y"))
	assert.Equal(t, 1, fetcher.calls(), "closed panel does not fetch")
}
