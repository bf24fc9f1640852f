package client

import (
	"context"
	"sync"
	"time"
)

// PanelState is the loading state of the governance panel.
type PanelState string

// Panel states.
const (
	PanelIdle    PanelState = "idle"
	PanelLoading PanelState = "loading"
	PanelError   PanelState = "error"
	PanelReady   PanelState = "ready"
)

// Severity is the visual treatment of a verification status.
type Severity string

// Severities.
const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// MsgNoApproval is shown when a record has never been approved.
const MsgNoApproval = "No governance approval has been recorded for this record."

// ApprovalFetcher loads approval data from a fully built URL.
// *GovernanceService satisfies it.
type ApprovalFetcher interface {
	Approval(ctx context.Context, approvalURL string) (*GovernanceApprovalData, error)
}

// PanelView is what the governance panel renders.
type PanelView struct {
	State PanelState
	Err   string
	// Empty is set when the record has no artifact.
	Empty   bool
	Message string

	Status        string
	Severity      Severity
	Reason        string
	RecordVersion string
	Hash          string
	SignedBy      string
	SignedAt      time.Time
	VerifiedAt    *time.Time
}

// EffectiveStatus picks the live verification status, then the artifact's
// stored status, and fails closed to INVALID.
func EffectiveStatus(data *GovernanceApprovalData) string {
	if data == nil {
		return VerificationInvalid
	}

	if data.Verification != nil && data.Verification.Status != "" {
		return data.Verification.Status
	}

	if data.Artifact != nil && data.Artifact.VerificationStatus != nil && *data.Artifact.VerificationStatus != "" {
		return *data.Artifact.VerificationStatus
	}

	return VerificationInvalid
}

// SeverityFor maps a verification status to its severity. Unknown statuses are danger.
func SeverityFor(status string) Severity {
	switch status {
	case VerificationVerified:
		return SeveritySuccess
	case VerificationStale:
		return SeverityWarning
	default:
		return SeverityDanger
	}
}

// RenderApproval builds the ready view for data.
func RenderApproval(data *GovernanceApprovalData) PanelView {
	if data == nil || !data.HasArtifact || data.Artifact == nil {
		return PanelView{State: PanelReady, Empty: true, Message: MsgNoApproval}
	}

	status := EffectiveStatus(data)
	a := data.Artifact

	view := PanelView{
		State:         PanelReady,
		Status:        status,
		Severity:      SeverityFor(status),
		RecordVersion: a.RecordVersion,
		Hash:          a.QMSHash,
		SignedBy:      a.SignedBy,
		SignedAt:      a.SignedAt,
		VerifiedAt:    a.VerifiedAt,
	}

	if status != VerificationVerified && data.Verification != nil {
		view.Reason = data.Verification.Reason
	}

	return view
}

// GovernancePanel shows the approval state of one record. It re-fetches
// whenever the session token or the approval URL changes and drops results
// of superseded requests.
type GovernancePanel struct {
	mu      sync.Mutex
	fetcher ApprovalFetcher
	session *Session

	key    string
	gen    uint64
	cancel context.CancelFunc
	closed bool
	view   PanelView
}

// NewGovernancePanel creates a panel reading the token from session.
func NewGovernancePanel(fetcher ApprovalFetcher, session *Session) *GovernancePanel {
	return &GovernancePanel{
		fetcher: fetcher,
		session: session,
		view:    PanelView{State: PanelIdle},
	}
}

// Sync starts a fetch if the (token, url) pair differs from the last one.
// The returned channel is closed once the fetch has settled; it is already
// closed when nothing needed fetching.
func (p *GovernancePanel) Sync(ctx context.Context, approvalURL string) <-chan struct{} {
	done := make(chan struct{})

	p.mu.Lock()
	key := p.session.Token() + "\x00" + approvalURL
	if p.closed || key == p.key {
		p.mu.Unlock()
		close(done)

		return done
	}

	if p.cancel != nil {
		p.cancel()
	}

	fetchCtx, cancel := context.WithCancel(ctx)
	p.key = key
	p.gen++
	gen := p.gen
	p.cancel = cancel
	p.view = PanelView{State: PanelLoading}
	p.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()

		data, err := p.fetcher.Approval(fetchCtx, approvalURL)

		p.mu.Lock()
		defer p.mu.Unlock()

		if p.closed || gen != p.gen {
			return
		}

		if err != nil {
			p.view = PanelView{State: PanelError, Err: UserMessage(err)}
			// Allow a retry with the same inputs.
			p.key = ""

			return
		}

		p.view = RenderApproval(data)
	}()

	return done
}

// View returns the current view.
func (p *GovernancePanel) View() PanelView {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.view
}

// Close cancels any in-flight fetch. Results arriving afterwards are dropped.
func (p *GovernancePanel) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.cancel != nil {
		p.cancel()
	}
}
