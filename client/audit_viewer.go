package client

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// DefaultAuditLimit is the page size of the audit viewer.
const DefaultAuditLimit = 25

// AuditExportFile is the file name a CSV export is saved under.
const AuditExportFile = "audit-log.csv"

// AuditLister fetches one page of the audit trail. *AuditService satisfies it.
type AuditLister interface {
	List(ctx context.Context, page, limit int, filters AuditFilters) (*AuditPage, error)
}

// AuditExporter streams an export. *AuditService satisfies it.
type AuditExporter interface {
	Export(ctx context.Context, format string, filters AuditFilters, w io.Writer) error
}

// Pager describes the pagination controls.
type Pager struct {
	Page         int
	TotalPages   int
	PrevDisabled bool
	NextDisabled bool
}

// PagerFor computes the controls for page of totalPages.
func PagerFor(page, totalPages int) Pager {
	return Pager{
		Page:         page,
		TotalPages:   totalPages,
		PrevDisabled: page <= 1,
		NextDisabled: page >= totalPages,
	}
}

// AuditViewer pages through the audit trail. Each fetch carries a sequence
// number and only the response to the latest one is applied.
type AuditViewer struct {
	mu     sync.Mutex
	lister AuditLister

	page       int
	filters    AuditFilters
	seq        uint64
	cancel     context.CancelFunc
	loading    bool
	logs       []AuditEntry
	totalPages int
	total      int
	err        error
}

// NewAuditViewer creates a viewer positioned on page 1.
func NewAuditViewer(lister AuditLister) *AuditViewer {
	return &AuditViewer{lister: lister, page: 1}
}

// Load fetches the current page. The returned channel is closed when the
// fetch settles.
func (v *AuditViewer) Load(ctx context.Context) <-chan struct{} {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.fetchLocked(ctx)
}

// SetFilters replaces the filters and re-fetches. The current page is kept.
func (v *AuditViewer) SetFilters(ctx context.Context, filters AuditFilters) <-chan struct{} {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.filters = filters

	return v.fetchLocked(ctx)
}

// Next moves to the following page unless the pager disables it.
func (v *AuditViewer) Next(ctx context.Context) <-chan struct{} {
	v.mu.Lock()
	defer v.mu.Unlock()

	if PagerFor(v.page, v.totalPages).NextDisabled {
		return settled()
	}

	v.page++

	return v.fetchLocked(ctx)
}

// Prev moves to the preceding page unless the pager disables it.
func (v *AuditViewer) Prev(ctx context.Context) <-chan struct{} {
	v.mu.Lock()
	defer v.mu.Unlock()

	if PagerFor(v.page, v.totalPages).PrevDisabled {
		return settled()
	}

	v.page--

	return v.fetchLocked(ctx)
}

func (v *AuditViewer) fetchLocked(ctx context.Context) <-chan struct{} {
	if v.cancel != nil {
		v.cancel()
	}

	fetchCtx, cancel := context.WithCancel(ctx)
	v.seq++
	seq := v.seq
	v.cancel = cancel
	v.loading = true
	page, filters := v.page, v.filters

	done := make(chan struct{})

	go func() {
		defer close(done)
		defer cancel()

		result, err := v.lister.List(fetchCtx, page, DefaultAuditLimit, filters)

		v.mu.Lock()
		defer v.mu.Unlock()

		if seq != v.seq {
			return
		}

		v.loading = false
		v.err = err

		if err != nil {
			return
		}

		v.logs = result.Logs
		v.totalPages = result.Pagination.TotalPages
		v.total = result.Pagination.Total
	}()

	return done
}

// Pager returns the current pagination controls.
func (v *AuditViewer) Pager() Pager {
	v.mu.Lock()
	defer v.mu.Unlock()

	return PagerFor(v.page, v.totalPages)
}

// Logs returns the entries of the last applied page.
func (v *AuditViewer) Logs() []AuditEntry {
	v.mu.Lock()
	defer v.mu.Unlock()

	return append([]AuditEntry(nil), v.logs...)
}

// Total returns the number of matching entries.
func (v *AuditViewer) Total() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.total
}

// Filters returns the active filters.
func (v *AuditViewer) Filters() AuditFilters {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.filters
}

// Loading reports whether a fetch is outstanding.
func (v *AuditViewer) Loading() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.loading
}

// Err returns the message of the last failed fetch, or "".
func (v *AuditViewer) Err() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	return UserMessage(v.err)
}

// Close cancels any in-flight fetch and drops its result.
func (v *AuditViewer) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.seq++
	if v.cancel != nil {
		v.cancel()
	}
}

func settled() <-chan struct{} {
	done := make(chan struct{})
	close(done)

	return done
}

// DownloadCSV exports the filtered trail to dir/audit-log.csv. The file only
// appears when the server answered 2xx; any failure leaves dir untouched and
// is reported only through the returned bool.
func DownloadCSV(ctx context.Context, exp AuditExporter, dir string, filters AuditFilters) (string, bool) {
	path, err := downloadCSV(ctx, exp, dir, filters)
	if err != nil {
		return "", false
	}

	return path, true
}

func downloadCSV(ctx context.Context, exp AuditExporter, dir string, filters AuditFilters) (string, error) {
	tmp, err := os.CreateTemp(dir, ".audit-log-*.csv")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := exp.Export(ctx, "csv", filters, tmp); err != nil {
		return "", err
	}

	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing temp file: %w", err)
	}

	dest := filepath.Join(dir, AuditExportFile)
	if err := os.Rename(tmp.Name(), dest); err != nil {
		_ = os.Remove(tmp.Name())
		committed = true

		return "", fmt.Errorf("saving export: %w", err)
	}

	committed = true

	return dest, nil
}
