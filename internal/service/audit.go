package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/qmsworks/qms/internal/auditchain"
	"github.com/qmsworks/qms/internal/domain"
	"github.com/qmsworks/qms/internal/metrics"
	"github.com/qmsworks/qms/internal/models"
)

// Compile-time check: *AuditService must satisfy domain.AuditService.
var _ domain.AuditService = (*AuditService)(nil)

// AuditExportHeader is the column order of CSV and XLSX exports.
var AuditExportHeader = []string{
	"id", "timestamp", "entityType", "entityId", "action",
	"userId", "userName", "reason", "signatureId", "changes", "hash",
}

// auditSheet is the worksheet name of XLSX exports.
const auditSheet = "Audit Trail"

var errChainBroken = errors.New("audit chain broken")

// AuditReader is the data-access interface AuditService depends on.
type AuditReader interface {
	Query(ctx context.Context, opts models.AuditQueryOpts) (*models.AuditPage, error)
	EntityTrail(ctx context.Context, entityType, entityID string) ([]models.AuditEntry, error)
	Walk(ctx context.Context, opts models.AuditQueryOpts, fn func(*models.AuditEntry) error) error
}

// AuditService serves queries, exports and integrity checks over the audit trail.
// It has no write path: entries are appended by the stores that mutate state.
type AuditService struct {
	store AuditReader
	log   *logrus.Logger
	now   func() time.Time
}

// NewAuditService creates an AuditService.
func NewAuditService(store AuditReader, log *logrus.Logger) *AuditService {
	return &AuditService{store: store, log: log, now: time.Now}
}

// ListAudit returns one page of entries, newest first. Action is an exact
// match; a value that names no action yields an empty page.
func (s *AuditService) ListAudit(ctx context.Context, opts models.AuditQueryOpts) (*models.AuditPage, error) {
	if opts.StartDate != nil && opts.EndDate != nil && opts.EndDate.Before(*opts.StartDate) {
		return nil, models.NewValidationError("endDate", "must not be before startDate")
	}

	return s.store.Query(ctx, opts)
}

// EntityTrail returns every entry for one entity in the order they were recorded.
func (s *AuditService) EntityTrail(ctx context.Context, entityType, entityID string) ([]models.AuditEntry, error) {
	return s.store.EntityTrail(ctx, entityType, entityID)
}

// auditRow flattens e into export columns.
func auditRow(e *models.AuditEntry) ([]string, error) {
	changes := ""
	if len(e.Changes) > 0 {
		b, err := json.Marshal(e.Changes)
		if err != nil {
			return nil, fmt.Errorf("marshaling changes of %s: %w", e.ID, err)
		}

		changes = string(b)
	}

	return []string{
		e.ID,
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.EntityType,
		e.EntityID,
		string(e.Action),
		e.UserID,
		e.UserName,
		e.Reason,
		e.SignatureID,
		changes,
		e.Hash,
	}, nil
}

// ExportCSV streams matching entries to w as CSV, oldest first.
func (s *AuditService) ExportCSV(ctx context.Context, opts models.AuditQueryOpts, w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(AuditExportHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	var rows int

	err := s.store.Walk(ctx, opts, func(e *models.AuditEntry) error {
		row, err := auditRow(e)
		if err != nil {
			return err
		}

		rows++

		return cw.Write(row)
	})
	if err != nil {
		return fmt.Errorf("exporting audit csv: %w", err)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing audit csv: %w", err)
	}

	s.log.WithField("rows", rows).Info("audit trail exported (csv)")

	return nil
}

// ExportXLSX writes matching entries to w as a single-sheet workbook, oldest first.
func (s *AuditService) ExportXLSX(ctx context.Context, opts models.AuditQueryOpts, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck // in-memory workbook.

	if err := f.SetSheetName("Sheet1", auditSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(auditSheet)
	if err != nil {
		return fmt.Errorf("opening sheet writer: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	if err := sw.SetColWidth(1, 1, 38); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}

	header := make([]any, len(AuditExportHeader))
	for i, h := range AuditExportHeader {
		header[i] = excelize.Cell{StyleID: bold, Value: h}
	}

	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("writing xlsx header: %w", err)
	}

	rowNum := 1

	err = s.store.Walk(ctx, opts, func(e *models.AuditEntry) error {
		row, err := auditRow(e)
		if err != nil {
			return err
		}

		rowNum++

		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}

		values := make([]any, len(row))
		for i, v := range row {
			values[i] = v
		}

		return sw.SetRow(cell, values)
	})
	if err != nil {
		return fmt.Errorf("exporting audit xlsx: %w", err)
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flushing audit xlsx: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing audit xlsx: %w", err)
	}

	s.log.WithField("rows", rowNum-1).Info("audit trail exported (xlsx)")

	return nil
}

// VerifyChain walks the whole trail and checks every hash link. It stops at
// the first break.
func (s *AuditService) VerifyChain(ctx context.Context) (*models.ChainReport, error) {
	v := auditchain.NewVerifier()

	err := s.store.Walk(ctx, models.AuditQueryOpts{}, func(e *models.AuditEntry) error {
		if !v.Check(e) {
			return errChainBroken
		}

		return nil
	})
	if err != nil && !errors.Is(err, errChainBroken) {
		return nil, fmt.Errorf("verifying audit chain: %w", err)
	}

	report := v.Report(s.now().UTC())

	if report.Valid {
		metrics.AuditChainValid.Set(1)
	} else {
		metrics.AuditChainValid.Set(0)
		s.log.WithFields(logrus.Fields{
			"broken_at": report.BrokenAt,
			"reason":    report.Reason,
		}).Error("audit chain verification failed")
	}

	return &report, nil
}
