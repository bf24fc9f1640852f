package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qmsworks/qms/client"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "System audit trail",
	}
	cmd.AddCommand(auditListCmd())
	cmd.AddCommand(auditBrowseCmd())
	cmd.AddCommand(auditExportCmd())
	cmd.AddCommand(auditVerifyCmd())
	return cmd
}

func addFilterFlags(cmd *cobra.Command, f *client.AuditFilters, withAction bool) {
	cmd.Flags().StringVar(&f.StartDate, "start", "", "Start date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&f.EndDate, "end", "", "End date, inclusive (YYYY-MM-DD or RFC3339)")
	if withAction {
		cmd.Flags().StringVar(&f.Action, "action", "", "Action (create, update, delete, approve, reject, sign)")
	}
}

func printAuditPage(logs []client.AuditEntry, pager client.Pager, total int) {
	formatTable(auditHeaders, auditRows(logs))
	fmt.Printf("page %d of %d (%d entries)\n", pager.Page, pager.TotalPages, total)
}

func auditListCmd() *cobra.Command {
	var filters client.AuditFilters
	var page, limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List audit entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if page < 1 {
				return fmt.Errorf("--page must be at least 1")
			}
			if limit < 1 || limit > 100 {
				return fmt.Errorf("--limit must be between 1 and 100")
			}
			resp, err := apiClient.Audit.List(context.Background(), page, limit, filters)
			if err != nil {
				return err
			}
			if flagFmt == "quiet" {
				for _, e := range resp.Logs {
					fmt.Println(e.ID)
				}
				return nil
			}
			output(resp, "", func() {
				printAuditPage(resp.Logs, client.PagerFor(page, resp.Pagination.TotalPages), resp.Pagination.Total)
			})
			return nil
		},
	}
	addFilterFlags(cmd, &filters, true)
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", client.DefaultAuditLimit, "Page size")
	return cmd
}

func auditBrowseCmd() *cobra.Command {
	var filters client.AuditFilters
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Page through the audit trail interactively (n, p, q)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			viewer := client.NewAuditViewer(apiClient.Audit)
			defer viewer.Close()

			<-viewer.SetFilters(ctx, filters)

			for {
				if msg := viewer.Err(); msg != "" {
					return errors.New(msg)
				}
				pager := viewer.Pager()
				printAuditPage(viewer.Logs(), pager, viewer.Total())

				var choices []string
				if !pager.PrevDisabled {
					choices = append(choices, "[p]rev")
				}
				if !pager.NextDisabled {
					choices = append(choices, "[n]ext")
				}
				choices = append(choices, "[q]uit")

				var answer string
				prompt(&answer, strings.Join(choices, " "))

				switch strings.ToLower(strings.TrimSpace(answer)) {
				case "n":
					<-viewer.Next(ctx)
				case "p":
					<-viewer.Prev(ctx)
				case "q", "":
					return nil
				}
			}
		},
	}
	addFilterFlags(cmd, &filters, true)
	return cmd
}

func auditExportCmd() *cobra.Command {
	var filters client.AuditFilters
	var format, dir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the audit trail as CSV or XLSX",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			switch format {
			case "csv":
				// Failures are silent: no file and no message.
				path, ok := client.DownloadCSV(ctx, apiClient.Audit, dir, filters)
				if !ok {
					return errSilent
				}
				fmt.Println(path)
				return nil
			case "xlsx":
				return downloadTo(filepath.Join(dir, "audit-log.xlsx"), func(f *os.File) error {
					return apiClient.Audit.Export(ctx, format, filters, f)
				})
			default:
				return fmt.Errorf("unsupported format %q (csv or xlsx)", format)
			}
		},
	}
	addFilterFlags(cmd, &filters, false)
	cmd.Flags().StringVar(&format, "export-format", "csv", "Export format: csv|xlsx")
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to save the export in")
	return cmd
}

func auditVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify the audit hash chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := apiClient.Audit.Verify(context.Background())
			if err != nil {
				return err
			}
			output(report, fmt.Sprintf("%t", report.Valid), func() {
				fields := [][2]string{
					{"Valid", fmt.Sprintf("%t", report.Valid)},
					{"Entries checked", fmt.Sprintf("%d", report.Checked)},
					{"Head hash", report.HeadHash},
					{"Checked at", formatTime(report.CheckedAt)},
				}
				if !report.Valid {
					fields = append(fields,
						[2]string{"Broken at", fmt.Sprintf("%d", report.BrokenAt)},
						[2]string{"Reason", report.Reason},
					)
				}
				formatFields(fields)
			})
			if !report.Valid {
				return errSilent
			}
			return nil
		},
	}
}
