package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/qmsworks/qms/client"
)

func newDocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Manage controlled documents",
	}
	cmd.AddCommand(docsListCmd())
	cmd.AddCommand(docsGetCmd())
	cmd.AddCommand(docsCreateCmd())
	cmd.AddCommand(docsReviseCmd())
	cmd.AddCommand(docsTransitionCmd())
	cmd.AddCommand(docsTrailCmd())
	cmd.AddCommand(docsManifestCmd())
	return cmd
}

func docsListCmd() *cobra.Command {
	var status string
	var page, limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if page < 0 || limit < 0 {
				return fmt.Errorf("--page and --limit must be non-negative")
			}
			resp, err := apiClient.Documents.List(context.Background(), status, page, limit)
			if err != nil {
				return err
			}
			if flagFmt == "quiet" {
				for _, d := range resp.Documents {
					fmt.Println(d.Code)
				}
				return nil
			}
			output(resp, "", func() {
				rows := make([][]string, 0, len(resp.Documents))
				for _, d := range resp.Documents {
					rows = append(rows, []string{d.Code, d.Title, d.Status, revisionLabel(d.LatestRevision)})
				}
				formatTable([]string{"CODE", "TITLE", "STATUS", "REVISION"}, rows)
				fmt.Printf("page %d of %d (%d documents)\n",
					resp.Pagination.Page, resp.Pagination.TotalPages, resp.Pagination.Total)
			})
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (DRAFT, IN_REVIEW, EFFECTIVE, RETIRED)")
	cmd.Flags().IntVar(&page, "page", 0, "Page number")
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size")
	return cmd
}

func revisionLabel(r *client.Revision) string {
	if r == nil {
		return "-"
	}
	return strconv.Itoa(r.Number)
}

func documentTable(d *client.Document) {
	fields := [][2]string{
		{"Code", d.Code},
		{"Title", d.Title},
		{"Status", d.Status},
		{"Revision", revisionLabel(d.LatestRevision)},
	}
	if d.LatestRevision != nil {
		fields = append(fields,
			[2]string{"Content hash", d.LatestRevision.ContentHash},
			[2]string{"Revised", formatTime(d.LatestRevision.CreatedAt)},
		)
	}
	formatFields(fields)
}

func docsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <code>",
		Short: "Show a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := apiClient.Documents.Get(context.Background(), args[0])
			if err != nil {
				return err
			}
			output(d, d.Code, func() { documentTable(d) })
			return nil
		},
	}
}

// readContent returns the literal content or the contents of file.
func readContent(content, file string) (string, error) {
	if file == "" {
		return content, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", file, err)
	}
	return string(data), nil
}

func docsCreateCmd() *cobra.Command {
	var title, content, file string
	cmd := &cobra.Command{
		Use:   "create <code>",
		Short: "Create a draft document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readContent(content, file)
			if err != nil {
				return err
			}
			d, err := apiClient.Documents.Create(context.Background(), client.CreateDocumentRequest{
				Code: args[0], Title: title, Content: body,
			})
			if err != nil {
				return err
			}
			output(d, d.Code, func() { documentTable(d) })
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Document title")
	cmd.Flags().StringVar(&content, "content", "", "Document content")
	cmd.Flags().StringVar(&file, "file", "", "Read content from file")
	cmd.MarkFlagsMutuallyExclusive("content", "file")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func docsReviseCmd() *cobra.Command {
	var reason, content, file string
	cmd := &cobra.Command{
		Use:   "revise <code>",
		Short: "Add a revision to a draft document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readContent(content, file)
			if err != nil {
				return err
			}
			d, err := apiClient.Documents.AddRevision(context.Background(), args[0], client.AddRevisionRequest{
				Content: body, Reason: reason,
			})
			if err != nil {
				return err
			}
			output(d, revisionLabel(d.LatestRevision), func() { documentTable(d) })
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Reason for the revision")
	cmd.Flags().StringVar(&content, "content", "", "Revision content")
	cmd.Flags().StringVar(&file, "file", "", "Read content from file")
	cmd.MarkFlagsMutuallyExclusive("content", "file")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func docsTransitionCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:       "transition <code> <event>",
		Short:     "Apply a lifecycle event (submit, approve, reject, retire, revise)",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"submit", "approve", "reject", "retire", "revise"},
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := apiClient.Documents.Transition(context.Background(), args[0], client.TransitionRequest{
				Event: args[1], Reason: reason,
			})
			if err != nil {
				return err
			}
			output(d, d.Status, func() { documentTable(d) })
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded in the audit trail")
	return cmd
}

func auditRows(logs []client.AuditEntry) [][]string {
	rows := make([][]string, 0, len(logs))
	for _, e := range logs {
		rows = append(rows, []string{
			formatTime(e.Timestamp), e.Action, e.EntityType, e.EntityID, e.UserName, e.Reason,
		})
	}
	return rows
}

var auditHeaders = []string{"TIMESTAMP", "ACTION", "ENTITY", "ID", "USER", "REASON"}

func docsTrailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trail <code>",
		Short: "Show the audit trail of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logs, err := apiClient.Documents.Trail(context.Background(), args[0])
			if err != nil {
				return err
			}
			if flagFmt == "quiet" {
				for _, e := range logs {
					fmt.Println(e.ID)
				}
				return nil
			}
			output(logs, "", func() { formatTable(auditHeaders, auditRows(logs)) })
			return nil
		},
	}
}

func docsManifestCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "manifest <code>",
		Short: "Download the signature manifest PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = args[0] + "-signatures.pdf"
			}
			return downloadTo(out, func(f *os.File) error {
				return apiClient.Documents.Manifest(context.Background(), args[0], f)
			})
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default <code>-signatures.pdf)")
	return cmd
}

// downloadTo writes a download to path, removing the file if fetch fails.
func downloadTo(path string, fetch func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fetch(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}
