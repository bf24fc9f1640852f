package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qmsworks/qms/client"
)

func newGovernanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "governance",
		Short: "Governance approvals of records",
	}
	cmd.AddCommand(governanceShowCmd())
	cmd.AddCommand(governanceDecisionCmd(client.DecisionApprove, "Approve the current version of a record"))
	cmd.AddCommand(governanceDecisionCmd(client.DecisionReject, "Reject a record"))
	return cmd
}

func governanceShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <entity-type> <entity-id>",
		Short: "Show the approval and its live verification",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			panel := client.NewGovernancePanel(apiClient.Governance, apiClient.Session())
			defer panel.Close()

			<-panel.Sync(context.Background(), client.ApprovalURL(args[0], args[1]))

			view := panel.View()
			if view.State == client.PanelError {
				return errors.New(view.Err)
			}

			output(view, view.Status, func() { panelTable(view) })
			return nil
		},
	}
}

func panelTable(v client.PanelView) {
	if v.Empty {
		fmt.Println(v.Message)
		return
	}
	fields := [][2]string{
		{"Status", fmt.Sprintf("%s (%s)", v.Status, v.Severity)},
		{"Record version", v.RecordVersion},
		{"Hash", v.Hash},
		{"Signed by", v.SignedBy},
		{"Signed at", formatTime(v.SignedAt)},
		{"Verified at", formatTimePtr(v.VerifiedAt)},
	}
	if v.Reason != "" {
		fields = append(fields, [2]string{"Reason", v.Reason})
	}
	formatFields(fields)
}

func governanceDecisionCmd(decision, short string) *cobra.Command {
	var username, password, reason string
	cmd := &cobra.Command{
		Use:   decision + " <entity-type> <entity-id>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				if u := apiClient.Session().User(); u != nil {
					username = u.Username
				}
			}
			prompt(&username, "Username")
			promptSecret(&password, "Password")
			prompt(&reason, "Reason")

			form := client.NewApprovalForm(apiClient.Governance.Handler(args[0], args[1], decision))
			form.Username = username
			form.Password = password
			form.Reason = reason

			if err := form.Submit(context.Background()); err != nil {
				return err
			}
			fmt.Printf("%s recorded for %s %s\n", decision, args[0], args[1])
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Username (defaults to the signed-in user)")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when empty)")
	cmd.Flags().StringVar(&reason, "reason", "", "Reason (prompted when empty)")
	return cmd
}
