package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qmsworks/qms/client"
)

func newLoginCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt(&username, "Username")
			promptSecret(&password, "Password")
			resp, err := apiClient.Auth.Login(context.Background(), username, password)
			if err != nil {
				return err
			}
			output(resp.User, resp.User.Username, func() {
				fmt.Printf("Signed in as %s <%s> (%s)\n", resp.User.Name, resp.User.Email, resp.User.Role)
			})
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Username (prompted when empty)")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when empty)")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiClient.Auth.Logout(); err != nil {
				return err
			}
			fmt.Println("signed out")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := apiClient.Auth.Me(context.Background())
			if err != nil {
				return err
			}
			output(u, u.Username, func() { userTable(u) })
			return nil
		},
	}
}

func userTable(u *client.User) {
	formatFields([][2]string{
		{"ID", u.ID},
		{"Username", u.Username},
		{"Name", u.Name},
		{"Email", u.Email},
		{"Role", u.Role},
	})
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := apiClient.Health(context.Background())
			if err != nil {
				return err
			}
			output(resp, resp.Status, func() {
				formatFields([][2]string{
					{"Status", resp.Status},
					{"Version", resp.Version},
					{"Database", resp.Database},
					{"Uptime", fmt.Sprintf("%.0fs", resp.UptimeSeconds)},
				})
			})
			return nil
		},
	}
}
