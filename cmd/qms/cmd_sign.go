package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qmsworks/qms/client"
)

// evaluateGate fetches the document and its signatures and decides whether
// the signed-in user may sign. A missing document is not signable.
func evaluateGate(ctx context.Context, code string) (client.GateState, error) {
	doc, err := apiClient.Documents.Get(ctx, code)
	if err != nil {
		if client.IsNotFound(err) {
			return client.EvaluateGate(nil, nil, ""), nil
		}
		return "", err
	}

	sigs, err := apiClient.Signatures.List(ctx, code)
	if err != nil {
		return "", err
	}

	email := ""
	if u := apiClient.Session().User(); u != nil {
		email = u.Email
	}

	return client.EvaluateGate(doc, sigs, email), nil
}

func newGateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gate <code>",
		Short: "Show whether you can sign a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := evaluateGate(context.Background(), args[0])
			if err != nil {
				return err
			}
			view := client.RenderGate(state)
			output(view, string(view.State), func() { fmt.Println(view.Message) })
			return nil
		},
	}
}

// drawnImage reads a signature image file as a data URL. Files that already
// hold a data URL are used as is.
func drawnImage(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	text := strings.TrimSpace(string(data))
	if strings.HasPrefix(text, "data:") {
		return text, nil
	}
	return "data:" + http.DetectContentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func newSignCmd() *cobra.Command {
	var method, role, name, password, image, confirm string
	cmd := &cobra.Command{
		Use:   "sign <code>",
		Short: "Sign the latest revision of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			code := args[0]

			state, err := evaluateGate(ctx, code)
			if err != nil {
				return err
			}
			if view := client.RenderGate(state); !view.ShowSignButton {
				return errors.New(view.Message)
			}

			var (
				signed     []client.Signature
				refreshErr error
			)
			form := client.NewSignatureForm(code, apiClient.Signatures, func() {
				signed, refreshErr = apiClient.Signatures.List(ctx, code)
			})
			form.Method = strings.ToUpper(method)
			form.Role = strings.ToUpper(role)

			switch form.Method {
			case client.MethodTyped:
				prompt(&name, "Full name")
				promptSecret(&password, "Password")
				form.FullName = name
				form.Password = password
			case client.MethodDrawn:
				if image == "" {
					return errors.New("--image is required for DRAWN signatures")
				}
				data, err := drawnImage(image)
				if err != nil {
					return err
				}
				form.DrawnImage = &data
				form.Password = password
			case client.MethodClickwrap:
				prompt(&confirm, "Type "+client.ClickwrapPhrase+" to confirm")
				form.SetConfirmation(confirm)
				form.Password = password
			}

			if err := form.Submit(ctx); err != nil {
				return err
			}

			if refreshErr != nil {
				fmt.Printf("signed %s\n", code)
				fmt.Fprintf(os.Stderr, "Warning: could not reload signatures: %s\n", client.UserMessage(refreshErr))
				return nil
			}

			if flagFmt == "json" {
				formatJSON(signed)
				return nil
			}
			fmt.Printf("signed %s (%d signatures on this revision)\n", code, len(signed))
			return nil
		},
	}
	cmd.Flags().StringVar(&method, "method", client.MethodTyped, "Signature method: TYPED|DRAWN|CLICKWRAP")
	cmd.Flags().StringVar(&role, "role", client.RoleApprover, "Signature role: APPROVER|ACKNOWLEDGER")
	cmd.Flags().StringVar(&name, "name", "", "Full name for TYPED signatures (prompted when empty)")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted for TYPED)")
	cmd.Flags().StringVar(&image, "image", "", "Signature image file for DRAWN signatures")
	cmd.Flags().StringVar(&confirm, "confirm", "", "Confirmation phrase for CLICKWRAP signatures")
	return cmd
}
