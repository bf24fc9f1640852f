package main

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// executeArgs runs the given root command with args and returns any error.
// It suppresses cobra's usage/error output so test output stays clean.
func executeArgs(t *testing.T, root *cobra.Command, args ...string) error {
	t.Helper()
	root.SetOut(&strings.Builder{})
	root.SetErr(&strings.Builder{})
	root.SetArgs(args)
	_, err := root.ExecuteC()
	return err
}

// newTestRoot builds the real command tree with client setup and every Run
// replaced, so only argument and flag validation is exercised.
func newTestRoot(t *testing.T) *cobra.Command {
	t.Helper()
	resetFlags(t)

	root := newRootCmd()
	root.PersistentPreRunE = nil

	var stub func(cmds []*cobra.Command)
	stub = func(cmds []*cobra.Command) {
		for _, c := range cmds {
			if c.RunE != nil {
				c.RunE = func(*cobra.Command, []string) error { return nil }
			}
			c.PersistentPreRunE = nil
			stub(c.Commands())
		}
	}
	stub(root.Commands())

	return root
}

func TestCommandArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"docs get needs a code", []string{"docs", "get"}, true},
		{"docs get with code", []string{"docs", "get", "SOP-001"}, false},
		{"docs get too many", []string{"docs", "get", "a", "b"}, true},
		{"docs create needs title", []string{"docs", "create", "SOP-001"}, true},
		{"docs create ok", []string{"docs", "create", "SOP-001", "--title", "Cleaning", "--content", "x"}, false},
		{"docs create content and file", []string{"docs", "create", "SOP-001", "--title", "T", "--content", "x", "--file", "f"}, true},
		{"docs revise needs reason", []string{"docs", "revise", "SOP-001", "--content", "x"}, true},
		{"docs transition needs event", []string{"docs", "transition", "SOP-001"}, true},
		{"docs transition ok", []string{"docs", "transition", "SOP-001", "submit"}, false},
		{"sign needs code", []string{"sign"}, true},
		{"sign ok", []string{"sign", "SOP-001", "--method", "CLICKWRAP", "--confirm", "i understand"}, false},
		{"gate needs code", []string{"gate"}, true},
		{"governance show needs two args", []string{"governance", "show", "document"}, true},
		{"governance approve ok", []string{"governance", "approve", "document", "SOP-001"}, false},
		{"governance reject ok", []string{"governance", "reject", "document", "SOP-001", "--reason", "typo"}, false},
		{"audit list no args", []string{"audit", "list", "extra"}, true},
		{"audit list ok", []string{"audit", "list", "--action", "sign", "--start", "2024-01-01"}, false},
		{"audit export rejects action", []string{"audit", "export", "--action", "sign"}, true},
		{"audit export ok", []string{"audit", "export", "--export-format", "xlsx"}, false},
		{"login takes no args", []string{"login", "ada"}, true},
		{"whoami ok", []string{"whoami"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newTestRoot(t)
			err := executeArgs(t, root, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Errorf("args %v: err = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
		})
	}
}
