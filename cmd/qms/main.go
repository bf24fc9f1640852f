package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/qmsworks/qms/client"
)

// Build-time variables set via ldflags.
var (
	version   = "1.0.0"
	commit    = ""
	buildDate = ""
)

const defaultURL = "http://localhost:8080"

var (
	apiClient   *client.Client
	flagURL     string
	flagFmt     string
	flagProfile string
	flagSession string

	// stdin is read by interactive prompts.
	stdin = bufio.NewReader(os.Stdin)

	// stdinIsTerminal reports whether secrets can be read without echo.
	stdinIsTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
)

// errSilent fails a command without printing anything.
var errSilent = errors.New("silent failure")

func versionString() string {
	if commit != "" && buildDate != "" {
		return fmt.Sprintf("qms version %s (commit: %s, built: %s)", version, commit, buildDate)
	}
	return fmt.Sprintf("qms version %s-dev", version)
}

type configFile struct {
	// Flat format
	URL string `yaml:"url"`
	// Profile format
	Profiles      map[string]configProfile `yaml:"profiles"`
	ActiveProfile string                   `yaml:"active_profile"`
}

type configProfile struct {
	URL string `yaml:"url"`
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errSilent) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", client.UserMessage(err))
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "qms",
		Short:   "QMS CLI: controlled documents, e-signatures and the audit trail",
		Version: versionString(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupClient()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&flagURL, "url", defaultURL, "QMS server URL (env: QMS_URL)")
	rootCmd.PersistentFlags().StringVar(&flagFmt, "format", "table", "Output format: json|table|quiet")
	rootCmd.PersistentFlags().StringVar(&flagProfile, "profile", "", "Config profile (env: QMS_PROFILE)")
	rootCmd.PersistentFlags().StringVar(&flagSession, "session", "", "Session file (default ~/.qms/session.yaml)")

	initCmd := newInitCmd()
	initCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error { return nil } // no session needed

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(newDoctorCmd())
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newWhoamiCmd())
	rootCmd.AddCommand(newDocsCmd())
	rootCmd.AddCommand(newGateCmd())
	rootCmd.AddCommand(newSignCmd())
	rootCmd.AddCommand(newGovernanceCmd())
	rootCmd.AddCommand(newAuditCmd())

	return rootCmd
}

// setupClient resolves the server URL, loads the session file and builds apiClient.
func setupClient() error {
	resolveConfig()

	path := flagSession
	if path == "" {
		p, err := client.DefaultSessionPath()
		if err != nil {
			return err
		}
		path = p
	}

	session := client.NewSession(client.FileStore{Path: path})
	if err := session.Load(); err != nil {
		return err
	}

	apiClient = client.New(flagURL, client.WithSession(session))

	return nil
}

func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".qms", "config.yaml"), nil
}

func loadConfig() (*configFile, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// profileURL returns the URL of the selected profile, falling back to the flat url.
func (c *configFile) profileURL(profile string) string {
	if profile == "" {
		profile = c.ActiveProfile
	}
	if profile == "" {
		profile = "default"
	}
	if p, ok := c.Profiles[profile]; ok && p.URL != "" {
		return p.URL
	}
	return c.URL
}

func resolveConfig() {
	// Flag takes precedence, then env, then config file.
	if flagURL != defaultURL {
		return
	}
	if v := os.Getenv("QMS_URL"); v != "" {
		flagURL = v
		return
	}

	profile := flagProfile
	if profile == "" {
		profile = os.Getenv("QMS_PROFILE")
	}

	cfg, err := loadConfig()
	if err != nil {
		return
	}
	if u := cfg.profileURL(profile); u != "" {
		flagURL = u
	}
}

// prompt prints label and reads one line from stdin unless value is already set.
func prompt(value *string, label string) {
	if *value != "" {
		return
	}
	fmt.Print(label + ": ")
	line, _ := stdin.ReadString('\n')
	*value = strings.TrimRight(line, "\r\n")
}

// promptSecret is prompt without echo when stdin is a terminal. Piped input
// is read like any other prompt.
func promptSecret(value *string, label string) {
	if *value != "" {
		return
	}
	if !stdinIsTerminal() {
		prompt(value, label)
		return
	}
	fmt.Print(label + ": ")
	b, _ := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	*value = string(b)
}
