package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/qmsworks/qms/client"
)

func newInitCmd() *cobra.Command {
	var (
		initURL     string
		initProfile string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Set up QMS CLI configuration",
		Long:  "Creates or updates a profile in ~/.qms/config.yaml after checking the server is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if initURL == "" {
				prompt(&initURL, "Server URL ["+defaultURL+"]")
			}
			if initURL == "" {
				initURL = defaultURL
			}
			return runInit(initURL, initProfile)
		},
	}

	cmd.Flags().StringVar(&initURL, "server", "", "Server URL")
	cmd.Flags().StringVar(&initProfile, "name", "default", "Profile name")
	return cmd
}

func runInit(url, profile string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	health, err := client.New(url).Health(ctx)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	cfgPath, err := writeConfig(url, profile)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Printf("Connected to %s (v%s)\n", url, health.Version)
	fmt.Printf("Config saved to %s\n", cfgPath)
	return nil
}

// writeConfig adds or replaces profile in the config file and makes it active.
func writeConfig(url, profile string) (string, error) {
	cfgPath, err := configPath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o700); err != nil {
		return "", err
	}

	cfg, err := loadConfig()
	if err != nil {
		cfg = &configFile{}
	}
	if cfg.Profiles == nil {
		cfg.Profiles = map[string]configProfile{}
	}
	cfg.Profiles[profile] = configProfile{URL: url}
	cfg.ActiveProfile = profile

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(cfgPath, data, 0o600); err != nil {
		return "", err
	}

	return cfgPath, nil
}
