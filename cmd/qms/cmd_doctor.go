package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/qmsworks/qms/client"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration, connectivity and the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor()
		},
	}
}

type checkResult struct {
	Name   string
	Passed bool
	Detail string
	Hint   string
}

func doctorChecks(ctx context.Context) []checkResult {
	var results []checkResult

	if path, err := configPath(); err == nil {
		if _, err := loadConfig(); err != nil {
			results = append(results, checkResult{Name: "Config file", Detail: path, Hint: "Run: qms init"})
		} else {
			results = append(results, checkResult{Name: "Config file", Passed: true, Detail: path})
		}
	}

	results = append(results, checkResult{Name: "Server URL", Passed: true, Detail: flagURL})

	health, err := apiClient.Health(ctx)
	if err != nil {
		return append(results, checkResult{
			Name: "Server reachable", Detail: flagURL,
			Hint: fmt.Sprintf("Is qms-server running? Error: %v", err),
		})
	}
	results = append(results, checkResult{Name: "Server reachable", Passed: true, Detail: "v" + health.Version})

	if apiClient.Session().Token() == "" {
		return append(results, checkResult{Name: "Session", Hint: "Run: qms login"})
	}

	u, err := apiClient.Auth.Me(ctx)
	switch {
	case client.IsUnauthorized(err):
		results = append(results, checkResult{Name: "Session", Detail: "expired", Hint: "Run: qms login"})
	case err != nil:
		results = append(results, checkResult{Name: "Session", Hint: client.UserMessage(err)})
	default:
		results = append(results, checkResult{
			Name: "Session", Passed: true, Detail: fmt.Sprintf("%s (%s)", u.Username, u.Role),
		})
	}

	return results
}

func runDoctor() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results := doctorChecks(ctx)

	rows := make([][]string, 0, len(results))
	allPassed := true
	for _, r := range results {
		mark := "ok"
		if !r.Passed {
			mark = "FAIL"
			allPassed = false
		}
		rows = append(rows, []string{mark, r.Name, r.Detail, r.Hint})
	}
	formatTable([]string{"", "CHECK", "DETAIL", "HINT"}, rows)

	if !allPassed {
		return fmt.Errorf("doctor found issues")
	}
	return nil
}
