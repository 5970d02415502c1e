package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/redhat/perf-tests-reporter/framework"
	"github.com/redhat/perf-tests-reporter/framework/config"
)

const timeLayout = "2006-01-02 15:04"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "report-runner",
		Short:         "Collect load test evidence and produce analysis reports",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	persistent := cmd.PersistentFlags()
	persistent.String("db", "", "SQLite database path (default $"+config.EnvDBPath+" or "+config.DefaultDBPath+")")
	persistent.String("storage", "", "artifact storage directory (default $"+config.EnvStoragePath+" or "+config.DefaultStoragePath+")")
	persistent.String("log-format", "text", "log format (text|json)")
	persistent.BoolP("verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newProjectCmd())
	cmd.AddCommand(newTestCmd())
	cmd.AddCommand(newArtifactCmd())
	cmd.AddCommand(newCollectCmd())
	cmd.AddCommand(newAnalyzeCmd())
	cmd.AddCommand(newReportCmd())

	return cmd
}

func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	flags := cmd.Flags()
	format, err := flags.GetString("log-format")
	if err != nil {
		return nil, fmt.Errorf("parse --log-format: %w", err)
	}
	verbose, err := flags.GetBool("verbose")
	if err != nil {
		return nil, fmt.Errorf("parse --verbose: %w", err)
	}

	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}

	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), opts)), nil
	default:
		return nil, fmt.Errorf("unsupported log format %q", format)
	}
}

// openFramework builds a framework from the environment and global flags.
// Callers must Close it.
func openFramework(cmd *cobra.Command) (*framework.Framework, error) {
	logger, err := newLogger(cmd)
	if err != nil {
		return nil, err
	}

	cfg := config.FromEnv()
	flags := cmd.Flags()
	if flags.Changed("db") {
		v, err := flags.GetString("db")
		if err != nil {
			return nil, fmt.Errorf("parse --db: %w", err)
		}
		cfg = cfg.WithDBPath(v)
	}
	if flags.Changed("storage") {
		v, err := flags.GetString("storage")
		if err != nil {
			return nil, fmt.Errorf("parse --storage: %w", err)
		}
		cfg = cfg.WithStoragePath(v)
	}

	return framework.New(framework.WithConfig(cfg), framework.WithLogger(logger))
}

// parseTime accepts RFC3339 or "YYYY-MM-DD HH:MM" in UTC. Empty is the zero time.
func parseTime(flag, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse --%s: expected RFC3339 or %q: %w", flag, timeLayout, err)
	}
	return t.UTC(), nil
}

func timeFlags(cmd *cobra.Command) (time.Time, time.Time, error) {
	fromStr, _ := cmd.Flags().GetString("from")
	toStr, _ := cmd.Flags().GetString("to")
	from, err := parseTime("from", fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseTime("to", toStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
