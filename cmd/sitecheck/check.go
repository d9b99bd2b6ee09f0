package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/y0f/sitecheck/internal/aggregate"
	"github.com/y0f/sitecheck/internal/checker"
	"github.com/y0f/sitecheck/internal/config"
	"github.com/y0f/sitecheck/internal/notifier"
	"github.com/y0f/sitecheck/internal/report"
)

type checkOptions struct {
	configPath   string
	outputPath   string
	htmlPath     string
	baselinePath string
	logLevel     string
}

func newCheckCmd() *cobra.Command {
	var opts checkOptions
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run every configured check once and report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "sitecheck.yaml", "path to configuration file")
	f.StringVarP(&opts.outputPath, "output", "o", "", "write the JSON report to this path (overrides output_path)")
	f.StringVar(&opts.htmlPath, "html", "", "write an HTML report to this path (overrides html_output_path)")
	f.StringVar(&opts.baselinePath, "baseline", "", "compare against a previous JSON report (overrides baseline_path)")
	f.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	return cmd
}

func runCheck(ctx context.Context, opts checkOptions, stdout, stderr io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return &exitError{code: exitBadUsage, err: err}
	}
	applyOverrides(cfg, opts)
	if err := cfg.Validate(); err != nil {
		return &exitError{code: exitBadUsage, err: err}
	}

	logger := setupLogger(cfg.Logging, stderr)

	targets, err := cfg.Targets()
	if err != nil {
		return &exitError{code: exitBadUsage, err: err}
	}

	runID := uuid.NewString()
	logger.Info("starting run", "run_id", runID, "targets", len(targets), "timeout", cfg.Timeout)

	chk := checker.NewHTTPChecker(checker.Options{
		Timeout:           cfg.Timeout,
		AllowPrivate:      cfg.AllowPrivateTargets,
		UserAgent:         cfg.UserAgent,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Logger:            logger,
	})

	console := report.NewConsole(stdout)
	agg := aggregate.NewAggregator(chk, logger)
	agg.OnProgress(console.Progress)

	fmt.Fprintf(stdout, "sitecheck %s: %d target(s)\n", version, len(targets))
	rep := agg.Run(ctx, runID, targets)

	summary := report.SummaryOptions{MinScore: cfg.MinScore}
	if cfg.BaselinePath != "" {
		prev, err := report.LoadJSON(cfg.BaselinePath)
		if err != nil {
			logger.Warn("baseline unavailable", "path", cfg.BaselinePath, "error", err)
		} else {
			summary.Comparison = report.Compare(prev, rep)
		}
	}
	console.Summary(rep, summary)

	writeArtifacts(cfg, rep, logger)

	notifier.NewDispatcher(cfg.AllowPrivateTargets, logger).Dispatch(ctx, cfg.Notify, rep)

	if code := rep.ExitCode(); code != exitOK {
		return &exitError{code: code}
	}
	return nil
}

func applyOverrides(cfg *config.Config, opts checkOptions) {
	if opts.outputPath != "" {
		cfg.OutputPath = opts.outputPath
	}
	if opts.htmlPath != "" {
		cfg.HTMLOutputPath = opts.htmlPath
	}
	if opts.baselinePath != "" {
		cfg.BaselinePath = opts.baselinePath
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
}

// writeArtifacts never changes the exit code; a failed write is logged.
func writeArtifacts(cfg *config.Config, rep *aggregate.Report, logger *slog.Logger) {
	if cfg.OutputPath != "" {
		if err := report.WriteJSON(cfg.OutputPath, rep); err != nil {
			logger.Error("write JSON report", "path", cfg.OutputPath, "error", err)
		} else {
			logger.Info("JSON report written", "path", cfg.OutputPath)
		}
	}
	if cfg.HTMLOutputPath != "" {
		if err := report.WriteHTML(cfg.HTMLOutputPath, rep); err != nil {
			logger.Error("write HTML report", "path", cfg.HTMLOutputPath, "error", err)
		} else {
			logger.Info("HTML report written", "path", cfg.HTMLOutputPath)
		}
	}
}
