package aggregate

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/y0f/sitecheck/internal/checker"
)

// ProgressFunc is called after each target has been checked, in input order.
type ProgressFunc func(index, total int, t checker.Target, results []checker.Result)

// Aggregator runs targets through a Checker one at a time and folds the
// results into a Report. It owns the accumulating result list for the
// duration of a run.
type Aggregator struct {
	checker  checker.Checker
	logger   *slog.Logger
	progress ProgressFunc
	now      func() time.Time
}

func NewAggregator(c checker.Checker, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Aggregator{checker: c, logger: logger, now: time.Now}
}

// OnProgress registers fn to narrate the run as it happens.
func (a *Aggregator) OnProgress(fn ProgressFunc) {
	a.progress = fn
}

// Run checks every target sequentially and returns the folded report.
func (a *Aggregator) Run(ctx context.Context, runID string, targets []checker.Target) *Report {
	var results []checker.Result

	for i, t := range targets {
		if len(t.Expectations) == 0 {
			a.logger.Warn("target has no expectations", "target", t.URL, "category", categoryName(t.Category))
		}

		rs := a.checker.CheckTarget(ctx, t)
		results = append(results, rs...)

		failed := 0
		for _, r := range rs {
			if !r.Passed {
				failed++
			}
		}
		a.logger.Debug("target checked",
			"target", t.URL,
			"category", categoryName(t.Category),
			"checks", len(rs),
			"failed", failed,
		)

		if a.progress != nil {
			a.progress(i, len(targets), t, rs)
		}
	}

	rep := Fold(targets, results, runID, a.now().UTC())
	a.logger.Info("run complete",
		"run_id", runID,
		"total", rep.TotalChecks,
		"passed", rep.Passed,
		"failed", rep.Failed,
		"score", rep.ScorePercent,
		"critical_failures", len(rep.CriticalFailures),
	)
	return rep
}
