package aggregate

import (
	"math"
	"time"

	"github.com/y0f/sitecheck/internal/checker"
)

// DefaultCategory is used for results that carry no category label.
const DefaultCategory = "general"

// CategoryScore is the pass count of one category.
type CategoryScore struct {
	Passed       int     `json:"passed"`
	Total        int     `json:"total"`
	ScorePercent float64 `json:"score_percent"`
}

// Report is the folded outcome of one run. It is built once and never
// modified afterwards.
type Report struct {
	RunID            string                   `json:"run_id,omitempty"`
	GeneratedAt      time.Time                `json:"generated_at"`
	TotalChecks      int                      `json:"total_checks"`
	Passed           int                      `json:"passed"`
	Failed           int                      `json:"failed"`
	ScorePercent     float64                  `json:"score_percent"`
	Categories       []string                 `json:"categories"`
	PerCategory      map[string]CategoryScore `json:"per_category"`
	CriticalFailures []checker.Result         `json:"critical_failures"`
	Results          []checker.Result         `json:"results"`
}

// HasCriticalFailures reports whether any critical expectation failed.
func (r *Report) HasCriticalFailures() bool {
	return len(r.CriticalFailures) > 0
}

// ExitCode is 0 when no critical expectation failed and 1 otherwise.
// Non-critical failures never affect it.
func (r *Report) ExitCode() int {
	if r.HasCriticalFailures() {
		return 1
	}
	return 0
}

// Score returns 100*passed/total rounded to one decimal, or 0 when total is 0.
func Score(passed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(passed)*1000/float64(total)) / 10
}

// Fold builds a Report from results. Categories are listed in the order
// they first appear in targets, then in results; a target without
// expectations still contributes its category as 0/0.
func Fold(targets []checker.Target, results []checker.Result, runID string, generatedAt time.Time) *Report {
	rep := &Report{
		RunID:            runID,
		GeneratedAt:      generatedAt,
		Categories:       []string{},
		PerCategory:      make(map[string]CategoryScore),
		CriticalFailures: []checker.Result{},
		Results:          make([]checker.Result, 0, len(results)),
	}

	addCategory := func(name string) {
		if _, ok := rep.PerCategory[name]; !ok {
			rep.PerCategory[name] = CategoryScore{}
			rep.Categories = append(rep.Categories, name)
		}
	}

	for _, t := range targets {
		addCategory(categoryName(t.Category))
	}

	for _, r := range results {
		name := categoryName(r.Category)
		addCategory(name)

		cs := rep.PerCategory[name]
		cs.Total++
		rep.TotalChecks++
		if r.Passed {
			cs.Passed++
			rep.Passed++
		} else {
			rep.Failed++
			if r.Expectation.Critical {
				rep.CriticalFailures = append(rep.CriticalFailures, r)
			}
		}
		rep.PerCategory[name] = cs
		rep.Results = append(rep.Results, r)
	}

	for name, cs := range rep.PerCategory {
		cs.ScorePercent = Score(cs.Passed, cs.Total)
		rep.PerCategory[name] = cs
	}
	rep.ScorePercent = Score(rep.Passed, rep.TotalChecks)

	return rep
}

func categoryName(c string) string {
	if c == "" {
		return DefaultCategory
	}
	return c
}
