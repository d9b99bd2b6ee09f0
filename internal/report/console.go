package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/y0f/sitecheck/internal/aggregate"
	"github.com/y0f/sitecheck/internal/checker"
)

const (
	iconPass = "✅"
	iconFail = "❌"
	iconWarn = "⚠️"
)

// Console narrates a run as line-oriented text. Styling is applied only when
// the writer is a color-capable terminal, so the same report always yields
// the same characters.
type Console struct {
	w       io.Writer
	pass    lipgloss.Style
	fail    lipgloss.Style
	warn    lipgloss.Style
	heading lipgloss.Style
	muted   lipgloss.Style
}

func NewConsole(w io.Writer) *Console {
	r := lipgloss.NewRenderer(w)
	return &Console{
		w:       w,
		pass:    r.NewStyle().Foreground(lipgloss.Color("#8BC34A")),
		fail:    r.NewStyle().Foreground(lipgloss.Color("#e53935")).Bold(true),
		warn:    r.NewStyle().Foreground(lipgloss.Color("#FFC107")),
		heading: r.NewStyle().Bold(true),
		muted:   r.NewStyle().Foreground(lipgloss.Color("#6b7280")),
	}
}

// Progress prints one block per target. It matches aggregate.ProgressFunc.
func (c *Console) Progress(index, total int, t checker.Target, results []checker.Result) {
	label := t.URL
	if t.Name != "" {
		label = t.Name + " " + t.URL
	}
	category := t.Category
	if category == "" {
		category = aggregate.DefaultCategory
	}
	fmt.Fprintf(c.w, "%s %s %s\n",
		c.heading.Render(fmt.Sprintf("[%d/%d]", index+1, total)),
		label,
		c.muted.Render("("+category+")"),
	)

	if len(results) == 0 {
		fmt.Fprintf(c.w, "  %s  %s\n", iconWarn, c.warn.Render("no expectations configured"))
		return
	}
	for _, r := range results {
		fmt.Fprintf(c.w, "  %s\n", c.resultLine(r))
	}
}

func (c *Console) resultLine(r checker.Result) string {
	var sb strings.Builder
	if r.Passed {
		sb.WriteString(iconPass + " ")
	} else {
		sb.WriteString(iconFail + " ")
	}
	sb.WriteString(r.Expectation.String())
	if r.Expectation.Critical {
		sb.WriteString(" [critical]")
	}
	sb.WriteString(" -> ")
	sb.WriteString(r.Observed)

	line := sb.String()
	if r.Passed {
		return c.pass.Render(line)
	}
	if r.Message != "" && r.Message != r.Observed {
		line += " (" + r.Message + ")"
	}
	return c.fail.Render(line)
}

// SummaryOptions adds optional context to the summary block.
type SummaryOptions struct {
	MinScore   float64
	Comparison *Comparison
}

// Summary prints the totals, per-category scores, critical failures and the
// verdict. It is printed even when every check failed.
func (c *Console) Summary(rep *aggregate.Report, opts SummaryOptions) {
	fmt.Fprintln(c.w)
	fmt.Fprintln(c.w, c.heading.Render("Verification summary"))
	if rep.RunID != "" {
		fmt.Fprintf(c.w, "Run:       %s\n", rep.RunID)
	}
	fmt.Fprintf(c.w, "Generated: %s\n", rep.GeneratedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(c.w, "Checks:    %d total, %d passed, %d failed\n", rep.TotalChecks, rep.Passed, rep.Failed)
	fmt.Fprintf(c.w, "Score:     %s\n", formatScore(rep.ScorePercent))

	if len(rep.Categories) > 0 {
		fmt.Fprintln(c.w)
		fmt.Fprintln(c.w, c.heading.Render("Categories"))
		width := 0
		for _, name := range rep.Categories {
			width = max(width, len(name))
		}
		for _, name := range rep.Categories {
			cs := rep.PerCategory[name]
			icon := iconPass
			switch {
			case cs.Total == 0:
				icon = iconWarn
			case cs.Passed < cs.Total:
				icon = iconFail
			}
			fmt.Fprintf(c.w, "  %s %-*s %d/%d %s\n", icon, width, name, cs.Passed, cs.Total, formatScore(cs.ScorePercent))
		}
	}

	if len(rep.CriticalFailures) > 0 {
		fmt.Fprintln(c.w)
		fmt.Fprintln(c.w, c.fail.Render("Critical failures"))
		for _, r := range rep.CriticalFailures {
			fmt.Fprintf(c.w, "  %s %s %s -> %s\n", iconFail, r.Target, r.Expectation, r.Observed)
		}
	}

	if cmp := opts.Comparison; cmp != nil {
		fmt.Fprintln(c.w)
		fmt.Fprintln(c.w, c.heading.Render("Baseline"))
		fmt.Fprintf(c.w, "  Score %s (was %s)\n", formatDelta(cmp.ScoreDelta), formatScore(cmp.PreviousScore))
		for _, k := range cmp.NewlyFailing {
			fmt.Fprintf(c.w, "  %s newly failing: %s\n", iconFail, k)
		}
		for _, k := range cmp.Recovered {
			fmt.Fprintf(c.w, "  %s recovered: %s\n", iconPass, k)
		}
	}

	if opts.MinScore > 0 {
		met := "met"
		if rep.ScorePercent < opts.MinScore {
			met = "not met"
		}
		fmt.Fprintf(c.w, "\nThreshold: %s %s (informational)\n", formatScore(opts.MinScore), met)
	}

	fmt.Fprintln(c.w)
	if rep.HasCriticalFailures() {
		fmt.Fprintf(c.w, "%s %s\n", iconFail, c.fail.Render(fmt.Sprintf("FAIL: %d critical failure(s)", len(rep.CriticalFailures))))
	} else {
		fmt.Fprintf(c.w, "%s %s\n", iconPass, c.pass.Render("PASS: no critical failures"))
	}
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

func formatDelta(v float64) string {
	return fmt.Sprintf("%+.1f", v)
}
