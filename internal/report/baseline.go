package report

import (
	"math"

	"github.com/y0f/sitecheck/internal/aggregate"
	"github.com/y0f/sitecheck/internal/checker"
)

// Comparison describes how a run moved relative to a previous report.
type Comparison struct {
	PreviousScore float64
	ScoreDelta    float64
	NewlyFailing  []string
	Recovered     []string
}

// Compare matches results of prev and cur by target and expectation. Checks
// present in only one of the two reports are ignored.
func Compare(prev, cur *aggregate.Report) *Comparison {
	before := make(map[string]bool, len(prev.Results))
	for _, r := range prev.Results {
		before[resultKey(r)] = r.Passed
	}

	cmp := &Comparison{
		PreviousScore: prev.ScorePercent,
		ScoreDelta:    math.Round((cur.ScorePercent-prev.ScorePercent)*10) / 10,
	}
	for _, r := range cur.Results {
		passedBefore, ok := before[resultKey(r)]
		if !ok {
			continue
		}
		switch {
		case passedBefore && !r.Passed:
			cmp.NewlyFailing = append(cmp.NewlyFailing, resultKey(r))
		case !passedBefore && r.Passed:
			cmp.Recovered = append(cmp.Recovered, resultKey(r))
		}
	}
	return cmp
}

func resultKey(r checker.Result) string {
	return r.Target + " " + r.Expectation.String()
}
