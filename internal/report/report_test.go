package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/y0f/sitecheck/internal/aggregate"
	"github.com/y0f/sitecheck/internal/checker"
	"github.com/y0f/sitecheck/internal/expectation"
)

var generatedAt = time.Date(2026, 10, 15, 8, 30, 0, 0, time.UTC)

func sampleTargets() []checker.Target {
	return []checker.Target{
		{URL: "https://demo.example.com/health", Category: "availability"},
		{URL: "https://demo.example.com/", Category: "security"},
		{URL: "https://demo.example.com/pricing", Category: "content"},
	}
}

func sampleResults() []checker.Result {
	return []checker.Result{
		{Target: "https://demo.example.com/health", Category: "availability", Expectation: expectation.StatusEquals(200).AsCritical(), Passed: true, Observed: "200", Timestamp: generatedAt},
		{Target: "https://demo.example.com/", Category: "security", Expectation: expectation.HeaderPresent("X-Frame-Options"), Passed: true, Observed: "DENY", Timestamp: generatedAt},
		{Target: "https://demo.example.com/", Category: "security", Expectation: expectation.HeaderPresent("Content-Security-Policy"), Passed: false, Observed: "absent", ErrorKind: checker.ErrorAssertion, Message: "header_present: Content-Security-Policy does not exist", Timestamp: generatedAt},
		{Target: "https://demo.example.com/", Category: "security", Expectation: expectation.StatusEquals(200).AsCritical(), Passed: false, Observed: "timeout", ErrorKind: checker.ErrorTimeout, Timestamp: generatedAt},
	}
}

func sampleReport() *aggregate.Report {
	return aggregate.Fold(sampleTargets(), sampleResults(), "run-1", generatedAt)
}

func TestConsoleProgress(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	results := sampleResults()
	c.Progress(1, 3, checker.Target{URL: "https://demo.example.com/", Category: "security"}, results[1:])
	c.Progress(2, 3, checker.Target{URL: "https://demo.example.com/pricing", Category: "content"}, nil)

	out := buf.String()
	for _, want := range []string{
		"[2/3] https://demo.example.com/ (security)",
		`✅ header_present "X-Frame-Options" -> DENY`,
		`❌ header_present "Content-Security-Policy" -> absent (header_present: Content-Security-Policy does not exist)`,
		`❌ status_equals "200" [critical] -> timeout`,
		"[3/3] https://demo.example.com/pricing (content)",
		"no expectations configured",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q\n%s", want, out)
		}
	}
}

func TestConsoleSummary(t *testing.T) {
	var buf bytes.Buffer
	NewConsole(&buf).Summary(sampleReport(), SummaryOptions{MinScore: 80})

	out := buf.String()
	for _, want := range []string{
		"Run:       run-1",
		"Generated: 2026-10-15T08:30:00Z",
		"Checks:    4 total, 2 passed, 2 failed",
		"Score:     50.0%",
		"availability 1/1 100.0%",
		"security     1/3 33.3%",
		"content      0/0 0.0%",
		"https://demo.example.com/ status_equals \"200\" -> timeout",
		"Threshold: 80.0% not met (informational)",
		"FAIL: 1 critical failure(s)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected summary to contain %q\n%s", want, out)
		}
	}
}

func TestConsoleSummaryAllPass(t *testing.T) {
	rep := aggregate.Fold(nil, sampleResults()[:2], "", generatedAt)

	var buf bytes.Buffer
	NewConsole(&buf).Summary(rep, SummaryOptions{})

	out := buf.String()
	if !strings.Contains(out, "PASS: no critical failures") {
		t.Fatalf("expected PASS verdict\n%s", out)
	}
	if strings.Contains(out, "Critical failures") || strings.Contains(out, "Threshold") {
		t.Fatalf("unexpected sections\n%s", out)
	}
}

func TestConsoleSummaryEmptyReport(t *testing.T) {
	var buf bytes.Buffer
	NewConsole(&buf).Summary(aggregate.Fold(nil, nil, "", generatedAt), SummaryOptions{})

	if !strings.Contains(buf.String(), "Checks:    0 total, 0 passed, 0 failed") {
		t.Fatalf("expected zero totals\n%s", buf.String())
	}
}

func TestConsoleDeterministic(t *testing.T) {
	render := func() string {
		var buf bytes.Buffer
		c := NewConsole(&buf)
		for i, tg := range sampleTargets() {
			c.Progress(i, 3, tg, nil)
		}
		c.Summary(sampleReport(), SummaryOptions{})
		return buf.String()
	}

	if diff := cmp.Diff(render(), render()); diff != "" {
		t.Fatalf("console output not deterministic:\n%s", diff)
	}
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "run.json")
	rep := sampleReport()

	if err := WriteJSON(path, rep); err != nil {
		t.Fatal(err)
	}

	got, err := LoadJSON(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(rep, got); diff != "" {
		t.Fatalf("round-tripped report mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteJSONEmptyReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")

	if err := WriteJSON(path, aggregate.Fold(nil, nil, "", generatedAt)); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("expected valid JSON, got %v\n%s", err, data)
	}
	if decoded["total_checks"] != float64(0) || decoded["score_percent"] != float64(0) {
		t.Fatalf("unexpected totals: %v", decoded)
	}
}

func TestWriteJSONFailsOnDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := WriteJSON(dir, sampleReport()); err == nil {
		t.Fatal("expected error writing to a directory path")
	}
}

func TestRenderHTML(t *testing.T) {
	rep := sampleReport()
	rep.Results[0].Observed = "<script>alert(1)</script>"

	var buf bytes.Buffer
	if err := RenderHTML(&buf, rep); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{
		"<title>sitecheck report run-1</title>",
		"Score 50.0%: 2 of 4 checks passed, 2 failed.",
		"<td>security</td><td>1</td><td>3</td><td>33.3%</td>",
		"Critical failures",
		"&lt;script&gt;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected HTML to contain %q", want)
		}
	}
	if strings.Contains(out, "<script>alert") {
		t.Fatal("observed values must be escaped")
	}
}

func TestWriteHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.html")
	if err := WriteHTML(path, sampleReport()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("<!doctype html>")) {
		t.Fatalf("unexpected HTML prefix: %.40s", data)
	}
}

func TestCompare(t *testing.T) {
	prevResults := sampleResults()
	prevResults[1].Passed = false
	prevResults[2].Passed = true
	prev := aggregate.Fold(nil, prevResults, "run-0", generatedAt.Add(-time.Hour))

	got := Compare(prev, sampleReport())

	want := &Comparison{
		PreviousScore: 50,
		ScoreDelta:    0,
		NewlyFailing:  []string{`https://demo.example.com/ header_present "Content-Security-Policy"`},
		Recovered:     []string{`https://demo.example.com/ header_present "X-Frame-Options"`},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("comparison mismatch (-want +got):\n%s", diff)
	}
}

func TestConsoleBaseline(t *testing.T) {
	var buf bytes.Buffer
	NewConsole(&buf).Summary(sampleReport(), SummaryOptions{Comparison: &Comparison{
		PreviousScore: 75,
		ScoreDelta:    -25,
		NewlyFailing:  []string{"https://demo.example.com/ status_equals \"200\""},
	}})

	out := buf.String()
	if !strings.Contains(out, "Score -25.0 (was 75.0%)") {
		t.Fatalf("expected score delta line\n%s", out)
	}
	if !strings.Contains(out, "newly failing: https://demo.example.com/ status_equals \"200\"") {
		t.Fatalf("expected newly failing line\n%s", out)
	}
}
