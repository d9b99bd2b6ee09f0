package report

import (
	"html/template"
	"io"
	"time"

	"github.com/y0f/sitecheck/internal/aggregate"
)

var htmlReport = template.Must(template.New("report").Funcs(template.FuncMap{
	"score": formatScore,
	"ts":    func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
}).Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>sitecheck report{{if .RunID}} {{.RunID}}{{end}}</title>
<style>
body{font-family:system-ui,sans-serif;margin:2rem;color:#101F38}
table{border-collapse:collapse;margin:1rem 0}
td,th{border:1px solid #dce0e5;padding:.3rem .6rem;text-align:left}
.pass{color:#4d7c0f}.fail{color:#e53935;font-weight:bold}
</style>
</head>
<body>
<h1>Verification report</h1>
<p>Generated {{ts .GeneratedAt}}{{if .RunID}}, run {{.RunID}}{{end}}</p>
<p id="score">Score {{score .ScorePercent}}: {{.Passed}} of {{.TotalChecks}} checks passed, {{.Failed}} failed.</p>
{{- $per := .PerCategory}}
<h2>Categories</h2>
<table>
<tr><th>Category</th><th>Passed</th><th>Total</th><th>Score</th></tr>
{{- range .Categories}}{{$c := index $per .}}
<tr><td>{{.}}</td><td>{{$c.Passed}}</td><td>{{$c.Total}}</td><td>{{score $c.ScorePercent}}</td></tr>
{{- end}}
</table>
{{- if .CriticalFailures}}
<h2 class="fail">Critical failures</h2>
<ul>
{{- range .CriticalFailures}}
<li>{{.Target}} {{.Expectation}}: {{.Observed}}</li>
{{- end}}
</ul>
{{- end}}
<h2>Checks</h2>
<table>
<tr><th></th><th>Target</th><th>Category</th><th>Expectation</th><th>Observed</th></tr>
{{- range .Results}}
<tr class="{{if .Passed}}pass{{else}}fail{{end}}"><td>{{if .Passed}}PASS{{else}}FAIL{{end}}</td><td>{{.Target}}</td><td>{{.Category}}</td><td>{{.Expectation}}{{if .Expectation.Critical}} (critical){{end}}</td><td>{{.Observed}}</td></tr>
{{- end}}
</table>
</body>
</html>
`))

// RenderHTML writes rep as a self-contained HTML page.
func RenderHTML(w io.Writer, rep *aggregate.Report) error {
	return htmlReport.Execute(w, rep)
}

// WriteHTML writes the HTML rendition of rep to path.
func WriteHTML(path string, rep *aggregate.Report) error {
	return writeFile(path, func(w io.Writer) error {
		return RenderHTML(w, rep)
	})
}
