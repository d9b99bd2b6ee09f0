package expectation

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Evaluate applies e to a received response. Predicates are exact: no
// coercion, no partial credit.
func Evaluate(e Expectation, obs *Observation) Outcome {
	switch e.Kind {
	case KindStatusEquals:
		return evalStatusEquals(e, obs.StatusCode)
	case KindBodyContains:
		return evalBodyContains(e, obs.Body, true)
	case KindBodyNotContains:
		return evalBodyContains(e, obs.Body, false)
	case KindResponseTimeUnder:
		return evalResponseTime(e, obs.Elapsed.Milliseconds())
	case KindHeaderPresent:
		return evalHeaderPresent(e, obs)
	case KindHeaderEquals:
		return evalHeaderEquals(e, obs)
	case KindTitleContains:
		return evalTitleContains(e, obs.Body)
	case KindSelectorPresent:
		return evalSelectorPresent(e, obs.Body)
	default:
		return Outcome{Message: fmt.Sprintf("unknown expectation type: %s", e.Kind)}
	}
}

func evalStatusEquals(e Expectation, statusCode int) Outcome {
	actual := strconv.Itoa(statusCode)
	expected, err := strconv.Atoi(e.Value)
	if err != nil {
		return Outcome{Observed: actual, Message: fmt.Sprintf("status_equals: invalid expected value %q", e.Value)}
	}
	if statusCode != expected {
		return Outcome{Observed: actual, Message: fmt.Sprintf("status_equals: expected %d, got %d", expected, statusCode)}
	}
	return Outcome{Pass: true, Observed: actual}
}

func evalBodyContains(e Expectation, body string, want bool) Outcome {
	found := strings.Contains(body, e.Value)
	observed := "absent"
	if found {
		observed = "present"
	}
	if found != want {
		verb := "not found in body"
		if !want {
			verb = "found in body"
		}
		return Outcome{Observed: observed, Message: fmt.Sprintf("%s: %q %s", e.Kind, truncate(e.Value, 50), verb)}
	}
	return Outcome{Pass: true, Observed: observed}
}

func evalResponseTime(e Expectation, elapsedMs int64) Outcome {
	actual := strconv.FormatInt(elapsedMs, 10) + "ms"
	limit, err := strconv.ParseInt(e.Value, 10, 64)
	if err != nil {
		return Outcome{Observed: actual, Message: fmt.Sprintf("response_time_under: invalid limit %q", e.Value)}
	}
	if elapsedMs >= limit {
		return Outcome{Observed: actual, Message: fmt.Sprintf("response_time_under: expected < %dms, got %dms", limit, elapsedMs)}
	}
	return Outcome{Pass: true, Observed: actual}
}

func evalHeaderPresent(e Expectation, obs *Observation) Outcome {
	values := obs.Headers.Values(e.Value)
	if len(values) == 0 {
		return Outcome{Observed: "absent", Message: fmt.Sprintf("header_present: %s does not exist", e.Value)}
	}
	return Outcome{Pass: true, Observed: truncate(strings.Join(values, ", "), 100)}
}

func evalHeaderEquals(e Expectation, obs *Observation) Outcome {
	name, want, _ := strings.Cut(e.Value, ":")
	name = strings.TrimSpace(name)
	want = strings.TrimSpace(want)

	values := obs.Headers.Values(name)
	if len(values) == 0 {
		return Outcome{Observed: "absent", Message: fmt.Sprintf("header_equals: %s not found", name)}
	}
	got := strings.Join(values, ", ")
	if got != want {
		return Outcome{Observed: truncate(got, 100), Message: fmt.Sprintf("header_equals %s: expected %q, got %q", name, want, truncate(got, 100))}
	}
	return Outcome{Pass: true, Observed: got}
}

func evalTitleContains(e Expectation, body string) Outcome {
	title := pageTitle(body)
	if !strings.Contains(title, e.Value) {
		return Outcome{Observed: truncate(title, 100), Message: fmt.Sprintf("title_contains: %q not in title %q", e.Value, truncate(title, 100))}
	}
	return Outcome{Pass: true, Observed: truncate(title, 100)}
}

func evalSelectorPresent(e Expectation, body string) Outcome {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return Outcome{Message: fmt.Sprintf("selector_present: parse body: %v", err)}
	}
	n := doc.Find(e.Value).Length()
	observed := fmt.Sprintf("%d matches", n)
	if n == 0 {
		return Outcome{Observed: observed, Message: fmt.Sprintf("selector_present: %s matched nothing", e.Value)}
	}
	return Outcome{Pass: true, Observed: observed}
}

// pageTitle returns the text of the first <title> element, or "".
func pageTitle(body string) string {
	z := html.NewTokenizer(strings.NewReader(body))
	inTitle := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			name, _ := z.TagName()
			inTitle = atom.Lookup(name) == atom.Title
		case html.EndTagToken:
			name, _ := z.TagName()
			if atom.Lookup(name) == atom.Title {
				return ""
			}
		case html.TextToken:
			if inTitle {
				return strings.TrimSpace(string(z.Text()))
			}
		}
	}
}

// truncate cuts s to at most max bytes on a rune boundary.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
