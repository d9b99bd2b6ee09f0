package expectation

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Kind names the predicate an Expectation applies to a response.
type Kind string

const (
	KindStatusEquals      Kind = "status_equals"
	KindBodyContains      Kind = "body_contains"
	KindBodyNotContains   Kind = "body_not_contains"
	KindResponseTimeUnder Kind = "response_time_under"
	KindHeaderPresent     Kind = "header_present"
	KindHeaderEquals      Kind = "header_equals"
	KindTitleContains     Kind = "title_contains"
	KindSelectorPresent   Kind = "selector_present"
)

var validKinds = map[Kind]bool{
	KindStatusEquals:      true,
	KindBodyContains:      true,
	KindBodyNotContains:   true,
	KindResponseTimeUnder: true,
	KindHeaderPresent:     true,
	KindHeaderEquals:      true,
	KindTitleContains:     true,
	KindSelectorPresent:   true,
}

// Expectation is a single declarative assertion about an HTTP response.
type Expectation struct {
	Kind     Kind   `json:"kind"`
	Value    string `json:"value"`
	Critical bool   `json:"critical"`
}

func StatusEquals(code int) Expectation {
	return Expectation{Kind: KindStatusEquals, Value: strconv.Itoa(code)}
}

func BodyContains(s string) Expectation {
	return Expectation{Kind: KindBodyContains, Value: s}
}

func ResponseTimeUnder(ms int64) Expectation {
	return Expectation{Kind: KindResponseTimeUnder, Value: strconv.FormatInt(ms, 10)}
}

func HeaderPresent(name string) Expectation {
	return Expectation{Kind: KindHeaderPresent, Value: name}
}

// AsCritical returns a copy of e whose failure fails the run.
func (e Expectation) AsCritical() Expectation {
	e.Critical = true
	return e
}

func (e Expectation) String() string {
	return fmt.Sprintf("%s %q", e.Kind, e.Value)
}

// Validate reports whether the kind is known and its value is well formed.
func (e Expectation) Validate() error {
	if !validKinds[e.Kind] {
		return fmt.Errorf("unknown expectation type: %q", e.Kind)
	}
	switch e.Kind {
	case KindStatusEquals:
		code, err := strconv.Atoi(e.Value)
		if err != nil {
			return fmt.Errorf("status_equals: value %q is not an integer", e.Value)
		}
		if code < 100 || code > 599 {
			return fmt.Errorf("status_equals: %d is not a valid HTTP status", code)
		}
	case KindResponseTimeUnder:
		ms, err := strconv.ParseInt(e.Value, 10, 64)
		if err != nil {
			return fmt.Errorf("response_time_under: value %q is not an integer", e.Value)
		}
		if ms <= 0 {
			return fmt.Errorf("response_time_under: must be positive")
		}
	case KindHeaderEquals:
		name, _, ok := strings.Cut(e.Value, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return fmt.Errorf("header_equals: value must be \"Name: value\"")
		}
	default:
		if e.Value == "" {
			return fmt.Errorf("%s: value is required", e.Kind)
		}
	}
	return nil
}

// Observation is everything the evaluator may look at in a received response.
type Observation struct {
	StatusCode int
	Body       string
	Headers    http.Header
	Elapsed    time.Duration
}

// Outcome is the result of evaluating one Expectation.
type Outcome struct {
	Pass     bool
	Observed string
	Message  string
}
