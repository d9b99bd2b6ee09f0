package checker

import (
	"context"
	"time"

	"github.com/y0f/sitecheck/internal/expectation"
)

// DefaultTimeout bounds a single fetch when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// ErrorKind classifies why a check failed.
type ErrorKind string

const (
	ErrorNone          ErrorKind = ""
	ErrorNetwork       ErrorKind = "network"
	ErrorTimeout       ErrorKind = "timeout"
	ErrorAssertion     ErrorKind = "assertion"
	ErrorInvalidTarget ErrorKind = "invalid_target"
)

// Target is one page to fetch and the expectations to hold it to.
type Target struct {
	Name         string
	URL          string
	Category     string
	Expectations []expectation.Expectation
}

// Result is the outcome of one expectation against one target. It is never
// modified after the checker returns it.
type Result struct {
	Target      string                  `json:"target"`
	Name        string                  `json:"name,omitempty"`
	Category    string                  `json:"category"`
	Expectation expectation.Expectation `json:"expectation"`
	Passed      bool                    `json:"passed"`
	Observed    string                  `json:"observed"`
	ErrorKind   ErrorKind               `json:"error_kind,omitempty"`
	Message     string                  `json:"message,omitempty"`
	Timestamp   time.Time               `json:"timestamp"`
}

// Checker evaluates expectations against live targets. Implementations
// report every failure as a failed Result and never return an error.
type Checker interface {
	Check(ctx context.Context, target string, e expectation.Expectation) Result
	CheckTarget(ctx context.Context, t Target) []Result
}
