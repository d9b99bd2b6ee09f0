package checker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/y0f/sitecheck/internal/expectation"
	"github.com/y0f/sitecheck/internal/safenet"
)

const maxBodyRead = 4 << 20 // 4MB

// Options configures an HTTPChecker.
type Options struct {
	Timeout           time.Duration
	AllowPrivate      bool
	UserAgent         string
	RequestsPerSecond float64
	Logger            *slog.Logger
}

// HTTPChecker issues one GET per target and evaluates every expectation of
// that target against the same response. There are no retries.
type HTTPChecker struct {
	client    *http.Client
	userAgent string
	limiter   *rate.Limiter
	logger    *slog.Logger
	now       func() time.Time
}

func NewHTTPChecker(opts Options) *HTTPChecker {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: timeout,
			Control: safenet.MaybeDialControl(opts.AllowPrivate),
		}).DialContext,
		TLSHandshakeTimeout: timeout,
		DisableKeepAlives:   true,
	}

	c := &HTTPChecker{
		client:    &http.Client{Transport: transport, Timeout: timeout},
		userAgent: opts.UserAgent,
		logger:    logger,
		now:       time.Now,
	}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return c
}

func (c *HTTPChecker) Check(ctx context.Context, target string, e expectation.Expectation) Result {
	return c.CheckTarget(ctx, Target{URL: target, Expectations: []expectation.Expectation{e}})[0]
}

func (c *HTTPChecker) CheckTarget(ctx context.Context, t Target) []Result {
	if len(t.Expectations) == 0 {
		return nil
	}

	obs, kind, err := c.fetch(ctx, t.URL)
	ts := c.now().UTC()

	results := make([]Result, 0, len(t.Expectations))
	for _, e := range t.Expectations {
		r := Result{
			Target:      t.URL,
			Name:        t.Name,
			Category:    t.Category,
			Expectation: e,
			Timestamp:   ts,
		}
		if err != nil {
			r.ErrorKind = kind
			r.Message = err.Error()
			r.Observed = err.Error()
			if kind == ErrorTimeout {
				r.Observed = "timeout"
			}
		} else {
			out := expectation.Evaluate(e, obs)
			r.Passed = out.Pass
			r.Observed = out.Observed
			r.Message = out.Message
			if !out.Pass {
				r.ErrorKind = ErrorAssertion
			}
		}
		results = append(results, r)
	}
	return results
}

func (c *HTTPChecker) fetch(ctx context.Context, target string) (*expectation.Observation, ErrorKind, error) {
	if err := validateTarget(target); err != nil {
		return nil, ErrorInvalidTarget, err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, ErrorNetwork, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, ErrorInvalidTarget, fmt.Errorf("invalid request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("fetch failed", "target", target, "error", err)
		return nil, classify(err), fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyRead))
	elapsed := time.Since(start)
	if err != nil {
		return nil, classify(err), fmt.Errorf("read body: %w", err)
	}

	c.logger.Debug("fetched", "target", target, "status", resp.StatusCode, "elapsed_ms", elapsed.Milliseconds())

	return &expectation.Observation{
		StatusCode: resp.StatusCode,
		Body:       string(body),
		Headers:    resp.Header,
		Elapsed:    elapsed,
	}, ErrorNone, nil
}

func validateTarget(target string) error {
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("invalid target %q: %w", target, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid target %q: scheme must be http or https", target)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid target %q: host is required", target)
	}
	return nil
}

func classify(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrorTimeout
	}
	return ErrorNetwork
}
