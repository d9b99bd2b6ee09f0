package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/y0f/sitecheck/internal/expectation"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sitecheck.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Timeout != 30*time.Second {
		t.Fatalf("expected 30s timeout, got %s", cfg.Timeout)
	}
	if !cfg.AllowPrivateTargets {
		t.Fatal("expected private targets to be allowed by default")
	}
	if cfg.Notify.On != "failure" {
		t.Fatalf("expected notify on failure, got %s", cfg.Notify.On)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("expected info log level, got %s", cfg.Logging.Level)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
base_url: https://demo.example.com
timeout_ms: 5000
output_path: report.json
paths:
  - path: /health
    category: availability
    critical: true
    expected_status: 200
    required_substrings: [healthy]
  - path: /v2/checkout
    category: payments
    max_response_time_ms: 1500
    required_headers: [Cache-Control]
    expectations:
      - type: selector_present
        value: "#payment-form"
        critical: true
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Timeout != 5*time.Second {
		t.Fatalf("expected timeout_ms to override timeout, got %s", cfg.Timeout)
	}
	if cfg.OutputPath != "report.json" {
		t.Fatalf("unexpected output path: %s", cfg.OutputPath)
	}

	targets, err := cfg.Targets()
	if err != nil {
		t.Fatal(err)
	}
	if len(targets) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(targets))
	}
	if targets[0].URL != "https://demo.example.com/health" {
		t.Fatalf("unexpected target: %s", targets[0].URL)
	}

	want := []expectation.Expectation{
		{Kind: expectation.KindStatusEquals, Value: "200", Critical: true},
		{Kind: expectation.KindBodyContains, Value: "healthy", Critical: true},
	}
	if diff := cmp.Diff(want, targets[0].Expectations); diff != "" {
		t.Fatalf("health expectations mismatch (-want +got):\n%s", diff)
	}

	want = []expectation.Expectation{
		{Kind: expectation.KindResponseTimeUnder, Value: "1500"},
		{Kind: expectation.KindHeaderPresent, Value: "Cache-Control"},
		{Kind: expectation.KindSelectorPresent, Value: "#payment-form", Critical: true},
	}
	if diff := cmp.Diff(want, targets[1].Expectations); diff != "" {
		t.Fatalf("checkout expectations mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, `{"base_url": "http://localhost:8080", "paths": [{"path": "/", "expected_status": 200}]}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Paths) != 1 || cfg.Paths[0].ExpectedStatus != 200 {
		t.Fatalf("unexpected paths: %+v", cfg.Paths)
	}
}

func TestLoadCamelCaseKeys(t *testing.T) {
	path := writeConfig(t, `{
  "baseUrl": "https://demo.example.com",
  "timeoutMs": 5000,
  "outputPath": null,
  "paths": [
    {"path": "/health", "expectedStatus": 200, "requiredSubstrings": ["healthy"], "maxResponseTimeMs": 1000, "critical": true}
  ]
}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Timeout != 5*time.Second {
		t.Fatalf("expected timeout 5s, got %s", cfg.Timeout)
	}
	if cfg.OutputPath != "" {
		t.Fatalf("expected no output path, got %q", cfg.OutputPath)
	}

	targets, err := cfg.Targets()
	if err != nil {
		t.Fatal(err)
	}
	if len(targets) != 1 || targets[0].URL != "https://demo.example.com/health" {
		t.Fatalf("unexpected targets: %+v", targets)
	}
	want := []expectation.Expectation{
		{Kind: expectation.KindStatusEquals, Value: "200", Critical: true},
		{Kind: expectation.KindBodyContains, Value: "healthy", Critical: true},
		{Kind: expectation.KindResponseTimeUnder, Value: "1000", Critical: true},
	}
	if diff := cmp.Diff(want, targets[0].Expectations); diff != "" {
		t.Fatalf("expectations mismatch (-want +got):\n%s", diff)
	}
}

func TestCanonicalKey(t *testing.T) {
	tests := map[string]string{
		"baseUrl":             "base_url",
		"base_url":            "base_url",
		"maxResponseTimeMs":   "max_response_time_ms",
		"htmlOutputPath":      "html_output_path",
		"allowPrivateTargets": "allow_private_targets",
		"baseURL":             "base_url",
		"paths":               "paths",
	}
	for in, want := range tests {
		if got := canonicalKey(in); got != want {
			t.Errorf("canonicalKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("SITECHECK_BASE", "https://staging.example.com")
	path := writeConfig(t, `
base_url: ${SITECHECK_BASE}
paths:
  - path: /
    expected_status: 200
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BaseURL != "https://staging.example.com" {
		t.Fatalf("expected env expansion, got %s", cfg.BaseURL)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errSub  string
	}{
		{"malformed yaml", "paths: [", "parse"},
		{"no paths", "base_url: https://x.example.com\n", "paths"},
		{"relative without base", "paths:\n  - path: /health\n", "base_url"},
		{"unknown path key", "base_url: https://x.example.com\npaths:\n  - path: /\n    expected_stauts: 200\n", "paths[0].expected_stauts: unknown key (line 4)"},
		{"unknown top-level key", "base_uri: https://x.example.com\npaths:\n  - path: https://x.example.com/\n", "base_uri"},
		{"both spellings", "base_url: https://x.example.com\nbaseUrl: https://y.example.com\npaths:\n  - path: /\n", "base_url: set as both"},
		{"both spellings in path", "base_url: https://x.example.com\npaths:\n  - path: /\n    expected_status: 200\n    expectedStatus: 200\n", "paths[0].expected_status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			var cfgErr *Error
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *config.Error, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.errSub) {
				t.Fatalf("expected error containing %q, got %q", tt.errSub, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	var cfgErr *Error
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *config.Error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Defaults()
		cfg.BaseURL = "https://demo.example.com"
		cfg.Paths = []PathConfig{{Path: "/", ExpectedStatus: 200}}
		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		if err := valid().Validate(); err != nil {
			t.Fatal(err)
		}
	})

	tests := []struct {
		name   string
		modify func(*Config)
		errSub string
	}{
		{
			name:   "relative base url",
			modify: func(c *Config) { c.BaseURL = "demo.example.com" },
			errSub: "base_url",
		},
		{
			name:   "zero timeout",
			modify: func(c *Config) { c.Timeout = 0 },
			errSub: "timeout",
		},
		{
			name:   "negative rps",
			modify: func(c *Config) { c.RequestsPerSecond = -1 },
			errSub: "requests_per_second",
		},
		{
			name:   "min score too high",
			modify: func(c *Config) { c.MinScore = 120 },
			errSub: "min_score",
		},
		{
			name:   "empty path",
			modify: func(c *Config) { c.Paths[0].Path = " " },
			errSub: "paths[0].path",
		},
		{
			name:   "ftp path",
			modify: func(c *Config) { c.Paths[0].Path = "ftp://files.example.com/" },
			errSub: "paths[0].path",
		},
		{
			name:   "bad status",
			modify: func(c *Config) { c.Paths[0].ExpectedStatus = 42 },
			errSub: "expected_status",
		},
		{
			name:   "negative response time",
			modify: func(c *Config) { c.Paths[0].MaxResponseTimeMs = -5 },
			errSub: "max_response_time_ms",
		},
		{
			name:   "empty substring",
			modify: func(c *Config) { c.Paths[0].RequiredSubstrings = []string{""} },
			errSub: "required_substrings[0]",
		},
		{
			name: "unknown expectation type",
			modify: func(c *Config) {
				c.Paths[0].Expectations = []ExpectationConfig{{Type: "json_path", Value: "a"}}
			},
			errSub: "expectations[0]",
		},
		{
			name: "non-integer status expectation",
			modify: func(c *Config) {
				c.Paths[0].Expectations = []ExpectationConfig{{Type: "status_equals", Value: "OK"}}
			},
			errSub: "expectations[0]",
		},
		{
			name:   "bad notify trigger",
			modify: func(c *Config) { c.Notify.On = "sometimes" },
			errSub: "notify.on",
		},
		{
			name: "unknown channel type",
			modify: func(c *Config) {
				c.Notify.Channels = []ChannelConfig{{Type: "pager", URL: "https://x.example.com"}}
			},
			errSub: "notify.channels[0].type",
		},
		{
			name: "channel without url",
			modify: func(c *Config) {
				c.Notify.Channels = []ChannelConfig{{Type: "webhook"}}
			},
			errSub: "notify.channels[0].url",
		},
		{
			name:   "bad log level",
			modify: func(c *Config) { c.Logging.Level = "verbose" },
			errSub: "logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errSub) {
				t.Fatalf("expected error containing %q, got %q", tt.errSub, err)
			}
		})
	}
}

func TestEmptyExpectationPathIsValid(t *testing.T) {
	cfg := Defaults()
	cfg.BaseURL = "https://demo.example.com"
	cfg.Paths = []PathConfig{{Path: "/pricing", Category: "content"}}

	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	targets, err := cfg.Targets()
	if err != nil {
		t.Fatal(err)
	}
	if len(targets[0].Expectations) != 0 {
		t.Fatalf("expected no expectations, got %v", targets[0].Expectations)
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		base string
		path string
		want string
	}{
		{"https://demo.example.com", "/health", "https://demo.example.com/health"},
		{"https://demo.example.com/", "health", "https://demo.example.com/health"},
		{"https://demo.example.com/app", "/v2/", "https://demo.example.com/app/v2/"},
		{"https://demo.example.com", "/search?q=bopis", "https://demo.example.com/search?q=bopis"},
		{"https://demo.example.com", "https://other.example.com/x", "https://other.example.com/x"},
	}

	for _, tt := range tests {
		cfg := &Config{BaseURL: tt.base}
		got, err := cfg.Resolve(tt.path)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", tt.path, err)
		}
		if got != tt.want {
			t.Errorf("Resolve(%q, %q) = %q, want %q", tt.base, tt.path, got, tt.want)
		}
	}
}

func TestExplicitCriticalOverridesPath(t *testing.T) {
	f := false
	p := &PathConfig{
		Critical:       true,
		ExpectedStatus: 200,
		Expectations:   []ExpectationConfig{{Type: "header_present", Value: "ETag", Critical: &f}},
	}
	got := expectationsFor(p)
	if !got[0].Critical || got[1].Critical {
		t.Fatalf("unexpected critical flags: %+v", got)
	}
}
