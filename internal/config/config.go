package config

import (
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/y0f/sitecheck/internal/checker"
	"github.com/y0f/sitecheck/internal/expectation"
)

// Error is a configuration problem. It aborts a run before any check executes.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return "config: " + e.Reason
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

func fieldErr(field, format string, args ...any) *Error {
	return &Error{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Config is the run configuration. Keys are read in snake_case or camelCase
// (base_url or baseUrl); setting both spellings of one option is an error.
type Config struct {
	BaseURL             string        `yaml:"base_url"`
	Timeout             time.Duration `yaml:"timeout"`
	TimeoutMs           int           `yaml:"timeout_ms"`
	OutputPath          string        `yaml:"output_path"`
	HTMLOutputPath      string        `yaml:"html_output_path"`
	BaselinePath        string        `yaml:"baseline_path"`
	RequestsPerSecond   float64       `yaml:"requests_per_second"`
	AllowPrivateTargets bool          `yaml:"allow_private_targets"`
	UserAgent           string        `yaml:"user_agent"`
	MinScore            float64       `yaml:"min_score"`
	Paths               []PathConfig  `yaml:"paths"`
	Notify              NotifyConfig  `yaml:"notify"`
	Logging             LoggingConfig `yaml:"logging"`
}

type PathConfig struct {
	Path                string              `yaml:"path"`
	Name                string              `yaml:"name"`
	Category            string              `yaml:"category"`
	Critical            bool                `yaml:"critical"`
	ExpectedStatus      int                 `yaml:"expected_status"`
	RequiredSubstrings  []string            `yaml:"required_substrings"`
	ForbiddenSubstrings []string            `yaml:"forbidden_substrings"`
	MaxResponseTimeMs   int64               `yaml:"max_response_time_ms"`
	RequiredHeaders     []string            `yaml:"required_headers"`
	TitleContains       string              `yaml:"title_contains"`
	Selectors           []string            `yaml:"selectors"`
	Expectations        []ExpectationConfig `yaml:"expectations"`
}

// ExpectationConfig is the explicit form of an expectation. Critical
// defaults to the enclosing path's flag.
type ExpectationConfig struct {
	Type     string `yaml:"type"`
	Value    string `yaml:"value"`
	Critical *bool  `yaml:"critical"`
}

type NotifyConfig struct {
	On       string          `yaml:"on"` // "failure" or "always"
	Channels []ChannelConfig `yaml:"channels"`
}

type ChannelConfig struct {
	Type    string `yaml:"type"` // "webhook" or "slack"
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
	Channel string `yaml:"channel"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

func Defaults() *Config {
	return &Config{
		Timeout:             checker.DefaultTimeout,
		AllowPrivateTargets: true,
		UserAgent:           "sitecheck/1.0",
		Notify: NotifyConfig{
			On: "failure",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Reason: fmt.Sprintf("read %s: %v", path, err)}
	}

	expanded := os.ExpandEnv(string(data))

	var root yaml.Node
	if err := yaml.Unmarshal([]byte(expanded), &root); err != nil {
		return nil, &Error{Reason: fmt.Sprintf("parse %s: %v", path, err)}
	}
	if err := normalizeKeys(&root, reflect.TypeOf(cfg), ""); err != nil {
		return nil, err
	}
	if !root.IsZero() {
		if err := root.Decode(cfg); err != nil {
			return nil, &Error{Reason: fmt.Sprintf("parse %s: %v", path, err)}
		}
	}

	if cfg.TimeoutMs > 0 {
		cfg.Timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.BaseURL != "" {
		if err := validateAbsolute(c.BaseURL); err != nil {
			return fieldErr("base_url", "%v", err)
		}
	}
	if c.Timeout <= 0 {
		return fieldErr("timeout", "must be positive")
	}
	if c.TimeoutMs < 0 {
		return fieldErr("timeout_ms", "must not be negative")
	}
	if c.RequestsPerSecond < 0 {
		return fieldErr("requests_per_second", "must not be negative")
	}
	if c.MinScore < 0 || c.MinScore > 100 {
		return fieldErr("min_score", "must be between 0 and 100")
	}
	if len(c.Paths) == 0 {
		return fieldErr("paths", "at least one path is required")
	}
	for i := range c.Paths {
		if err := c.validatePath(i); err != nil {
			return err
		}
	}
	if err := c.validateNotify(); err != nil {
		return err
	}
	return validateLogLevel(c.Logging.Level)
}

func (c *Config) validatePath(i int) error {
	p := &c.Paths[i]
	field := fmt.Sprintf("paths[%d]", i)

	if strings.TrimSpace(p.Path) == "" {
		return fieldErr(field+".path", "is required")
	}
	target, err := c.Resolve(p.Path)
	if err != nil {
		return fieldErr(field+".path", "%v", err)
	}
	if err := validateAbsolute(target); err != nil {
		return fieldErr(field+".path", "%v", err)
	}
	if p.ExpectedStatus != 0 && (p.ExpectedStatus < 100 || p.ExpectedStatus > 599) {
		return fieldErr(field+".expected_status", "%d is not a valid HTTP status", p.ExpectedStatus)
	}
	if p.MaxResponseTimeMs < 0 {
		return fieldErr(field+".max_response_time_ms", "must not be negative")
	}
	for j, s := range p.RequiredSubstrings {
		if s == "" {
			return fieldErr(fmt.Sprintf("%s.required_substrings[%d]", field, j), "must not be empty")
		}
	}
	for j, e := range p.Expectations {
		exp := expectation.Expectation{Kind: expectation.Kind(e.Type), Value: e.Value}
		if err := exp.Validate(); err != nil {
			return fieldErr(fmt.Sprintf("%s.expectations[%d]", field, j), "%v", err)
		}
	}
	for _, e := range expectationsFor(p) {
		if err := e.Validate(); err != nil {
			return fieldErr(field, "%v", err)
		}
	}
	return nil
}

func (c *Config) validateNotify() error {
	switch c.Notify.On {
	case "", "failure", "always":
	default:
		return fieldErr("notify.on", "must be one of: failure, always")
	}
	for i, ch := range c.Notify.Channels {
		field := fmt.Sprintf("notify.channels[%d]", i)
		if ch.Type != "webhook" && ch.Type != "slack" {
			return fieldErr(field+".type", "must be one of: webhook, slack")
		}
		if err := validateAbsolute(ch.URL); err != nil {
			return fieldErr(field+".url", "%v", err)
		}
	}
	return nil
}

func validateLogLevel(level string) error {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fieldErr("logging.level", "must be one of: debug, info, warn, error")
	}
}

func validateAbsolute(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q must be an absolute http or https URL", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	return nil
}

// Resolve joins a configured path onto base_url. Absolute URLs are
// returned unchanged so one config can check several deployments.
func (c *Config) Resolve(path string) (string, error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %q", path)
	}
	if u.IsAbs() {
		return path, nil
	}
	if c.BaseURL == "" {
		return "", fmt.Errorf("relative path %q requires base_url", path)
	}
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base_url %q", c.BaseURL)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	ref, err := url.Parse(strings.TrimRight(base.Path, "/") + path)
	if err != nil {
		return "", fmt.Errorf("invalid path %q", path)
	}
	return base.ResolveReference(ref).String(), nil
}

// Targets expands every configured path into a checker target, in file order.
func (c *Config) Targets() ([]checker.Target, error) {
	targets := make([]checker.Target, 0, len(c.Paths))
	for i := range c.Paths {
		p := &c.Paths[i]
		target, err := c.Resolve(p.Path)
		if err != nil {
			return nil, fieldErr(fmt.Sprintf("paths[%d].path", i), "%v", err)
		}
		targets = append(targets, checker.Target{
			Name:         p.Name,
			URL:          target,
			Category:     p.Category,
			Expectations: expectationsFor(p),
		})
	}
	return targets, nil
}

func expectationsFor(p *PathConfig) []expectation.Expectation {
	var out []expectation.Expectation
	add := func(kind expectation.Kind, value string) {
		out = append(out, expectation.Expectation{Kind: kind, Value: value, Critical: p.Critical})
	}

	if p.ExpectedStatus != 0 {
		add(expectation.KindStatusEquals, strconv.Itoa(p.ExpectedStatus))
	}
	for _, s := range p.RequiredSubstrings {
		add(expectation.KindBodyContains, s)
	}
	for _, s := range p.ForbiddenSubstrings {
		add(expectation.KindBodyNotContains, s)
	}
	if p.MaxResponseTimeMs > 0 {
		add(expectation.KindResponseTimeUnder, strconv.FormatInt(p.MaxResponseTimeMs, 10))
	}
	for _, h := range p.RequiredHeaders {
		add(expectation.KindHeaderPresent, h)
	}
	if p.TitleContains != "" {
		add(expectation.KindTitleContains, p.TitleContains)
	}
	for _, s := range p.Selectors {
		add(expectation.KindSelectorPresent, s)
	}
	for _, e := range p.Expectations {
		critical := p.Critical
		if e.Critical != nil {
			critical = *e.Critical
		}
		out = append(out, expectation.Expectation{
			Kind:     expectation.Kind(e.Type),
			Value:    e.Value,
			Critical: critical,
		})
	}
	return out
}
