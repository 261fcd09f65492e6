// Package config loads the gate configuration file (secgate.yaml) and
// applies environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/user/secgate/pkg/allowlist"
	"github.com/user/secgate/pkg/engine"
	"github.com/user/secgate/pkg/report"
	"github.com/user/secgate/pkg/wrappers"
)

// DefaultPath is used when --config is not given.
const DefaultPath = "secgate.yaml"

// OutputConfig places the unified JSON report at Path. A sarif or markdown
// Format adds a rendering of the same report at Extra, which defaults to
// Path with the format's extension.
type OutputConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"`
	Extra  string `yaml:"extra"`
}

// ExtraPath is where the additional rendering goes, or "" for json.
func (o OutputConfig) ExtraPath() (string, report.Format, error) {
	format, err := report.ParseFormat(o.Format)
	if err != nil || format == report.FormatJSON {
		return "", format, err
	}
	if o.Extra != "" {
		return o.Extra, format, nil
	}
	ext := ".sarif"
	if format == report.FormatMarkdown {
		ext = ".md"
	}
	return strings.TrimSuffix(o.Path, filepath.Ext(o.Path)) + ext, format, nil
}

// ScannerConfig describes how `secgate run` invokes one scanner. Target is
// the source tree for static scanners and the base URL for dynamic-web.
type ScannerConfig struct {
	Enabled bool          `yaml:"enabled"`
	Target  string        `yaml:"target"`
	Report  string        `yaml:"report"`
	Script  string        `yaml:"script"`
	Timeout time.Duration `yaml:"timeout"`
}

// NotifyConfig configures the webhook. Header values may reference
// environment variables as ${NAME} so tokens stay out of the file.
type NotifyConfig struct {
	WebhookURL string            `yaml:"webhook_url"`
	Headers    map[string]string `yaml:"headers"`
	Timeout    time.Duration     `yaml:"timeout"`
	Retries    int               `yaml:"retries"`
	OnlyOnFail bool              `yaml:"only_on_fail"`
}

// ResolvedHeaders expands environment references in the header values.
func (n NotifyConfig) ResolvedHeaders() map[string]string {
	if len(n.Headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(n.Headers))
	for k, v := range n.Headers {
		out[k] = os.ExpandEnv(v)
	}
	return out
}

type HistoryConfig struct {
	DSN string `yaml:"dsn"`
}

type ArchiveConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
}

type ExplainConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
}

type Config struct {
	Inputs     map[string][]string      `yaml:"inputs"`
	Allowlist  string                   `yaml:"allowlist"`
	Policy     engine.PolicySpec        `yaml:"policy"`
	PolicyFile string                   `yaml:"policy_file"`
	Output     OutputConfig             `yaml:"output"`
	ReportDir  string                   `yaml:"report_dir"`
	Scanners   map[string]ScannerConfig `yaml:"scanners"`
	Notify     NotifyConfig             `yaml:"notify"`
	History    HistoryConfig            `yaml:"history"`
	Archive    ArchiveConfig            `yaml:"archive"`
	Explain    ExplainConfig            `yaml:"explain"`

	// Source is the file the config was read from, empty for defaults.
	Source string `yaml:"-"`
}

// Default is the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Inputs:    map[string][]string{},
		Output:    OutputConfig{Path: "secgate-report.json", Format: string(report.FormatJSON)},
		ReportDir: "reports",
		Scanners:  map[string]ScannerConfig{},
		Notify:    NotifyConfig{Timeout: 10 * time.Second, Retries: 3},
		Explain:   ExplainConfig{Provider: "gemini", Model: "gemini-1.5-flash"},
	}
}

// Load reads path strictly: unknown keys are errors. A missing file yields
// the defaults unless mustExist is set. Environment overrides are applied
// last and the result is validated.
func Load(path string, mustExist bool) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !mustExist:
	case err != nil:
		return nil, &engine.ConfigError{Source: path, Err: err}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, &engine.ConfigError{Source: path, Err: fmt.Errorf("failed to parse: %v", err)}
		}
		cfg.Source = path
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// ApplyEnv overrides file values with environment variables.
func (c *Config) ApplyEnv() {
	c.Output.Path = getString("SECGATE_OUTPUT", c.Output.Path)
	c.Output.Format = getString("SECGATE_FORMAT", c.Output.Format)
	c.Notify.WebhookURL = getString("SECGATE_WEBHOOK_URL", c.Notify.WebhookURL)
	c.History.DSN = getString("SECGATE_HISTORY_DSN", c.History.DSN)
	c.Archive.Endpoint = getString("S3_ENDPOINT", c.Archive.Endpoint)
	c.Archive.AccessKey = getString("S3_ACCESS_KEY", c.Archive.AccessKey)
	c.Archive.SecretKey = getString("S3_SECRET_KEY", c.Archive.SecretKey)
	c.Archive.UseSSL = getBool("S3_USE_SSL", c.Archive.UseSSL)
	c.Archive.Bucket = getString("SECGATE_ARCHIVE_BUCKET", c.Archive.Bucket)
	c.Explain.APIKey = getString("GOOGLE_API_KEY", c.Explain.APIKey)
}

func (c *Config) source() string {
	if c.Source == "" {
		return "defaults"
	}
	return c.Source
}

// Validate checks everything that can be checked without touching other
// files.
func (c *Config) Validate() error {
	if _, err := c.InputPaths(); err != nil {
		return err
	}
	for name := range c.Scanners {
		if _, err := engine.ParseScanner(name); err != nil {
			return &engine.ConfigError{Source: c.source() + ": scanners", Err: err}
		}
	}
	if _, err := report.ParseFormat(c.Output.Format); err != nil {
		return &engine.ConfigError{Source: c.source() + ": output.format", Err: err}
	}
	if strings.TrimSpace(c.Output.Path) == "" {
		return &engine.ConfigError{Source: c.source() + ": output.path", Err: errors.New("output path is required")}
	}
	if extra, _, _ := c.Output.ExtraPath(); extra != "" && filepath.Clean(extra) == filepath.Clean(c.Output.Path) {
		return &engine.ConfigError{Source: c.source() + ": output.extra", Err: errors.New("extra rendering would overwrite the unified report")}
	}
	if c.PolicyFile != "" && (len(c.Policy.Thresholds) > 0 || len(c.Policy.TolerateUnavailable) > 0) {
		return &engine.ConfigError{Source: c.source(), Err: errors.New("policy and policy_file are mutually exclusive")}
	}
	if c.PolicyFile == "" {
		if _, err := engine.NewPolicy(c.Policy); err != nil {
			return relabel(err, c.source()+": policy")
		}
	}
	if c.Archive.Bucket != "" && c.Archive.Endpoint == "" {
		return &engine.ConfigError{Source: c.source() + ": archive", Err: errors.New("archive bucket set without endpoint")}
	}
	for k := range c.Notify.Headers {
		if strings.TrimSpace(k) == "" || strings.ContainsAny(k, " :\r\n") {
			return &engine.ConfigError{Source: c.source() + ": notify.headers", Err: fmt.Errorf("invalid header name %q", k)}
		}
	}
	if c.Notify.Retries < 0 {
		return &engine.ConfigError{Source: c.source() + ": notify.retries", Err: errors.New("retries must not be negative")}
	}
	return nil
}

// InputPaths resolves the scanner names used as input keys.
func (c *Config) InputPaths() (map[engine.Scanner][]string, error) {
	out := make(map[engine.Scanner][]string, len(c.Inputs))
	for name, paths := range c.Inputs {
		kind, err := engine.ParseScanner(name)
		if err != nil {
			return nil, &engine.ConfigError{Source: c.source() + ": inputs", Err: err}
		}
		out[kind] = append(out[kind], paths...)
	}
	for kind := range out {
		sort.Strings(out[kind])
	}
	return out, nil
}

// LoadPolicy returns the policy from policy_file when set, otherwise the
// inline policy section.
func (c *Config) LoadPolicy() (engine.Policy, error) {
	if c.PolicyFile != "" {
		return engine.LoadPolicy(c.PolicyFile)
	}
	p, err := engine.NewPolicy(c.Policy)
	if err != nil {
		return engine.Policy{}, relabel(err, c.source()+": policy")
	}
	return p, nil
}

// LoadAllowlist reads the allowlist file, or returns an empty allowlist when
// none is configured.
func (c *Config) LoadAllowlist() (*allowlist.Allowlist, error) {
	if strings.TrimSpace(c.Allowlist) == "" {
		return allowlist.Empty(), nil
	}
	return allowlist.Load(c.Allowlist)
}

// Wrappers builds the scanner tasks for `secgate run` from the enabled
// scanner sections, in scanner order.
func (c *Config) Wrappers() ([]wrappers.Wrapper, error) {
	var out []wrappers.Wrapper
	for _, kind := range engine.Scanners {
		sc, ok := c.scanner(kind)
		if !ok || !sc.Enabled {
			continue
		}
		target := sc.Target
		if target == "" && kind != engine.ScannerDynamicWeb {
			target = "."
		}
		reportPath := sc.Report
		if reportPath == "" {
			reportPath = filepath.Join(c.ReportDir, defaultReportName(kind))
		}

		var w wrappers.Wrapper
		switch kind {
		case engine.ScannerSecret:
			w = wrappers.Gitleaks(target, reportPath)
		case engine.ScannerDependency:
			w = wrappers.TrivyFS(target, reportPath)
		case engine.ScannerDynamicWeb:
			if target == "" {
				return nil, &engine.ConfigError{Source: c.source() + ": scanners.dynamic-web.target", Err: errors.New("target URL is required")}
			}
			dir, err := filepath.Abs(filepath.Dir(reportPath))
			if err != nil {
				return nil, &engine.ConfigError{Source: c.source() + ": scanners.dynamic-web.report", Err: err}
			}
			w = wrappers.ZAPBaseline(target, dir, filepath.Base(reportPath))
		case engine.ScannerPII:
			if sc.Script == "" {
				return nil, &engine.ConfigError{Source: c.source() + ": scanners.pii.script", Err: errors.New("script is required")}
			}
			w = wrappers.PIIScanner(sc.Script, target, c.Allowlist, reportPath)
		}
		if sc.Timeout > 0 {
			w.Timeout = sc.Timeout
		}
		out = append(out, w)
	}
	return out, nil
}

// scanner finds the section for kind, accepting the parser aliases as keys.
func (c *Config) scanner(kind engine.Scanner) (ScannerConfig, bool) {
	for name, sc := range c.Scanners {
		if k, err := engine.ParseScanner(name); err == nil && k == kind {
			return sc, true
		}
	}
	return ScannerConfig{}, false
}

func defaultReportName(kind engine.Scanner) string {
	switch kind {
	case engine.ScannerSecret:
		return "gitleaks.json"
	case engine.ScannerDependency:
		return "dependency.sarif"
	case engine.ScannerDynamicWeb:
		return "zap.json"
	default:
		return "pii.json"
	}
}

func relabel(err error, source string) error {
	var ce *engine.ConfigError
	if errors.As(err, &ce) {
		if ce.Source != "" {
			source = source + "." + ce.Source
		}
		return &engine.ConfigError{Source: source, Err: ce.Err}
	}
	return &engine.ConfigError{Source: source, Err: err}
}
