// Package allowlist suppresses expected findings (test fixtures, known-safe
// literals) before they are aggregated.
package allowlist

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/user/secgate/pkg/engine"
)

// Kind is the matching strategy of a rule.
type Kind string

const (
	// KindPath globs against the finding location's path component.
	KindPath Kind = "path"
	// KindPattern is a plain substring of the raw payload.
	KindPattern Kind = "pattern"
	// KindRegex is an opt-in regular expression over the raw payload.
	KindRegex Kind = "regex"
)

// Rule is one allowlist entry. An empty Scanner makes it global.
type Rule struct {
	Kind    Kind
	Scanner engine.Scanner
	Value   string

	re *regexp.Regexp
}

// Matches reports whether the rule suppresses f.
func (r Rule) Matches(f engine.Finding) bool {
	if r.Scanner != "" && r.Scanner != f.Scanner {
		return false
	}
	switch r.Kind {
	case KindPath:
		return matchPath(r.Value, f.Location.PathComponent())
	case KindPattern:
		return len(f.Raw) > 0 && bytes.Contains(f.Raw, []byte(r.Value))
	case KindRegex:
		return r.re != nil && r.re.Match(f.Raw)
	}
	return false
}

func (r Rule) String() string {
	scope := "global"
	if r.Scanner != "" {
		scope = string(r.Scanner)
	}
	return fmt.Sprintf("%s %s %q", scope, r.Kind, r.Value)
}

// matchPath applies glob semantics (with ** for any depth) to the path as
// reported. A rule naming a directory also matches everything below it.
func matchPath(pattern, path string) bool {
	if path == "" {
		return false
	}
	if ok, err := doublestar.Match(pattern, path); err == nil && ok {
		return true
	}
	dir := strings.TrimSuffix(pattern, "/")
	return dir != "" && strings.HasPrefix(path, dir+"/")
}

// RuleSet is the declarative YAML shape, shared by the global section and
// each per-scanner section.
type RuleSet struct {
	Paths    []string `yaml:"paths"`
	Patterns []string `yaml:"patterns"`
	Regexes  []string `yaml:"regexes"`
}

// Spec is an allowlist file.
type Spec struct {
	RuleSet  `yaml:",inline"`
	Scanners map[string]RuleSet `yaml:"scanners"`
}

// Allowlist is an immutable, validated rule set.
type Allowlist struct {
	rules []Rule
}

// Empty suppresses nothing.
func Empty() *Allowlist { return &Allowlist{} }

// New validates every glob and regex in spec.
func New(spec Spec) (*Allowlist, error) {
	a := &Allowlist{}
	if err := a.add("", spec.RuleSet); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(spec.Scanners))
	for name := range spec.Scanners {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		kind, err := engine.ParseScanner(name)
		if err != nil {
			return nil, &engine.ConfigError{Source: "allowlist.scanners", Err: err}
		}
		if err := a.add(kind, spec.Scanners[name]); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Allowlist) add(scope engine.Scanner, rs RuleSet) error {
	where := "allowlist"
	if scope != "" {
		where = "allowlist.scanners." + string(scope)
	}
	for _, p := range rs.Paths {
		if strings.TrimSpace(p) == "" || !doublestar.ValidatePattern(p) {
			return &engine.ConfigError{Source: where + ".paths", Err: fmt.Errorf("invalid path glob %q", p)}
		}
		a.rules = append(a.rules, Rule{Kind: KindPath, Scanner: scope, Value: p})
	}
	for _, p := range rs.Patterns {
		if p == "" {
			return &engine.ConfigError{Source: where + ".patterns", Err: errors.New("empty pattern would suppress every finding")}
		}
		a.rules = append(a.rules, Rule{Kind: KindPattern, Scanner: scope, Value: p})
	}
	for _, expr := range rs.Regexes {
		re, err := regexp.Compile(expr)
		if err != nil {
			return &engine.ConfigError{Source: where + ".regexes", Err: err}
		}
		if re.MatchString("") {
			return &engine.ConfigError{Source: where + ".regexes", Err: fmt.Errorf("regex %q matches the empty string", expr)}
		}
		a.rules = append(a.rules, Rule{Kind: KindRegex, Scanner: scope, Value: expr, re: re})
	}
	return nil
}

// Load reads an allowlist YAML file. Unknown keys are rejected.
func Load(path string) (*Allowlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &engine.ConfigError{Source: path, Err: err}
	}
	var spec Spec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil && !errors.Is(err, io.EOF) {
		return nil, &engine.ConfigError{Source: path, Err: fmt.Errorf("failed to parse: %v", err)}
	}
	a, err := New(spec)
	if err != nil {
		var ce *engine.ConfigError
		if errors.As(err, &ce) {
			ce.Source = path + ": " + ce.Source
		}
		return nil, err
	}
	return a, nil
}

// Rules returns a copy of the rule list.
func (a *Allowlist) Rules() []Rule {
	out := make([]Rule, len(a.rules))
	copy(out, a.rules)
	return out
}

// Suppressed is the OR of every rule; all rules are evaluated.
func (a *Allowlist) Suppressed(f engine.Finding) bool {
	suppressed := false
	for _, r := range a.rules {
		if r.Matches(f) {
			suppressed = true
		}
	}
	return suppressed
}

// Filter splits findings into kept and suppressed, preserving order.
func (a *Allowlist) Filter(findings []engine.Finding) (kept, suppressed []engine.Finding) {
	kept = make([]engine.Finding, 0, len(findings))
	for _, f := range findings {
		if a.Suppressed(f) {
			suppressed = append(suppressed, f)
			continue
		}
		kept = append(kept, f)
	}
	return kept, suppressed
}
