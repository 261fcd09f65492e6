package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Policy maps every scanner kind to the severity at or above which its
// findings fail the gate.
type Policy struct {
	thresholds map[Scanner]Severity
	tolerate   map[Scanner]bool
}

// PolicySpec is the declarative form of a Policy as it appears in YAML.
type PolicySpec struct {
	Thresholds          map[string]string `yaml:"thresholds" json:"thresholds"`
	TolerateUnavailable []string          `yaml:"tolerate_unavailable" json:"tolerate_unavailable,omitempty"`
}

// DefaultPolicy fails on any finding from any scanner.
func DefaultPolicy() Policy {
	p := Policy{
		thresholds: make(map[Scanner]Severity, len(Scanners)),
		tolerate:   make(map[Scanner]bool),
	}
	for _, s := range Scanners {
		p.thresholds[s] = Info
	}
	return p
}

// NewPolicy validates spec. Scanners it does not mention keep the strictest
// threshold.
func NewPolicy(spec PolicySpec) (Policy, error) {
	p := DefaultPolicy()
	for name, level := range spec.Thresholds {
		kind, err := ParseScanner(name)
		if err != nil {
			return Policy{}, &ConfigError{Source: "policy.thresholds", Err: err}
		}
		sev, err := ParseSeverity(level)
		if err != nil {
			return Policy{}, &ConfigError{Source: "policy.thresholds." + name, Err: err}
		}
		p.thresholds[kind] = sev
	}
	for _, name := range spec.TolerateUnavailable {
		kind, err := ParseScanner(name)
		if err != nil {
			return Policy{}, &ConfigError{Source: "policy.tolerate_unavailable", Err: err}
		}
		p.tolerate[kind] = true
	}
	return p, nil
}

// LoadPolicy reads a standalone policy YAML file.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, &ConfigError{Source: path, Err: err}
	}
	var spec PolicySpec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil && !errors.Is(err, io.EOF) {
		return Policy{}, &ConfigError{Source: path, Err: fmt.Errorf("failed to parse: %v", err)}
	}
	return NewPolicy(spec)
}

// Threshold returns the failing threshold for kind; unknown kinds get the
// strictest one.
func (p Policy) Threshold(kind Scanner) Severity {
	if sev, ok := p.thresholds[kind]; ok {
		return sev
	}
	return Info
}

// ToleratesUnavailable reports whether a missing report from kind is allowed.
func (p Policy) ToleratesUnavailable(kind Scanner) bool {
	return p.tolerate[kind]
}

// Spec returns the effective policy, total over all scanner kinds.
func (p Policy) Spec() PolicySpec {
	spec := PolicySpec{Thresholds: make(map[string]string, len(Scanners))}
	for _, s := range Scanners {
		spec.Thresholds[string(s)] = p.Threshold(s).String()
		if p.tolerate[s] {
			spec.TolerateUnavailable = append(spec.TolerateUnavailable, string(s))
		}
	}
	sort.Strings(spec.TolerateUnavailable)
	return spec
}

// Verdict is the gate decision for one run. Failing is empty iff Passed.
type Verdict struct {
	Passed  bool      `json:"passed"`
	Failing []Finding `json:"failing"`
}

// Fails reports whether a single finding fails p.
func (p Policy) Fails(f Finding) bool {
	if f.Unavailable() {
		return !p.ToleratesUnavailable(f.Scanner)
	}
	return f.Severity >= p.Threshold(f.Scanner)
}

// Evaluate computes the Verdict for an aggregated finding sequence. Failing
// keeps the input order.
func Evaluate(findings []Finding, p Policy) Verdict {
	v := Verdict{Failing: []Finding{}}
	for _, f := range findings {
		if p.Fails(f) {
			v.Failing = append(v.Failing, f)
		}
	}
	v.Passed = len(v.Failing) == 0
	return v
}
