package engine

import (
	"fmt"
	"strings"
)

// Severity is the shared ordered severity scale every scanner maps onto.
// The zero value is Info.
type Severity int

const (
	Info Severity = iota
	Low
	Medium
	High
	Critical
)

// Severities lists the scale in ascending order.
var Severities = []Severity{Info, Low, Medium, High, Critical}

var severityNames = [...]string{"info", "low", "medium", "high", "critical"}

func (s Severity) String() string {
	if s < Info || s > Critical {
		return fmt.Sprintf("severity(%d)", int(s))
	}
	return severityNames[s]
}

// Valid reports whether s is one of the five defined levels.
func (s Severity) Valid() bool {
	return s >= Info && s <= Critical
}

// ParseSeverity accepts the canonical spellings, case-insensitively.
func ParseSeverity(v string) (Severity, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	for i, name := range severityNames {
		if v == name {
			return Severity(i), nil
		}
	}
	return Info, fmt.Errorf("unknown severity %q (want one of %s)", v, strings.Join(severityNames[:], ", "))
}

func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// SeverityTable maps one scanner's native severity vocabulary onto the
// shared scale. N is a distinct string type per scanner so that tables
// cannot be mixed up.
type SeverityTable[N ~string] struct {
	name    string
	entries map[N]Severity
}

// NewSeverityTable builds a table and panics if any value of vocabulary is
// missing from entries. Tables are package-level variables, so a gap is
// reported when the binary starts instead of while a report is parsed.
func NewSeverityTable[N ~string](name string, vocabulary []N, entries map[N]Severity) SeverityTable[N] {
	for _, v := range vocabulary {
		sev, ok := entries[v]
		if !ok {
			panic(fmt.Sprintf("severity table %s: native value %q is unmapped", name, string(v)))
		}
		if !sev.Valid() {
			panic(fmt.Sprintf("severity table %s: native value %q maps to invalid severity %d", name, string(v), int(sev)))
		}
	}
	if len(entries) != len(vocabulary) {
		panic(fmt.Sprintf("severity table %s: %d entries for %d native values", name, len(entries), len(vocabulary)))
	}
	return SeverityTable[N]{name: name, entries: entries}
}

// Lookup returns the mapped severity for a native value.
func (t SeverityTable[N]) Lookup(native N) (Severity, bool) {
	s, ok := t.entries[native]
	return s, ok
}
