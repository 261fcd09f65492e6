package engine

import (
	"strings"
	"testing"
)

func TestSeverityOrderAndSpelling(t *testing.T) {
	want := []string{"info", "low", "medium", "high", "critical"}
	for i, s := range Severities {
		if s.String() != want[i] {
			t.Errorf("Severities[%d] = %s, want %s", i, s, want[i])
		}
		if i > 0 && !(Severities[i-1] < s) {
			t.Errorf("%s should be below %s", Severities[i-1], s)
		}
		parsed, err := ParseSeverity(strings.ToUpper(want[i]))
		if err != nil || parsed != s {
			t.Errorf("ParseSeverity(%q) = %v, %v", strings.ToUpper(want[i]), parsed, err)
		}
	}
	if _, err := ParseSeverity("severe"); err == nil {
		t.Error("expected error for unknown severity")
	}
	if _, err := Severity(9).MarshalText(); err == nil {
		t.Error("expected error marshaling an out-of-range severity")
	}
}

type testLevel string

func TestSeverityTableRejectsGaps(t *testing.T) {
	vocab := []testLevel{"a", "b"}

	table := NewSeverityTable("test", vocab, map[testLevel]Severity{"a": Low, "b": High})
	if s, ok := table.Lookup("b"); !ok || s != High {
		t.Errorf("Lookup(b) = %v, %v", s, ok)
	}
	if _, ok := table.Lookup("c"); ok {
		t.Error("Lookup of a value outside the vocabulary should fail")
	}

	cases := map[string]map[testLevel]Severity{
		"missing":    {"a": Low},
		"invalid":    {"a": Low, "b": Severity(42)},
		"extraneous": {"a": Low, "b": High, "c": Medium},
	}
	for name, entries := range cases {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatal("expected panic")
				}
			}()
			NewSeverityTable("test", vocab, entries)
		})
	}
}
