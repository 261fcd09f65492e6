package allowlist

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/user/secgate/pkg/engine"
)

func piiEmail(path, literal string) engine.Finding {
	raw, _ := json.Marshal(map[string]interface{}{"file": path, "type": "email", "match": literal})
	return engine.Finding{
		Scanner:    engine.ScannerPII,
		Identifier: "pii:email:0123456789ab",
		Severity:   engine.Medium,
		Location:   engine.FileLocation(path, 1),
		Raw:        raw,
	}
}

func TestPatternSuppressesExactLiteral(t *testing.T) {
	a, err := New(Spec{Scanners: map[string]RuleSet{
		"pii": {Patterns: []string{"testuser@test.local"}},
	}})
	if err != nil {
		t.Fatal(err)
	}
	if !a.Suppressed(piiEmail("src/users.go", "testuser@test.local")) {
		t.Error("allowlisted literal should be suppressed")
	}
	if a.Suppressed(piiEmail("src/users.go", "someone@example.com")) {
		t.Error("other literals must not be suppressed")
	}

	// Patterns are literal: '.' does not match any character.
	if a.Suppressed(piiEmail("src/users.go", "testuser@testXlocal")) {
		t.Error("pattern rules are substrings, not regexes")
	}

	// Scoped to pii only.
	f := piiEmail("src/users.go", "testuser@test.local")
	f.Scanner = engine.ScannerSecret
	if a.Suppressed(f) {
		t.Error("a pii-scoped rule must not suppress secret findings")
	}
}

func TestRegexIsOptIn(t *testing.T) {
	a, err := New(Spec{RuleSet: RuleSet{Regexes: []string{`[a-z]+@example\.(com|org)`}}})
	if err != nil {
		t.Fatal(err)
	}
	if !a.Suppressed(piiEmail("a.txt", "alice@example.org")) {
		t.Error("regex rule should match")
	}
	if a.Suppressed(piiEmail("a.txt", "alice@example.net")) {
		t.Error("regex rule should not match .net")
	}
}

func TestPathRules(t *testing.T) {
	a, err := New(Spec{RuleSet: RuleSet{Paths: []string{"test-fixtures/**", "docs", "**/*.md"}}})
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		loc  engine.Location
		want bool
	}{
		{engine.FileLocation("test-fixtures/secrets/aws_key.txt", 1), true},
		{engine.FileLocation("docs/setup/guide.txt", 1), true},
		{engine.FileLocation("README.md", 1), true},
		{engine.FileLocation("pkg/a/README.md", 1), true},
		{engine.FileLocation("src/test-fixtures.go", 1), false},
		{engine.FileLocation("Test-Fixtures/a.txt", 1), false},
		{engine.FileLocation("docsite/x.txt", 1), false},
		{engine.ManifestLocation("docs/package.json", "lodash", "4.17.19"), true},
		{engine.EndpointLocation("http://localhost/docs", "GET", ""), false},
		{engine.Location{Kind: engine.LocationNone}, false},
	}
	for _, tc := range tests {
		f := engine.Finding{Scanner: engine.ScannerSecret, Identifier: "x", Location: tc.loc}
		if got := a.Suppressed(f); got != tc.want {
			t.Errorf("Suppressed(%s) = %v, want %v", tc.loc, got, tc.want)
		}
	}
}

func TestFilterIsIdempotent(t *testing.T) {
	a, err := New(Spec{
		RuleSet:  RuleSet{Paths: []string{"test-fixtures/**"}},
		Scanners: map[string]RuleSet{"pii": {Patterns: []string{"@test.local"}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	in := []engine.Finding{
		piiEmail("src/a.go", "bob@test.local"),
		piiEmail("src/b.go", "bob@corp.com"),
		piiEmail("test-fixtures/c.go", "carol@corp.com"),
		piiEmail("src/d.go", "dave@corp.com"),
	}
	once, suppressed := a.Filter(in)
	if len(suppressed) != 2 {
		t.Fatalf("expected 2 suppressed, got %d", len(suppressed))
	}
	twice, again := a.Filter(once)
	if len(again) != 0 {
		t.Errorf("second pass suppressed %d more findings", len(again))
	}
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("filter not idempotent (-once +twice):\n%s", diff)
	}
	if diff := cmp.Diff([]engine.Finding{in[1], in[3]}, once); diff != "" {
		t.Errorf("kept findings lost their order (-want +got):\n%s", diff)
	}
}

func TestNewRejectsBadRules(t *testing.T) {
	specs := map[string]Spec{
		"bad glob":        {RuleSet: RuleSet{Paths: []string{"src/[a-"}}},
		"empty path":      {RuleSet: RuleSet{Paths: []string{" "}}},
		"empty pattern":   {RuleSet: RuleSet{Patterns: []string{""}}},
		"bad regex":       {RuleSet: RuleSet{Regexes: []string{"("}}},
		"matches all":     {RuleSet: RuleSet{Regexes: []string{".*"}}},
		"unknown scanner": {Scanners: map[string]RuleSet{"sast": {Paths: []string{"x"}}}},
	}
	for name, spec := range specs {
		t.Run(name, func(t *testing.T) {
			_, err := New(spec)
			var ce *engine.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "allowlist.yaml")
	yml := `paths:
  - test-fixtures/**
scanners:
  pii:
    patterns:
      - testuser@test.local
    regexes:
      - '^\S+@example\.com$'
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	a, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := make([]string, 0)
	for _, r := range a.Rules() {
		got = append(got, r.String())
	}
	want := []string{
		`global path "test-fixtures/**"`,
		`pii pattern "testuser@test.local"`,
		`pii regex "^\\S+@example\\.com$"`,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rules mismatch (-want +got):\n%s", diff)
	}

	unknown := filepath.Join(dir, "unknown.yaml")
	if err := os.WriteFile(unknown, []byte("pathz: [a]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(unknown); !engine.IsFatal(err) {
		t.Errorf("unknown key should be a ConfigError, got %v", err)
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); !engine.IsFatal(err) {
		t.Errorf("missing file should be a ConfigError, got %v", err)
	}
}

func TestExampleAllowlistLoads(t *testing.T) {
	a, err := Load(filepath.Join("..", "..", "security.allowlist.example.yaml"))
	if err != nil {
		t.Fatalf("example allowlist: %v", err)
	}
	if got := len(a.Rules()); got != 5 {
		t.Errorf("expected 5 rules, got %d", got)
	}
}
