package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultPolicyFailsAnyFinding(t *testing.T) {
	p := DefaultPolicy()
	for _, kind := range Scanners {
		if p.Threshold(kind) != Info {
			t.Errorf("default threshold for %s = %s, want info", kind, p.Threshold(kind))
		}
	}
	v := Evaluate([]Finding{{Scanner: ScannerPII, Identifier: "x", Severity: Info}}, p)
	if v.Passed || len(v.Failing) != 1 {
		t.Errorf("expected an info finding to fail the default policy, got %+v", v)
	}
}

func TestEvaluateThresholds(t *testing.T) {
	p, err := NewPolicy(PolicySpec{Thresholds: map[string]string{"dependency": "high"}})
	if err != nil {
		t.Fatal(err)
	}
	lodash := func(sev Severity) Finding {
		return Finding{
			Scanner:    ScannerDependency,
			Identifier: "CVE-2020-8203",
			Severity:   sev,
			Location:   ManifestLocation("package.json", "lodash", "4.17.19"),
		}
	}

	tests := []struct {
		name   string
		sev    Severity
		passed bool
	}{
		{"critical above threshold", Critical, false},
		{"high at threshold", High, false},
		{"medium below threshold", Medium, true},
		{"low below threshold", Low, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := lodash(tc.sev)
			v := Evaluate([]Finding{f}, p)
			if v.Passed != tc.passed {
				t.Fatalf("Passed = %v, want %v", v.Passed, tc.passed)
			}
			if tc.passed && len(v.Failing) != 0 {
				t.Errorf("passing verdict lists failing findings: %+v", v.Failing)
			}
			if !tc.passed {
				if diff := cmp.Diff([]Finding{f}, v.Failing); diff != "" {
					t.Errorf("Failing mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestEvaluateEmptyPasses(t *testing.T) {
	v := Evaluate(nil, DefaultPolicy())
	if !v.Passed || v.Failing == nil || len(v.Failing) != 0 {
		t.Errorf("Evaluate(nil) = %+v, want passed with empty failing list", v)
	}
}

func TestUnavailableScannerTolerance(t *testing.T) {
	f := UnavailableFinding(ScannerDynamicWeb, "report not found")
	if !f.Unavailable() || f.Severity != Critical {
		t.Fatalf("unexpected unavailable finding: %+v", f)
	}

	lenient, err := NewPolicy(PolicySpec{Thresholds: map[string]string{"dynamic-web": "critical"}})
	if err != nil {
		t.Fatal(err)
	}
	if Evaluate([]Finding{f}, lenient).Passed {
		t.Error("an unavailable scanner must fail unless tolerated")
	}

	tolerant, err := NewPolicy(PolicySpec{TolerateUnavailable: []string{"dast"}})
	if err != nil {
		t.Fatal(err)
	}
	if !Evaluate([]Finding{f}, tolerant).Passed {
		t.Error("tolerate_unavailable should let the unavailable finding pass")
	}
}

func TestNewPolicyRejectsBadSpec(t *testing.T) {
	specs := []PolicySpec{
		{Thresholds: map[string]string{"sast": "high"}},
		{Thresholds: map[string]string{"secret": "severe"}},
		{TolerateUnavailable: []string{"nope"}},
	}
	for _, spec := range specs {
		_, err := NewPolicy(spec)
		var ce *ConfigError
		if !errors.As(err, &ce) {
			t.Errorf("NewPolicy(%+v) error = %v, want ConfigError", spec, err)
		}
	}
}

func TestPolicySpecIsTotal(t *testing.T) {
	p, err := NewPolicy(PolicySpec{Thresholds: map[string]string{"secret": "medium"}})
	if err != nil {
		t.Fatal(err)
	}
	want := PolicySpec{Thresholds: map[string]string{
		"secret":      "medium",
		"dependency":  "info",
		"dynamic-web": "info",
		"pii":         "info",
	}}
	if diff := cmp.Diff(want, p.Spec()); diff != "" {
		t.Errorf("Spec mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadPolicy(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "policy.yaml")
	if err := os.WriteFile(good, []byte("thresholds:\n  pii: medium\ntolerate_unavailable: [dynamic-web]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := LoadPolicy(good)
	if err != nil {
		t.Fatalf("LoadPolicy: %v", err)
	}
	if p.Threshold(ScannerPII) != Medium || !p.ToleratesUnavailable(ScannerDynamicWeb) {
		t.Errorf("unexpected policy %+v", p.Spec())
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("threshold:\n  pii: medium\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPolicy(bad); !IsFatal(err) {
		t.Errorf("unknown key should be a fatal ConfigError, got %v", err)
	}

	empty := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if p, err := LoadPolicy(empty); err != nil || p.Threshold(ScannerSecret) != Info {
		t.Errorf("empty policy file should give the default policy, got %v", err)
	}
}
