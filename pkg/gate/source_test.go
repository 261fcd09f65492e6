package gate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/user/secgate/pkg/engine"
	"github.com/user/secgate/pkg/wrappers"
)

func TestFromResults(t *testing.T) {
	results := []wrappers.Result{
		{
			// Timed out but left a report behind: still parsed.
			Wrapper: wrappers.Wrapper{Scanner: engine.ScannerSecret, Tool: "gitleaks"},
			Err:     context.DeadlineExceeded,
			Reports: []wrappers.Report{{Path: "reports/gitleaks.json", Data: []byte(awsLeak)}},
		},
		{
			Wrapper: wrappers.Wrapper{Scanner: engine.ScannerDynamicWeb, Tool: "docker"},
			Err:     errors.New("exit status 3"),
			Reports: []wrappers.Report{{Path: "reports/zap.json", Err: fs.ErrNotExist}},
		},
		{
			Wrapper: wrappers.Wrapper{Scanner: engine.ScannerPII, Tool: "python3"},
			Err:     errors.New("'python3' binary not found"),
		},
	}
	srcs := FromResults(results)
	if len(srcs) != 3 {
		t.Fatalf("expected 3 sources, got %d", len(srcs))
	}
	if srcs[0].Err != nil || len(srcs[0].Data) == 0 {
		t.Errorf("partial report should be handed over: %+v", srcs[0])
	}
	var ue *engine.UnavailableError
	if !errors.As(srcs[1].Err, &ue) || ue.Reason != "report not found: reports/zap.json (exit status 3)" {
		t.Errorf("unexpected dynamic-web source error %v", srcs[1].Err)
	}
	if !errors.As(srcs[2].Err, &ue) || ue.Scanner != engine.ScannerPII {
		t.Errorf("unexpected pii source error %v", srcs[2].Err)
	}

	r := evaluate(t, engine.DefaultPolicy(), nil, srcs)
	st := statuses(r)
	if st[engine.ScannerSecret] != "ok" || st[engine.ScannerDynamicWeb] != "unavailable" || st[engine.ScannerPII] != "unavailable" {
		t.Errorf("unexpected statuses %v", st)
	}
}

func TestFromResultsDistrustsFailedTasks(t *testing.T) {
	crashed := fmt.Errorf("gitleaks (secret) failed: %w", errors.New("exit status 126"))
	tests := []struct {
		name      string
		err       error
		wantTrust bool
	}{
		{"clean exit", nil, true},
		{"deadline", fmt.Errorf("gitleaks (secret): %w", context.DeadlineExceeded), true},
		{"cancelled run", fmt.Errorf("gitleaks (secret): %w", context.Canceled), true},
		{"crash", crashed, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srcs := FromResults([]wrappers.Result{{
				Wrapper: wrappers.Wrapper{Scanner: engine.ScannerSecret, Tool: "gitleaks"},
				Err:     tt.err,
				Reports: []wrappers.Report{{Path: "reports/gitleaks.json", Data: []byte("[]")}},
			}})
			if len(srcs) != 1 {
				t.Fatalf("expected 1 source, got %d", len(srcs))
			}
			if trusted := srcs[0].Err == nil && srcs[0].Data != nil; trusted != tt.wantTrust {
				t.Errorf("trusted = %v, want %v (source %+v)", trusted, tt.wantTrust, srcs[0])
			}
		})
	}
}

func TestStaleReportDoesNotPassMissingScanner(t *testing.T) {
	stale := filepath.Join(t.TempDir(), "gitleaks.json")
	if err := os.WriteFile(stale, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}
	w := wrappers.Wrapper{Scanner: engine.ScannerSecret, Tool: "secgate-no-such-gitleaks", Reports: []string{stale}}
	res := w.Execute(context.Background())

	policy, err := engine.NewPolicy(engine.PolicySpec{TolerateUnavailable: []string{"dependency", "dynamic-web", "pii"}})
	if err != nil {
		t.Fatal(err)
	}
	r := evaluate(t, policy, nil, FromResults([]wrappers.Result{res}))
	if st := statuses(r)[engine.ScannerSecret]; st != "unavailable" {
		t.Errorf("secret status = %s, want unavailable", st)
	}
	if r.Verdict.Passed {
		t.Error("a scanner that never ran must fail the gate")
	}
}
