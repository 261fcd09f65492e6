package history

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/user/secgate/pkg/engine"
	"github.com/user/secgate/pkg/report"
)

func TestNewRun(t *testing.T) {
	findings := []engine.Finding{
		engine.UnavailableFinding(engine.ScannerDynamicWeb, "report not found: zap.json"),
	}
	policy := engine.DefaultPolicy()
	r := report.New("run-7", time.Now(), findings, engine.Evaluate(findings, policy), policy, []report.ScannerInput{
		{Scanner: engine.ScannerSecret, Status: report.StatusOK, Suppressed: 4},
	})

	run, err := NewRun(r)
	if err != nil {
		t.Fatal(err)
	}
	if run.RunID != "run-7" || run.Passed || run.Findings != 1 || run.Failing != 1 || run.Suppressed != 4 {
		t.Errorf("unexpected run %+v", run)
	}
	if run.Summary != r.SummaryLine() {
		t.Errorf("Summary = %q", run.Summary)
	}

	var scanners map[string]struct {
		Status     string `json:"status"`
		Suppressed int    `json:"suppressed"`
		Counts     struct {
			Critical int `json:"critical"`
		} `json:"counts"`
	}
	if err := json.Unmarshal(run.Scanners, &scanners); err != nil {
		t.Fatal(err)
	}
	if len(scanners) != 4 || scanners["secret"].Suppressed != 4 || scanners["dynamic-web"].Counts.Critical != 1 || scanners["pii"].Status != report.StatusUnavailable {
		t.Errorf("unexpected scanner rows %+v", scanners)
	}
}
