// Package report renders the unified gate report. The JSON form is the
// audit record of a run; SARIF and Markdown are derived views.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/user/secgate/pkg/engine"
)

// SchemaVersion is bumped on incompatible changes to the JSON layout.
const SchemaVersion = "1"

// Scanner statuses.
const (
	StatusOK          = "ok"
	StatusDegraded    = "degraded"
	StatusUnavailable = "unavailable"
)

// Report is the unified output of one gate run.
type Report struct {
	SchemaVersion string            `json:"schema_version"`
	RunID         string            `json:"run_id"`
	GeneratedAt   time.Time         `json:"generated_at"`
	Verdict       engine.Verdict    `json:"verdict"`
	Policy        engine.PolicySpec `json:"policy"`
	Totals        Totals            `json:"totals"`
	Scanners      []ScannerSummary  `json:"scanners"`
	Findings      []engine.Finding  `json:"findings"`
}

// Totals are run-wide counts.
type Totals struct {
	Findings   int `json:"findings"`
	Failing    int `json:"failing"`
	Suppressed int `json:"suppressed"`
	Warnings   int `json:"warnings"`
}

// SeverityCounts is a fixed-order tally per severity.
type SeverityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Info     int `json:"info"`
}

func (c *SeverityCounts) add(s engine.Severity) {
	switch s {
	case engine.Critical:
		c.Critical++
	case engine.High:
		c.High++
	case engine.Medium:
		c.Medium++
	case engine.Low:
		c.Low++
	default:
		c.Info++
	}
}

func (c SeverityCounts) String() string {
	return fmt.Sprintf("critical=%d high=%d medium=%d low=%d info=%d", c.Critical, c.High, c.Medium, c.Low, c.Info)
}

// ScannerSummary describes one scanner kind's contribution to the run.
type ScannerSummary struct {
	Scanner    engine.Scanner               `json:"scanner"`
	Status     string                       `json:"status"`
	Threshold  engine.Severity              `json:"threshold"`
	Sources    []string                     `json:"sources"`
	Counts     SeverityCounts               `json:"counts"`
	Suppressed int                          `json:"suppressed"`
	Errors     []string                     `json:"errors,omitempty"`
	Warnings   []engine.PartialParseWarning `json:"warnings,omitempty"`
}

// ScannerInput is what the pipeline knows about a scanner before the
// findings are counted.
type ScannerInput struct {
	Scanner    engine.Scanner
	Status     string
	Sources    []string
	Suppressed int
	Errors     []string
	Warnings   []engine.PartialParseWarning
}

// New assembles a report. findings must already be aggregated; scanners may
// be partial, every kind is listed in the result.
func New(runID string, now time.Time, findings []engine.Finding, verdict engine.Verdict, policy engine.Policy, scanners []ScannerInput) *Report {
	byKind := make(map[engine.Scanner]ScannerInput, len(scanners))
	for _, s := range scanners {
		byKind[s.Scanner] = s
	}

	r := &Report{
		SchemaVersion: SchemaVersion,
		RunID:         runID,
		GeneratedAt:   now.UTC(),
		Verdict:       verdict,
		Policy:        policy.Spec(),
		Findings:      findings,
	}
	if r.Findings == nil {
		r.Findings = []engine.Finding{}
	}
	if r.Verdict.Failing == nil {
		r.Verdict.Failing = []engine.Finding{}
	}

	for _, kind := range engine.Scanners {
		in, ok := byKind[kind]
		status := in.Status
		if !ok || status == "" {
			status = StatusUnavailable
		}
		sum := ScannerSummary{
			Scanner:    kind,
			Status:     status,
			Threshold:  policy.Threshold(kind),
			Sources:    in.Sources,
			Suppressed: in.Suppressed,
			Errors:     in.Errors,
			Warnings:   in.Warnings,
		}
		if sum.Sources == nil {
			sum.Sources = []string{}
		}
		for _, f := range findings {
			if f.Scanner == kind {
				sum.Counts.add(f.Severity)
			}
		}
		r.Scanners = append(r.Scanners, sum)
		r.Totals.Suppressed += in.Suppressed
		r.Totals.Warnings += len(in.Warnings)
	}
	r.Totals.Findings = len(r.Findings)
	r.Totals.Failing = len(r.Verdict.Failing)
	return r
}

// SummaryLine is the one-line human summary: PASS/FAIL plus counts per
// severity per scanner.
func (r *Report) SummaryLine() string {
	var sb strings.Builder
	if r.Verdict.Passed {
		sb.WriteString("PASS")
	} else {
		sb.WriteString("FAIL")
	}
	for _, s := range r.Scanners {
		fmt.Fprintf(&sb, " %s[%s]", s.Scanner, s.Counts)
		if s.Status != StatusOK {
			fmt.Fprintf(&sb, "(%s)", s.Status)
		}
	}
	fmt.Fprintf(&sb, " failing=%d total=%d suppressed=%d", r.Totals.Failing, r.Totals.Findings, r.Totals.Suppressed)
	return sb.String()
}
