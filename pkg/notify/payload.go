package notify

import (
	"time"

	"github.com/user/secgate/pkg/engine"
	"github.com/user/secgate/pkg/report"
)

// EventGateCompleted is the only event type sent today.
const EventGateCompleted = "gate.completed"

// maxFailing caps the findings listed in a notification.
const maxFailing = 20

// Payload is the JSON body posted to the webhook.
type Payload struct {
	EventType string `json:"eventType"`
	Timestamp string `json:"timestamp"`
	RunID     string `json:"runId"`
	Passed    bool   `json:"passed"`

	// Text is the one-line summary, usable directly by chat webhooks.
	Text     string                           `json:"text"`
	Totals   report.Totals                    `json:"totals"`
	Scanners []ScannerStatus                  `json:"scanners"`
	Counts   map[string]report.SeverityCounts `json:"counts"`
	Failing  []FailingFinding                 `json:"failing"`
}

// ScannerStatus is a scanner's status line in the payload.
type ScannerStatus struct {
	Scanner engine.Scanner `json:"scanner"`
	Status  string         `json:"status"`
}

// FailingFinding is a finding stripped of its raw payload. Raw scanner
// output can contain the very secret that was detected.
type FailingFinding struct {
	Scanner     engine.Scanner  `json:"scanner"`
	Identifier  string          `json:"identifier"`
	Severity    engine.Severity `json:"severity"`
	Location    string          `json:"location"`
	Description string          `json:"description"`
}

// NewPayload summarizes r for a webhook.
func NewPayload(r *report.Report, now time.Time) Payload {
	p := Payload{
		EventType: EventGateCompleted,
		Timestamp: now.UTC().Format(time.RFC3339),
		RunID:     r.RunID,
		Passed:    r.Verdict.Passed,
		Text:      r.SummaryLine(),
		Totals:    r.Totals,
		Scanners:  make([]ScannerStatus, 0, len(r.Scanners)),
		Failing:   make([]FailingFinding, 0),
		Counts:    make(map[string]report.SeverityCounts, len(r.Scanners)),
	}
	for _, s := range r.Scanners {
		p.Scanners = append(p.Scanners, ScannerStatus{Scanner: s.Scanner, Status: s.Status})
		p.Counts[string(s.Scanner)] = s.Counts
	}
	for i, f := range r.Verdict.Failing {
		if i == maxFailing {
			break
		}
		p.Failing = append(p.Failing, FailingFinding{
			Scanner:     f.Scanner,
			Identifier:  f.Identifier,
			Severity:    f.Severity,
			Location:    f.Location.String(),
			Description: f.Description,
		})
	}
	return p
}
