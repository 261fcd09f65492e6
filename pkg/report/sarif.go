package report

import (
	"fmt"
	"strings"

	"github.com/user/secgate/pkg/engine"
)

// Log is a SARIF 2.1.0 log, trimmed to what code-scanning UIs read.
type Log struct {
	Version string `json:"version"`
	Schema  string `json:"$schema"`
	Runs    []Run  `json:"runs"`
}

type Run struct {
	Tool    Tool     `json:"tool"`
	Results []Result `json:"results"`
}

type Tool struct {
	Driver Driver `json:"driver"`
}

type Driver struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type Result struct {
	RuleID     string            `json:"ruleId"`
	Level      string            `json:"level"` // error, warning, note
	Message    Message           `json:"message"`
	Locations  []Location        `json:"locations,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

type Message struct {
	Text string `json:"text"`
}

type Location struct {
	PhysicalLocation PhysicalLocation `json:"physicalLocation"`
}

type PhysicalLocation struct {
	ArtifactLocation ArtifactLocation `json:"artifactLocation"`
	Region           *Region          `json:"region,omitempty"`
}

type ArtifactLocation struct {
	URI string `json:"uri"`
}

type Region struct {
	StartLine int `json:"startLine"`
}

// ToolVersion is stamped into SARIF output.
var ToolVersion = "0.1.0"

// ToSARIF converts the aggregated findings of r into one SARIF run.
func ToSARIF(r *Report) Log {
	results := make([]Result, 0, len(r.Findings))
	for _, f := range r.Findings {
		res := Result{
			RuleID:  fmt.Sprintf("%s/%s", f.Scanner, f.Identifier),
			Level:   sevToLevel(f.Severity),
			Message: Message{Text: strings.TrimSpace(f.Description)},
			Properties: map[string]string{
				"scanner":  string(f.Scanner),
				"severity": f.Severity.String(),
			},
		}
		if uri := f.Location.PathComponent(); uri != "" {
			loc := Location{PhysicalLocation: PhysicalLocation{ArtifactLocation: ArtifactLocation{URI: uri}}}
			if f.Location.Line > 0 {
				loc.PhysicalLocation.Region = &Region{StartLine: f.Location.Line}
			}
			res.Locations = []Location{loc}
		}
		results = append(results, res)
	}

	return Log{
		Version: "2.1.0",
		Schema:  "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json",
		Runs: []Run{
			{
				Tool:    Tool{Driver: Driver{Name: "secgate", Version: ToolVersion}},
				Results: results,
			},
		},
	}
}

func sevToLevel(s engine.Severity) string {
	switch s {
	case engine.Critical, engine.High:
		return "error"
	case engine.Medium:
		return "warning"
	default:
		return "note"
	}
}
