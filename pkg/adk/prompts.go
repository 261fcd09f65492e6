package adk

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"

	"github.com/user/secgate/pkg/engine"
	"github.com/user/secgate/pkg/report"
)

//go:embed prompts/system_prompt.md
var systemPrompt string

//go:embed prompts/triage.tmpl
var triageTemplate string

// maxPromptFindings bounds the prompt size on very noisy runs.
const maxPromptFindings = 50

var triageTmpl = template.Must(template.New("triage").Parse(triageTemplate))

// SystemPrompt is the instruction given to the model before any report.
func SystemPrompt() string {
	return systemPrompt
}

type promptFinding struct {
	Scanner     engine.Scanner
	Identifier  string
	Severity    engine.Severity
	Location    string
	Description string
	Failing     bool
}

type promptData struct {
	Summary  string
	Passed   bool
	Scanners []report.ScannerSummary
	Findings []promptFinding
	Omitted  int
}

// BuildTriagePrompt renders the report digest. Failing findings come first;
// raw payloads are left out because they may hold live secrets.
func BuildTriagePrompt(r *report.Report) (string, error) {
	failing := make(map[string]bool, len(r.Verdict.Failing))
	for _, f := range r.Verdict.Failing {
		failing[promptKey(f)] = true
	}

	var first, rest []promptFinding
	for _, f := range r.Findings {
		pf := promptFinding{
			Scanner:     f.Scanner,
			Identifier:  f.Identifier,
			Severity:    f.Severity,
			Location:    f.Location.String(),
			Description: f.Description,
			Failing:     failing[promptKey(f)],
		}
		if pf.Failing {
			first = append(first, pf)
		} else {
			rest = append(rest, pf)
		}
	}
	all := append(first, rest...)

	data := promptData{
		Summary:  r.SummaryLine(),
		Passed:   r.Verdict.Passed,
		Scanners: r.Scanners,
		Findings: all,
	}
	if len(all) > maxPromptFindings {
		data.Findings = all[:maxPromptFindings]
		data.Omitted = len(all) - maxPromptFindings
	}

	var buf bytes.Buffer
	if err := triageTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render triage prompt: %v", err)
	}
	return buf.String(), nil
}

func promptKey(f engine.Finding) string {
	return string(f.Scanner) + "\x00" + f.Identifier + "\x00" + f.Location.Key()
}
