package parsers

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/user/secgate/pkg/engine"
)

const sarifVersion = "2.1.0"

// sarifLevel is the SARIF result.level vocabulary.
type sarifLevel string

const (
	sarifError   sarifLevel = "error"
	sarifWarning sarifLevel = "warning"
	sarifNote    sarifLevel = "note"
	sarifNone    sarifLevel = "none"
)

var sarifLevels = engine.NewSeverityTable("sarif.level",
	[]sarifLevel{sarifError, sarifWarning, sarifNote, sarifNone},
	map[sarifLevel]engine.Severity{
		sarifError:   engine.High,
		sarifWarning: engine.Medium,
		sarifNote:    engine.Low,
		sarifNone:    engine.Info,
	})

type sarifLog struct {
	Version string          `json:"version"`
	Runs    json.RawMessage `json:"runs"`
}

type sarifRun struct {
	Tool struct {
		Driver struct {
			Name  string      `json:"name"`
			Rules []sarifRule `json:"rules"`
		} `json:"driver"`
	} `json:"tool"`
	Results []json.RawMessage `json:"results"`
}

type sarifRule struct {
	ID               string                 `json:"id"`
	ShortDescription sarifText              `json:"shortDescription"`
	Properties       map[string]interface{} `json:"properties"`
}

type sarifText struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID     string                 `json:"ruleId"`
	RuleIndex  *int                   `json:"ruleIndex"`
	Level      string                 `json:"level"`
	Message    sarifText              `json:"message"`
	Locations  []sarifLocation        `json:"locations"`
	Properties map[string]interface{} `json:"properties"`
}

type sarifLocation struct {
	PhysicalLocation struct {
		ArtifactLocation struct {
			URI string `json:"uri"`
		} `json:"artifactLocation"`
		Region struct {
			StartLine int `json:"startLine"`
		} `json:"region"`
	} `json:"physicalLocation"`
	LogicalLocations []struct {
		Name               string `json:"name"`
		FullyQualifiedName string `json:"fullyQualifiedName"`
	} `json:"logicalLocations"`
}

// sarifRecord is one decoded result with its rule resolved.
type sarifRecord struct {
	index  int
	result sarifResult
	rule   *sarifRule
	raw    json.RawMessage
}

// walkSARIF validates the log envelope and calls fn for every result that
// decodes. Results that do not decode are recorded as warnings.
func walkSARIF(res *Result, data []byte, fn func(rec sarifRecord)) error {
	var log sarifLog
	if err := json.Unmarshal(data, &log); err != nil {
		return malformed(res.Scanner, res.Source, "invalid SARIF JSON: %v", err)
	}
	if log.Version != sarifVersion {
		return malformed(res.Scanner, res.Source, "unsupported SARIF version %q (want %s)", log.Version, sarifVersion)
	}
	if len(log.Runs) == 0 {
		return malformed(res.Scanner, res.Source, "SARIF log has no runs")
	}
	var runs []sarifRun
	if err := json.Unmarshal(log.Runs, &runs); err != nil {
		return malformed(res.Scanner, res.Source, "invalid SARIF runs: %v", err)
	}

	record := 0
	for _, run := range runs {
		rules := make(map[string]*sarifRule, len(run.Tool.Driver.Rules))
		for i := range run.Tool.Driver.Rules {
			rules[run.Tool.Driver.Rules[i].ID] = &run.Tool.Driver.Rules[i]
		}
		for _, raw := range run.Results {
			rec := sarifRecord{index: record, raw: raw}
			record++
			if err := json.Unmarshal(raw, &rec.result); err != nil {
				res.warn(rec.index, "undecodable SARIF result: %v", err)
				continue
			}
			if idx := rec.result.RuleIndex; idx != nil && *idx >= 0 && *idx < len(run.Tool.Driver.Rules) {
				rec.rule = &run.Tool.Driver.Rules[*idx]
			} else if r, ok := rules[rec.result.RuleID]; ok {
				rec.rule = r
			}
			if rec.result.RuleID == "" && rec.rule != nil {
				rec.result.RuleID = rec.rule.ID
			}
			fn(rec)
		}
	}
	return nil
}

// severity resolves a result's severity: security-severity on the result,
// then on its rule, then the SARIF level. def applies when none is present.
func (rec sarifRecord) severity(res *Result, def engine.Severity) engine.Severity {
	if sev, ok := securitySeverity(rec.result.Properties); ok {
		return sev
	}
	if rec.rule != nil {
		if sev, ok := securitySeverity(rec.rule.Properties); ok {
			return sev
		}
	}
	level := strings.ToLower(strings.TrimSpace(rec.result.Level))
	if level == "" {
		return def
	}
	sev, ok := sarifLevels.Lookup(sarifLevel(level))
	if !ok {
		res.warn(rec.index, "unrecognized SARIF level %q, treated as critical", rec.result.Level)
		return engine.Critical
	}
	return sev
}

func (rec sarifRecord) description() string {
	msg := strings.TrimSpace(rec.result.Message.Text)
	if msg == "" && rec.rule != nil {
		msg = strings.TrimSpace(rec.rule.ShortDescription.Text)
	}
	if msg == "" {
		msg = rec.result.RuleID
	}
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = strings.TrimSpace(msg[:i])
	}
	return msg
}

func (rec sarifRecord) artifact() (string, int) {
	for _, loc := range rec.result.Locations {
		if uri := loc.PhysicalLocation.ArtifactLocation.URI; uri != "" {
			return normalizeURI(uri), loc.PhysicalLocation.Region.StartLine
		}
	}
	return "", 0
}

// securitySeverity maps the GitHub code-scanning "security-severity" CVSS
// score onto the shared scale.
func securitySeverity(props map[string]interface{}) (engine.Severity, bool) {
	v, ok := props["security-severity"]
	if !ok {
		return engine.Info, false
	}
	var score float64
	switch t := v.(type) {
	case float64:
		score = t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return engine.Info, false
		}
		score = f
	default:
		return engine.Info, false
	}
	switch {
	case score >= 9.0:
		return engine.Critical, true
	case score >= 7.0:
		return engine.High, true
	case score >= 4.0:
		return engine.Medium, true
	case score > 0:
		return engine.Low, true
	}
	return engine.Info, true
}

func normalizeURI(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimPrefix(p, "file://")
	for strings.HasPrefix(p, "../") {
		p = strings.TrimPrefix(p, "../")
	}
	return strings.TrimPrefix(p, "./")
}
