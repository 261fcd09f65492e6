package parsers

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/user/secgate/pkg/engine"
)

// A leaked credential is treated as high when the report carries no level.
const secretDefaultSeverity = engine.High

// gitleaksSeverity is the vocabulary some gitleaks configs attach to rules.
type gitleaksSeverity string

const (
	gitleaksInfo     gitleaksSeverity = "info"
	gitleaksLow      gitleaksSeverity = "low"
	gitleaksMedium   gitleaksSeverity = "medium"
	gitleaksHigh     gitleaksSeverity = "high"
	gitleaksCritical gitleaksSeverity = "critical"
)

var gitleaksSeverities = engine.NewSeverityTable("gitleaks.severity",
	[]gitleaksSeverity{gitleaksInfo, gitleaksLow, gitleaksMedium, gitleaksHigh, gitleaksCritical},
	map[gitleaksSeverity]engine.Severity{
		gitleaksInfo:     engine.Info,
		gitleaksLow:      engine.Low,
		gitleaksMedium:   engine.Medium,
		gitleaksHigh:     engine.High,
		gitleaksCritical: engine.Critical,
	})

// GitleaksFinding is one record of `gitleaks detect --report-format json`.
type GitleaksFinding struct {
	Description string   `json:"Description"`
	File        string   `json:"File"`
	StartLine   int      `json:"StartLine"`
	EndLine     int      `json:"EndLine"`
	Secret      string   `json:"Secret"`
	Match       string   `json:"Match"`
	RuleID      string   `json:"RuleID"`
	Fingerprint string   `json:"Fingerprint"`
	Commit      string   `json:"Commit"`
	Tags        []string `json:"Tags"`
	Severity    *string  `json:"Severity"`
}

// SecretParser reads gitleaks JSON (a top-level array) or SARIF.
type SecretParser struct{}

func (SecretParser) Scanner() engine.Scanner { return engine.ScannerSecret }

func (p SecretParser) Parse(source string, r io.Reader) (Result, error) {
	res := Result{Scanner: engine.ScannerSecret, Source: source, Findings: []engine.Finding{}}
	data, empty, err := readReport(r)
	if err != nil {
		return res, malformed(res.Scanner, source, "read: %v", err)
	}
	if empty {
		return res, nil
	}

	switch data[0] {
	case '{':
		err = walkSARIF(&res, data, func(rec sarifRecord) {
			path, line := rec.artifact()
			if rec.result.RuleID == "" || path == "" {
				res.warn(rec.index, "SARIF result without ruleId or artifact location")
				return
			}
			res.Findings = append(res.Findings, engine.Finding{
				Scanner:     engine.ScannerSecret,
				Identifier:  rec.result.RuleID,
				Severity:    rec.severity(&res, secretDefaultSeverity),
				Location:    engine.FileLocation(path, line),
				Description: rec.description(),
				Raw:         rec.raw,
			})
		})
		return res, err
	case '[':
		items, err := decodeObjectArray(data)
		if err != nil {
			return res, malformed(res.Scanner, source, "invalid gitleaks JSON: %v", err)
		}
		for i, raw := range items {
			var gl GitleaksFinding
			if err := json.Unmarshal(raw, &gl); err != nil {
				res.warn(i, "undecodable gitleaks record: %v", err)
				continue
			}
			if gl.RuleID == "" || gl.File == "" {
				res.warn(i, "gitleaks record without RuleID or File")
				continue
			}
			res.Findings = append(res.Findings, engine.Finding{
				Scanner:     engine.ScannerSecret,
				Identifier:  gl.RuleID,
				Severity:    gitleaksLevel(&res, i, gl.Severity),
				Location:    engine.FileLocation(normalizeURI(gl.File), gl.StartLine),
				Description: firstNonEmpty(strings.TrimSpace(gl.Description), gl.RuleID),
				Raw:         raw,
			})
		}
		return res, nil
	}
	return res, malformed(res.Scanner, source, "expected a gitleaks JSON array or a SARIF log")
}

func gitleaksLevel(res *Result, idx int, native *string) engine.Severity {
	level := strings.ToLower(optional(native))
	if level == "" {
		return secretDefaultSeverity
	}
	sev, ok := gitleaksSeverities.Lookup(gitleaksSeverity(level))
	if !ok {
		res.warn(idx, "unrecognized gitleaks severity %q, treated as critical", level)
		return engine.Critical
	}
	return sev
}
