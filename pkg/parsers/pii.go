package parsers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/user/secgate/pkg/engine"
)

// piiSeverity is the PII scanner's own severity vocabulary.
type piiSeverity string

const (
	piiLow    piiSeverity = "low"
	piiMedium piiSeverity = "medium"
	piiHigh   piiSeverity = "high"
)

var piiSeverities = engine.NewSeverityTable("pii.severity",
	[]piiSeverity{piiLow, piiMedium, piiHigh},
	map[piiSeverity]engine.Severity{
		piiLow:    engine.Low,
		piiMedium: engine.Medium,
		piiHigh:   engine.High,
	})

type piiReport struct {
	GeneratedAt    string             `json:"generated_at"`
	RepositoryRoot string             `json:"repository_root"`
	Issues         *[]json.RawMessage `json:"issues"`
}

// PIIIssue is one record of the PII scanner report.
type PIIIssue struct {
	File     string  `json:"file"`
	Line     int     `json:"line"`
	Type     string  `json:"type"`
	Match    string  `json:"match"`
	Severity *string `json:"severity"`
	Context  string  `json:"context"`
}

// PIIParser reads the pipeline's own PII scanner report.
type PIIParser struct{}

func (PIIParser) Scanner() engine.Scanner { return engine.ScannerPII }

func (PIIParser) Parse(source string, r io.Reader) (Result, error) {
	res := Result{Scanner: engine.ScannerPII, Source: source, Findings: []engine.Finding{}}
	data, empty, err := readReport(r)
	if err != nil {
		return res, malformed(res.Scanner, source, "read: %v", err)
	}
	if empty {
		return res, nil
	}

	var report piiReport
	if err := json.Unmarshal(data, &report); err != nil {
		return res, malformed(res.Scanner, source, "invalid PII report JSON: %v", err)
	}
	if report.Issues == nil {
		return res, malformed(res.Scanner, source, "PII report has no issues array")
	}

	root := strings.TrimSuffix(report.RepositoryRoot, "/")
	for i, raw := range *report.Issues {
		var issue PIIIssue
		if err := json.Unmarshal(raw, &issue); err != nil {
			res.warn(i, "undecodable PII issue: %v", err)
			continue
		}
		if issue.File == "" || issue.Type == "" {
			res.warn(i, "PII issue without file or type")
			continue
		}

		sev := engine.Info
		if level := strings.ToLower(optional(issue.Severity)); level != "" {
			s, ok := piiSeverities.Lookup(piiSeverity(level))
			if !ok {
				res.warn(i, "unrecognized PII severity %q, treated as critical", level)
				s = engine.Critical
			}
			sev = s
		}

		path := issue.File
		if root != "" {
			path = strings.TrimPrefix(path, root+"/")
		}
		path = normalizeURI(path)

		res.Findings = append(res.Findings, engine.Finding{
			Scanner:     engine.ScannerPII,
			Identifier:  piiIdentifier(issue.Type, path, issue.Line, issue.Match),
			Severity:    sev,
			Location:    engine.FileLocation(path, issue.Line),
			Description: fmt.Sprintf("%s detected", issue.Type),
			Raw:         raw,
		})
	}
	return res, nil
}

// piiIdentifier is the PII category plus a short hash of where it was found.
func piiIdentifier(kind, path string, line int, match string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%d\x00%s", path, line, match)))
	return "pii:" + strings.ToLower(kind) + ":" + hex.EncodeToString(sum[:])[:12]
}
