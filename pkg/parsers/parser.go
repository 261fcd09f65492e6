// Package parsers turns native scanner reports into normalized findings.
// Parsers only read the stream they are given.
package parsers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/user/secgate/pkg/engine"
)

// Result is one parsed report.
type Result struct {
	Scanner  engine.Scanner
	Source   string
	Findings []engine.Finding
	Warnings []engine.PartialParseWarning
}

// Batch hands the findings to the aggregator.
func (r Result) Batch() engine.Batch {
	return engine.Batch{Scanner: r.Scanner, Source: r.Source, Findings: r.Findings}
}

func (r *Result) warn(record int, format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, engine.PartialParseWarning{
		Scanner: r.Scanner,
		Source:  r.Source,
		Record:  record,
		Reason:  fmt.Sprintf(format, args...),
	})
}

// Parser reads one scanner family's native report format.
type Parser interface {
	Scanner() engine.Scanner
	// Parse returns a *engine.MalformedReportError when the stream does not
	// match the expected schema. Bad individual records become warnings.
	Parse(source string, r io.Reader) (Result, error)
}

var registry = map[engine.Scanner]Parser{
	engine.ScannerSecret:     SecretParser{},
	engine.ScannerDependency: DependencyParser{},
	engine.ScannerDynamicWeb: DynamicWebParser{},
	engine.ScannerPII:        PIIParser{},
}

// For returns the parser registered for a scanner kind.
func For(kind engine.Scanner) (Parser, bool) {
	p, ok := registry[kind]
	return p, ok
}

// readReport slurps the stream. A report that is empty or only whitespace
// has no findings.
func readReport(r io.Reader) ([]byte, bool, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, false, err
	}
	data = bytes.TrimSpace(data)
	return data, len(data) == 0, nil
}

func malformed(kind engine.Scanner, source string, format string, args ...interface{}) error {
	return &engine.MalformedReportError{Scanner: kind, Source: source, Err: fmt.Errorf(format, args...)}
}

// decodeObjectArray decodes the JSON array at data into raw elements.
func decodeObjectArray(data []byte) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// optional reads an optional native string field; absent and blank are the
// same thing.
func optional(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}
