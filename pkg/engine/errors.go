package engine

import (
	"errors"
	"fmt"
)

// MalformedReportError means a scanner's report does not match the schema
// its parser expects. It is local to that scanner's contribution.
type MalformedReportError struct {
	Scanner Scanner
	Source  string
	Err     error
}

func (e *MalformedReportError) Error() string {
	return fmt.Sprintf("malformed %s report %s: %v", e.Scanner, e.Source, e.Err)
}

func (e *MalformedReportError) Unwrap() error { return e.Err }

// PartialParseWarning records a single record skipped or coerced inside an
// otherwise valid report.
type PartialParseWarning struct {
	Scanner Scanner `json:"scanner"`
	Source  string  `json:"source"`
	Record  int     `json:"record"`
	Reason  string  `json:"reason"`
}

func (w PartialParseWarning) String() string {
	return fmt.Sprintf("%s %s record %d: %s", w.Scanner, w.Source, w.Record, w.Reason)
}

// UnavailableError means a scanner's report never materialized.
type UnavailableError struct {
	Scanner Scanner
	Reason  string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s scanner unavailable: %s", e.Scanner, e.Reason)
}

// ConfigError is fatal: the gate refuses to render a verdict from a policy
// or allowlist it cannot trust.
type ConfigError struct {
	Source string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("config error: %v", e.Err)
	}
	return fmt.Sprintf("config error in %s: %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ReportWriteError is fatal: the unified report is the audit record of the
// scan.
type ReportWriteError struct {
	Target string
	Err    error
}

func (e *ReportWriteError) Error() string {
	return fmt.Sprintf("report write failure (%s): %v", e.Target, e.Err)
}

func (e *ReportWriteError) Unwrap() error { return e.Err }

// ErrGateFailed is returned by the pipeline when the verdict did not pass.
var ErrGateFailed = errors.New("security gate failed")

// IsFatal reports whether err should abort the run as an engine error.
func IsFatal(err error) bool {
	var ce *ConfigError
	var we *ReportWriteError
	return errors.As(err, &ce) || errors.As(err, &we)
}
