package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Scanner identifies the family of tool that produced a finding.
type Scanner string

const (
	ScannerSecret     Scanner = "secret"
	ScannerDependency Scanner = "dependency"
	ScannerDynamicWeb Scanner = "dynamic-web"
	ScannerPII        Scanner = "pii"
)

// Scanners lists every scanner kind in report order.
var Scanners = []Scanner{ScannerSecret, ScannerDependency, ScannerDynamicWeb, ScannerPII}

// Rank is the scanner's position in report order, or -1 if unknown.
func (s Scanner) Rank() int {
	for i, k := range Scanners {
		if k == s {
			return i
		}
	}
	return -1
}

func (s Scanner) Valid() bool { return s.Rank() >= 0 }

// ParseScanner accepts the canonical kind names plus a few aliases seen in
// CI configs ("dast", "sca", "secrets").
func ParseScanner(v string) (Scanner, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "secret", "secrets":
		return ScannerSecret, nil
	case "dependency", "dependencies", "sca":
		return ScannerDependency, nil
	case "dynamic-web", "dynamic", "dast":
		return ScannerDynamicWeb, nil
	case "pii", "privacy":
		return ScannerPII, nil
	}
	return "", fmt.Errorf("unknown scanner kind %q", v)
}

// Finding represents a normalized security or privacy issue from any scanner.
type Finding struct {
	Scanner     Scanner         `json:"scanner"`
	Identifier  string          `json:"identifier"`
	Severity    Severity        `json:"severity"`
	Location    Location        `json:"location"`
	Description string          `json:"description"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

// UnavailableIdentifier marks the synthetic finding recorded for a scanner
// whose report never materialized or could not be parsed.
const UnavailableIdentifier = "scanner-unavailable"

// Unavailable reports whether f stands in for a missing scanner report.
func (f Finding) Unavailable() bool {
	return f.Identifier == UnavailableIdentifier
}

// dedupeKey is the identity used to collapse repeated reports of the same
// issue by one scanner.
func (f Finding) dedupeKey() string {
	return string(f.Scanner) + "\x00" + f.Identifier + "\x00" + f.Location.Key()
}

// UnavailableFinding builds the stand-in finding for a scanner kind. It is
// always critical so that any threshold fails it.
func UnavailableFinding(kind Scanner, reason string) Finding {
	raw, _ := json.Marshal(struct {
		Reason string `json:"reason"`
	}{reason})
	return Finding{
		Scanner:     kind,
		Identifier:  UnavailableIdentifier,
		Severity:    Critical,
		Location:    Location{Kind: LocationNone},
		Description: fmt.Sprintf("%s scanner unavailable: %s", kind, reason),
		Raw:         raw,
	}
}
