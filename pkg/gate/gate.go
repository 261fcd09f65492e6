// Package gate runs the findings pipeline for one CI run: parse every
// report, drop allowlisted findings, aggregate, evaluate the policy and
// assemble the unified report.
package gate

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/user/secgate/pkg/allowlist"
	"github.com/user/secgate/pkg/engine"
	"github.com/user/secgate/pkg/parsers"
	"github.com/user/secgate/pkg/report"
)

// Gate holds the immutable configuration of a run.
type Gate struct {
	policy    engine.Policy
	allowlist *allowlist.Allowlist
	log       *zap.SugaredLogger

	now   func() time.Time
	newID func() string
}

// New builds a gate. A nil allowlist suppresses nothing and a nil logger
// discards output.
func New(policy engine.Policy, allow *allowlist.Allowlist, log *zap.SugaredLogger) *Gate {
	if allow == nil {
		allow = allowlist.Empty()
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Gate{
		policy:    policy,
		allowlist: allow,
		log:       log,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// scanOutcome is one scanner kind's contribution to the run.
type scanOutcome struct {
	batches []engine.Batch
	input   report.ScannerInput
}

// Evaluate produces the unified report. Problems with individual reports
// never fail the call; they surface as unavailable scanners in the report.
// The only error is a source naming an unknown scanner kind.
func (g *Gate) Evaluate(sources []Source) (*report.Report, error) {
	byKind := make(map[engine.Scanner][]Source)
	for _, src := range sources {
		if !src.Scanner.Valid() {
			return nil, &engine.ConfigError{Source: "inputs", Err: fmt.Errorf("unknown scanner %q for %s", src.Scanner, src.Name)}
		}
		byKind[src.Scanner] = append(byKind[src.Scanner], src)
	}

	outcomes := make([]scanOutcome, len(engine.Scanners))
	var eg errgroup.Group
	for i, kind := range engine.Scanners {
		i, kind := i, kind
		eg.Go(func() error {
			outcomes[i] = g.scan(kind, byKind[kind])
			return nil
		})
	}
	_ = eg.Wait()

	var batches []engine.Batch
	inputs := make([]report.ScannerInput, 0, len(outcomes))
	for _, o := range outcomes {
		batches = append(batches, o.batches...)
		inputs = append(inputs, o.input)
	}

	findings := engine.Aggregate(batches...)
	verdict := engine.Evaluate(findings, g.policy)
	r := report.New(g.newID(), g.now(), findings, verdict, g.policy, inputs)

	g.log.Infow("gate evaluated",
		"run_id", r.RunID,
		"passed", verdict.Passed,
		"findings", r.Totals.Findings,
		"failing", r.Totals.Failing,
		"suppressed", r.Totals.Suppressed)
	return r, nil
}

func (g *Gate) scan(kind engine.Scanner, sources []Source) scanOutcome {
	out := scanOutcome{input: report.ScannerInput{Scanner: kind, Sources: []string{}}}
	log := g.log.With("scanner", kind)

	if len(sources) == 0 {
		reason := "no report configured"
		log.Warnw("scanner unavailable", "reason", reason)
		out.input.Status = report.StatusUnavailable
		out.input.Errors = []string{reason}
		out.batches = append(out.batches, unavailableBatch(kind, reason))
		return out
	}

	sorted := make([]Source, len(sources))
	copy(sorted, sources)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	parser, _ := parsers.For(kind)
	parsed := 0
	var reasons []string
	for _, src := range sorted {
		out.input.Sources = append(out.input.Sources, src.Name)
		if src.Err != nil {
			reason := unavailableReason(src.Err)
			log.Warnw("report unavailable", "source", src.Name, "reason", reason)
			reasons = append(reasons, reason)
			continue
		}

		res, err := parser.Parse(src.Name, bytes.NewReader(src.Data))
		out.input.Warnings = append(out.input.Warnings, res.Warnings...)
		for _, w := range res.Warnings {
			log.Debugw("record skipped", "source", w.Source, "record", w.Record, "reason", w.Reason)
		}
		if err != nil {
			log.Warnw("report rejected", "source", src.Name, "error", err)
			reasons = append(reasons, err.Error())
			continue
		}

		kept, suppressed := g.allowlist.Filter(res.Findings)
		out.input.Suppressed += len(suppressed)
		out.batches = append(out.batches, engine.Batch{Scanner: kind, Source: src.Name, Findings: kept})
		parsed++
		log.Debugw("report parsed", "source", src.Name, "findings", len(kept), "suppressed", len(suppressed), "warnings", len(res.Warnings))
	}

	out.input.Errors = reasons
	switch {
	case len(reasons) == 0:
		out.input.Status = report.StatusOK
	case parsed > 0:
		out.input.Status = report.StatusDegraded
	default:
		out.input.Status = report.StatusUnavailable
	}
	if len(reasons) > 0 {
		out.batches = append(out.batches, unavailableBatch(kind, strings.Join(reasons, "; ")))
	}
	return out
}

func unavailableBatch(kind engine.Scanner, reason string) engine.Batch {
	return engine.Batch{
		Scanner:  kind,
		Source:   string(kind),
		Findings: []engine.Finding{engine.UnavailableFinding(kind, reason)},
	}
}

func unavailableReason(err error) string {
	var ue *engine.UnavailableError
	if errors.As(err, &ue) {
		return ue.Reason
	}
	return err.Error()
}
