// Package history records gate runs in Postgres so trends and flapping
// scanners can be queried later.
package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/secgate/pkg/report"
)

const schema = `
CREATE TABLE IF NOT EXISTS gate_runs (
	run_id       TEXT PRIMARY KEY,
	generated_at TIMESTAMPTZ NOT NULL,
	passed       BOOLEAN NOT NULL,
	findings     INTEGER NOT NULL,
	failing      INTEGER NOT NULL,
	suppressed   INTEGER NOT NULL,
	warnings     INTEGER NOT NULL,
	summary      TEXT NOT NULL,
	scanners     JSONB NOT NULL
)`

type Store struct{ Pool *pgxpool.Pool }

func Open(ctx context.Context, url string) (*Store, error) {
	p, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping history database: %w", err)
	}
	return &Store{Pool: p}, nil
}

func (s *Store) Close() { s.Pool.Close() }

func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, schema)
	return err
}

// Run is one row of gate_runs.
type Run struct {
	RunID      string
	Passed     bool
	Findings   int
	Failing    int
	Suppressed int
	Warnings   int
	Summary    string
	Scanners   []byte
}

// NewRun flattens a report into a history row. Findings themselves are not
// stored; the archived report is the full record.
func NewRun(r *report.Report) (Run, error) {
	type scannerRow struct {
		Status     string                `json:"status"`
		Counts     report.SeverityCounts `json:"counts"`
		Suppressed int                   `json:"suppressed"`
	}
	rows := make(map[string]scannerRow, len(r.Scanners))
	for _, sc := range r.Scanners {
		rows[string(sc.Scanner)] = scannerRow{Status: sc.Status, Counts: sc.Counts, Suppressed: sc.Suppressed}
	}
	scanners, err := json.Marshal(rows)
	if err != nil {
		return Run{}, err
	}
	return Run{
		RunID:      r.RunID,
		Passed:     r.Verdict.Passed,
		Findings:   r.Totals.Findings,
		Failing:    r.Totals.Failing,
		Suppressed: r.Totals.Suppressed,
		Warnings:   r.Totals.Warnings,
		Summary:    r.SummaryLine(),
		Scanners:   scanners,
	}, nil
}

// RecordRun inserts the run; recording the same run twice is a no-op.
func (s *Store) RecordRun(ctx context.Context, r *report.Report) error {
	run, err := NewRun(r)
	if err != nil {
		return err
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO gate_runs (run_id, generated_at, passed, findings, failing, suppressed, warnings, summary, scanners)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (run_id) DO NOTHING
	`, run.RunID, r.GeneratedAt, run.Passed, run.Findings, run.Failing, run.Suppressed, run.Warnings, run.Summary, run.Scanners)
	return err
}

// Recent returns the pass/fail outcome of the last n runs, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Run, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT run_id, passed, findings, failing, suppressed, warnings, summary, scanners
		FROM gate_runs
		ORDER BY generated_at DESC
		LIMIT $1
	`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.RunID, &r.Passed, &r.Findings, &r.Failing, &r.Suppressed, &r.Warnings, &r.Summary, &r.Scanners); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
