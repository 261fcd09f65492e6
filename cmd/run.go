package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/secgate/pkg/engine"
	"github.com/user/secgate/pkg/gate"
	"github.com/user/secgate/pkg/wrappers"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the configured scanners concurrently, then evaluate their reports",
	Long: `Invokes every enabled scanner from the config file as an independent
task with its own timeout. When a scanner crashes or times out, whatever
report it left behind is still parsed; a missing report makes that scanner
unavailable. Inputs configured for scanners that are not run are read as in
'evaluate'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := applyEvaluateFlags(cmd, cfg); err != nil {
			return err
		}
		tasks, err := cfg.Wrappers()
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			return &engine.ConfigError{Source: configPath, Err: errors.New("no scanners enabled under 'scanners'")}
		}
		if err := prepareReports(tasks); err != nil {
			return err
		}
		g, err := newGate(cfg)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if d, _ := cmd.Flags().GetDuration("timeout"); d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		results := wrappers.RunAll(ctx, tasks, logger)

		sources := gate.FromResults(results)
		ran := make(map[engine.Scanner]bool, len(tasks))
		for _, t := range tasks {
			ran[t.Scanner] = true
		}
		inputs, err := cfg.InputPaths()
		if err != nil {
			return err
		}
		for kind := range inputs {
			if ran[kind] {
				delete(inputs, kind)
			}
		}
		sources = append(sources, gate.LoadSources(inputs)...)

		r, err := g.Evaluate(sources)
		if err != nil {
			return err
		}
		return publish(cmd.Context(), cfg, r, cmd.OutOrStdout())
	},
}

// prepareReports creates the report directories and removes reports left by
// an earlier run, so only files written by this run are parsed.
func prepareReports(tasks []wrappers.Wrapper) error {
	for _, t := range tasks {
		for _, p := range t.Reports {
			if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
				return &engine.ConfigError{Source: "report_dir", Err: err}
			}
			if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return &engine.ReportWriteError{Target: p, Err: fmt.Errorf("remove stale report: %w", err)}
			}
		}
	}
	return nil
}

func init() {
	addGateFlags(runCmd, false)
	runCmd.Flags().Duration("timeout", 30*time.Minute, "Overall deadline for all scanners")
	rootCmd.AddCommand(runCmd)
}
