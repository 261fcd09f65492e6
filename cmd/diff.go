package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/user/secgate/pkg/engine"
	"github.com/user/secgate/pkg/report"
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Compare two unified reports: new, fixed and unchanged findings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		baselinePath, _ := cmd.Flags().GetString("baseline")
		currentPath, _ := cmd.Flags().GetString("current")
		failOnNew, _ := cmd.Flags().GetBool("fail-on-new")

		baseline, err := report.Read(baselinePath)
		if err != nil {
			return &engine.ConfigError{Source: baselinePath, Err: err}
		}
		current, err := report.Read(currentPath)
		if err != nil {
			return &engine.ConfigError{Source: currentPath, Err: err}
		}

		d := engine.CompareBaseline(current.Findings, baseline.Findings)
		out := cmd.OutOrStdout()
		printFindings(out, "new", d.New)
		printFindings(out, "fixed", d.Fixed)
		fmt.Fprintf(out, "new=%d fixed=%d unchanged=%d\n", len(d.New), len(d.Fixed), len(d.Unchanged))

		if failOnNew && len(d.New) > 0 {
			return fmt.Errorf("%w: %d new finding(s) since baseline", engine.ErrGateFailed, len(d.New))
		}
		return nil
	},
}

func printFindings(w io.Writer, label string, fs []engine.Finding) {
	for _, f := range fs {
		fmt.Fprintf(w, "%-5s %s %-8s %s %s\n", label, f.Scanner, f.Severity, f.Identifier, f.Location)
	}
}

func init() {
	diffCmd.Flags().String("baseline", "", "Unified report of the reference run")
	diffCmd.Flags().String("current", "", "Unified report of the run to compare")
	diffCmd.Flags().Bool("fail-on-new", false, "Exit 1 when the current run has findings the baseline does not")
	_ = diffCmd.MarkFlagRequired("baseline")
	_ = diffCmd.MarkFlagRequired("current")
	rootCmd.AddCommand(diffCmd)
}
