package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/secgate/pkg/adk"
	"github.com/user/secgate/pkg/engine"
	"github.com/user/secgate/pkg/report"
)

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Ask an LLM for a triage summary of a unified report",
	Long: `Sends a digest of the report (never the raw scanner payloads) to the
configured model and prints its triage summary. The verdict is not
affected.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		path, _ := cmd.Flags().GetString("report")
		if path == "" {
			path = cfg.Output.Path
		}
		if model, _ := cmd.Flags().GetString("model"); model != "" {
			cfg.Explain.Model = model
		}
		r, err := report.Read(path)
		if err != nil {
			return &engine.ConfigError{Source: path, Err: err}
		}
		if dry, _ := cmd.Flags().GetBool("print-prompt"); dry {
			prompt, err := adk.BuildTriagePrompt(r)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), prompt)
			return nil
		}

		ctx := cmd.Context()
		llm, err := adk.NewProvider(ctx, cfg.Explain.Provider, cfg.Explain.APIKey, cfg.Explain.Model)
		if err != nil {
			return err
		}
		defer llm.Close()

		logger.Infow("requesting triage summary", "provider", cfg.Explain.Provider, "model", cfg.Explain.Model, "findings", len(r.Findings))
		summary, err := adk.NewTriager(llm).Explain(ctx, r)
		if err != nil {
			return fmt.Errorf("triage failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), summary)
		return nil
	},
}

func init() {
	explainCmd.Flags().StringP("report", "r", "", "Unified JSON report (defaults to output.path)")
	explainCmd.Flags().StringP("model", "m", "", "Model name override")
	explainCmd.Flags().Bool("print-prompt", false, "Print the prompt instead of calling the model")
	rootCmd.AddCommand(explainCmd)
}
