package cmd

import (
	"github.com/spf13/cobra"

	"github.com/user/secgate/pkg/config"
	"github.com/user/secgate/pkg/engine"
	"github.com/user/secgate/pkg/gate"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate existing scanner reports against the policy",
	Long: `Reads the scanner reports named in the config file (or on the command
line), applies the allowlist and policy and writes the unified report.
A scanner without a readable report counts as unavailable.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := applyEvaluateFlags(cmd, cfg); err != nil {
			return err
		}

		inputs, err := cfg.InputPaths()
		if err != nil {
			return err
		}
		g, err := newGate(cfg)
		if err != nil {
			return err
		}
		r, err := g.Evaluate(gate.LoadSources(inputs))
		if err != nil {
			return err
		}
		return publish(cmd.Context(), cfg, r, cmd.OutOrStdout())
	},
}

func newGate(cfg *config.Config) (*gate.Gate, error) {
	policy, err := cfg.LoadPolicy()
	if err != nil {
		return nil, err
	}
	allow, err := cfg.LoadAllowlist()
	if err != nil {
		return nil, err
	}
	logger.Debugw("configuration loaded", "source", cfg.Source, "allowlist_rules", len(allow.Rules()))
	return gate.New(policy, allow, logger), nil
}

// applyEvaluateFlags lets command-line flags override the config file.
// Report flags replace the configured inputs of that scanner.
func applyEvaluateFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if cfg.Inputs == nil {
		cfg.Inputs = map[string][]string{}
	}
	for _, kind := range engine.Scanners {
		if flags.Changed(string(kind)) {
			paths, _ := flags.GetStringSlice(string(kind))
			for name := range cfg.Inputs {
				if k, err := engine.ParseScanner(name); err == nil && k == kind {
					delete(cfg.Inputs, name)
				}
			}
			cfg.Inputs[string(kind)] = paths
		}
	}
	if flags.Changed("allowlist") {
		cfg.Allowlist, _ = flags.GetString("allowlist")
	}
	if flags.Changed("policy") {
		cfg.PolicyFile, _ = flags.GetString("policy")
		cfg.Policy = engine.PolicySpec{}
	}
	if flags.Changed("output") {
		cfg.Output.Path, _ = flags.GetString("output")
	}
	if flags.Changed("format") {
		cfg.Output.Format, _ = flags.GetString("format")
	}
	if flags.Changed("extra-output") {
		cfg.Output.Extra, _ = flags.GetString("extra-output")
	}
	if flags.Changed("no-notify") {
		if off, _ := flags.GetBool("no-notify"); off {
			cfg.Notify.WebhookURL = ""
		}
	}
	return cfg.Validate()
}

func addGateFlags(cmd *cobra.Command, withInputs bool) {
	if withInputs {
		cmd.Flags().StringSlice(string(engine.ScannerSecret), nil, "Secret scanner report (gitleaks JSON or SARIF)")
		cmd.Flags().StringSlice(string(engine.ScannerDependency), nil, "Dependency scanner SARIF report, repeatable per ecosystem")
		cmd.Flags().StringSlice(string(engine.ScannerDynamicWeb), nil, "Dynamic web scanner report (ZAP JSON)")
		cmd.Flags().StringSlice(string(engine.ScannerPII), nil, "PII scanner JSON report")
	}
	cmd.Flags().String("allowlist", "", "Allowlist YAML file")
	cmd.Flags().String("policy", "", "Policy YAML file (replaces the inline policy)")
	cmd.Flags().StringP("output", "o", "", "Unified report path")
	cmd.Flags().StringP("format", "f", "", "Extra rendering next to the JSON report: sarif or markdown")
	cmd.Flags().String("extra-output", "", "Path of the extra rendering (default: output path with the format's extension)")
	cmd.Flags().Bool("no-notify", false, "Do not send the webhook notification")
}

func init() {
	addGateFlags(evaluateCmd, true)
	rootCmd.AddCommand(evaluateCmd)
}
