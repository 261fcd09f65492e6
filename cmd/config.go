package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/user/secgate/pkg/adk"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the gate configuration",
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load the config, policy and allowlist and print the effective policy",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		policy, err := cfg.LoadPolicy()
		if err != nil {
			return err
		}
		allow, err := cfg.LoadAllowlist()
		if err != nil {
			return err
		}
		tasks, err := cfg.Wrappers()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		source := cfg.Source
		if source == "" {
			source = "(defaults)"
		}
		fmt.Fprintf(out, "config: %s\n", source)

		data, err := yaml.Marshal(map[string]interface{}{"policy": policy.Spec()})
		if err != nil {
			return err
		}
		fmt.Fprint(out, string(data))

		rules := allow.Rules()
		fmt.Fprintf(out, "allowlist: %d rule(s)\n", len(rules))
		for _, r := range rules {
			fmt.Fprintf(out, "  - %s\n", r)
		}

		inputs, err := cfg.InputPaths()
		if err != nil {
			return err
		}
		kinds := make([]string, 0, len(inputs))
		for k := range inputs {
			kinds = append(kinds, string(k))
		}
		sort.Strings(kinds)
		fmt.Fprintln(out, "inputs:")
		for _, k := range kinds {
			for _, p := range cfg.Inputs[k] {
				fmt.Fprintf(out, "  %s: %s\n", k, p)
			}
		}
		fmt.Fprintf(out, "scanners enabled for run: %d\n", len(tasks))
		for _, t := range tasks {
			fmt.Fprintf(out, "  - %s timeout=%s\n", t.Name(), t.Timeout)
		}
		return nil
	},
}

var listModelsCmd = &cobra.Command{
	Use:   "list-models",
	Short: "List the models available to 'explain'",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		p, err := adk.NewProvider(ctx, cfg.Explain.Provider, cfg.Explain.APIKey, cfg.Explain.Model)
		if err != nil {
			return err
		}
		defer p.Close()

		models, err := p.ListModels(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch models: %w", err)
		}
		out := cmd.OutOrStdout()
		for _, m := range models {
			mark := " "
			if m == cfg.Explain.Model {
				mark = "*"
			}
			fmt.Fprintf(out, "%s %s\n", mark, m)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(validateCmd)
	configCmd.AddCommand(listModelsCmd)
	rootCmd.AddCommand(configCmd)
}
