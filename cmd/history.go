package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/secgate/pkg/engine"
	"github.com/user/secgate/pkg/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the most recent gate runs recorded in Postgres",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.History.DSN == "" {
			return &engine.ConfigError{Source: "history.dsn", Err: errors.New("no history database configured (SECGATE_HISTORY_DSN)")}
		}
		last, _ := cmd.Flags().GetInt("last")

		store, err := history.Open(cmd.Context(), cfg.History.DSN)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.Recent(cmd.Context(), last)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, r := range runs {
			fmt.Fprintf(out, "%s %s\n", r.RunID, r.Summary)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntP("last", "n", 10, "Number of runs to show")
	rootCmd.AddCommand(historyCmd)
}
