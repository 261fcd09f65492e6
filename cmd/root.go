package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/secgate/pkg/engine"
	"github.com/user/secgate/pkg/logging"
)

// Exit codes.
const (
	ExitPassed      = 0
	ExitGateFailed  = 1
	ExitEngineError = 2
)

var rootCmd = &cobra.Command{
	Use:   "secgate",
	Short: "CI security gate over secret, dependency, dynamic-web and PII scanner reports",
	Long: `secgate normalizes the native reports of independent security scanners,
drops allowlisted findings, aggregates them and applies a per-scanner
severity policy. It writes one unified report and exits 0 on pass, 1 when
the gate fails on findings and 2 when the gate itself is broken.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

var (
	configPath string
	DebugMode  bool

	logger = zap.NewNop().Sugar()
)

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	_ = logger.Sync()
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitPassed
	case errors.Is(err, engine.ErrGateFailed):
		return ExitGateFailed
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	return ExitEngineError
}

// setup loads .env files and builds the logger before any command runs.
// Variables already set in the environment win over the files.
func setup(cmd *cobra.Command, args []string) error {
	for _, f := range []string{".env.local", ".env"} {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				return &engine.ConfigError{Source: f, Err: err}
			}
		}
	}
	l, err := logging.New(DebugMode)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = l
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "secgate.yaml", "Gate configuration file")
	rootCmd.PersistentFlags().BoolVar(&DebugMode, "debug", false, "Enable debug logging")
}
