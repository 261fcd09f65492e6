package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/secgate/pkg/archive"
	"github.com/user/secgate/pkg/config"
	"github.com/user/secgate/pkg/engine"
	"github.com/user/secgate/pkg/history"
	"github.com/user/secgate/pkg/logging"
	"github.com/user/secgate/pkg/notify"
	"github.com/user/secgate/pkg/report"
)

// loadConfig reads --config. The file must exist when the flag was given
// explicitly; otherwise a missing secgate.yaml means defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(configPath, cmd.Flags().Changed("config"))
}

// publish writes the unified JSON report plus any extra rendering, feeds the
// side channels, prints the summary line and turns a failed verdict into
// engine.ErrGateFailed. Writing a local report or the configured archive
// copy is fatal; history and notification failures are only logged.
func publish(ctx context.Context, cfg *config.Config, r *report.Report, stdout io.Writer) error {
	extra, format, err := cfg.Output.ExtraPath()
	if err != nil {
		return &engine.ConfigError{Source: "output.format", Err: err}
	}
	if err := report.Write(cfg.Output.Path, report.FormatJSON, r); err != nil {
		return err
	}
	logger.Infow("report written", "path", cfg.Output.Path, "format", report.FormatJSON)
	if extra != "" {
		if err := report.Write(extra, format, r); err != nil {
			return err
		}
		logger.Infow("report written", "path", extra, "format", format)
	}

	if cfg.Archive.Bucket != "" {
		if err := archiveReport(ctx, cfg.Archive, r); err != nil {
			return err
		}
	}
	if cfg.History.DSN != "" {
		if err := recordHistory(ctx, cfg.History.DSN, r); err != nil {
			logger.Warnw("failed to record run history", "error", err)
		}
	}
	if cfg.Notify.WebhookURL != "" && (!cfg.Notify.OnlyOnFail || !r.Verdict.Passed) {
		wh := notify.NewWebhook(notify.Config{
			URL:        cfg.Notify.WebhookURL,
			Headers:    cfg.Notify.ResolvedHeaders(),
			Timeout:    cfg.Notify.Timeout,
			MaxRetries: cfg.Notify.Retries,
		}, logging.Logr(logger).WithName("notify"))
		if err := wh.Send(ctx, notify.NewPayload(r, time.Now())); err != nil {
			logger.Warnw("notification not delivered", "error", err)
		}
	}

	fmt.Fprintln(stdout, r.SummaryLine())
	if !r.Verdict.Passed {
		return fmt.Errorf("%w: %d failing finding(s)", engine.ErrGateFailed, len(r.Verdict.Failing))
	}
	return nil
}

func archiveReport(ctx context.Context, ac config.ArchiveConfig, r *report.Report) error {
	client, err := archive.New(ac.Endpoint, ac.AccessKey, ac.SecretKey, ac.UseSSL, ac.Bucket, ac.Prefix)
	if err != nil {
		return &engine.ReportWriteError{Target: "s3://" + ac.Bucket, Err: err}
	}
	var buf bytes.Buffer
	if err := report.Encode(&buf, report.FormatJSON, r); err != nil {
		return &engine.ReportWriteError{Target: "s3://" + ac.Bucket, Err: err}
	}
	key := archive.ObjectKey(client.Prefix(), r.RunID, r.GeneratedAt, "json")
	if err := client.Upload(ctx, key, buf.Bytes(), "application/json"); err != nil {
		return err
	}
	logger.Infow("report archived", "bucket", ac.Bucket, "key", key)
	return nil
}

func recordHistory(ctx context.Context, dsn string, r *report.Report) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	store, err := history.Open(ctx, dsn)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	return store.RecordRun(ctx, r)
}
