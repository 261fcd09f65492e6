// Package notify posts the gate outcome to a chat or incident webhook.
// Delivery is best effort: callers log a failed Send and carry on.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-logr/logr"
)

const (
	defaultTimeout      = 10 * time.Second
	defaultMaxRetries   = 3
	defaultInitialDelay = time.Second
)

// Config configures a Webhook.
type Config struct {
	URL          string
	Headers      map[string]string
	Timeout      time.Duration
	MaxRetries   int
	InitialDelay time.Duration
}

// Webhook sends payloads with exponential backoff between attempts.
type Webhook struct {
	config Config
	client *http.Client
	logger logr.Logger
}

func NewWebhook(config Config, logger logr.Logger) *Webhook {
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = defaultMaxRetries
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = defaultInitialDelay
	}
	return &Webhook{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
	}
}

// Send posts payload, retrying up to MaxRetries times.
func (w *Webhook) Send(ctx context.Context, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := w.config.InitialDelay * time.Duration(1<<(attempt-1))
			w.logger.Info("retrying webhook", "attempt", attempt, "delay", delay.String())
			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled during retry backoff: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		lastErr = w.sendOnce(ctx, body)
		if lastErr == nil {
			w.logger.V(1).Info("webhook delivered", "attempt", attempt, "runId", payload.RunID)
			return nil
		}
		w.logger.Error(lastErr, "webhook attempt failed", "attempt", attempt, "maxRetries", w.config.MaxRetries)
	}
	return fmt.Errorf("webhook failed after %d attempts: %w", w.config.MaxRetries+1, lastErr)
}

func (w *Webhook) sendOnce(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return nil
}
