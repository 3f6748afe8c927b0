// Package notify delivers human-readable notices to the operator. Delivery is
// best-effort: failures are logged and never returned to the caller.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Notifier sends a text message somewhere an operator will see it.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// Webhook posts {"content": message} to a Discord-compatible webhook.
type Webhook struct {
	url    string
	client *http.Client
	logger hclog.Logger
}

// NewWebhook creates a webhook notifier with a 10s request timeout.
func NewWebhook(url string, logger hclog.Logger) *Webhook {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

type webhookPayload struct {
	Content string `json:"content"`
}

// Notify sends message once. Discord answers 204; any 2xx is accepted.
func (w *Webhook) Notify(ctx context.Context, message string) {
	if err := w.send(ctx, message); err != nil {
		w.logger.Error("error sending notification", "error", err)
	}
}

func (w *Webhook) send(ctx context.Context, message string) error {
	body, err := json.Marshal(webhookPayload{Content: message})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		w.logger.Warn("failed to send notification", "status_code", resp.StatusCode)
		return nil
	}
	return nil
}

// Multi fans a notice out to every wrapped notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, message string) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, message)
		}
	}
}

// Logging records notices in the log only. Used when no webhook is reachable
// (e.g. the doctor command) and as the fallback in tests.
type Logging struct {
	Logger hclog.Logger
}

func (l Logging) Notify(_ context.Context, message string) {
	if l.Logger != nil {
		l.Logger.Info("notice", "message", message)
	}
}
