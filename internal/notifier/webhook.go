package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/good-yellow-bee/blazewatch/internal/metrics"
	"github.com/good-yellow-bee/blazewatch/internal/models"
)

// WebhookConfig holds webhook configuration.
type WebhookConfig struct {
	// URL returns the current destination. An empty result skips delivery.
	URL func() string
	// Timeout bounds the POST. Defaults to 30s.
	Timeout time.Duration
}

// StaticURL returns a WebhookConfig.URL that always yields url.
func StaticURL(url string) func() string {
	return func() string { return url }
}

// WebhookNotifier POSTs the notification JSON to a URL. Delivery is
// fire-and-forget: Send returns immediately, each notification gets exactly
// one attempt, and failures are only logged and counted.
type WebhookNotifier struct {
	url        func() string
	httpClient *http.Client
	inflight   sync.WaitGroup
}

// NewWebhookNotifier creates a webhook notifier.
func NewWebhookNotifier(config WebhookConfig) *WebhookNotifier {
	if config.URL == nil {
		config.URL = StaticURL("")
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &WebhookNotifier{
		url: config.URL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns "webhook".
func (w *WebhookNotifier) Name() models.NotificationMethod {
	return models.MethodWebhook
}

// Send starts an asynchronous POST of n. It returns an error only when the
// payload cannot be encoded.
func (w *WebhookNotifier) Send(ctx context.Context, n *models.AlertNotification) error {
	url := w.url()
	if url == "" {
		return nil
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	w.inflight.Add(1)
	go func() {
		defer w.inflight.Done()
		if err := w.post(context.WithoutCancel(ctx), url, payload); err != nil {
			metrics.WebhookFailures.Inc()
			log.Printf("webhook delivery failed for %s: %v", n.ID, err)
		}
	}()
	return nil
}

func (w *WebhookNotifier) post(ctx context.Context, url string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook error: status %d, body: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Close waits for in-flight deliveries to finish.
func (w *WebhookNotifier) Close() error {
	w.inflight.Wait()
	return nil
}
