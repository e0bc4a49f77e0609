package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// WebhookSink posts alerts to a generic HTTP webhook.
type WebhookSink struct {
	url    string
	secret string
	client *http.Client
	logger *slog.Logger
}

// NewWebhookSink creates a webhook sink. If secret is non-empty,
// requests are signed with HMAC-SHA256.
func NewWebhookSink(url, secret string, logger *slog.Logger) *WebhookSink {
	return &WebhookSink{
		url:    url,
		secret: secret,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		logger: logger,
	}
}

func (w *WebhookSink) Name() string { return "webhook" }

type webhookPayload struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
	Title     string `json:"title"`
	Body      string `json:"body"`
}

// Notify posts the alert. The client timeout bounds the call well
// under the poll interval; errors are logged and dropped.
func (w *WebhookSink) Notify(ctx context.Context, title, body string) {
	payload := webhookPayload{
		Event:     "quota_alert",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Title:     title,
		Body:      body,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		w.logger.Warn("marshal webhook payload", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(data))
	if err != nil {
		w.logger.Warn("create webhook request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "quotawatch/1.0")

	if w.secret != "" {
		sig := computeHMAC(data, []byte(w.secret))
		req.Header.Set("X-Signature-256", "sha256="+sig)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		w.logger.Warn("send webhook alert", "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		w.logger.Warn("webhook rejected alert", "status", resp.StatusCode)
	}
}

func computeHMAC(message, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}
