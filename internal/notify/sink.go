package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Message is one outbox row handed to a Sink.
type Message struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Audience  []string  `json:"audience"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"createdAt"`
}

// Sink is the final delivery target of the relay.
type Sink interface {
	Deliver(ctx context.Context, message Message) error
}

// WebhookSink POSTs each message as JSON to a fixed URL.
type WebhookSink struct {
	url        string
	httpClient *http.Client
}

// NewWebhookSink creates a sink posting to url. A nil client gets a 10s timeout.
func NewWebhookSink(url string, httpClient *http.Client) *WebhookSink {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookSink{url: strings.TrimSpace(url), httpClient: httpClient}
}

// Deliver posts message. Any status outside 2xx is an error.
func (s *WebhookSink) Deliver(ctx context.Context, message Message) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("notify: encode message %s: %w", message.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("notify: build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", message.ID)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notify: webhook unexpected status: %d", resp.StatusCode)
	}
	return nil
}

// LogSink logs messages. It is used when no webhook is configured.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink logging through logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Deliver logs message and never fails.
func (s *LogSink) Deliver(ctx context.Context, message Message) error {
	s.logger.InfoContext(ctx, "notification delivered",
		"message_id", message.ID,
		"title", message.Title,
		"body", message.Body,
		"audience", message.Audience,
		"category", message.Category,
	)
	return nil
}
