package notify

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/example/class-timetable/internal/application"
	"github.com/example/class-timetable/internal/logging"
	"github.com/example/class-timetable/internal/persistence"
)

var (
	_ application.Dispatcher = (*OutboxDispatcher)(nil)
	_ application.Dispatcher = (*LogDispatcher)(nil)
)

// OutboxDispatcher queues notifications in the outbox table.
type OutboxDispatcher struct {
	outbox persistence.OutboxRepository
}

// NewOutboxDispatcher creates a dispatcher writing to outbox.
func NewOutboxDispatcher(outbox persistence.OutboxRepository) *OutboxDispatcher {
	if outbox == nil {
		panic("notify: outbox dispatcher requires an outbox repository")
	}
	return &OutboxDispatcher{outbox: outbox}
}

// Send enqueues the message for the relay.
func (d *OutboxDispatcher) Send(ctx context.Context, title, body string, audience []string, category string) error {
	_, err := d.outbox.EnqueueMessage(ctx, persistence.OutboxMessage{
		Title:    title,
		Body:     body,
		Audience: slices.Clone(audience),
		Category: category,
	})
	if err != nil {
		return fmt.Errorf("notify: enqueue %q: %w", title, err)
	}
	return nil
}

// LogDispatcher writes notifications to a logger instead of delivering them.
type LogDispatcher struct {
	logger *slog.Logger
}

// NewLogDispatcher creates a dispatcher logging through logger.
func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDispatcher{logger: logger}
}

// Send logs the message at info level.
func (d *LogDispatcher) Send(ctx context.Context, title, body string, audience []string, category string) error {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = d.logger
	}
	logger.InfoContext(ctx, "notification",
		"title", title, "body", body, "audience", audience, "category", category)
	return nil
}
