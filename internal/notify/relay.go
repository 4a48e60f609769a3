package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/class-timetable/internal/persistence"
)

const (
	// DefaultRelayInterval is the poll period used when RelayOptions.Interval is unset.
	DefaultRelayInterval = 10 * time.Second
	// DefaultRelayBatch bounds the rows drained per tick.
	DefaultRelayBatch = 50
)

// RelayOptions configures a Relay.
type RelayOptions struct {
	Interval time.Duration
	Batch    int
	Now      func() time.Time
	Logger   *slog.Logger
}

// Relay moves pending outbox rows to a sink. Failed rows stay pending and are
// retried on the next tick.
type Relay struct {
	outbox   persistence.OutboxRepository
	sink     Sink
	interval time.Duration
	batch    int
	now      func() time.Time
	logger   *slog.Logger
}

// NewRelay creates a relay from outbox to sink.
func NewRelay(outbox persistence.OutboxRepository, sink Sink, opts RelayOptions) *Relay {
	if outbox == nil || sink == nil {
		panic("notify: relay requires an outbox and a sink")
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultRelayInterval
	}
	batch := opts.Batch
	if batch <= 0 {
		batch = DefaultRelayBatch
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		outbox:   outbox,
		sink:     sink,
		interval: interval,
		batch:    batch,
		now:      now,
		logger:   logger.With("component", "relay"),
	}
}

// Run drains immediately and then on every tick until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Relay) tick(ctx context.Context) {
	if _, err := r.DrainOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		r.logger.ErrorContext(ctx, "relay tick failed", "error", err)
	}
}

// DrainOnce delivers up to one batch of pending messages and returns how many were
// delivered. Delivery failures are recorded on the row, not returned.
func (r *Relay) DrainOnce(ctx context.Context) (int, error) {
	pending, err := r.outbox.ListPendingMessages(ctx, r.batch)
	if err != nil {
		return 0, fmt.Errorf("notify: list pending: %w", err)
	}

	delivered := 0
	for _, row := range pending {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}
		message := Message{
			ID:        row.ID,
			Title:     row.Title,
			Body:      row.Body,
			Audience:  row.Audience,
			Category:  row.Category,
			CreatedAt: row.CreatedAt,
		}

		if err := r.sink.Deliver(ctx, message); err != nil {
			r.logger.WarnContext(ctx, "delivery failed",
				"message_id", row.ID, "attempts", row.Attempts+1, "error", err)
			if markErr := r.outbox.MarkFailed(ctx, row.ID, err.Error()); markErr != nil {
				return delivered, fmt.Errorf("notify: mark %s failed: %w", row.ID, markErr)
			}
			continue
		}

		if err := r.outbox.MarkDelivered(ctx, row.ID, r.now()); err != nil {
			return delivered, fmt.Errorf("notify: mark %s delivered: %w", row.ID, err)
		}
		delivered++
	}

	if len(pending) > 0 {
		r.logger.DebugContext(ctx, "relay drained", "pending", len(pending), "delivered", delivered)
	}
	return delivered, nil
}
