package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/class-timetable/internal/persistence"
)

// DefaultPendingLimit bounds ListPendingMessages when the caller passes no limit.
const DefaultPendingLimit = 100

// OutboxRepository implements persistence.OutboxRepository on SQLite.
type OutboxRepository struct {
	pool  *ConnectionPool
	now   func() time.Time
	newID func() string
}

// NewOutboxRepository creates an outbox repository.
func NewOutboxRepository(pool *ConnectionPool) *OutboxRepository {
	return &OutboxRepository{pool: pool, now: time.Now, newID: uuid.NewString}
}

// EnqueueMessage stores a pending notification.
func (r *OutboxRepository) EnqueueMessage(ctx context.Context, message persistence.OutboxMessage) (persistence.OutboxMessage, error) {
	if message.Title == "" || message.Category == "" {
		return persistence.OutboxMessage{}, persistence.ErrConstraintViolation
	}
	if message.ID == "" {
		message.ID = r.newID()
	}
	if message.Audience == nil {
		message.Audience = []string{}
	}
	audience, err := json.Marshal(message.Audience)
	if err != nil {
		return persistence.OutboxMessage{}, fmt.Errorf("failed to encode audience: %w", err)
	}
	message.CreatedAt = r.now().UTC().Truncate(time.Second)
	message.Attempts = 0
	message.LastError = nil
	message.DeliveredAt = nil

	_, err = r.pool.db.ExecContext(ctx, `
		INSERT INTO notification_outbox (id, title, body, audience, category, attempts, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)`,
		message.ID,
		message.Title,
		message.Body,
		string(audience),
		message.Category,
		formatTime(message.CreatedAt),
	)
	if err != nil {
		return persistence.OutboxMessage{}, mapError(err)
	}
	return message, nil
}

// ListPendingMessages returns undelivered messages, fewest attempts first and then
// oldest, so a message that keeps failing cannot starve newer ones.
func (r *OutboxRepository) ListPendingMessages(ctx context.Context, limit int) ([]persistence.OutboxMessage, error) {
	if limit <= 0 {
		limit = DefaultPendingLimit
	}
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, title, body, audience, category, attempts, last_error, created_at, delivered_at
		FROM notification_outbox
		WHERE delivered_at IS NULL
		ORDER BY attempts, created_at, rowid
		LIMIT ?`, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	messages := make([]persistence.OutboxMessage, 0)
	for rows.Next() {
		var (
			message     persistence.OutboxMessage
			audience    string
			lastError   sql.NullString
			createdAt   string
			deliveredAt sql.NullString
		)
		if err := rows.Scan(
			&message.ID,
			&message.Title,
			&message.Body,
			&audience,
			&message.Category,
			&message.Attempts,
			&lastError,
			&createdAt,
			&deliveredAt,
		); err != nil {
			return nil, mapError(err)
		}
		if err := json.Unmarshal([]byte(audience), &message.Audience); err != nil {
			return nil, fmt.Errorf("failed to decode audience of %s: %w", message.ID, err)
		}
		message.LastError = stringPtr(lastError)
		if message.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		if message.DeliveredAt, err = parseNullTime("delivered_at", deliveredAt); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return messages, nil
}

// MarkDelivered records a successful delivery.
func (r *OutboxRepository) MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) error {
	return r.exec(ctx, `
		UPDATE notification_outbox
		SET delivered_at = ?, attempts = attempts + 1, last_error = NULL
		WHERE id = ?`, formatTime(deliveredAt), id)
}

// MarkFailed records a failed attempt. The message stays pending.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	return r.exec(ctx, `
		UPDATE notification_outbox
		SET attempts = attempts + 1, last_error = ?
		WHERE id = ?`, reason, id)
}

func (r *OutboxRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.pool.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
