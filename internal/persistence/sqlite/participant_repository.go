package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/class-timetable/internal/persistence"
)

// ParticipantRepository implements persistence.ParticipantRepository on SQLite.
type ParticipantRepository struct {
	pool  *ConnectionPool
	now   func() time.Time
	newID func() string
}

// NewParticipantRepository creates a participant repository.
func NewParticipantRepository(pool *ConnectionPool) *ParticipantRepository {
	return &ParticipantRepository{pool: pool, now: time.Now, newID: uuid.NewString}
}

// AddParticipant links a participant to a class. Adding the same pair twice
// returns persistence.ErrDuplicate.
func (r *ParticipantRepository) AddParticipant(ctx context.Context, participant persistence.Participant) (persistence.Participant, error) {
	participant.ClassName = strings.TrimSpace(participant.ClassName)
	participant.ParticipantID = strings.TrimSpace(participant.ParticipantID)
	if participant.ClassName == "" || participant.ParticipantID == "" {
		return persistence.Participant{}, persistence.ErrConstraintViolation
	}
	if participant.ID == "" {
		participant.ID = r.newID()
	}
	participant.CreatedAt = r.now().UTC().Truncate(time.Second)

	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO class_participants (id, class_name, participant_id, display_name, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		participant.ID,
		participant.ClassName,
		participant.ParticipantID,
		participant.DisplayName,
		formatTime(participant.CreatedAt),
	)
	if err != nil {
		return persistence.Participant{}, mapError(err)
	}
	return participant, nil
}

// ListParticipants returns the members of className in insertion order.
func (r *ParticipantRepository) ListParticipants(ctx context.Context, className string) ([]persistence.Participant, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, class_name, participant_id, display_name, created_at
		FROM class_participants
		WHERE class_name = ?
		ORDER BY created_at, rowid`, className)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	participants := make([]persistence.Participant, 0)
	for rows.Next() {
		var (
			participant persistence.Participant
			createdAt   string
		)
		if err := rows.Scan(
			&participant.ID,
			&participant.ClassName,
			&participant.ParticipantID,
			&participant.DisplayName,
			&createdAt,
		); err != nil {
			return nil, mapError(err)
		}
		if participant.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		participants = append(participants, participant)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return participants, nil
}

// RemoveParticipant unlinks participantID from className.
func (r *ParticipantRepository) RemoveParticipant(ctx context.Context, className, participantID string) error {
	result, err := r.pool.db.ExecContext(ctx,
		`DELETE FROM class_participants WHERE class_name = ? AND participant_id = ?`, className, participantID)
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
