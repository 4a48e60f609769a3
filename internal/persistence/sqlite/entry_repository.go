package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/class-timetable/internal/persistence"
)

const entryColumns = `id, class_name, subject, room, zoom_id, course_id, entry_type, start_at, end_at, created_at, updated_at`

// EntryRepository implements persistence.EntryRepository on SQLite.
type EntryRepository struct {
	pool  *ConnectionPool
	now   func() time.Time
	newID func() string
}

// NewEntryRepository creates an entry repository.
func NewEntryRepository(pool *ConnectionPool) *EntryRepository {
	return &EntryRepository{
		pool:  pool,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// CreateEntry inserts entry, assigning an id when it has none.
func (r *EntryRepository) CreateEntry(ctx context.Context, entry persistence.Entry) (persistence.Entry, error) {
	if strings.TrimSpace(entry.ClassName) == "" || !entry.EndAt.After(entry.StartAt) {
		return persistence.Entry{}, persistence.ErrConstraintViolation
	}
	if entry.ID == "" {
		entry.ID = r.newID()
	}

	now := r.now().UTC().Truncate(time.Second)
	entry.CreatedAt = now
	entry.UpdatedAt = now
	entry.StartAt = entry.StartAt.UTC().Truncate(time.Second)
	entry.EndAt = entry.EndAt.UTC().Truncate(time.Second)
	entry.ZoomID = stringPtr(nullString(entry.ZoomID))

	query := `INSERT INTO timetable_entries (` + entryColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.pool.db.ExecContext(ctx, query,
		entry.ID,
		entry.ClassName,
		entry.Subject,
		entry.Room,
		nullString(entry.ZoomID),
		entry.CourseID,
		entry.Type,
		formatTime(entry.StartAt),
		formatTime(entry.EndAt),
		formatTime(entry.CreatedAt),
		formatTime(entry.UpdatedAt),
	)
	if err != nil {
		return persistence.Entry{}, mapError(err)
	}
	return entry, nil
}

// UpdateEntry applies patch to the entry and returns the stored result.
func (r *EntryRepository) UpdateEntry(ctx context.Context, id string, patch persistence.EntryPatch) (persistence.Entry, error) {
	var updated persistence.Entry
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		current, err := scanEntry(tx.QueryRowContext(ctx,
			`SELECT `+entryColumns+` FROM timetable_entries WHERE id = ?`, id))
		if err != nil {
			return err
		}

		if patch.StartAt != nil {
			current.StartAt = patch.StartAt.UTC().Truncate(time.Second)
		}
		if patch.EndAt != nil {
			current.EndAt = patch.EndAt.UTC().Truncate(time.Second)
		}
		if patch.Room != nil {
			current.Room = *patch.Room
		}
		if patch.ZoomID != nil {
			current.ZoomID = stringPtr(nullString(patch.ZoomID))
		}
		if !current.EndAt.After(current.StartAt) {
			return persistence.ErrConstraintViolation
		}
		current.UpdatedAt = r.now().UTC().Truncate(time.Second)

		_, err = tx.ExecContext(ctx, `
			UPDATE timetable_entries
			SET start_at = ?, end_at = ?, room = ?, zoom_id = ?, updated_at = ?
			WHERE id = ?`,
			formatTime(current.StartAt),
			formatTime(current.EndAt),
			current.Room,
			nullString(current.ZoomID),
			formatTime(current.UpdatedAt),
			id,
		)
		if err != nil {
			return mapError(err)
		}
		updated = current
		return nil
	})
	if err != nil {
		return persistence.Entry{}, err
	}
	return updated, nil
}

// GetEntry returns the entry with the given id.
func (r *EntryRepository) GetEntry(ctx context.Context, id string) (persistence.Entry, error) {
	if id == "" {
		return persistence.Entry{}, persistence.ErrNotFound
	}
	return scanEntry(r.pool.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM timetable_entries WHERE id = ?`, id))
}

// ListEntriesByClass returns the entries of className ordered by start time.
func (r *EntryRepository) ListEntriesByClass(ctx context.Context, className string) ([]persistence.Entry, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM timetable_entries WHERE class_name = ? ORDER BY start_at, id`, className)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	entries := make([]persistence.Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return entries, nil
}

// DeleteEntry removes the entry with the given id.
func (r *EntryRepository) DeleteEntry(ctx context.Context, id string) error {
	result, err := r.pool.db.ExecContext(ctx, `DELETE FROM timetable_entries WHERE id = ?`, id)
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

func scanEntry(row rowScanner) (persistence.Entry, error) {
	var (
		entry                                persistence.Entry
		zoomID                               sql.NullString
		startAt, endAt, createdAt, updatedAt string
	)
	err := row.Scan(
		&entry.ID,
		&entry.ClassName,
		&entry.Subject,
		&entry.Room,
		&zoomID,
		&entry.CourseID,
		&entry.Type,
		&startAt,
		&endAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Entry{}, persistence.ErrNotFound
		}
		return persistence.Entry{}, mapError(err)
	}

	entry.ZoomID = stringPtr(zoomID)
	if entry.StartAt, err = parseTime("start_at", startAt); err != nil {
		return persistence.Entry{}, err
	}
	if entry.EndAt, err = parseTime("end_at", endAt); err != nil {
		return persistence.Entry{}, err
	}
	if entry.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Entry{}, err
	}
	if entry.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Entry{}, err
	}
	return entry, nil
}
