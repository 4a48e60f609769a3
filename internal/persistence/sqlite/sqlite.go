package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/class-timetable/internal/persistence"
	"github.com/example/class-timetable/internal/persistence/sqlite/migration"
)

// Options customises a Storage. Zero values select time.Now, uuid ids and the
// default logger.
type Options struct {
	Now    func() time.Time
	NewID  func() string
	Logger *slog.Logger
}

// Storage bundles the SQLite repositories sharing one connection pool.
type Storage struct {
	pool         *ConnectionPool
	logger       *slog.Logger
	entries      *EntryRepository
	outbox       *OutboxRepository
	participants *ParticipantRepository
}

var (
	_ persistence.EntryRepository       = (*EntryRepository)(nil)
	_ persistence.OutboxRepository      = (*OutboxRepository)(nil)
	_ persistence.ParticipantRepository = (*ParticipantRepository)(nil)
)

// Open connects to the database described by cfg. Call Migrate before use.
func Open(ctx context.Context, cfg migration.SQLiteConfig, opts Options) (*Storage, error) {
	pool, err := NewConnectionPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Storage{
		pool:         pool,
		logger:       logger,
		entries:      NewEntryRepository(pool),
		outbox:       NewOutboxRepository(pool),
		participants: NewParticipantRepository(pool),
	}
	if opts.Now != nil {
		s.entries.now = opts.Now
		s.outbox.now = opts.Now
		s.participants.now = opts.Now
	}
	if opts.NewID != nil {
		s.entries.newID = opts.NewID
		s.outbox.newID = opts.NewID
		s.participants.newID = opts.NewID
	}
	return s, nil
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	if _, err := migration.NewManager(s.pool.DB(), migration.Files, s.logger).Run(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// MigrationStatus reports applied and pending schema migrations.
func (s *Storage) MigrationStatus(ctx context.Context) (migration.Status, error) {
	return migration.NewManager(s.pool.DB(), migration.Files, s.logger).Status(ctx)
}

// Ping checks the database connection.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// Entries returns the timetable entry repository.
func (s *Storage) Entries() *EntryRepository { return s.entries }

// Outbox returns the notification outbox repository.
func (s *Storage) Outbox() *OutboxRepository { return s.outbox }

// Participants returns the class participant repository.
func (s *Storage) Participants() *ParticipantRepository { return s.participants }
