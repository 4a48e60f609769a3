package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/class-timetable/internal/persistence"
	"github.com/example/class-timetable/internal/persistence/adapter"
	"github.com/example/class-timetable/internal/persistence/sqlite"
	"github.com/example/class-timetable/internal/persistence/sqlite/migration"
)

// SQLiteHarness provides repository access backed by a migrated SQLite database in a
// temporary directory.
type SQLiteHarness struct {
	Storage      *sqlite.Storage
	Entries      persistence.EntryRepository
	Outbox       persistence.OutboxRepository
	Participants persistence.ParticipantRepository
	Gateway      *adapter.EntryGateway
	Audience     *adapter.AudienceDirectory
	Clock        *Clock
	IDs          *IDGenerator

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens and migrates a fresh database. Timestamps come from a
// deterministic clock and ids from a "row" prefixed generator. The harness registers
// its own cleanup with tb.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	clock := NewClock(ReferenceTime())
	ids := NewIDGenerator("row")
	path := filepath.Join(tb.TempDir(), "timetable.db")

	storage, err := sqlite.Open(context.Background(), migration.DefaultSQLiteConfig(path), sqlite.Options{
		Now:    clock.NowFunc(),
		NewID:  ids.NextFunc(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	if err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage:      storage,
		Entries:      storage.Entries(),
		Outbox:       storage.Outbox(),
		Participants: storage.Participants(),
		Gateway:      adapter.NewEntryGateway(storage.Entries()),
		Audience:     adapter.NewAudienceDirectory(storage.Participants()),
		Clock:        clock,
		IDs:          ids,
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
