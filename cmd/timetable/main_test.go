package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/example/class-timetable/internal/application"
	"github.com/example/class-timetable/internal/config"
	"github.com/example/class-timetable/internal/logging"
	"github.com/example/class-timetable/internal/scheduler"
)

// useDatabase points the commands at a fresh database and clears the rest of the
// environment. Tests calling it cannot run in parallel.
func useDatabase(t *testing.T) string {
	t.Helper()

	for _, key := range []string{
		"TIMETABLE_HTTP_PORT", "TIMETABLE_TIMEZONE", "TIMETABLE_GATEWAY_TIMEOUT",
		"TIMETABLE_CACHE_TTL", "TIMETABLE_NOTIFICATION_CATEGORY", "TIMETABLE_OUTBOX_POLL_INTERVAL",
		"TIMETABLE_WEBHOOK_URL", "TIMETABLE_LOG_LEVEL",
	} {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("failed to unset %s: %v", key, err)
		}
	}
	path := filepath.Join(t.TempDir(), "timetable.db")
	t.Setenv("TIMETABLE_SQLITE_PATH", path)
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCommand(&out, io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func seedEntry(t *testing.T) scheduler.Entry {
	t.Helper()

	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	logger := logging.New(io.Discard, cfg.LogLevel)
	storage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	defer storage.Close()

	entry, err := newServices(cfg, storage, logger).store.Create(ctx, application.CreateEntryInput{
		ClassName: "10A",
		Subject:   "Math",
		Room:      "101",
		Date:      scheduler.Date{Year: 2024, Month: time.March, Day: 4},
		Start:     scheduler.TimeOfDay{Hour: 9},
		End:       scheduler.TimeOfDay{Hour: 10, Minute: 30},
	})
	if err != nil {
		t.Fatalf("failed to seed entry: %v", err)
	}
	return entry
}

func TestMigrateCommand(t *testing.T) {
	path := useDatabase(t)

	for i := 0; i < 2; i++ {
		out, err := execute(t, "migrate")
		if err != nil {
			t.Fatalf("run %d: migrate failed: %v", i, err)
		}
		if !strings.Contains(out, "schema version 003 (3 applied, 0 pending)") {
			t.Fatalf("run %d: unexpected output %q", i, out)
		}
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected database file at %s: %v", path, err)
	}
}

func TestExportCommand(t *testing.T) {
	useDatabase(t)
	entry := seedEntry(t)

	out, err := execute(t, "export", "--class", "10A", "--format", "csv")
	if err != nil {
		t.Fatalf("csv export failed: %v", err)
	}
	if !strings.Contains(out, entry.ID+",10A,Math,101,") {
		t.Fatalf("expected seeded entry in csv, got %q", out)
	}

	out, err = execute(t, "export", "--class", "10A")
	if err != nil {
		t.Fatalf("ics export failed: %v", err)
	}
	if !strings.Contains(out, "BEGIN:VCALENDAR") || !strings.Contains(out, "SUMMARY:Math") {
		t.Fatalf("unexpected calendar %q", out)
	}

	if _, err := execute(t, "export", "--class", "10A", "--format", "pdf"); err == nil {
		t.Fatalf("expected unsupported format error")
	}
	if _, err := execute(t, "export"); err == nil {
		t.Fatalf("expected missing --class error")
	}
}

func TestEnvFileFlag(t *testing.T) {
	useDatabase(t)
	if err := os.Unsetenv("TIMETABLE_SQLITE_PATH"); err != nil {
		t.Fatalf("failed to unset path: %v", err)
	}

	dir := t.TempDir()
	envFile := filepath.Join(dir, "timetable.env")
	dbPath := filepath.Join(dir, "from-env-file.db")
	if err := os.WriteFile(envFile, []byte("TIMETABLE_SQLITE_PATH="+dbPath+"\n"), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	if _, err := execute(t, "--env-file", envFile, "migrate"); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected database from env file: %v", err)
	}
}

func TestHandlerWiring(t *testing.T) {
	useDatabase(t)
	entry := seedEntry(t)

	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	logger := logging.New(io.Discard, cfg.LogLevel)
	storage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	defer storage.Close()

	handler := newHandler(storage, newServices(cfg, storage, logger), logger)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected healthy service, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/classes/10A/entries", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), entry.ID) {
		t.Fatalf("expected seeded entry, got %d %s", rec.Code, rec.Body.String())
	}
}
