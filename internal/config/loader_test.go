package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"
)

var timetableKeys = []string{
	"TIMETABLE_HTTP_PORT",
	"TIMETABLE_SQLITE_PATH",
	"TIMETABLE_TIMEZONE",
	"TIMETABLE_GATEWAY_TIMEOUT",
	"TIMETABLE_CACHE_TTL",
	"TIMETABLE_NOTIFICATION_CATEGORY",
	"TIMETABLE_OUTBOX_POLL_INTERVAL",
	"TIMETABLE_WEBHOOK_URL",
	"TIMETABLE_LOG_LEVEL",
}

// clearEnv unsets every key for the duration of the test. t.Setenv registers the
// restore, the explicit Unsetenv removes the empty value it leaves behind.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range timetableKeys {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("failed to unset %s: %v", key, err)
		}
	}
}

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.SQLitePath != "timetable.db" {
			t.Fatalf("unexpected default path: %q", cfg.SQLitePath)
		}
		if cfg.Location != time.UTC {
			t.Fatalf("expected UTC, got %v", cfg.Location)
		}
		if cfg.GatewayTimeout != 5*time.Second || cfg.CacheTTL != 5*time.Minute {
			t.Fatalf("unexpected timeouts %s / %s", cfg.GatewayTimeout, cfg.CacheTTL)
		}
		if cfg.NotificationCategory != "timeTable" || cfg.WebhookURL != "" {
			t.Fatalf("unexpected notification defaults %+v", cfg)
		}
		if cfg.LogLevel != slog.LevelInfo {
			t.Fatalf("expected info level, got %v", cfg.LogLevel)
		}
	})

	t.Run("parses every field", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TIMETABLE_HTTP_PORT", "9090")
		t.Setenv("TIMETABLE_SQLITE_PATH", "/tmp/timetable.db")
		t.Setenv("TIMETABLE_TIMEZONE", "Asia/Bangkok")
		t.Setenv("TIMETABLE_GATEWAY_TIMEOUT", "2s")
		t.Setenv("TIMETABLE_CACHE_TTL", "0s")
		t.Setenv("TIMETABLE_NOTIFICATION_CATEGORY", "classroom")
		t.Setenv("TIMETABLE_OUTBOX_POLL_INTERVAL", "1m")
		t.Setenv("TIMETABLE_WEBHOOK_URL", "https://hooks.example.com/timetable")
		t.Setenv("TIMETABLE_LOG_LEVEL", "debug")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 9090 || cfg.SQLitePath != "/tmp/timetable.db" {
			t.Fatalf("unexpected port/path %d %q", cfg.HTTPPort, cfg.SQLitePath)
		}
		if cfg.Location.String() != "Asia/Bangkok" {
			t.Fatalf("unexpected location %v", cfg.Location)
		}
		if cfg.GatewayTimeout != 2*time.Second || cfg.CacheTTL != 0 || cfg.OutboxPollInterval != time.Minute {
			t.Fatalf("unexpected durations %+v", cfg)
		}
		if cfg.NotificationCategory != "classroom" || cfg.WebhookURL != "https://hooks.example.com/timetable" {
			t.Fatalf("unexpected notification settings %+v", cfg)
		}
		if cfg.LogLevel != slog.LevelDebug {
			t.Fatalf("expected debug level, got %v", cfg.LogLevel)
		}
	})

	t.Run("reports every invalid value", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TIMETABLE_HTTP_PORT", "abc")
		t.Setenv("TIMETABLE_TIMEZONE", "Mars/Olympus")
		t.Setenv("TIMETABLE_WEBHOOK_URL", "ftp://example.com")
		t.Setenv("TIMETABLE_LOG_LEVEL", "loud")

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error for invalid values")
		}
		expected := "環境変数の値が不正です: TIMETABLE_HTTP_PORT, TIMETABLE_TIMEZONE, TIMETABLE_WEBHOOK_URL, TIMETABLE_LOG_LEVEL"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("loads an env file without overriding the environment", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "timetable.env")
		content := "TIMETABLE_HTTP_PORT=7070\nTIMETABLE_NOTIFICATION_CATEGORY=fromfile\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}
		t.Setenv("TIMETABLE_NOTIFICATION_CATEGORY", "fromenv")

		cfg, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile returned error: %v", err)
		}
		if cfg.HTTPPort != 7070 {
			t.Fatalf("expected port from file, got %d", cfg.HTTPPort)
		}
		if cfg.NotificationCategory != "fromenv" {
			t.Fatalf("expected environment to win, got %q", cfg.NotificationCategory)
		}

		if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.env")); err == nil {
			t.Fatal("expected error for missing env file")
		}
	})
}
