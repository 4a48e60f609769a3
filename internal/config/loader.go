package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures environment driven configuration values for the timetable service.
type Config struct {
	HTTPPort             int
	SQLitePath           string
	Location             *time.Location
	GatewayTimeout       time.Duration
	CacheTTL             time.Duration
	NotificationCategory string
	OutboxPollInterval   time.Duration
	WebhookURL           string
	LogLevel             slog.Level
}

// LoadFile loads variables from envFile into the process environment without
// overriding variables that are already set, then calls Load. An empty envFile
// loads ".env" when it exists.
func LoadFile(envFile string) (Config, error) {
	switch {
	case envFile != "":
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("環境ファイルを読み込めません: %s: %w", envFile, err)
		}
	default:
		if _, err := os.Stat(".env"); err == nil {
			if err := godotenv.Load(); err != nil {
				return Config{}, fmt.Errorf("環境ファイルを読み込めません: .env: %w", err)
			}
		}
	}
	return Load()
}

// Load parses configuration values from the current process environment.
//
// Optional fields fall back to defaults; every invalid value is reported in a single
// error.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:             8080,
		SQLitePath:           "timetable.db",
		Location:             time.UTC,
		GatewayTimeout:       5 * time.Second,
		CacheTTL:             5 * time.Minute,
		NotificationCategory: "timeTable",
		OutboxPollInterval:   10 * time.Second,
		LogLevel:             slog.LevelInfo,
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("TIMETABLE_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "TIMETABLE_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if path := strings.TrimSpace(os.Getenv("TIMETABLE_SQLITE_PATH")); path != "" {
		cfg.SQLitePath = path
	}

	if zone := strings.TrimSpace(os.Getenv("TIMETABLE_TIMEZONE")); zone != "" {
		loc, err := time.LoadLocation(zone)
		if err != nil {
			invalid = append(invalid, "TIMETABLE_TIMEZONE")
		} else {
			cfg.Location = loc
		}
	}

	if value := strings.TrimSpace(os.Getenv("TIMETABLE_GATEWAY_TIMEOUT")); value != "" {
		timeout, err := time.ParseDuration(value)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "TIMETABLE_GATEWAY_TIMEOUT")
		} else {
			cfg.GatewayTimeout = timeout
		}
	}

	if value := strings.TrimSpace(os.Getenv("TIMETABLE_CACHE_TTL")); value != "" {
		ttl, err := time.ParseDuration(value)
		if err != nil || ttl < 0 {
			invalid = append(invalid, "TIMETABLE_CACHE_TTL")
		} else {
			cfg.CacheTTL = ttl
		}
	}

	if category := strings.TrimSpace(os.Getenv("TIMETABLE_NOTIFICATION_CATEGORY")); category != "" {
		cfg.NotificationCategory = category
	}

	if value := strings.TrimSpace(os.Getenv("TIMETABLE_OUTBOX_POLL_INTERVAL")); value != "" {
		interval, err := time.ParseDuration(value)
		if err != nil || interval <= 0 {
			invalid = append(invalid, "TIMETABLE_OUTBOX_POLL_INTERVAL")
		} else {
			cfg.OutboxPollInterval = interval
		}
	}

	if value := strings.TrimSpace(os.Getenv("TIMETABLE_WEBHOOK_URL")); value != "" {
		parsed, err := url.Parse(value)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			invalid = append(invalid, "TIMETABLE_WEBHOOK_URL")
		} else {
			cfg.WebhookURL = value
		}
	}

	if value := strings.TrimSpace(os.Getenv("TIMETABLE_LOG_LEVEL")); value != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(value)); err != nil {
			invalid = append(invalid, "TIMETABLE_LOG_LEVEL")
		} else {
			cfg.LogLevel = level
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
