package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/example/class-timetable/internal/application"
	"github.com/example/class-timetable/internal/config"
	"github.com/example/class-timetable/internal/export"
	httptransport "github.com/example/class-timetable/internal/http"
	"github.com/example/class-timetable/internal/logging"
	"github.com/example/class-timetable/internal/notify"
	"github.com/example/class-timetable/internal/persistence/adapter"
	"github.com/example/class-timetable/internal/persistence/sqlite"
	"github.com/example/class-timetable/internal/persistence/sqlite/migration"
	"github.com/example/class-timetable/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	envFile string
	logOut  io.Writer
}

func newRootCommand(out, logOut io.Writer) *cobra.Command {
	opts := &rootOptions{logOut: logOut}

	root := &cobra.Command{
		Use:          "timetable",
		Short:        "Class timetable scheduling service",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.SetErr(logOut)
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "dotenv file loaded before reading the environment")

	root.AddCommand(serveCmd(opts))
	root.AddCommand(migrateCmd(opts))
	root.AddCommand(exportCmd(opts))
	return root
}

// environment loads configuration and builds the process logger.
func (o *rootOptions) environment() (config.Config, *slog.Logger, error) {
	cfg, err := config.LoadFile(o.envFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logging.New(o.logOut, cfg.LogLevel), nil
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (*sqlite.Storage, error) {
	storage, err := sqlite.Open(ctx, migration.DefaultSQLiteConfig(cfg.SQLitePath), sqlite.Options{Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := storage.Migrate(ctx); err != nil {
		_ = storage.Close()
		return nil, err
	}
	return storage, nil
}

type services struct {
	store      *application.ScheduleStore
	relocation *application.RelocationEngine
	relay      *notify.Relay
}

func newServices(cfg config.Config, storage *sqlite.Storage, logger *slog.Logger) services {
	bridge := application.NewNotificationBridge(
		notify.NewOutboxDispatcher(storage.Outbox()),
		adapter.NewAudienceDirectory(storage.Participants()),
		application.BridgeOptions{
			Category: cfg.NotificationCategory,
			Location: cfg.Location,
			Logger:   logger,
		},
	)
	store := application.NewScheduleStore(adapter.NewEntryGateway(storage.Entries()), application.StoreOptions{
		Normalizer:     scheduler.NewNormalizer(cfg.Location),
		Listener:       bridge,
		GatewayTimeout: cfg.GatewayTimeout,
		CacheTTL:       cfg.CacheTTL,
		Logger:         logger,
	})

	var sink notify.Sink = notify.NewLogSink(logger)
	if cfg.WebhookURL != "" {
		sink = notify.NewWebhookSink(cfg.WebhookURL, &http.Client{Timeout: cfg.GatewayTimeout})
	}

	return services{
		store:      store,
		relocation: application.NewRelocationEngine(store, logger),
		relay: notify.NewRelay(storage.Outbox(), sink, notify.RelayOptions{
			Interval: cfg.OutboxPollInterval,
			Logger:   logger,
		}),
	}
}

func newHandler(storage *sqlite.Storage, svc services, logger *slog.Logger) http.Handler {
	return httptransport.NewRouter(httptransport.RouterConfig{
		Entries:      httptransport.NewEntryHandler(svc.store, svc.relocation, logger),
		Exports:      httptransport.NewExportHandler(svc.store, time.Now, logger),
		Participants: httptransport.NewParticipantHandler(storage.Participants(), logger),
		Health:       httptransport.NewHealthHandler(storage, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.Recoverer(logger),
		},
	})
}

func serveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the timetable HTTP API and relay notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, logger, err := opts.environment()
			if err != nil {
				return err
			}

			storage, err := openStorage(ctx, cfg, logger)
			if err != nil {
				logger.Error("failed to open storage", "error", err)
				return err
			}
			defer func() {
				if cerr := storage.Close(); cerr != nil {
					logger.Error("failed to close storage", "error", cerr)
				}
			}()

			svc := newServices(cfg, storage, logger)

			relayDone := make(chan struct{})
			go func() {
				defer close(relayDone)
				if err := svc.relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("notification relay stopped", "error", err)
				}
			}()

			server := &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
				Handler:           newHandler(storage, svc, logger),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("failed to shutdown server", "error", err)
				}
			}()

			logger.Info("timetable API listening", "addr", server.Addr, "location", cfg.Location.String())
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("server encountered error", "error", err)
				return err
			}
			<-relayDone
			return nil
		},
	}
}

func migrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and print the schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, logger, err := opts.environment()
			if err != nil {
				return err
			}

			storage, err := openStorage(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer storage.Close()

			status, err := storage.MigrationStatus(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %s (%d applied, %d pending)\n",
				status.CurrentVersion, len(status.Applied), len(status.Pending))
			return nil
		},
	}
}

func exportCmd(opts *rootOptions) *cobra.Command {
	var (
		className string
		format    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a class timetable as iCalendar or CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			format = strings.ToLower(strings.TrimSpace(format))
			if format != "ics" && format != "csv" {
				return fmt.Errorf("unsupported format %q: use ics or csv", format)
			}

			cfg, logger, err := opts.environment()
			if err != nil {
				return err
			}
			storage, err := openStorage(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer storage.Close()

			agg, err := newServices(cfg, storage, logger).store.Load(ctx, className)
			if err != nil {
				return err
			}

			if format == "csv" {
				return export.WriteCSV(cmd.OutOrStdout(), agg)
			}
			return export.ICS(cmd.OutOrStdout(), agg, time.Now())
		},
	}

	cmd.Flags().StringVar(&className, "class", "", "class to export")
	cmd.Flags().StringVar(&format, "format", "ics", "output format: ics or csv")
	_ = cmd.MarkFlagRequired("class")
	return cmd
}
