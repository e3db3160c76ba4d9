package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/rafaesapata/AWS-EVO-sub012/internal/archive"
	"github.com/rafaesapata/AWS-EVO-sub012/internal/attribution"
	"github.com/rafaesapata/AWS-EVO-sub012/internal/escalation"
	"github.com/rafaesapata/AWS-EVO-sub012/internal/handlers"
	"github.com/rafaesapata/AWS-EVO-sub012/internal/logging"
	"github.com/rafaesapata/AWS-EVO-sub012/internal/pipeline"
	"github.com/rafaesapata/AWS-EVO-sub012/internal/repository"
	"github.com/rafaesapata/AWS-EVO-sub012/internal/server"
)

const shutdownTimeout = 30 * time.Second

var devMode bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ingestion receiver",
	Long: `Starts the HTTP receiver for subscription deliveries, runs database
migrations and wires the pipeline to its stores and collaborators.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&devMode, "dev", false, "run with in-memory stores (no database)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("wafingest"))
	logging.SetDefault(logger)

	slog.Info("Starting WAF ingestion service",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Logging.Level),
		slog.Bool("dev_mode", devMode),
	)

	var store repository.Store
	if devMode {
		slog.Warn("Dev mode: using in-memory stores, nothing is durable")
		store = repository.NewInMemoryStore()
	} else {
		connString := cfg.Database.Postgres.ConnString()

		slog.Info("Running database migrations")
		m, err := migrate.New("file://migrations", connString)
		if err != nil {
			return fmt.Errorf("initialize migrations: %w", err)
		}
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("run migrations: %w", err)
		}

		pg, err := repository.NewPostgresStore(cmd.Context(), connString)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		store = pg
	}
	defer store.Close()

	// Attribution cache is optional; the pipeline works without it.
	var cache attribution.Cache
	if cfg.Redis.Enabled {
		redisCache, err := attribution.NewRedisCache(cfg.Redis.URL, cfg.Redis.AttributionTTL)
		if err != nil {
			slog.Warn("Attribution cache unavailable, continuing without it", logging.Error(err))
		} else {
			cache = redisCache
			defer redisCache.Close()
			slog.Info("Attribution cache enabled",
				slog.Duration("ttl", cfg.Redis.AttributionTTL))
		}
	}

	var notifier escalation.Notifier = escalation.NoopNotifier{}
	if cfg.NATS.Enabled {
		natsCfg := escalation.DefaultConfig()
		natsCfg.URL = cfg.NATS.URL
		n, err := escalation.NewNATSNotifier(natsCfg)
		if err != nil {
			slog.Warn("Escalation bus unavailable, escalations will be dropped", logging.Error(err))
		} else {
			notifier = n
			slog.Info("Escalation publisher enabled", slog.String("url", cfg.NATS.URL))
		}
	}
	defer notifier.Close()

	var archiver archive.Archiver = archive.NoopArchiver{}
	if cfg.Archive.Enabled {
		a, err := archive.NewOpenSearchArchiver(archive.Config{
			URL:           cfg.Archive.URL,
			Username:      cfg.Archive.Username,
			Password:      cfg.Archive.Password,
			TLSSkipVerify: cfg.Archive.Insecure,
			IndexPrefix:   cfg.Archive.IndexPrefix,
		})
		if err != nil {
			slog.Warn("Event archive unavailable, continuing without it", logging.Error(err))
		} else {
			archiver = a
			slog.Info("Event archive enabled", slog.String("url", cfg.Archive.URL))
		}
	}

	attributor := attribution.New(attribution.DefaultStrategies(store, store), cache, logger)

	pipe := pipeline.New(attributor, store, store, notifier, logger,
		pipeline.WithWorkers(cfg.Pipeline.PersistWorkers),
		pipeline.WithArchiver(archiver),
	)

	handler := handlers.NewIngestHandler(pipe, logger, func() bool { return true })

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.NewRouter(handler),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Listening for subscription deliveries", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		slog.Info("Shutting down", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	slog.Info("Shutdown complete")
	return nil
}
