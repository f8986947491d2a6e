package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Togather-Foundation/rsvp/internal/api"
	"github.com/Togather-Foundation/rsvp/internal/api/handlers"
	"github.com/Togather-Foundation/rsvp/internal/api/middleware"
	"github.com/Togather-Foundation/rsvp/internal/audit"
	"github.com/Togather-Foundation/rsvp/internal/auth"
	"github.com/Togather-Foundation/rsvp/internal/config"
	"github.com/Togather-Foundation/rsvp/internal/domain/events"
	"github.com/Togather-Foundation/rsvp/internal/domain/registrations"
	"github.com/Togather-Foundation/rsvp/internal/domain/users"
	"github.com/Togather-Foundation/rsvp/internal/metrics"
	"github.com/Togather-Foundation/rsvp/internal/storage/memory"
	"github.com/Togather-Foundation/rsvp/internal/storage/postgres"
	"github.com/Togather-Foundation/rsvp/internal/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	host     string
	port     int
	inMemory bool
	migrate  bool
}

func newServeCommand(global *globalOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the RSVP HTTP server",
		Long: `Start the RSVP HTTP server and begin accepting API requests.

Configuration comes from environment variables, optionally overlaid on a
YAML file given with --config. The server shuts down gracefully on SIGINT
or SIGTERM.

Examples:
  # Start with default configuration (from env vars)
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Apply pending migrations before serving
  server serve --migrate

  # Run without PostgreSQL; data is lost on exit
  server serve --in-memory`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, global, opts)
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "", "server host address (default: 0.0.0.0)")
	cmd.Flags().IntVar(&opts.port, "port", 0, "server port (default: 8080)")
	cmd.Flags().BoolVar(&opts.inMemory, "in-memory", false, "use the in-memory store instead of PostgreSQL")
	cmd.Flags().BoolVar(&opts.migrate, "migrate", false, "apply database migrations before serving")
	return cmd
}

func (o *serveOptions) apply(cfg *config.Config) {
	if o.host != "" {
		cfg.Server.Host = o.host
	}
	if o.port != 0 {
		cfg.Server.Port = o.port
	}
	if o.inMemory {
		cfg.Storage = config.StorageMemory
	}
}

// backend holds the repositories behind the services. db is nil for the
// in-memory store.
type backend struct {
	users         users.Repository
	events        events.Repository
	registrations registrations.Repository
	db            handlers.Pinger
	close         func()
}

func runServer(ctx context.Context, global *globalOptions, opts *serveOptions) error {
	cfg, err := loadConfig(global, opts.apply)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	logger := config.NewLogger(cfg.Logging)
	logger.Info().Str("version", Version).Str("storage", cfg.Storage).Msg("starting RSVP server")

	metrics.Init(Version, GitCommit, BuildDate)

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error().Err(err).Msg("tracing shutdown error")
		}
	}()

	store, err := openBackend(ctx, cfg, opts.migrate, logger)
	if err != nil {
		return err
	}
	defer store.close()

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, auth.DefaultTokenTTL, cfg.Auth.JWTIssuer)
	auditLogger := audit.NewLoggerWithZerolog(logger)

	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.Environment)
	defer limiter.Stop()

	handler := api.NewRouter(api.Deps{
		Config:        cfg,
		Logger:        logger,
		Users:         users.NewService(store.users, auth.NewBcryptHasher(cfg.Auth.BcryptCost), tokens, auditLogger, logger),
		Events:        events.NewService(store.events, auditLogger, logger),
		Registrations: registrations.NewService(store.registrations, auditLogger, logger),
		Tokens:        tokens,
		DB:            store.db,
		RateLimiter:   limiter,
		Build:         api.BuildInfo{Version: Version, GitCommit: GitCommit, BuildDate: BuildDate},
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func openBackend(ctx context.Context, cfg config.Config, runMigrations bool, logger zerolog.Logger) (*backend, error) {
	if cfg.Storage == config.StorageMemory {
		logger.Warn().Msg("using in-memory store; data will not survive a restart")
		store := memory.New()
		return &backend{
			users:         store.Users(),
			events:        store.Events(),
			registrations: store.Registrations(),
			close:         func() {},
		}, nil
	}

	connString := cfg.Database.ConnString()
	if runMigrations {
		if err := postgres.MigrateUp(connString); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info().Msg("database migrations applied")
	}

	poolCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	if cfg.Database.MaxConnections > 0 {
		poolCfg.MaxConns = int32(cfg.Database.MaxConnections)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("repository init failed: %w", err)
	}

	poolMetrics := metrics.NewPoolCollector(pool)
	if err := metrics.Registry.Register(poolMetrics); err != nil {
		logger.Warn().Err(err).Msg("pool metrics not registered")
	}

	return &backend{
		users:         repo.Users(),
		events:        repo.Events(),
		registrations: repo.Registrations(),
		db:            repo.Executor(),
		close: func() {
			metrics.Registry.Unregister(poolMetrics)
			pool.Close()
		},
	}, nil
}
