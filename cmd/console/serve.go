package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ordertrack/console/internal/app"
	"ordertrack/console/internal/backend"
	"ordertrack/console/internal/config"
	"ordertrack/console/internal/guard"
	"ordertrack/console/internal/i18n"
	"ordertrack/console/internal/metrics"
	"ordertrack/console/internal/modules"
	"ordertrack/console/internal/routes"
	"ordertrack/console/internal/session"
	"ordertrack/console/internal/store"
	"ordertrack/console/internal/views"
)

const purgeInterval = time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the console HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg, err := modules.NewRegistry()
	if err != nil {
		return fmt.Errorf("module registry: %w", err)
	}
	table, err := routes.Compose(reg)
	if err != nil {
		return fmt.Errorf("route table: %w", err)
	}
	navGuard, err := guard.New(table, guard.WithLogger(logger.Named("guard")))
	if err != nil {
		return err
	}
	catalog, err := i18n.Load()
	if err != nil {
		return err
	}

	client := backend.New(cfg.BackendURL,
		backend.WithTimeout(cfg.BackendTimeout),
		backend.WithLogger(logger.Named("backend")),
	)

	state, checks, closeState, err := openStateStore(ctx, cfg, logger.Named("state"))
	if err != nil {
		return err
	}
	defer closeState()

	sessions := session.NewManager(client, state, session.NewSealer(cfg.StateSecret),
		session.WithLogger(logger.Named("session")),
	)
	if cfg.SessionIdle > 0 {
		go evictIdleSessions(ctx, sessions, cfg.SessionIdle, logger.Named("session"))
	}
	resolver := views.NewResolver(views.NewFSLoader(os.DirFS(cfg.DistDir)),
		views.WithLogger(logger.Named("views")),
	)

	promReg := prometheus.NewRegistry()
	if err := metrics.Register(promReg); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	service, err := app.NewService(app.Deps{
		Registry:      reg,
		Table:         table,
		Guard:         navGuard,
		Sessions:      sessions,
		Views:         resolver,
		Backend:       client,
		Catalog:       catalog,
		DefaultLocale: cfg.DefaultLocale,
		Checks:        checks,
		Logger:        logger.Named("app"),
	})
	if err != nil {
		return err
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, []byte(cfg.CookieSecret),
		app.WithMetrics(metrics.Handler(promReg)),
		app.WithLogger(logger.Named("http")),
		app.WithSecureCookie(cfg.CookieSecure),
	)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("console listening",
			zap.String("addr", cfg.Addr),
			zap.String("backend", client.BaseURL()),
			zap.String("state", cfg.StateBackend),
			zap.Int("modules", reg.Len()),
			zap.Int("routes", len(table.Entries())),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
	return nil
}

// openStateStore connects the configured client-state backend. The returned
// checks feed /api/ready.
func openStateStore(ctx context.Context, cfg config.Config, log *zap.Logger) (session.StateStore, map[string]app.Checker, func(), error) {
	switch cfg.StateBackend {
	case "postgres":
		db, err := store.Open(ctx, cfg.DatabaseURL, store.DefaultPool)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("database connection failed: %w", err)
		}
		if err := store.ApplyMigrations(ctx, db, store.Migrations()); err != nil {
			_ = db.Close()
			return nil, nil, nil, fmt.Errorf("migrations failed: %w", err)
		}
		state := store.NewPostgresStateStore(db, cfg.StateTTL)
		if cfg.StateTTL > 0 {
			go purgeExpired(ctx, state, log)
		}
		log.Info("client state in postgres")
		return state, map[string]app.Checker{"database": state}, closer(db), nil
	default:
		state, err := session.NewRedisStore(cfg.RedisURL, cfg.StateTTL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		log.Info("client state in redis")
		return state, map[string]app.Checker{"redis": state}, func() { _ = state.Close() }, nil
	}
}

func closer(db *sql.DB) func() {
	return func() { _ = db.Close() }
}

func purgeExpired(ctx context.Context, state *store.PostgresStateStore, log *zap.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := state.PurgeExpired(ctx)
			if err != nil {
				log.Warn("purge expired client state", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Info("purged expired client state", zap.Int64("rows", n))
			}
		}
	}
}

// evictIdleSessions bounds the in-memory session map. Evicted clients are
// restored from the state store on their next request.
func evictIdleSessions(ctx context.Context, sessions *session.Manager, idle time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := sessions.EvictIdle(now.Add(-idle)); n > 0 {
				log.Debug("evicted idle sessions", zap.Int("sessions", n), zap.Int("remaining", sessions.Len()))
			}
		}
	}
}
