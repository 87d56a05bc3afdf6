package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Simplici0/o.quotes/internal/config"
	"github.com/Simplici0/o.quotes/internal/db"
	"github.com/Simplici0/o.quotes/internal/httpapi"
	"github.com/Simplici0/o.quotes/internal/logging"
	"github.com/Simplici0/o.quotes/internal/migrations"
	"github.com/Simplici0/o.quotes/internal/pricing"
	"github.com/Simplici0/o.quotes/internal/seed"
	"github.com/Simplici0/o.quotes/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.IsDev())
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	for _, w := range cfg.Warnings() {
		logger.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	s, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.IsDev() && cfg.SeedDemo {
		stats, err := seed.Run(ctx, s, cfg.DefaultCurrency, time.Now())
		if err != nil {
			return fmt.Errorf("seed database: %w", err)
		}
		logger.Info("seed complete", zap.Int("inserts", stats.Inserts), zap.Int("existing", stats.Existing))
	}

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: httpapi.NewRouter(httpapi.Options{
			Store:           s,
			Logger:          logger,
			APIToken:        cfg.APIToken,
			DefaultCurrency: cfg.DefaultCurrency,
			Policy:          pricing.Policy{ClampTaxable: cfg.ClampTaxable},
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// openStore opens the configured database, applies migrations and returns
// the matching store with its cleanup func.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.Store, func(), error) {
	switch cfg.DBDriver {
	case "postgres":
		pool, err := db.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		sqlDB := stdlib.OpenDBFromPool(pool)
		cleanup := func() {
			_ = sqlDB.Close()
			pool.Close()
		}

		applied, err := migrations.Up(ctx, sqlDB, migrations.Postgres)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("run database migrations: %w", err)
		}
		logger.Info("database ready", zap.String("driver", "postgres"), zap.Int("migrations_applied", applied))
		return store.NewPostgres(pool), cleanup, nil

	default:
		database, err := db.OpenSQLite(ctx, cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		cleanup := func() { _ = database.Close() }

		applied, err := migrations.Up(ctx, database, migrations.SQLite)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("run database migrations: %w", err)
		}
		logger.Info("database ready",
			zap.String("driver", "sqlite"),
			zap.String("path", cfg.DBPath),
			zap.Int("migrations_applied", applied),
		)
		return store.NewSQLite(database), cleanup, nil
	}
}
