package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/tetebueno/dawarich/internal/config"
	"github.com/tetebueno/dawarich/internal/db"
	"github.com/tetebueno/dawarich/internal/logging"
	"github.com/tetebueno/dawarich/internal/server"
	"github.com/tetebueno/dawarich/internal/storage"
)

var mainDepsProvider = defaultDeps
var mainRunner = realMain

func main() {
	mainRunner(mainDepsProvider())
}

type mainDeps struct {
	loadConfig      func() config.Config
	connectPostgres func(config.Config) (*pgxpool.Pool, error)
	connectRedis    func(config.Config) *redis.Client
	migrate         func(string) error
	openStore       func(context.Context, config.Config) (storage.Store, error)
	notify          func(chan<- os.Signal, ...os.Signal)
	run             func(context.Context, config.Config, *pgxpool.Pool, *redis.Client, storage.Store, <-chan os.Signal, ListenFunc) error
}

func defaultDeps() mainDeps {
	return mainDeps{
		loadConfig:      config.Load,
		connectPostgres: db.ConnectPostgres,
		connectRedis:    db.ConnectRedis,
		migrate:         db.MigrateUp,
		openStore:       storage.New,
		notify:          signal.Notify,
		run:             Run,
	}
}

func realMain(deps mainDeps) {
	cfg := deps.loadConfig()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	pg, err := deps.connectPostgres(cfg)
	if err != nil {
		logging.Error().Err(err).Msg("postgres connection failed")
	}
	if pg != nil && cfg.MigrateOnStart {
		if err := deps.migrate(cfg.PostgresURL); err != nil {
			logging.Error().Err(err).Msg("migrations failed")
		}
	}

	rdb := deps.connectRedis(cfg)

	store, err := deps.openStore(context.Background(), cfg)
	if err != nil {
		logging.Error().Err(err).Msg("export storage unavailable")
		return
	}

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if err := deps.run(context.Background(), cfg, pg, rdb, store, signals, nil); err != nil {
		logging.Error().Err(err).Msg("server exited with error")
	}
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

var shutdownFn = func(app *fiber.App, ctx context.Context) error {
	return app.ShutdownWithContext(ctx)
}

// Run starts the HTTP server and export workers, then waits for termination
// signals.
func Run(ctx context.Context, cfg config.Config, pg *pgxpool.Pool, rdb *redis.Client, store storage.Store, signals <-chan os.Signal, listen ListenFunc) error {
	srv := server.NewServer(cfg, pg, rdb, store)

	if listen == nil {
		listen = defaultListen
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	srv.StartWorkers(workerCtx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(srv.App, cfg.ServerPort)
	}()
	logging.Info().Str("addr", cfg.ServerPort).Int("export_workers", cfg.ExportWorkers).Msg("server started")

	select {
	case <-signals:
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stopWorkers()
	if err := shutdownFn(srv.App, shutdownCtx); err != nil {
		return err
	}
	srv.Stream.Close()
	if pg != nil {
		pg.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	logging.Info().Msg("server stopped")
	return nil
}
