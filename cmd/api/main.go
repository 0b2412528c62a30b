package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/tasklist/internal/auth"
	"github.com/geocoder89/tasklist/internal/cache"
	"github.com/geocoder89/tasklist/internal/config"
	"github.com/geocoder89/tasklist/internal/db"
	"github.com/geocoder89/tasklist/internal/domain/task"
	"github.com/geocoder89/tasklist/internal/domain/user"
	httpx "github.com/geocoder89/tasklist/internal/http"
	"github.com/geocoder89/tasklist/internal/http/handlers"
	"github.com/geocoder89/tasklist/internal/janitor"
	"github.com/geocoder89/tasklist/internal/observability"
	"github.com/geocoder89/tasklist/internal/ratelimit"
	"github.com/geocoder89/tasklist/internal/redisclient"
	"github.com/geocoder89/tasklist/internal/repo/memory"
	"github.com/geocoder89/tasklist/internal/repo/postgres"
	"github.com/geocoder89/tasklist/internal/repo/redisstore"
	sqliterepo "github.com/geocoder89/tasklist/internal/repo/sqlite"
	"github.com/geocoder89/tasklist/internal/security"
	"github.com/geocoder89/tasklist/internal/tasks"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type storage struct {
	users   user.Repository
	tasks   task.Repository
	revoked auth.RevocationList
	health  []handlers.Pinger
	close   func()
}

func main() {
	// Load the config set up
	cfg, err := config.Load()

	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	err = run(cfg, log)

	if err != nil {
		log.Error("api exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, cancel := config.WithTimeout(30 * time.Second)
	defer cancel()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracingConfig{
		Enabled:     cfg.OTelEnabled,
		ServiceName: "tasklist-api",
		Endpoint:    cfg.OTelEndpoint,
		Env:         cfg.Env,
	})

	if err != nil {
		return err
	}

	defer func() {
		sctx, scancel := config.WithTimeout(5 * time.Second)
		defer scancel()
		_ = shutdownTracer(sctx)
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	store, err := openStorage(ctx, cfg, prom, log)

	if err != nil {
		return err
	}

	defer store.close()

	var rdb *redisclient.Client

	if cfg.RedisEnabled() {
		rdb, err = redisclient.Connect(ctx, redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}

		defer rdb.Close()

		// redis wins over the storage backend for revocations, entries expire on their own
		store.revoked = redisstore.NewRevokedTokens(rdb.Raw(), prom)
		store.health = append(store.health, handlers.Pinger{Name: "redis", Ping: rdb.Ping})
	}

	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	authn := auth.NewAuthenticator(store.users, hasher)
	sessions := auth.NewManager(cfg.JWTSecret, cfg.SessionTTL, store.revoked)

	bg, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	// redis expires revocations itself, the sql and memory backends need a sweep
	if purger, ok := store.revoked.(janitor.Purger); ok && cfg.RevocationPurgeInterval > 0 {
		j := janitor.New(janitor.Config{Interval: cfg.RevocationPurgeInterval}, purger, log.With("component", "janitor"))

		go func() {
			_ = j.Run(bg)
		}()
	}

	if cfg.SeedDemoUser && !cfg.IsProd() {
		err = db.EnsureDemoUser(ctx, authn, log)

		if err != nil {
			return fmt.Errorf("seed demo user: %w", err)
		}
	}

	var lists *cache.Cache[[]task.Task]
	if ttl := cfg.ListCacheTTL(); ttl > 0 {
		lists = cache.New[[]task.Task](ttl)
	} else if cfg.TaskCacheTTL > 0 {
		log.Info("task list cache disabled for shared storage", "storage", cfg.StorageDriver)
	}

	taskStore := tasks.NewStore(store.tasks, lists, log, tasks.WithMetrics(prom))

	var loginLimiter ratelimit.Limiter

	if cfg.LoginRateLimit > 0 {
		if rdb != nil {
			loginLimiter = ratelimit.NewSlidingWindow(rdb.Raw(), "tasklist:ratelimit:login:", cfg.LoginRateLimit, cfg.LoginRateWindow)
		} else {
			loginLimiter = ratelimit.NewFixedWindow(cfg.LoginRateLimit, cfg.LoginRateWindow)
		}
	}

	// set up routers with the log
	router := httpx.NewRouter(httpx.Deps{
		Log:            log,
		Env:            cfg.Env,
		Authn:          authn,
		Sessions:       sessions,
		Tasks:          taskStore,
		LoginLimiter:   loginLimiter,
		Prom:           prom,
		Gatherer:       reg,
		Tracing:        cfg.OTelEnabled,
		Health:         store.health,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		MaxBodyBytes:   cfg.MaxBodyBytes,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "storage", cfg.StorageDriver, "redis", cfg.RedisEnabled())
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-stop:
	}

	log.Info("server shutting down")
	stopBackground()

	sctx, scancel := config.WithTimeout(10 * time.Second)
	defer scancel()

	err = srv.Shutdown(sctx)

	if err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	log.Info("shutdown complete")

	return nil
}

func openStorage(ctx context.Context, cfg config.Config, prom *observability.Prom, log *slog.Logger) (storage, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		pool, err := db.NewPool(cfg.DBURL)

		if err != nil {
			return storage{}, fmt.Errorf("connect postgres: %w", err)
		}

		err = db.MigratePostgres(ctx, pool, log)

		if err != nil {
			pool.Close()
			return storage{}, err
		}

		return storage{
			users:   postgres.NewUsersRepo(pool, prom),
			tasks:   postgres.NewTasksRepo(pool, prom),
			revoked: postgres.NewRevokedTokensRepo(pool, prom),
			health:  []handlers.Pinger{{Name: "postgres", Ping: pingPool(pool)}},
			close:   pool.Close,
		}, nil

	case config.DriverSQLite:
		sqlDB, err := db.OpenSQLite(cfg.SQLitePath)

		if err != nil {
			return storage{}, err
		}

		err = db.MigrateSQLite(ctx, sqlDB, log)

		if err != nil {
			sqlDB.Close()
			return storage{}, err
		}

		return storage{
			users:   sqliterepo.NewUsersRepo(sqlDB, prom),
			tasks:   sqliterepo.NewTasksRepo(sqlDB, prom),
			revoked: sqliterepo.NewRevokedTokensRepo(sqlDB, prom),
			health:  []handlers.Pinger{{Name: "sqlite", Ping: pingSQL(sqlDB)}},
			close:   func() { _ = sqlDB.Close() },
		}, nil

	default:
		log.Warn("using in-memory storage, data is lost on restart")

		users := memory.NewUsersRepo()

		return storage{
			users:   users,
			tasks:   memory.NewTasksRepo(),
			revoked: memory.NewRevokedTokens(),
			health:  []handlers.Pinger{{Name: "memory", Ping: users.Ping}},
			close:   func() {},
		}, nil
	}
}

func pingPool(pool *pgxpool.Pool) func(context.Context) error {
	return pool.Ping
}

func pingSQL(sqlDB *sql.DB) func(context.Context) error {
	return sqlDB.PingContext
}
