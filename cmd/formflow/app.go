package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/formflow"
	"github.com/aretw0/formflow/internal/config"
	"github.com/aretw0/formflow/internal/logging"
	httpadapter "github.com/aretw0/formflow/pkg/adapters/http"
	redisadapter "github.com/aretw0/formflow/pkg/adapters/redis"
	"github.com/aretw0/formflow/pkg/adapters/sqlite"
	"github.com/aretw0/formflow/pkg/authoring"
	"github.com/aretw0/formflow/pkg/observability"
	goredis "github.com/redis/go-redis/v9"
)

// app is the wired service: store, engine and HTTP handler.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *sqlite.Store
	engine  *formflow.Engine
	admin   *authoring.Service
	metrics *observability.Metrics
	handler http.Handler
	closers []func() error
}

func newLogger(cfg *config.Config) *slog.Logger {
	level, _ := logging.ParseLevel(cfg.Log.Level)
	return logging.New(level)
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sqlite.Store, error) {
	store, err := sqlite.Open(sqlite.Config{
		Path:         cfg.Database.Path,
		BusyTimeout:  cfg.Database.BusyTimeout,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		WAL:          cfg.Database.WAL,
	}, sqlite.WithLogger(logger.With("component", "sqlite")))
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, logger: newLogger(cfg)}

	store, err := openStore(ctx, cfg, a.logger)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, store.Close)

	a.metrics = observability.NewMetrics()
	opts := []formflow.Option{
		formflow.WithLogger(a.logger.With("component", "engine")),
		formflow.WithLifecycleHooks(observability.Chain(a.metrics.Hooks(), observability.LoggingHooks(a.logger))),
	}
	checks := []httpadapter.Pinger{store}

	var client *goredis.Client
	switch cfg.Cache.Driver {
	case config.CacheNone:
		opts = append(opts, formflow.WithSessionCache(nil))
	case config.CacheRedis:
		cache := redisadapter.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redisadapter.WithTTL(cfg.Cache.TTL),
			redisadapter.WithPrefix(cfg.Redis.Prefix),
		)
		client = cache.Client()
		a.closers = append(a.closers, cache.Close)
		checks = append(checks, cache)
		opts = append(opts, formflow.WithSessionCache(cache))
	}

	if cfg.Redis.Lock {
		if client == nil {
			client = goredis.NewClient(&goredis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			a.closers = append(a.closers, client.Close)
		}
		opts = append(opts, formflow.WithLocker(redisadapter.NewLocker(client, cfg.Redis.Prefix), cfg.Redis.LockTTL))
	}

	a.engine = formflow.New(store, opts...)
	a.admin = authoring.NewService(store, authoring.WithLogger(a.logger.With("component", "authoring")))

	httpOpts := []httpadapter.Option{
		httpadapter.WithLogger(a.logger),
		httpadapter.WithMetrics(a.metrics),
		httpadapter.WithHealthChecks(checks...),
	}
	if cfg.Server.Admin {
		httpOpts = append(httpOpts, httpadapter.WithAdmin(a.admin))
	}
	a.handler = httpadapter.NewHandler(a.engine, httpOpts...)
	return a, nil
}

// Close releases everything in reverse order of acquisition.
func (a *app) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = fmt.Errorf("close: %w", err)
		}
	}
	a.closers = nil
	return first
}
