package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jsamuelsen/qa-service/internal/adapters/clients"
	"github.com/jsamuelsen/qa-service/internal/adapters/memstore"
	"github.com/jsamuelsen/qa-service/internal/adapters/postgres"
	"github.com/jsamuelsen/qa-service/internal/adapters/rabbitmq"
	"github.com/jsamuelsen/qa-service/internal/adapters/redis"
	"github.com/jsamuelsen/qa-service/internal/adapters/search"
	"github.com/jsamuelsen/qa-service/internal/app"
	"github.com/jsamuelsen/qa-service/internal/platform/config"
	"github.com/jsamuelsen/qa-service/internal/ports"
)

// backends holds the infrastructure the services run on. Optional pieces
// are nil when disabled in config.
type backends struct {
	store     ports.ContentStore
	locker    ports.QuestionLocker
	cache     ports.Cache
	rateLimit *redis.RateCounter
	searcher  ports.QuestionSearcher
	publisher *rabbitmq.Publisher

	closers []func() error
}

// Close releases backends in reverse order of creation.
func (b *backends) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}

	return errors.Join(errs...)
}

func openBackends(ctx context.Context, cfg *config.Config, registry ports.HealthRegistry, logger *slog.Logger) (*backends, error) {
	b := &backends{}

	steps := []func(context.Context, *config.Config, ports.HealthRegistry, *slog.Logger) error{
		b.openStore,
		b.openRedis,
		b.openRabbitMQ,
		b.openSearch,
	}

	for _, step := range steps {
		if err := step(ctx, cfg, registry, logger); err != nil {
			_ = b.Close()
			return nil, err
		}
	}

	return b, nil
}

func (b *backends) openStore(ctx context.Context, cfg *config.Config, registry ports.HealthRegistry, logger *slog.Logger) error {
	var checker ports.HealthChecker

	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		if cfg.Postgres.Migrate {
			if err := postgres.Migrate(cfg.Postgres.DSN, logger); err != nil {
				return fmt.Errorf("migrating postgres: %w", err)
			}
		}

		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}

		b.closers = append(b.closers, func() error { pool.Close(); return nil })

		store := postgres.New(pool)
		b.store, checker = store, store

		logger.Info("content store ready", slog.String("driver", "postgres"), slog.Int("max_conns", int(pool.Config().MaxConns)))

	default:
		store := memstore.New()
		b.store, checker = store, store

		logger.Warn("content store is in memory; data is lost on restart")
	}

	return registry.Register(checker)
}

func (b *backends) openRedis(ctx context.Context, cfg *config.Config, registry ports.HealthRegistry, logger *slog.Logger) error {
	if !cfg.Redis.Enabled {
		b.locker = app.NewKeyedMutex()
		return nil
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}

	b.closers = append(b.closers, rdb.Close)

	b.locker = redis.NewLocker(rdb, redis.LockerConfig{
		Prefix: cfg.App.Name + ":lock:",
		TTL:    cfg.Redis.LockTTL,
		Retry:  cfg.Redis.LockRetry,
		Logger: logger,
	})
	b.cache = redis.NewCache(rdb, cfg.App.Name+":cache:")

	if cfg.Redis.RateLimit.Enabled {
		b.rateLimit = redis.NewRateCounter(rdb, cfg.App.Name+":rl:")
	}

	logger.Info("redis ready", slog.String("addr", cfg.Redis.Addr))

	return registry.Register(redis.HealthChecker(rdb))
}

func (b *backends) openRabbitMQ(_ context.Context, cfg *config.Config, registry ports.HealthRegistry, logger *slog.Logger) error {
	if !cfg.RabbitMQ.Enabled {
		return nil
	}

	publisher, err := rabbitmq.Dial(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue)
	if err != nil {
		return err
	}

	b.publisher = publisher
	b.closers = append(b.closers, publisher.Close)

	logger.Info("rabbitmq publisher ready", slog.String("queue", cfg.RabbitMQ.Queue))

	return registry.Register(publisher)
}

func (b *backends) openSearch(ctx context.Context, cfg *config.Config, registry ports.HealthRegistry, logger *slog.Logger) error {
	if !cfg.Search.Enabled {
		return nil
	}

	transport, err := clients.NewTransport(clients.Config{
		ServiceName: "elasticsearch",
		Timeout:     cfg.Client.Timeout,
		Retry:       cfg.Client.Retry,
		Circuit:     cfg.Client.CircuitBreaker,
		Pool:        cfg.Client.Transport,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("creating search transport: %w", err)
	}

	es, err := search.NewClient(cfg.Search, transport)
	if err != nil {
		return err
	}

	index := search.NewIndex(es, cfg.Search.Index, logger)
	if err := index.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("preparing search index: %w", err)
	}

	b.searcher = index

	if cfg.Search.ReindexOnStart {
		n, err := app.Reindex(ctx, b.store, index, app.DefaultReindexWorkers)
		if err != nil {
			return fmt.Errorf("reindexing questions: %w", err)
		}

		logger.Info("search index rebuilt", slog.Int("questions", n))
	}

	return registry.Register(index)
}
