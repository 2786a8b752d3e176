//go:build integration

package integration

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/qa-service/internal/adapters/memstore"
	"github.com/jsamuelsen/qa-service/internal/adapters/postgres"
	"github.com/jsamuelsen/qa-service/internal/adapters/redis"
	"github.com/jsamuelsen/qa-service/internal/app"
	"github.com/jsamuelsen/qa-service/internal/domain"
	"github.com/jsamuelsen/qa-service/internal/platform/config"
	"github.com/jsamuelsen/qa-service/internal/ports"
)

// Live backends are opt-in. Each variable points at a disposable instance.
const (
	envPostgresDSN   = "QA_TEST_POSTGRES_DSN"
	envRedisAddr     = "QA_TEST_REDIS_ADDR"
	envElasticsearch = "QA_TEST_ELASTICSEARCH_URL"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// namedStore is a content store under test.
type namedStore struct {
	name  string
	store ports.ContentStore
}

// contentStores returns the in-memory store, plus Postgres when configured.
func contentStores(t *testing.T) []namedStore {
	t.Helper()

	stores := []namedStore{{name: "memstore", store: memstore.New()}}

	dsn := os.Getenv(envPostgresDSN)
	if dsn == "" {
		return stores
	}

	require.NoError(t, postgres.Migrate(dsn, discardLogger()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, config.PostgresConfig{DSN: dsn, MaxConns: 8, ConnectTimeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return append(stores, namedStore{name: "postgres", store: postgres.New(pool)})
}

// redisClient connects to the configured Redis or skips the test.
func redisClient(t *testing.T) *redisHandle {
	t.Helper()

	addr := os.Getenv(envRedisAddr)
	if addr == "" {
		t.Skipf("%s not set", envRedisAddr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rdb, err := redis.NewClient(ctx, config.RedisConfig{Enabled: true, Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	return &redisHandle{
		locker: redis.NewLocker(rdb, redis.LockerConfig{
			Prefix: "qa-it:" + uuid.NewString() + ":lock:",
			TTL:    5 * time.Second,
			Retry:  5 * time.Millisecond,
			Logger: discardLogger(),
		}),
		cache: redis.NewCache(rdb, "qa-it:"+uuid.NewString()+":"),
	}
}

type redisHandle struct {
	locker *redis.Locker
	cache  *redis.Cache
}

// stack is the application layer wired over one store.
type stack struct {
	store   ports.ContentStore
	content *app.ContentService
	votes   *app.VoteService
	coord   *app.Coordinator
	cascade *app.Cascader
	query   *app.QueryService
	notes   *app.Dispatcher
}

func newStack(store ports.ContentStore, locker ports.QuestionLocker, searcher ports.QuestionSearcher) *stack {
	logger := discardLogger()
	runner := app.NewRunner(logger)

	dispatcher := app.NewDispatcher(app.DispatcherConfig{Notifications: store, Logger: logger})

	return &stack{
		store: store,
		notes: dispatcher,
		content: app.NewContentService(app.ContentServiceConfig{
			Questions: store, Answers: store, Comments: store, Users: store,
			Searcher: searcher, Dispatcher: dispatcher, Runner: runner, Logger: logger,
		}),
		votes: app.NewVoteService(app.VoteServiceConfig{
			Questions: store, Answers: store, Votes: store, Runner: runner, Logger: logger,
		}),
		coord: app.NewCoordinator(app.CoordinatorConfig{
			Questions: store, Answers: store, Locker: locker, Runner: runner, Logger: logger,
		}),
		cascade: app.NewCascader(app.CascaderConfig{
			Questions: store, Answers: store, Comments: store, Searcher: searcher, Runner: runner, Logger: logger,
		}),
		query: app.NewQueryService(app.QueryServiceConfig{
			Questions: store, Answers: store, Comments: store, Users: store, Searcher: searcher, Logger: logger,
		}),
	}
}

// newActor returns a user with a unique id so runs against shared databases do not collide.
func newActor(name string) domain.Actor {
	return domain.Actor{UserID: name + "-" + uuid.NewString()[:8], Username: name, Role: domain.RoleUser}
}

func newAdmin() domain.Actor {
	a := newActor("admin")
	a.Role = domain.RoleAdmin

	return a
}
