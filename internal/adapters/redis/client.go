// Package redis holds the Redis-backed adapters: a distributed question
// lock, the profile cache and the request rate counter.
package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jsamuelsen/qa-service/internal/domain"
	"github.com/jsamuelsen/qa-service/internal/platform/config"
	"github.com/jsamuelsen/qa-service/internal/ports"
)

const dependencyName = "redis"

// NewClient creates a client and verifies the server answers PING.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", cfg.Addr, err)
	}

	return rdb, nil
}

// HealthChecker probes the server with PING.
func HealthChecker(rdb goredis.UniversalClient) ports.HealthChecker {
	return ports.CheckFunc{
		CheckName: dependencyName,
		Probe: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		},
	}
}

func unavailable(op string, err error) error {
	return domain.NewDependencyError(dependencyName, op, err)
}

var errUnexpectedReply = errors.New("unexpected script reply")
