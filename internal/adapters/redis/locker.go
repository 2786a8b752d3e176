package redis

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/jsamuelsen/qa-service/internal/ports"
)

// Lock defaults.
const (
	DefaultLockTTL   = 5 * time.Second
	DefaultLockRetry = 25 * time.Millisecond

	releaseTimeout = time.Second
)

// releaseScript deletes the lock only while it still carries our token, so a
// holder whose TTL lapsed cannot free somebody else's lock.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker implements ports.QuestionLocker across service replicas with
// SET NX PX. The TTL bounds how long a crashed holder can block a question.
type Locker struct {
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
	retry  time.Duration
	logger *slog.Logger
}

var _ ports.QuestionLocker = (*Locker)(nil)

// LockerConfig configures a Locker. Zero durations use the defaults.
type LockerConfig struct {
	Prefix string
	TTL    time.Duration
	Retry  time.Duration
	Logger *slog.Logger
}

// NewLocker creates a distributed locker.
func NewLocker(rdb goredis.UniversalClient, cfg LockerConfig) *Locker {
	l := &Locker{
		rdb:    rdb,
		prefix: cfg.Prefix,
		ttl:    cfg.TTL,
		retry:  cfg.Retry,
		logger: cfg.Logger,
	}

	if l.ttl <= 0 {
		l.ttl = DefaultLockTTL
	}

	if l.retry <= 0 {
		l.retry = DefaultLockRetry
	}

	if l.logger == nil {
		l.logger = slog.Default()
	}

	l.logger = l.logger.With(slog.String("component", "redis.Locker"))

	return l
}

// Lock implements ports.QuestionLocker. It polls until the key is free or
// ctx ends.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.rdb.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, unavailable("acquire lock", err)
		}

		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
			defer cancel()

			if err := releaseScript.Run(releaseCtx, l.rdb, []string{redisKey}, token).Err(); err != nil {
				l.logger.Warn("releasing lock failed, it will expire on its own",
					slog.String("key", redisKey),
					slog.Any("error", err),
				)
			}
		})
	}, nil
}
