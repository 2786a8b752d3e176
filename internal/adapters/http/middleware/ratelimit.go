package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/qa-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/qa-service/internal/platform/logging"
)

// Rate limit response headers.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
)

// HitCounter counts requests per key in fixed windows.
type HitCounter interface {
	// Hit records one request and returns the count in the current window and
	// the time left until it resets.
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RateLimitKey identifies the caller: the authenticated user, else the client IP.
func RateLimitKey(c *gin.Context) string {
	if actor := GetActor(c); actor.Authenticated() {
		return "user:" + actor.UserID
	}

	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}

	return "ip:" + ip
}

// RateLimit rejects callers over limit requests per window with 429. Counter
// errors fail open. It should run after Authenticate so users are keyed by id.
func RateLimit(counter HitCounter, limit int, window time.Duration) gin.HandlerFunc {
	if counter == nil || limit <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		ctx := c.Request.Context()

		count, ttl, err := counter.Hit(ctx, RateLimitKey(c), window)
		if err != nil {
			logging.FromContext(ctx).Warn("rate limiter unavailable, allowing request", "error", err.Error())
			c.Next()

			return
		}

		reset := max(int(ttl.Round(time.Second)/time.Second), 0)

		c.Header(HeaderRateLimitLimit, strconv.Itoa(limit))
		c.Header(HeaderRateLimitRemaining, strconv.FormatInt(max(int64(limit)-count, 0), 10))
		c.Header(HeaderRateLimitReset, strconv.Itoa(reset))

		if count > int64(limit) {
			if reset > 0 {
				c.Header("Retry-After", strconv.Itoa(reset))
			}

			dto.AbortWithErrorCode(c, dto.ErrorCodeRateLimited, "rate limit exceeded")

			return
		}

		c.Next()
	}
}
