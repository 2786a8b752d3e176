package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/qa-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen/qa-service/internal/adapters/http/middleware"
	"github.com/jsamuelsen/qa-service/internal/platform/config"
	"github.com/jsamuelsen/qa-service/internal/platform/telemetry"
)

// DefaultRequestTimeout bounds API requests other than the notification stream.
const DefaultRequestTimeout = 30 * time.Second

// APIPrefix is the path prefix of the Q&A API.
const APIPrefix = "/api/v1"

// StreamPath is the WebSocket notification stream. It is exempt from the
// request timeout.
const StreamPath = APIPrefix + "/notifications/stream"

// RouterConfig contains everything SetupRouter wires together.
type RouterConfig struct {
	Logger    *slog.Logger
	AppConfig *config.AppConfig

	// Authenticator establishes the caller's identity on every API request.
	Authenticator *middleware.Authenticator

	// RateLimiter counts requests per caller. Nil disables rate limiting.
	RateLimiter middleware.HitCounter
	RateLimit   config.RateLimitConfig

	HealthHandler       *handlers.HealthHandler
	QuestionHandler     *handlers.QuestionHandler
	AnswerHandler       *handlers.AnswerHandler
	NotificationHandler *handlers.NotificationHandler
	UserHandler         *handlers.UserHandler

	Timeout time.Duration
}

// SetupRouter configures all routes and middleware on the Gin engine.
// Middleware runs in this order:
//  1. Recovery
//  2. Request ID
//  3. Correlation ID
//  4. OpenTelemetry tracing and request metrics
//  5. Logging
//
// and on /api/v1 additionally:
//  6. Authenticate
//  7. Rate limit
//  8. Timeout (not on the notification stream)
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	engine.Use(
		middleware.Recovery(cfg.Logger),
		middleware.RequestID(),
		middleware.CorrelationID(),
	)
	engine.Use(telemetry.Middleware(cfg.AppConfig.Name)...)
	engine.Use(middleware.Logging(cfg.Logger))

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterHealthRoutes(engine.Group("/-"))
	}

	api := engine.Group(APIPrefix)

	if cfg.Authenticator != nil {
		api.Use(middleware.Authenticate(cfg.Authenticator))
	}

	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(cfg.RateLimiter, cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	api.Use(middleware.Timeout(cfg.Timeout, StreamPath))

	setupAPIRoutes(api, cfg)
}

func setupAPIRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	auth := middleware.RequireAuth()

	if cfg.QuestionHandler != nil {
		cfg.QuestionHandler.RegisterRoutes(rg, auth)
	}

	if cfg.AnswerHandler != nil {
		cfg.AnswerHandler.RegisterRoutes(rg, auth)
	}

	if cfg.NotificationHandler != nil {
		cfg.NotificationHandler.RegisterRoutes(rg, auth)
		cfg.NotificationHandler.RegisterStreamRoute(rg, auth)
	}

	if cfg.UserHandler != nil {
		cfg.UserHandler.RegisterRoutes(rg, auth)
	}
}
