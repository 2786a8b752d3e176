// Package main is the entry point of the Q&A service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jsamuelsen/qa-service/internal/adapters/http"
	"github.com/jsamuelsen/qa-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen/qa-service/internal/adapters/http/middleware"
	"github.com/jsamuelsen/qa-service/internal/adapters/ws"
	"github.com/jsamuelsen/qa-service/internal/app"
	"github.com/jsamuelsen/qa-service/internal/platform/config"
	"github.com/jsamuelsen/qa-service/internal/platform/logging"
	"github.com/jsamuelsen/qa-service/internal/platform/telemetry"
	"github.com/jsamuelsen/qa-service/internal/ports"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// 1. Local .env files are optional; real environments set variables directly.
	_ = godotenv.Load()

	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	// 2. Load and validate configuration (fail fast)
	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// 3. Logging
	logger := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	logging.SetDefault(logger)

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
		slog.String("storage", cfg.Storage.Driver),
		slog.String("auth_mode", cfg.Auth.Mode),
	)

	// 4. Telemetry (noop if disabled)
	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(ctx); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	metrics, err := telemetry.NewQAMetrics()
	if err != nil {
		return fmt.Errorf("creating metrics: %w", err)
	}

	// 5. Infrastructure
	healthRegistry := ports.NewHealthRegistry()

	b, err := openBackends(ctx, cfg, healthRegistry, logger)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := b.Close(); closeErr != nil {
			logger.Error("closing backends", slog.Any("error", closeErr))
		}
	}()

	hub := ws.NewHub()
	if err := healthRegistry.Register(hub); err != nil {
		return fmt.Errorf("registering websocket hub: %w", err)
	}

	publishers := []ports.EventPublisher{hub}
	if b.publisher != nil {
		publishers = append(publishers, b.publisher)
	}

	// 6. Application services
	svc := newServices(cfg, b, publishers, metrics, logger)

	// 7. HTTP
	authenticator, err := middleware.NewAuthenticator(&cfg.Auth)
	if err != nil {
		return fmt.Errorf("creating authenticator: %w", err)
	}

	server := http.New(&cfg.Server, logger)
	server.OnShutdown(hub.Close)

	routerCfg := http.RouterConfig{
		Logger:        logger,
		AppConfig:     &cfg.App,
		Authenticator: authenticator,
		RateLimit:     cfg.Redis.RateLimit,
		HealthHandler: handlers.NewHealthHandler(healthRegistry, handlers.NewBuildInfo(Version, Commit, BuildTime)),
		QuestionHandler: handlers.NewQuestionHandler(handlers.QuestionHandlerConfig{
			Queries: svc.queries,
			Content: svc.content,
			Votes:   svc.votes,
			Remover: svc.cascader,
		}),
		AnswerHandler: handlers.NewAnswerHandler(handlers.AnswerHandlerConfig{
			Content: svc.content,
			Votes:   svc.votes,
			Marker:  svc.coordinator,
			Remover: svc.cascader,
			Authors: svc.queries,
		}),
		NotificationHandler: handlers.NewNotificationHandler(svc.dispatcher, hub, cfg.Server.WSOrigins),
		UserHandler:         handlers.NewUserHandler(svc.profiles),
		Timeout:             http.DefaultRequestTimeout,
	}

	if b.rateLimit != nil {
		routerCfg.RateLimiter = b.rateLimit
	}

	http.SetupRouter(server.Engine(), routerCfg)

	// 8. Serve until signalled
	serverErr := server.Start()

	return waitForShutdown(ctx, logger, server, serverErr, cfg.Server.ShutdownTimeout)
}

type services struct {
	content     *app.ContentService
	votes       *app.VoteService
	coordinator *app.Coordinator
	cascader    *app.Cascader
	queries     *app.QueryService
	profiles    *app.ProfileService
	dispatcher  *app.Dispatcher
}

func newServices(cfg *config.Config, b *backends, publishers []ports.EventPublisher, metrics *telemetry.QAMetrics, logger *slog.Logger) *services {
	runner := app.NewRunner(logger)

	dispatcher := app.NewDispatcher(app.DispatcherConfig{
		Notifications: b.store,
		Publishers:    publishers,
		Metrics:       metrics,
		Logger:        logger,
	})

	return &services{
		dispatcher: dispatcher,
		content: app.NewContentService(app.ContentServiceConfig{
			Questions:  b.store,
			Answers:    b.store,
			Comments:   b.store,
			Users:      b.store,
			Searcher:   b.searcher,
			Dispatcher: dispatcher,
			Runner:     runner,
			Logger:     logger,
		}),
		votes: app.NewVoteService(app.VoteServiceConfig{
			Questions: b.store,
			Answers:   b.store,
			Votes:     b.store,
			Runner:    runner,
			Metrics:   metrics,
			Logger:    logger,
		}),
		coordinator: app.NewCoordinator(app.CoordinatorConfig{
			Questions: b.store,
			Answers:   b.store,
			Locker:    b.locker,
			Runner:    runner,
			Metrics:   metrics,
			Logger:    logger,
		}),
		cascader: app.NewCascader(app.CascaderConfig{
			Questions: b.store,
			Answers:   b.store,
			Comments:  b.store,
			Searcher:  b.searcher,
			Runner:    runner,
			Metrics:   metrics,
			Logger:    logger,
		}),
		queries: app.NewQueryService(app.QueryServiceConfig{
			Questions:       b.store,
			Answers:         b.store,
			Comments:        b.store,
			Users:           b.store,
			Searcher:        b.searcher,
			DefaultPageSize: cfg.Listing.DefaultPageSize,
			MaxPageSize:     cfg.Listing.MaxPageSize,
			SearchLimit:     cfg.Listing.SearchLimit,
			Logger:          logger,
		}),
		profiles: app.NewProfileService(app.ProfileServiceConfig{
			Users:  b.store,
			Cache:  b.cache,
			TTL:    cfg.Redis.CacheTTL,
			Runner: runner,
			Logger: logger,
		}),
	}
}

// waitForShutdown blocks until a signal or a server error, then drains the server.
func waitForShutdown(
	ctx context.Context,
	logger *slog.Logger,
	server *http.Server,
	serverErr <-chan error,
	shutdownTimeout time.Duration,
) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)

	case sig := <-quit:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	logger.Info("initiating graceful shutdown", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("shutdown complete")

	return nil
}
