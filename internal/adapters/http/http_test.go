package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/qa-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen/qa-service/internal/adapters/http/middleware"
	"github.com/jsamuelsen/qa-service/internal/adapters/memstore"
	"github.com/jsamuelsen/qa-service/internal/adapters/ws"
	"github.com/jsamuelsen/qa-service/internal/app"
	"github.com/jsamuelsen/qa-service/internal/platform/config"
	"github.com/jsamuelsen/qa-service/internal/ports"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serverConfig(port int, maxBody int64) *config.ServerConfig {
	return &config.ServerConfig{
		Host:           "127.0.0.1",
		Port:           port,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    30 * time.Second,
		MaxRequestSize: maxBody,
	}
}

func TestServerNew(t *testing.T) {
	cfg := serverConfig(8080, 1<<20)
	logger := discardLogger()

	srv := New(cfg, logger)

	require.NotNil(t, srv)
	assert.NotNil(t, srv.Engine())
	assert.Equal(t, cfg, srv.Config())
	assert.Equal(t, "127.0.0.1:8080", srv.Addr())
	assert.Equal(t, cfg.ReadTimeout, srv.httpServer.ReadHeaderTimeout)
}

func TestServerStartShutdown(t *testing.T) {
	srv := New(serverConfig(0, 1<<20), discardLogger())

	var hooked atomic.Bool
	srv.OnShutdown(func() { hooked.Store(true) })

	errCh := srv.Start()

	time.Sleep(50 * time.Millisecond)

	select {
	case err := <-errCh:
		require.NoError(t, err)
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, srv.Shutdown(ctx))

	_, open := <-errCh
	assert.False(t, open, "error channel should be closed")
	assert.Eventually(t, hooked.Load, time.Second, 10*time.Millisecond)
}

func TestMaxBodySize(t *testing.T) {
	srv := New(serverConfig(0, 100), discardLogger())
	srv.Engine().POST("/echo", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}

		c.JSON(http.StatusOK, gin.H{"received": len(body)})
	})

	tests := []struct {
		name       string
		size       int
		wantStatus int
	}{
		{name: "under limit", size: 50, wantStatus: http.StatusOK},
		{name: "over limit", size: 500, wantStatus: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("x", tt.size)))

			srv.Engine().ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

type memCounter struct {
	mu   sync.Mutex
	hits map[string]int64
}

func (m *memCounter) Hit(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.hits == nil {
		m.hits = make(map[string]int64)
	}

	m.hits[key]++

	return m.hits[key], window, nil
}

type deadlineStreamer struct {
	hadDeadline atomic.Bool
	userID      atomic.Value
}

func (s *deadlineStreamer) Serve(w http.ResponseWriter, r *http.Request, userID string, _ ws.ServeOptions) {
	_, ok := r.Context().Deadline()
	s.hadDeadline.Store(ok)
	s.userID.Store(userID)
	w.WriteHeader(http.StatusAccepted)
}

func newRouter(t *testing.T, rateLimit config.RateLimitConfig, counter middleware.HitCounter, stream handlers.Streamer) *gin.Engine {
	t.Helper()

	store := memstore.New()
	logger := discardLogger()
	runner := app.NewRunner(logger)

	dispatcher := app.NewDispatcher(app.DispatcherConfig{Notifications: store, Logger: logger})
	content := app.NewContentService(app.ContentServiceConfig{
		Questions: store, Answers: store, Comments: store, Users: store,
		Dispatcher: dispatcher, Runner: runner, Logger: logger,
	})
	votes := app.NewVoteService(app.VoteServiceConfig{
		Questions: store, Answers: store, Votes: store, Runner: runner, Logger: logger,
	})
	coordinator := app.NewCoordinator(app.CoordinatorConfig{Questions: store, Answers: store, Runner: runner, Logger: logger})
	cascader := app.NewCascader(app.CascaderConfig{
		Questions: store, Answers: store, Comments: store, Runner: runner, Logger: logger,
	})
	queries := app.NewQueryService(app.QueryServiceConfig{
		Questions: store, Answers: store, Comments: store, Users: store, Logger: logger,
	})

	authenticator, err := middleware.NewAuthenticator(&config.AuthConfig{Mode: config.AuthModeHeader})
	require.NoError(t, err)

	registry := ports.NewHealthRegistry()
	require.NoError(t, registry.Register(store))

	engine := gin.New()
	SetupRouter(engine, RouterConfig{
		Logger:        logger,
		AppConfig:     &config.AppConfig{Name: "qa-service", Environment: "test", Version: "1.0.0"},
		Authenticator: authenticator,
		RateLimiter:   counter,
		RateLimit:     rateLimit,
		HealthHandler: handlers.NewHealthHandler(registry, handlers.BuildInfo{Version: "1.0.0"}),
		QuestionHandler: handlers.NewQuestionHandler(handlers.QuestionHandlerConfig{
			Queries: queries, Content: content, Votes: votes, Remover: cascader,
		}),
		AnswerHandler: handlers.NewAnswerHandler(handlers.AnswerHandlerConfig{
			Content: content, Votes: votes, Marker: coordinator, Remover: cascader, Authors: queries,
		}),
		NotificationHandler: handlers.NewNotificationHandler(dispatcher, stream, nil),
		UserHandler: handlers.NewUserHandler(app.NewProfileService(app.ProfileServiceConfig{
			Users: store, Runner: runner, Logger: logger,
		})),
		Timeout: DefaultRequestTimeout,
	})

	return engine
}

func serve(engine *gin.Engine, method, path, userID, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	return w
}

func TestSetupRouter_Routes(t *testing.T) {
	engine := newRouter(t, config.RateLimitConfig{}, nil, nil)

	registered := make(map[string]bool)
	for _, r := range engine.Routes() {
		registered[r.Method+" "+r.Path] = true
	}

	for _, want := range []string{
		"GET /-/live",
		"GET /-/ready",
		"GET /-/build",
		"GET /-/metrics",
		"GET /api/v1/questions",
		"POST /api/v1/questions",
		"GET /api/v1/questions/:id",
		"POST /api/v1/questions/:id/vote",
		"DELETE /api/v1/questions/:id",
		"POST /api/v1/questions/:id/answers",
		"POST /api/v1/answers/:id/vote",
		"POST /api/v1/answers/:id/accept",
		"POST /api/v1/answers/:id/pin",
		"DELETE /api/v1/answers/:id",
		"POST /api/v1/answers/:id/comments",
		"DELETE /api/v1/comments/:id",
		"GET /api/v1/notifications",
		"PATCH /api/v1/notifications/:id/read",
		"PATCH /api/v1/notifications/read-all",
		"GET /api/v1/notifications/stream",
		"GET /api/v1/users/:id",
		"PUT /api/v1/users/profile",
	} {
		assert.True(t, registered[want], "missing route: %s", want)
	}
}

func TestSetupRouter_Authentication(t *testing.T) {
	engine := newRouter(t, config.RateLimitConfig{}, nil, nil)

	w := serve(engine, http.MethodGet, "/api/v1/questions", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(engine, http.MethodPost, "/api/v1/questions", "", `{"title":"t","description":"d"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(engine, http.MethodPost, "/api/v1/questions", "u1", `{"title":"t","description":"d"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))

	w = serve(engine, http.MethodGet, "/-/ready", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "memstore")
}

func TestSetupRouter_RateLimit(t *testing.T) {
	engine := newRouter(t, config.RateLimitConfig{Enabled: true, Requests: 2, Window: time.Minute}, &memCounter{}, nil)

	for range 2 {
		w := serve(engine, http.MethodGet, "/api/v1/questions", "u1", "")
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := serve(engine, http.MethodGet, "/api/v1/questions", "u1", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	w = serve(engine, http.MethodGet, "/api/v1/questions", "u2", "")
	assert.Equal(t, http.StatusOK, w.Code, "limits are per caller")

	w = serve(engine, http.MethodGet, "/-/live", "u1", "")
	assert.Equal(t, http.StatusOK, w.Code, "health routes are not limited")
}

func TestSetupRouter_StreamIsNotTimeBound(t *testing.T) {
	stream := &deadlineStreamer{}
	engine := newRouter(t, config.RateLimitConfig{}, nil, stream)

	w := serve(engine, http.MethodGet, StreamPath, "u1", "")

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.False(t, stream.hadDeadline.Load())
	assert.Equal(t, "u1", stream.userID.Load())
}
