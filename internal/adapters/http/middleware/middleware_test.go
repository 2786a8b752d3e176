package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/qa-service/internal/domain"
	"github.com/jsamuelsen/qa-service/internal/platform/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const uuidPattern = `^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`

// captureLogger returns a JSON logger and a func decoding every line it wrote.
func captureLogger(t *testing.T) (*slog.Logger, func() []map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	return logger, func() []map[string]any {
		var lines []map[string]any

		for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
			if line == "" {
				continue
			}

			var entry map[string]any
			require.NoError(t, json.Unmarshal([]byte(line), &entry))
			lines = append(lines, entry)
		}

		return lines
	}
}

func TestIDMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		middleware gin.HandlerFunc
		header     string
		fromGin    func(*gin.Context) string
		fromCtx    func(*gin.Context) string
	}{
		{
			name:       "request id",
			middleware: RequestID(),
			header:     HeaderRequestID,
			fromGin:    GetRequestID,
			fromCtx:    func(c *gin.Context) string { return RequestIDFromContext(c.Request.Context()) },
		},
		{
			name:       "correlation id",
			middleware: CorrelationID(),
			header:     HeaderCorrelationID,
			fromGin:    GetCorrelationID,
			fromCtx:    func(c *gin.Context) string { return CorrelationIDFromContext(c.Request.Context()) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name+" is minted", func(t *testing.T) {
			t.Parallel()

			var ginID, ctxID string

			router := gin.New()
			router.Use(tt.middleware)
			router.GET("/api/v1/questions", func(c *gin.Context) {
				ginID, ctxID = tt.fromGin(c), tt.fromCtx(c)
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/questions", http.NoBody))

			assert.Regexp(t, uuidPattern, ginID)
			assert.Equal(t, ginID, ctxID)
			assert.Equal(t, ginID, w.Header().Get(tt.header))
		})

		t.Run(tt.name+" is adopted from the caller", func(t *testing.T) {
			t.Parallel()

			var ginID, ctxID string

			router := gin.New()
			router.Use(tt.middleware)
			router.GET("/api/v1/questions", func(c *gin.Context) {
				ginID, ctxID = tt.fromGin(c), tt.fromCtx(c)
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/questions", http.NoBody)
			req.Header.Set(tt.header, "upstream-42")

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, "upstream-42", ginID)
			assert.Equal(t, "upstream-42", ctxID)
			assert.Equal(t, "upstream-42", w.Header().Get(tt.header))
		})
	}
}

func TestIDMiddleware_EnrichesRequestLogger(t *testing.T) {
	logger, lines := captureLogger(t)
	logging.SetDefault(logger)
	t.Cleanup(func() { logging.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil))) })

	router := gin.New()
	router.Use(RequestID(), CorrelationID())
	router.GET("/ping", func(c *gin.Context) {
		logging.FromContext(c.Request.Context()).Info("inside handler")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", http.NoBody)
	req.Header.Set(HeaderRequestID, "req-1")
	req.Header.Set(HeaderCorrelationID, "corr-1")
	router.ServeHTTP(httptest.NewRecorder(), req)

	got := lines()
	require.Len(t, got, 1)
	assert.Equal(t, "req-1", got[0]["request_id"])
	assert.Equal(t, "corr-1", got[0]["correlation_id"])
}

func TestContextWithIDs(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-9")
	ctx = ContextWithCorrelationID(ctx, "corr-9")

	assert.Equal(t, "req-9", RequestIDFromContext(ctx))
	assert.Equal(t, "corr-9", CorrelationIDFromContext(ctx))
	assert.Empty(t, CorrelationIDFromContext(ContextWithRequestID(context.Background(), "req-only")))
}

func TestIDFromContext_Unset(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(nil)) //nolint:staticcheck // nil is tolerated
	assert.Empty(t, CorrelationIDFromContext(httptest.NewRequest(http.MethodGet, "/", http.NoBody).Context()))

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Empty(t, GetRequestID(c))
	assert.Empty(t, GetCorrelationID(c))
}

func TestLogging(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		status    int
		actor     *domain.Actor
		wantLines int
		wantLevel string
		wantUser  any
	}{
		{
			name:      "anonymous read",
			path:      "/api/v1/questions/q1?sort=votes",
			status:    http.StatusOK,
			wantLines: 1,
			wantLevel: "INFO",
		},
		{
			name:      "authenticated write",
			path:      "/api/v1/questions/q1",
			status:    http.StatusCreated,
			actor:     &domain.Actor{UserID: "u-7", Username: "gopher"},
			wantLines: 1,
			wantLevel: "INFO",
			wantUser:  "u-7",
		},
		{
			name:      "client error is a warning",
			path:      "/api/v1/questions/q1",
			status:    http.StatusForbidden,
			wantLines: 1,
			wantLevel: "WARN",
		},
		{
			name:      "server error is an error",
			path:      "/api/v1/questions/q1",
			status:    http.StatusServiceUnavailable,
			wantLines: 1,
			wantLevel: "ERROR",
		},
		{
			name:      "probe routes are quiet",
			path:      "/-/ready",
			status:    http.StatusOK,
			wantLines: 0,
		},
		{
			name:      "skipped path is quiet",
			path:      "/metrics",
			status:    http.StatusOK,
			wantLines: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, lines := captureLogger(t)

			router := gin.New()
			router.Use(Logging(logger, "/metrics"))

			handler := func(c *gin.Context) {
				if tt.actor != nil {
					c.Set(ContextKeyActor, *tt.actor)
				}

				c.Status(tt.status)
			}
			router.GET("/api/v1/questions/:id", handler)
			router.GET("/-/ready", handler)
			router.GET("/metrics", handler)

			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, http.NoBody))

			got := lines()
			require.Len(t, got, tt.wantLines)

			if tt.wantLines == 0 {
				return
			}

			entry := got[0]
			assert.Equal(t, "request completed", entry["msg"])
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, "/api/v1/questions/:id", entry["route"])
			assert.InDelta(t, float64(tt.status), entry["status"], 0)
			assert.Equal(t, tt.wantUser, entry["user_id"])
		})
	}
}

func TestLogging_UnmatchedRouteUsesPath(t *testing.T) {
	logger, lines := captureLogger(t)

	router := gin.New()
	router.Use(Logging(logger))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/nope?x=1", http.NoBody))

	got := lines()
	require.Len(t, got, 1)
	assert.Equal(t, "/api/v1/nope", got[0]["route"])
	assert.Equal(t, "x=1", got[0]["query"])
	assert.Equal(t, "WARN", got[0]["level"])
}

func TestRecovery(t *testing.T) {
	t.Run("panic becomes an internal error envelope", func(t *testing.T) {
		logger, lines := captureLogger(t)

		router := gin.New()
		router.Use(Recovery(logger))
		router.POST("/api/v1/answers/:id/accept", func(*gin.Context) {
			var m map[string]int
			m["boom"]++
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/answers/a1/accept", http.NoBody))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), `"code":"INTERNAL_ERROR"`)
		assert.NotContains(t, w.Body.String(), "nil map")

		got := lines()
		require.Len(t, got, 1)
		assert.Equal(t, "panic recovered", got[0]["msg"])
		assert.Equal(t, "/api/v1/answers/:id/accept", got[0]["route"])
		assert.Contains(t, got[0]["stack"], "runtime/debug.Stack")
	})

	t.Run("partial response is left alone", func(t *testing.T) {
		logger, _ := captureLogger(t)

		router := gin.New()
		router.Use(Recovery(logger))
		router.GET("/api/v1/questions", func(c *gin.Context) {
			c.String(http.StatusOK, "partial")
			panic("late failure")
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/questions", http.NoBody))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "partial", w.Body.String())
	})

	t.Run("normal request passes through", func(t *testing.T) {
		router := gin.New()
		router.Use(Recovery(slog.New(slog.NewTextHandler(io.Discard, nil))))
		router.GET("/api/v1/questions", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/questions", http.NoBody))

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestTimeout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		timeout      time.Duration
		path         string
		handler      gin.HandlerFunc
		wantDeadline bool
		wantStatus   int
	}{
		{
			name:         "sets context deadline",
			timeout:      5 * time.Second,
			path:         "/api/v1/questions",
			wantDeadline: true,
			wantStatus:   http.StatusOK,
		},
		{
			name:         "skipped path has no deadline",
			timeout:      5 * time.Second,
			path:         "/api/v1/notifications/stream",
			wantDeadline: false,
			wantStatus:   http.StatusOK,
		},
		{
			name:         "zero timeout disables the deadline",
			timeout:      0,
			path:         "/api/v1/questions",
			wantDeadline: false,
			wantStatus:   http.StatusOK,
		},
		{
			name:         "expired handler that wrote nothing gets 503",
			timeout:      10 * time.Millisecond,
			path:         "/api/v1/questions",
			wantDeadline: true,
			handler: func(c *gin.Context) {
				<-c.Request.Context().Done()
			},
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var hasDeadline bool

			router := gin.New()
			router.Use(Timeout(tt.timeout, "/api/v1/notifications/stream"))
			router.GET(tt.path, func(c *gin.Context) {
				_, hasDeadline = c.Request.Context().Deadline()

				if tt.handler != nil {
					tt.handler(c)
					return
				}

				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantDeadline, hasDeadline)

			if tt.wantStatus == http.StatusServiceUnavailable {
				assert.Contains(t, w.Body.String(), "TIMEOUT")
			}
		})
	}
}

func TestParseCommaSeparated(t *testing.T) {
	t.Parallel()

	tests := map[string][]string{
		"admin,user":         {"admin", "user"},
		" moderator , admin": {"moderator", "admin"},
		"":                   {},
		",,":                 {},
	}

	for input, want := range tests {
		t.Run(input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, want, parseCommaSeparated(input))
		})
	}
}
