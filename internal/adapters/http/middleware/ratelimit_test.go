package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/qa-service/internal/platform/config"
)

// fakeCounter counts in memory and reports a fixed reset time.
type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	keys   []string
	err    error
}

func (f *fakeCounter) Hit(_ context.Context, key string, _ time.Duration) (int64, time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return 0, 0, f.err
	}

	if f.counts == nil {
		f.counts = make(map[string]int64)
	}

	f.counts[key]++
	f.keys = append(f.keys, key)

	return f.counts[key], 42 * time.Second, nil
}

func rateLimitedRouter(t *testing.T, counter HitCounter, limit int) *gin.Engine {
	t.Helper()

	a, err := NewAuthenticator(&config.AuthConfig{Mode: config.AuthModeHeader})
	require.NoError(t, err)

	router := gin.New()
	router.Use(Authenticate(a), RateLimit(counter, limit, time.Minute))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	return router
}

func TestRateLimit(t *testing.T) {
	counter := &fakeCounter{}
	router := rateLimitedRouter(t, counter, 2)

	statuses := make([]int, 0, 3)
	var last *httptest.ResponseRecorder

	for range 3 {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(defaultSubjectHeader, "u-1")
		router.ServeHTTP(w, req)

		statuses = append(statuses, w.Code)
		last = w
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)
	assert.Equal(t, "2", last.Header().Get(HeaderRateLimitLimit))
	assert.Equal(t, "0", last.Header().Get(HeaderRateLimitRemaining))
	assert.Equal(t, "42", last.Header().Get(HeaderRateLimitReset))
	assert.Equal(t, "42", last.Header().Get("Retry-After"))
	assert.Contains(t, last.Body.String(), "RATE_LIMITED")
	assert.Equal(t, []string{"user:u-1", "user:u-1", "user:u-1"}, counter.keys)
}

func TestRateLimit_KeysAnonymousCallersByIP(t *testing.T) {
	counter := &fakeCounter{}
	router := rateLimitedRouter(t, counter, 10)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "9", w.Header().Get(HeaderRateLimitRemaining))
	assert.Equal(t, []string{"ip:203.0.113.7"}, counter.keys)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	router := rateLimitedRouter(t, &fakeCounter{err: errors.New("redis down")}, 1)

	for range 3 {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get(HeaderRateLimitLimit))
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	tests := []struct {
		name    string
		counter HitCounter
		limit   int
	}{
		{"nil counter", nil, 10},
		{"zero limit", &fakeCounter{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := rateLimitedRouter(t, tt.counter, tt.limit)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Empty(t, w.Header().Get(HeaderRateLimitLimit))
		})
	}
}
