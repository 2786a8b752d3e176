package clients

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/qa-service/internal/adapters/http/middleware"
	"github.com/jsamuelsen/qa-service/internal/platform/config"
	"github.com/jsamuelsen/qa-service/internal/platform/logging"
)

const (
	instrumentationName = "github.com/jsamuelsen/qa-service/internal/adapters/clients"

	defaultTimeout = 10 * time.Second

	// jitterRangeMultiplier converts rand [0,1) to [-1,1) for symmetric jitter.
	jitterRangeMultiplier = 2
)

// Config configures a Transport.
type Config struct {
	// ServiceName identifies the dependency in logs, spans and metrics.
	ServiceName string

	// Timeout bounds one attempt, including reading the response body.
	Timeout time.Duration

	Retry   config.RetryConfig
	Circuit config.CircuitBreakerConfig
	Pool    config.TransportConfig

	// Base overrides the pooled http.Transport. Tests use it.
	Base http.RoundTripper

	Logger *slog.Logger
}

// Transport is an http.RoundTripper that adds, around a pooled base transport:
//   - per-attempt timeouts
//   - retry with exponential backoff and jitter on network errors and 5xx
//   - a circuit breaker
//   - OpenTelemetry spans and request metrics
//   - request and correlation ID propagation
type Transport struct {
	base    http.RoundTripper
	cfg     Config
	breaker *Breaker
	logger  *slog.Logger

	tracer          trace.Tracer
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
}

var _ http.RoundTripper = (*Transport)(nil)

// NewTransport creates a transport.
func NewTransport(cfg Config) (*Transport, error) {
	if cfg.ServiceName == "" {
		return nil, errors.New("service name is required")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	cfg.Retry.MaxAttempts = max(cfg.Retry.MaxAttempts, 1)

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(
		slog.String("component", "clients.Transport"),
		slog.String("downstream", cfg.ServiceName),
	)

	breaker := NewBreaker(BreakerConfig{
		MaxFailures: cfg.Circuit.MaxFailures,
		CoolDown:    cfg.Circuit.Timeout,
		Probes:      cfg.Circuit.HalfOpenLimit,
	})
	breaker.OnStateChange(func(from, to State) {
		logger.Warn("circuit breaker state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})

	meter := otel.Meter(instrumentationName)

	requestDuration, err := meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("Duration of outbound HTTP requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration metric: %w", err)
	}

	requestTotal, err := meter.Int64Counter(
		"http.client.request.total",
		metric.WithDescription("Total number of outbound HTTP requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request counter: %w", err)
	}

	base := cfg.Base
	if base == nil {
		base = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        cfg.Pool.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.Pool.MaxIdleConnsPerHost,
			IdleConnTimeout:     cfg.Pool.IdleConnTimeout,
		}
	}

	return &Transport{
		base:            base,
		cfg:             cfg,
		breaker:         breaker,
		logger:          logger,
		tracer:          otel.Tracer(instrumentationName),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
	}, nil
}

// CircuitState returns the breaker position.
func (t *Transport) CircuitState() State {
	return t.breaker.State()
}

// RoundTrip implements http.RoundTripper. A 5xx that survives every retry is
// returned as a response so the caller can read the dependency's error body.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	ctx := req.Context()
	logger := logging.FromContext(ctx).With(
		slog.String("downstream", t.cfg.ServiceName),
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
	)

	if !t.breaker.Allow() {
		t.recordMetrics(ctx, req.Method, 0, time.Since(start), "circuit_open")
		logger.Warn("request blocked by circuit breaker")

		return nil, ErrCircuitOpen
	}

	ctx, span := t.tracer.Start(ctx, fmt.Sprintf("HTTP %s %s", req.Method, t.cfg.ServiceName),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.url", req.URL.String()),
			attribute.String("peer.service", t.cfg.ServiceName),
		),
	)
	defer span.End()

	req, err := rewindable(req.WithContext(ctx))
	if err != nil {
		t.breaker.Done(true)
		return nil, err
	}

	t.injectHeaders(ctx, req)

	resp, err := t.retry(ctx, req, logger)

	duration := time.Since(start)

	if err != nil {
		t.breaker.Done(false)
		span.SetStatus(codes.Error, err.Error())
		t.recordMetrics(ctx, req.Method, 0, duration, "error")
		logger.Error("request failed", slog.Duration("duration", duration), slog.Any("error", err))

		return nil, err
	}

	t.breaker.Done(resp.StatusCode < http.StatusInternalServerError)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	t.recordMetrics(ctx, req.Method, resp.StatusCode, duration, fmt.Sprintf("%dxx", resp.StatusCode/100))
	logger.Debug("request completed", slog.Int("status", resp.StatusCode), slog.Duration("duration", duration))

	return resp, nil
}

func (t *Transport) retry(ctx context.Context, req *http.Request, logger *slog.Logger) (*http.Response, error) {
	var lastErr error

	for attempt := range t.cfg.Retry.MaxAttempts {
		if attempt > 0 {
			backoff := t.backoff(attempt)
			logger.Debug("retrying request", slog.Int("attempt", attempt+1), slog.Duration("backoff", backoff))

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := t.attempt(ctx, req)

		last := attempt == t.cfg.Retry.MaxAttempts-1

		switch {
		case err != nil && isRetryableError(err) && !last:
			logger.Debug("attempt failed", slog.Int("attempt", attempt+1), slog.Any("error", err))
			lastErr = err

			continue
		case err != nil:
			lastErr = err
		case resp.StatusCode >= http.StatusInternalServerError && !last:
			logger.Debug("attempt got server error", slog.Int("attempt", attempt+1), slog.Int("status", resp.StatusCode))
			drain(resp)

			continue
		default:
			return resp, nil
		}

		break
	}

	if isRetryableError(lastErr) {
		return nil, fmt.Errorf("%w: %w", ErrMaxRetriesExceeded, lastErr)
	}

	return nil, lastErr
}

// attempt sends one copy of req under its own timeout. The timeout stays
// armed until the response body is closed.
func (t *Transport) attempt(ctx context.Context, req *http.Request) (*http.Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)

	clone := req.Clone(attemptCtx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			cancel()
			return nil, fmt.Errorf("rewinding request body: %w", err)
		}

		clone.Body = body
	}

	resp, err := t.base.RoundTrip(clone)
	if err != nil {
		cancel()
		return nil, err
	}

	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}

	return resp, nil
}

func (t *Transport) injectHeaders(ctx context.Context, req *http.Request) {
	if requestID := middleware.RequestIDFromContext(ctx); requestID != "" {
		req.Header.Set(middleware.HeaderRequestID, requestID)
	}

	if correlationID := middleware.CorrelationIDFromContext(ctx); correlationID != "" {
		req.Header.Set(middleware.HeaderCorrelationID, correlationID)
	}

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
}

// backoff returns initial * multiplier^attempt, capped and jittered.
func (t *Transport) backoff(attempt int) time.Duration {
	r := t.cfg.Retry

	d := float64(r.InitialInterval) * math.Pow(r.Multiplier, float64(attempt))
	if d > float64(r.MaxInterval) {
		d = float64(r.MaxInterval)
	}

	jitter := rand.Float64()*jitterRangeMultiplier - 1 //nolint:gosec // No need for crypto-grade randomness
	d += d * r.JitterFactor * jitter

	return time.Duration(d)
}

func (t *Transport) recordMetrics(ctx context.Context, method string, status int, d time.Duration, result string) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("peer.service", t.cfg.ServiceName),
		attribute.String("result", result),
	}

	if status > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", status))
	}

	t.requestDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
	t.requestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// rewindable returns a shallow copy of req whose body can be replayed.
func rewindable(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return req, nil
	}

	payload, err := io.ReadAll(req.Body)
	_ = req.Body.Close()

	if err != nil {
		return nil, fmt.Errorf("buffering request body: %w", err)
	}

	out := req.Clone(req.Context())
	out.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(payload)), nil
	}
	out.Body, _ = out.GetBody()

	return out, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()

	return err
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// isRetryableError reports network failures worth another attempt.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	// A per-attempt timeout surfaces as DeadlineExceeded and is retried.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError

	return errors.As(err, &opErr)
}
