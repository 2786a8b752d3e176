package telemetry

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/jsamuelsen/qa-service/telemetry"

// HeaderTraceID echoes the active trace on every response.
const HeaderTraceID = "X-Trace-ID"

// Scraped from /-/metrics whether or not OTLP export is enabled.
var (
	promRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qa",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status class.",
	}, []string{"method", "route", "class"})

	promLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "qa",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// httpMetrics are the OTLP-exported request instruments.
type httpMetrics struct {
	duration metric.Float64Histogram
	inFlight metric.Int64UpDownCounter
}

func newHTTPMetrics() (*httpMetrics, error) {
	meter := otel.Meter(instrumentationName)

	duration, err := meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	inFlight, err := meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("HTTP requests being served"),
	)
	if err != nil {
		return nil, err
	}

	return &httpMetrics{duration: duration, inFlight: inFlight}, nil
}

// Middleware returns the tracing and metrics handlers for the Gin engine, in
// order. Probe routes under /-/ are neither traced nor counted.
func Middleware(serviceName string) []gin.HandlerFunc {
	tracing := otelgin.Middleware(serviceName,
		otelgin.WithFilter(func(r *http.Request) bool { return !isProbe(r.URL.Path) }),
	)

	return []gin.HandlerFunc{tracing, measure()}
}

func measure() gin.HandlerFunc {
	instruments, err := newHTTPMetrics()
	if err != nil {
		otel.Handle(err)
	}

	return func(c *gin.Context) {
		if isProbe(c.Request.URL.Path) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		start := time.Now()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		if instruments != nil {
			attrs := metric.WithAttributes(attribute.String("http.route", route))
			instruments.inFlight.Add(ctx, 1, attrs)
			defer instruments.inFlight.Add(ctx, -1, attrs)
		}

		c.Next()

		if sc := trace.SpanFromContext(c.Request.Context()).SpanContext(); sc.HasTraceID() {
			c.Header(HeaderTraceID, sc.TraceID().String())
		}

		elapsed := time.Since(start).Seconds()
		status := c.Writer.Status()

		promRequests.WithLabelValues(c.Request.Method, route, statusClass(status)).Inc()
		promLatency.WithLabelValues(c.Request.Method, route).Observe(elapsed)

		if instruments != nil {
			instruments.duration.Record(ctx, elapsed, metric.WithAttributes(
				attribute.String("http.request.method", c.Request.Method),
				attribute.String("http.route", route),
				attribute.Int("http.response.status_code", status),
			))
		}
	}
}

func isProbe(path string) bool {
	return strings.HasPrefix(path, "/-/")
}

// statusClass buckets a status into "2xx", "4xx" and so on.
func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}
