// Package middleware holds the Gin middleware of the Q&A API: request
// identity, authentication, logging, rate limiting and deadlines.
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jsamuelsen/qa-service/internal/platform/logging"
)

const (
	// HeaderRequestID identifies one HTTP exchange.
	HeaderRequestID = "X-Request-ID"

	// HeaderCorrelationID follows a client action across services, such as an
	// answer post and the notifications it fans out.
	HeaderCorrelationID = "X-Correlation-ID"

	ContextKeyRequestID     = "request_id"
	ContextKeyCorrelationID = "correlation_id"
)

type idCtxKey string

// idKind describes one propagated id.
type idKind struct {
	header   string
	ginKey   string
	ctxKey   idCtxKey
	withLogs func(ctx context.Context, id string) context.Context
}

var (
	requestIDKind = idKind{
		header:   HeaderRequestID,
		ginKey:   ContextKeyRequestID,
		ctxKey:   idCtxKey(ContextKeyRequestID),
		withLogs: logging.WithRequestID,
	}
	correlationIDKind = idKind{
		header:   HeaderCorrelationID,
		ginKey:   ContextKeyCorrelationID,
		ctxKey:   idCtxKey(ContextKeyCorrelationID),
		withLogs: logging.WithCorrelationID,
	}
)

// RequestID adopts the caller's X-Request-ID or mints a UUID, echoes it on
// the response, and attaches it to the request context and logger.
func RequestID() gin.HandlerFunc {
	return propagate(requestIDKind)
}

// CorrelationID does for X-Correlation-ID what RequestID does for X-Request-ID.
func CorrelationID() gin.HandlerFunc {
	return propagate(correlationIDKind)
}

func propagate(k idKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(k.header)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(k.ginKey, id)
		c.Header(k.header, id)

		ctx := k.store(c.Request.Context(), id)
		c.Request = c.Request.WithContext(k.withLogs(ctx, id))

		c.Next()
	}
}

// GetRequestID returns the request id set by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}

// GetCorrelationID returns the correlation id set by CorrelationID, or "".
func GetCorrelationID(c *gin.Context) string {
	return c.GetString(ContextKeyCorrelationID)
}

// RequestIDFromContext returns the request id carried by ctx. Outbound
// clients forward it downstream.
func RequestIDFromContext(ctx context.Context) string {
	return idFrom(ctx, requestIDKind)
}

// CorrelationIDFromContext returns the correlation id carried by ctx.
func CorrelationIDFromContext(ctx context.Context) string {
	return idFrom(ctx, correlationIDKind)
}

// ContextWithRequestID returns ctx carrying id as the request id, for work
// that starts outside an HTTP request, such as a startup reindex.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return requestIDKind.store(ctx, id)
}

// ContextWithCorrelationID returns ctx carrying id as the correlation id.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return correlationIDKind.store(ctx, id)
}

func (k idKind) store(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, k.ctxKey, id)
}

func idFrom(ctx context.Context, k idKind) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(k.ctxKey).(string)

	return id
}
