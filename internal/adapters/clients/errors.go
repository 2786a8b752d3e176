// Package clients provides the resilient outbound HTTP transport used by
// HTTP-based dependencies such as Elasticsearch.
package clients

import "errors"

// Transport errors are infrastructure failures; adapters built on the
// transport translate them into domain errors.
var (
	// ErrCircuitOpen is returned while the breaker blocks requests to an unhealthy dependency.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrMaxRetriesExceeded wraps the last transport error once every attempt failed.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)
