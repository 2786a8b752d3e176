package ports

import (
	"context"

	"github.com/jsamuelsen/qa-service/internal/domain"
)

// EventPublisher delivers domain events to an outside audience.
// Implementations include the RabbitMQ publisher and the WebSocket hub.
type EventPublisher interface {
	// Publish sends an event.
	// Returns domain.ErrUnavailable if the transport is unreachable.
	Publish(ctx context.Context, event Event) error
}

// Event represents a domain event that can be published.
type Event interface {
	// EventType returns the routing key, e.g. "notification.created".
	EventType() string

	// Payload returns the event data for serialization.
	Payload() any
}

// AddressedEvent is an Event meant for a single user. Per-user transports
// such as the WebSocket hub route on Recipient.
type AddressedEvent interface {
	Event

	Recipient() string
}

// Cache is a byte-oriented cache.
type Cache interface {
	// Get returns domain.ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value. A TTL of 0 means no expiration.
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error

	// Delete removes a key; a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// QuestionLocker serializes mutations keyed by question id.
type QuestionLocker interface {
	// Lock blocks until the lock for key is held or ctx ends. The returned
	// function releases it and is safe to call once.
	Lock(ctx context.Context, key string) (func(), error)
}

// QuestionSearcher is a full-text index over question titles and descriptions.
type QuestionSearcher interface {
	// IndexQuestion adds or replaces the question's document.
	IndexQuestion(ctx context.Context, q *domain.Question) error

	// RemoveQuestion drops the question's document; a missing document is not an error.
	RemoveQuestion(ctx context.Context, id string) error

	// SearchQuestionIDs returns ids of questions matching text, best match first.
	SearchQuestionIDs(ctx context.Context, text string, limit int) ([]string, error)
}
