// Package rabbitmq publishes domain events to a durable RabbitMQ queue.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jsamuelsen/qa-service/internal/domain"
	"github.com/jsamuelsen/qa-service/internal/ports"
)

const dependencyName = "rabbitmq"

var errClosed = errors.New("channel closed")

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// Envelope is the message body written to the queue.
type Envelope struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

// Publisher implements ports.EventPublisher on the default exchange, routing
// every event to one queue.
type Publisher struct {
	mu    sync.Mutex
	conn  *amqp.Connection
	ch    channel
	queue string
	now   func() time.Time
}

var (
	_ ports.EventPublisher = (*Publisher)(nil)
	_ ports.HealthChecker  = (*Publisher)(nil)
)

// Dial connects to the broker and declares the queue as durable.
func Dial(url, queue string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dialing rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("opening rabbitmq channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()

		return nil, fmt.Errorf("declaring queue %q: %w", queue, err)
	}

	p := newPublisher(ch, queue)
	p.conn = conn

	return p, nil
}

func newPublisher(ch channel, queue string) *Publisher {
	return &Publisher{ch: ch, queue: queue, now: time.Now}
}

// Publish implements ports.EventPublisher. Messages are persistent JSON envelopes.
func (p *Publisher) Publish(ctx context.Context, event ports.Event) error {
	body, err := json.Marshal(Envelope{
		Type:       event.EventType(),
		OccurredAt: p.now().UTC(),
		Payload:    event.Payload(),
	})
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event.EventType(), err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch.IsClosed() {
		return domain.NewDependencyError(dependencyName, "publish", errClosed)
	}

	err = p.ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    p.now().UTC(),
			Type:         event.EventType(),
			Body:         body,
		},
	)
	if err != nil {
		return domain.NewDependencyError(dependencyName, "publish", err)
	}

	return nil
}

// Name implements ports.HealthChecker.
func (p *Publisher) Name() string { return dependencyName }

// Check implements ports.HealthChecker.
func (p *Publisher) Check(context.Context) error {
	if p.ch.IsClosed() || (p.conn != nil && p.conn.IsClosed()) {
		return errClosed
	}

	return nil
}

// Close closes the channel and the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if !p.ch.IsClosed() {
		errs = append(errs, p.ch.Close())
	}

	if p.conn != nil && !p.conn.IsClosed() {
		errs = append(errs, p.conn.Close())
	}

	return errors.Join(errs...)
}
