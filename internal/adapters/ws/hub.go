// Package ws pushes per-user events to WebSocket connections.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jsamuelsen/qa-service/internal/domain"
	"github.com/jsamuelsen/qa-service/internal/ports"
)

const (
	dependencyName = "websocket"

	// sendBufSize is the per-connection backlog. A connection that falls
	// further behind loses messages rather than stalling the hub.
	sendBufSize = 64
	publishBuf  = 256
)

var errHubClosed = errors.New("hub closed")

// Message is the frame written to clients.
type Message struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

type subscription struct {
	userID string
	ch     chan []byte
}

type delivery struct {
	userID string
	frame  []byte
}

// Hub routes addressed events to the recipient's open connections.
//
// A single loop goroutine owns the subscription table; public methods talk to
// it over channels.
type Hub struct {
	subscribeCh   chan *subscription
	unsubscribeCh chan *subscription
	deliverCh     chan delivery
	countCh       chan countReq

	now func() time.Time

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

type countReq struct {
	userID string
	resp   chan int
}

var (
	_ ports.EventPublisher = (*Hub)(nil)
	_ ports.HealthChecker  = (*Hub)(nil)
)

// NewHub starts a hub.
func NewHub() *Hub {
	h := &Hub{
		subscribeCh:   make(chan *subscription),
		unsubscribeCh: make(chan *subscription),
		deliverCh:     make(chan delivery, publishBuf),
		countCh:       make(chan countReq),
		now:           time.Now,
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go h.run()

	return h
}

func (h *Hub) run() {
	defer close(h.stopped)

	users := make(map[string]map[*subscription]struct{})

	for {
		select {
		case <-h.stopCh:
			for _, subs := range users {
				for s := range subs {
					close(s.ch)
				}
			}

			return

		case s := <-h.subscribeCh:
			if users[s.userID] == nil {
				users[s.userID] = make(map[*subscription]struct{})
			}

			users[s.userID][s] = struct{}{}

		case s := <-h.unsubscribeCh:
			subs := users[s.userID]
			if _, ok := subs[s]; !ok {
				continue
			}

			delete(subs, s)
			close(s.ch)

			if len(subs) == 0 {
				delete(users, s.userID)
			}

		case d := <-h.deliverCh:
			for s := range users[d.userID] {
				select {
				case s.ch <- d.frame:
				default:
				}
			}

		case req := <-h.countCh:
			req.resp <- len(users[req.userID])
		}
	}
}

// Publish implements ports.EventPublisher. Events without a recipient are
// ignored; recipients with no open connection are skipped silently.
func (h *Hub) Publish(ctx context.Context, event ports.Event) error {
	addressed, ok := event.(ports.AddressedEvent)
	if !ok || addressed.Recipient() == "" {
		return nil
	}

	if h.closed.Load() {
		return domain.NewDependencyError(dependencyName, "publish", errHubClosed)
	}

	frame, err := json.Marshal(Message{
		Type:       event.EventType(),
		OccurredAt: h.now().UTC(),
		Payload:    event.Payload(),
	})
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event.EventType(), err)
	}

	select {
	case h.deliverCh <- delivery{userID: addressed.Recipient(), frame: frame}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.stopped:
		return domain.NewDependencyError(dependencyName, "publish", errHubClosed)
	}
}

// subscribe registers a connection for userID. The returned channel is
// closed on unsubscribe or when the hub stops.
func (h *Hub) subscribe(userID string) *subscription {
	s := &subscription{userID: userID, ch: make(chan []byte, sendBufSize)}
	if h.closed.Load() {
		close(s.ch)
		return s
	}

	select {
	case h.subscribeCh <- s:
	case <-h.stopped:
		close(s.ch)
	}

	return s
}

func (h *Hub) unsubscribe(s *subscription) {
	if h.closed.Load() {
		return
	}

	select {
	case h.unsubscribeCh <- s:
	case <-h.stopped:
	}
}

// Connections returns the number of open connections for userID.
func (h *Hub) Connections(userID string) int {
	if h.closed.Load() {
		return 0
	}

	req := countReq{userID: userID, resp: make(chan int, 1)}
	select {
	case h.countCh <- req:
	case <-h.stopped:
		return 0
	}

	select {
	case n := <-req.resp:
		return n
	case <-h.stopped:
		return 0
	}
}

// Name implements ports.HealthChecker.
func (h *Hub) Name() string { return dependencyName }

// Check fails once the hub is closed.
func (h *Hub) Check(context.Context) error {
	if h.closed.Load() {
		return errHubClosed
	}

	return nil
}

// Close stops the loop and closes every connection's channel.
func (h *Hub) Close() {
	if h.closed.CompareAndSwap(false, true) {
		close(h.stopCh)
	}

	<-h.stopped
}
