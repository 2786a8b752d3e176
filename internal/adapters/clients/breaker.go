package clients

import (
	"sync"
	"time"
)

// State is the breaker position.
type State int

const (
	// StateClosed lets every request through.
	StateClosed State = iota

	// StateOpen rejects requests until the cool-down passes.
	StateOpen

	// StateHalfOpen admits a bounded number of probe requests.
	StateHalfOpen
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a Breaker.
type BreakerConfig struct {
	// MaxFailures is the run of consecutive failures that opens the breaker.
	MaxFailures int

	// CoolDown is how long the breaker stays open before probing.
	CoolDown time.Duration

	// Probes is both the number of concurrent half-open requests and the run
	// of successes needed to close again.
	Probes int
}

// Breaker is a consecutive-failure circuit breaker.
//
//	closed    --MaxFailures failures-->  open
//	open      --CoolDown elapsed------>  half-open
//	half-open --Probes successes------>  closed
//	half-open --any failure----------->  open
type Breaker struct {
	mu       sync.Mutex
	cfg      BreakerConfig
	state    State
	streak   int // failures while closed, successes while half-open
	inFlight int // half-open probes awaiting a result
	openedAt time.Time

	onChange func(from, to State)
	now      func() time.Time
}

// NewBreaker creates a closed breaker. Non-positive limits are treated as 1.
func NewBreaker(cfg BreakerConfig) *Breaker {
	cfg.MaxFailures = max(cfg.MaxFailures, 1)
	cfg.Probes = max(cfg.Probes, 1)

	return &Breaker{cfg: cfg, now: time.Now}
}

// OnStateChange registers a callback run asynchronously on every transition.
func (b *Breaker) OnStateChange(fn func(from, to State)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.onChange = fn
}

// Allow reports whether a request may proceed. Every allowed request must be
// followed by exactly one Done.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cfg.CoolDown {
			return false
		}

		b.moveTo(StateHalfOpen)
		b.inFlight = 1

		return true
	case StateHalfOpen:
		if b.inFlight >= b.cfg.Probes {
			return false
		}

		b.inFlight++

		return true
	default:
		return true
	}
}

// Done records the outcome of an allowed request.
func (b *Breaker) Done(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		if success {
			b.streak = 0
			return
		}

		b.streak++
		if b.streak >= b.cfg.MaxFailures {
			b.moveTo(StateOpen)
		}
	case StateHalfOpen:
		b.inFlight = max(b.inFlight-1, 0)

		if !success {
			b.moveTo(StateOpen)
			return
		}

		b.streak++
		if b.streak >= b.cfg.Probes {
			b.moveTo(StateClosed)
		}
	case StateOpen:
		// A request admitted before the breaker opened; nothing to count.
	}
}

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state
}

// moveTo must be called with mu held.
func (b *Breaker) moveTo(next State) {
	if b.state == next {
		return
	}

	prev := b.state
	b.state = next
	b.streak = 0

	if next == StateOpen {
		b.openedAt = b.now()
		b.inFlight = 0
	}

	if b.onChange != nil {
		go b.onChange(prev, next)
	}
}
