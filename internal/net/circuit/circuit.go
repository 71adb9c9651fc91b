// Package circuit implements a minimal three-state circuit breaker used to
// protect RPC and WebSocket reconnection paths from hammering a degraded
// upstream.
package circuit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrOpen is returned when a call is rejected because the breaker is open.
	ErrOpen = errors.New("circuit breaker open")
	// ErrCallTimeout is returned when a guarded call exceeds its deadline.
	ErrCallTimeout = errors.New("circuit breaker call timeout")
)

// State is one of closed, open, half-open.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config parameterizes a Breaker.
type Config struct {
	FailureThreshold int           // consecutive failures before opening
	SuccessThreshold int           // consecutive half-open successes before closing
	OpenTimeout      time.Duration // how long to stay open before probing
	CallTimeout      time.Duration // per-call deadline
}

// OnStateChange is invoked whenever the breaker transitions state, letting a
// caller wire a metrics counter without the breaker depending on prometheus.
type OnStateChange func(name string, from, to State)

// Breaker is a single named circuit breaker instance. One is held per
// upstream dependency (per RPC endpoint, per exchange session).
type Breaker struct {
	name   string
	mu     sync.Mutex
	cfg    Config
	state  State
	fails  int
	oks    int
	lastOp time.Time

	requests, successes, failures, timeouts int64

	onChange OnStateChange
}

// New creates a breaker named for observability, starting closed.
func New(name string, cfg Config, onChange OnStateChange) *Breaker {
	return &Breaker{name: name, cfg: cfg, state: Closed, lastOp: time.Now(), onChange: onChange}
}

// Do executes fn under the breaker's protection. It returns ErrOpen without
// calling fn if the breaker is open and the open timeout has not elapsed.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if !b.ready() {
		return ErrOpen
	}

	callCtx, cancel := context.WithTimeout(ctx, b.cfg.CallTimeout)
	defer cancel()

	b.mu.Lock()
	b.requests++
	b.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- fn(callCtx) }()

	select {
	case err := <-done:
		if err != nil {
			b.recordFailure()
			return fmt.Errorf("%s: %w", b.name, err)
		}
		b.recordSuccess()
		return nil
	case <-callCtx.Done():
		b.recordTimeout()
		return ErrCallTimeout
	}
}

func (b *Breaker) ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if time.Since(b.lastOp) >= b.cfg.OpenTimeout {
			b.transition(HalfOpen)
			return true
		}
		return false
	default:
		return true
	}
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.successes++

	switch b.state {
	case Closed:
		b.fails = 0
	case HalfOpen:
		b.oks++
		if b.oks >= b.cfg.SuccessThreshold {
			b.transition(Closed)
			b.fails, b.oks = 0, 0
		}
	}
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.lastOp = time.Now()
	b.tripIfNeeded()
}

func (b *Breaker) recordTimeout() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timeouts++
	b.failures++
	b.lastOp = time.Now()
	b.tripIfNeeded()
}

// tripIfNeeded must be called with mu held.
func (b *Breaker) tripIfNeeded() {
	switch b.state {
	case Closed:
		b.fails++
		if b.fails >= b.cfg.FailureThreshold {
			b.transition(Open)
		}
	case HalfOpen:
		b.transition(Open)
		b.oks = 0
	}
}

// transition must be called with mu held.
func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	b.lastOp = time.Now()
	if to == HalfOpen {
		b.fails = 0
	}
	if b.onChange != nil {
		b.onChange(b.name, from, to)
	}
}

// State reports the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Counts is a point-in-time snapshot of breaker activity, surfaced through
// get_system_status-style health endpoints.
type Counts struct {
	State      State
	Requests   int64
	Successes  int64
	Failures   int64
	Timeouts   int64
	Consec     int
	SinceState time.Duration
}

func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Counts{
		State:      b.state,
		Requests:   b.requests,
		Successes:  b.successes,
		Failures:   b.failures,
		Timeouts:   b.timeouts,
		Consec:     b.fails,
		SinceState: time.Since(b.lastOp),
	}
}
