// Package circuit provides the breaker that guards relay publishes: when the
// relay is down, snapshot fan-out fails fast instead of stalling command
// handling behind a dead connection.
package circuit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// State represents circuit breaker state.
type State int32

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

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

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// Breaker implements the circuit breaker pattern.
type Breaker struct {
	maxFailures int
	timeout     time.Duration
	halfOpenMax int

	state         int32 // atomic
	failures      int32 // atomic
	successes     int32 // atomic
	halfOpenCount int32 // atomic

	mu            sync.Mutex
	lastFailure   time.Time
	onStateChange func(from, to State)
}

// Config holds circuit breaker configuration.
type Config struct {
	MaxFailures   int
	Timeout       time.Duration
	HalfOpenMax   int
	OnStateChange func(from, to State)
}

// NewBreaker creates a new circuit breaker.
func NewBreaker(cfg Config) *Breaker {
	return &Breaker{
		maxFailures:   cfg.MaxFailures,
		timeout:       cfg.Timeout,
		halfOpenMax:   cfg.HalfOpenMax,
		state:         int32(StateClosed),
		onStateChange: cfg.OnStateChange,
	}
}

// Execute runs fn with circuit breaker protection.
func (b *Breaker) Execute(ctx context.Context, fn func() error) error {
	if err := b.allowRequest(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		b.recordFailure()
		return err
	}
	b.recordSuccess()
	return nil
}

func (b *Breaker) allowRequest() error {
	switch State(atomic.LoadInt32(&b.state)) {
	case StateClosed:
		return nil

	case StateOpen:
		b.mu.Lock()
		defer b.mu.Unlock()
		if time.Since(b.lastFailure) > b.timeout {
			b.transitionTo(StateHalfOpen)
			return nil
		}
		return ErrCircuitOpen

	case StateHalfOpen:
		count := atomic.AddInt32(&b.halfOpenCount, 1)
		if count > int32(b.halfOpenMax) {
			atomic.AddInt32(&b.halfOpenCount, -1)
			return ErrTooManyRequests
		}
		return nil

	default:
		return errors.New("unknown state")
	}
}

func (b *Breaker) recordFailure() {
	switch State(atomic.LoadInt32(&b.state)) {
	case StateClosed:
		if int(atomic.AddInt32(&b.failures, 1)) >= b.maxFailures {
			b.mu.Lock()
			b.lastFailure = time.Now()
			b.transitionTo(StateOpen)
			b.mu.Unlock()
		}
	case StateHalfOpen:
		b.mu.Lock()
		b.lastFailure = time.Now()
		atomic.StoreInt32(&b.halfOpenCount, 0)
		b.transitionTo(StateOpen)
		b.mu.Unlock()
	}
}

func (b *Breaker) recordSuccess() {
	switch State(atomic.LoadInt32(&b.state)) {
	case StateClosed:
		atomic.StoreInt32(&b.failures, 0)
	case StateHalfOpen:
		if int(atomic.AddInt32(&b.successes, 1)) >= b.halfOpenMax {
			b.mu.Lock()
			atomic.StoreInt32(&b.successes, 0)
			atomic.StoreInt32(&b.halfOpenCount, 0)
			b.transitionTo(StateClosed)
			b.mu.Unlock()
		}
	}
}

func (b *Breaker) transitionTo(newState State) {
	oldState := State(atomic.LoadInt32(&b.state))
	if oldState == newState {
		return
	}
	atomic.StoreInt32(&b.state, int32(newState))
	if b.onStateChange != nil {
		b.onStateChange(oldState, newState)
	}
	atomic.StoreInt32(&b.failures, 0)
	atomic.StoreInt32(&b.successes, 0)
}

// State returns the current state.
func (b *Breaker) State() State {
	return State(atomic.LoadInt32(&b.state))
}

// Failures returns the current consecutive failure count.
func (b *Breaker) Failures() int {
	return int(atomic.LoadInt32(&b.failures))
}

// Reset returns the breaker to closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	atomic.StoreInt32(&b.failures, 0)
	atomic.StoreInt32(&b.successes, 0)
	atomic.StoreInt32(&b.halfOpenCount, 0)
	b.transitionTo(StateClosed)
}
