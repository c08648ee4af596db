// Package resilience keeps the interactive loop usable when a capture
// backend degrades. [CircuitBreaker] stops hammering a speech gateway that
// keeps failing, [FallbackGroup] routes around it to the next healthy
// backend, and [CaptureFallback] packages both behind the capture contract.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] while the breaker
// rejects calls outright.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed forwards every call.
	StateClosed State = iota

	// StateOpen rejects every call with [ErrCircuitOpen] until the reset
	// timeout elapses.
	StateOpen

	// StateHalfOpen lets a bounded number of probe calls through; the
	// breaker closes if they succeed and re-opens on the first failure.
	StateHalfOpen
)

// String returns the human-readable name of the state.
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

// CircuitBreakerConfig holds the breaker's tuning knobs.
type CircuitBreakerConfig struct {
	// Name labels the guarded backend in log messages.
	Name string

	// MaxFailures is how many consecutive failures the closed breaker
	// tolerates before opening. Default: 5.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open before probing the
	// backend again. Default: 30s.
	ResetTimeout time.Duration

	// HalfOpenMax bounds the probe calls allowed while half-open.
	// Default: 3.
	HalfOpenMax int
}

// CircuitBreaker is a three-state breaker (closed, open, half-open) guarding
// one backend. A capture cycle runs one call through it per attempt; the
// breaker only ever counts what its caller reports, so callers decide which
// errors are backend failures (see [CaptureFallback]).
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	halfOpenMax  int

	mu         sync.Mutex
	state      State
	failures   int
	failedAt   time.Time
	probes     int
	probeFails int
}

// NewCircuitBreaker creates a [CircuitBreaker]. Zero config fields fall back
// to the documented defaults.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 3
	}
	return &CircuitBreaker{
		name:         cfg.Name,
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
		halfOpenMax:  cfg.HalfOpenMax,
		state:        StateClosed,
	}
}

// Execute runs fn if the breaker allows it and feeds the outcome back into
// the failure accounting. While open it returns [ErrCircuitOpen] without
// calling fn.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	probing, err := cb.allow()
	if err != nil {
		return err
	}

	err = fn()
	cb.settle(err == nil, probing)
	return err
}

// allow decides whether the next call may proceed and whether it counts as a
// half-open probe.
func (cb *CircuitBreaker) allow() (probing bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if time.Since(cb.failedAt) < cb.resetTimeout {
			return false, ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.probes, cb.probeFails = 0, 0
		slog.Info("probing backend again", "backend", cb.name)

	case StateHalfOpen:
		if cb.probes >= cb.halfOpenMax {
			// Probe budget spent; wait for the in-flight probes to settle.
			return false, ErrCircuitOpen
		}
	}

	if cb.state == StateHalfOpen {
		cb.probes++
		return true, nil
	}
	return false, nil
}

// settle records one call outcome.
func (cb *CircuitBreaker) settle(ok, probing bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !ok {
		cb.failedAt = time.Now()
		if probing {
			// One failed probe re-opens immediately.
			cb.probeFails++
			cb.state = StateOpen
			cb.failures = cb.maxFailures
			slog.Warn("backend failed its probe, breaker re-opened", "backend", cb.name)
			return
		}
		cb.failures++
		if cb.failures >= cb.maxFailures {
			cb.state = StateOpen
			slog.Warn("breaker opened", "backend", cb.name, "failures", cb.failures)
		}
		return
	}

	if probing {
		if cb.probes-cb.probeFails >= cb.halfOpenMax {
			cb.state = StateClosed
			cb.failures, cb.probes, cb.probeFails = 0, 0, 0
			slog.Info("backend recovered, breaker closed", "backend", cb.name)
		}
		return
	}
	cb.failures = 0
}

// State reports the breaker's state. An open breaker whose reset timeout has
// elapsed reports [StateHalfOpen]; the stored transition happens on the next
// [CircuitBreaker.Execute].
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && time.Since(cb.failedAt) >= cb.resetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Reset forces the breaker back to [StateClosed] and clears all counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.probes = 0
	cb.probeFails = 0
	slog.Info("breaker reset", "backend", cb.name)
}
