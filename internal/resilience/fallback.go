package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every backend in a [FallbackGroup] fails or
// sits behind an open circuit breaker.
var ErrAllFailed = errors.New("all backends failed")

// FallbackConfig configures the circuit breaker created for each backend in
// a [FallbackGroup].
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// fallbackEntry pairs one backend with its dedicated circuit breaker.
type fallbackEntry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup holds a primary backend and zero or more fallbacks of the
// same type, each behind its own breaker. Backends are consulted in
// registration order, so a remote speech gateway can sit in front of a local
// whisper server with typed input as the last resort.
//
// FallbackGroup is safe for concurrent use once registration is done;
// AddFallback must not race with Execute.
type FallbackGroup[T any] struct {
	entries []fallbackEntry[T]
	cfg     FallbackConfig
}

// NewFallbackGroup creates a [FallbackGroup] with primary as the preferred
// backend.
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	cbCfg := cfg.CircuitBreaker
	cbCfg.Name = primaryName
	return &FallbackGroup[T]{
		entries: []fallbackEntry[T]{
			{
				name:    primaryName,
				value:   primary,
				breaker: NewCircuitBreaker(cbCfg),
			},
		},
		cfg: cfg,
	}
}

// AddFallback appends a backend consulted after all earlier registrations.
func (fg *FallbackGroup[T]) AddFallback(name string, fallback T) {
	cbCfg := fg.cfg.CircuitBreaker
	cbCfg.Name = name
	fg.entries = append(fg.entries, fallbackEntry[T]{
		name:    name,
		value:   fallback,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// Execute runs fn against each backend in order until one succeeds. Backends
// with an open breaker are skipped without being called. When everything
// fails the last error comes back wrapped in [ErrAllFailed].
func (fg *FallbackGroup[T]) Execute(fn func(T) error) error {
	var lastErr error
	for i := range fg.entries {
		entry := &fg.entries[i]
		err := entry.breaker.Execute(func() error {
			return fn(entry.value)
		})
		if err == nil {
			return nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping backend, breaker open", "backend", entry.name)
		} else {
			slog.Warn("backend failed, trying next", "backend", entry.name, "err", err)
		}
	}
	return fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
