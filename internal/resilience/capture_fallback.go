package resilience

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/parlando-app/parlando/pkg/capture"
)

// CaptureFallback implements [capture.Provider] with automatic failover
// across multiple capture backends. Each backend has its own circuit
// breaker, so a speech gateway that keeps timing out is bypassed in favour
// of a local fallback until it recovers.
type CaptureFallback struct {
	group *FallbackGroup[capture.Provider]
}

// Compile-time interface assertion.
var _ capture.Provider = (*CaptureFallback)(nil)

// NewCaptureFallback creates a [CaptureFallback] with primary as the
// preferred backend.
func NewCaptureFallback(primary capture.Provider, primaryName string, cfg FallbackConfig) *CaptureFallback {
	return &CaptureFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional capture provider as a fallback.
func (f *CaptureFallback) AddFallback(name string, provider capture.Provider) {
	f.group.AddFallback(name, provider)
}

// TranscribeOnce captures against the first healthy provider.
//
// Only network failures trigger failover. No-speech, aborts, and permission
// errors describe the user or the session, not the backend; retrying them
// against another provider would double-prompt the speaker, so they return
// immediately and do not count against the circuit breaker.
func (f *CaptureFallback) TranscribeOnce(ctx context.Context) (capture.Capture, error) {
	var lastErr error

	for i := range f.group.entries {
		entry := &f.group.entries[i]

		var (
			heard   capture.Capture
			userErr error
		)
		err := entry.breaker.Execute(func() error {
			var innerErr error
			heard, innerErr = entry.value.TranscribeOnce(ctx)
			if innerErr != nil {
				if kind := capture.KindOf(innerErr); kind != "" && kind != capture.KindNetwork {
					userErr = innerErr
					return nil
				}
			}
			return innerErr
		})
		if userErr != nil {
			return capture.Capture{}, userErr
		}
		if err == nil {
			return heard, nil
		}
		lastErr = err
		slog.Warn("capture backend failed, trying next", "backend", entry.name, "err", err)
	}

	return capture.Capture{}, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
