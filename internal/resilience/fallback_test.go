package resilience

import (
	"errors"
	"testing"
	"time"
)

// captureBackend is a named stand-in for a capture provider; down backends
// fail every call.
type captureBackend struct {
	name string
	down bool
}

func newCaptureGroup(t *testing.T, cfg CircuitBreakerConfig, backends ...*captureBackend) *FallbackGroup[*captureBackend] {
	t.Helper()
	if len(backends) == 0 {
		t.Fatal("need at least one backend")
	}
	fg := NewFallbackGroup(backends[0], backends[0].name, FallbackConfig{CircuitBreaker: cfg})
	for _, b := range backends[1:] {
		fg.AddFallback(b.name, b)
	}
	return fg
}

func transcribeVia(fg *FallbackGroup[*captureBackend]) (string, error) {
	var used string
	err := fg.Execute(func(b *captureBackend) error {
		if b.down {
			return errGatewayDown
		}
		used = b.name
		return nil
	})
	return used, err
}

func TestFallbackGroup_PrefersPrimary(t *testing.T) {
	fg := newCaptureGroup(t, CircuitBreakerConfig{MaxFailures: 3},
		&captureBackend{name: "gateway"},
		&captureBackend{name: "typed"},
	)

	used, err := transcribeVia(fg)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if used != "gateway" {
		t.Fatalf("used = %q, want gateway", used)
	}
}

func TestFallbackGroup_FailsOverWhenPrimaryIsDown(t *testing.T) {
	fg := newCaptureGroup(t, CircuitBreakerConfig{MaxFailures: 3},
		&captureBackend{name: "gateway", down: true},
		&captureBackend{name: "typed"},
	)

	used, err := transcribeVia(fg)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if used != "typed" {
		t.Fatalf("used = %q, want typed", used)
	}
}

func TestFallbackGroup_AllBackendsDown(t *testing.T) {
	fg := newCaptureGroup(t, CircuitBreakerConfig{MaxFailures: 3},
		&captureBackend{name: "gateway", down: true},
		&captureBackend{name: "whisper", down: true},
	)

	_, err := transcribeVia(fg)
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestFallbackGroup_SkipsBackendWithOpenBreaker(t *testing.T) {
	gateway := &captureBackend{name: "gateway", down: true}
	fg := newCaptureGroup(t,
		CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour},
		gateway,
		&captureBackend{name: "typed"},
	)

	// Two failing cycles open the gateway's breaker.
	for range 2 {
		if _, err := transcribeVia(fg); err != nil {
			t.Fatalf("Execute: %v", err)
		}
	}

	// The third cycle must not call the gateway at all.
	gateway.down = false
	calls := 0
	err := fg.Execute(func(b *captureBackend) error {
		calls++
		if b.name == "gateway" {
			t.Error("gateway called while its breaker is open")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (typed only)", calls)
	}
}

func TestFallbackGroup_SingleBackend(t *testing.T) {
	fg := NewFallbackGroup(&captureBackend{name: "typed"}, "typed",
		FallbackConfig{CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3}})

	used, err := transcribeVia(fg)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if used != "typed" {
		t.Fatalf("used = %q, want typed", used)
	}
}
