package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/parlando-app/parlando/pkg/capture"
	"github.com/parlando-app/parlando/pkg/capture/gateway"
	"github.com/parlando-app/parlando/pkg/capture/mock"
	"github.com/parlando-app/parlando/pkg/capture/typed"
	"github.com/parlando-app/parlando/pkg/capture/whisper"
)

// ErrProviderNotRegistered is returned by CreateCapture when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: capture provider not registered")

// CaptureFactory builds a capture provider from its configuration entry.
type CaptureFactory func(CaptureConfig) (capture.Provider, error)

// Registry maps capture provider names to their constructor functions.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	capture map[string]CaptureFactory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{capture: make(map[string]CaptureFactory)}
}

// RegisterCapture registers a capture provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterCapture(name string, factory CaptureFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capture[name] = factory
}

// CreateCapture instantiates a capture provider using the factory registered
// under entry.Provider. Returns [ErrProviderNotRegistered] if no factory has
// been registered for that name.
func (r *Registry) CreateCapture(entry CaptureConfig) (capture.Provider, error) {
	r.mu.RLock()
	factory, ok := r.capture[entry.Provider]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotRegistered, entry.Provider)
	}
	return factory(entry)
}

// DefaultRegistry returns a [Registry] with the built-in capture providers
// registered: typed (stdin lines), mock (scripted transcripts from
// options.transcripts), gateway (WebSocket speech gateway), and whisper
// (local whisper.cpp server fed from options.audio_path).
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.RegisterCapture("typed", func(CaptureConfig) (capture.Provider, error) {
		return typed.New(os.Stdin), nil
	})

	r.RegisterCapture("mock", func(entry CaptureConfig) (capture.Provider, error) {
		raw, ok := entry.Options["transcripts"].([]any)
		if !ok {
			return nil, errors.New("config: mock capture requires options.transcripts (list of strings)")
		}
		texts := make([]string, 0, len(raw))
		for _, v := range raw {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("config: mock capture transcript %v is not a string", v)
			}
			texts = append(texts, s)
		}
		return mock.Transcripts(texts...), nil
	})

	r.RegisterCapture("gateway", func(entry CaptureConfig) (capture.Provider, error) {
		var opts []gateway.Option
		if entry.Language != "" {
			opts = append(opts, gateway.WithLanguage(entry.Language))
		}
		if entry.Token != "" {
			opts = append(opts, gateway.WithToken(entry.Token))
		}
		return gateway.New(entry.URL, opts...)
	})

	r.RegisterCapture("whisper", func(entry CaptureConfig) (capture.Provider, error) {
		path, ok := entry.Options["audio_path"].(string)
		if !ok || path == "" {
			return nil, errors.New("config: whisper capture requires options.audio_path (WAV file recorded per utterance)")
		}
		source := func(ctx context.Context) ([]byte, error) {
			return os.ReadFile(path)
		}
		var opts []whisper.Option
		if entry.Language != "" {
			opts = append(opts, whisper.WithLanguage(entry.Language))
		}
		return whisper.New(entry.URL, source, opts...)
	})

	return r
}
