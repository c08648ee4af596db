// Package mock provides a scripted capture provider for tests. Each call to
// TranscribeOnce pops the next scripted step; when the script runs out, the
// provider fails with an aborted capture error.
package mock

import (
	"context"
	"sync"

	"github.com/parlando-app/parlando/pkg/capture"
)

// Compile-time assertion that Provider implements capture.Provider.
var _ capture.Provider = (*Provider)(nil)

// Step is one scripted outcome. Err takes precedence over Capture.
type Step struct {
	Capture capture.Capture
	Err     error
}

// Provider replays a fixed script of captures and errors.
type Provider struct {
	mu    sync.Mutex
	steps []Step
	calls int
}

// New returns a Provider replaying steps in order.
func New(steps ...Step) *Provider {
	return &Provider{steps: steps}
}

// Transcripts returns a Provider that yields each transcript in turn with
// confidence 1.0.
func Transcripts(texts ...string) *Provider {
	steps := make([]Step, len(texts))
	for i, t := range texts {
		steps[i] = Step{Capture: capture.Capture{Transcript: t, Confidence: 1.0}}
	}
	return New(steps...)
}

// TranscribeOnce implements [capture.Provider].
func (p *Provider) TranscribeOnce(ctx context.Context) (capture.Capture, error) {
	if err := ctx.Err(); err != nil {
		return capture.Capture{}, capture.NewError(capture.KindAborted, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if len(p.steps) == 0 {
		return capture.Capture{}, capture.NewError(capture.KindAborted, nil)
	}
	step := p.steps[0]
	p.steps = p.steps[1:]
	if step.Err != nil {
		return capture.Capture{}, step.Err
	}
	return step.Capture, nil
}

// Calls returns how many times TranscribeOnce has been invoked.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}
