// Package typed provides a keyboard-fallback capture provider: each call
// reads one line of text from an input stream and reports it as a transcript
// with full confidence. It backs the CLI's interactive mode and any
// deployment where a microphone is unavailable.
package typed

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/parlando-app/parlando/pkg/capture"
)

// Compile-time assertion that Provider implements capture.Provider.
var _ capture.Provider = (*Provider)(nil)

// Provider reads one line per TranscribeOnce call.
//
// The provider owns its reader's buffering; do not read from r elsewhere
// while the provider is in use. TranscribeOnce calls must not overlap.
type Provider struct {
	r *bufio.Reader
}

// New returns a Provider reading from r.
func New(r io.Reader) *Provider {
	return &Provider{r: bufio.NewReader(r)}
}

type lineResult struct {
	text string
	err  error
}

// TranscribeOnce implements [capture.Provider]. An empty line counts as no
// speech, end of input as an aborted capture. The read itself cannot be
// interrupted, but a cancelled ctx wins the race and reports aborted.
func (p *Provider) TranscribeOnce(ctx context.Context) (capture.Capture, error) {
	ch := make(chan lineResult, 1)
	go func() {
		line, err := p.r.ReadString('\n')
		ch <- lineResult{text: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return capture.Capture{}, capture.NewError(capture.KindAborted, ctx.Err())
	case res := <-ch:
		text := strings.TrimSpace(res.text)
		if res.err != nil && text == "" {
			return capture.Capture{}, capture.NewError(capture.KindAborted, io.EOF)
		}
		if text == "" {
			return capture.Capture{}, capture.NewError(capture.KindNoSpeech, nil)
		}
		return capture.Capture{Transcript: text, Confidence: 1.0}, nil
	}
}
