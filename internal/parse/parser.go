// Package parse composes the intent classifier, the entity extractor, and
// confidence fusion into the single synchronous step that turns a captured
// transcript into an immutable [command.ParsedCommand].
//
// Parsing is deterministic and side-effect-free: the classifier and the
// extractor run independently over the same transcript, then fusion merges
// their confidences with the capture confidence reported by the speech
// layer. The only wall-clock input is the injected clock, which stamps the
// resulting command and anchors relative date expressions.
package parse

import (
	"time"

	"github.com/parlando-app/parlando/internal/command"
	"github.com/parlando-app/parlando/internal/extract"
	"github.com/parlando-app/parlando/internal/intent"
)

// Option is a functional option for configuring a [Parser].
type Option func(*Parser)

// WithWeights overrides the fusion weights.
func WithWeights(w Weights) Option {
	return func(p *Parser) { p.weights = w }
}

// WithClock overrides the time source used for command timestamps and as
// the reference date for relative date expressions. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

// Parser produces ParsedCommand values. Safe for concurrent use; it holds
// no mutable state.
type Parser struct {
	classifier *intent.Classifier
	extractor  *extract.Extractor
	weights    Weights
	now        func() time.Time
}

// New returns a Parser built on the given classifier and extractor.
func New(classifier *intent.Classifier, extractor *extract.Extractor, opts ...Option) *Parser {
	p := &Parser{
		classifier: classifier,
		extractor:  extractor,
		weights:    DefaultWeights(),
		now:        time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Parse classifies and extracts transcript, fuses the confidences with
// captureConfidence, and returns a fresh ParsedCommand. Each call produces
// a new instance; ParsedCommand values are never mutated after creation.
func (p *Parser) Parse(transcript string, captureConfidence float64) command.ParsedCommand {
	now := p.now()

	classification := p.classifier.Classify(transcript)
	entities := p.extractor.Extract(transcript, now)

	confidences := make([]float64, len(entities))
	for i, e := range entities {
		confidences[i] = e.Confidence
	}

	return command.ParsedCommand{
		Transcript: transcript,
		Intent:     classification,
		Entities:   entities,
		Overall:    Fuse(p.weights, classification.Confidence, confidences, captureConfidence),
		Timestamp:  now,
	}
}
