// Package extract implements multi-pass entity extraction over voice command
// transcripts.
//
// Extraction runs independent passes — title, date, time, priority,
// recurrence, tags, attendees — each emitting zero or more typed,
// confidence-scored entities. No pass depends on another pass's output, and
// every pass is deterministic: the same transcript and reference date always
// produce the same entities. This is a lexicon- and pattern-driven system,
// not a statistical one.
//
// Normalized values are canonical machine forms: ISO dates (YYYY-MM-DD),
// 24-hour times (HH:MM), and RRULE-like recurrence strings
// (FREQ=WEEKLY;BYDAY=MO,WE). The one exception is a bare weekday name
// without "next", which stays a literal day name because it is not yet
// resolvable to a single calendar date.
package extract

import (
	"time"

	"github.com/parlando-app/parlando/internal/command"
)

// Pass confidence levels. Fixed per pattern family so that output is
// reproducible and fusion behaviour can be reasoned about in tests.
const (
	confTitle        = 0.9
	confDateLiteral  = 0.95 // today / tomorrow / yesterday
	confDateResolved = 0.9  // next week / next <weekday>
	confDateWeekday  = 0.8  // bare weekday, not yet resolved
	confDatePattern  = 0.85 // ordinals, month-day, quarter ends
	confTime         = 0.9
	confTimeLiteral  = 0.85 // noon / midnight / end of day
	confPriority     = 0.9
	confRecurrence   = 0.85
	confTagKeyword   = 0.8
	confTagLiteral   = 0.95 // explicit #tag tokens
	confPerson       = 0.85
)

// PatternSource supplies extra entities from learned user patterns. The
// extractor appends whatever the source emits for the transcript; sources
// must only return auto-apply patterns they are confident about.
type PatternSource interface {
	Match(transcript string) []command.Entity
}

// Option is a functional option for configuring an [Extractor].
type Option func(*Extractor)

// WithPatternSource attaches a learned-pattern source whose matches are
// appended to the rule-based passes.
func WithPatternSource(src PatternSource) Option {
	return func(e *Extractor) { e.patterns = src }
}

// WithTitleStopPhrases replaces the phrase list stripped by the title pass.
// Intended for alternate vocabularies; the default list is derived from the
// built-in intent triggers plus common command verbs.
func WithTitleStopPhrases(phrases []string) Option {
	return func(e *Extractor) { e.titleStrip = compileStopPhrases(phrases) }
}

// Extractor runs the extraction passes. It is read-only after construction
// and safe for concurrent use.
type Extractor struct {
	titleStrip []stopPhrase
	patterns   PatternSource
}

// New returns an Extractor configured with the supplied options.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		titleStrip: compileStopPhrases(defaultStopPhrases()),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract runs every pass over transcript. Relative date expressions are
// resolved against ref. The returned slice preserves pass order (title,
// date, time, priority, recurrence, tags, people, learned) but that order
// carries no semantics.
func (e *Extractor) Extract(transcript string, ref time.Time) []command.Entity {
	var out []command.Entity

	if ent, ok := e.extractTitle(transcript); ok {
		out = append(out, ent)
	}
	if ent, ok := extractDate(transcript, ref); ok {
		out = append(out, ent)
	}
	if ent, ok := extractTime(transcript); ok {
		out = append(out, ent)
	}
	if ent, ok := extractPriority(transcript); ok {
		out = append(out, ent)
	}
	if ent, ok := extractRecurrence(transcript); ok {
		out = append(out, ent)
	}
	out = append(out, extractTags(transcript)...)
	if ent, ok := extractPeople(transcript); ok {
		out = append(out, ent)
	}

	if e.patterns != nil {
		out = append(out, e.patterns.Match(transcript)...)
	}
	return out
}
