package learned

import (
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/parlando-app/parlando/internal/command"
	"github.com/parlando-app/parlando/internal/extract"
)

// Compile-time assertion that Matcher plugs into the extractor.
var _ extract.PatternSource = (*Matcher)(nil)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// MatcherOption is a functional option for configuring a [Matcher].
type MatcherOption func(*Matcher)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-overlapping phrase to be accepted. Default: 0.70.
func WithPhoneticThreshold(threshold float64) MatcherOption {
	return func(m *Matcher) { m.phoneticThreshold = threshold }
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when no
// phonetic overlap exists. Default: 0.85.
func WithFuzzyThreshold(threshold float64) MatcherOption {
	return func(m *Matcher) { m.fuzzyThreshold = threshold }
}

// Matcher applies a user's auto-apply patterns to transcripts during
// extraction. It satisfies the extractor's pattern source contract.
//
// Matching proceeds in two stages per pattern: an exact case-insensitive
// substring check, then a phonetic sweep over transcript n-grams of the
// pattern's word count using Double Metaphone code overlap ranked by
// Jaro-Winkler similarity. The phonetic stage catches speech-recognition
// mangling ("stand up" for "standup").
type Matcher struct {
	fetch             func() []Pattern
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// NewMatcher returns a Matcher drawing patterns from fetch on every Match
// call, so newly learned patterns apply without rebuilding the extractor.
func NewMatcher(fetch func() []Pattern, opts ...MatcherOption) *Matcher {
	m := &Matcher{
		fetch:             fetch,
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Match returns one entity per auto-apply pattern found in transcript.
func (m *Matcher) Match(transcript string) []command.Entity {
	patterns := m.fetch()
	if len(patterns) == 0 {
		return nil
	}

	lower := strings.ToLower(transcript)
	words := strings.Fields(lower)

	var out []command.Entity
	for _, p := range patterns {
		if !p.AutoApply || p.Phrase == "" {
			continue
		}
		if strings.Contains(lower, p.Phrase) {
			out = append(out, command.Entity{
				Type:       p.EntityType,
				Value:      p.Phrase,
				Normalized: p.Value,
				Confidence: p.Confidence,
			})
			continue
		}
		if matched, score := m.phoneticHit(words, p.Phrase); matched != "" {
			out = append(out, command.Entity{
				Type:       p.EntityType,
				Value:      matched,
				Normalized: p.Value,
				Confidence: p.Confidence * score,
			})
		}
	}
	return out
}

// phoneticHit slides a window of the phrase's word count over words and
// returns the best-scoring n-gram, or "" when none clears a threshold.
func (m *Matcher) phoneticHit(words []string, phrase string) (string, float64) {
	phraseTokens := strings.Fields(phrase)
	n := len(phraseTokens)
	if n == 0 || len(words) < n {
		return "", 0
	}
	phraseCodes := codesForTokens(phraseTokens)

	var bestGram string
	var bestScore float64
	for i := 0; i+n <= len(words); i++ {
		gram := words[i : i+n]
		score := bestJaroWinkler(gram, phraseTokens)

		threshold := m.fuzzyThreshold
		if codesOverlap(codesForTokens(gram), phraseCodes) {
			threshold = m.phoneticThreshold
		}
		if score >= threshold && score > bestScore {
			bestGram = strings.Join(gram, " ")
			bestScore = score
		}
	}
	return bestGram, bestScore
}

// codesForTokens returns the union of all Double Metaphone codes for the
// tokens. Empty codes are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

// codesOverlap reports whether the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestJaroWinkler compares the n-gram and the phrase as full strings, as
// concatenations, and token-pairwise, returning the highest score.
func bestJaroWinkler(gram, phraseTokens []string) float64 {
	score := matchr.JaroWinkler(strings.Join(gram, " "), strings.Join(phraseTokens, " "), false)
	if len(gram) > 1 || len(phraseTokens) > 1 {
		if s := matchr.JaroWinkler(strings.Join(gram, ""), strings.Join(phraseTokens, ""), false); s > score {
			score = s
		}
	}
	for _, g := range gram {
		for _, p := range phraseTokens {
			if s := matchr.JaroWinkler(g, p, false); s > score {
				score = s
			}
		}
	}
	return score
}
