// Package intent implements rule-based intent classification for voice
// command transcripts.
//
// Classification is deterministic: the transcript is lower-cased and every
// intent's trigger phrases are counted as substring hits. The intent with
// the most hits wins; ties resolve to the first intent in canonical
// enumeration order (command.Intents). A transcript matching no trigger at
// all classifies as UNKNOWN with a fixed low confidence rather than an
// error — ambiguity is a value, not an exception.
package intent

import (
	"strings"

	"github.com/parlando-app/parlando/internal/command"
)

// UnknownConfidence is the fixed confidence assigned when no trigger phrase
// matches. Exposed so fusion boundary behaviour can be probed in tests.
const UnknownConfidence = 0.3

// maxConfidence caps the rule-based confidence: substring counting alone is
// never treated as near-certain.
const maxConfidence = 0.9

// Classifier scores transcripts against an injected trigger vocabulary.
// It is stateless apart from its immutable configuration and safe for
// concurrent use.
type Classifier struct {
	vocab Vocabulary
}

// New returns a Classifier using vocab. When vocab is nil the built-in
// [DefaultVocabulary] is used.
func New(vocab Vocabulary) *Classifier {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &Classifier{vocab: vocab}
}

// Classify scores transcript against the vocabulary and returns the winning
// intent.
//
// Confidence for a matched intent is min(0.9, score/triggerCount + 0.2),
// where triggerCount is the number of triggers defined for the winning
// intent: a single-trigger intent reaches high confidence from one hit,
// while a many-trigger intent needs several hits for the same confidence.
func (c *Classifier) Classify(transcript string) command.Classification {
	lowered := strings.ToLower(transcript)

	best := command.IntentUnknown
	bestScore := 0
	bestTriggers := 0

	for _, it := range command.Intents {
		triggers := c.vocab[it]
		if len(triggers) == 0 {
			continue
		}
		score := 0
		for _, phrase := range triggers {
			if strings.Contains(lowered, phrase) {
				score++
			}
		}
		// Strictly-greater keeps the tie-break stable on enumeration order.
		if score > bestScore {
			best = it
			bestScore = score
			bestTriggers = len(triggers)
		}
	}

	if bestScore == 0 {
		return command.Classification{
			Type:       command.IntentUnknown,
			Confidence: UnknownConfidence,
			Method:     command.MethodRules,
		}
	}

	confidence := float64(bestScore)/float64(bestTriggers) + 0.2
	if confidence > maxConfidence {
		confidence = maxConfidence
	}
	return command.Classification{
		Type:       best,
		Confidence: confidence,
		Method:     command.MethodRules,
	}
}
