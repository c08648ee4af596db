// Package learned tracks per-user phrase patterns: recurring spoken phrases
// that map onto a known entity value ("my standup" meaning the 09:30 daily
// meeting). Patterns are observed over confirmed commands, gain confidence
// with frequency, and once established are applied during extraction via a
// phonetic matcher.
package learned

import (
	"context"
	"time"

	"github.com/parlando-app/parlando/internal/command"
)

// autoApplyThreshold is the observation count at which a pattern starts
// being applied automatically during extraction.
const autoApplyThreshold = 3

// Pattern is one learned phrase mapping.
type Pattern struct {
	UserID     string
	Phrase     string
	EntityType command.EntityType
	Value      string

	// Frequency counts confirmed observations of this mapping.
	Frequency int

	// Confidence grows monotonically with frequency, capped at 1.0.
	Confidence float64

	// AutoApply becomes true once Frequency reaches the threshold and
	// never reverts.
	AutoApply bool

	UpdatedAt time.Time
}

// ConfidenceForFrequency computes a pattern's confidence from its
// observation count: half certainty after the first sighting, one step per
// further sighting, capped at 1.0.
func ConfidenceForFrequency(frequency int) float64 {
	c := 0.5 + 0.1*float64(frequency)
	if c > 1.0 {
		return 1.0
	}
	return c
}

// Store persists learned patterns. Implementations must be safe for
// concurrent use.
type Store interface {
	// Observe records one confirmed sighting of the phrase→value mapping,
	// creating the pattern or bumping its frequency, and returns the
	// updated pattern.
	Observe(ctx context.Context, userID, phrase string, entityType command.EntityType, value string) (Pattern, error)

	// ForUser returns the user's patterns in unspecified order.
	ForUser(ctx context.Context, userID string) ([]Pattern, error)
}
