package extract

import (
	"regexp"
	"strings"

	"github.com/parlando-app/parlando/internal/command"
)

// Priority normalized values.
const (
	PriorityUrgent = "urgent"
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// priorityBuckets maps trigger phrases to priority levels. Checked in
// declaration order; the first phrase found wins.
var priorityBuckets = []struct {
	phrase string
	level  string
}{
	{"urgent", PriorityUrgent},
	{"asap", PriorityUrgent},
	{"high priority", PriorityHigh},
	{"low priority", PriorityLow},
}

// rePriorityPhrase matches any priority trigger phrase. Used by the title
// pass to strip priority clauses.
var rePriorityPhrase = regexp.MustCompile(`(?i)\burgent\b|\basap\b|\bhigh priority\b|\blow priority\b`)

// extractPriority emits a PRIORITY entity when an explicit priority phrase
// occurs. When nothing matches no entity is emitted and the executor's
// default table supplies the value.
func extractPriority(transcript string) (command.Entity, bool) {
	lowered := strings.ToLower(transcript)
	for _, b := range priorityBuckets {
		if idx := strings.Index(lowered, b.phrase); idx >= 0 {
			return command.Entity{
				Type:       command.EntityPriority,
				Value:      transcript[idx : idx+len(b.phrase)],
				Normalized: b.level,
				Confidence: confPriority,
			}, true
		}
	}
	return command.Entity{}, false
}

// tagBuckets maps topic keywords to tag categories.
var tagBuckets = map[string]string{
	"meeting":       "work",
	"standup":       "work",
	"presentation":  "work",
	"interview":     "work",
	"client":        "work",
	"deadline":      "work",
	"sprint":        "work",
	"dentist":       "health",
	"doctor":        "health",
	"checkup":       "health",
	"pharmacy":      "health",
	"medication":    "health",
	"therapy":       "health",
	"shopping list": "shopping",
	"groceries":     "shopping",
	"workout":       "fitness",
	"gym":           "fitness",
	"exercise":      "fitness",
	"yoga":          "fitness",
}

// reHashTag matches literal #tag tokens.
var reHashTag = regexp.MustCompile(`#([A-Za-z0-9_-]+)`)

// extractTags emits one TAG entity per matched category plus one per literal
// #tag token. Duplicate normalized tags are collapsed; emission order is
// deterministic (keyword buckets by first occurrence in the transcript,
// then hash tags left to right).
func extractTags(transcript string) []command.Entity {
	lowered := strings.ToLower(transcript)

	type hit struct {
		raw     string
		tag     string
		pos     int
		literal bool
	}
	var hits []hit

	for phrase, tag := range tagBuckets {
		if idx := strings.Index(lowered, phrase); idx >= 0 {
			hits = append(hits, hit{raw: transcript[idx : idx+len(phrase)], tag: tag, pos: idx})
		}
	}
	for _, m := range reHashTag.FindAllStringSubmatchIndex(transcript, -1) {
		hits = append(hits, hit{
			raw:     transcript[m[0]:m[1]],
			tag:     strings.ToLower(transcript[m[2]:m[3]]),
			pos:     m[0],
			literal: true,
		})
	}

	// Stable order by transcript position.
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}

	seen := make(map[string]bool, len(hits))
	var out []command.Entity
	for _, h := range hits {
		if seen[h.tag] {
			continue
		}
		seen[h.tag] = true
		confidence := confTagKeyword
		if h.literal {
			confidence = confTagLiteral
		}
		out = append(out, command.Entity{
			Type:       command.EntityTag,
			Value:      h.raw,
			Normalized: h.tag,
			Confidence: confidence,
		})
	}
	return out
}
