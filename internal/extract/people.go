package extract

import (
	"regexp"
	"strings"

	"github.com/parlando-app/parlando/internal/command"
)

const nameToken = `[A-Z][a-zA-Z'-]+`

var (
	// reWithClause captures the capitalized names following a "with":
	// "with Alice", "with Alice and Bob", "with Alice, Bob and Carol".
	reWithClause = regexp.MustCompile(
		`\b[Ww]ith\s+(` + nameToken + `(?:(?:,\s*|,?\s+and\s+)` + nameToken + `)*)`)

	// reNameList matches a bare comma/and-separated list of at least two
	// capitalized names, used when no "with" clause is present.
	reNameList = regexp.MustCompile(
		`\b(` + nameToken + `(?:(?:,\s*|,?\s+and\s+)` + nameToken + `)+)\b`)

	reNameSplit = regexp.MustCompile(`,\s*|,?\s+and\s+`)
)

// extractPeople emits a single PERSON entity whose Parts hold the attendee
// names in the order they were spoken, case preserved. The scalar normalized
// value is the comma-joined list.
func extractPeople(transcript string) (command.Entity, bool) {
	m := reWithClause.FindStringSubmatch(transcript)
	if m == nil {
		// Without the "with" anchor, capitalized calendar words would match
		// the bare list too ("every Monday and Wednesday"), so those reject
		// the whole candidate.
		if m = reNameList.FindStringSubmatch(transcript); m != nil && hasCalendarWord(m[1]) {
			m = nil
		}
	}
	if m == nil {
		return command.Entity{}, false
	}

	names := reNameSplit.Split(m[1], -1)
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}
	return command.Entity{
		Type:       command.EntityPerson,
		Value:      m[0],
		Normalized: strings.Join(names, ", "),
		Confidence: confPerson,
		Parts:      names,
	}, true
}

// hasCalendarWord reports whether any name in the comma/and-separated list is
// a weekday or month name.
func hasCalendarWord(list string) bool {
	for _, name := range reNameSplit.Split(list, -1) {
		l := strings.ToLower(strings.TrimSpace(name))
		if _, ok := weekdays[l]; ok {
			return true
		}
		if _, ok := months[l]; ok {
			return true
		}
	}
	return false
}
