package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/parlando-app/parlando/internal/command"
)

// byDayCodes maps weekdays to their RRULE BYDAY codes.
var byDayCodes = map[time.Weekday]string{
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
	time.Sunday:    "SU",
}

// canonicalDays is the Monday-first ordering used for BYDAY lists. Day codes
// always appear in this order regardless of how the days were spoken.
var canonicalDays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

var (
	reDaily      = regexp.MustCompile(`(?i)\bevery\s+day\b|\bdaily\b|\bevery\s+night\b|\bnightly\b`)
	reWeekdays   = regexp.MustCompile(`(?i)\bevery\s+weekday\b`)
	reAnyWeekday = regexp.MustCompile(`(?i)\b(` + weekdayAlt + `)\b`)

	// reEveryDayList matches a full "every <weekday>[, and <weekday>…]"
	// phrase: the contiguous run of weekdays separated only by commas and
	// "and". Its span bounds the BYDAY scan and the title pass uses it to
	// strip recurrence clauses in one go.
	reEveryDayList = regexp.MustCompile(
		`(?i)\bevery(?:[\s,]+(?:and\s+)?(?:` + weekdayAlt + `))+\b`)
)

// extractRecurrence recognises recurrence phrases and emits an RRULE-like
// normalized string. At most one RECURRENCE entity is emitted.
func extractRecurrence(transcript string) (command.Entity, bool) {
	if m := reDaily.FindString(transcript); m != "" {
		return recurrenceEntity(m, "FREQ=DAILY"), true
	}
	if m := reWeekdays.FindString(transcript); m != "" {
		return recurrenceEntity(m, "FREQ=WEEKLY;BYDAY=MO,TU,WE,TH,FR"), true
	}

	// "every <weekday>[, and <weekday>…]": only weekdays inside the
	// contiguous list after "every" count. A weekday mentioned later in the
	// sentence is not part of the recurrence. Codes are listed in canonical
	// Monday-first order, independent of mention order.
	loc := reEveryDayList.FindStringIndex(transcript)
	if loc == nil {
		return command.Entity{}, false
	}

	mentioned := make(map[time.Weekday]bool)
	for _, m := range reAnyWeekday.FindAllStringSubmatch(transcript[loc[0]:loc[1]], -1) {
		mentioned[weekdays[strings.ToLower(m[1])]] = true
	}

	codes := make([]string, 0, len(mentioned))
	for _, d := range canonicalDays {
		if mentioned[d] {
			codes = append(codes, byDayCodes[d])
		}
	}
	return recurrenceEntity(transcript[loc[0]:loc[1]], "FREQ=WEEKLY;BYDAY="+strings.Join(codes, ",")), true
}

func recurrenceEntity(raw, normalized string) command.Entity {
	return command.Entity{
		Type:       command.EntityRecurrence,
		Value:      raw,
		Normalized: normalized,
		Confidence: confRecurrence,
	}
}
