package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/parlando-app/parlando/internal/command"
)

// isoDate is the canonical normalized date layout.
const isoDate = "2006-01-02"

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var months = map[string]time.Month{
	"january":   time.January,
	"february":  time.February,
	"march":     time.March,
	"april":     time.April,
	"may":       time.May,
	"june":      time.June,
	"july":      time.July,
	"august":    time.August,
	"september": time.September,
	"october":   time.October,
	"november":  time.November,
	"december":  time.December,
}

const (
	weekdayAlt = `monday|tuesday|wednesday|thursday|friday|saturday|sunday`
	monthAlt   = `january|february|march|april|may|june|july|august|september|october|november|december`
)

var (
	reToday     = regexp.MustCompile(`(?i)\btoday\b`)
	reTomorrow  = regexp.MustCompile(`(?i)\btomorrow\b`)
	reYesterday = regexp.MustCompile(`(?i)\byesterday\b`)
	reNextWeek  = regexp.MustCompile(`(?i)\bnext\s+week\b`)

	// Captures an optional "next"/"every" qualifier so recurrence mentions
	// ("every monday") can be left to the recurrence pass.
	reWeekday = regexp.MustCompile(`(?i)\b(?:(next|every)\s+)?(` + weekdayAlt + `)\b`)

	reNextMonthDay = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+of\s+next\s+month\b`)
	reDayOfMonth   = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(` + monthAlt + `)\b`)
	reMonthDay     = regexp.MustCompile(`(?i)\b(` + monthAlt + `)\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	reQuarterEnd   = regexp.MustCompile(`(?i)\bend\s+of\s+q([1-4])(?:\s+(\d{4}))?\b`)
)

// extractDate runs the date keyword ladder over transcript; the first rung
// that matches wins and at most one DATE entity is emitted.
func extractDate(transcript string, ref time.Time) (command.Entity, bool) {
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())

	if m := reToday.FindString(transcript); m != "" {
		return entityAt(m, day, confDateLiteral), true
	}
	if m := reTomorrow.FindString(transcript); m != "" {
		return entityAt(m, day.AddDate(0, 0, 1), confDateLiteral), true
	}
	if m := reYesterday.FindString(transcript); m != "" {
		return entityAt(m, day.AddDate(0, 0, -1), confDateLiteral), true
	}

	// Weekday mentions. "next monday" resolves to the strictly-future
	// occurrence; a bare weekday stays a literal day name. Weekdays behind
	// "every" belong to the recurrence pass and are skipped.
	for _, m := range reWeekday.FindAllStringSubmatch(transcript, -1) {
		qualifier := strings.ToLower(m[1])
		name := strings.ToLower(m[2])
		switch qualifier {
		case "every":
			continue
		case "next":
			target := nextWeekday(day, weekdays[name])
			return entityAt(m[0], target, confDateResolved), true
		default:
			return command.Entity{
				Type:       command.EntityDate,
				Value:      m[0],
				Normalized: capitalize(name),
				Confidence: confDateWeekday,
			}, true
		}
	}

	if m := reNextWeek.FindString(transcript); m != "" {
		return entityAt(m, day.AddDate(0, 0, 7), confDateResolved), true
	}

	if m := reNextMonthDay.FindStringSubmatch(transcript); m != nil {
		d, _ := strconv.Atoi(m[1])
		first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location()).AddDate(0, 1, 0)
		target := time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, day.Location())
		return entityAt(m[0], target, confDatePattern), true
	}

	if m := reDayOfMonth.FindStringSubmatch(transcript); m != nil {
		d, _ := strconv.Atoi(m[1])
		return entityAt(m[0], monthDay(day, months[strings.ToLower(m[2])], d), confDatePattern), true
	}

	if m := reMonthDay.FindStringSubmatch(transcript); m != nil {
		d, _ := strconv.Atoi(m[2])
		return entityAt(m[0], monthDay(day, months[strings.ToLower(m[1])], d), confDatePattern), true
	}

	if m := reQuarterEnd.FindStringSubmatch(transcript); m != nil {
		q, _ := strconv.Atoi(m[1])
		year := day.Year()
		explicitYear := m[2] != ""
		if explicitYear {
			year, _ = strconv.Atoi(m[2])
		}
		target := quarterEnd(year, q, day.Location())
		if !explicitYear && target.Before(day) {
			target = quarterEnd(year+1, q, day.Location())
		}
		return entityAt(m[0], target, confDatePattern), true
	}

	return command.Entity{}, false
}

// nextWeekday returns the first occurrence of target strictly after from.
// When from already falls on target, a full week is added: "next" always
// means strictly future.
func nextWeekday(from time.Time, target time.Weekday) time.Time {
	days := (int(target) - int(from.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return from.AddDate(0, 0, days)
}

// monthDay resolves a month/day pair within the reference year, rolling
// forward to the next year when the date has already passed.
func monthDay(ref time.Time, m time.Month, d int) time.Time {
	target := time.Date(ref.Year(), m, d, 0, 0, 0, 0, ref.Location())
	if target.Before(ref) {
		target = target.AddDate(1, 0, 0)
	}
	return target
}

// quarterEnd returns the last calendar day of quarter q in year.
func quarterEnd(year, q int, loc *time.Location) time.Time {
	// First day of the following quarter, minus one day.
	var firstOfNext time.Time
	if q == 4 {
		firstOfNext = time.Date(year+1, time.January, 1, 0, 0, 0, 0, loc)
	} else {
		firstOfNext = time.Date(year, time.Month(q*3+1), 1, 0, 0, 0, 0, loc)
	}
	return firstOfNext.AddDate(0, 0, -1)
}

// capitalize upper-cases the first byte of an ASCII word.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func entityAt(raw string, t time.Time, confidence float64) command.Entity {
	return command.Entity{
		Type:       command.EntityDate,
		Value:      raw,
		Normalized: t.Format(isoDate),
		Confidence: confidence,
	}
}
