package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/parlando-app/parlando/internal/command"
)

var (
	// reClock matches "5pm", "5:30 pm", "10am", and bare 24-hour "17:45".
	// The meridiem group is empty for the 24-hour form.
	reClock = regexp.MustCompile(`(?i)\b(\d{1,2})(?::([0-5]\d))?\s*(am|pm)\b|\b([01]?\d|2[0-3]):([0-5]\d)\b`)

	reEndOfDay = regexp.MustCompile(`(?i)\bend\s+of\s+(?:the\s+)?day\b`)
	reNoon     = regexp.MustCompile(`(?i)\bnoon\b`)
	reMidnight = regexp.MustCompile(`(?i)\bmidnight\b`)
)

// extractTime finds the first time expression in transcript and normalizes
// it to 24-hour HH:MM. At most one TIME entity is emitted.
func extractTime(transcript string) (command.Entity, bool) {
	if m := reClock.FindStringSubmatch(transcript); m != nil {
		var hour, minute int
		if m[3] != "" {
			// 12-hour clock with meridiem.
			hour, _ = strconv.Atoi(m[1])
			if m[2] != "" {
				minute, _ = strconv.Atoi(m[2])
			}
			if hour < 1 || hour > 12 {
				return command.Entity{}, false
			}
			switch strings.ToLower(m[3]) {
			case "am":
				if hour == 12 {
					hour = 0
				}
			case "pm":
				if hour < 12 {
					hour += 12
				}
			}
		} else {
			hour, _ = strconv.Atoi(m[4])
			minute, _ = strconv.Atoi(m[5])
		}
		return timeEntity(m[0], hour, minute, confTime), true
	}

	if m := reNoon.FindString(transcript); m != "" {
		return timeEntity(m, 12, 0, confTimeLiteral), true
	}
	if m := reMidnight.FindString(transcript); m != "" {
		return timeEntity(m, 0, 0, confTimeLiteral), true
	}
	if m := reEndOfDay.FindString(transcript); m != "" {
		return timeEntity(m, 17, 0, confTimeLiteral), true
	}
	return command.Entity{}, false
}

func timeEntity(raw string, hour, minute int, confidence float64) command.Entity {
	return command.Entity{
		Type:       command.EntityTime,
		Value:      raw,
		Normalized: fmt.Sprintf("%02d:%02d", hour, minute),
		Confidence: confidence,
	}
}
