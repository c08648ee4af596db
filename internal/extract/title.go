package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/parlando-app/parlando/internal/command"
)

// stopPhrase is one compiled removal pattern for the title pass.
type stopPhrase struct {
	re *regexp.Regexp
}

// defaultStopPhrases lists the trigger and command phrases the title pass
// strips before the structural patterns (dates, times, recurrence,
// priorities, tags) are removed. Longer phrases are applied first so that
// "create a task" wins over "create".
func defaultStopPhrases() []string {
	return []string{
		// Intent triggers.
		"create a task", "create task", "add a task", "add task", "new task",
		"remind me to",
		"create an event", "create event", "add event", "schedule",
		"appointment",
		"to do list", "add to my list", "to-do", "todo",
		"log my day", "journal entry", "journal", "diary",
		"routine", "habit",
		"milestone", "track my goal",
		"resolution", "resolve to",
		"pinned event", "countdown", "pin the",
		"add an item", "add item", "new item",
		// Command verbs and politeness fillers.
		"can you", "could you", "please", "i want to", "i need to",
		"set up", "create", "add", "make", "start a", "new",
	}
}

// compileStopPhrases builds case-insensitive whole-phrase matchers, longest
// phrase first.
func compileStopPhrases(phrases []string) []stopPhrase {
	sorted := make([]string, len(phrases))
	copy(sorted, phrases)
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	out := make([]stopPhrase, 0, len(sorted))
	for _, p := range sorted {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(p) + `\b`)
		out = append(out, stopPhrase{re: re})
	}
	return out
}

// titleFillers are standalone words removed wherever they occur once the
// phrase-level patterns are gone.
var titleFillers = regexp.MustCompile(`(?i)\b(?:at|on|in|today|tomorrow|yesterday|next)\b`)

// titleTrim removes leading/trailing connector words left dangling after
// the structural removals.
var titleTrim = regexp.MustCompile(`(?i)^(?:\s*(?:to|a|an|the|my|for|and)\b)+|(?:\b(?:to|a|an|the|my|for|and)\s*)+$`)

var whitespaceRun = regexp.MustCompile(`\s+`)

// extractTitle strips trigger phrases, structural expressions, and filler
// words from the transcript and emits whatever meaningful text remains as a
// best-effort TITLE entity. This is deliberately not a noun-phrase parse.
func (e *Extractor) extractTitle(transcript string) (command.Entity, bool) {
	s := transcript

	for _, p := range e.titleStrip {
		s = p.re.ReplaceAllString(s, " ")
	}

	// Structural expressions recognised by the other passes.
	s = reDaily.ReplaceAllString(s, " ")
	s = reWeekdays.ReplaceAllString(s, " ")
	s = reEveryDayList.ReplaceAllString(s, " ")
	s = reNextWeek.ReplaceAllString(s, " ")
	s = reNextMonthDay.ReplaceAllString(s, " ")
	s = reDayOfMonth.ReplaceAllString(s, " ")
	s = reMonthDay.ReplaceAllString(s, " ")
	s = reQuarterEnd.ReplaceAllString(s, " ")
	s = reWeekday.ReplaceAllString(s, " ")
	s = reClock.ReplaceAllString(s, " ")
	s = reNoon.ReplaceAllString(s, " ")
	s = reMidnight.ReplaceAllString(s, " ")
	s = reEndOfDay.ReplaceAllString(s, " ")
	s = rePriorityPhrase.ReplaceAllString(s, " ")
	s = reHashTag.ReplaceAllString(s, " ")

	s = titleFillers.ReplaceAllString(s, " ")
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = titleTrim.ReplaceAllString(s, "")
	s = strings.Trim(s, " ,.!?")

	if s == "" {
		return command.Entity{}, false
	}
	return command.Entity{
		Type:       command.EntityTitle,
		Value:      transcript,
		Normalized: s,
		Confidence: confTitle,
	}, true
}
