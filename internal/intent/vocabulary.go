package intent

import "github.com/parlando-app/parlando/internal/command"

// Vocabulary maps each intent to its trigger phrases. Triggers are matched
// as case-insensitive substrings of the transcript.
//
// A Vocabulary is treated as immutable after construction; classifiers never
// modify it, so a single instance can be shared freely.
type Vocabulary map[command.IntentType][]string

// DefaultVocabulary returns the built-in English trigger vocabulary.
//
// Each intent keeps its trigger list short (well under ten phrases) so that
// a single trigger hit already lifts the confidence above the UNKNOWN floor:
// confidence is score/len(triggers) + 0.2, and 1/n + 0.2 > 0.3 holds for
// every n < 10.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		command.IntentCreateTask: {
			"create a task", "create task", "add a task", "add task",
			"new task", "remind me to",
		},
		command.IntentCreateEvent: {
			"schedule", "create an event", "create event", "add event",
			"meeting", "appointment",
		},
		command.IntentCreateTodo: {
			"to-do", "todo", "to do list", "add to my list",
		},
		command.IntentCreateJournal: {
			"journal", "diary", "log my day",
		},
		command.IntentCreateRoutine: {
			"routine", "habit",
		},
		command.IntentCreateMilestone: {
			"milestone", "track my goal",
		},
		command.IntentCreateResolution: {
			"resolution", "resolve to",
		},
		command.IntentCreatePinnedEvent: {
			"pin the", "pinned event", "countdown",
		},
		command.IntentCreateItem: {
			"add an item", "add item", "new item",
		},
		command.IntentUpdate: {
			"update", "change the", "modify", "reschedule", "rename",
		},
		command.IntentDelete: {
			"delete", "remove the", "clear my",
		},
		command.IntentQuery: {
			"what is", "what are", "when is", "show me", "list my", "how many",
		},
	}
}
