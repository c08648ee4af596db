// Package command defines the shared value types of the Parlando voice
// command core: extracted entities, intent classifications, parsed commands,
// execution results, and the persisted command log record.
//
// All types here are plain data. The algorithms that produce them live in
// internal/intent, internal/extract, internal/parse, and internal/executor.
package command

import "time"

// EntityType classifies a fragment extracted from a transcript.
type EntityType string

const (
	EntityTitle      EntityType = "title"
	EntityDate       EntityType = "date"
	EntityTime       EntityType = "time"
	EntityPriority   EntityType = "priority"
	EntityTag        EntityType = "tag"
	EntityRecurrence EntityType = "recurrence"
	EntityPerson     EntityType = "person"
	EntityLocation   EntityType = "location"
	EntityDesc       EntityType = "description"
	EntityQuantity   EntityType = "quantity"
)

// IsValid reports whether t is a recognised entity type.
func (t EntityType) IsValid() bool {
	switch t {
	case EntityTitle, EntityDate, EntityTime, EntityPriority, EntityTag,
		EntityRecurrence, EntityPerson, EntityLocation, EntityDesc, EntityQuantity:
		return true
	}
	return false
}

// Entity is a typed, confidence-scored fragment extracted from a transcript.
//
// Value holds the raw matched text; Normalized holds the canonical
// machine-usable form (ISO date, 24h time, RRULE-like recurrence string).
// For multi-valued entities (attendee lists) Parts carries the ordered
// values and Normalized is their comma-joined rendering.
type Entity struct {
	Type       EntityType `json:"type"`
	Value      string     `json:"value"`
	Normalized string     `json:"normalized"`
	Confidence float64    `json:"confidence"`
	Parts      []string   `json:"parts,omitempty"`
}

// IntentType is the closed set of action categories a transcript can be
// classified into.
type IntentType string

const (
	IntentCreateTask        IntentType = "create_task"
	IntentCreateEvent       IntentType = "create_event"
	IntentCreateTodo        IntentType = "create_todo"
	IntentCreateJournal     IntentType = "create_journal"
	IntentCreateRoutine     IntentType = "create_routine"
	IntentCreateMilestone   IntentType = "create_milestone"
	IntentCreateResolution  IntentType = "create_resolution"
	IntentCreatePinnedEvent IntentType = "create_pinned_event"
	IntentCreateItem        IntentType = "create_item"
	IntentUpdate            IntentType = "update"
	IntentDelete            IntentType = "delete"
	IntentQuery             IntentType = "query"
	IntentUnknown           IntentType = "unknown"
)

// Intents lists all classifiable intent types in canonical enumeration
// order. Tie-breaking in the classifier is stable with respect to this
// order, so it must not be reordered.
var Intents = []IntentType{
	IntentCreateTask,
	IntentCreateEvent,
	IntentCreateTodo,
	IntentCreateJournal,
	IntentCreateRoutine,
	IntentCreateMilestone,
	IntentCreateResolution,
	IntentCreatePinnedEvent,
	IntentCreateItem,
	IntentUpdate,
	IntentDelete,
	IntentQuery,
}

// IsValid reports whether t is a recognised intent type.
func (t IntentType) IsValid() bool {
	if t == IntentUnknown {
		return true
	}
	for _, known := range Intents {
		if t == known {
			return true
		}
	}
	return false
}

// ClassificationMethod records how an intent classification was produced.
type ClassificationMethod string

const (
	// MethodRules marks a classification produced by the deterministic
	// trigger-phrase matcher.
	MethodRules ClassificationMethod = "rules"

	// MethodLearned marks a classification assisted by a learned pattern.
	MethodLearned ClassificationMethod = "learned"
)

// Classification is the result of classifying a transcript against the
// intent vocabulary.
type Classification struct {
	Type       IntentType           `json:"type"`
	Confidence float64              `json:"confidence"`
	Method     ClassificationMethod `json:"method"`
}

// ParsedCommand is the immutable result of one listening cycle: the raw
// transcript together with its classified intent, extracted entities, and
// fused overall confidence. Re-parsing a transcript produces a new instance;
// a ParsedCommand is never mutated in place.
type ParsedCommand struct {
	Transcript string         `json:"transcript"`
	Intent     Classification `json:"intent"`
	Entities   []Entity       `json:"entities"`
	// Overall is the fused confidence across intent, entities, and capture.
	// Always within [0.1, 1.0].
	Overall   float64   `json:"overall_confidence"`
	Timestamp time.Time `json:"timestamp"`
}

// EntitiesOfType returns all entities of the given type in insertion order.
func (c ParsedCommand) EntitiesOfType(t EntityType) []Entity {
	var out []Entity
	for _, e := range c.Entities {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// FirstEntity returns the first entity of the given type, if any.
func (c ParsedCommand) FirstEntity(t EntityType) (Entity, bool) {
	for _, e := range c.Entities {
		if e.Type == t {
			return e, true
		}
	}
	return Entity{}, false
}

// FieldValue is one resolved field of an executed command together with its
// provenance: whether the value came from an extracted entity or from the
// executor's default table.
type FieldValue struct {
	Value     string `json:"value"`
	IsDefault bool   `json:"is_default"`
}

// ExecutionResult is returned by the executor for every execution attempt.
//
// Fields contains one FieldValue per resolved field of the intent's handler,
// whether extracted or defaulted, so a confirmation UI can show what was
// inferred versus assumed. Declared fields with neither an extracted entity
// nor a default (recurrence, attendees) are omitted.
type ExecutionResult struct {
	Success        bool                  `json:"success"`
	CreatedID      string                `json:"created_id,omitempty"`
	CreatedKind    string                `json:"created_kind,omitempty"`
	Fields         map[string]FieldValue `json:"extracted_fields"`
	Err            string                `json:"error,omitempty"`
	NeedsUserInput bool                  `json:"needs_user_input"`
}
