package executor

import (
	"context"
	"strings"
	"time"

	"github.com/parlando-app/parlando/internal/command"
	"github.com/parlando-app/parlando/internal/domain"
)

// FieldSpec declares one domain field of an intent handler: the field name
// passed to the workspace, the entity type that fills it, and an optional
// default applied when no matching entity was extracted. A nil Default makes
// the field optional; it is simply omitted when absent.
type FieldSpec struct {
	Name    string
	Source  command.EntityType
	Default func(cmd command.ParsedCommand, ref time.Time) string
}

// createFunc is the single workspace call an intent handler makes.
type createFunc func(ctx context.Context, ws domain.Workspace, fields domain.Fields) (string, error)

// Handler binds an intent to its created item kind, declared fields, and
// workspace call.
type Handler struct {
	Kind   domain.ItemKind
	Fields []FieldSpec
	Create createFunc
}

// Registry maps intent types to their handlers. Intents without an entry
// (update, delete, query, unknown) produce a structured not-implemented
// result instead of a silent guess.
type Registry map[command.IntentType]Handler

// Default-value helpers shared by the built-in handlers.

func defaultTranscript(cmd command.ParsedCommand, _ time.Time) string {
	return strings.TrimSpace(cmd.Transcript)
}

func defaultReferenceDate(_ command.ParsedCommand, ref time.Time) string {
	return ref.Format("2006-01-02")
}

func defaultLiteral(v string) func(command.ParsedCommand, time.Time) string {
	return func(command.ParsedCommand, time.Time) string { return v }
}

// DefaultRegistry returns the built-in handler set covering every creatable
// intent. Title defaults to the raw transcript, date to the reference date,
// priority to medium. Recurrence and attendees never default; their absence
// means one-time respectively nobody invited.
func DefaultRegistry() Registry {
	title := FieldSpec{Name: "title", Source: command.EntityTitle, Default: defaultTranscript}
	date := FieldSpec{Name: "date", Source: command.EntityDate, Default: defaultReferenceDate}
	clock := FieldSpec{Name: "time", Source: command.EntityTime}
	priority := FieldSpec{Name: "priority", Source: command.EntityPriority, Default: defaultLiteral("medium")}
	tags := FieldSpec{Name: "tags", Source: command.EntityTag}
	recurrence := FieldSpec{Name: "recurrence", Source: command.EntityRecurrence}
	attendees := FieldSpec{Name: "attendees", Source: command.EntityPerson}
	location := FieldSpec{Name: "location", Source: command.EntityLocation}

	return Registry{
		command.IntentCreateTask: {
			Kind:   domain.KindTask,
			Fields: []FieldSpec{title, date, clock, priority, tags, recurrence},
			Create: func(ctx context.Context, ws domain.Workspace, f domain.Fields) (string, error) {
				return ws.AddTask(ctx, f)
			},
		},
		command.IntentCreateEvent: {
			Kind:   domain.KindEvent,
			Fields: []FieldSpec{title, date, clock, attendees, location, recurrence, tags},
			Create: func(ctx context.Context, ws domain.Workspace, f domain.Fields) (string, error) {
				return ws.AddEvent(ctx, f)
			},
		},
		command.IntentCreateTodo: {
			Kind:   domain.KindTodo,
			Fields: []FieldSpec{title, priority, tags},
			Create: func(ctx context.Context, ws domain.Workspace, f domain.Fields) (string, error) {
				return ws.CreateTodoItem(ctx, f)
			},
		},
		command.IntentCreateJournal: {
			Kind: domain.KindJournal,
			Fields: []FieldSpec{
				{Name: "content", Source: command.EntityDesc, Default: defaultTranscript},
				date,
				tags,
			},
			Create: func(ctx context.Context, ws domain.Workspace, f domain.Fields) (string, error) {
				return ws.SaveJournalEntry(ctx, f)
			},
		},
		command.IntentCreateRoutine: {
			Kind:   domain.KindRoutine,
			Fields: []FieldSpec{title, clock, recurrence},
			Create: func(ctx context.Context, ws domain.Workspace, f domain.Fields) (string, error) {
				return ws.AddRoutine(ctx, f)
			},
		},
		command.IntentCreateMilestone: {
			Kind:   domain.KindMilestone,
			Fields: []FieldSpec{title, date},
			Create: func(ctx context.Context, ws domain.Workspace, f domain.Fields) (string, error) {
				return ws.AddMilestone(ctx, f)
			},
		},
		command.IntentCreateResolution: {
			Kind:   domain.KindResolution,
			Fields: []FieldSpec{title},
			Create: func(ctx context.Context, ws domain.Workspace, f domain.Fields) (string, error) {
				return ws.AddResolution(ctx, f)
			},
		},
		command.IntentCreatePinnedEvent: {
			Kind:   domain.KindPinnedEvent,
			Fields: []FieldSpec{title, date, clock},
			Create: func(ctx context.Context, ws domain.Workspace, f domain.Fields) (string, error) {
				return ws.PinEvent(ctx, f)
			},
		},
		command.IntentCreateItem: {
			Kind: domain.KindItem,
			Fields: []FieldSpec{
				title,
				{Name: "description", Source: command.EntityDesc},
				{Name: "quantity", Source: command.EntityQuantity},
			},
			Create: func(ctx context.Context, ws domain.Workspace, f domain.Fields) (string, error) {
				return ws.AddItem(ctx, f)
			},
		},
	}
}
