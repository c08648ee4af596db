// Package domain declares the contracts between the command executor and the
// application's item-creation collaborators.
//
// The executor calls exactly one creation method per confirmed command and
// the undo ledger calls [Deleter.Delete] to reverse it. The persistence
// behind these calls is owned by the embedding application; this package
// only fixes the call contract (flat field map in, created ID or error out)
// and the closed set of creatable item kinds.
package domain

import (
	"context"
	"errors"
)

// ErrNotFound is returned by [Deleter.Delete] when the referenced item does
// not exist (any more).
var ErrNotFound = errors.New("domain: item not found")

// ItemKind is the closed set of item kinds the executor can create.
type ItemKind string

const (
	KindTask        ItemKind = "task"
	KindEvent       ItemKind = "event"
	KindTodo        ItemKind = "todo"
	KindJournal     ItemKind = "journal"
	KindRoutine     ItemKind = "routine"
	KindMilestone   ItemKind = "milestone"
	KindResolution  ItemKind = "resolution"
	KindPinnedEvent ItemKind = "pinned_event"
	KindItem        ItemKind = "item"
)

// IsValid reports whether k is a recognised item kind.
func (k ItemKind) IsValid() bool {
	switch k {
	case KindTask, KindEvent, KindTodo, KindJournal, KindRoutine,
		KindMilestone, KindResolution, KindPinnedEvent, KindItem:
		return true
	}
	return false
}

// ItemRef is a tagged reference to a created item. Using a closed ItemKind
// instead of a free-form collection name prevents misspelled or invalid
// references from reaching the delete path.
type ItemRef struct {
	Kind ItemKind `json:"kind"`
	ID   string   `json:"id"`
}

// IsZero reports whether the reference is empty.
func (r ItemRef) IsZero() bool { return r.Kind == "" && r.ID == "" }

// Fields is the flat field map passed to every creation call. Keys are the
// field names declared by the executor's registry (title, date, time,
// priority, recurrence, tags, attendees, ...).
type Fields map[string]string

// Workspace is the set of item-creation collaborators, one per creatable
// intent. Each call persists a single item and returns its ID.
//
// Implementations must be safe for concurrent use.
type Workspace interface {
	AddTask(ctx context.Context, fields Fields) (string, error)
	AddEvent(ctx context.Context, fields Fields) (string, error)
	CreateTodoItem(ctx context.Context, fields Fields) (string, error)
	SaveJournalEntry(ctx context.Context, fields Fields) (string, error)
	AddRoutine(ctx context.Context, fields Fields) (string, error)
	AddMilestone(ctx context.Context, fields Fields) (string, error)
	AddResolution(ctx context.Context, fields Fields) (string, error)
	PinEvent(ctx context.Context, fields Fields) (string, error)
	AddItem(ctx context.Context, fields Fields) (string, error)
}

// Deleter reverses a creation. Used only by the undo ledger.
type Deleter interface {
	// Delete removes the referenced item. Returns [ErrNotFound] when the
	// item does not exist; callers decide whether that is fatal.
	Delete(ctx context.Context, ref ItemRef) error
}
