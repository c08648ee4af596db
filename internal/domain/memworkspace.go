package domain

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Compile-time interface checks.
var (
	_ Workspace = (*MemWorkspace)(nil)
	_ Deleter   = (*MemWorkspace)(nil)
)

// Item is one record held by [MemWorkspace].
type Item struct {
	Ref    ItemRef
	Fields Fields
}

// MemWorkspace is a thread-safe in-memory [Workspace] and [Deleter].
// It backs the CLI's local mode and the test suites; a real deployment
// substitutes the application's persistent collaborators.
type MemWorkspace struct {
	mu    sync.RWMutex
	items map[ItemRef]Item
}

// NewMemWorkspace returns an initialised [MemWorkspace].
func NewMemWorkspace() *MemWorkspace {
	return &MemWorkspace{items: make(map[ItemRef]Item)}
}

func (w *MemWorkspace) create(kind ItemKind, fields Fields) (string, error) {
	id := uuid.NewString()
	ref := ItemRef{Kind: kind, ID: id}

	copied := make(Fields, len(fields))
	for k, v := range fields {
		copied[k] = v
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.items[ref] = Item{Ref: ref, Fields: copied}
	return id, nil
}

// AddTask implements [Workspace.AddTask].
func (w *MemWorkspace) AddTask(ctx context.Context, fields Fields) (string, error) {
	return w.create(KindTask, fields)
}

// AddEvent implements [Workspace.AddEvent].
func (w *MemWorkspace) AddEvent(ctx context.Context, fields Fields) (string, error) {
	return w.create(KindEvent, fields)
}

// CreateTodoItem implements [Workspace.CreateTodoItem].
func (w *MemWorkspace) CreateTodoItem(ctx context.Context, fields Fields) (string, error) {
	return w.create(KindTodo, fields)
}

// SaveJournalEntry implements [Workspace.SaveJournalEntry].
func (w *MemWorkspace) SaveJournalEntry(ctx context.Context, fields Fields) (string, error) {
	return w.create(KindJournal, fields)
}

// AddRoutine implements [Workspace.AddRoutine].
func (w *MemWorkspace) AddRoutine(ctx context.Context, fields Fields) (string, error) {
	return w.create(KindRoutine, fields)
}

// AddMilestone implements [Workspace.AddMilestone].
func (w *MemWorkspace) AddMilestone(ctx context.Context, fields Fields) (string, error) {
	return w.create(KindMilestone, fields)
}

// AddResolution implements [Workspace.AddResolution].
func (w *MemWorkspace) AddResolution(ctx context.Context, fields Fields) (string, error) {
	return w.create(KindResolution, fields)
}

// PinEvent implements [Workspace.PinEvent].
func (w *MemWorkspace) PinEvent(ctx context.Context, fields Fields) (string, error) {
	return w.create(KindPinnedEvent, fields)
}

// AddItem implements [Workspace.AddItem].
func (w *MemWorkspace) AddItem(ctx context.Context, fields Fields) (string, error) {
	return w.create(KindItem, fields)
}

// Delete implements [Deleter.Delete].
func (w *MemWorkspace) Delete(ctx context.Context, ref ItemRef) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.items[ref]; !ok {
		return ErrNotFound
	}
	delete(w.items, ref)
	return nil
}

// Get returns the stored item for ref, if present. Intended for tests.
func (w *MemWorkspace) Get(ref ItemRef) (Item, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	item, ok := w.items[ref]
	return item, ok
}

// Len returns the number of stored items. Intended for tests.
func (w *MemWorkspace) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.items)
}
