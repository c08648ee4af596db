package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/parlando-app/parlando/internal/domain"
)

func executedLog(t *testing.T, s Store, ws *domain.MemWorkspace) Log {
	t.Helper()
	ctx := context.Background()

	id, err := ws.AddTask(ctx, domain.Fields{"title": "call mom"})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	log := testLog("cmd-1", "u1", "remind me to call mom", OutcomeSuccess, time.Now())
	log.CreatedItem = domain.ItemRef{Kind: domain.KindTask, ID: id}
	if err := s.Append(ctx, log); err != nil {
		t.Fatalf("append: %v", err)
	}
	return log
}

func TestUndo_DeletesItemAndMarksUndone(t *testing.T) {
	t.Parallel()

	s := NewMemStore()
	ws := domain.NewMemWorkspace()
	log := executedLog(t, s, ws)
	ctx := context.Background()

	u := NewUndoer(s, ws)
	if err := u.Undo(ctx, log.ID); err != nil {
		t.Fatalf("undo: %v", err)
	}

	if _, ok := ws.Get(log.CreatedItem); ok {
		t.Error("created item should be deleted")
	}
	got, err := s.Get(ctx, log.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Outcome != OutcomeUndone {
		t.Errorf("outcome = %s, want %s", got.Outcome, OutcomeUndone)
	}

	trail, err := s.AuditTrail(ctx, log.ID)
	if err != nil {
		t.Fatalf("audit trail: %v", err)
	}
	if len(trail) != 1 || trail[0].Action != AuditActionUndo {
		t.Errorf("audit trail = %+v, want one undo entry", trail)
	}
	if trail[0].Item != log.CreatedItem {
		t.Errorf("audit item = %+v, want %+v", trail[0].Item, log.CreatedItem)
	}
}

func TestUndo_SecondCallIsNoOp(t *testing.T) {
	t.Parallel()

	s := NewMemStore()
	ws := domain.NewMemWorkspace()
	log := executedLog(t, s, ws)
	ctx := context.Background()

	u := NewUndoer(s, ws)
	if err := u.Undo(ctx, log.ID); err != nil {
		t.Fatalf("first undo: %v", err)
	}
	if err := u.Undo(ctx, log.ID); err != nil {
		t.Fatalf("second undo must not fail: %v", err)
	}

	// The no-op must not append a second audit entry.
	trail, err := s.AuditTrail(ctx, log.ID)
	if err != nil {
		t.Fatalf("audit trail: %v", err)
	}
	if len(trail) != 1 {
		t.Errorf("audit trail has %d entries, want 1", len(trail))
	}
}

func TestUndo_MissingItemTolerated(t *testing.T) {
	t.Parallel()

	s := NewMemStore()
	ws := domain.NewMemWorkspace()
	log := executedLog(t, s, ws)
	ctx := context.Background()

	// Someone deleted the item out of band.
	if err := ws.Delete(ctx, log.CreatedItem); err != nil {
		t.Fatalf("delete: %v", err)
	}

	u := NewUndoer(s, ws)
	if err := u.Undo(ctx, log.ID); err != nil {
		t.Fatalf("undo of already-missing item must succeed: %v", err)
	}
	got, _ := s.Get(ctx, log.ID)
	if got.Outcome != OutcomeUndone {
		t.Errorf("outcome = %s, want %s", got.Outcome, OutcomeUndone)
	}
}

func TestUndo_NothingToUndo(t *testing.T) {
	t.Parallel()

	s := NewMemStore()
	ws := domain.NewMemWorkspace()
	ctx := context.Background()

	// A failed command never created anything.
	if err := s.Append(ctx, testLog("failed", "u", "x", OutcomeFailed, time.Now())); err != nil {
		t.Fatalf("append: %v", err)
	}

	u := NewUndoer(s, ws)
	err := u.Undo(ctx, "failed")
	if !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("undo = %v, want ErrNothingToUndo", err)
	}
}

func TestUndo_UnknownCommand(t *testing.T) {
	t.Parallel()

	u := NewUndoer(NewMemStore(), domain.NewMemWorkspace())
	if err := u.Undo(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("undo = %v, want ErrNotFound", err)
	}
}
