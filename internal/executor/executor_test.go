package executor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/parlando-app/parlando/internal/command"
	"github.com/parlando-app/parlando/internal/domain"
	"github.com/parlando-app/parlando/internal/ledger"
)

func parsed(intent command.IntentType, transcript string, entities ...command.Entity) command.ParsedCommand {
	return command.ParsedCommand{
		Transcript: transcript,
		Intent:     command.Classification{Type: intent, Confidence: 0.9, Method: command.MethodRules},
		Entities:   entities,
		Overall:    0.8,
		Timestamp:  time.Date(2026, time.January, 30, 10, 0, 0, 0, time.UTC),
	}
}

func TestExecute_ExtractedFieldsWin(t *testing.T) {
	t.Parallel()

	ws := domain.NewMemWorkspace()
	ex := New(ws, nil)

	cmd := parsed(command.IntentCreateTask, "create a task to call mom at 5pm today",
		command.Entity{Type: command.EntityTitle, Value: "create a task to call mom at 5pm today", Normalized: "call mom", Confidence: 0.9},
		command.Entity{Type: command.EntityDate, Value: "today", Normalized: "2026-01-30", Confidence: 0.95},
		command.Entity{Type: command.EntityTime, Value: "5pm", Normalized: "17:00", Confidence: 0.9},
	)
	res := ex.Execute(context.Background(), "u1", cmd)
	if !res.Success {
		t.Fatalf("execute failed: %s", res.Err)
	}
	if res.CreatedKind != string(domain.KindTask) || res.CreatedID == "" {
		t.Errorf("created = %s/%s", res.CreatedKind, res.CreatedID)
	}

	for name, want := range map[string]string{
		"title": "call mom",
		"date":  "2026-01-30",
		"time":  "17:00",
	} {
		fv, ok := res.Fields[name]
		if !ok {
			t.Errorf("field %q missing", name)
			continue
		}
		if fv.IsDefault {
			t.Errorf("field %q marked default despite extracted entity", name)
		}
		if fv.Value != want {
			t.Errorf("field %q = %q, want %q", name, fv.Value, want)
		}
	}

	// Priority was not extracted, so the default applies and is flagged.
	if fv := res.Fields["priority"]; !fv.IsDefault || fv.Value != "medium" {
		t.Errorf("priority = %+v, want default medium", fv)
	}

	// Recurrence has no default and no entity; it must be absent.
	if _, ok := res.Fields["recurrence"]; ok {
		t.Error("recurrence should be omitted when absent")
	}

	item, ok := ws.Get(domain.ItemRef{Kind: domain.KindTask, ID: res.CreatedID})
	if !ok {
		t.Fatal("created task not in workspace")
	}
	if item.Fields["title"] != "call mom" {
		t.Errorf("workspace title = %q", item.Fields["title"])
	}
}

func TestExecute_DefaultTable(t *testing.T) {
	t.Parallel()

	ws := domain.NewMemWorkspace()
	ex := New(ws, nil)

	// No entities at all: title falls back to the transcript and date to
	// the command's reference date.
	cmd := parsed(command.IntentCreateTask, "do the thing")
	res := ex.Execute(context.Background(), "u1", cmd)
	if !res.Success {
		t.Fatalf("execute failed: %s", res.Err)
	}
	if fv := res.Fields["title"]; !fv.IsDefault || fv.Value != "do the thing" {
		t.Errorf("title = %+v, want defaulted transcript", fv)
	}
	if fv := res.Fields["date"]; !fv.IsDefault || fv.Value != "2026-01-30" {
		t.Errorf("date = %+v, want defaulted reference date", fv)
	}
}

func TestExecute_NotImplementedIntents(t *testing.T) {
	t.Parallel()

	ws := domain.NewMemWorkspace()
	ex := New(ws, nil)

	for _, intent := range []command.IntentType{
		command.IntentUpdate,
		command.IntentDelete,
		command.IntentQuery,
		command.IntentUnknown,
	} {
		res := ex.Execute(context.Background(), "u1", parsed(intent, "whatever"))
		if res.Success {
			t.Errorf("%s: expected failure", intent)
		}
		if !res.NeedsUserInput {
			t.Errorf("%s: expected NeedsUserInput", intent)
		}
		if !strings.Contains(res.Err, "not implemented") {
			t.Errorf("%s: err = %q", intent, res.Err)
		}
	}
	if ws.Len() != 0 {
		t.Errorf("workspace has %d items, want 0", ws.Len())
	}
}

func TestExecute_WritesSuccessLog(t *testing.T) {
	t.Parallel()

	ws := domain.NewMemWorkspace()
	store := ledger.NewMemStore()
	ex := New(ws, store, WithRetention(30*24*time.Hour))

	cmd := parsed(command.IntentCreateEvent, "schedule sprint review tomorrow at 10am with Alice and Bob",
		command.Entity{Type: command.EntityTitle, Value: "…", Normalized: "sprint review", Confidence: 0.9},
		command.Entity{Type: command.EntityDate, Value: "tomorrow", Normalized: "2026-01-31", Confidence: 0.95},
		command.Entity{Type: command.EntityTime, Value: "10am", Normalized: "10:00", Confidence: 0.9},
		command.Entity{Type: command.EntityPerson, Value: "with Alice and Bob", Normalized: "Alice,Bob", Confidence: 0.85, Parts: []string{"Alice", "Bob"}},
		command.Entity{Type: command.EntityTag, Value: "meeting", Normalized: "work", Confidence: 0.8},
	)
	res := ex.Execute(context.Background(), "u1", cmd)
	if !res.Success {
		t.Fatalf("execute failed: %s", res.Err)
	}

	logs, err := store.List(context.Background(), ledger.Query{UserID: "u1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("got %d logs, want 1", len(logs))
	}
	log := logs[0]
	if log.Outcome != ledger.OutcomeSuccess {
		t.Errorf("outcome = %s", log.Outcome)
	}
	if log.CreatedItem.Kind != domain.KindEvent || log.CreatedItem.ID != res.CreatedID {
		t.Errorf("created item = %+v", log.CreatedItem)
	}
	if log.Title != "sprint review" || log.MemoDate != "2026-01-31" || log.MemoTime != "10:00" {
		t.Errorf("denormalised fields = %q %q %q", log.Title, log.MemoDate, log.MemoTime)
	}
	if len(log.Attendees) != 2 || log.Attendees[0] != "Alice" || log.Attendees[1] != "Bob" {
		t.Errorf("attendees = %v", log.Attendees)
	}
	if len(log.Tags) != 1 || log.Tags[0] != "work" {
		t.Errorf("tags = %v", log.Tags)
	}
	if log.ExpiresAt.IsZero() {
		t.Error("retention should set ExpiresAt")
	}
}

type failingWorkspace struct {
	domain.Workspace
}

func (failingWorkspace) AddTask(context.Context, domain.Fields) (string, error) {
	return "", errors.New("storage offline")
}

func TestExecute_DomainFailureLogsFailed(t *testing.T) {
	t.Parallel()

	store := ledger.NewMemStore()
	ex := New(failingWorkspace{domain.NewMemWorkspace()}, store)

	res := ex.Execute(context.Background(), "u1", parsed(command.IntentCreateTask, "do the thing"))
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Err, "storage offline") {
		t.Errorf("err = %q", res.Err)
	}
	// The resolved fields still travel with the failure so retry UIs can
	// show them.
	if _, ok := res.Fields["title"]; !ok {
		t.Error("fields missing from failure result")
	}

	logs, err := store.List(context.Background(), ledger.Query{Outcome: ledger.OutcomeFailed})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("got %d failed logs, want 1", len(logs))
	}
	if logs[0].FailureReason != "storage offline" {
		t.Errorf("failure reason = %q", logs[0].FailureReason)
	}
	if !logs[0].CreatedItem.IsZero() {
		t.Error("failed log must not reference a created item")
	}
}

type failingStore struct {
	ledger.Store
}

func (failingStore) Append(context.Context, ledger.Log) error {
	return errors.New("ledger offline")
}

func TestExecute_LedgerFailureSwallowed(t *testing.T) {
	t.Parallel()

	ws := domain.NewMemWorkspace()
	ex := New(ws, failingStore{ledger.NewMemStore()})

	res := ex.Execute(context.Background(), "u1", parsed(command.IntentCreateTask, "do the thing"))
	if !res.Success {
		t.Fatalf("ledger failure must not fail execution: %s", res.Err)
	}
	if ws.Len() != 1 {
		t.Errorf("workspace has %d items, want 1", ws.Len())
	}
}

func TestExecute_EveryCreatableIntentHasHandler(t *testing.T) {
	t.Parallel()

	reg := DefaultRegistry()
	for _, intent := range command.Intents {
		switch intent {
		case command.IntentUpdate, command.IntentDelete, command.IntentQuery:
			continue
		}
		h, ok := reg[intent]
		if !ok {
			t.Errorf("no handler for %s", intent)
			continue
		}
		if !h.Kind.IsValid() {
			t.Errorf("%s: invalid kind %q", intent, h.Kind)
		}
		if h.Create == nil || len(h.Fields) == 0 {
			t.Errorf("%s: incomplete handler", intent)
		}
	}
}
