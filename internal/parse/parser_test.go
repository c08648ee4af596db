package parse

import (
	"testing"
	"time"

	"github.com/parlando-app/parlando/internal/command"
	"github.com/parlando-app/parlando/internal/extract"
	"github.com/parlando-app/parlando/internal/intent"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestParser() *Parser {
	ref := time.Date(2026, time.January, 30, 12, 0, 0, 0, time.UTC)
	return New(intent.New(nil), extract.New(), WithClock(fixedClock(ref)))
}

func TestParse_TaskScenario(t *testing.T) {
	t.Parallel()

	p := newTestParser()
	cmd := p.Parse("Create a task to call mom at 5pm today", 0.92)

	if cmd.Intent.Type != command.IntentCreateTask {
		t.Errorf("intent = %s, want %s", cmd.Intent.Type, command.IntentCreateTask)
	}
	if date, ok := cmd.FirstEntity(command.EntityDate); !ok || date.Normalized != "2026-01-30" {
		t.Errorf("date = %+v, want 2026-01-30", date)
	}
	if clock, ok := cmd.FirstEntity(command.EntityTime); !ok || clock.Normalized != "17:00" {
		t.Errorf("time = %+v, want 17:00", clock)
	}
	title, ok := cmd.FirstEntity(command.EntityTitle)
	if !ok || title.Normalized != "call mom" {
		t.Errorf("title = %+v, want %q", title, "call mom")
	}
	if cmd.Overall < 0.1 || cmd.Overall > 1.0 {
		t.Errorf("overall = %v, out of [0.1, 1.0]", cmd.Overall)
	}
	if !cmd.Timestamp.Equal(time.Date(2026, time.January, 30, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("timestamp = %v, want injected clock value", cmd.Timestamp)
	}
}

func TestParse_RecurringEventScenario(t *testing.T) {
	t.Parallel()

	p := newTestParser()
	cmd := p.Parse("Create weekly standup meeting every Monday at 10am", 0.9)

	rec, ok := cmd.FirstEntity(command.EntityRecurrence)
	if !ok {
		t.Fatal("no recurrence entity")
	}
	if rec.Normalized != "FREQ=WEEKLY;BYDAY=MO" {
		t.Errorf("recurrence = %q, want FREQ=WEEKLY;BYDAY=MO", rec.Normalized)
	}
	if clock, ok := cmd.FirstEntity(command.EntityTime); !ok || clock.Normalized != "10:00" {
		t.Errorf("time = %+v, want 10:00", clock)
	}
}

func TestParse_UnknownScenario(t *testing.T) {
	t.Parallel()

	p := newTestParser()
	cmd := p.Parse("something something", 0.8)

	if cmd.Intent.Type != command.IntentUnknown {
		t.Errorf("intent = %s, want %s", cmd.Intent.Type, command.IntentUnknown)
	}
	if cmd.Intent.Confidence >= 0.5 {
		t.Errorf("intent confidence = %v, want < 0.5", cmd.Intent.Confidence)
	}
}

func TestParse_ProducesFreshInstances(t *testing.T) {
	t.Parallel()

	p := newTestParser()
	a := p.Parse("remind me to stretch tomorrow", 1)
	b := p.Parse("remind me to stretch tomorrow", 1)

	if len(a.Entities) != len(b.Entities) {
		t.Fatalf("entity counts differ: %d vs %d", len(a.Entities), len(b.Entities))
	}
	// Mutating one result must not affect the other.
	if len(a.Entities) > 0 {
		a.Entities[0].Normalized = "mutated"
		if b.Entities[0].Normalized == "mutated" {
			t.Error("parsed commands share entity backing storage")
		}
	}
}
