package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parlando-app/parlando/internal/command"
	"github.com/parlando-app/parlando/internal/domain"
	"github.com/parlando-app/parlando/internal/ledger"
	"github.com/parlando-app/parlando/internal/ledger/postgres"
)

// testDSN returns the test database DSN from the environment, or skips the
// test if PARLANDO_TEST_POSTGRES_DSN is not set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("PARLANDO_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PARLANDO_TEST_POSTGRES_DSN not set — skipping PostgreSQL integration tests")
	}
	return dsn
}

// newTestStore creates a fresh [postgres.Store] with a clean schema.
func newTestStore(t *testing.T, opts ...postgres.Option) *postgres.Store {
	t.Helper()
	dsn := testDSN(t)
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(pool.Close)
	for _, stmt := range []string{
		"DROP TABLE IF EXISTS audit_entries",
		"DROP TABLE IF EXISTS command_logs",
	} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("drop schema: %v", err)
		}
	}

	store, err := postgres.NewStore(ctx, dsn, opts...)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func sampleLog(userID, transcript string) ledger.Log {
	return ledger.Log{
		ID:               uuid.NewString(),
		UserID:           userID,
		Transcript:       transcript,
		Language:         "en",
		IntentType:       command.IntentCreateTask,
		IntentConfidence: 0.9,
		Entities: []command.Entity{
			{Type: command.EntityTitle, Value: "call mom", Normalized: "call mom", Confidence: 0.8},
		},
		Overall:   0.85,
		Title:     "call mom",
		Priority:  "medium",
		Outcome:   ledger.OutcomeSuccess,
		CreatedItem: domain.ItemRef{Kind: domain.KindTask, ID: uuid.NewString()},
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestStore_AppendGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := sampleLog("alice", "remind me to call mom at 5pm")
	if err := store.Append(ctx, want); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := store.Get(ctx, want.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Transcript != want.Transcript {
		t.Errorf("transcript = %q, want %q", got.Transcript, want.Transcript)
	}
	if got.IntentType != command.IntentCreateTask {
		t.Errorf("intent = %q, want create_task", got.IntentType)
	}
	if len(got.Entities) != 1 || got.Entities[0].Type != command.EntityTitle {
		t.Errorf("entities = %+v, want one title entity", got.Entities)
	}
	if got.CreatedItem != want.CreatedItem {
		t.Errorf("created item = %+v, want %+v", got.CreatedItem, want.CreatedItem)
	}
}

func TestStore_TranscriptStoredEncoded(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	l := sampleLog("alice", "buy a birthday present for dad")
	if err := store.Append(ctx, l); err != nil {
		t.Fatalf("Append: %v", err)
	}

	// Read the raw column, bypassing the codec.
	pool, err := pgxpool.New(ctx, testDSN(t))
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	defer pool.Close()

	var raw string
	if err := pool.QueryRow(ctx, "SELECT transcript FROM command_logs WHERE id = $1", l.ID).Scan(&raw); err != nil {
		t.Fatalf("raw select: %v", err)
	}
	if raw == l.Transcript {
		t.Error("transcript stored in plaintext")
	}
}

func TestStore_GetNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), uuid.NewString())
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_ListFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := sampleLog("alice", "remind me to water the plants")
	b := sampleLog("alice", "schedule a meeting with bob tomorrow")
	b.IntentType = command.IntentCreateEvent
	c := sampleLog("carol", "remind me to stretch")
	for _, l := range []ledger.Log{a, b, c} {
		if err := store.Append(ctx, l); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := store.List(ctx, ledger.Query{UserID: "alice"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("alice logs = %d, want 2", len(got))
	}

	got, err = store.List(ctx, ledger.Query{Intent: command.IntentCreateEvent})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].ID != b.ID {
		t.Errorf("event logs = %+v, want only %s", got, b.ID)
	}

	// Keyword matches the decoded transcript.
	got, err = store.List(ctx, ledger.Query{Keyword: "plants"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].ID != a.ID {
		t.Errorf("keyword logs = %+v, want only %s", got, a.ID)
	}
}

func TestStore_SetOutcomeTransitions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	l := sampleLog("alice", "add milk to the shopping list")
	l.Outcome = ledger.OutcomePending
	if err := store.Append(ctx, l); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := store.SetOutcome(ctx, l.ID, ledger.OutcomeSuccess, ""); err != nil {
		t.Fatalf("pending -> success: %v", err)
	}
	if err := store.SetOutcome(ctx, l.ID, ledger.OutcomeUndone, ""); err != nil {
		t.Fatalf("success -> undone: %v", err)
	}

	// Undone is terminal.
	err := store.SetOutcome(ctx, l.ID, ledger.OutcomeSuccess, "")
	if !errors.Is(err, ledger.ErrInvalidTransition) {
		t.Errorf("undone -> success err = %v, want ErrInvalidTransition", err)
	}

	err = store.SetOutcome(ctx, uuid.NewString(), ledger.OutcomeSuccess, "")
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("missing id err = %v, want ErrNotFound", err)
	}
}

func TestStore_AuditTrail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	l := sampleLog("alice", "log that I went for a run")
	if err := store.Append(ctx, l); err != nil {
		t.Fatalf("Append: %v", err)
	}

	entry := ledger.AuditEntry{
		ID:        uuid.NewString(),
		CommandID: l.ID,
		Action:    ledger.AuditActionUndo,
		Item:      l.CreatedItem,
		At:        time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := store.AppendAudit(ctx, entry); err != nil {
		t.Fatalf("AppendAudit: %v", err)
	}

	trail, err := store.AuditTrail(ctx, l.ID)
	if err != nil {
		t.Fatalf("AuditTrail: %v", err)
	}
	if len(trail) != 1 || trail[0].Action != ledger.AuditActionUndo {
		t.Errorf("trail = %+v, want one undo entry", trail)
	}
}

func TestStore_PurgeExpired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	expired := sampleLog("alice", "old command")
	expired.ExpiresAt = now.Add(-time.Hour)
	fresh := sampleLog("alice", "recent command")
	fresh.ExpiresAt = now.Add(time.Hour)
	forever := sampleLog("alice", "kept forever")
	for _, l := range []ledger.Log{expired, fresh, forever} {
		if err := store.Append(ctx, l); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	n, err := store.PurgeExpired(ctx, now)
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if n != 1 {
		t.Errorf("purged = %d, want 1", n)
	}
	if _, err := store.Get(ctx, expired.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("expired log still present, err = %v", err)
	}
	if _, err := store.Get(ctx, forever.ID); err != nil {
		t.Errorf("zero-expiry log was purged: %v", err)
	}
}

func TestStore_AESCodecRoundTrip(t *testing.T) {
	codec, err := ledger.NewAESCodec("test-secret")
	if err != nil {
		t.Fatalf("NewAESCodec: %v", err)
	}
	store := newTestStore(t, postgres.WithCodec(codec))
	ctx := context.Background()

	l := sampleLog("alice", "private thought for the journal")
	if err := store.Append(ctx, l); err != nil {
		t.Fatalf("Append: %v", err)
	}
	got, err := store.Get(ctx, l.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Transcript != l.Transcript {
		t.Errorf("transcript = %q, want %q", got.Transcript, l.Transcript)
	}
}
