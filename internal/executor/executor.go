// Package executor maps confirmed parsed commands onto single domain-creation
// calls. Each intent's handler declares its domain fields and defaults; the
// executor resolves every field from the extracted entities or the default
// table, performs exactly one workspace call, and appends a command log
// record with the outcome.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/parlando-app/parlando/internal/command"
	"github.com/parlando-app/parlando/internal/domain"
	"github.com/parlando-app/parlando/internal/ledger"
)

// Executor resolves fields and dispatches confirmed commands to the
// workspace. It is safe for concurrent use; all state is read-only after
// construction.
type Executor struct {
	ws        domain.Workspace
	store     ledger.Store
	registry  Registry
	language  string
	retention time.Duration
	now       func() time.Time
}

// Option configures an Executor.
type Option func(*Executor)

// WithRegistry replaces the built-in handler registry.
func WithRegistry(r Registry) Option {
	return func(e *Executor) { e.registry = r }
}

// WithLanguage sets the language tag recorded on command logs.
func WithLanguage(lang string) Option {
	return func(e *Executor) { e.language = lang }
}

// WithRetention sets how long command logs live before PurgeExpired may
// remove them. Zero means logs are kept forever.
func WithRetention(d time.Duration) Option {
	return func(e *Executor) { e.retention = d }
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// New returns an Executor writing created items to ws and command logs to
// store. store may be nil, in which case no logs are written.
func New(ws domain.Workspace, store ledger.Store, opts ...Option) *Executor {
	e := &Executor{
		ws:       ws,
		store:    store,
		registry: DefaultRegistry(),
		language: "en",
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the confirmed command for userID and returns the result.
//
// Unregistered intents yield success=false with NeedsUserInput set and an
// explicit not-implemented error. For registered intents exactly one
// workspace call is made; its failure is returned in the result and logged
// as a failed command. Ledger write failures never fail the execution, they
// are logged and swallowed.
func (e *Executor) Execute(ctx context.Context, userID string, cmd command.ParsedCommand) command.ExecutionResult {
	handler, ok := e.registry[cmd.Intent.Type]
	if !ok {
		return command.ExecutionResult{
			Success:        false,
			NeedsUserInput: true,
			Err:            fmt.Sprintf("intent %q is not implemented", cmd.Intent.Type),
		}
	}

	ref := cmd.Timestamp
	if ref.IsZero() {
		ref = e.now()
	}

	resolved := e.resolveFields(handler, cmd, ref)
	fields := make(domain.Fields, len(resolved))
	for name, fv := range resolved {
		fields[name] = fv.Value
	}

	id, err := handler.Create(ctx, e.ws, fields)
	if err != nil {
		slog.Error("execute: domain write failed",
			"intent", cmd.Intent.Type,
			"kind", handler.Kind,
			"err", err,
		)
		e.writeLog(ctx, userID, cmd, resolved, ledger.Log{
			Outcome:       ledger.OutcomeFailed,
			FailureReason: err.Error(),
		})
		return command.ExecutionResult{
			Success: false,
			Fields:  resolved,
			Err:     err.Error(),
		}
	}

	created := domain.ItemRef{Kind: handler.Kind, ID: id}
	e.writeLog(ctx, userID, cmd, resolved, ledger.Log{
		Outcome:     ledger.OutcomeSuccess,
		CreatedItem: created,
	})

	slog.Info("execute: command completed",
		"intent", cmd.Intent.Type,
		"kind", handler.Kind,
		"item_id", id,
	)
	return command.ExecutionResult{
		Success:     true,
		CreatedID:   id,
		CreatedKind: string(handler.Kind),
		Fields:      resolved,
	}
}

// resolveFields walks the handler's field specs and fills each from the
// matching entity or the default table, tagging provenance. Fields with
// neither are omitted.
func (e *Executor) resolveFields(h Handler, cmd command.ParsedCommand, ref time.Time) map[string]command.FieldValue {
	out := make(map[string]command.FieldValue, len(h.Fields))
	for _, spec := range h.Fields {
		entities := cmd.EntitiesOfType(spec.Source)
		if len(entities) > 0 {
			out[spec.Name] = command.FieldValue{Value: joinEntities(spec.Source, entities)}
			continue
		}
		if spec.Default != nil {
			out[spec.Name] = command.FieldValue{Value: spec.Default(cmd, ref), IsDefault: true}
		}
	}
	return out
}

// joinEntities renders the entities of one type as a single field value.
// Tags join as a comma list; every other type takes the first entity's
// normalized value (a person entity's normalized form is already the
// comma-joined name list).
func joinEntities(t command.EntityType, entities []command.Entity) string {
	if t != command.EntityTag {
		return entities[0].Normalized
	}
	vals := make([]string, len(entities))
	for i, e := range entities {
		vals[i] = e.Normalized
	}
	return strings.Join(vals, ",")
}

// writeLog appends a command log derived from cmd and the resolved fields,
// taking outcome, failure reason, and created item from stub. Best effort:
// store errors are logged, never returned.
func (e *Executor) writeLog(ctx context.Context, userID string, cmd command.ParsedCommand, resolved map[string]command.FieldValue, stub ledger.Log) {
	if e.store == nil {
		return
	}

	now := e.now().UTC()
	log := ledger.Log{
		ID:               uuid.NewString(),
		UserID:           userID,
		Transcript:       cmd.Transcript,
		Language:         e.language,
		IntentType:       cmd.Intent.Type,
		IntentConfidence: cmd.Intent.Confidence,
		Entities:         cmd.Entities,
		Overall:          cmd.Overall,
		MemoDate:         resolved["date"].Value,
		MemoTime:         resolved["time"].Value,
		Title:            resolved["title"].Value,
		Priority:         resolved["priority"].Value,
		Recurrence:       resolved["recurrence"].Value,
		Outcome:          stub.Outcome,
		FailureReason:    stub.FailureReason,
		CreatedItem:      stub.CreatedItem,
		CreatedAt:        now,
	}
	if tags, ok := resolved["tags"]; ok && tags.Value != "" {
		log.Tags = strings.Split(tags.Value, ",")
	}
	if p, ok := cmd.FirstEntity(command.EntityPerson); ok {
		log.Attendees = append(log.Attendees, p.Parts...)
	}
	if e.retention > 0 {
		log.ExpiresAt = now.Add(e.retention)
	}

	if err := e.store.Append(ctx, log); err != nil {
		slog.Warn("execute: append command log failed", "command_id", log.ID, "err", err)
	}
}
