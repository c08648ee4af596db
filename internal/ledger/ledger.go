// Package ledger persists the command log: one record per executed (or
// failed) voice command, linking the parsed transcript to the domain item it
// created. The ledger is what makes commands auditable and reversible — the
// undo path and the history UI both read from it.
//
// Three store implementations exist: [MemStore] for tests and ephemeral
// use, a SQLite store for single-user local deployments
// (internal/ledger/sqlitestore), and a PostgreSQL store for shared
// deployments (internal/ledger/postgres). All of them enforce the same
// outcome transition rules via [Outcome.CanTransition].
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/parlando-app/parlando/internal/command"
	"github.com/parlando-app/parlando/internal/domain"
)

// ErrNotFound is returned when no command log with the requested ID exists.
var ErrNotFound = errors.New("ledger: command log not found")

// ErrInvalidTransition is returned by SetOutcome for a transition the
// outcome state machine does not allow.
var ErrInvalidTransition = errors.New("ledger: invalid outcome transition")

// Outcome is the lifecycle outcome of a logged command.
type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeSuccess   Outcome = "success"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
	OutcomeUndone    Outcome = "undone"
)

// IsValid reports whether o is a recognised outcome.
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomePending, OutcomeSuccess, OutcomeCancelled, OutcomeFailed, OutcomeUndone:
		return true
	}
	return false
}

// CanTransition reports whether the outcome may move from o to next.
// Transitions are monotone: pending fans out to success, cancelled, or
// failed; success may later become undone; nothing ever moves back.
func (o Outcome) CanTransition(next Outcome) bool {
	switch o {
	case OutcomePending:
		return next == OutcomeSuccess || next == OutcomeCancelled || next == OutcomeFailed
	case OutcomeSuccess:
		return next == OutcomeUndone
	}
	return false
}

// Log is one persisted command record: the ParsedCommand denormalised with
// its execution outcome and the reference to whatever it created.
//
// CreatedItem is non-zero iff the outcome has been success at some point;
// it survives the transition to undone so the audit trail stays complete.
type Log struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Transcript string `json:"transcript"`
	Language   string `json:"language,omitempty"`

	IntentType       command.IntentType `json:"intent_type"`
	IntentConfidence float64            `json:"intent_confidence"`
	Entities         []command.Entity   `json:"entities,omitempty"`
	Overall          float64            `json:"overall_confidence"`

	// Denormalised extraction results for the history UI's list view.
	MemoDate   string   `json:"memo_date,omitempty"`
	MemoTime   string   `json:"memo_time,omitempty"`
	Title      string   `json:"title,omitempty"`
	Priority   string   `json:"priority,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Recurrence string   `json:"recurrence,omitempty"`
	Attendees  []string `json:"attendees,omitempty"`

	Outcome       Outcome        `json:"outcome"`
	FailureReason string         `json:"failure_reason,omitempty"`
	CreatedItem   domain.ItemRef `json:"created_item,omitzero"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// Query narrows [Store.List] results. Zero-valued fields are ignored; all
// set fields combine as AND conditions.
type Query struct {
	UserID  string
	From    time.Time
	To      time.Time
	Intent  command.IntentType
	Outcome Outcome

	// Keyword matches case-insensitively against transcript and title.
	Keyword string

	// Limit caps the number of results; 0 means no limit.
	Limit int
}

// AuditEntry records one ledger-level action, currently only reversals.
type AuditEntry struct {
	ID        string
	CommandID string
	Action    string
	Item      domain.ItemRef
	At        time.Time
}

// AuditActionUndo is the action recorded when a command's created item is
// reversed.
const AuditActionUndo = "undo"

// Store is the command log persistence contract.
//
// All implementations must be safe for concurrent use and must enforce
// [Outcome.CanTransition] in SetOutcome.
type Store interface {
	// Append persists a new log record. The record's ID must be unique.
	Append(ctx context.Context, log Log) error

	// Get retrieves a log by ID. Returns [ErrNotFound] when absent.
	Get(ctx context.Context, id string) (Log, error)

	// List returns logs matching q, newest first.
	List(ctx context.Context, q Query) ([]Log, error)

	// SetOutcome transitions the log's outcome. failureReason is stored
	// only for [OutcomeFailed]. Returns [ErrInvalidTransition] when the
	// outcome state machine forbids the move and [ErrNotFound] when the
	// log does not exist.
	SetOutcome(ctx context.Context, id string, outcome Outcome, failureReason string) error

	// AppendAudit persists an audit entry.
	AppendAudit(ctx context.Context, entry AuditEntry) error

	// AuditTrail returns all audit entries for a command, oldest first.
	AuditTrail(ctx context.Context, commandID string) ([]AuditEntry, error)

	// PurgeExpired deletes logs whose ExpiresAt is no later than now and
	// returns how many were removed. Logs with a zero ExpiresAt are kept
	// forever.
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}
