package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/parlando-app/parlando/internal/domain"
)

// ErrNothingToUndo is returned when the command log carries no created-item
// reference, i.e. the command never succeeded.
var ErrNothingToUndo = errors.New("ledger: nothing to undo")

// Undoer reverses executed commands: it deletes the created domain item,
// marks the log undone, and appends an audit entry.
type Undoer struct {
	store   Store
	deleter domain.Deleter
	now     func() time.Time
}

// NewUndoer returns an Undoer operating on store and deleter.
func NewUndoer(store Store, deleter domain.Deleter) *Undoer {
	return &Undoer{store: store, deleter: deleter, now: time.Now}
}

// Undo reverses the command identified by commandID.
//
// The linked domain item is deleted; an already-missing item is tolerated
// with a warning because reversal of the ledger state is the point, not the
// delete itself. Regardless of the delete outcome the log transitions to
// undone and one audit entry is appended.
//
// Undo is idempotent at the ledger level: a second call on an already
// undone command is a no-op and returns nil.
func (u *Undoer) Undo(ctx context.Context, commandID string) error {
	log, err := u.store.Get(ctx, commandID)
	if err != nil {
		return fmt.Errorf("ledger: undo %s: %w", commandID, err)
	}

	if log.Outcome == OutcomeUndone {
		slog.Info("undo: command already undone", "command_id", commandID)
		return nil
	}
	if log.CreatedItem.IsZero() {
		return fmt.Errorf("ledger: undo %s: %w", commandID, ErrNothingToUndo)
	}

	if err := u.deleter.Delete(ctx, log.CreatedItem); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Warn("undo: created item already gone",
				"command_id", commandID,
				"kind", log.CreatedItem.Kind,
				"item_id", log.CreatedItem.ID,
			)
		} else {
			return fmt.Errorf("ledger: undo %s: delete item: %w", commandID, err)
		}
	}

	if err := u.store.SetOutcome(ctx, commandID, OutcomeUndone, ""); err != nil {
		return fmt.Errorf("ledger: undo %s: %w", commandID, err)
	}

	entry := AuditEntry{
		ID:        uuid.NewString(),
		CommandID: commandID,
		Action:    AuditActionUndo,
		Item:      log.CreatedItem,
		At:        u.now().UTC(),
	}
	if err := u.store.AppendAudit(ctx, entry); err != nil {
		// The reversal itself succeeded; a missing audit row must not
		// surface as an undo failure.
		slog.Warn("undo: append audit entry failed", "command_id", commandID, "err", err)
	}

	slog.Info("undo: command reversed",
		"command_id", commandID,
		"kind", log.CreatedItem.Kind,
		"item_id", log.CreatedItem.ID,
	)
	return nil
}
