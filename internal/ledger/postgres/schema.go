// Package postgres provides a PostgreSQL-backed implementation of the
// command ledger. It holds a single [pgxpool.Pool]; [Migrate] installs the
// schema idempotently on every start.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn, postgres.WithCodec(codec))
//	if err != nil { … }
//	defer store.Close()
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlCommandLogs = `
CREATE TABLE IF NOT EXISTS command_logs (
    id                TEXT              PRIMARY KEY,
    user_id           TEXT              NOT NULL,
    transcript        TEXT              NOT NULL,
    language          TEXT              NOT NULL DEFAULT '',
    intent_type       TEXT              NOT NULL,
    intent_confidence DOUBLE PRECISION  NOT NULL DEFAULT 0,
    entities          JSONB             NOT NULL DEFAULT '[]',
    overall           DOUBLE PRECISION  NOT NULL DEFAULT 0,
    memo_date         TEXT              NOT NULL DEFAULT '',
    memo_time         TEXT              NOT NULL DEFAULT '',
    title             TEXT              NOT NULL DEFAULT '',
    priority          TEXT              NOT NULL DEFAULT '',
    tags              TEXT[]            NOT NULL DEFAULT '{}',
    recurrence        TEXT              NOT NULL DEFAULT '',
    attendees         TEXT[]            NOT NULL DEFAULT '{}',
    outcome           TEXT              NOT NULL,
    failure_reason    TEXT              NOT NULL DEFAULT '',
    created_kind      TEXT              NOT NULL DEFAULT '',
    created_id        TEXT              NOT NULL DEFAULT '',
    created_at        TIMESTAMPTZ       NOT NULL DEFAULT now(),
    expires_at        TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_command_logs_user_created
    ON command_logs (user_id, created_at DESC);

CREATE INDEX IF NOT EXISTS idx_command_logs_intent
    ON command_logs (intent_type);

CREATE INDEX IF NOT EXISTS idx_command_logs_outcome
    ON command_logs (outcome);

CREATE INDEX IF NOT EXISTS idx_command_logs_expires
    ON command_logs (expires_at)
    WHERE expires_at IS NOT NULL;
`

const ddlAuditEntries = `
CREATE TABLE IF NOT EXISTS audit_entries (
    id          TEXT         PRIMARY KEY,
    command_id  TEXT         NOT NULL,
    action      TEXT         NOT NULL,
    item_kind   TEXT         NOT NULL DEFAULT '',
    item_id     TEXT         NOT NULL DEFAULT '',
    at          TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_audit_entries_command
    ON audit_entries (command_id, at);
`

// Migrate creates or ensures all required tables and indexes exist. It is
// idempotent and safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range []string{ddlCommandLogs, ddlAuditEntries} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
