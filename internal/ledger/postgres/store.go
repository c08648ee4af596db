package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parlando-app/parlando/internal/ledger"
)

// Compile-time interface check.
var _ ledger.Store = (*Store)(nil)

// Store is the PostgreSQL-backed command ledger. All operations are safe
// for concurrent use.
//
// Transcripts pass through the configured [ledger.Codec] on every write and
// read, so the transcript column never holds recognisable plaintext. That
// also means keyword filtering over transcripts cannot happen in SQL; see
// [Store.List].
type Store struct {
	pool  *pgxpool.Pool
	codec ledger.Codec
}

// Option configures a [Store].
type Option func(*Store)

// WithCodec sets the transcript codec. The default is [ledger.PlainCodec].
func WithCodec(c ledger.Codec) Option {
	return func(s *Store) {
		if c != nil {
			s.codec = c
		}
	}
}

// NewStore connects to the PostgreSQL database at dsn and runs [Migrate].
func NewStore(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	s := &Store{pool: pool, codec: ledger.PlainCodec{}}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// logColumns is the column list shared by every SELECT over command_logs.
// Keep in sync with scanLog.
const logColumns = `id, user_id, transcript, language,
	intent_type, intent_confidence, entities, overall,
	memo_date, memo_time, title, priority, tags, recurrence, attendees,
	outcome, failure_reason, created_kind, created_id, created_at, expires_at`

// Append implements [ledger.Store].
func (s *Store) Append(ctx context.Context, log ledger.Log) error {
	const q = `
		INSERT INTO command_logs (` + logColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		        $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`

	stored, err := s.codec.Encode(log.Transcript)
	if err != nil {
		return fmt.Errorf("postgres store: encode transcript: %w", err)
	}

	var expires any
	if !log.ExpiresAt.IsZero() {
		expires = log.ExpiresAt
	}

	_, err = s.pool.Exec(ctx, q,
		log.ID,
		log.UserID,
		stored,
		log.Language,
		log.IntentType,
		log.IntentConfidence,
		log.Entities,
		log.Overall,
		log.MemoDate,
		log.MemoTime,
		log.Title,
		log.Priority,
		log.Tags,
		log.Recurrence,
		log.Attendees,
		log.Outcome,
		log.FailureReason,
		log.CreatedItem.Kind,
		log.CreatedItem.ID,
		log.CreatedAt,
		expires,
	)
	if err != nil {
		return fmt.Errorf("postgres store: append: %w", err)
	}
	return nil
}

// Get implements [ledger.Store].
func (s *Store) Get(ctx context.Context, id string) (ledger.Log, error) {
	const q = `SELECT ` + logColumns + ` FROM command_logs WHERE id = $1`

	rows, err := s.pool.Query(ctx, q, id)
	if err != nil {
		return ledger.Log{}, fmt.Errorf("postgres store: get: %w", err)
	}
	logs, err := s.collectLogs(rows)
	if err != nil {
		return ledger.Log{}, err
	}
	if len(logs) == 0 {
		return ledger.Log{}, ledger.ErrNotFound
	}
	return logs[0], nil
}

// List implements [ledger.Store]. Time, user, intent, and outcome filters
// run in SQL; the keyword filter runs in Go after transcript decoding
// because the stored transcript column is codec-encoded. The limit is
// applied after keyword filtering so it caps visible results.
func (s *Store) List(ctx context.Context, query ledger.Query) ([]ledger.Log, error) {
	args := []any{}
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conditions := []string{"TRUE"}
	if query.UserID != "" {
		conditions = append(conditions, "user_id = "+next(query.UserID))
	}
	if !query.From.IsZero() {
		conditions = append(conditions, "created_at >= "+next(query.From))
	}
	if !query.To.IsZero() {
		conditions = append(conditions, "created_at < "+next(query.To))
	}
	if query.Intent != "" {
		conditions = append(conditions, "intent_type = "+next(string(query.Intent)))
	}
	if query.Outcome != "" {
		conditions = append(conditions, "outcome = "+next(string(query.Outcome)))
	}

	q := "SELECT " + logColumns + "\nFROM command_logs\n" +
		"WHERE " + strings.Join(conditions, "\n  AND ") + "\n" +
		"ORDER BY created_at DESC"

	if query.Limit > 0 && query.Keyword == "" {
		args = append(args, query.Limit)
		q += fmt.Sprintf("\nLIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list: %w", err)
	}
	logs, err := s.collectLogs(rows)
	if err != nil {
		return nil, err
	}

	if query.Keyword != "" {
		kw := strings.ToLower(query.Keyword)
		filtered := logs[:0]
		for _, l := range logs {
			if strings.Contains(strings.ToLower(l.Transcript), kw) ||
				strings.Contains(strings.ToLower(l.Title), kw) {
				filtered = append(filtered, l)
			}
		}
		logs = filtered
		if query.Limit > 0 && len(logs) > query.Limit {
			logs = logs[:query.Limit]
		}
	}
	return logs, nil
}

// SetOutcome implements [ledger.Store]. The current outcome is read under
// FOR UPDATE so concurrent transitions serialise on the row.
func (s *Store) SetOutcome(ctx context.Context, id string, outcome ledger.Outcome, failureReason string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres store: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const sel = `SELECT outcome FROM command_logs WHERE id = $1 FOR UPDATE`

	var current ledger.Outcome
	if err := tx.QueryRow(ctx, sel, id).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.ErrNotFound
		}
		return fmt.Errorf("postgres store: set outcome: %w", err)
	}

	if !current.CanTransition(outcome) {
		return fmt.Errorf("%w: %s -> %s", ledger.ErrInvalidTransition, current, outcome)
	}
	if outcome != ledger.OutcomeFailed {
		failureReason = ""
	}

	const upd = `UPDATE command_logs SET outcome = $2, failure_reason = $3 WHERE id = $1`
	if _, err := tx.Exec(ctx, upd, id, outcome, failureReason); err != nil {
		return fmt.Errorf("postgres store: set outcome: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres store: commit: %w", err)
	}
	return nil
}

// AppendAudit implements [ledger.Store].
func (s *Store) AppendAudit(ctx context.Context, entry ledger.AuditEntry) error {
	const q = `
		INSERT INTO audit_entries (id, command_id, action, item_kind, item_id, at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.pool.Exec(ctx, q,
		entry.ID,
		entry.CommandID,
		entry.Action,
		entry.Item.Kind,
		entry.Item.ID,
		entry.At,
	)
	if err != nil {
		return fmt.Errorf("postgres store: append audit: %w", err)
	}
	return nil
}

// AuditTrail implements [ledger.Store].
func (s *Store) AuditTrail(ctx context.Context, commandID string) ([]ledger.AuditEntry, error) {
	const q = `
		SELECT id, command_id, action, item_kind, item_id, at
		FROM   audit_entries
		WHERE  command_id = $1
		ORDER  BY at`

	rows, err := s.pool.Query(ctx, q, commandID)
	if err != nil {
		return nil, fmt.Errorf("postgres store: audit trail: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ledger.AuditEntry, error) {
		var e ledger.AuditEntry
		err := row.Scan(&e.ID, &e.CommandID, &e.Action, &e.Item.Kind, &e.Item.ID, &e.At)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan audit rows: %w", err)
	}
	if entries == nil {
		entries = []ledger.AuditEntry{}
	}
	return entries, nil
}

// PurgeExpired implements [ledger.Store].
func (s *Store) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	const q = `DELETE FROM command_logs WHERE expires_at IS NOT NULL AND expires_at <= $1`

	tag, err := s.pool.Exec(ctx, q, now)
	if err != nil {
		return 0, fmt.Errorf("postgres store: purge expired: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// collectLogs scans pgx rows into decoded ledger logs.
func (s *Store) collectLogs(rows pgx.Rows) ([]ledger.Log, error) {
	logs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ledger.Log, error) {
		var (
			l       ledger.Log
			expires *time.Time
		)
		if err := row.Scan(
			&l.ID,
			&l.UserID,
			&l.Transcript,
			&l.Language,
			&l.IntentType,
			&l.IntentConfidence,
			&l.Entities,
			&l.Overall,
			&l.MemoDate,
			&l.MemoTime,
			&l.Title,
			&l.Priority,
			&l.Tags,
			&l.Recurrence,
			&l.Attendees,
			&l.Outcome,
			&l.FailureReason,
			&l.CreatedItem.Kind,
			&l.CreatedItem.ID,
			&l.CreatedAt,
			&expires,
		); err != nil {
			return ledger.Log{}, err
		}
		if expires != nil {
			l.ExpiresAt = *expires
		}
		plain, err := s.codec.Decode(l.Transcript)
		if err != nil {
			return ledger.Log{}, fmt.Errorf("decode transcript of %s: %w", l.ID, err)
		}
		l.Transcript = plain
		return l, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan rows: %w", err)
	}
	if logs == nil {
		logs = []ledger.Log{}
	}
	return logs, nil
}
