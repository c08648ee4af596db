// Package sqlitestore provides a SQLite-backed command ledger for
// single-user local deployments. The schema is embedded and applied on
// open, so a fresh database file is ready after [New].
package sqlitestore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/parlando-app/parlando/internal/command"
	"github.com/parlando-app/parlando/internal/domain"
	"github.com/parlando-app/parlando/internal/ledger"
)

//go:embed schema.sql
var schema string

// Compile-time interface check.
var _ ledger.Store = (*Store)(nil)

// Store is the SQLite-backed command ledger.
//
// Transcripts pass through the configured [ledger.Codec] on every write and
// read. List-level slice fields (entities, tags, attendees) are stored as
// JSON text since SQLite has no array type.
type Store struct {
	db    *sql.DB
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

// New opens (or creates) the SQLite database at path and applies the schema.
func New(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open database: %w", err)
	}

	// The driver opens lazily; fail fast on an unwritable path.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: ping: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: init schema: %w", err)
	}

	s := &Store{db: db, codec: ledger.PlainCodec{}}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append implements [ledger.Store].
func (s *Store) Append(ctx context.Context, log ledger.Log) error {
	stored, err := s.codec.Encode(log.Transcript)
	if err != nil {
		return fmt.Errorf("sqlite store: encode transcript: %w", err)
	}

	entities, err := json.Marshal(log.Entities)
	if err != nil {
		return fmt.Errorf("sqlite store: marshal entities: %w", err)
	}
	tags, err := json.Marshal(log.Tags)
	if err != nil {
		return fmt.Errorf("sqlite store: marshal tags: %w", err)
	}
	attendees, err := json.Marshal(log.Attendees)
	if err != nil {
		return fmt.Errorf("sqlite store: marshal attendees: %w", err)
	}

	var expires any
	if !log.ExpiresAt.IsZero() {
		expires = log.ExpiresAt
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO command_logs
		    (id, user_id, transcript, language,
		     intent_type, intent_confidence, entities, overall,
		     memo_date, memo_time, title, priority, tags, recurrence, attendees,
		     outcome, failure_reason, created_kind, created_id, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.UserID, stored, log.Language,
		string(log.IntentType), log.IntentConfidence, string(entities), log.Overall,
		log.MemoDate, log.MemoTime, log.Title, log.Priority, string(tags), log.Recurrence, string(attendees),
		string(log.Outcome), log.FailureReason, string(log.CreatedItem.Kind), log.CreatedItem.ID,
		log.CreatedAt, expires,
	)
	if err != nil {
		return fmt.Errorf("sqlite store: append: %w", err)
	}
	return nil
}

const logColumns = `id, user_id, transcript, language,
	intent_type, intent_confidence, entities, overall,
	memo_date, memo_time, title, priority, tags, recurrence, attendees,
	outcome, failure_reason, created_kind, created_id, created_at, expires_at`

// Get implements [ledger.Store].
func (s *Store) Get(ctx context.Context, id string) (ledger.Log, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+logColumns+" FROM command_logs WHERE id = ?", id)

	log, err := s.scanLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Log{}, ledger.ErrNotFound
	}
	if err != nil {
		return ledger.Log{}, fmt.Errorf("sqlite store: get: %w", err)
	}
	return log, nil
}

// List implements [ledger.Store]. The keyword filter runs in Go after
// transcript decoding because the stored transcript column is
// codec-encoded; the limit is applied after keyword filtering.
func (s *Store) List(ctx context.Context, q ledger.Query) ([]ledger.Log, error) {
	conditions := []string{"1=1"}
	args := []any{}
	if q.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, q.UserID)
	}
	if !q.From.IsZero() {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, q.From)
	}
	if !q.To.IsZero() {
		conditions = append(conditions, "created_at < ?")
		args = append(args, q.To)
	}
	if q.Intent != "" {
		conditions = append(conditions, "intent_type = ?")
		args = append(args, string(q.Intent))
	}
	if q.Outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, string(q.Outcome))
	}

	query := "SELECT " + logColumns + " FROM command_logs WHERE " +
		strings.Join(conditions, " AND ") + " ORDER BY created_at DESC"
	if q.Limit > 0 && q.Keyword == "" {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: list: %w", err)
	}
	defer rows.Close()

	logs := []ledger.Log{}
	for rows.Next() {
		log, err := s.scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite store: scan: %w", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite store: list: %w", err)
	}

	if q.Keyword != "" {
		kw := strings.ToLower(q.Keyword)
		filtered := logs[:0]
		for _, l := range logs {
			if strings.Contains(strings.ToLower(l.Transcript), kw) ||
				strings.Contains(strings.ToLower(l.Title), kw) {
				filtered = append(filtered, l)
			}
		}
		logs = filtered
		if q.Limit > 0 && len(logs) > q.Limit {
			logs = logs[:q.Limit]
		}
	}
	return logs, nil
}

// SetOutcome implements [ledger.Store].
func (s *Store) SetOutcome(ctx context.Context, id string, outcome ledger.Outcome, failureReason string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite store: begin: %w", err)
	}
	defer tx.Rollback()

	var current ledger.Outcome
	err = tx.QueryRowContext(ctx,
		"SELECT outcome FROM command_logs WHERE id = ?", id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("sqlite store: set outcome: %w", err)
	}

	if !current.CanTransition(outcome) {
		return fmt.Errorf("%w: %s -> %s", ledger.ErrInvalidTransition, current, outcome)
	}
	if outcome != ledger.OutcomeFailed {
		failureReason = ""
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE command_logs SET outcome = ?, failure_reason = ? WHERE id = ?",
		string(outcome), failureReason, id)
	if err != nil {
		return fmt.Errorf("sqlite store: set outcome: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite store: commit: %w", err)
	}
	return nil
}

// AppendAudit implements [ledger.Store].
func (s *Store) AppendAudit(ctx context.Context, entry ledger.AuditEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_entries (id, command_id, action, item_kind, item_id, at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.CommandID, entry.Action,
		string(entry.Item.Kind), entry.Item.ID, entry.At,
	)
	if err != nil {
		return fmt.Errorf("sqlite store: append audit: %w", err)
	}
	return nil
}

// AuditTrail implements [ledger.Store].
func (s *Store) AuditTrail(ctx context.Context, commandID string) ([]ledger.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, command_id, action, item_kind, item_id, at
		FROM audit_entries WHERE command_id = ? ORDER BY at`, commandID)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: audit trail: %w", err)
	}
	defer rows.Close()

	entries := []ledger.AuditEntry{}
	for rows.Next() {
		var (
			e    ledger.AuditEntry
			kind string
		)
		if err := rows.Scan(&e.ID, &e.CommandID, &e.Action, &kind, &e.Item.ID, &e.At); err != nil {
			return nil, fmt.Errorf("sqlite store: scan audit row: %w", err)
		}
		e.Item.Kind = domain.ItemKind(kind)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite store: audit trail: %w", err)
	}
	return entries, nil
}

// PurgeExpired implements [ledger.Store].
func (s *Store) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM command_logs WHERE expires_at IS NOT NULL AND expires_at <= ?", now)
	if err != nil {
		return 0, fmt.Errorf("sqlite store: purge expired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite store: purge expired: %w", err)
	}
	return int(n), nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanLog scans one command_logs row and decodes the transcript and JSON
// columns.
func (s *Store) scanLog(row scanner) (ledger.Log, error) {
	var (
		l                         ledger.Log
		intent, outcome, kind     string
		entities, tags, attendees string
		expires                   sql.NullTime
	)
	if err := row.Scan(
		&l.ID, &l.UserID, &l.Transcript, &l.Language,
		&intent, &l.IntentConfidence, &entities, &l.Overall,
		&l.MemoDate, &l.MemoTime, &l.Title, &l.Priority, &tags, &l.Recurrence, &attendees,
		&outcome, &l.FailureReason, &kind, &l.CreatedItem.ID, &l.CreatedAt, &expires,
	); err != nil {
		return ledger.Log{}, err
	}

	l.IntentType = command.IntentType(intent)
	l.Outcome = ledger.Outcome(outcome)
	l.CreatedItem.Kind = domain.ItemKind(kind)
	if expires.Valid {
		l.ExpiresAt = expires.Time
	}

	if err := json.Unmarshal([]byte(entities), &l.Entities); err != nil {
		return ledger.Log{}, fmt.Errorf("unmarshal entities of %s: %w", l.ID, err)
	}
	if err := json.Unmarshal([]byte(tags), &l.Tags); err != nil {
		return ledger.Log{}, fmt.Errorf("unmarshal tags of %s: %w", l.ID, err)
	}
	if err := json.Unmarshal([]byte(attendees), &l.Attendees); err != nil {
		return ledger.Log{}, fmt.Errorf("unmarshal attendees of %s: %w", l.ID, err)
	}

	plain, err := s.codec.Decode(l.Transcript)
	if err != nil {
		return ledger.Log{}, fmt.Errorf("decode transcript of %s: %w", l.ID, err)
	}
	l.Transcript = plain
	return l, nil
}
