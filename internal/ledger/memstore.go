package ledger

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe in-memory [Store] for tests and ephemeral runs.
type MemStore struct {
	mu     sync.RWMutex
	logs   map[string]Log
	audits []AuditEntry
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{logs: make(map[string]Log)}
}

// Append implements [Store.Append].
func (s *MemStore) Append(ctx context.Context, log Log) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[log.ID] = log
	return nil
}

// Get implements [Store.Get].
func (s *MemStore) Get(ctx context.Context, id string) (Log, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.logs[id]
	if !ok {
		return Log{}, ErrNotFound
	}
	return l, nil
}

// List implements [Store.List].
func (s *MemStore) List(ctx context.Context, q Query) ([]Log, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Log, 0, len(s.logs))
	for _, l := range s.logs {
		if matches(l, q) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func matches(l Log, q Query) bool {
	if q.UserID != "" && l.UserID != q.UserID {
		return false
	}
	if !q.From.IsZero() && l.CreatedAt.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && l.CreatedAt.After(q.To) {
		return false
	}
	if q.Intent != "" && l.IntentType != q.Intent {
		return false
	}
	if q.Outcome != "" && l.Outcome != q.Outcome {
		return false
	}
	if q.Keyword != "" {
		kw := strings.ToLower(q.Keyword)
		if !strings.Contains(strings.ToLower(l.Transcript), kw) &&
			!strings.Contains(strings.ToLower(l.Title), kw) {
			return false
		}
	}
	return true
}

// SetOutcome implements [Store.SetOutcome].
func (s *MemStore) SetOutcome(ctx context.Context, id string, outcome Outcome, failureReason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.logs[id]
	if !ok {
		return ErrNotFound
	}
	if !l.Outcome.CanTransition(outcome) {
		return ErrInvalidTransition
	}
	l.Outcome = outcome
	if outcome == OutcomeFailed {
		l.FailureReason = failureReason
	}
	s.logs[id] = l
	return nil
}

// AppendAudit implements [Store.AppendAudit].
func (s *MemStore) AppendAudit(ctx context.Context, entry AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits = append(s.audits, entry)
	return nil
}

// AuditTrail implements [Store.AuditTrail].
func (s *MemStore) AuditTrail(ctx context.Context, commandID string) ([]AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []AuditEntry
	for _, e := range s.audits {
		if e.CommandID == commandID {
			out = append(out, e)
		}
	}
	return out, nil
}

// PurgeExpired implements [Store.PurgeExpired].
func (s *MemStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, l := range s.logs {
		if !l.ExpiresAt.IsZero() && !l.ExpiresAt.After(now) {
			delete(s.logs, id)
			n++
		}
	}
	return n, nil
}
