package learned

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/parlando-app/parlando/internal/command"
)

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

type patternKey struct {
	userID     string
	phrase     string
	entityType command.EntityType
}

// MemStore is a thread-safe in-memory [Store].
type MemStore struct {
	mu       sync.RWMutex
	patterns map[patternKey]Pattern
	now      func() time.Time
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{patterns: make(map[patternKey]Pattern), now: time.Now}
}

// Observe implements [Store.Observe].
func (s *MemStore) Observe(ctx context.Context, userID, phrase string, entityType command.EntityType, value string) (Pattern, error) {
	key := patternKey{
		userID:     userID,
		phrase:     strings.ToLower(strings.TrimSpace(phrase)),
		entityType: entityType,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.patterns[key]
	if !ok {
		p = Pattern{
			UserID:     userID,
			Phrase:     key.phrase,
			EntityType: entityType,
		}
	}
	p.Value = value
	p.Frequency++
	p.Confidence = ConfidenceForFrequency(p.Frequency)
	if p.Frequency >= autoApplyThreshold {
		p.AutoApply = true
	}
	p.UpdatedAt = s.now()

	s.patterns[key] = p
	return p, nil
}

// ForUser implements [Store.ForUser].
func (s *MemStore) ForUser(ctx context.Context, userID string) ([]Pattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Pattern
	for key, p := range s.patterns {
		if key.userID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}
