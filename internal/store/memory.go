// internal/store/memory.go
//
// In-memory implementation of Backend.
// This is a lightweight persistence layer used in development/testing,
// or when durability is not required.
//
// Characteristics:
//   - Progress keyed by session id, hints keyed by entry id, attempts in a slice.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/robalobadob/rosebud/internal/hints"
)

// memory is an in-memory map-based Backend implementation.
type memory struct {
	mu       sync.RWMutex
	progress map[string]Progress    // keyed by session id
	hints    map[string]hints.Entry // keyed by Entry.ID
	attempts []Attempt              // append order
}

// NewMemoryStore constructs a new in-memory Backend.
func NewMemoryStore() Backend {
	return &memory{
		progress: make(map[string]Progress),
		hints:    make(map[string]hints.Entry),
	}
}

// SaveProgress replaces the stored progress for sessionID.
func (m *memory) SaveProgress(ctx context.Context, sessionID string, p Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.SolvedRows = append([]int(nil), p.SolvedRows...)
	if p.LastUpdated.IsZero() {
		p.LastUpdated = time.Now().UTC()
	}
	m.progress[sessionID] = p
	return nil
}

// LoadProgress looks up progress by session id.
func (m *memory) LoadProgress(ctx context.Context, sessionID string) (Progress, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.progress[sessionID]
	if !ok {
		return Progress{}, false, nil
	}
	p.SolvedRows = append([]int(nil), p.SolvedRows...)
	return p, true, nil
}

// LogAttempt appends a to the log, filling ID and CreatedAt when unset.
func (m *memory) LogAttempt(ctx context.Context, a Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	m.attempts = append(m.attempts, a)
	return nil
}

// Attempts returns the newest attempts for sessionID, newest first.
func (m *memory) Attempts(ctx context.Context, sessionID string, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = 50
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Attempt, 0, limit)
	for i := len(m.attempts) - 1; i >= 0 && len(out) < limit; i-- {
		if m.attempts[i].SessionID == sessionID {
			out = append(out, m.attempts[i])
		}
	}
	return out, nil
}

// Insert stores a hint entry.
func (m *memory) Insert(ctx context.Context, e hints.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	m.hints[e.ID] = e
	return nil
}

// First returns the hint with the lowest Order.
func (m *memory) First(ctx context.Context) (hints.Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.hints) == 0 {
		return hints.Entry{}, false, nil
	}
	all := make([]hints.Entry, 0, len(m.hints))
	for _, e := range m.hints {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Order != all[j].Order {
			return all[i].Order < all[j].Order
		}
		return all[i].ID < all[j].ID
	})
	return all[0], true, nil
}

// Delete removes the hint; only the first caller for an id gets true.
func (m *memory) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.hints[id]; !ok {
		return false, nil
	}
	delete(m.hints, id)
	return true, nil
}

// Close is a no-op.
func (m *memory) Close() error { return nil }
