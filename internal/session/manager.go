// internal/session/manager.go
//
// Manager hands out sessions by id, opening each one lazily on first use.
// At most limit sessions stay open; the least recently used one is dropped
// to make room. Its progress is already in the store, so a later Get
// hydrates it again (unsubmitted drafts are lost).

package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// DefaultMaxSessions is the cap used when NewManager is given limit <= 0.
const DefaultMaxSessions = 1024

type managed struct {
	s    *Session
	used uint64
}

// Manager caches open sessions.
type Manager struct {
	targets []string
	deps    Deps
	limit   int

	mu       sync.Mutex
	tick     uint64
	sessions map[string]*managed
}

// NewManager returns a manager whose sessions play targets, keeping at most
// limit of them open.
func NewManager(targets []string, deps Deps, limit int) *Manager {
	if limit <= 0 {
		limit = DefaultMaxSessions
	}
	return &Manager{
		targets:  append([]string(nil), targets...),
		deps:     deps,
		limit:    limit,
		sessions: make(map[string]*managed),
	}
}

// Get returns the session for id, hydrating it from the progress store the
// first time it is requested. The store read happens without holding the
// manager lock; if two callers race to open the same id, the first one to
// register wins and both get that session.
func (m *Manager) Get(ctx context.Context, id string) *Session {
	if s, ok := m.lookup(id); ok {
		return s
	}

	opened := Open(ctx, id, m.targets, m.deps)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tick++
	if e, ok := m.sessions[id]; ok {
		e.used = m.tick
		return e.s
	}
	for len(m.sessions) >= m.limit {
		m.evictLocked()
	}
	m.sessions[id] = &managed{s: opened, used: m.tick}
	return opened
}

func (m *Manager) lookup(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	m.tick++
	e.used = m.tick
	return e.s, true
}

// evictLocked drops the least recently used session. m.mu must be held.
func (m *Manager) evictLocked() {
	var (
		oldest string
		least  uint64
		found  bool
	)
	for id, e := range m.sessions {
		if !found || e.used < least {
			oldest, least, found = id, e.used, true
		}
	}
	if !found {
		return
	}
	delete(m.sessions, oldest)
	log.Debug().Str("session", oldest).Msg("session evicted")
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
