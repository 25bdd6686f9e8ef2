package session

import (
	"sync"
	"time"

	"deview/domain/core"
	"deview/domain/results"
	"deview/internal/metrics"
)

// Session is one browser's explorer. Actions on a session are serialised by
// its mutex; different sessions never share state.
type Session struct {
	ID core.SessionID

	mu       sync.Mutex
	state    State
	lastSeen time.Time
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Do runs action against the current snapshot and installs its result.
// The lock is held for the whole action so recomputations never overlap.
func (s *Session) Do(action func(State) State) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = action(s.state)
	s.lastSeen = time.Now()
	return s.state
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// Manager owns all live sessions.
type Manager struct {
	mu        sync.RWMutex
	sessions  map[core.SessionID]*Session
	threshold results.Threshold
	initial   State
	metrics   *metrics.Metrics
}

// NewManager creates a manager whose new sessions start with threshold.
func NewManager(threshold results.Threshold, m *metrics.Metrics) *Manager {
	return &Manager{
		sessions:  make(map[core.SessionID]*Session),
		threshold: threshold,
		initial:   Initial(threshold),
		metrics:   m,
	}
}

// Preload makes every session created from now on start with table loaded.
func (m *Manager) Preload(table *results.Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initial = Initial(m.threshold).Load(table, "")
}

// Get returns the session for id if it is live.
func (m *Manager) Get(id core.SessionID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Acquire returns the session for a cookie value, creating a new session
// when the value is missing, malformed or unknown. created reports whether
// the caller must issue a new cookie.
func (m *Manager) Acquire(raw string) (s *Session, created bool) {
	if id, err := core.ParseSessionID(raw); err == nil {
		if s, ok := m.Get(id); ok {
			return s, false
		}
	}
	return m.Create(), true
}

// Create starts a new session with a fresh id.
func (m *Manager) Create() *Session {
	s := &Session{
		ID:       core.SessionID(core.NewID()),
		lastSeen: time.Now(),
	}
	m.mu.Lock()
	s.state = m.initial
	m.sessions[s.ID] = s
	n := len(m.sessions)
	m.mu.Unlock()
	m.metrics.SetSessions(n)
	return s
}

// Delete drops a session.
func (m *Manager) Delete(id core.SessionID) {
	m.mu.Lock()
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()
	m.metrics.SetSessions(n)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep evicts sessions idle for longer than ttl and returns how many went.
// Idle times are read without holding the manager lock, so a session busy
// with a long upload never blocks Acquire for everyone else.
func (m *Manager) Sweep(ttl time.Duration) int {
	m.mu.RLock()
	snapshot := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		snapshot = append(snapshot, s)
	}
	m.mu.RUnlock()

	now := time.Now()
	var idle []*Session
	for _, s := range snapshot {
		if s.idleSince(now) > ttl {
			idle = append(idle, s)
		}
	}

	m.mu.Lock()
	evicted := 0
	for _, s := range idle {
		if m.sessions[s.ID] == s {
			delete(m.sessions, s.ID)
			evicted++
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()
	m.metrics.SetSessions(n)
	return evicted
}
