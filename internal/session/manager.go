package session

import (
	"context"
	"sync"
	"time"

	"document-assistant/internal/helper"
	"document-assistant/internal/models"

	"github.com/rs/zerolog/log"
)

// DefaultMaxSessions limits concurrent sessions to bound memory use.
const DefaultMaxSessions = 100

// Manager owns all live sessions. Sessions live in memory only and are dropped on
// delete, on idle timeout, or when evicted to make room for a new one.
type Manager struct {
	sessions    map[string]*Session
	mu          sync.RWMutex
	maxSessions int
}

func NewManager(maxSessions int) *Manager {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &Manager{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
	}
}

// Create starts a new session, evicting the least recently used one if the manager
// is full.
func (m *Manager) Create(mode models.Mode) (*Session, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	sess, err := New(id, mode)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sessions) >= m.maxSessions {
		m.evictOldestLocked()
	}
	m.sessions[id] = sess
	log.Debug().Str("session", id).Str("mode", string(sess.Mode())).Msg("Session created")
	return sess, nil
}

// Get returns the session and marks it as recently used.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		sess.touch()
	}
	return sess, ok
}

func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupOldSessions removes sessions idle for longer than maxAge and returns how
// many were removed.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, sess := range m.sessions {
		if sess.LastAccessed().Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Int("remaining", len(m.sessions)).Msg("Cleaned up idle sessions")
	}
	return removed
}

// RunCleanup calls CleanupOldSessions every interval until ctx is done.
func (m *Manager) RunCleanup(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.CleanupOldSessions(maxAge)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) evictOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, sess := range m.sessions {
		if last := sess.LastAccessed(); oldestID == "" || last.Before(oldest) {
			oldestID, oldest = id, last
		}
	}
	if oldestID != "" {
		delete(m.sessions, oldestID)
		log.Warn().Str("session", oldestID).Msg("Session limit reached, evicted least recently used session")
	}
}
