// Package session keeps one isolated analysis per uploaded gradebook.
package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"gradecli/internal/analysis"
	"gradecli/internal/gradebook"
)

// ErrNotFound is returned for unknown or expired sessions
var ErrNotFound = errors.New("session not found")

// Session owns the parsed roster and analyzer of one uploaded file.
// Roster and Analyzer are never mutated after creation.
type Session struct {
	ID         string
	Filename   string
	CreatedAt  time.Time
	LastAccess time.Time
	Roster     *gradebook.Roster
	Analyzer   *analysis.Analyzer
}

// RemoveReason says why a session left the store
type RemoveReason string

const (
	RemovedDeleted RemoveReason = "deleted"
	RemovedExpired RemoveReason = "expired"
	RemovedEvicted RemoveReason = "evicted"
)

// Config bounds the store
type Config struct {
	TTL         time.Duration
	MaxSessions int
	// OnRemove is called with the store lock held; it must not call back into the store.
	OnRemove func(id string, reason RemoveReason)
}

// Store is an in-memory session registry
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	cfg      Config
	now      func() time.Time
	logger   *slog.Logger
}

// NewStore creates an empty store. A zero TTL disables expiry and a zero
// MaxSessions disables the size bound.
func NewStore(cfg Config, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "session_store")),
	}
}

// Create registers a new session. When the store is full the least recently
// used session is evicted.
func (s *Store) Create(filename string, roster *gradebook.Roster, analyzer *analysis.Analyzer) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.MaxSessions > 0 && len(s.sessions) >= s.cfg.MaxSessions {
		s.evictOldestLocked()
	}

	now := s.now()
	sess := &Session{
		ID:         uuid.New().String(),
		Filename:   filename,
		CreatedAt:  now,
		LastAccess: now,
		Roster:     roster,
		Analyzer:   analyzer,
	}
	s.sessions[sess.ID] = sess

	s.logger.Info("Session created",
		slog.String("session_id", sess.ID),
		slog.String("filename", filename),
		slog.Int("active_sessions", len(s.sessions)))

	copied := *sess
	return &copied
}

// Get returns a copy of the session and refreshes its access time
func (s *Store) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	now := s.now()
	if s.expired(sess, now) {
		s.removeLocked(id, RemovedExpired)
		return nil, ErrNotFound
	}
	sess.LastAccess = now

	copied := *sess
	return &copied, nil
}

// Delete discards a session
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	s.removeLocked(id, RemovedDeleted)
	s.logger.Info("Session deleted", slog.String("session_id", id))
	return nil
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// ExpiresAt returns when sess expires if left idle, zero when expiry is disabled
func (s *Store) ExpiresAt(sess *Session) time.Time {
	if s.cfg.TTL <= 0 {
		return time.Time{}
	}
	return sess.LastAccess.Add(s.cfg.TTL)
}

// CleanupExpired removes idle sessions and returns how many were removed
func (s *Store) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			s.removeLocked(id, RemovedExpired)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("Expired sessions removed",
			slog.Int("removed", removed),
			slog.Int("active_sessions", len(s.sessions)))
	}
	return removed
}

// RunJanitor removes expired sessions every interval until ctx is done
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.CleanupExpired()
		}
	}
}

func (s *Store) expired(sess *Session, now time.Time) bool {
	return s.cfg.TTL > 0 && now.Sub(sess.LastAccess) > s.cfg.TTL
}

func (s *Store) evictOldestLocked() {
	var oldest *Session
	for _, sess := range s.sessions {
		if oldest == nil || sess.LastAccess.Before(oldest.LastAccess) {
			oldest = sess
		}
	}
	if oldest != nil {
		s.removeLocked(oldest.ID, RemovedEvicted)
		s.logger.Warn("Session evicted", slog.String("session_id", oldest.ID))
	}
}

func (s *Store) removeLocked(id string, reason RemoveReason) {
	delete(s.sessions, id)
	if s.cfg.OnRemove != nil {
		s.cfg.OnRemove(id, reason)
	}
}
