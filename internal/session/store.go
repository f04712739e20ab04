package session

import (
	"context"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/jmoran41/dealership-ai-assistant/internal/booking"
	"github.com/jmoran41/dealership-ai-assistant/pkg/logging"
)

// Mode is the conversation class the session is currently in.
type Mode string

const (
	ModeIdle       Mode = "idle"
	ModeTechnical  Mode = "technical"
	ModeCollecting Mode = "booking_collecting"
	ModeConfirming Mode = "booking_confirming"
)

// maxRecentTurns bounds the per-session turn history kept for escalation
// pattern detection and query contextualization.
const maxRecentTurns = 6

// Session is the per-user conversation state spanning multiple turns.
// All access goes through the Store; the orchestrator's per-user critical
// section guarantees a session is never mutated by two turns at once.
type Session struct {
	UserID       string
	Vehicle      string // active vehicle partition, "" when unresolved
	Mode         Mode
	Draft        booking.Draft
	Language     language.Tag
	RecentTurns  []string // last user messages, oldest first
	LastActivity time.Time
}

// RememberTurn appends a user message to the bounded turn history.
func (s *Session) RememberTurn(text string) {
	s.RecentTurns = append(s.RecentTurns, text)
	if len(s.RecentTurns) > maxRecentTurns {
		s.RecentTurns = s.RecentTurns[len(s.RecentTurns)-maxRecentTurns:]
	}
}

// ResetToIdle clears in-progress work but keeps vehicle context and language,
// so a follow-up question after a booking still knows which car is in play.
func (s *Session) ResetToIdle() {
	s.Mode = ModeIdle
	s.Draft = booking.Draft{}
}

// Store is the process-wide keyed session cache. Sessions are created lazily
// on first message and never explicitly destroyed; entries idle past the TTL
// are reset to idle on access and evicted by the background sweep.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	idleTTL  time.Duration
	now      func() time.Time
	logger   *logging.Logger
}

// NewStore creates a session store with the given idle threshold.
func NewStore(idleTTL time.Duration, logger *logging.Logger) *Store {
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{
		sessions: make(map[string]*Session),
		idleTTL:  idleTTL,
		now:      time.Now,
		logger:   logger,
	}
}

// Get returns the user's session, creating it lazily. A session that sat idle
// past the TTL is stale: its mode and draft are reset before it is returned.
func (s *Store) Get(userID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		sess = &Session{
			UserID:       userID,
			Mode:         ModeIdle,
			Language:     language.English,
			LastActivity: s.now(),
		}
		s.sessions[userID] = sess
		return sess
	}

	if s.now().Sub(sess.LastActivity) > s.idleTTL {
		sess.ResetToIdle()
		sess.Vehicle = ""
		sess.RecentTurns = nil
	}
	return sess
}

// Touch stamps the session's last activity time.
func (s *Store) Touch(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		sess.LastActivity = s.now()
	}
}

// Len returns the number of cached sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// StartEviction sweeps stale sessions until ctx is cancelled.
func (s *Store) StartEviction(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.evictStale()
			}
		}
	}()
}

func (s *Store) evictStale() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.idleTTL)
	evicted := 0
	for userID, sess := range s.sessions {
		if sess.LastActivity.Before(cutoff) {
			delete(s.sessions, userID)
			evicted++
		}
	}
	if evicted > 0 {
		s.logger.Debug("evicted stale sessions", "count", evicted, "remaining", len(s.sessions))
	}
}
