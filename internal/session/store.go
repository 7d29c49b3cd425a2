// Package session persists dialogue state and the per-session chat log.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/wolfman30/appointment-agent/internal/dialogue"
)

// DefaultTTL bounds how long an inactive conversation is kept in Redis.
const DefaultTTL = 24 * time.Hour

// History is a TurnLog that can also be read back in order.
type History interface {
	dialogue.TurnLog
	List(ctx context.Context, sessionID string, limit int64) ([]dialogue.Turn, error)
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]dialogue.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]dialogue.Session)}
}

// Load returns a copy of the stored session, or a new idle one.
func (s *MemoryStore) Load(ctx context.Context, sessionID string) (*dialogue.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return dialogue.NewSession(sessionID), nil
	}
	sess.CandidateSlots = append(sess.CandidateSlots[:0:0], sess.CandidateSlots...)
	if sess.PendingBooking != nil {
		draft := *sess.PendingBooking
		sess.PendingBooking = &draft
	}
	if sess.LastAvailable != nil {
		res := *sess.LastAvailable
		sess.LastAvailable = &res
	}
	return &sess, nil
}

func (s *MemoryStore) Save(ctx context.Context, sess *dialogue.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = *sess
	return nil
}

// MemoryTurnLog keeps chat turns in process memory.
type MemoryTurnLog struct {
	mu    sync.RWMutex
	turns map[string][]dialogue.Turn
}

func NewMemoryTurnLog() *MemoryTurnLog {
	return &MemoryTurnLog{turns: make(map[string][]dialogue.Turn)}
}

func (l *MemoryTurnLog) Append(ctx context.Context, sessionID string, turn dialogue.Turn) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns[sessionID] = append(l.turns[sessionID], turn)
	return nil
}

// List returns the last limit turns in order; limit <= 0 returns all.
func (l *MemoryTurnLog) List(ctx context.Context, sessionID string, limit int64) ([]dialogue.Turn, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	turns := l.turns[sessionID]
	if limit > 0 && int64(len(turns)) > limit {
		turns = turns[int64(len(turns))-limit:]
	}
	return append([]dialogue.Turn{}, turns...), nil
}
