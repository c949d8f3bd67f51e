package orchestrate

import (
	"maps"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/wealthops/advisory-mesh/messaging"
)

// SessionStatus tracks a query session's lifecycle.
type SessionStatus string

const (
	SessionActive   SessionStatus = "active"
	SessionComplete SessionStatus = "complete"
	SessionError    SessionStatus = "error"
)

// Session records one query's progress through the mesh, keyed by its
// correlation id.
type Session struct {
	CorrelationID string
	Query         string
	Intent        messaging.Intent
	Status        SessionStatus
	Results       map[messaging.Agent]map[string]any
	Failures      map[messaging.Agent]string
	StartedAt     time.Time
	EndedAt       time.Time
}

// SessionStore retains recent query sessions in a bounded LRU with a
// TTL, so completed sessions remain inspectable for a while and
// abandoned ones age out instead of accumulating.
type SessionStore struct {
	mu  sync.Mutex
	lru *expirable.LRU[string, *Session]
}

// NewSessionStore creates a store holding at most capacity sessions,
// each evicted ttl after its last write.
func NewSessionStore(capacity int, ttl time.Duration) *SessionStore {
	return &SessionStore{
		lru: expirable.NewLRU[string, *Session](capacity, nil, ttl),
	}
}

// Begin records a new active session.
func (s *SessionStore) Begin(correlationID, query string, intent messaging.Intent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lru.Add(correlationID, &Session{
		CorrelationID: correlationID,
		Query:         query,
		Intent:        intent,
		Status:        SessionActive,
		Results:       make(map[messaging.Agent]map[string]any),
		Failures:      make(map[messaging.Agent]string),
		StartedAt:     time.Now().UTC(),
	})
}

// RecordResult stores one agent's successful result.
func (s *SessionStore) RecordResult(correlationID string, agent messaging.Agent, result map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, exists := s.lru.Get(correlationID); exists {
		sess.Results[agent] = result
	}
}

// RecordFailure stores one agent's failure diagnostic.
func (s *SessionStore) RecordFailure(correlationID string, agent messaging.Agent, errText string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, exists := s.lru.Get(correlationID); exists {
		sess.Failures[agent] = errText
	}
}

// Finish marks the session terminal.
func (s *SessionStore) Finish(correlationID string, status SessionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, exists := s.lru.Get(correlationID); exists {
		sess.Status = status
		sess.EndedAt = time.Now().UTC()
	}
}

// Get returns a copy of the session, so callers can inspect it without
// racing the coordinator.
func (s *SessionStore) Get(correlationID string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, exists := s.lru.Get(correlationID)
	if !exists {
		return Session{}, false
	}
	return snapshot(sess), true
}

// Len returns the number of retained sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

// Drain removes and returns every retained session, oldest first. Used
// at shutdown to report on in-flight work.
func (s *SessionStore) Drain() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.lru.Keys()
	sessions := make([]Session, 0, len(keys))
	for _, key := range keys {
		if sess, exists := s.lru.Peek(key); exists {
			sessions = append(sessions, snapshot(sess))
			s.lru.Remove(key)
		}
	}
	return sessions
}

func snapshot(sess *Session) Session {
	copied := *sess
	copied.Results = maps.Clone(sess.Results)
	copied.Failures = maps.Clone(sess.Failures)
	return copied
}
