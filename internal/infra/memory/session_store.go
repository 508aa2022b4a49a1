package memory

import (
	"context"
	"sync"

	"trivia-live-service/internal/domain"
)

// SessionStore is an in-process implementation of app.SessionStore: one
// authoritative session record per id, full-snapshot fan-out to subscribers
// on every committed mutation. It backs single-node deployments, the demo
// flow, and the test suite.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	mu          sync.RWMutex
	session     domain.Session
	subscribers map[chan domain.Session]struct{}
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*sessionEntry)}
}

func (s *SessionStore) CreateSession(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return domain.ErrSessionExists
	}
	s.sessions[session.ID] = &sessionEntry{
		session:     session.Clone(),
		subscribers: make(map[chan domain.Session]struct{}),
	}
	return nil
}

func (s *SessionStore) GetSession(_ context.Context, id string) (domain.Session, error) {
	entry, err := s.entry(id)
	if err != nil {
		return domain.Session{}, err
	}
	entry.mu.RLock()
	defer entry.mu.RUnlock()
	return entry.session.Clone(), nil
}

func (s *SessionStore) UpdateStatus(_ context.Context, id string, to domain.SessionStatus) error {
	return s.mutate(id, func(session *domain.Session) error {
		return session.ApplyStatus(to)
	})
}

func (s *SessionStore) PublishQuestion(_ context.Context, id string, q domain.PublishedQuestion, index int) error {
	return s.mutate(id, func(session *domain.Session) error {
		return session.ApplyPublish(q, index)
	})
}

func (s *SessionStore) RevealAnswer(_ context.Context, id, correctOptionID string) error {
	return s.mutate(id, func(session *domain.Session) error {
		return session.ApplyReveal(correctOptionID)
	})
}

func (s *SessionStore) ClearCorrectOption(_ context.Context, id string) error {
	return s.mutate(id, func(session *domain.Session) error {
		return session.ApplyClearCorrectOption()
	})
}

func (s *SessionStore) PutPlayer(_ context.Context, id string, p domain.Player) error {
	return s.mutate(id, func(session *domain.Session) error {
		return session.ApplyPlayer(p)
	})
}

func (s *SessionStore) UpdatePlayerScore(_ context.Context, id, playerID string, score, streak int) error {
	return s.mutate(id, func(session *domain.Session) error {
		return session.ApplyScore(playerID, score, streak)
	})
}

func (s *SessionStore) PutResponse(_ context.Context, id, questionID, playerID string, r domain.Response) error {
	return s.mutate(id, func(session *domain.Session) error {
		_, err := session.ApplyResponse(questionID, playerID, r)
		return err
	})
}

func (s *SessionStore) RemovePlayer(_ context.Context, id, playerID string) error {
	return s.mutate(id, func(session *domain.Session) error {
		session.RemovePlayerEntry(playerID)
		return nil
	})
}

// Subscribe registers a snapshot channel. The current value is delivered
// first; afterwards every committed mutation produces a fresh full snapshot.
func (s *SessionStore) Subscribe(_ context.Context, id string) (<-chan domain.Session, func(), error) {
	entry, err := s.entry(id)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan domain.Session, 8)

	// The initial snapshot goes out under the entry lock so no concurrent
	// mutation can broadcast a newer snapshot ahead of it.
	entry.mu.Lock()
	entry.subscribers[ch] = struct{}{}
	ch <- entry.session.Clone()
	entry.mu.Unlock()

	cancel := func() {
		entry.mu.Lock()
		if _, ok := entry.subscribers[ch]; ok {
			delete(entry.subscribers, ch)
			close(ch)
		}
		entry.mu.Unlock()
	}
	return ch, cancel, nil
}

func (s *SessionStore) entry(id string) (*sessionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return entry, nil
}

// mutate applies fn to the session under the entry lock and broadcasts the
// resulting snapshot. A rejected mutation leaves the record untouched and
// notifies nobody.
func (s *SessionStore) mutate(id string, fn func(*domain.Session) error) error {
	entry, err := s.entry(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if err := fn(&entry.session); err != nil {
		return err
	}
	entry.broadcastLocked()
	return nil
}

// broadcastLocked fans the current snapshot out to every subscriber, dropping
// the stalest pending update instead of blocking on slow consumers.
func (e *sessionEntry) broadcastLocked() {
	snapshot := e.session.Clone()
	for ch := range e.subscribers {
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}
