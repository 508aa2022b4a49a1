package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"trivia-live-service/internal/domain"
)

// maxTxRetries bounds optimistic-lock retries when concurrent writers race
// on the same session key.
const maxTxRetries = 5

// SessionStore keeps each session as one JSON value and publishes the full
// snapshot on a per-session channel after every committed mutation, so
// subscribers on any node observe the same full-value-on-change contract as
// the in-memory store. Mutations go through WATCH transactions; the domain
// apply helpers run between read and write, so an illegal mutation aborts
// before anything is committed.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) CreateSession(ctx context.Context, session domain.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.key(session.ID), payload, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if !ok {
		return domain.ErrSessionExists
	}
	s.publish(ctx, session.ID, payload)
	return nil
}

func (s *SessionStore) GetSession(ctx context.Context, id string) (domain.Session, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return session, nil
}

func (s *SessionStore) UpdateStatus(ctx context.Context, id string, to domain.SessionStatus) error {
	return s.mutate(ctx, id, func(session *domain.Session) error {
		return session.ApplyStatus(to)
	})
}

func (s *SessionStore) PublishQuestion(ctx context.Context, id string, q domain.PublishedQuestion, index int) error {
	return s.mutate(ctx, id, func(session *domain.Session) error {
		return session.ApplyPublish(q, index)
	})
}

func (s *SessionStore) RevealAnswer(ctx context.Context, id, correctOptionID string) error {
	return s.mutate(ctx, id, func(session *domain.Session) error {
		return session.ApplyReveal(correctOptionID)
	})
}

func (s *SessionStore) ClearCorrectOption(ctx context.Context, id string) error {
	return s.mutate(ctx, id, func(session *domain.Session) error {
		return session.ApplyClearCorrectOption()
	})
}

func (s *SessionStore) PutPlayer(ctx context.Context, id string, p domain.Player) error {
	return s.mutate(ctx, id, func(session *domain.Session) error {
		return session.ApplyPlayer(p)
	})
}

func (s *SessionStore) UpdatePlayerScore(ctx context.Context, id, playerID string, score, streak int) error {
	return s.mutate(ctx, id, func(session *domain.Session) error {
		return session.ApplyScore(playerID, score, streak)
	})
}

func (s *SessionStore) PutResponse(ctx context.Context, id, questionID, playerID string, r domain.Response) error {
	return s.mutate(ctx, id, func(session *domain.Session) error {
		_, err := session.ApplyResponse(questionID, playerID, r)
		return err
	})
}

func (s *SessionStore) RemovePlayer(ctx context.Context, id, playerID string) error {
	return s.mutate(ctx, id, func(session *domain.Session) error {
		session.RemovePlayerEntry(playerID)
		return nil
	})
}

// Subscribe bridges the per-session pub/sub channel into the snapshot-channel
// contract: current value first, then every published snapshot, stalest
// update dropped when the consumer lags.
func (s *SessionStore) Subscribe(ctx context.Context, id string) (<-chan domain.Session, func(), error) {
	initial, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	pubsub := s.client.Subscribe(ctx, s.channel(id))
	// Force the subscription to be established before the first snapshot so
	// no update between Get and Subscribe is silently dropped forever; the
	// next write re-delivers the full value anyway.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe session: %w", err)
	}

	ch := make(chan domain.Session, 8)
	ch <- initial

	done := make(chan struct{})
	go func() {
		defer close(ch)
		msgs := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var session domain.Session
				if err := json.Unmarshal([]byte(msg.Payload), &session); err != nil {
					continue
				}
				select {
				case ch <- session:
				default:
					select {
					case <-ch:
					default:
					}
					ch <- session
				}
			}
		}
	}()

	cancel := func() {
		close(done)
		_ = pubsub.Close()
	}
	return ch, cancel, nil
}

// mutate runs read-apply-write under WATCH so concurrent writers to the same
// session serialize; on conflict the whole read-apply-write is retried.
func (s *SessionStore) mutate(ctx context.Context, id string, fn func(*domain.Session) error) error {
	key := s.key(id)

	var committed []byte
	txn := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrSessionNotFound
		}
		if err != nil {
			return err
		}

		var session domain.Session
		if err := json.Unmarshal(raw, &session); err != nil {
			return fmt.Errorf("unmarshal session: %w", err)
		}
		if err := fn(&session); err != nil {
			return err
		}
		payload, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		if err == nil {
			committed = payload
		}
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return err
		}
		s.publish(ctx, id, committed)
		return nil
	}
	return fmt.Errorf("session %q: %w", id, redis.TxFailedErr)
}

func (s *SessionStore) publish(ctx context.Context, id string, payload []byte) {
	// Best-effort: a missed publish means subscribers catch up on the next
	// committed write.
	_ = s.client.Publish(ctx, s.channel(id), payload).Err()
}

func (s *SessionStore) key(id string) string {
	return "session:" + id
}

func (s *SessionStore) channel(id string) string {
	return "session:" + id + ":updates"
}
