package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"trivia-live-service/internal/domain"
)

func newTestStore(t *testing.T) *SessionStore {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return NewSessionStore(newClient(mr), time.Hour)
}

func liveSession() domain.Session {
	return domain.NewSession("s1", "quiz-1", "host-1", 1, 1000)
}

func publishedQuestion() domain.PublishedQuestion {
	return domain.PublishedQuestion{
		ID:    "q1",
		Label: "What is 2 + 2?",
		Options: []domain.PublishedOption{
			{ID: "o1", Text: "3"},
			{ID: "o2", Text: "4"},
		},
		TimeLimit: 20,
		StartedAt: 1000,
	}
}

func TestSessionStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.CreateSession(ctx, liveSession()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.CreateSession(ctx, liveSession()); !errors.Is(err, domain.ErrSessionExists) {
		t.Fatalf("duplicate create: %v", err)
	}
	if _, err := store.GetSession(ctx, "nope"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("missing session: %v", err)
	}

	snap, err := store.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if snap.Status != domain.StatusLobby || snap.QuizID != "quiz-1" || snap.CurrentQuestionIndex != -1 {
		t.Fatalf("round-tripped session wrong: %+v", snap)
	}
}

func TestMutationsValidateBeforeCommit(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	if err := store.CreateSession(ctx, liveSession()); err != nil {
		t.Fatalf("create: %v", err)
	}

	// feedback is not reachable from the lobby
	if err := store.UpdateStatus(ctx, "s1", domain.StatusFeedback); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("invalid transition: %v", err)
	}
	if snap, _ := store.GetSession(ctx, "s1"); snap.Status != domain.StatusLobby {
		t.Fatalf("rejected mutation committed: %s", snap.Status)
	}

	if err := store.PublishQuestion(ctx, "s1", publishedQuestion(), 0); err != nil {
		t.Fatalf("publish: %v", err)
	}
	snap, _ := store.GetSession(ctx, "s1")
	if snap.Status != domain.StatusQuestion || snap.CurrentQuestion == nil || snap.CurrentQuestion.ID != "q1" {
		t.Fatalf("publish state wrong: %+v", snap)
	}
}

func TestPutResponseKeepsFirstWrite(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	if err := store.CreateSession(ctx, liveSession()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.PutPlayer(ctx, "s1", domain.Player{ID: "p1", Nickname: "Alice"}); err != nil {
		t.Fatalf("put player: %v", err)
	}
	if err := store.PublishQuestion(ctx, "s1", publishedQuestion(), 0); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if err := store.PutResponse(ctx, "s1", "q1", "p1", domain.Response{OptionID: "o1", Timestamp: 2000}); err != nil {
		t.Fatalf("first response: %v", err)
	}
	if err := store.PutResponse(ctx, "s1", "q1", "p1", domain.Response{OptionID: "o2", Timestamp: 3000}); err != nil {
		t.Fatalf("second response: %v", err)
	}

	snap, _ := store.GetSession(ctx, "s1")
	response, ok := snap.ResponseOf("q1", "p1")
	if !ok || response.OptionID != "o1" {
		t.Fatalf("first write not preserved: %+v", response)
	}
}

func TestSubscribeDeliversInitialAndPublished(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	if err := store.CreateSession(ctx, liveSession()); err != nil {
		t.Fatalf("create: %v", err)
	}

	updates, cancel, err := store.Subscribe(ctx, "s1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	first := recv(t, updates)
	if first.Status != domain.StatusLobby {
		t.Fatalf("initial snapshot wrong: %+v", first)
	}

	if err := store.PutPlayer(ctx, "s1", domain.Player{ID: "p1", Nickname: "Alice"}); err != nil {
		t.Fatalf("put player: %v", err)
	}
	second := recv(t, updates)
	if _, ok := second.Players["p1"]; !ok {
		t.Fatalf("published snapshot missing player: %+v", second)
	}
}

func TestSubscribeUnknownSession(t *testing.T) {
	store := newTestStore(t)
	if _, _, err := store.Subscribe(context.Background(), "nope"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func recv(t *testing.T, updates <-chan domain.Session) domain.Session {
	t.Helper()
	select {
	case snap := <-updates:
		return snap
	case <-time.After(2 * time.Second):
		t.Fatalf("no snapshot within deadline")
		return domain.Session{}
	}
}
