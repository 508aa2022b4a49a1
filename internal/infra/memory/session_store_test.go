package memory

import (
	"context"
	"errors"
	"testing"

	"trivia-live-service/internal/domain"
)

func liveSession() domain.Session {
	return domain.NewSession("s1", "quiz-1", "host-1", 2, 1000)
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

func TestSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

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
	if snap.Status != domain.StatusLobby || snap.CurrentQuestionIndex != -1 {
		t.Fatalf("fresh session wrong: %+v", snap)
	}
}

func TestSessionStoreReturnsClones(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	if err := store.CreateSession(ctx, liveSession()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.PutPlayer(ctx, "s1", domain.Player{ID: "p1", Nickname: "Alice"}); err != nil {
		t.Fatalf("put player: %v", err)
	}

	snap, _ := store.GetSession(ctx, "s1")
	snap.Players["p1"] = domain.Player{ID: "p1", Nickname: "Mallory"}

	again, _ := store.GetSession(ctx, "s1")
	if again.Players["p1"].Nickname != "Alice" {
		t.Fatalf("caller mutation leaked into store: %+v", again.Players["p1"])
	}
}

func TestSubscribeDeliversInitialAndUpdates(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	if err := store.CreateSession(ctx, liveSession()); err != nil {
		t.Fatalf("create: %v", err)
	}

	updates, cancel, err := store.Subscribe(ctx, "s1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	first := <-updates
	if first.Status != domain.StatusLobby {
		t.Fatalf("initial snapshot wrong: %+v", first)
	}

	if err := store.PublishQuestion(ctx, "s1", publishedQuestion(), 0); err != nil {
		t.Fatalf("publish: %v", err)
	}
	second := <-updates
	if second.Status != domain.StatusQuestion || second.CurrentQuestion == nil || second.CurrentQuestion.ID != "q1" {
		t.Fatalf("update snapshot wrong: %+v", second)
	}
}

func TestRejectedMutationBroadcastsNothing(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	if err := store.CreateSession(ctx, liveSession()); err != nil {
		t.Fatalf("create: %v", err)
	}

	updates, cancel, err := store.Subscribe(ctx, "s1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()
	<-updates // initial

	// feedback is not reachable from the lobby
	if err := store.UpdateStatus(ctx, "s1", domain.StatusFeedback); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("invalid transition: %v", err)
	}
	select {
	case snap := <-updates:
		t.Fatalf("rejected mutation broadcast: %+v", snap)
	default:
	}
	if snap, _ := store.GetSession(ctx, "s1"); snap.Status != domain.StatusLobby {
		t.Fatalf("rejected mutation changed state: %s", snap.Status)
	}
}

func TestSlowSubscriberDropsStaleNotLatest(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	if err := store.CreateSession(ctx, liveSession()); err != nil {
		t.Fatalf("create: %v", err)
	}

	updates, cancel, err := store.Subscribe(ctx, "s1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	// Never drain: overflow the buffer with more joins than it holds.
	for i := 0; i < 20; i++ {
		nick := string(rune('a' + i))
		if err := store.PutPlayer(ctx, "s1", domain.Player{ID: nick, Nickname: nick}); err != nil {
			t.Fatalf("put player %d: %v", i, err)
		}
	}

	var last domain.Session
	for {
		select {
		case snap := <-updates:
			last = snap
			continue
		default:
		}
		break
	}
	if len(last.Players) != 20 {
		t.Fatalf("latest snapshot missing after overflow: %d players", len(last.Players))
	}
}

func TestSubscribeSnapshotsArriveInOrder(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	if err := store.CreateSession(ctx, liveSession()); err != nil {
		t.Fatalf("create: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			id := string(rune('a'+i%26)) + string(rune('0'+i/26))
			_ = store.PutPlayer(ctx, "s1", domain.Player{ID: id, Nickname: id})
		}
	}()

	// Subscribe while the writer is running: the initial snapshot must never
	// arrive behind a newer one, so player counts only grow.
	updates, cancel, err := store.Subscribe(ctx, "s1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	<-done
	prev := -1
	for {
		var snap domain.Session
		select {
		case snap = <-updates:
		default:
			return
		}
		if len(snap.Players) < prev {
			t.Fatalf("snapshot regressed from %d to %d players", prev, len(snap.Players))
		}
		prev = len(snap.Players)
	}
}

func TestPutResponseKeepsFirstWrite(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
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
	if !ok || response.OptionID != "o1" || response.Timestamp != 2000 {
		t.Fatalf("first write not preserved: %+v", response)
	}
}

func TestCancelClosesSubscription(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	if err := store.CreateSession(ctx, liveSession()); err != nil {
		t.Fatalf("create: %v", err)
	}

	updates, cancel, err := store.Subscribe(ctx, "s1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	<-updates
	cancel()
	cancel() // idempotent

	if _, ok := <-updates; ok {
		t.Fatalf("channel still open after cancel")
	}
	// Mutations after cancel must not panic on the closed channel.
	if err := store.PutPlayer(ctx, "s1", domain.Player{ID: "p1", Nickname: "Alice"}); err != nil {
		t.Fatalf("mutate after cancel: %v", err)
	}
}
