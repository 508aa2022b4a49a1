package app

import (
	"context"

	"trivia-live-service/internal/domain"
)

// SessionStore is the observable shared session record. Writers mutate
// sub-paths of one session; subscribers receive the full current value on
// every change. Implementations validate each proposed mutation against the
// domain rules (transition table, finished-is-read-only, first-write-wins
// responses) before committing it. No cross-field transaction beyond a single
// call is assumed.
type SessionStore interface {
	CreateSession(ctx context.Context, s domain.Session) error
	GetSession(ctx context.Context, id string) (domain.Session, error)
	UpdateStatus(ctx context.Context, id string, to domain.SessionStatus) error
	// PublishQuestion installs a sanitized question, advances the index,
	// clears any stale correct option and moves the session into question
	// status in a single write.
	PublishQuestion(ctx context.Context, id string, q domain.PublishedQuestion, index int) error
	RevealAnswer(ctx context.Context, id, correctOptionID string) error
	ClearCorrectOption(ctx context.Context, id string) error
	PutPlayer(ctx context.Context, id string, p domain.Player) error
	UpdatePlayerScore(ctx context.Context, id, playerID string, score, streak int) error
	// PutResponse records an answer with first-write-wins semantics: a second
	// write for the same (questionID, playerID) succeeds as a no-op.
	PutResponse(ctx context.Context, id, questionID, playerID string, r domain.Response) error
	RemovePlayer(ctx context.Context, id, playerID string) error
	// Subscribe delivers the current snapshot immediately, then the full
	// session value after every committed change. The caller must invoke the
	// returned cancel function to avoid leaks.
	Subscribe(ctx context.Context, id string) (<-chan domain.Session, func(), error)
}

// QuizCatalog loads authored quiz content, answer keys included. Read-only.
type QuizCatalog interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}
