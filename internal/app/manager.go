package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"trivia-live-service/internal/domain"
)

// SessionManager mints and loads session records. Creation is the only time
// totalQuestions is fixed; everything after that goes through the host
// controller and the store.
type SessionManager struct {
	store   SessionStore
	catalog QuizCatalog
	clock   clockwork.Clock
	log     zerolog.Logger
}

func NewSessionManager(store SessionStore, catalog QuizCatalog, clock clockwork.Clock, log zerolog.Logger) *SessionManager {
	return &SessionManager{
		store:   store,
		catalog: catalog,
		clock:   clock,
		log:     log.With().Str("component", "session_manager").Logger(),
	}
}

// CreateSession loads the quiz to pin totalQuestions, then writes a fresh
// lobby-state session keyed by a generated id.
func (m *SessionManager) CreateSession(ctx context.Context, quizID, hostID string) (domain.Session, error) {
	quiz, err := m.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("load quiz %q: %w", quizID, err)
	}

	session := domain.NewSession(uuid.NewString(), quizID, hostID, len(quiz.Questions), m.clock.Now().UnixMilli())
	if err := m.store.CreateSession(ctx, session); err != nil {
		return domain.Session{}, fmt.Errorf("create session: %w", err)
	}
	m.log.Info().
		Str("session_id", session.ID).
		Str("quiz_id", quizID).
		Int("total_questions", session.TotalQuestions).
		Msg("session created")
	return session, nil
}

// GetSession loads the current session record.
func (m *SessionManager) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	return m.store.GetSession(ctx, sessionID)
}
