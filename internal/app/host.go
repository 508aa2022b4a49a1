package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"trivia-live-service/internal/domain"
)

// DefaultAutoAdvanceDelay is how long the watchdog lingers on the feedback
// screen before showing the leaderboard.
const DefaultAutoAdvanceDelay = 2 * time.Second

// HostController is the single writer allowed to drive a session's game
// state forward. It owns the auto-advance watchdog: once every player has
// answered the current question it reveals results without host interaction,
// then shows the leaderboard after a short delay.
//
// All watchdog bookkeeping is keyed by question id, not index, so it survives
// question-object replacement and duplicate snapshots.
type HostController struct {
	store            SessionStore
	catalog          QuizCatalog
	clock            clockwork.Clock
	log              zerolog.Logger
	sessionID        string
	autoAdvanceDelay time.Duration

	mu       sync.Mutex
	quiz     *domain.Quiz
	snapshot *domain.Session

	// lastAutoAdvancedQuestionID marks questions the watchdog already
	// auto-revealed; it is what keeps rule 1 from re-firing on every
	// subsequent snapshot, and gates the delayed leaderboard so a manual
	// reveal never auto-advances.
	lastAutoAdvancedQuestionID string
	leaderboardScheduledFor    string
	lbTimer                    clockwork.Timer
}

// HostOption tweaks controller construction.
type HostOption func(*HostController)

// WithAutoAdvanceDelay overrides the feedback-to-leaderboard delay.
func WithAutoAdvanceDelay(d time.Duration) HostOption {
	return func(h *HostController) { h.autoAdvanceDelay = d }
}

func NewHostController(store SessionStore, catalog QuizCatalog, clock clockwork.Clock, log zerolog.Logger, sessionID string, opts ...HostOption) *HostController {
	h := &HostController{
		store:            store,
		catalog:          catalog,
		clock:            clock,
		log:              log.With().Str("component", "host").Str("session_id", sessionID).Logger(),
		sessionID:        sessionID,
		autoAdvanceDelay: DefaultAutoAdvanceDelay,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run subscribes to the session and evaluates the watchdog on every snapshot
// until the context is cancelled or the subscription closes.
func (h *HostController) Run(ctx context.Context) error {
	snapshots, cancel, err := h.store.Subscribe(ctx, h.sessionID)
	if err != nil {
		return fmt.Errorf("subscribe session %q: %w", h.sessionID, err)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			h.stopTimerLocked()
			h.mu.Unlock()
			return ctx.Err()
		case snap, ok := <-snapshots:
			if !ok {
				return nil
			}
			h.HandleSnapshot(ctx, snap)
		}
	}
}

// Start publishes question zero and moves the session out of the lobby.
// A quiz with no questions is a fatal precondition for this session: the
// error is surfaced to the host, nothing is retried.
func (h *HostController) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	snap, err := h.snapshotLocked(ctx)
	if err != nil {
		return err
	}
	if snap.Status != domain.StatusLobby {
		h.log.Warn().Str("status", string(snap.Status)).Msg("start: session already underway")
		return domain.ErrInvalidTransition
	}
	quiz, err := h.ensureQuizLocked(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("start: quiz unavailable")
		return err
	}
	if len(quiz.Questions) == 0 {
		h.log.Error().Str("quiz_id", quiz.ID).Msg("start: quiz has no questions")
		return domain.ErrQuizEmpty
	}
	return h.publishLocked(ctx, quiz, 0)
}

// Advance moves from the leaderboard to the next question, or to finished
// when the quiz is exhausted.
func (h *HostController) Advance(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	snap, err := h.snapshotLocked(ctx)
	if err != nil {
		return err
	}
	quiz, err := h.ensureQuizLocked(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("advance: quiz unavailable")
		return err
	}

	next := snap.CurrentQuestionIndex + 1
	if next < len(quiz.Questions) {
		return h.publishLocked(ctx, quiz, next)
	}
	if err := h.store.UpdateStatus(ctx, h.sessionID, domain.StatusFinished); err != nil {
		h.log.Error().Err(err).Msg("advance: finish failed")
		return err
	}
	h.log.Info().Msg("session finished")
	return nil
}

// RevealResults looks up the answer key for the current question and writes
// the reveal. A manual reveal does not arm the delayed-leaderboard timer;
// only watchdog-triggered reveals do.
func (h *HostController) RevealResults(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	snap, err := h.snapshotLocked(ctx)
	if err != nil {
		return err
	}
	return h.revealLocked(ctx, snap)
}

// ShowLeaderboard is the manual override to move to the leaderboard screen.
func (h *HostController) ShowLeaderboard(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopTimerLocked()
	if err := h.store.UpdateStatus(ctx, h.sessionID, domain.StatusLeaderboard); err != nil {
		h.log.Warn().Err(err).Msg("show leaderboard rejected")
		return err
	}
	return nil
}

// End terminates the session from any non-finished state.
func (h *HostController) End(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopTimerLocked()
	if err := h.store.UpdateStatus(ctx, h.sessionID, domain.StatusFinished); err != nil {
		h.log.Warn().Err(err).Msg("end rejected")
		return err
	}
	h.log.Info().Msg("session ended by host")
	return nil
}

// HandleSnapshot runs one watchdog evaluation. It must be safe to call any
// number of times with the same effective snapshot: all writes are guarded by
// per-question-id markers, and a failed write is retried naturally on the
// next snapshot because the marker was never advanced.
func (h *HostController) HandleSnapshot(ctx context.Context, snap domain.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapshot = &snap

	if snap.CurrentQuestion == nil {
		// Transient partial snapshot (status flipped before the question
		// arrived) or still in the lobby: nothing to evaluate.
		return
	}
	qid := snap.CurrentQuestion.ID

	if snap.Status == domain.StatusQuestion && qid != h.lastAutoAdvancedQuestionID && snap.AllPlayersAnswered(qid) {
		if err := h.revealLocked(ctx, snap); err != nil {
			h.log.Warn().Err(err).Str("question_id", qid).Msg("auto-reveal failed")
		} else {
			h.lastAutoAdvancedQuestionID = qid
			h.log.Info().Str("question_id", qid).Msg("all players answered, auto-revealed")
		}
	}

	if snap.Status == domain.StatusFeedback && qid == h.lastAutoAdvancedQuestionID {
		h.scheduleLeaderboardLocked(ctx, qid)
	} else {
		// A non-feedback snapshot disarms the delayed leaderboard. Clearing
		// the marker lets a later feedback snapshot for the same question
		// rearm it.
		h.stopTimerLocked()
		h.leaderboardScheduledFor = ""
	}
}

// scheduleLeaderboardLocked arms the one-shot feedback-to-leaderboard timer,
// at most once per auto-revealed question.
func (h *HostController) scheduleLeaderboardLocked(ctx context.Context, qid string) {
	if h.leaderboardScheduledFor == qid {
		return
	}
	h.stopTimerLocked()
	h.leaderboardScheduledFor = qid

	timer := h.clock.NewTimer(h.autoAdvanceDelay)
	h.lbTimer = timer
	go func() {
		select {
		case <-timer.Chan():
			h.fireDelayedLeaderboard(ctx, qid)
		case <-ctx.Done():
			stopAndDrainTimer(timer)
		}
	}()
	h.log.Debug().Str("question_id", qid).Dur("delay", h.autoAdvanceDelay).Msg("leaderboard scheduled")
}

func (h *HostController) fireDelayedLeaderboard(ctx context.Context, qid string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lbTimer = nil

	// The session may have moved on (manual override, next question, end)
	// while the timer was pending; only write if we are still on the
	// feedback screen of the question that armed the timer.
	snap := h.snapshot
	if snap == nil || snap.Status != domain.StatusFeedback ||
		snap.CurrentQuestion == nil || snap.CurrentQuestion.ID != qid {
		return
	}
	if err := h.store.UpdateStatus(ctx, h.sessionID, domain.StatusLeaderboard); err != nil {
		h.log.Warn().Err(err).Str("question_id", qid).Msg("auto-leaderboard failed")
		// Allow the next feedback snapshot to rearm the timer.
		h.leaderboardScheduledFor = ""
		return
	}
	h.log.Info().Str("question_id", qid).Msg("auto-advanced to leaderboard")
}

func (h *HostController) stopTimerLocked() {
	if h.lbTimer != nil {
		stopAndDrainTimer(h.lbTimer)
		h.lbTimer = nil
	}
}

// stopAndDrainTimer stops a timer and drains its channel so the waiting
// goroutine cannot fire on a stale tick.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}

func (h *HostController) publishLocked(ctx context.Context, quiz *domain.Quiz, index int) error {
	sanitized := domain.SanitizeQuestion(quiz.Questions[index], quiz.BasePoints(), h.clock.Now())
	if err := h.store.ClearCorrectOption(ctx, h.sessionID); err != nil {
		h.log.Warn().Err(err).Msg("clear correct option failed")
	}
	if err := h.store.PublishQuestion(ctx, h.sessionID, sanitized, index); err != nil {
		h.log.Error().Err(err).Int("index", index).Msg("publish question failed")
		return err
	}
	h.log.Info().Int("index", index).Str("question_id", sanitized.ID).Msg("question published")
	return nil
}

// revealLocked resolves the answer key from the unsanitized quiz and writes
// the reveal. Unresolvable keys (corrupt quiz data, index out of range) log
// and no-op rather than poisoning the shared record.
func (h *HostController) revealLocked(ctx context.Context, snap domain.Session) error {
	if snap.Status != domain.StatusQuestion || snap.CurrentQuestion == nil {
		h.log.Warn().Str("status", string(snap.Status)).Msg("reveal: no active question")
		return domain.ErrNoCurrentQuestion
	}
	quiz, err := h.ensureQuizLocked(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("reveal: quiz unavailable")
		return err
	}
	if snap.CurrentQuestionIndex < 0 || snap.CurrentQuestionIndex >= len(quiz.Questions) {
		h.log.Warn().Int("index", snap.CurrentQuestionIndex).Msg("reveal: question index out of range")
		return domain.ErrQuestionNotFound
	}
	question := quiz.Questions[snap.CurrentQuestionIndex]
	correct, ok := question.CorrectOption()
	if !ok {
		h.log.Warn().Str("question_id", question.ID).Msg("reveal: no correct option in quiz data")
		return domain.ErrOptionNotFound
	}
	if err := h.store.RevealAnswer(ctx, h.sessionID, correct.ID); err != nil {
		h.log.Warn().Err(err).Msg("reveal write failed")
		return err
	}
	return nil
}

func (h *HostController) ensureQuizLocked(ctx context.Context) (*domain.Quiz, error) {
	if h.quiz != nil {
		return h.quiz, nil
	}
	snap, err := h.snapshotLocked(ctx)
	if err != nil {
		return nil, err
	}
	quiz, err := h.catalog.GetQuiz(ctx, snap.QuizID)
	if err != nil {
		return nil, err
	}
	h.quiz = &quiz
	return h.quiz, nil
}

func (h *HostController) snapshotLocked(ctx context.Context) (domain.Session, error) {
	if h.snapshot != nil {
		return *h.snapshot, nil
	}
	snap, err := h.store.GetSession(ctx, h.sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	h.snapshot = &snap
	return snap, nil
}
