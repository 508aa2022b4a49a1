package app

import (
	"context"
	"math"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"trivia-live-service/internal/domain"
)

// MaxNicknameLength bounds player nicknames, in runes.
const MaxNicknameLength = 12

// PlayerPhase is the player-local view of where it is in the game.
type PlayerPhase string

const (
	PhaseJoin        PlayerPhase = "join"
	PhaseWaiting     PlayerPhase = "waiting"
	PhaseQuestion    PlayerPhase = "question"
	PhaseAnswered    PlayerPhase = "answered"
	PhaseFeedback    PlayerPhase = "feedback"
	PhaseLeaderboard PlayerPhase = "leaderboard"
	PhaseFinished    PlayerPhase = "finished"
)

// Feedback is the per-player outcome of one question, derived locally from
// the revealed snapshot.
type Feedback struct {
	QuestionID   string `json:"questionId"`
	IsCorrect    bool   `json:"isCorrect"`
	XP           int    `json:"xp"`
	Streak       int    `json:"streak"`
	Rank         int    `json:"rank"`
	TotalPlayers int    `json:"totalPlayers"`
}

// EventKind tags events emitted by the player agent toward its UI/transport.
type EventKind string

const (
	EventPhaseChanged    EventKind = "phaseChanged"
	EventQuestionStarted EventKind = "questionStarted"
	EventFeedbackReady   EventKind = "feedbackReady"
)

// Event is one externally observable consequence of a snapshot.
type Event struct {
	Kind EventKind
	// Phase accompanies every event.
	Phase PlayerPhase
	// AdjustedTimeLimit (seconds) accompanies EventQuestionStarted; it is the
	// remaining countdown, which differs from the question's time limit when
	// the player joined mid-question.
	AdjustedTimeLimit int
	// Feedback accompanies EventFeedbackReady.
	Feedback *Feedback
}

// PlayerAgent is the per-player half of the sync protocol: it joins, submits
// at most one response per question, derives its own feedback from the
// revealed state, and writes its score back. All snapshot handling is
// idempotent; re-delivering the same snapshot produces no duplicate effects.
type PlayerAgent struct {
	store     SessionStore
	clock     clockwork.Clock
	log       zerolog.Logger
	sessionID string
	playerID  string

	mu     sync.Mutex
	phase  PlayerPhase
	player domain.Player
	// answeredQuestionID enforces the client-side once-per-question rule for
	// submissions; feedbackComputedForQuestionID keeps a re-delivered
	// feedback snapshot from double-applying the score delta.
	answeredQuestionID            string
	feedbackComputedForQuestionID string
	lastFeedback                  *Feedback
}

func NewPlayerAgent(store SessionStore, clock clockwork.Clock, log zerolog.Logger, sessionID, playerID string) *PlayerAgent {
	return &PlayerAgent{
		store:     store,
		clock:     clock,
		log:       log.With().Str("component", "player").Str("session_id", sessionID).Str("player_id", playerID).Logger(),
		sessionID: sessionID,
		playerID:  playerID,
		phase:     PhaseJoin,
	}
}

// Phase returns the agent's current local phase.
func (p *PlayerAgent) Phase() PlayerPhase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}

// Player returns the locally held player record.
func (p *PlayerAgent) Player() domain.Player {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.player
}

// LastFeedback returns the most recently derived feedback, if any.
func (p *PlayerAgent) LastFeedback() *Feedback {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastFeedback == nil {
		return nil
	}
	fb := *p.lastFeedback
	return &fb
}

// Join validates the nickname against the current snapshot and writes the
// player record. The local phase flips to waiting before the write lands, so
// the UI does not block on the round-trip; a failed write still returns the
// error to the caller.
func (p *PlayerAgent) Join(ctx context.Context, nickname, badge string) error {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" || utf8.RuneCountInString(nickname) > MaxNicknameLength {
		return domain.ErrInvalidNickname
	}

	snap, err := p.store.GetSession(ctx, p.sessionID)
	if err != nil {
		return err
	}
	for id, other := range snap.Players {
		if id != p.playerID && strings.EqualFold(other.Nickname, nickname) {
			return domain.ErrNicknameTaken
		}
	}

	player := domain.Player{
		ID:        p.playerID,
		Nickname:  nickname,
		Badge:     badge,
		Connected: true,
	}
	// A rejoin under the same id keeps the earned score and streak; they
	// only ever move through UpdatePlayerScore.
	if prev, ok := snap.Players[p.playerID]; ok {
		player.Score = prev.Score
		player.Streak = prev.Streak
	}

	p.mu.Lock()
	p.player = player
	p.phase = PhaseWaiting
	p.mu.Unlock()

	if err := p.store.PutPlayer(ctx, p.sessionID, player); err != nil {
		p.log.Error().Err(err).Msg("join write failed")
		return err
	}
	p.log.Info().Str("nickname", nickname).Msg("joined session")
	return nil
}

// SubmitResponse writes the player's answer for the current question, at most
// once per question id. A repeat call for an already-answered question is a
// no-op, not an error.
func (p *PlayerAgent) SubmitResponse(ctx context.Context, questionID, optionID string) error {
	p.mu.Lock()
	if p.answeredQuestionID == questionID {
		p.mu.Unlock()
		return nil
	}
	p.answeredQuestionID = questionID
	p.phase = PhaseAnswered
	p.mu.Unlock()

	response := domain.Response{
		OptionID:  optionID,
		Timestamp: p.clock.Now().UnixMilli(),
	}
	if err := p.store.PutResponse(ctx, p.sessionID, questionID, p.playerID, response); err != nil {
		// The player already sees the locked state; the missing response just
		// means they score zero when feedback is computed.
		p.log.Warn().Err(err).Str("question_id", questionID).Msg("response write failed")
		return err
	}
	return nil
}

// MarkTimeUp transitions to the answered-with-nothing state when the local
// countdown expires. No response is written; the absence of one is the wrong
// answer signal at feedback time.
func (p *PlayerAgent) MarkTimeUp(questionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.answeredQuestionID == questionID {
		return
	}
	p.answeredQuestionID = questionID
	p.phase = PhaseAnswered
}

// Leave removes the player record from the session.
func (p *PlayerAgent) Leave(ctx context.Context) {
	if err := p.store.RemovePlayer(ctx, p.sessionID, p.playerID); err != nil {
		p.log.Warn().Err(err).Msg("leave failed")
	}
}

// Subscribe opens the snapshot stream for this session.
func (p *PlayerAgent) Subscribe(ctx context.Context) (<-chan domain.Session, func(), error) {
	return p.store.Subscribe(ctx, p.sessionID)
}

// HandleSnapshot folds one session snapshot into the agent's local state and
// returns the events the UI should react to. Safe to invoke repeatedly with
// the same snapshot.
func (p *PlayerAgent) HandleSnapshot(ctx context.Context, snap domain.Session) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.phase == PhaseJoin {
		return nil
	}

	switch snap.Status {
	case domain.StatusFinished:
		return p.setPhaseLocked(PhaseFinished)

	case domain.StatusLeaderboard:
		return p.setPhaseLocked(PhaseLeaderboard)

	case domain.StatusLobby:
		return p.setPhaseLocked(PhaseWaiting)

	case domain.StatusQuestion:
		if snap.CurrentQuestion == nil {
			// Partial snapshot: status flipped before the question arrived.
			return nil
		}
		qid := snap.CurrentQuestion.ID
		if p.answeredQuestionID == qid || p.phase == PhaseQuestion {
			return nil
		}
		p.phase = PhaseQuestion
		p.lastFeedback = nil
		return []Event{{
			Kind:              EventQuestionStarted,
			Phase:             PhaseQuestion,
			AdjustedTimeLimit: adjustedTimeLimit(snap.CurrentQuestion, p.clock.Now().UnixMilli()),
		}}

	case domain.StatusFeedback:
		if snap.CurrentQuestion == nil || snap.CorrectOptionID == "" {
			return nil
		}
		return p.deriveFeedbackLocked(ctx, snap)
	}
	return nil
}

// deriveFeedbackLocked computes this player's outcome for the revealed
// question and merges the score back into the shared store. The per-question
// marker guarantees the delta is applied at most once no matter how many
// feedback snapshots arrive.
func (p *PlayerAgent) deriveFeedbackLocked(ctx context.Context, snap domain.Session) []Event {
	qid := snap.CurrentQuestion.ID
	if p.feedbackComputedForQuestionID == qid {
		return nil
	}
	p.feedbackComputedForQuestionID = qid

	response, responded := snap.ResponseOf(qid, p.playerID)
	isCorrect := responded && response.OptionID == snap.CorrectOptionID
	var latency int64
	if responded {
		latency = response.Timestamp - snap.CurrentQuestion.StartedAt
	}
	xp := domain.CalculateScore(isCorrect, latency, int64(snap.CurrentQuestion.TimeLimit)*1000, snap.CurrentQuestion.Points)

	if isCorrect {
		p.player.Streak++
	} else {
		p.player.Streak = 0
	}
	p.player.Score += xp

	if err := p.store.UpdatePlayerScore(ctx, p.sessionID, p.playerID, p.player.Score, p.player.Streak); err != nil {
		// Local score stays correct; the stored one is stale until a future
		// successful write.
		p.log.Warn().Err(err).Msg("score write failed")
	}

	// Rank against the snapshot's players with our fresh score merged in,
	// since our own write has not round-tripped yet.
	players := make(map[string]domain.Player, len(snap.Players))
	for id, pl := range snap.Players {
		players[id] = pl
	}
	players[p.playerID] = p.player
	lb := domain.ProjectLeaderboard(players, p.playerID, domain.DefaultLeaderboardSize)

	fb := &Feedback{
		QuestionID:   qid,
		IsCorrect:    isCorrect,
		XP:           xp,
		Streak:       p.player.Streak,
		Rank:         lb.CurrentPlayerRank,
		TotalPlayers: lb.TotalPlayers,
	}
	p.lastFeedback = fb
	p.phase = PhaseFeedback
	return []Event{
		{Kind: EventPhaseChanged, Phase: PhaseFeedback},
		{Kind: EventFeedbackReady, Phase: PhaseFeedback, Feedback: fb},
	}
}

func (p *PlayerAgent) setPhaseLocked(phase PlayerPhase) []Event {
	if p.phase == phase {
		return nil
	}
	p.phase = phase
	return []Event{{Kind: EventPhaseChanged, Phase: phase}}
}

// adjustedTimeLimit returns the remaining countdown in seconds for a player
// observing the question nowMillis after it started, clamped to at least one
// second so a mid-question joiner always gets a tick.
func adjustedTimeLimit(q *domain.PublishedQuestion, nowMillis int64) int {
	elapsed := float64(nowMillis-q.StartedAt) / 1000
	remaining := int(math.Round(float64(q.TimeLimit) - elapsed))
	if remaining < 1 {
		return 1
	}
	return remaining
}
