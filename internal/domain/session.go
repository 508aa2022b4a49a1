package domain

// SessionStatus is the canonical game phase of a live session.
type SessionStatus string

const (
	StatusLobby       SessionStatus = "lobby"
	StatusQuestion    SessionStatus = "question"
	StatusFeedback    SessionStatus = "feedback"
	StatusLeaderboard SessionStatus = "leaderboard"
	StatusFinished    SessionStatus = "finished"
)

// Valid reports whether s is one of the known statuses.
func (s SessionStatus) Valid() bool {
	switch s {
	case StatusLobby, StatusQuestion, StatusFeedback, StatusLeaderboard, StatusFinished:
		return true
	}
	return false
}

// Player is a joined participant. Score is cumulative and never decreases;
// Streak counts consecutive correct answers and resets to zero on a miss.
type Player struct {
	ID        string `json:"id"`
	Nickname  string `json:"nickname"`
	Badge     string `json:"badge"`
	Score     int    `json:"score"`
	Streak    int    `json:"streak"`
	Connected bool   `json:"connected"`
}

// Response is a single player's answer to one question. Timestamp is
// client-assigned epoch millis at submission time.
type Response struct {
	OptionID  string `json:"optionId"`
	Timestamp int64  `json:"timestamp"`
}

// PublishedOption is an answer choice with the correctness flag stripped.
type PublishedOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// MediaRef is the minimal media projection pushed to clients.
type MediaRef struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// PublishedQuestion is the answer-key-free projection of a quiz question
// that the host pushes to all subscribers. StartedAt (epoch millis, host
// clock) is the shared reference every latency computation uses.
type PublishedQuestion struct {
	ID        string            `json:"id"`
	Label     string            `json:"label"`
	Options   []PublishedOption `json:"options"`
	Media     *MediaRef         `json:"media,omitempty"`
	TimeLimit int               `json:"timeLimit"` // seconds
	Points    int               `json:"points"`
	StartedAt int64             `json:"startedAt"`
}

// HasOption reports whether optionID is one of the published choices.
func (q *PublishedQuestion) HasOption(optionID string) bool {
	if q == nil {
		return false
	}
	for _, o := range q.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}

// Session is the single authoritative record of one live game. Game-state
// fields (Status, CurrentQuestion, CorrectOptionID, CurrentQuestionIndex)
// are written only by the host; players write only their own Player record
// and Responses entries.
type Session struct {
	ID                   string                         `json:"id"`
	QuizID               string                         `json:"quizId"`
	Status               SessionStatus                  `json:"status"`
	CurrentQuestion      *PublishedQuestion             `json:"currentQuestion,omitempty"`
	CorrectOptionID      string                         `json:"correctOptionId,omitempty"`
	CurrentQuestionIndex int                            `json:"currentQuestionIndex"`
	TotalQuestions       int                            `json:"totalQuestions"`
	Players              map[string]Player              `json:"players"`
	Responses            map[string]map[string]Response `json:"responses"`
	HostID               string                         `json:"hostId"`
	CreatedAt            int64                          `json:"createdAt"`
}

// NewSession returns a lobby-state session with empty player/response maps.
func NewSession(id, quizID, hostID string, totalQuestions int, createdAt int64) Session {
	return Session{
		ID:                   id,
		QuizID:               quizID,
		Status:               StatusLobby,
		CurrentQuestionIndex: -1,
		TotalQuestions:       totalQuestions,
		Players:              make(map[string]Player),
		Responses:            make(map[string]map[string]Response),
		HostID:               hostID,
		CreatedAt:            createdAt,
	}
}

// Clone deep-copies the session so snapshots handed to subscribers can never
// alias store-internal maps.
func (s Session) Clone() Session {
	out := s
	if s.CurrentQuestion != nil {
		q := *s.CurrentQuestion
		q.Options = append([]PublishedOption(nil), s.CurrentQuestion.Options...)
		if s.CurrentQuestion.Media != nil {
			m := *s.CurrentQuestion.Media
			q.Media = &m
		}
		out.CurrentQuestion = &q
	}
	out.Players = make(map[string]Player, len(s.Players))
	for id, p := range s.Players {
		out.Players[id] = p
	}
	out.Responses = make(map[string]map[string]Response, len(s.Responses))
	for qid, byPlayer := range s.Responses {
		m := make(map[string]Response, len(byPlayer))
		for pid, r := range byPlayer {
			m[pid] = r
		}
		out.Responses[qid] = m
	}
	return out
}

// ResponsesFor returns the recorded responses for a question id.
func (s *Session) ResponsesFor(questionID string) map[string]Response {
	if s.Responses == nil {
		return nil
	}
	return s.Responses[questionID]
}

// ResponseOf looks up one player's response for a question id.
func (s *Session) ResponseOf(questionID, playerID string) (Response, bool) {
	r, ok := s.ResponsesFor(questionID)[playerID]
	return r, ok
}

// AllPlayersAnswered reports whether every player currently in the session
// has a response recorded for questionID. False when there are no players.
func (s *Session) AllPlayersAnswered(questionID string) bool {
	if len(s.Players) == 0 {
		return false
	}
	responses := s.ResponsesFor(questionID)
	for id := range s.Players {
		if _, ok := responses[id]; !ok {
			return false
		}
	}
	return true
}
