package domain

// Session mutation helpers shared by every store implementation. All writers
// funnel proposed changes through these so the transition table and the
// finished-is-read-only rule are enforced in one place, regardless of which
// backing store commits the result.

// ApplyStatus validates and applies a status change.
func (s *Session) ApplyStatus(to SessionStatus) error {
	if !to.Valid() {
		return ErrInvalidTransition
	}
	if s.Status == StatusFinished {
		return ErrSessionFinished
	}
	if !IsValidTransition(s.Status, to) {
		return ErrInvalidTransition
	}
	s.Status = to
	return nil
}

// ApplyPublish installs a sanitized question as the current one, advances the
// index and moves the session into question status. The stale correct option
// from the previous round is cleared in the same mutation.
func (s *Session) ApplyPublish(q PublishedQuestion, index int) error {
	if s.Status == StatusFinished {
		return ErrSessionFinished
	}
	if index < s.CurrentQuestionIndex {
		return ErrQuestionIndexRegression
	}
	if !IsValidTransition(s.Status, StatusQuestion) {
		return ErrInvalidTransition
	}
	s.CurrentQuestion = &q
	s.CurrentQuestionIndex = index
	s.CorrectOptionID = ""
	s.Status = StatusQuestion
	return nil
}

// ApplyReveal records the correct option for the current question and moves
// the session into feedback. The option must exist in the published question
// so a corrupt reveal can never reach subscribers.
func (s *Session) ApplyReveal(correctOptionID string) error {
	if s.Status == StatusFinished {
		return ErrSessionFinished
	}
	if s.CurrentQuestion == nil {
		return ErrNoCurrentQuestion
	}
	if !s.CurrentQuestion.HasOption(correctOptionID) {
		return ErrOptionNotFound
	}
	if !IsValidTransition(s.Status, StatusFeedback) {
		return ErrInvalidTransition
	}
	s.CorrectOptionID = correctOptionID
	s.Status = StatusFeedback
	return nil
}

// ApplyClearCorrectOption removes a stale reveal before a new question goes out.
func (s *Session) ApplyClearCorrectOption() error {
	if s.Status == StatusFinished {
		return ErrSessionFinished
	}
	s.CorrectOptionID = ""
	return nil
}

// ApplyPlayer adds or refreshes a player record. Nickname uniqueness is a
// join-path concern; the record itself only needs an id.
func (s *Session) ApplyPlayer(p Player) error {
	if p.ID == "" {
		return ErrPlayerNotFound
	}
	if s.Players == nil {
		s.Players = make(map[string]Player)
	}
	s.Players[p.ID] = p
	return nil
}

// ApplyScore merges a player's self-reported score and streak.
func (s *Session) ApplyScore(playerID string, score, streak int) error {
	p, ok := s.Players[playerID]
	if !ok {
		return ErrPlayerNotFound
	}
	p.Score = score
	p.Streak = streak
	s.Players[playerID] = p
	return nil
}

// ApplyResponse records a player's answer with first-write-wins semantics.
// It reports whether the response was actually written; a duplicate for the
// same (questionID, playerID) is preserved as-is and reported false.
func (s *Session) ApplyResponse(questionID, playerID string, r Response) (bool, error) {
	if questionID == "" || playerID == "" {
		return false, ErrQuestionNotFound
	}
	if s.Responses == nil {
		s.Responses = make(map[string]map[string]Response)
	}
	byPlayer, ok := s.Responses[questionID]
	if !ok {
		byPlayer = make(map[string]Response)
		s.Responses[questionID] = byPlayer
	}
	if _, exists := byPlayer[playerID]; exists {
		return false, nil
	}
	byPlayer[playerID] = r
	return true, nil
}

// RemovePlayerEntry drops a player record; recorded responses stay, since
// they already count toward the question they answered.
func (s *Session) RemovePlayerEntry(playerID string) {
	delete(s.Players, playerID)
}
