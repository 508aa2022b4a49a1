package domain

// validTransitions is the full session status transition table. Finished is
// terminal: it has no outgoing edges.
var validTransitions = map[SessionStatus][]SessionStatus{
	StatusLobby:       {StatusQuestion, StatusFinished},
	StatusQuestion:    {StatusFeedback, StatusLeaderboard, StatusFinished},
	StatusFeedback:    {StatusLeaderboard, StatusQuestion, StatusFinished},
	StatusLeaderboard: {StatusQuestion, StatusFinished},
	StatusFinished:    {},
}

// IsValidTransition reports whether moving from one status to another is
// allowed by the transition table.
func IsValidTransition(from, to SessionStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// NextStatus encodes the happy-path progression the auto-advance watchdog
// follows: lobby -> question -> feedback -> leaderboard -> question while
// questions remain, then finished.
func NextStatus(current SessionStatus, hasMoreQuestions bool) SessionStatus {
	switch current {
	case StatusLobby:
		return StatusQuestion
	case StatusQuestion:
		return StatusFeedback
	case StatusFeedback:
		return StatusLeaderboard
	case StatusLeaderboard:
		if hasMoreQuestions {
			return StatusQuestion
		}
		return StatusFinished
	default:
		return StatusFinished
	}
}
