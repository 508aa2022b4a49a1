package domain

import "testing"

var allStatuses = []SessionStatus{StatusLobby, StatusQuestion, StatusFeedback, StatusLeaderboard, StatusFinished}

func TestTransitionTableExhaustive(t *testing.T) {
	allowed := map[SessionStatus]map[SessionStatus]bool{
		StatusLobby:       {StatusQuestion: true, StatusFinished: true},
		StatusQuestion:    {StatusFeedback: true, StatusLeaderboard: true, StatusFinished: true},
		StatusFeedback:    {StatusLeaderboard: true, StatusQuestion: true, StatusFinished: true},
		StatusLeaderboard: {StatusQuestion: true, StatusFinished: true},
		StatusFinished:    {},
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := allowed[from][to]
			if got := IsValidTransition(from, to); got != want {
				t.Errorf("IsValidTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestTransitionUnknownStatus(t *testing.T) {
	if IsValidTransition("bogus", StatusQuestion) {
		t.Fatalf("unknown from-status should never transition")
	}
	if IsValidTransition(StatusLobby, "bogus") {
		t.Fatalf("unknown to-status should never be reachable")
	}
}

func TestNextStatusHappyPath(t *testing.T) {
	cases := []struct {
		current SessionStatus
		more    bool
		want    SessionStatus
	}{
		{StatusLobby, true, StatusQuestion},
		{StatusLobby, false, StatusQuestion},
		{StatusQuestion, true, StatusFeedback},
		{StatusFeedback, true, StatusLeaderboard},
		{StatusLeaderboard, true, StatusQuestion},
		{StatusLeaderboard, false, StatusFinished},
		{StatusFinished, true, StatusFinished},
	}
	for _, tc := range cases {
		if got := NextStatus(tc.current, tc.more); got != tc.want {
			t.Errorf("NextStatus(%s, %v) = %s, want %s", tc.current, tc.more, got, tc.want)
		}
	}
}

func TestHappyPathTransitionsAreLegal(t *testing.T) {
	// Every edge the watchdog produces must also be in the table.
	for _, from := range []SessionStatus{StatusLobby, StatusQuestion, StatusFeedback, StatusLeaderboard} {
		for _, more := range []bool{true, false} {
			to := NextStatus(from, more)
			if !IsValidTransition(from, to) {
				t.Errorf("happy path %s -> %s is not in the transition table", from, to)
			}
		}
	}
}
