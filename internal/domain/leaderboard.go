package domain

import "sort"

// DefaultLeaderboardSize is how many entries the projected top list keeps.
const DefaultLeaderboardSize = 5

// LeaderboardEntry is one ranked row of the projected standings.
type LeaderboardEntry struct {
	PlayerID string `json:"playerId"`
	Nickname string `json:"nickname"`
	Badge    string `json:"badge"`
	Score    int    `json:"score"`
	Streak   int    `json:"streak"`
	Rank     int    `json:"rank"`
}

// Leaderboard is the full projection handed to host and player views.
// CurrentPlayerRank is zero and CurrentPlayerEntry nil when the requesting
// player is not in the session.
type Leaderboard struct {
	Entries            []LeaderboardEntry `json:"entries"`
	CurrentPlayerRank  int                `json:"currentPlayerRank,omitempty"`
	CurrentPlayerEntry *LeaderboardEntry  `json:"currentPlayerEntry,omitempty"`
	TotalPlayers       int                `json:"totalPlayers"`
}

// ProjectLeaderboard derives ranked standings from the player map. Players
// are sorted by score descending with ties broken by player id so the
// projection is deterministic across hosts and players observing the same
// snapshot. Ranks are contiguous 1-based positions over the full set before
// truncation to topN; tied scores do not share a rank. The projection is
// computed from scratch on every call.
func ProjectLeaderboard(players map[string]Player, currentPlayerID string, topN int) Leaderboard {
	if topN <= 0 {
		topN = DefaultLeaderboardSize
	}

	ids := make([]string, 0, len(players))
	for id := range players {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	entries := make([]LeaderboardEntry, 0, len(ids))
	for _, id := range ids {
		p := players[id]
		entries = append(entries, LeaderboardEntry{
			PlayerID: id,
			Nickname: p.Nickname,
			Badge:    p.Badge,
			Score:    p.Score,
			Streak:   p.Streak,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	lb := Leaderboard{TotalPlayers: len(entries)}
	if currentPlayerID != "" {
		for i := range entries {
			if entries[i].PlayerID == currentPlayerID {
				entry := entries[i]
				lb.CurrentPlayerRank = entry.Rank
				lb.CurrentPlayerEntry = &entry
				break
			}
		}
	}

	if len(entries) > topN {
		entries = entries[:topN]
	}
	lb.Entries = entries
	return lb
}
