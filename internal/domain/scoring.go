package domain

import "math"

// DefaultBasePoints is the score for an instant correct answer when the quiz
// author did not configure per-question points.
const DefaultBasePoints = 1000

// CalculateScore converts correctness and response speed into points.
//
// Incorrect answers score zero. Correct answers score half the base plus a
// linear speed bonus: full base at zero latency, half base at or beyond the
// time limit (latency and the ratio are both clamped, so a late-but-submitted
// answer still earns the half-base floor; callers wanting "too late = 0"
// must check lateness before calling). A non-positive time limit means no
// speed pressure and yields the full base.
func CalculateScore(isCorrect bool, responseTimeMs, timeLimitMs int64, basePoints int) int {
	if !isCorrect {
		return 0
	}
	if basePoints <= 0 {
		basePoints = DefaultBasePoints
	}
	if timeLimitMs <= 0 {
		return basePoints
	}
	if responseTimeMs < 0 {
		responseTimeMs = 0
	}

	timeRatio := 1 - float64(responseTimeMs)/float64(timeLimitMs)
	if timeRatio < 0 {
		timeRatio = 0
	}
	if timeRatio > 1 {
		timeRatio = 1
	}

	base := int(math.Round(float64(basePoints) * 0.5))
	speedBonus := int(math.Round(timeRatio * float64(basePoints) * 0.5))
	return base + speedBonus
}
