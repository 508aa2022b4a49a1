package domain

import "testing"

func TestScoreIncorrectIsZero(t *testing.T) {
	for _, latency := range []int64{0, 500, 20000, 999999} {
		if got := CalculateScore(false, latency, 20000, 1000); got != 0 {
			t.Errorf("incorrect answer at latency %d scored %d, want 0", latency, got)
		}
	}
}

func TestScoreBounds(t *testing.T) {
	cases := []struct {
		latency, limit int64
		base, want     int
	}{
		{0, 20000, 1000, 1000},     // instant answer: full base
		{20000, 20000, 1000, 500},  // at the limit: half base
		{40000, 20000, 1000, 500},  // past the limit: clamped to the floor
		{0, 10000, 500, 500},       // custom base, instant
		{10000, 10000, 500, 250},   // custom base, at the limit
		{-100, 20000, 1000, 1000},  // negative latency clamped to zero
	}
	for _, tc := range cases {
		if got := CalculateScore(true, tc.latency, tc.limit, tc.base); got != tc.want {
			t.Errorf("CalculateScore(true, %d, %d, %d) = %d, want %d", tc.latency, tc.limit, tc.base, got, tc.want)
		}
	}
}

func TestScoreNoTimeLimit(t *testing.T) {
	if got := CalculateScore(true, 5000, 0, 1000); got != 1000 {
		t.Fatalf("no-limit correct answer scored %d, want full base", got)
	}
	if got := CalculateScore(true, 5000, -1, 750); got != 750 {
		t.Fatalf("negative-limit correct answer scored %d, want full base", got)
	}
}

func TestScoreDefaultBasePoints(t *testing.T) {
	if got := CalculateScore(true, 0, 20000, 0); got != DefaultBasePoints {
		t.Fatalf("zero base should default to %d, got %d", DefaultBasePoints, got)
	}
}

func TestScoreMonotonicInLatency(t *testing.T) {
	prev := CalculateScore(true, 0, 20000, 1000)
	for latency := int64(100); latency <= 30000; latency += 100 {
		got := CalculateScore(true, latency, 20000, 1000)
		if got > prev {
			t.Fatalf("score increased from %d to %d at latency %d", prev, got, latency)
		}
		prev = got
	}
}

func TestScoreReferenceScenario(t *testing.T) {
	// 20s question answered correctly after 4s: 500 + round(0.8*500) = 900.
	if got := CalculateScore(true, 4000, 20000, 1000); got != 900 {
		t.Fatalf("expected 900, got %d", got)
	}
}
