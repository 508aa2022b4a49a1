package domain

import "time"

// SanitizeQuestion projects an authored question into its publishable form:
// correctness flags are stripped from every option, media is reduced to
// {type, url}, the quiz-level base points are stamped onto the question so
// players can score without quiz access, and startedAt is stamped from the
// host clock. Clients must never see the answer key outside an explicit
// correctOptionId reveal.
func SanitizeQuestion(q QuizQuestion, basePoints int, startedAt time.Time) PublishedQuestion {
	options := make([]PublishedOption, 0, len(q.Options))
	for _, o := range q.Options {
		options = append(options, PublishedOption{ID: o.ID, Text: o.Text})
	}

	if basePoints <= 0 {
		basePoints = DefaultBasePoints
	}
	published := PublishedQuestion{
		ID:        q.ID,
		Label:     q.Label,
		Options:   options,
		TimeLimit: q.TimeLimit,
		Points:    basePoints,
		StartedAt: startedAt.UnixMilli(),
	}
	if q.Media != nil {
		published.Media = &MediaRef{Type: q.Media.Type, URL: q.Media.URL}
	}
	return published
}
