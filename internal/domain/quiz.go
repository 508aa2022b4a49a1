package domain

// QuizOption is an answer choice as authored, including the answer key.
// It must never reach the shared session store unsanitized.
type QuizOption struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// QuizMedia is an authored media attachment.
type QuizMedia struct {
	Type string `json:"type"` // image, gif, video
	URL  string `json:"url"`
	Alt  string `json:"alt,omitempty"`
}

// QuizQuestion models one authored question with exactly one correct option.
type QuizQuestion struct {
	ID          string       `json:"id"`
	Type        string       `json:"type"` // multiple-choice, boolean, code-snippet
	Label       string       `json:"label"`
	Media       *QuizMedia   `json:"media,omitempty"`
	CodeSnippet string       `json:"codeSnippet,omitempty"`
	Options     []QuizOption `json:"options"`
	TimeLimit   int          `json:"timeLimit"` // seconds
}

// CorrectOption returns the first option flagged correct, if any.
func (q *QuizQuestion) CorrectOption() (QuizOption, bool) {
	for _, o := range q.Options {
		if o.IsCorrect {
			return o, true
		}
	}
	return QuizOption{}, false
}

// QuizSettings carries author-chosen play options.
type QuizSettings struct {
	IsPublic          bool   `json:"isPublic"`
	ShuffleQuestions  bool   `json:"shuffleQuestions"`
	PointsPerQuestion int    `json:"pointsPerQuestion"`
	Theme             string `json:"theme,omitempty"`
}

// QuizMetadata is authoring provenance; the engine only reads it.
type QuizMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	AuthorID    string   `json:"authorId"`
	CreatedAt   string   `json:"createdAt,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Quiz is a full question bank as served by the quiz catalog.
type Quiz struct {
	ID        string         `json:"id"`
	Metadata  QuizMetadata   `json:"metadata"`
	Settings  QuizSettings   `json:"settings"`
	Questions []QuizQuestion `json:"questions"`
}

// BasePoints returns the per-question base score, defaulting when the
// author left it unset.
func (q *Quiz) BasePoints() int {
	if q.Settings.PointsPerQuestion > 0 {
		return q.Settings.PointsPerQuestion
	}
	return DefaultBasePoints
}
