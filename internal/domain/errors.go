package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a session id resolves to nothing.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExists is returned when creating a session with a taken id.
	ErrSessionExists = errors.New("session already exists")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizEmpty indicates a quiz with no questions cannot be started.
	ErrQuizEmpty = errors.New("quiz has no questions")
	// ErrQuestionNotFound indicates a question id is not in the quiz.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates an option id is not in the current question.
	ErrOptionNotFound = errors.New("option not found")
	// ErrInvalidTransition rejects a status change outside the transition table.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrSessionFinished rejects any mutation of a finished session.
	ErrSessionFinished = errors.New("session is finished")
	// ErrNoCurrentQuestion is returned when an operation needs a published question.
	ErrNoCurrentQuestion = errors.New("no current question published")
	// ErrPlayerNotFound is returned when a player id is absent from the session.
	ErrPlayerNotFound = errors.New("player not found in session")
	// ErrInvalidNickname rejects empty or over-length nicknames.
	ErrInvalidNickname = errors.New("nickname must be 1-12 characters")
	// ErrNicknameTaken rejects a nickname already used in the session.
	ErrNicknameTaken = errors.New("nickname already taken")
	// ErrQuestionIndexRegression rejects a publish that moves the index backwards.
	ErrQuestionIndexRegression = errors.New("question index may not decrease")
)
