package models

import "time"

// Quiz represents an authored set of questions
type Quiz struct {
	ID          int64
	OwnerID     int64
	Title       string
	Description string
	IsPublic    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Question represents one question within a quiz. Choices is optional: when
// empty the question is free-text, otherwise it holds the JSON-encoded list
// of options and Answer must match one of them.
type Question struct {
	ID        int64
	QuizID    int64
	Prompt    string
	Answer    string
	Choices   string
	Position  int
	CreatedAt time.Time
}

// QuizWithQuestions combines a quiz with its questions in position order
type QuizWithQuestions struct {
	Quiz      Quiz
	Questions []Question
}

// QuizStats summarizes practice history for a quiz
type QuizStats struct {
	QuizID         int64
	SessionCount   int
	TotalAttempts  int
	TotalCorrect   int
	TotalIncorrect int
}
