package models

import "time"

// PracticeSession represents one adaptive practice run over a quiz
type PracticeSession struct {
	ID             int64
	UserID         int64
	QuizID         int64
	StartedAt      time.Time
	CompletedAt    *time.Time
	TotalQuestions int
	TotalAttempts  int
	TotalCorrect   int
}

// QuestionAttempt represents a single answer submission in a session
type QuestionAttempt struct {
	ID                int64
	PracticeSessionID int64
	QuestionID        int64
	AnswerText        string
	IsCorrect         bool
	AttemptedAt       time.Time
}

// MissedQuestion pairs a question with how often it was answered wrong,
// used for the end-of-session "wrong answers" summary
type MissedQuestion struct {
	Question       Question
	Attempts       int
	IncorrectCount int
}

// PracticeResult is the final summary handed back when a session finishes
type PracticeResult struct {
	Session PracticeSession
	Missed  []MissedQuestion
}
