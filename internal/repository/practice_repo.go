package repository

import (
	"database/sql"
	"fmt"
	"time"

	"quizdrill/internal/database"
	"quizdrill/internal/models"
)

// PracticeRepository handles practice session and attempt persistence
type PracticeRepository struct {
	db *database.DB
}

// NewPracticeRepository creates a new practice repository
func NewPracticeRepository(db *database.DB) *PracticeRepository {
	return &PracticeRepository{db: db}
}

// CreateSession records the start of a practice session
func (r *PracticeRepository) CreateSession(userID, quizID int64, totalQuestions int) (*models.PracticeSession, error) {
	query := `
		INSERT INTO practice_sessions (user_id, quiz_id, total_questions)
		VALUES (?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, userID, quizID, totalQuestions)
	if err != nil {
		return nil, fmt.Errorf("failed to create practice session: %w", err)
	}
	return r.GetSessionByID(id)
}

// GetSessionByID retrieves a practice session by ID
func (r *PracticeRepository) GetSessionByID(sessionID int64) (*models.PracticeSession, error) {
	query := `
		SELECT id, user_id, quiz_id, started_at, completed_at,
		       total_questions, total_attempts, total_correct
		FROM practice_sessions
		WHERE id = ?
	`
	session := &models.PracticeSession{}
	var completedAt sql.NullTime

	err := r.db.QueryRow(query, sessionID).Scan(
		&session.ID,
		&session.UserID,
		&session.QuizID,
		&session.StartedAt,
		&completedAt,
		&session.TotalQuestions,
		&session.TotalAttempts,
		&session.TotalCorrect,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get practice session: %w", err)
	}

	if completedAt.Valid {
		session.CompletedAt = &completedAt.Time
	}
	return session, nil
}

// RecordAttempt records a single graded answer
func (r *PracticeRepository) RecordAttempt(sessionID, questionID int64, answerText string, isCorrect bool) (*models.QuestionAttempt, error) {
	query := `
		INSERT INTO question_attempts (practice_session_id, question_id, answer_text, is_correct)
		VALUES (?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, sessionID, questionID, answerText, isCorrect)
	if err != nil {
		return nil, fmt.Errorf("failed to record attempt: %w", err)
	}

	return &models.QuestionAttempt{
		ID:                id,
		PracticeSessionID: sessionID,
		QuestionID:        questionID,
		AnswerText:        answerText,
		IsCorrect:         isCorrect,
		AttemptedAt:       time.Now(),
	}, nil
}

// CompleteSession marks a session as complete and stores the final totals
func (r *PracticeRepository) CompleteSession(sessionID int64, totalAttempts, totalCorrect int) error {
	query := `
		UPDATE practice_sessions
		SET completed_at = ?, total_attempts = ?, total_correct = ?
		WHERE id = ?
	`
	if _, err := r.db.Exec(query, time.Now(), totalAttempts, totalCorrect, sessionID); err != nil {
		return fmt.Errorf("failed to complete practice session: %w", err)
	}
	return nil
}

// GetSessionAttempts retrieves all attempts for a session, oldest first
func (r *PracticeRepository) GetSessionAttempts(sessionID int64) ([]models.QuestionAttempt, error) {
	query := `
		SELECT id, practice_session_id, question_id, COALESCE(answer_text, ''), is_correct, attempted_at
		FROM question_attempts
		WHERE practice_session_id = ?
		ORDER BY attempted_at ASC, id ASC
	`
	rows, err := r.db.Query(query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []models.QuestionAttempt
	for rows.Next() {
		var attempt models.QuestionAttempt
		if err := rows.Scan(
			&attempt.ID,
			&attempt.PracticeSessionID,
			&attempt.QuestionID,
			&attempt.AnswerText,
			&attempt.IsCorrect,
			&attempt.AttemptedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}
	return attempts, rows.Err()
}

// GetUserSessions retrieves a user's most recent practice sessions
func (r *PracticeRepository) GetUserSessions(userID int64, limit int) ([]models.PracticeSession, error) {
	query := `
		SELECT id, user_id, quiz_id, started_at, completed_at,
		       total_questions, total_attempts, total_correct
		FROM practice_sessions
		WHERE user_id = ?
		ORDER BY started_at DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query practice sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.PracticeSession
	for rows.Next() {
		var session models.PracticeSession
		var completedAt sql.NullTime

		if err := rows.Scan(
			&session.ID,
			&session.UserID,
			&session.QuizID,
			&session.StartedAt,
			&completedAt,
			&session.TotalQuestions,
			&session.TotalAttempts,
			&session.TotalCorrect,
		); err != nil {
			return nil, fmt.Errorf("failed to scan practice session: %w", err)
		}

		if completedAt.Valid {
			session.CompletedAt = &completedAt.Time
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// GetQuizStats aggregates completed-session history for a quiz
func (r *PracticeRepository) GetQuizStats(quizID int64) (*models.QuizStats, error) {
	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(total_attempts), 0),
		       COALESCE(SUM(total_correct), 0)
		FROM practice_sessions
		WHERE quiz_id = ? AND completed_at IS NOT NULL
	`
	stats := &models.QuizStats{QuizID: quizID}
	err := r.db.QueryRow(query, quizID).Scan(
		&stats.SessionCount,
		&stats.TotalAttempts,
		&stats.TotalCorrect,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz stats: %w", err)
	}
	return stats, nil
}

// GetMostMissedQuestions returns per-question miss counts for a quiz,
// most missed first
func (r *PracticeRepository) GetMostMissedQuestions(quizID int64, limit int) ([]models.MissedQuestion, error) {
	query := `
		SELECT q.id, q.quiz_id, q.prompt, q.answer, COALESCE(q.choices, ''), q.position, q.created_at,
		       COUNT(qa.id) AS attempts,
		       SUM(CASE WHEN qa.is_correct THEN 0 ELSE 1 END) AS incorrect_count
		FROM questions q
		INNER JOIN question_attempts qa ON qa.question_id = q.id
		WHERE q.quiz_id = ?
		GROUP BY q.id, q.quiz_id, q.prompt, q.answer, q.choices, q.position, q.created_at
		HAVING SUM(CASE WHEN qa.is_correct THEN 0 ELSE 1 END) > 0
		ORDER BY incorrect_count DESC, attempts DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, quizID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query missed questions: %w", err)
	}
	defer rows.Close()

	var missed []models.MissedQuestion
	for rows.Next() {
		var m models.MissedQuestion
		if err := rows.Scan(
			&m.Question.ID,
			&m.Question.QuizID,
			&m.Question.Prompt,
			&m.Question.Answer,
			&m.Question.Choices,
			&m.Question.Position,
			&m.Question.CreatedAt,
			&m.Attempts,
			&m.IncorrectCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan missed question: %w", err)
		}
		missed = append(missed, m)
	}
	return missed, rows.Err()
}
