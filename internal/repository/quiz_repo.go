package repository

import (
	"database/sql"
	"fmt"
	"time"

	"quizdrill/internal/database"
	"quizdrill/internal/models"
)

// QuizRepository handles database operations for quizzes and questions
type QuizRepository struct {
	db *database.DB
}

// NewQuizRepository creates a new quiz repository
func NewQuizRepository(db *database.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

// CreateQuiz creates a new quiz owned by a user
func (r *QuizRepository) CreateQuiz(ownerID int64, title, description string, isPublic bool) (*models.Quiz, error) {
	query := "INSERT INTO quizzes (owner_id, title, description, is_public) VALUES (?, ?, ?, ?)"
	quizID, err := r.db.ExecReturningID(query, ownerID, title, description, isPublic)
	if err != nil {
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}

	return &models.Quiz{
		ID:          quizID,
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		IsPublic:    isPublic,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}, nil
}

// GetQuizByID retrieves a quiz by ID, or nil when not found
func (r *QuizRepository) GetQuizByID(quizID int64) (*models.Quiz, error) {
	query := `
		SELECT id, owner_id, title, description, is_public, created_at, updated_at
		FROM quizzes
		WHERE id = ?
	`
	quiz := &models.Quiz{}
	err := r.db.QueryRow(query, quizID).Scan(
		&quiz.ID,
		&quiz.OwnerID,
		&quiz.Title,
		&quiz.Description,
		&quiz.IsPublic,
		&quiz.CreatedAt,
		&quiz.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	return quiz, nil
}

// GetUserQuizzes retrieves all quizzes owned by a user, newest first
func (r *QuizRepository) GetUserQuizzes(ownerID int64) ([]models.Quiz, error) {
	query := `
		SELECT id, owner_id, title, description, is_public, created_at, updated_at
		FROM quizzes
		WHERE owner_id = ?
		ORDER BY created_at DESC
	`
	return r.queryQuizzes(query, ownerID)
}

// GetPublicQuizzes retrieves all quizzes shared publicly, newest first
func (r *QuizRepository) GetPublicQuizzes() ([]models.Quiz, error) {
	query := `
		SELECT id, owner_id, title, description, is_public, created_at, updated_at
		FROM quizzes
		WHERE is_public = ?
		ORDER BY created_at DESC
	`
	return r.queryQuizzes(query, true)
}

func (r *QuizRepository) queryQuizzes(query string, args ...any) ([]models.Quiz, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []models.Quiz
	for rows.Next() {
		var quiz models.Quiz
		if err := rows.Scan(
			&quiz.ID,
			&quiz.OwnerID,
			&quiz.Title,
			&quiz.Description,
			&quiz.IsPublic,
			&quiz.CreatedAt,
			&quiz.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan quiz: %w", err)
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, rows.Err()
}

// UpdateQuiz updates a quiz's title, description and visibility
func (r *QuizRepository) UpdateQuiz(quizID int64, title, description string, isPublic bool) error {
	query := "UPDATE quizzes SET title = ?, description = ?, is_public = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	if _, err := r.db.Exec(query, title, description, isPublic, quizID); err != nil {
		return fmt.Errorf("failed to update quiz: %w", err)
	}
	return nil
}

// DeleteQuiz deletes a quiz and, via cascades, its questions and history
func (r *QuizRepository) DeleteQuiz(quizID int64) error {
	if _, err := r.db.Exec("DELETE FROM quizzes WHERE id = ?", quizID); err != nil {
		return fmt.Errorf("failed to delete quiz: %w", err)
	}
	return nil
}

// AddQuestion appends a question to a quiz
func (r *QuizRepository) AddQuestion(quizID int64, prompt, answer, choices string, position int) (*models.Question, error) {
	query := "INSERT INTO questions (quiz_id, prompt, answer, choices, position) VALUES (?, ?, ?, ?, ?)"
	questionID, err := r.db.ExecReturningID(query, quizID, prompt, answer, choices, position)
	if err != nil {
		return nil, fmt.Errorf("failed to add question: %w", err)
	}

	return &models.Question{
		ID:        questionID,
		QuizID:    quizID,
		Prompt:    prompt,
		Answer:    answer,
		Choices:   choices,
		Position:  position,
		CreatedAt: time.Now(),
	}, nil
}

// AddQuestions inserts a batch of questions in a single transaction,
// assigning positions after the current maximum
func (r *QuizRepository) AddQuestions(quizID int64, questions []models.Question) error {
	var maxPosition sql.NullInt64
	err := r.db.QueryRow("SELECT MAX(position) FROM questions WHERE quiz_id = ?", quizID).Scan(&maxPosition)
	if err != nil {
		return fmt.Errorf("failed to read question positions: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	position := int(maxPosition.Int64)
	for _, q := range questions {
		position++
		query := "INSERT INTO questions (quiz_id, prompt, answer, choices, position) VALUES (?, ?, ?, ?, ?)"
		if _, err := tx.Exec(query, quizID, q.Prompt, q.Answer, q.Choices, position); err != nil {
			return fmt.Errorf("failed to insert question: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit questions: %w", err)
	}
	return nil
}

// GetQuizQuestions retrieves all questions for a quiz in position order
func (r *QuizRepository) GetQuizQuestions(quizID int64) ([]models.Question, error) {
	query := `
		SELECT id, quiz_id, prompt, answer, COALESCE(choices, ''), position, created_at
		FROM questions
		WHERE quiz_id = ?
		ORDER BY position ASC
	`
	rows, err := r.db.Query(query, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(
			&q.ID,
			&q.QuizID,
			&q.Prompt,
			&q.Answer,
			&q.Choices,
			&q.Position,
			&q.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// GetQuestionByID retrieves a question by ID, or nil when not found
func (r *QuizRepository) GetQuestionByID(questionID int64) (*models.Question, error) {
	query := `
		SELECT id, quiz_id, prompt, answer, COALESCE(choices, ''), position, created_at
		FROM questions
		WHERE id = ?
	`
	q := &models.Question{}
	err := r.db.QueryRow(query, questionID).Scan(
		&q.ID,
		&q.QuizID,
		&q.Prompt,
		&q.Answer,
		&q.Choices,
		&q.Position,
		&q.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return q, nil
}

// UpdateQuestion updates a question's prompt, answer and choices
func (r *QuizRepository) UpdateQuestion(questionID int64, prompt, answer, choices string) error {
	query := "UPDATE questions SET prompt = ?, answer = ?, choices = ? WHERE id = ?"
	if _, err := r.db.Exec(query, prompt, answer, choices, questionID); err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}
	return nil
}

// DeleteQuestion deletes a question from a quiz
func (r *QuizRepository) DeleteQuestion(questionID int64) error {
	if _, err := r.db.Exec("DELETE FROM questions WHERE id = ?", questionID); err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}
	return nil
}

// GetQuestionCount returns the number of questions in a quiz
func (r *QuizRepository) GetQuestionCount(quizID int64) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM questions WHERE quiz_id = ?", quizID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return count, nil
}
