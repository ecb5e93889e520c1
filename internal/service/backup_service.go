package service

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"quizdrill/internal/database"
)

// BackupData represents the complete database backup structure
type BackupData struct {
	Version    string           `json:"version"`
	ExportedAt time.Time        `json:"exported_at"`
	Users      []UserBackup     `json:"users"`
	Quizzes    []QuizBackup     `json:"quizzes"`
	Questions  []QuestionBackup `json:"questions"`
	Practices  []PracticeBackup `json:"practices"`
	Attempts   []AttemptBackup  `json:"attempts"`
}

// UserBackup represents a user record for backup
type UserBackup struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"password_hash"`
	Name          string    `json:"name"`
	OAuthProvider string    `json:"oauth_provider"`
	OAuthSubject  string    `json:"oauth_subject"`
	IsAdmin       bool      `json:"is_admin"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// QuizBackup represents a quiz record for backup
type QuizBackup struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IsPublic    bool      `json:"is_public"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// QuestionBackup represents a question record for backup
type QuestionBackup struct {
	ID        int64     `json:"id"`
	QuizID    int64     `json:"quiz_id"`
	Prompt    string    `json:"prompt"`
	Answer    string    `json:"answer"`
	Choices   string    `json:"choices"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// PracticeBackup represents a practice session record for backup
type PracticeBackup struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"user_id"`
	QuizID         int64      `json:"quiz_id"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at"`
	TotalQuestions int        `json:"total_questions"`
	TotalAttempts  int        `json:"total_attempts"`
	TotalCorrect   int        `json:"total_correct"`
}

// AttemptBackup represents a question attempt record for backup
type AttemptBackup struct {
	ID                int64     `json:"id"`
	PracticeSessionID int64     `json:"practice_session_id"`
	QuestionID        int64     `json:"question_id"`
	AnswerText        string    `json:"answer_text"`
	IsCorrect         bool      `json:"is_correct"`
	AttemptedAt       time.Time `json:"attempted_at"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db *database.DB
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db}
}

// Export creates a complete backup of the database to a file
func (s *BackupService) Export(outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportToWriter(file); err != nil {
		return err
	}

	log.Printf("Database exported successfully to %s", outputPath)
	return nil
}

// ExportToWriter exports the database as indented JSON to w
func (s *BackupService) ExportToWriter(w io.Writer) error {
	backup := &BackupData{
		Version:    "1.0",
		ExportedAt: time.Now(),
	}

	if err := s.exportUsers(backup); err != nil {
		return fmt.Errorf("failed to export users: %w", err)
	}
	if err := s.exportQuizzes(backup); err != nil {
		return fmt.Errorf("failed to export quizzes: %w", err)
	}
	if err := s.exportQuestions(backup); err != nil {
		return fmt.Errorf("failed to export questions: %w", err)
	}
	if err := s.exportPractices(backup); err != nil {
		return fmt.Errorf("failed to export practices: %w", err)
	}
	if err := s.exportAttempts(backup); err != nil {
		return fmt.Errorf("failed to export attempts: %w", err)
	}

	log.Printf("Exported: %d users, %d quizzes, %d questions, %d practices, %d attempts",
		len(backup.Users), len(backup.Quizzes), len(backup.Questions),
		len(backup.Practices), len(backup.Attempts))

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(backup)
}

// Import restores a database from a backup file
func (s *BackupService) Import(inputPath string) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(file)
}

// ImportFromReader restores a database from a backup reader. The whole
// restore runs in one transaction so a failed import leaves nothing behind.
func (s *BackupService) ImportFromReader(reader io.Reader) error {
	var backup BackupData
	if err := json.NewDecoder(reader).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}

	log.Printf("Importing backup version %s, exported at %s", backup.Version, backup.ExportedAt)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin import transaction: %w", err)
	}
	defer tx.Rollback()

	// Insert in dependency order
	if err := importUsers(tx, backup.Users); err != nil {
		return fmt.Errorf("failed to import users: %w", err)
	}
	if err := importQuizzes(tx, backup.Quizzes); err != nil {
		return fmt.Errorf("failed to import quizzes: %w", err)
	}
	if err := importQuestions(tx, backup.Questions); err != nil {
		return fmt.Errorf("failed to import questions: %w", err)
	}
	if err := importPractices(tx, backup.Practices); err != nil {
		return fmt.Errorf("failed to import practices: %w", err)
	}
	if err := importAttempts(tx, backup.Attempts); err != nil {
		return fmt.Errorf("failed to import attempts: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}

	log.Println("Database import completed successfully")
	return nil
}

func (s *BackupService) exportUsers(backup *BackupData) error {
	query := "SELECT id, email, password_hash, name, COALESCE(oauth_provider, ''), COALESCE(oauth_subject, ''), is_admin, created_at, updated_at FROM users ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var u UserBackup
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.OAuthProvider, &u.OAuthSubject, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return err
		}
		backup.Users = append(backup.Users, u)
	}
	return rows.Err()
}

func (s *BackupService) exportQuizzes(backup *BackupData) error {
	query := "SELECT id, owner_id, title, COALESCE(description, ''), is_public, created_at, updated_at FROM quizzes ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var q QuizBackup
		if err := rows.Scan(&q.ID, &q.OwnerID, &q.Title, &q.Description, &q.IsPublic, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return err
		}
		backup.Quizzes = append(backup.Quizzes, q)
	}
	return rows.Err()
}

func (s *BackupService) exportQuestions(backup *BackupData) error {
	query := "SELECT id, quiz_id, prompt, answer, COALESCE(choices, ''), position, created_at FROM questions ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var q QuestionBackup
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Prompt, &q.Answer, &q.Choices, &q.Position, &q.CreatedAt); err != nil {
			return err
		}
		backup.Questions = append(backup.Questions, q)
	}
	return rows.Err()
}

func (s *BackupService) exportPractices(backup *BackupData) error {
	query := "SELECT id, user_id, quiz_id, started_at, completed_at, total_questions, total_attempts, total_correct FROM practice_sessions ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var p PracticeBackup
		var completedAt sql.NullTime
		if err := rows.Scan(&p.ID, &p.UserID, &p.QuizID, &p.StartedAt, &completedAt, &p.TotalQuestions, &p.TotalAttempts, &p.TotalCorrect); err != nil {
			return err
		}
		if completedAt.Valid {
			p.CompletedAt = &completedAt.Time
		}
		backup.Practices = append(backup.Practices, p)
	}
	return rows.Err()
}

func (s *BackupService) exportAttempts(backup *BackupData) error {
	query := "SELECT id, practice_session_id, question_id, COALESCE(answer_text, ''), is_correct, attempted_at FROM question_attempts ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var a AttemptBackup
		if err := rows.Scan(&a.ID, &a.PracticeSessionID, &a.QuestionID, &a.AnswerText, &a.IsCorrect, &a.AttemptedAt); err != nil {
			return err
		}
		backup.Attempts = append(backup.Attempts, a)
	}
	return rows.Err()
}

func importUsers(tx *database.Tx, users []UserBackup) error {
	log.Printf("Importing %d users...", len(users))
	for _, u := range users {
		query := "INSERT INTO users (id, email, password_hash, name, oauth_provider, oauth_subject, is_admin, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"
		if _, err := tx.Exec(query, u.ID, u.Email, u.PasswordHash, u.Name, nullIfEmpty(u.OAuthProvider), nullIfEmpty(u.OAuthSubject), u.IsAdmin, u.CreatedAt, u.UpdatedAt); err != nil {
			return fmt.Errorf("user %d: %w", u.ID, err)
		}
	}
	return nil
}

func importQuizzes(tx *database.Tx, quizzes []QuizBackup) error {
	log.Printf("Importing %d quizzes...", len(quizzes))
	for _, q := range quizzes {
		query := "INSERT INTO quizzes (id, owner_id, title, description, is_public, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)"
		if _, err := tx.Exec(query, q.ID, q.OwnerID, q.Title, q.Description, q.IsPublic, q.CreatedAt, q.UpdatedAt); err != nil {
			return fmt.Errorf("quiz %d: %w", q.ID, err)
		}
	}
	return nil
}

func importQuestions(tx *database.Tx, questions []QuestionBackup) error {
	log.Printf("Importing %d questions...", len(questions))
	for _, q := range questions {
		query := "INSERT INTO questions (id, quiz_id, prompt, answer, choices, position, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)"
		if _, err := tx.Exec(query, q.ID, q.QuizID, q.Prompt, q.Answer, nullIfEmpty(q.Choices), q.Position, q.CreatedAt); err != nil {
			return fmt.Errorf("question %d: %w", q.ID, err)
		}
	}
	return nil
}

func importPractices(tx *database.Tx, practices []PracticeBackup) error {
	log.Printf("Importing %d practice sessions...", len(practices))
	for _, p := range practices {
		var completedAt interface{}
		if p.CompletedAt != nil {
			completedAt = *p.CompletedAt
		}
		query := "INSERT INTO practice_sessions (id, user_id, quiz_id, started_at, completed_at, total_questions, total_attempts, total_correct) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
		if _, err := tx.Exec(query, p.ID, p.UserID, p.QuizID, p.StartedAt, completedAt, p.TotalQuestions, p.TotalAttempts, p.TotalCorrect); err != nil {
			return fmt.Errorf("practice %d: %w", p.ID, err)
		}
	}
	return nil
}

func importAttempts(tx *database.Tx, attempts []AttemptBackup) error {
	log.Printf("Importing %d attempts...", len(attempts))
	for _, a := range attempts {
		query := "INSERT INTO question_attempts (id, practice_session_id, question_id, answer_text, is_correct, attempted_at) VALUES (?, ?, ?, ?, ?, ?)"
		if _, err := tx.Exec(query, a.ID, a.PracticeSessionID, a.QuestionID, nullIfEmpty(a.AnswerText), a.IsCorrect, a.AttemptedAt); err != nil {
			return fmt.Errorf("attempt %d: %w", a.ID, err)
		}
	}
	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
