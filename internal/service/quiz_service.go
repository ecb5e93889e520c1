package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"quizdrill/internal/models"
	"quizdrill/internal/repository"
	"quizdrill/internal/validation"
)

var (
	ErrQuizNotFound     = errors.New("quiz not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrNotQuizOwner     = errors.New("not the quiz owner")
)

// QuizService handles quiz and question business logic
type QuizService struct {
	quizRepo *repository.QuizRepository
}

// NewQuizService creates a new quiz service
func NewQuizService(quizRepo *repository.QuizRepository) *QuizService {
	return &QuizService{quizRepo: quizRepo}
}

// CreateQuiz creates a new quiz owned by the user
func (s *QuizService) CreateQuiz(ownerID int64, title, description string, isPublic bool) (*models.Quiz, error) {
	if err := validation.ValidateQuizTitle(title); err != nil {
		return nil, err
	}

	quiz, err := s.quizRepo.CreateQuiz(ownerID, strings.TrimSpace(title), strings.TrimSpace(description), isPublic)
	if err != nil {
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}
	return quiz, nil
}

// GetQuiz retrieves a quiz the user is allowed to see: their own quizzes
// and any quiz shared publicly
func (s *QuizService) GetQuiz(quizID, userID int64) (*models.Quiz, error) {
	quiz, err := s.quizRepo.GetQuizByID(quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	if quiz == nil {
		return nil, ErrQuizNotFound
	}
	if !quiz.IsPublic && quiz.OwnerID != userID {
		return nil, ErrQuizNotFound
	}
	return quiz, nil
}

// GetQuizWithQuestions retrieves a quiz and its questions in one call
func (s *QuizService) GetQuizWithQuestions(quizID, userID int64) (*models.QuizWithQuestions, error) {
	quiz, err := s.GetQuiz(quizID, userID)
	if err != nil {
		return nil, err
	}

	questions, err := s.quizRepo.GetQuizQuestions(quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}

	return &models.QuizWithQuestions{Quiz: *quiz, Questions: questions}, nil
}

// getOwnedQuiz retrieves a quiz and verifies the user owns it
func (s *QuizService) getOwnedQuiz(quizID, userID int64) (*models.Quiz, error) {
	quiz, err := s.quizRepo.GetQuizByID(quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	if quiz == nil {
		return nil, ErrQuizNotFound
	}
	if quiz.OwnerID != userID {
		return nil, ErrNotQuizOwner
	}
	return quiz, nil
}

// GetUserQuizzes retrieves all quizzes owned by a user
func (s *QuizService) GetUserQuizzes(userID int64) ([]models.Quiz, error) {
	quizzes, err := s.quizRepo.GetUserQuizzes(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quizzes: %w", err)
	}
	return quizzes, nil
}

// GetPublicQuizzes retrieves all publicly shared quizzes
func (s *QuizService) GetPublicQuizzes() ([]models.Quiz, error) {
	quizzes, err := s.quizRepo.GetPublicQuizzes()
	if err != nil {
		return nil, fmt.Errorf("failed to get public quizzes: %w", err)
	}
	return quizzes, nil
}

// UpdateQuiz updates a quiz's title, description and visibility
func (s *QuizService) UpdateQuiz(quizID, userID int64, title, description string, isPublic bool) error {
	if _, err := s.getOwnedQuiz(quizID, userID); err != nil {
		return err
	}
	if err := validation.ValidateQuizTitle(title); err != nil {
		return err
	}

	if err := s.quizRepo.UpdateQuiz(quizID, strings.TrimSpace(title), strings.TrimSpace(description), isPublic); err != nil {
		return fmt.Errorf("failed to update quiz: %w", err)
	}
	return nil
}

// DeleteQuiz deletes a quiz and all its questions and practice history
func (s *QuizService) DeleteQuiz(quizID, userID int64) error {
	if _, err := s.getOwnedQuiz(quizID, userID); err != nil {
		return err
	}

	if err := s.quizRepo.DeleteQuiz(quizID); err != nil {
		return fmt.Errorf("failed to delete quiz: %w", err)
	}
	return nil
}

// AddQuestion appends a question to a quiz. choices is an optional list of
// multiple-choice options; when present the expected answer must be one of
// them.
func (s *QuizService) AddQuestion(quizID, userID int64, prompt, answer string, choices []string) (*models.Question, error) {
	if _, err := s.getOwnedQuiz(quizID, userID); err != nil {
		return nil, err
	}

	prompt = strings.TrimSpace(prompt)
	answer = strings.TrimSpace(answer)
	if err := validation.ValidateQuestion(prompt, answer); err != nil {
		return nil, err
	}

	choicesJSON, err := encodeChoices(answer, choices)
	if err != nil {
		return nil, err
	}

	count, err := s.quizRepo.GetQuestionCount(quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to get question count: %w", err)
	}

	question, err := s.quizRepo.AddQuestion(quizID, prompt, answer, choicesJSON, count+1)
	if err != nil {
		return nil, fmt.Errorf("failed to add question: %w", err)
	}
	return question, nil
}

// UpdateQuestion updates a question's prompt, answer and choices
func (s *QuizService) UpdateQuestion(questionID, userID int64, prompt, answer string, choices []string) error {
	question, err := s.quizRepo.GetQuestionByID(questionID)
	if err != nil {
		return fmt.Errorf("failed to get question: %w", err)
	}
	if question == nil {
		return ErrQuestionNotFound
	}
	if _, err := s.getOwnedQuiz(question.QuizID, userID); err != nil {
		return err
	}

	prompt = strings.TrimSpace(prompt)
	answer = strings.TrimSpace(answer)
	if err := validation.ValidateQuestion(prompt, answer); err != nil {
		return err
	}

	choicesJSON, err := encodeChoices(answer, choices)
	if err != nil {
		return err
	}

	if err := s.quizRepo.UpdateQuestion(questionID, prompt, answer, choicesJSON); err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}
	return nil
}

// DeleteQuestion deletes a question from a quiz
func (s *QuizService) DeleteQuestion(questionID, userID int64) error {
	question, err := s.quizRepo.GetQuestionByID(questionID)
	if err != nil {
		return fmt.Errorf("failed to get question: %w", err)
	}
	if question == nil {
		return ErrQuestionNotFound
	}
	if _, err := s.getOwnedQuiz(question.QuizID, userID); err != nil {
		return err
	}

	if err := s.quizRepo.DeleteQuestion(questionID); err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}
	return nil
}

// ImportQuestions bulk-imports questions from newline-separated text. Each
// line holds a prompt and answer separated by a pipe or tab. Duplicate
// prompts within the batch are dropped.
func (s *QuizService) ImportQuestions(quizID, userID int64, text string) (int, error) {
	if _, err := s.getOwnedQuiz(quizID, userID); err != nil {
		return 0, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return 0, errors.New("no questions provided")
	}

	seen := make(map[string]bool)
	var questions []models.Question
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		sep := "|"
		if !strings.Contains(line, "|") {
			sep = "\t"
		}
		parts := strings.SplitN(line, sep, 2)
		if len(parts) != 2 {
			log.Printf("Skipping malformed import line: %q", line)
			continue
		}

		prompt := strings.TrimSpace(parts[0])
		answer := strings.TrimSpace(parts[1])
		if err := validation.ValidateQuestion(prompt, answer); err != nil {
			log.Printf("Skipping invalid import line: %v", err)
			continue
		}
		key := strings.ToLower(prompt)
		if seen[key] {
			continue
		}
		seen[key] = true

		questions = append(questions, models.Question{Prompt: prompt, Answer: answer})
	}

	if len(questions) == 0 {
		return 0, errors.New("no valid questions found")
	}

	if err := s.quizRepo.AddQuestions(quizID, questions); err != nil {
		return 0, fmt.Errorf("failed to import questions: %w", err)
	}

	log.Printf("Imported %d questions into quiz %d", len(questions), quizID)
	return len(questions), nil
}

// encodeChoices normalizes a choices list to its JSON column value. An
// empty list means free-text answering and is stored as an empty string.
func encodeChoices(answer string, choices []string) (string, error) {
	var clean []string
	seen := make(map[string]bool)
	for _, c := range choices {
		c = strings.TrimSpace(c)
		if c == "" || seen[strings.ToLower(c)] {
			continue
		}
		seen[strings.ToLower(c)] = true
		clean = append(clean, c)
	}
	if len(clean) == 0 {
		return "", nil
	}

	if !seen[strings.ToLower(answer)] {
		return "", errors.New("choices must include the expected answer")
	}
	if len(clean) < 2 {
		return "", errors.New("at least two choices are required")
	}

	encoded, err := json.Marshal(clean)
	if err != nil {
		return "", fmt.Errorf("failed to encode choices: %w", err)
	}
	return string(encoded), nil
}
