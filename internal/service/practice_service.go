package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"

	"quizdrill/internal/models"
	"quizdrill/internal/repository"
	"quizdrill/internal/scheduler"
)

var (
	ErrNoActiveSession = errors.New("no active practice session")
	ErrQuizEmpty       = errors.New("quiz has no questions")
)

// PracticeService runs practice sessions. Each user has at most one live
// session: the question set, the adaptive scheduler and the current
// position are held in memory, while every graded attempt and the final
// totals are persisted through the practice repository.
type PracticeService struct {
	practiceRepo  *repository.PracticeRepository
	quizRepo      *repository.QuizRepository
	questionLimit int

	mu   sync.Mutex
	live map[int64]*liveSession
}

// liveSession is the in-memory state of one running practice session.
// Scheduler question IDs are indexes into questions.
type liveSession struct {
	sessionID int64
	quizID    int64
	questions []models.Question
	sched     *scheduler.Scheduler
	current   int
	attempts  int
	correct   int
}

// QuestionView is a question as shown to the practicing user, without
// the expected answer.
type QuestionView struct {
	QuestionID     int64    `json:"question_id"`
	Prompt         string   `json:"prompt"`
	Choices        []string `json:"choices,omitempty"`
	AttemptNumber  int      `json:"attempt_number"`
	TotalQuestions int      `json:"total_questions"`
}

// AnswerFeedback reports the outcome of one submitted answer. When the
// session is finished Done is true and Next is nil.
type AnswerFeedback struct {
	Correct       bool          `json:"correct"`
	CorrectAnswer string        `json:"correct_answer"`
	Done          bool          `json:"done"`
	Next          *QuestionView `json:"next,omitempty"`
}

// NewPracticeService creates a new practice service. questionLimit caps how
// many questions a single session samples from the quiz.
func NewPracticeService(practiceRepo *repository.PracticeRepository, quizRepo *repository.QuizRepository, questionLimit int) *PracticeService {
	if questionLimit <= 0 {
		questionLimit = 20
	}
	return &PracticeService{
		practiceRepo:  practiceRepo,
		quizRepo:      quizRepo,
		questionLimit: questionLimit,
		live:          make(map[int64]*liveSession),
	}
}

// Start begins a practice session on a quiz the user can see. Any previous
// live session for the user is abandoned. Quizzes larger than the question
// limit are sampled down to a random subset.
func (s *PracticeService) Start(userID, quizID int64) (*models.PracticeSession, *QuestionView, error) {
	quiz, err := s.quizRepo.GetQuizByID(quizID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	if quiz == nil || (!quiz.IsPublic && quiz.OwnerID != userID) {
		return nil, nil, ErrQuizNotFound
	}

	questions, err := s.quizRepo.GetQuizQuestions(quizID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, nil, ErrQuizEmpty
	}

	if len(questions) > s.questionLimit {
		rand.Shuffle(len(questions), func(i, j int) {
			questions[i], questions[j] = questions[j], questions[i]
		})
		questions = questions[:s.questionLimit]
	}

	session, err := s.practiceRepo.CreateSession(userID, quizID, len(questions))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create practice session: %w", err)
	}

	sched := scheduler.New(len(questions), nil)
	first, err := sched.NextQuestion(scheduler.NoExclusion)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to pick first question: %w", err)
	}

	ls := &liveSession{
		sessionID: session.ID,
		quizID:    quizID,
		questions: questions,
		sched:     sched,
		current:   first,
	}

	s.mu.Lock()
	if old, ok := s.live[userID]; ok {
		log.Printf("Abandoning live practice session %d for user %d", old.sessionID, userID)
	}
	s.live[userID] = ls
	s.mu.Unlock()

	return session, ls.view(first), nil
}

// CurrentQuestion returns the question the user's live session is waiting
// on, for example after a page reload.
func (s *PracticeService) CurrentQuestion(userID int64) (*QuestionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ls, ok := s.live[userID]
	if !ok {
		return nil, ErrNoActiveSession
	}
	return ls.view(ls.current), nil
}

// SubmitAnswer grades the answer for the current question, records the
// attempt, and advances the session. On completion the session row is
// finalized and the live state dropped.
func (s *PracticeService) SubmitAnswer(userID int64, answer string) (*AnswerFeedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ls, ok := s.live[userID]
	if !ok {
		return nil, ErrNoActiveSession
	}

	question := ls.questions[ls.current]
	isCorrect := answersMatch(answer, question.Answer)

	if err := ls.sched.RecordAnswer(ls.current, isCorrect); err != nil {
		return nil, fmt.Errorf("failed to record answer: %w", err)
	}

	ls.attempts++
	if isCorrect {
		ls.correct++
	}

	if _, err := s.practiceRepo.RecordAttempt(ls.sessionID, question.ID, answer, isCorrect); err != nil {
		// The in-memory session already advanced; losing one attempt row
		// is better than wedging the drill.
		log.Printf("Failed to persist attempt for session %d: %v", ls.sessionID, err)
	}

	feedback := &AnswerFeedback{
		Correct:       isCorrect,
		CorrectAnswer: question.Answer,
	}

	if ls.sched.IsComplete() {
		if err := s.practiceRepo.CompleteSession(ls.sessionID, ls.attempts, ls.correct); err != nil {
			return nil, fmt.Errorf("failed to complete practice session: %w", err)
		}
		delete(s.live, userID)
		feedback.Done = true
		return feedback, nil
	}

	next, err := ls.sched.NextQuestion(ls.current)
	if err != nil {
		return nil, fmt.Errorf("failed to pick next question: %w", err)
	}
	ls.current = next
	feedback.Next = ls.view(next)
	return feedback, nil
}

// Exit abandons the user's live session, recording the totals so far and
// marking the session row complete.
func (s *PracticeService) Exit(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ls, ok := s.live[userID]
	if !ok {
		return ErrNoActiveSession
	}
	delete(s.live, userID)

	if err := s.practiceRepo.CompleteSession(ls.sessionID, ls.attempts, ls.correct); err != nil {
		return fmt.Errorf("failed to finalize practice session: %w", err)
	}
	return nil
}

// Results loads a finished session with its per-question miss breakdown.
// Only the session's own user can read it.
func (s *PracticeService) Results(userID, sessionID int64) (*models.PracticeResult, error) {
	session, err := s.practiceRepo.GetSessionByID(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get practice session: %w", err)
	}
	if session == nil || session.UserID != userID {
		return nil, ErrNoActiveSession
	}

	attempts, err := s.practiceRepo.GetSessionAttempts(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attempts: %w", err)
	}

	// Aggregate attempts per question and keep the ones that were missed
	type tally struct {
		attempts  int
		incorrect int
	}
	tallies := make(map[int64]*tally)
	var order []int64
	for _, a := range attempts {
		t, ok := tallies[a.QuestionID]
		if !ok {
			t = &tally{}
			tallies[a.QuestionID] = t
			order = append(order, a.QuestionID)
		}
		t.attempts++
		if !a.IsCorrect {
			t.incorrect++
		}
	}

	result := &models.PracticeResult{Session: *session}
	for _, questionID := range order {
		t := tallies[questionID]
		if t.incorrect == 0 {
			continue
		}
		question, err := s.quizRepo.GetQuestionByID(questionID)
		if err != nil {
			return nil, fmt.Errorf("failed to get question: %w", err)
		}
		if question == nil {
			continue
		}
		result.Missed = append(result.Missed, models.MissedQuestion{
			Question:       *question,
			Attempts:       t.attempts,
			IncorrectCount: t.incorrect,
		})
	}

	return result, nil
}

// QuizStats aggregates completed practice history for a quiz the user owns,
// including the questions most often answered wrong.
func (s *PracticeService) QuizStats(userID, quizID int64) (*models.QuizStats, []models.MissedQuestion, error) {
	quiz, err := s.quizRepo.GetQuizByID(quizID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	if quiz == nil || quiz.OwnerID != userID {
		return nil, nil, ErrQuizNotFound
	}

	stats, err := s.practiceRepo.GetQuizStats(quizID)
	if err != nil {
		return nil, nil, err
	}
	missed, err := s.practiceRepo.GetMostMissedQuestions(quizID, 10)
	if err != nil {
		return nil, nil, err
	}
	return stats, missed, nil
}

// RecentSessions returns a user's most recent practice sessions.
func (s *PracticeService) RecentSessions(userID int64, limit int) ([]models.PracticeSession, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.practiceRepo.GetUserSessions(userID, limit)
}

// view builds the answer-free projection of a question by scheduler index.
func (ls *liveSession) view(index int) *QuestionView {
	q := ls.questions[index]
	return &QuestionView{
		QuestionID:     q.ID,
		Prompt:         q.Prompt,
		Choices:        DecodeChoices(q.Choices),
		AttemptNumber:  ls.attempts + 1,
		TotalQuestions: len(ls.questions),
	}
}

// answersMatch compares a submitted answer to the expected answer,
// ignoring case and surrounding whitespace.
func answersMatch(got, want string) bool {
	return strings.EqualFold(strings.TrimSpace(got), strings.TrimSpace(want))
}

// DecodeChoices parses the stored choices column; an empty column means
// free-text answering.
func DecodeChoices(raw string) []string {
	if raw == "" {
		return nil
	}
	var choices []string
	if err := json.Unmarshal([]byte(raw), &choices); err != nil {
		log.Printf("Ignoring malformed choices column: %v", err)
		return nil
	}
	return choices
}
