package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"quizdrill/internal/models"
	"quizdrill/internal/service"
)

// PracticeHandler serves the adaptive practice flow
type PracticeHandler struct {
	practiceService *service.PracticeService
}

func NewPracticeHandler(practiceService *service.PracticeService) *PracticeHandler {
	return &PracticeHandler{practiceService: practiceService}
}

type answerRequest struct {
	Answer string `json:"answer"`
}

type sessionView struct {
	ID             int64      `json:"id"`
	QuizID         int64      `json:"quiz_id"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	TotalQuestions int        `json:"total_questions"`
	TotalAttempts  int        `json:"total_attempts"`
	TotalCorrect   int        `json:"total_correct"`
}

func sessionViewOf(session *models.PracticeSession) sessionView {
	return sessionView{
		ID:             session.ID,
		QuizID:         session.QuizID,
		StartedAt:      session.StartedAt,
		CompletedAt:    session.CompletedAt,
		TotalQuestions: session.TotalQuestions,
		TotalAttempts:  session.TotalAttempts,
		TotalCorrect:   session.TotalCorrect,
	}
}

// Start handles POST /api/practice/start/{quizID}
func (h *PracticeHandler) Start(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	quizID, ok := pathID(w, r, "quizID")
	if !ok {
		return
	}

	session, question, err := h.practiceService.Start(user.ID, quizID)
	if err != nil {
		h.respondPracticeError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"session":  sessionViewOf(session),
		"question": question,
	})
}

// Question handles GET /api/practice/question, re-serving the question the
// live session is waiting on.
func (h *PracticeHandler) Question(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	question, err := h.practiceService.CurrentQuestion(user.ID)
	if err != nil {
		h.respondPracticeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, question)
}

// Answer handles POST /api/practice/answer
func (h *PracticeHandler) Answer(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req answerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}

	feedback, err := h.practiceService.SubmitAnswer(user.ID, req.Answer)
	if err != nil {
		h.respondPracticeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, feedback)
}

// Exit handles POST /api/practice/exit, abandoning the live session
func (h *PracticeHandler) Exit(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	if err := h.practiceService.Exit(user.ID); err != nil {
		h.respondPracticeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "exited"})
}

// Results handles GET /api/practice/results/{sessionID}
func (h *PracticeHandler) Results(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	sessionID, ok := pathID(w, r, "sessionID")
	if !ok {
		return
	}

	result, err := h.practiceService.Results(user.ID, sessionID)
	if err != nil {
		h.respondPracticeError(w, err)
		return
	}

	type missedView struct {
		QuestionID     int64  `json:"question_id"`
		Prompt         string `json:"prompt"`
		Answer         string `json:"answer"`
		Attempts       int    `json:"attempts"`
		IncorrectCount int    `json:"incorrect_count"`
	}
	missed := make([]missedView, 0, len(result.Missed))
	for _, m := range result.Missed {
		missed = append(missed, missedView{
			QuestionID:     m.Question.ID,
			Prompt:         m.Question.Prompt,
			Answer:         m.Question.Answer,
			Attempts:       m.Attempts,
			IncorrectCount: m.IncorrectCount,
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"session": sessionViewOf(&result.Session),
		"missed":  missed,
	})
}

// History handles GET /api/practice/history?limit=N
func (h *PracticeHandler) History(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	sessions, err := h.practiceService.RecentSessions(user.ID, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load practice history", "", err)
		return
	}

	views := make([]sessionView, 0, len(sessions))
	for i := range sessions {
		views = append(views, sessionViewOf(&sessions[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{"sessions": views})
}

func (h *PracticeHandler) respondPracticeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNoActiveSession), errors.Is(err, service.ErrQuizNotFound):
		respondWithError(w, http.StatusNotFound, err.Error(), "", nil)
	case errors.Is(err, service.ErrQuizEmpty):
		respondWithError(w, http.StatusConflict, err.Error(), "", nil)
	default:
		respondWithError(w, http.StatusInternalServerError, "Practice request failed", "", err)
	}
}
