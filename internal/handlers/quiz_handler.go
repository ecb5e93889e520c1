package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"quizdrill/internal/models"
	"quizdrill/internal/service"
)

// QuizHandler serves quiz and question management endpoints
type QuizHandler struct {
	quizService     *service.QuizService
	practiceService *service.PracticeService
}

func NewQuizHandler(quizService *service.QuizService, practiceService *service.PracticeService) *QuizHandler {
	return &QuizHandler{
		quizService:     quizService,
		practiceService: practiceService,
	}
}

type quizRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	IsPublic    bool   `json:"is_public"`
}

type questionRequest struct {
	Prompt  string   `json:"prompt"`
	Answer  string   `json:"answer"`
	Choices []string `json:"choices,omitempty"`
}

type importRequest struct {
	Text string `json:"text"`
}

type quizView struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IsPublic    bool      `json:"is_public"`
	IsOwner     bool      `json:"is_owner"`
	CreatedAt   time.Time `json:"created_at"`
}

type questionView struct {
	ID       int64    `json:"id"`
	Prompt   string   `json:"prompt"`
	Answer   string   `json:"answer"`
	Choices  []string `json:"choices,omitempty"`
	Position int      `json:"position"`
}

type quizDetailView struct {
	quizView
	Questions []questionView `json:"questions"`
}

func quizViewOf(quiz *models.Quiz, userID int64) quizView {
	return quizView{
		ID:          quiz.ID,
		Title:       quiz.Title,
		Description: quiz.Description,
		IsPublic:    quiz.IsPublic,
		IsOwner:     quiz.OwnerID == userID,
		CreatedAt:   quiz.CreatedAt,
	}
}

func questionViewOf(question *models.Question) questionView {
	return questionView{
		ID:       question.ID,
		Prompt:   question.Prompt,
		Answer:   question.Answer,
		Choices:  service.DecodeChoices(question.Choices),
		Position: question.Position,
	}
}

// List handles GET /api/quizzes, returning the user's own quizzes plus
// public quizzes from other users.
func (h *QuizHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	own, err := h.quizService.GetUserQuizzes(user.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load quizzes", "", err)
		return
	}
	public, err := h.quizService.GetPublicQuizzes()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load quizzes", "", err)
		return
	}

	views := make([]quizView, 0, len(own)+len(public))
	for i := range own {
		views = append(views, quizViewOf(&own[i], user.ID))
	}
	for i := range public {
		if public[i].OwnerID == user.ID {
			continue
		}
		views = append(views, quizViewOf(&public[i], user.ID))
	}

	respondJSON(w, http.StatusOK, map[string]any{"quizzes": views})
}

// Create handles POST /api/quizzes
func (h *QuizHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req quizRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}

	quiz, err := h.quizService.CreateQuiz(user.ID, req.Title, req.Description, req.IsPublic)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}
	respondJSON(w, http.StatusCreated, quizViewOf(quiz, user.ID))
}

// Get handles GET /api/quizzes/{id}, returning the quiz with its questions.
func (h *QuizHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	quizID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	detail, err := h.quizService.GetQuizWithQuestions(quizID, user.ID)
	if err != nil {
		h.respondQuizError(w, err)
		return
	}

	view := quizDetailView{
		quizView:  quizViewOf(&detail.Quiz, user.ID),
		Questions: make([]questionView, 0, len(detail.Questions)),
	}
	for i := range detail.Questions {
		view.Questions = append(view.Questions, questionViewOf(&detail.Questions[i]))
	}
	// Answers are only the owner's business
	if detail.Quiz.OwnerID != user.ID {
		for i := range view.Questions {
			view.Questions[i].Answer = ""
		}
	}
	respondJSON(w, http.StatusOK, view)
}

// Update handles PUT /api/quizzes/{id}
func (h *QuizHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	quizID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req quizRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}

	if err := h.quizService.UpdateQuiz(quizID, user.ID, req.Title, req.Description, req.IsPublic); err != nil {
		h.respondQuizError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// Delete handles DELETE /api/quizzes/{id}
func (h *QuizHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	quizID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.quizService.DeleteQuiz(quizID, user.ID); err != nil {
		h.respondQuizError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Stats handles GET /api/quizzes/{id}/stats
func (h *QuizHandler) Stats(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	quizID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	stats, missed, err := h.practiceService.QuizStats(user.ID, quizID)
	if err != nil {
		h.respondQuizError(w, err)
		return
	}

	type missedView struct {
		Question       questionView `json:"question"`
		Attempts       int          `json:"attempts"`
		IncorrectCount int          `json:"incorrect_count"`
	}
	missedViews := make([]missedView, 0, len(missed))
	for i := range missed {
		missedViews = append(missedViews, missedView{
			Question:       questionViewOf(&missed[i].Question),
			Attempts:       missed[i].Attempts,
			IncorrectCount: missed[i].IncorrectCount,
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"session_count":  stats.SessionCount,
		"total_attempts": stats.TotalAttempts,
		"total_correct":  stats.TotalCorrect,
		"most_missed":    missedViews,
	})
}

// AddQuestion handles POST /api/quizzes/{id}/questions
func (h *QuizHandler) AddQuestion(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	quizID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req questionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}

	question, err := h.quizService.AddQuestion(quizID, user.ID, req.Prompt, req.Answer, req.Choices)
	if err != nil {
		h.respondQuizError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, questionViewOf(question))
}

// ImportQuestions handles POST /api/quizzes/{id}/questions/import, accepting
// one question per line as "prompt | answer" or tab-separated.
func (h *QuizHandler) ImportQuestions(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	quizID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req importRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}

	added, err := h.quizService.ImportQuestions(quizID, user.ID, req.Text)
	if err != nil {
		h.respondQuizError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"added": added})
}

// UpdateQuestion handles PUT /api/questions/{id}
func (h *QuizHandler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	questionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req questionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}

	if err := h.quizService.UpdateQuestion(questionID, user.ID, req.Prompt, req.Answer, req.Choices); err != nil {
		h.respondQuizError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// DeleteQuestion handles DELETE /api/questions/{id}
func (h *QuizHandler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	questionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.quizService.DeleteQuestion(questionID, user.ID); err != nil {
		h.respondQuizError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// respondQuizError maps quiz service errors onto HTTP statuses
func (h *QuizHandler) respondQuizError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrQuizNotFound), errors.Is(err, service.ErrQuestionNotFound):
		respondWithError(w, http.StatusNotFound, err.Error(), "", nil)
	case errors.Is(err, service.ErrNotQuizOwner):
		respondWithError(w, http.StatusForbidden, err.Error(), "", nil)
	default:
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
	}
}

// pathID parses a numeric {id}-style path segment, responding with 400 on
// garbage input.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid id", "", nil)
		return 0, false
	}
	return id, true
}
