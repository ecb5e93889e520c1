package handlers

import (
	"net/http"
	"time"

	"quizdrill/internal/models"
	"quizdrill/internal/repository"
	"quizdrill/internal/service"
)

// AdminHandler serves user management endpoints, all behind RequireAdmin
type AdminHandler struct {
	userRepo      *repository.UserRepository
	backupService *service.BackupService
	version       string
}

func NewAdminHandler(userRepo *repository.UserRepository, backupService *service.BackupService, version string) *AdminHandler {
	return &AdminHandler{
		userRepo:      userRepo,
		backupService: backupService,
		version:       version,
	}
}

type adminUserView struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

func adminViewOf(user *models.User) adminUserView {
	return adminUserView{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		IsAdmin:   user.IsAdmin,
		CreatedAt: user.CreatedAt,
	}
}

// ListUsers handles GET /api/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userRepo.GetAllUsers()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load users", "", err)
		return
	}

	views := make([]adminUserView, 0, len(users))
	for i := range users {
		views = append(views, adminViewOf(&users[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"users":   views,
		"version": h.version,
	})
}

// UpdateUser handles PUT /api/admin/users/{id}, editing profile fields and
// the admin flag.
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		IsAdmin bool   `json:"is_admin"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}

	target, err := h.userRepo.GetUserByID(userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load user", "", err)
		return
	}
	if target == nil {
		respondWithError(w, http.StatusNotFound, "User not found", "", nil)
		return
	}

	admin := GetUserFromContext(r.Context())
	if admin.ID == userID && !req.IsAdmin {
		respondWithError(w, http.StatusBadRequest, "Cannot remove your own admin access", "", nil)
		return
	}

	if err := h.userRepo.UpdateUser(userID, req.Email, req.Name, req.IsAdmin); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to update user", "", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// DeleteUser handles DELETE /api/admin/users/{id}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	admin := GetUserFromContext(r.Context())
	if admin.ID == userID {
		respondWithError(w, http.StatusBadRequest, "Cannot delete your own account", "", nil)
		return
	}

	if err := h.userRepo.DeleteUser(userID); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to delete user", "", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ExportBackup handles GET /api/admin/backup, streaming the full database
// export as a JSON download.
func (h *AdminHandler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="quizdrill-backup.json"`)
	if err := h.backupService.ExportToWriter(w); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to export backup", "", err)
	}
}
