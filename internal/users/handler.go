package users

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/oichat/backend/internal/middleware"
	"github.com/oichat/backend/internal/models"
)

// UserRepo is the user repository contract for the profile surface.
type UserRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id uuid.UUID) error
	ClearRemoteJid(ctx context.Context, userID uuid.UUID) error
}

// ConnectionDisconnecter marks the user's live connections DISCONNECTED.
type ConnectionDisconnecter interface {
	DisconnectForUser(ctx context.Context, userID uuid.UUID) error
}

// Handler serves the user profile endpoints, including the WhatsApp
// disconnect action that clears the channel link outside the pairing flow.
type Handler struct {
	users       UserRepo
	connections ConnectionDisconnecter
	log         *slog.Logger
}

func NewHandler(users UserRepo, connections ConnectionDisconnecter, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{users: users, connections: connections, log: log}
}

// GetMe handles GET /api/user.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"User not authenticated"}`, http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Update handles PATCH /api/user.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"User not authenticated"}`, http.StatusUnauthorized)
		return
	}
	var body struct {
		Name  *string `json:"name"`
		Email *string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if body.Name != nil {
		user.Name = *body.Name
	}
	if body.Email != nil {
		user.Email = *body.Email
	}
	if err := h.users.Update(r.Context(), user); err != nil {
		h.log.Error("update user failed", "user_id", user.ID, "error", err)
		http.Error(w, `{"error":"update failed"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Delete handles DELETE /api/user.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"User not authenticated"}`, http.StatusUnauthorized)
		return
	}
	if err := h.users.Delete(r.Context(), user.ID); err != nil {
		h.log.Error("delete user failed", "user_id", user.ID, "error", err)
		http.Error(w, `{"error":"delete failed"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DisconnectWhatsApp handles POST /api/whatsapp/disconnect: clears the user's
// channel identifier and marks their connections DISCONNECTED. This is the
// only place DISCONNECTED is ever set.
func (h *Handler) DisconnectWhatsApp(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"User not authenticated"}`, http.StatusUnauthorized)
		return
	}
	if err := h.users.ClearRemoteJid(r.Context(), user.ID); err != nil {
		h.log.Error("clear remote jid failed", "user_id", user.ID, "error", err)
		http.Error(w, `{"error":"disconnect failed"}`, http.StatusInternalServerError)
		return
	}
	if err := h.connections.DisconnectForUser(r.Context(), user.ID); err != nil {
		h.log.Error("disconnect connections failed", "user_id", user.ID, "error", err)
		http.Error(w, `{"error":"disconnect failed"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
