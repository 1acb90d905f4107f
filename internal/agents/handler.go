package agents

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/oichat/backend/internal/middleware"
	"github.com/oichat/backend/internal/models"
)

type CreateAgentRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Prompt      string `json:"prompt"`
	Status      string `json:"status"`
}

type UpdateAgentRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Prompt      *string `json:"prompt"`
	Status      *string `json:"status"`
}

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"User not authenticated"}`, http.StatusUnauthorized)
		return
	}
	var req CreateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Prompt == "" {
		http.Error(w, `{"error":"name and prompt are required"}`, http.StatusBadRequest)
		return
	}
	ag, err := h.svc.Create(r.Context(), user.ID, req.Name, req.Description, req.Prompt, req.Status)
	if err != nil {
		h.writeServiceError(w, "create agent failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, ag)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"User not authenticated"}`, http.StatusUnauthorized)
		return
	}
	list, err := h.svc.List(r.Context(), user.ID)
	if err != nil {
		h.log.Error("list agents failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.Agent{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.userAndID(w, r)
	if !ok {
		return
	}
	ag, err := h.svc.Get(r.Context(), user.ID, id)
	if err != nil {
		h.writeServiceError(w, "get agent failed", err)
		return
	}
	writeJSON(w, http.StatusOK, ag)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.userAndID(w, r)
	if !ok {
		return
	}
	var req UpdateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	ag, err := h.svc.Update(r.Context(), user.ID, id, UpdateParams{
		Name:        req.Name,
		Description: req.Description,
		Prompt:      req.Prompt,
		Status:      req.Status,
	})
	if err != nil {
		h.writeServiceError(w, "update agent failed", err)
		return
	}
	writeJSON(w, http.StatusOK, ag)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.userAndID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), user.ID, id); err != nil {
		h.writeServiceError(w, "delete agent failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) userAndID(w http.ResponseWriter, r *http.Request) (*models.User, uuid.UUID, bool) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"User not authenticated"}`, http.StatusUnauthorized)
		return nil, uuid.Nil, false
	}
	parts := strings.Split(strings.TrimRight(r.URL.Path, "/"), "/")
	id, err := uuid.Parse(parts[len(parts)-1])
	if err != nil {
		http.Error(w, `{"error":"invalid agent id"}`, http.StatusBadRequest)
		return nil, uuid.Nil, false
	}
	return user, id, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, logMsg string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, `{"error":"Agente não encontrado"}`, http.StatusNotFound)
	case errors.Is(err, ErrActiveAgentExists):
		http.Error(w, `{"error":"user already has an active agent"}`, http.StatusConflict)
	case errors.Is(err, ErrInvalidStatus):
		http.Error(w, `{"error":"invalid status"}`, http.StatusBadRequest)
	default:
		h.log.Error(logMsg, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
