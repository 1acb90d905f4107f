package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/oichat/backend/internal/middleware"
	"github.com/oichat/backend/internal/models"
)

// LeadRepo is the lead repository contract for dashboard queries.
type LeadRepo interface {
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Lead, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Lead, error)
	CountAllByUserID(ctx context.Context, userID uuid.UUID) (int, error)
}

// ConversionRepo is the conversion repository contract for dashboard queries.
type ConversionRepo interface {
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Conversion, error)
	CountByUserID(ctx context.Context, userID uuid.UUID) (int, error)
}

type Handler struct {
	leads       LeadRepo
	conversions ConversionRepo
	log         *slog.Logger
}

func NewHandler(leads LeadRepo, conversions ConversionRepo, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{leads: leads, conversions: conversions, log: log}
}

// GetMetrics handles GET /api/dashboard/metrics.
func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"User not authenticated"}`, http.StatusUnauthorized)
		return
	}
	totalLeads, err := h.leads.CountAllByUserID(r.Context(), user.ID)
	if err != nil {
		h.log.Error("count leads failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	conversions, err := h.conversions.CountByUserID(r.Context(), user.ID)
	if err != nil {
		h.log.Error("count conversions failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	rate := 0.0
	if totalLeads > 0 {
		rate = float64(conversions) / float64(totalLeads) * 100
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"totalLeads":     totalLeads,
		"conversions":    conversions,
		"conversionRate": rate,
	})
}

// ListLeads handles GET /api/leads.
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"User not authenticated"}`, http.StatusUnauthorized)
		return
	}
	leads, err := h.leads.ListByUserID(r.Context(), user.ID)
	if err != nil {
		h.log.Error("list leads failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if leads == nil {
		leads = []*models.Lead{}
	}
	writeJSON(w, http.StatusOK, leads)
}

// GetLead handles GET /api/leads/{id}.
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"User not authenticated"}`, http.StatusUnauthorized)
		return
	}
	parts := strings.Split(strings.TrimRight(r.URL.Path, "/"), "/")
	id, err := uuid.Parse(parts[len(parts)-1])
	if err != nil {
		http.Error(w, `{"error":"invalid lead id"}`, http.StatusBadRequest)
		return
	}
	lead, err := h.leads.GetByID(r.Context(), user.ID, id)
	if err != nil {
		h.log.Error("get lead failed", "lead_id", id, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if lead == nil {
		http.Error(w, `{"error":"lead not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// ListConversions handles GET /api/conversions.
func (h *Handler) ListConversions(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"User not authenticated"}`, http.StatusUnauthorized)
		return
	}
	list, err := h.conversions.ListByUserID(r.Context(), user.ID)
	if err != nil {
		h.log.Error("list conversions failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.Conversion{}
	}
	writeJSON(w, http.StatusOK, list)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
