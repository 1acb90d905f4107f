package conversations

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oichat/backend/internal/chatcache"
	"github.com/oichat/backend/internal/middleware"
	"github.com/oichat/backend/internal/models"
)

// AgentChatGateway forwards a chat message to the provider-hosted agent.
type AgentChatGateway interface {
	SendAgentMessage(ctx context.Context, agentID, userID uuid.UUID, message string) (string, error)
}

// AgentLookup resolves agents for ownership checks.
type AgentLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Agent, error)
}

// Handler serves the dashboard test-chat under /api/agent/conversations.
// Transcripts live in the local chat cache, keyed by (user, agent).
type Handler struct {
	gateway AgentChatGateway
	agents  AgentLookup
	history *chatcache.Store
	log     *slog.Logger
}

func NewHandler(gateway AgentChatGateway, agents AgentLookup, history *chatcache.Store, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{gateway: gateway, agents: agents, history: history, log: log}
}

type sendMessageRequest struct {
	Message string `json:"message"`
}

type messageResponse struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// SendMessage handles POST /api/agent/conversations/{agentId}: forwards the
// message, appends both sides of the exchange to the transcript, and returns
// the agent's reply.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	user, agent, ok := h.resolve(w, r)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, `{"error":"message is required"}`, http.StatusBadRequest)
		return
	}

	reply, err := h.gateway.SendAgentMessage(r.Context(), agent.ID, user.ID, req.Message)
	if err != nil {
		h.log.Error("agent chat failed", "agent_id", agent.ID, "error", err)
		http.Error(w, `{"error":"agent is unavailable"}`, http.StatusBadGateway)
		return
	}

	now := time.Now()
	err = h.history.Append(user.ID, agent.ID,
		chatcache.Message{ID: uuid.NewString(), Content: req.Message, FromMe: true, Timestamp: now},
		chatcache.Message{ID: uuid.NewString(), Content: reply, FromMe: false, Timestamp: now},
	)
	if err != nil {
		h.log.Error("append chat history failed", "agent_id", agent.ID, "error", err)
	}

	writeJSON(w, http.StatusOK, messageResponse{
		ID:        uuid.NewString(),
		Text:      reply,
		Sender:    "agent",
		Timestamp: now,
	})
}

// History handles GET /api/agent/conversations/{agentId}.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	user, agent, ok := h.resolve(w, r)
	if !ok {
		return
	}
	msgs, err := h.history.Load(user.ID, agent.ID)
	if err != nil {
		h.log.Error("load chat history failed", "agent_id", agent.ID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if msgs == nil {
		msgs = []chatcache.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

// Clear handles DELETE /api/agent/conversations/{agentId}.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	user, agent, ok := h.resolve(w, r)
	if !ok {
		return
	}
	if err := h.history.Clear(user.ID, agent.ID); err != nil {
		h.log.Error("clear chat history failed", "agent_id", agent.ID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (*models.User, *models.Agent, bool) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"User not authenticated"}`, http.StatusUnauthorized)
		return nil, nil, false
	}
	parts := strings.Split(strings.TrimRight(r.URL.Path, "/"), "/")
	agentID, err := uuid.Parse(parts[len(parts)-1])
	if err != nil {
		http.Error(w, `{"error":"invalid agent id"}`, http.StatusBadRequest)
		return nil, nil, false
	}
	agent, err := h.agents.GetByID(r.Context(), agentID)
	if err != nil {
		h.log.Error("look up agent failed", "agent_id", agentID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return nil, nil, false
	}
	if agent == nil || agent.UserID != user.ID {
		http.Error(w, `{"error":"Agente não encontrado"}`, http.StatusNotFound)
		return nil, nil, false
	}
	return user, agent, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
