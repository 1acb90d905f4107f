package whatsapp

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/oichat/backend/internal/middleware"
	"github.com/oichat/backend/internal/provider"
)

// Handler serves the /api/whatsapp endpoints consumed by the connect view
// and its status poller.
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

type instanceRequest struct {
	Instance string `json:"instance"`
	AgentID  string `json:"agentId"`
}

// connectData mirrors the artifact payload the connect view renders.
type connectData struct {
	Code        string `json:"code,omitempty"`
	Base64      string `json:"base64,omitempty"`
	PairingCode string `json:"pairingCode,omitempty"`
	Count       int    `json:"count"`
}

// CreateInstance handles POST /api/whatsapp/create-instance. The instance
// name in the body is advisory; an existing record for the agent wins and a
// missing one gets a freshly minted name.
func (h *Handler) CreateInstance(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"User not authenticated"}`, http.StatusUnauthorized)
		return
	}
	var req instanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	agentID, err := uuid.Parse(req.AgentID)
	if err != nil {
		http.Error(w, `{"error":"invalid agentId"}`, http.StatusBadRequest)
		return
	}
	instanceName, err := h.svc.EnsureInstance(r.Context(), user.ID, agentID)
	if err != nil {
		h.writeGatewayError(w, "create instance failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"instance": instanceName})
}

// ConnectInstance handles POST /api/whatsapp/connect-instance: runs the full
// pairing sequence and returns the artifact to render.
func (h *Handler) ConnectInstance(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"User not authenticated"}`, http.StatusUnauthorized)
		return
	}
	var req instanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	agentID, err := uuid.Parse(req.AgentID)
	if err != nil {
		http.Error(w, `{"error":"invalid agentId"}`, http.StatusBadRequest)
		return
	}

	result, err := h.svc.RequestPairing(r.Context(), user.ID, agentID)
	if err != nil {
		if errors.Is(err, ErrAgentNotEligible) {
			http.Error(w, `{"error":"Agente deve estar ativo para conectar"}`, http.StatusBadRequest)
			return
		}
		h.writeGatewayError(w, "connect instance failed", err)
		return
	}

	data := connectData{PairingCode: result.PairingCode, Count: result.Count}
	switch result.Artifact.Kind {
	case provider.ArtifactImage:
		data.Base64 = result.Artifact.Image
	default:
		data.Code = result.Artifact.Code
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"instance": result.InstanceName,
		"data":     data,
	})
}

// StatusInstance handles GET /api/whatsapp/status-instance/{instanceName}.
// The check itself never fails the request; transport trouble comes back as
// isConnected=false so the poller keeps going.
func (h *Handler) StatusInstance(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"User not authenticated"}`, http.StatusUnauthorized)
		return
	}
	instanceName := pathTail(r.URL.Path, "/api/whatsapp/status-instance/")
	if instanceName == "" {
		http.Error(w, `{"error":"instance name is required"}`, http.StatusBadRequest)
		return
	}
	report, err := h.svc.ReportStatus(r.Context(), instanceName)
	if err != nil {
		h.log.Error("report status failed", "instance", instanceName, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// InstanceCheck handles GET /api/whatsapp/instance-check/{agentId}: tells the
// connect view whether a connection record already exists for the agent.
func (h *Handler) InstanceCheck(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"User not authenticated"}`, http.StatusUnauthorized)
		return
	}
	agentID, err := uuid.Parse(pathTail(r.URL.Path, "/api/whatsapp/instance-check/"))
	if err != nil {
		http.Error(w, `{"error":"invalid agent id"}`, http.StatusBadRequest)
		return
	}
	conn, err := h.svc.InstanceCheck(r.Context(), user.ID, agentID)
	if err != nil {
		h.log.Error("instance check failed", "agent_id", agentID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if conn == nil {
		writeJSON(w, http.StatusOK, map[string]any{"exists": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"exists": true, "connection": conn})
}

// writeGatewayError maps gateway/store failures to the uniform error shape.
// Provider messages are passed through; everything else stays generic.
func (h *Handler) writeGatewayError(w http.ResponseWriter, logMsg string, err error) {
	h.log.Error(logMsg, "error", err)

	var rejected *provider.RejectedError
	switch {
	case errors.Is(err, provider.ErrUnavailable):
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": provider.ErrUnavailable.Error()})
	case errors.As(err, &rejected):
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   rejected.Message,
			"details": map[string]int{"status": rejected.StatusCode},
		})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// pathTail returns the first path segment after prefix.
func pathTail(path, prefix string) string {
	tail := strings.TrimPrefix(path, prefix)
	if i := strings.IndexByte(tail, '/'); i >= 0 {
		tail = tail[:i]
	}
	return tail
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
