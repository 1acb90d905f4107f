package router

import (
	"net/http"
	"strings"

	"github.com/oichat/backend/internal/agents"
	"github.com/oichat/backend/internal/auth"
	"github.com/oichat/backend/internal/conversations"
	"github.com/oichat/backend/internal/dashboard"
	"github.com/oichat/backend/internal/users"
	"github.com/oichat/backend/internal/whatsapp"
)

// Handlers collects every handler the API mounts.
type Handlers struct {
	Auth          *auth.Handler
	Agents        *agents.Handler
	Users         *users.Handler
	WhatsApp      *whatsapp.Handler
	Dashboard     *dashboard.Handler
	Conversations *conversations.Handler
}

// New returns an http.Handler serving the API under /api. Everything except
// /api/auth/* sits behind the session middleware.
func New(h Handlers, sessionAuth func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()
	base := "/api"

	mux.HandleFunc(base+"/auth/register", methodPOST(h.Auth.Register))
	mux.HandleFunc(base+"/auth/login", methodPOST(h.Auth.Login))

	protected := http.NewServeMux()

	protected.HandleFunc(base+"/agents", agentsCollection(h.Agents))
	protected.HandleFunc(base+"/agents/", agentsItem(h.Agents))

	protected.HandleFunc(base+"/user", userHandler(h.Users))

	protected.HandleFunc(base+"/whatsapp/disconnect", methodPOST(h.Users.DisconnectWhatsApp))
	protected.HandleFunc(base+"/whatsapp/create-instance", methodPOST(h.WhatsApp.CreateInstance))
	protected.HandleFunc(base+"/whatsapp/connect-instance", methodPOST(h.WhatsApp.ConnectInstance))
	protected.HandleFunc(base+"/whatsapp/status-instance/", methodGET(h.WhatsApp.StatusInstance))
	protected.HandleFunc(base+"/whatsapp/instance-check/", methodGET(h.WhatsApp.InstanceCheck))

	protected.HandleFunc(base+"/dashboard/metrics", methodGET(h.Dashboard.GetMetrics))
	protected.HandleFunc(base+"/leads", methodGET(h.Dashboard.ListLeads))
	protected.HandleFunc(base+"/leads/", methodGET(h.Dashboard.GetLead))
	protected.HandleFunc(base+"/conversions", methodGET(h.Dashboard.ListConversions))

	protected.HandleFunc(base+"/agent/conversations/", conversationsHandler(h.Conversations))

	mux.Handle(base+"/", sessionAuth(protected))
	return mux
}

func methodGET(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func methodPOST(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func agentsCollection(h *agents.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			h.Create(w, r)
		case http.MethodGet:
			h.List(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func agentsItem(h *agents.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Get(w, r)
		case http.MethodPatch, http.MethodPut:
			h.Update(w, r)
		case http.MethodDelete:
			h.Delete(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func userHandler(h *users.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.GetMe(w, r)
		case http.MethodPatch, http.MethodPut:
			h.Update(w, r)
		case http.MethodDelete:
			h.Delete(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func conversationsHandler(h *conversations.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// expects /api/agent/conversations/{agentId}
		if strings.Count(strings.TrimRight(r.URL.Path, "/"), "/") < 3 {
			http.Error(w, `{"error":"invalid agent id"}`, http.StatusBadRequest)
			return
		}
		switch r.Method {
		case http.MethodPost:
			h.SendMessage(w, r)
		case http.MethodGet:
			h.History(w, r)
		case http.MethodDelete:
			h.Clear(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}
