package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/oichat/backend/internal/models"
	"github.com/oichat/backend/internal/provider"
)

// ErrAgentNotEligible is returned when the agent is missing, owned by another
// user, or not ACTIVE. The gateway is never called in that case.
var ErrAgentNotEligible = errors.New("agent must exist, belong to the caller, and be active")

// ConnectionStore is the subset of the connection repository the pairing
// service needs.
type ConnectionStore interface {
	Upsert(ctx context.Context, c *models.WhatsAppConnection) error
	ReserveInstanceName(ctx context.Context, userID, agentID uuid.UUID, candidate string) (string, error)
	GetByInstanceName(ctx context.Context, instanceName string) (*models.WhatsAppConnection, error)
	GetByUserAndAgent(ctx context.Context, userID, agentID uuid.UUID) (*models.WhatsAppConnection, error)
	MarkConnected(ctx context.Context, instanceName string) (*models.WhatsAppConnection, bool, error)
	MarkError(ctx context.Context, instanceName string) error
}

// AgentStore resolves agents for eligibility checks. GetByID returns nil when
// the agent does not exist.
type AgentStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Agent, error)
}

// UserStore records the established channel identifier on the owning user.
type UserStore interface {
	SetRemoteJid(ctx context.Context, userID uuid.UUID, remoteJid string) error
}

// Gateway is the provider client contract (implemented by provider.Gateway).
type Gateway interface {
	CreateInstance(ctx context.Context, instanceName string, agentID uuid.UUID) error
	Connect(ctx context.Context, instanceName string) (*provider.ConnectResult, error)
	CheckStatus(ctx context.Context, instanceName string) (bool, error)
}

// PairingResult is returned to the connect view: the instance to poll and the
// artifact to render.
type PairingResult struct {
	InstanceName string
	Artifact     provider.PairingArtifact
	PairingCode  string
	Count        int
}

// StatusReport is the outcome of one status check.
type StatusReport struct {
	InstanceName string `json:"instance"`
	IsConnected  bool   `json:"isConnected"`
	Status       string `json:"status"`
}

type Service interface {
	EnsureInstance(ctx context.Context, userID, agentID uuid.UUID) (string, error)
	RequestPairing(ctx context.Context, userID, agentID uuid.UUID) (*PairingResult, error)
	ReportStatus(ctx context.Context, instanceName string) (*StatusReport, error)
	InstanceCheck(ctx context.Context, userID, agentID uuid.UUID) (*models.WhatsAppConnection, error)
}

type service struct {
	connections ConnectionStore
	agents      AgentStore
	users       UserStore
	gateway     Gateway
	log         *slog.Logger
}

func NewService(connections ConnectionStore, agents AgentStore, users UserStore, gateway Gateway, log *slog.Logger) *service {
	if log == nil {
		log = slog.Default()
	}
	return &service{connections: connections, agents: agents, users: users, gateway: gateway, log: log}
}

var _ Service = (*service)(nil)

// newInstanceName mints a random, collision-resistant provider instance name.
// Deliberately not derived from user or agent IDs.
func newInstanceName() string {
	return "wa_" + strings.ToLower(ulid.Make().String())
}

// EnsureInstance returns the instance name for (user, agent), minting and
// reserving one when the pair has none. The reservation is atomic on the
// pair, so callers racing past the lookup still converge on a single name and
// a single row: the loser adopts the winner's name and its own candidate
// instance is left orphaned at the provider, where creation is idempotent and
// harmless to repeat.
func (s *service) EnsureInstance(ctx context.Context, userID, agentID uuid.UUID) (string, error) {
	conn, err := s.connections.GetByUserAndAgent(ctx, userID, agentID)
	if err != nil {
		return "", fmt.Errorf("look up connection: %w", err)
	}
	if conn != nil && conn.InstanceName != "" {
		return conn.InstanceName, nil
	}
	candidate := newInstanceName()
	if err := s.gateway.CreateInstance(ctx, candidate, agentID); err != nil {
		return "", err
	}
	name, err := s.connections.ReserveInstanceName(ctx, userID, agentID, candidate)
	if err != nil {
		return "", fmt.Errorf("reserve instance name: %w", err)
	}
	if name != candidate {
		s.log.Info("adopted concurrently reserved instance", "instance", name, "orphaned", candidate)
	}
	return name, nil
}

// RequestPairing runs the create+connect sequence and persists the PENDING
// record. Every store write is preceded by a successful gateway call; a store
// failure after a gateway success is surfaced, never hidden.
func (s *service) RequestPairing(ctx context.Context, userID, agentID uuid.UUID) (*PairingResult, error) {
	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("look up agent: %w", err)
	}
	if agent == nil || agent.UserID != userID || agent.Status != models.AgentStatusActive {
		return nil, ErrAgentNotEligible
	}

	instanceName, err := s.EnsureInstance(ctx, userID, agentID)
	if err != nil {
		return nil, err
	}

	res, err := s.gateway.Connect(ctx, instanceName)
	if err != nil {
		return nil, err
	}

	code := res.Artifact.Payload()
	conn := &models.WhatsAppConnection{
		UserID:         userID,
		AgentID:        agentID,
		InstanceName:   instanceName,
		ConnectionCode: &code,
		Status:         models.ConnectionStatusPending,
	}
	if err := s.connections.Upsert(ctx, conn); err != nil {
		return nil, fmt.Errorf("persist connection: %w", err)
	}

	s.log.Info("pairing requested", "user_id", userID, "agent_id", agentID, "instance", instanceName)
	return &PairingResult{
		InstanceName: instanceName,
		Artifact:     res.Artifact,
		PairingCode:  res.PairingCode,
		Count:        res.Count,
	}, nil
}

// ReportStatus asks the provider whether the link is up and reconciles the
// stored record. A transport failure is downgraded to "not connected" so
// client polling keeps going; the record moves PENDING -> ERROR but any other
// status is left alone.
func (s *service) ReportStatus(ctx context.Context, instanceName string) (*StatusReport, error) {
	connected, err := s.gateway.CheckStatus(ctx, instanceName)
	if err != nil {
		s.log.Warn("status check failed", "instance", instanceName, "error", err)
		if markErr := s.connections.MarkError(ctx, instanceName); markErr != nil {
			s.log.Error("mark connection error failed", "instance", instanceName, "error", markErr)
		}
		// MarkError only moves PENDING; echo whatever the record settled on.
		status := models.ConnectionStatusError
		if conn, getErr := s.connections.GetByInstanceName(ctx, instanceName); getErr == nil && conn != nil {
			status = conn.Status
		}
		return &StatusReport{
			InstanceName: instanceName,
			IsConnected:  false,
			Status:       status,
		}, nil
	}

	if !connected {
		status := models.ConnectionStatusPending
		if conn, err := s.connections.GetByInstanceName(ctx, instanceName); err == nil && conn != nil {
			status = conn.Status
		}
		return &StatusReport{InstanceName: instanceName, IsConnected: false, Status: status}, nil
	}

	conn, transitioned, err := s.connections.MarkConnected(ctx, instanceName)
	if err != nil {
		return nil, fmt.Errorf("mark connected: %w", err)
	}
	if transitioned {
		s.log.Info("whatsapp instance connected", "instance", instanceName, "user_id", conn.UserID)
		if conn.ConnectionCode != nil {
			if err := s.users.SetRemoteJid(ctx, conn.UserID, *conn.ConnectionCode); err != nil {
				s.log.Error("set remote jid failed", "user_id", conn.UserID, "error", err)
			}
		}
	}
	return &StatusReport{
		InstanceName: instanceName,
		IsConnected:  true,
		Status:       models.ConnectionStatusConnected,
	}, nil
}

// InstanceCheck returns the stored connection for (user, agent), or nil. Used
// by the connect view to short-circuit re-creation.
func (s *service) InstanceCheck(ctx context.Context, userID, agentID uuid.UUID) (*models.WhatsAppConnection, error) {
	return s.connections.GetByUserAndAgent(ctx, userID, agentID)
}
