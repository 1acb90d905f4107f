package models

import (
	"time"

	"github.com/google/uuid"
)

// Connection lifecycle. PENDING from creation until the provider confirms the
// link (CONNECTED, terminal for the pairing flow) or a check fails (ERROR,
// retriable). DISCONNECTED is only ever set by the user-profile disconnect
// action, never by the pairing flow itself.
const (
	ConnectionStatusPending      = "PENDING"
	ConnectionStatusConnected    = "CONNECTED"
	ConnectionStatusDisconnected = "DISCONNECTED"
	ConnectionStatusError        = "ERROR"
)

// WhatsAppConnection is one pairing attempt for a (user, agent) pair.
// instance_name carries a uniqueness constraint; upserting on it is the only
// concurrency control the pairing flow relies on.
type WhatsAppConnection struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	AgentID        uuid.UUID `json:"agent_id"`
	InstanceName   string    `json:"instance_name"`
	ConnectionCode *string   `json:"connection_code"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}
