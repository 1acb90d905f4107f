package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	LeadStatusPending  = "PENDING"
	LeadStatusSuccess  = "SUCCESS"
	LeadStatusFailed   = "FAILED"
	LeadStatusFollowUp = "FOLLOW_UP"
	LeadStatusLose     = "LOSE"

	ConversionTypeOrder = "ORDER"
	ConversionTypeSale  = "SALE"
)

type Lead struct {
	ID                 uuid.UUID  `json:"id"`
	UserID             uuid.UUID  `json:"user_id"`
	AgentID            *uuid.UUID `json:"agent_id,omitempty"`
	WhatsAppJid        string     `json:"whatsapp_jid"`
	WhatsAppLid        string     `json:"whatsapp_lid"`
	ConversionType     *string    `json:"conversion_type,omitempty"`
	Status             string     `json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
	LastContactAt      *time.Time `json:"last_contact_at,omitempty"`
	LastAgentMessageAt *time.Time `json:"last_agent_message_at,omitempty"`
}

type Conversion struct {
	ID        uuid.UUID  `json:"id"`
	LeadID    uuid.UUID  `json:"lead_id"`
	UserID    uuid.UUID  `json:"user_id"`
	AgentID   *uuid.UUID `json:"agent_id,omitempty"`
	Type      string     `json:"type"`
	Value     *float64   `json:"value,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
