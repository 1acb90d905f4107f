package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	AgentStatusActive   = "ACTIVE"
	AgentStatusInactive = "INACTIVE"
)

type Agent struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Prompt      string    `json:"prompt"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
