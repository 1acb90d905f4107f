package models

import (
	"time"

	"github.com/google/uuid"
)

// Plan tiers. WhatsApp pairing is a PRO feature; the check lives in the
// connect flow, not in the pairing core.
const (
	PlanFree = "FREE"
	PlanPro  = "PRO"
)

type User struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Plan      string     `json:"plan"`
	RemoteJid *string    `json:"remote_jid,omitempty"`
	PlanStart *time.Time `json:"plan_start,omitempty"`
	PlanEnd   *time.Time `json:"plan_end,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
