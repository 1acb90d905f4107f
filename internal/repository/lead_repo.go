package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oichat/backend/internal/models"
)

type LeadRepo struct {
	pool *pgxpool.Pool
}

func NewLeadRepo(pool *pgxpool.Pool) *LeadRepo {
	return &LeadRepo{pool: pool}
}

const leadColumns = `id, user_id, agent_id, whatsapp_jid, whatsapp_lid, conversion_type, status, created_at, last_contact_at, last_agent_message_at`

func (r *LeadRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+` FROM leads WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Lead
	for rows.Next() {
		var l models.Lead
		if err := rows.Scan(&l.ID, &l.UserID, &l.AgentID, &l.WhatsAppJid, &l.WhatsAppLid, &l.ConversionType, &l.Status, &l.CreatedAt, &l.LastContactAt, &l.LastAgentMessageAt); err != nil {
			return nil, err
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}

// GetByID returns nil when the lead does not exist or belongs to another user.
func (r *LeadRepo) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Lead, error) {
	var l models.Lead
	err := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+` FROM leads WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(&l.ID, &l.UserID, &l.AgentID, &l.WhatsAppJid, &l.WhatsAppLid, &l.ConversionType, &l.Status, &l.CreatedAt, &l.LastContactAt, &l.LastAgentMessageAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// CountByUserID returns total leads and how many have the given status.
func (r *LeadRepo) CountByUserID(ctx context.Context, userID uuid.UUID, status string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM leads WHERE user_id = $1 AND status = $2
	`, userID, status).Scan(&n)
	return n, err
}

func (r *LeadRepo) CountAllByUserID(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}
