package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oichat/backend/internal/models"
)

type ConversionRepo struct {
	pool *pgxpool.Pool
}

func NewConversionRepo(pool *pgxpool.Pool) *ConversionRepo {
	return &ConversionRepo{pool: pool}
}

func (r *ConversionRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Conversion, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, user_id, agent_id, type, value, notes, created_at
		FROM conversions WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Conversion
	for rows.Next() {
		var c models.Conversion
		if err := rows.Scan(&c.ID, &c.LeadID, &c.UserID, &c.AgentID, &c.Type, &c.Value, &c.Notes, &c.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &c)
	}
	return list, rows.Err()
}

func (r *ConversionRepo) CountByUserID(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM conversions WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}
