package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oichat/backend/internal/models"
)

type AgentRepo struct {
	pool *pgxpool.Pool
}

func NewAgentRepo(pool *pgxpool.Pool) *AgentRepo {
	return &AgentRepo{pool: pool}
}

func (r *AgentRepo) Create(ctx context.Context, ag *models.Agent) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO agents (id, user_id, name, description, prompt, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, ag.ID, ag.UserID, ag.Name, ag.Description, ag.Prompt, ag.Status).Scan(&ag.CreatedAt, &ag.UpdatedAt)
}

// GetByID returns nil when the agent does not exist.
func (r *AgentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	var ag models.Agent
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, name, description, prompt, status, created_at, updated_at
		FROM agents WHERE id = $1
	`, id).Scan(&ag.ID, &ag.UserID, &ag.Name, &ag.Description, &ag.Prompt, &ag.Status, &ag.CreatedAt, &ag.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ag, nil
}

func (r *AgentRepo) Update(ctx context.Context, ag *models.Agent) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE agents SET name = $2, description = $3, prompt = $4, status = $5, updated_at = now()
		WHERE id = $1
	`, ag.ID, ag.Name, ag.Description, ag.Prompt, ag.Status)
	return err
}

func (r *AgentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM agents WHERE id = $1`, id)
	return err
}

func (r *AgentRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Agent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, name, description, prompt, status, created_at, updated_at
		FROM agents WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Agent
	for rows.Next() {
		var ag models.Agent
		if err := rows.Scan(&ag.ID, &ag.UserID, &ag.Name, &ag.Description, &ag.Prompt, &ag.Status, &ag.CreatedAt, &ag.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &ag)
	}
	return list, rows.Err()
}

// CountActiveByUser counts the user's ACTIVE agents, excluding excludeID
// (uuid.Nil to exclude none). Used to enforce the one-active-agent rule.
func (r *AgentRepo) CountActiveByUser(ctx context.Context, userID, excludeID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM agents
		WHERE user_id = $1 AND status = $2 AND id <> $3
	`, userID, models.AgentStatusActive, excludeID).Scan(&n)
	return n, err
}
