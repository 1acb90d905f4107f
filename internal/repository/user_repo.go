package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oichat/backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// GetByID returns nil when the user does not exist.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, email, plan, remote_jid, plan_start, plan_end, created_at
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Name, &u.Email, &u.Plan, &u.RemoteJid, &u.PlanStart, &u.PlanEnd, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Update(ctx context.Context, u *models.User) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET name = $2, email = $3, plan = $4 WHERE id = $1
	`, u.ID, u.Name, u.Email, u.Plan)
	return err
}

func (r *UserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

// SetRemoteJid records the established channel identifier once a pairing
// reaches CONNECTED.
func (r *UserRepo) SetRemoteJid(ctx context.Context, userID uuid.UUID, remoteJid string) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET remote_jid = $2 WHERE id = $1`, userID, remoteJid)
	return err
}

// ClearRemoteJid removes the channel identifier on disconnect.
func (r *UserRepo) ClearRemoteJid(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET remote_jid = NULL WHERE id = $1`, userID)
	return err
}
