package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oichat/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new user on the FREE plan and returns it.
func (r *Repository) Create(ctx context.Context, name, email, passwordHash string) (*models.User, error) {
	u := &models.User{Name: name, Email: email, Plan: models.PlanFree}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, plan)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, name, email, passwordHash, models.PlanFree).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetByEmail returns the user and password hash for login. Returns nil when
// the email is unknown.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, string, error) {
	var u models.User
	var passwordHash string
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, email, plan, remote_jid, created_at, password_hash
		FROM users WHERE email = $1
	`, email).Scan(&u.ID, &u.Name, &u.Email, &u.Plan, &u.RemoteJid, &u.CreatedAt, &passwordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	return &u, passwordHash, nil
}
