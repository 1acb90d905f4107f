package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oichat/backend/internal/models"
)

// ConnectionRepo persists WhatsApp pairing attempts in whatsapp_connections.
// The table carries two uniqueness constraints: instance_name (Upsert keys on
// it so concurrent writes for the same instance converge on one row) and
// (user_id, agent_id) (ReserveInstanceName keys on it so concurrent pairing
// requests for the same pair converge on one instance name).
type ConnectionRepo struct {
	pool *pgxpool.Pool
}

func NewConnectionRepo(pool *pgxpool.Pool) *ConnectionRepo {
	return &ConnectionRepo{pool: pool}
}

// Upsert inserts or updates the row for c.InstanceName. Last writer wins on
// connection_code and status.
func (r *ConnectionRepo) Upsert(ctx context.Context, c *models.WhatsAppConnection) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO whatsapp_connections (user_id, agent_id, instance_name, connection_code, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (instance_name) DO UPDATE
		SET connection_code = EXCLUDED.connection_code, status = EXCLUDED.status
		RETURNING id, created_at
	`, c.UserID, c.AgentID, c.InstanceName, c.ConnectionCode, c.Status).Scan(&c.ID, &c.CreatedAt)
}

// ReserveInstanceName claims candidate for the (user, agent) pair, or adopts
// the name a concurrent caller reserved first. The unique index on
// (user_id, agent_id) makes the claim atomic: however many callers race past
// the existence check, exactly one row exists afterwards and every caller
// gets its instance_name back.
func (r *ConnectionRepo) ReserveInstanceName(ctx context.Context, userID, agentID uuid.UUID, candidate string) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO whatsapp_connections (user_id, agent_id, instance_name, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, agent_id) DO UPDATE
		SET instance_name = whatsapp_connections.instance_name
		RETURNING instance_name
	`, userID, agentID, candidate, models.ConnectionStatusPending).Scan(&name)
	return name, err
}

// GetByInstanceName returns nil when no row exists.
func (r *ConnectionRepo) GetByInstanceName(ctx context.Context, instanceName string) (*models.WhatsAppConnection, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, agent_id, instance_name, connection_code, status, created_at
		FROM whatsapp_connections WHERE instance_name = $1
	`, instanceName)
	return scanConnection(row)
}

// GetByUserAndAgent returns the connection for a (user, agent) pair, or nil.
func (r *ConnectionRepo) GetByUserAndAgent(ctx context.Context, userID, agentID uuid.UUID) (*models.WhatsAppConnection, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, agent_id, instance_name, connection_code, status, created_at
		FROM whatsapp_connections WHERE user_id = $1 AND agent_id = $2
		ORDER BY created_at DESC LIMIT 1
	`, userID, agentID)
	return scanConnection(row)
}

// MarkConnected transitions the row to CONNECTED. The status guard makes the
// transition fire at most once: a row already CONNECTED matches nothing and
// (nil, false, nil) is returned.
func (r *ConnectionRepo) MarkConnected(ctx context.Context, instanceName string) (*models.WhatsAppConnection, bool, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE whatsapp_connections SET status = $2
		WHERE instance_name = $1 AND status <> $2
		RETURNING id, user_id, agent_id, instance_name, connection_code, status, created_at
	`, instanceName, models.ConnectionStatusConnected)
	conn, err := scanConnection(row)
	if err != nil {
		return nil, false, err
	}
	if conn == nil {
		return nil, false, nil
	}
	return conn, true, nil
}

// MarkError moves a PENDING row to ERROR. Rows in any other status keep it;
// a failed status check must not undo CONNECTED or DISCONNECTED.
func (r *ConnectionRepo) MarkError(ctx context.Context, instanceName string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE whatsapp_connections SET status = $2
		WHERE instance_name = $1 AND status = $3
	`, instanceName, models.ConnectionStatusError, models.ConnectionStatusPending)
	return err
}

// ListStalePending returns PENDING connections created more than olderThan ago.
func (r *ConnectionRepo) ListStalePending(ctx context.Context, olderThan time.Duration) ([]*models.WhatsAppConnection, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, agent_id, instance_name, connection_code, status, created_at
		FROM whatsapp_connections
		WHERE status = $1 AND created_at < now() - $2::interval
		ORDER BY created_at ASC
	`, models.ConnectionStatusPending, olderThan.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.WhatsAppConnection
	for rows.Next() {
		var c models.WhatsAppConnection
		if err := rows.Scan(&c.ID, &c.UserID, &c.AgentID, &c.InstanceName, &c.ConnectionCode, &c.Status, &c.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &c)
	}
	return list, rows.Err()
}

// DisconnectForUser marks all of the user's CONNECTED rows DISCONNECTED.
// Called by the user-profile disconnect action.
func (r *ConnectionRepo) DisconnectForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE whatsapp_connections SET status = $2
		WHERE user_id = $1 AND status = $3
	`, userID, models.ConnectionStatusDisconnected, models.ConnectionStatusConnected)
	return err
}

func scanConnection(row pgx.Row) (*models.WhatsAppConnection, error) {
	var c models.WhatsAppConnection
	err := row.Scan(&c.ID, &c.UserID, &c.AgentID, &c.InstanceName, &c.ConnectionCode, &c.Status, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
