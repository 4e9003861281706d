package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/calsync/internal/model"
)

// CreateConnection inserts a calendar connection. Generates a UUID if ID
// is empty.
func (q *queries) CreateConnection(
	ctx context.Context,
	conn model.Connection,
) (model.Connection, error) {
	if conn.UserID == "" {
		return model.Connection{}, fmt.Errorf("connection user must not be empty")
	}
	provider, err := model.ParseProvider(conn.Provider)
	if err != nil {
		return model.Connection{}, err
	}
	if conn.ID == "" {
		conn.ID = uuid.New().String()
	}
	conn.Provider = provider.String()
	conn.CreatedAt = time.Now().UTC()

	_, err = q.db.ExecContext(ctx, `
		INSERT INTO calendar_connections (id, user_id, provider, created_at)
		VALUES (?, ?, ?, ?)`,
		conn.ID, conn.UserID, conn.Provider, conn.CreatedAt,
	)
	if err != nil {
		return model.Connection{}, fmt.Errorf("creating connection: %w", err)
	}
	return conn, nil
}

// GetConnection retrieves a connection by ID.
func (q *queries) GetConnection(
	ctx context.Context,
	id string,
) (*model.Connection, error) {
	var conn model.Connection
	err := sqlx.GetContext(ctx, q.db, &conn, `
		SELECT id, user_id, provider, created_at
		FROM calendar_connections WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("connection %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting connection %s: %w", id, err)
	}
	return &conn, nil
}

// ConnectionBelongsToUser reports whether connectionID is owned by userID.
func (q *queries) ConnectionBelongsToUser(
	ctx context.Context,
	connectionID, userID string,
) (bool, error) {
	var count int
	err := sqlx.GetContext(ctx, q.db, &count,
		"SELECT COUNT(*) FROM calendar_connections WHERE id = ? AND user_id = ?",
		connectionID, userID)
	if err != nil {
		return false, fmt.Errorf("checking ownership of connection %s: %w", connectionID, err)
	}
	return count > 0, nil
}
