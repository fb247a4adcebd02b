package mysql

import (
	"context"
	"database/sql"
)

type DeviceTokenRepository struct {
	db *sql.DB
}

func NewDeviceTokenRepository(db *sql.DB) *DeviceTokenRepository {
	return &DeviceTokenRepository{db: db}
}

func (r *DeviceTokenRepository) Add(ctx context.Context, userID, token string) error {
	query := `INSERT IGNORE INTO device_tokens (user_id, token, created_at) VALUES (?, ?, NOW())`
	_, err := r.db.ExecContext(ctx, query, userID, token)
	return err
}

func (r *DeviceTokenRepository) Remove(ctx context.Context, userID, token string) error {
	query := `DELETE FROM device_tokens WHERE user_id = ? AND token = ?`
	_, err := r.db.ExecContext(ctx, query, userID, token)
	return err
}

func (r *DeviceTokenRepository) ListByUser(ctx context.Context, userID string) ([]string, error) {
	query := `SELECT token FROM device_tokens WHERE user_id = ?`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}
