package mysql

import (
	"context"
	"database/sql"

	"auction-engine/internal/domain"
)

type NotificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Save(ctx context.Context, n *domain.Notification) error {
	query := `
        INSERT INTO notifications (id, user_id, auction_id, type, title, message, is_read, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		n.ID, n.UserID, n.AuctionID, string(n.Type), n.Title, n.Message, n.IsRead, n.CreatedAt)
	return err
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]*domain.Notification, error) {
	query := `
        SELECT id, user_id, auction_id, type, title, message, is_read, created_at
        FROM notifications WHERE user_id = ?
    `
	args := []interface{}{userID}
	if unreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Notification
	for rows.Next() {
		var n domain.Notification
		var typ string
		err := rows.Scan(&n.ID, &n.UserID, &n.AuctionID, &typ, &n.Title,
			&n.Message, &n.IsRead, &n.CreatedAt)
		if err != nil {
			return nil, err
		}
		n.Type = domain.EventType(typ)
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (r *NotificationRepository) MarkRead(ctx context.Context, notificationID string) error {
	query := `UPDATE notifications SET is_read = TRUE WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, notificationID)
	return err
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = FALSE`

	var count int
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
