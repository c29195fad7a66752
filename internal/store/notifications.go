package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/safar/repair-orders/internal/database"
	"github.com/safar/repair-orders/internal/models"
)

func CreateNotification(ctx context.Context, q database.DBTX, n *models.Notification) error {
	metadata := n.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal notification metadata: %w", err)
	}

	err = q.QueryRowContext(ctx,
		`INSERT INTO notifications (user_id, order_id, type, title, message, metadata, is_read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, FALSE, NOW())
		 RETURNING id, created_at`,
		n.UserID, n.OrderID, n.Type, n.Title, n.Message, string(raw)).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	return nil
}

// ListRecentNotifications returns the user's newest notifications first.
func ListRecentNotifications(ctx context.Context, q database.DBTX, userID int64, limit int) ([]models.Notification, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, user_id, order_id, type, title, message, metadata, is_read, created_at, read_at
		 FROM notifications
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		var orderID sql.NullInt64
		var readAt sql.NullTime
		var raw []byte
		err := rows.Scan(
			&n.ID,
			&n.UserID,
			&orderID,
			&n.Type,
			&n.Title,
			&n.Message,
			&raw,
			&n.IsRead,
			&n.CreatedAt,
			&readAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &n.Metadata); err != nil {
				return nil, fmt.Errorf("decode notification metadata: %w", err)
			}
		}
		n.OrderID = int64Ptr(orderID)
		n.ReadAt = timePtr(readAt)
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return notifications, nil
}

// MarkNotificationRead only touches the row when it belongs to userID.
// Reading an already-read notification keeps the first read_at.
func MarkNotificationRead(ctx context.Context, q database.DBTX, userID, id int64) error {
	result, err := q.ExecContext(ctx,
		`UPDATE notifications
		 SET is_read = TRUE,
		     read_at = COALESCE(read_at, NOW())
		 WHERE id = $1 AND user_id = $2`,
		id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrNotificationNotFound
	}

	return nil
}

func MarkAllNotificationsRead(ctx context.Context, q database.DBTX, userID int64) (int64, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE notifications
		 SET is_read = TRUE, read_at = NOW()
		 WHERE user_id = $1 AND NOT is_read`,
		userID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}

	return rowsAffected, nil
}
