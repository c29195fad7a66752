package workflow

import (
	"context"

	"github.com/safar/repair-orders/internal/models"
	"github.com/safar/repair-orders/internal/store"
)

// ListNotifications returns the user's most recent notifications, newest
// first. A non-positive limit falls back to the configured default.
func (s *Service) ListNotifications(ctx context.Context, userID int64, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > s.notificationLimit {
		limit = s.notificationLimit
	}
	return store.ListRecentNotifications(ctx, s.db, userID, limit)
}

func (s *Service) MarkNotificationRead(ctx context.Context, userID, notificationID int64) error {
	return store.MarkNotificationRead(ctx, s.db, userID, notificationID)
}

func (s *Service) MarkAllNotificationsRead(ctx context.Context, userID int64) (int64, error) {
	return store.MarkAllNotificationsRead(ctx, s.db, userID)
}
