package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Afefmejri25/crm/models"
	"gorm.io/gorm"
)

func (r *GORMRepository) CreateNotification(ctx context.Context, n *models.Notification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		slog.Error("Failed to create notification", "error", err, "recipient_id", n.RecipientID)
		return err
	}
	slog.Info("Notification created", "notification_id", n.ID, "recipient_id", n.RecipientID)
	return nil
}

func (r *GORMRepository) GetNotification(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get notification", "error", err, "notification_id", id)
		return nil, err
	}
	return &n, nil
}

func (r *GORMRepository) ListNotifications(ctx context.Context, recipientID string) ([]models.Notification, error) {
	notifications := []models.Notification{}
	err := r.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Find(&notifications).Error
	if err != nil {
		slog.Error("Failed to list notifications", "error", err, "recipient_id", recipientID)
		return nil, err
	}
	return notifications, nil
}

func (r *GORMRepository) MarkNotificationRead(ctx context.Context, id string) (*models.Notification, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).Where("id = ?", id).Update("is_read", true)
	if res.Error != nil {
		slog.Error("Failed to mark notification read", "error", res.Error, "notification_id", id)
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return r.GetNotification(ctx, id)
}

// MarkAllNotificationsRead flips every unread notification of the recipient and returns how many changed.
func (r *GORMRepository) MarkAllNotificationsRead(ctx context.Context, recipientID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Update("is_read", true)
	if res.Error != nil {
		slog.Error("Failed to mark all notifications read", "error", res.Error, "recipient_id", recipientID)
		return 0, res.Error
	}
	slog.Info("Notifications marked read", "recipient_id", recipientID, "count", res.RowsAffected)
	return res.RowsAffected, nil
}
