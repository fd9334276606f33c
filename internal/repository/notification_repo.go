package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"gigmarket/internal/domain"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	return createInTopicOrder(ctx, r.db, fmt.Sprintf("notifications:user:%d", n.UserID), n)
}

// ListByUser returns the newest notifications first.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]domain.Notification, error) {
	var items []domain.Notification
	q := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, storeErr(err)
	}
	return items, nil
}

// After returns the user's notifications with id > afterID in insertion order.
func (r *NotificationRepository) After(ctx context.Context, userID, afterID int64, limit int) ([]domain.Notification, error) {
	var items []domain.Notification
	q := r.db.WithContext(ctx).
		Where("user_id = ? AND id > ?", userID, afterID).
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, storeErr(err)
	}
	return items, nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, storeErr(err)
}

// MarkAsRead sets the read flag. Marking an already read notification is a
// no-op; a missing id (or one owned by another user) is domain.ErrNotFound.
func (r *NotificationRepository) MarkAsRead(ctx context.Context, id, userID int64) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id = ? AND user_id = ? AND is_read = ?", id, userID, false).
		Updates(map[string]any{"is_read": true, "read_at": time.Now()})
	if res.Error != nil {
		return storeErr(res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Count(&cnt).Error
	if err != nil {
		return storeErr(err)
	}
	if cnt == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, userID int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{"is_read": true, "read_at": time.Now()})
	return res.RowsAffected, storeErr(res.Error)
}

// LatestID returns the highest notification id of the user, or 0.
func (r *NotificationRepository) LatestID(ctx context.Context, userID int64) (int64, error) {
	var id int64
	err := r.db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("user_id = ?", userID).
		Select("COALESCE(MAX(id), 0)").
		Scan(&id).Error
	return id, storeErr(err)
}
