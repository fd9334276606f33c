package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"gigmarket/internal/domain"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, m *domain.Message) error {
	return createInTopicOrder(ctx, r.db, fmt.Sprintf("messages:booking:%d", m.BookingID), m)
}

// ListByBooking returns the whole thread in store order, the same order
// After and the realtime stream use.
func (r *MessageRepository) ListByBooking(ctx context.Context, bookingID int64) ([]domain.Message, error) {
	var msgs []domain.Message
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, storeErr(err)
	}
	return msgs, nil
}

// After returns messages of a booking with id > afterID in insertion order.
func (r *MessageRepository) After(ctx context.Context, bookingID, afterID int64, limit int) ([]domain.Message, error) {
	var msgs []domain.Message
	q := r.db.WithContext(ctx).
		Where("booking_id = ? AND id > ?", bookingID, afterID).
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&msgs).Error; err != nil {
		return nil, storeErr(err)
	}
	return msgs, nil
}

// LatestID returns the highest message id of the booking, or 0.
func (r *MessageRepository) LatestID(ctx context.Context, bookingID int64) (int64, error) {
	var id int64
	err := r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("booking_id = ?", bookingID).
		Select("COALESCE(MAX(id), 0)").
		Scan(&id).Error
	return id, storeErr(err)
}
