package repository

import (
	"context"

	"gorm.io/gorm"

	"gigmarket/internal/domain"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	return storeErr(r.db.WithContext(ctx).Create(b).Error)
}

// GetByID loads the booking together with its service.
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	var b domain.Booking
	if err := r.db.WithContext(ctx).Preload("Service").First(&b, id).Error; err != nil {
		return nil, storeErr(err)
	}
	return &b, nil
}

// ListForUser returns bookings where userID is the consumer or the provider
// of the booked service.
func (r *BookingRepository) ListForUser(ctx context.Context, userID int64) ([]domain.Booking, error) {
	var bookings []domain.Booking
	err := r.db.WithContext(ctx).
		Preload("Service").
		Where("consumer_id = ? OR service_id IN (?)",
			userID,
			r.db.Model(&domain.Service{}).Select("id").Where("provider_id = ?", userID),
		).
		Order("created_at DESC").
		Order("id DESC").
		Find(&bookings).Error
	if err != nil {
		return nil, storeErr(err)
	}
	return bookings, nil
}
