package chat

import (
	"context"

	"gigmarket/internal/domain"
)

type MessageRepository interface {
	Create(ctx context.Context, m *domain.Message) error
	ListByBooking(ctx context.Context, bookingID int64) ([]domain.Message, error)
	After(ctx context.Context, bookingID, afterID int64, limit int) ([]domain.Message, error)
}

type BookingRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
}
