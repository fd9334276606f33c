package catalog

import (
	"context"

	"gigmarket/internal/domain"
	"gigmarket/internal/modules/rating"
)

type ServiceRepository interface {
	Create(ctx context.Context, s *domain.Service) error
	GetByID(ctx context.Context, id int64) (*domain.Service, error)
	List(ctx context.Context, limit int) ([]domain.Service, error)
}

type BookingRepository interface {
	Create(ctx context.Context, b *domain.Booking) error
	ListForUser(ctx context.Context, userID int64) ([]domain.Booking, error)
}

type RatingLookup interface {
	ProviderRatings(ctx context.Context, providerIDs []int64) (map[int64]rating.Rating, error)
}

// Notifier tells a provider about a new booking.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) (*domain.Notification, error)
}
