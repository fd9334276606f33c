package catalog

import (
	"gigmarket/internal/domain"
	"gigmarket/internal/modules/rating"
)

type CreateServiceRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=5000"`
	Price       float64 `json:"price" validate:"gte=0"`
}

type CreateBookingRequest struct {
	BookingDate string `json:"booking_date" validate:"required"`
}

// ServiceView is a listing entry with its provider's current rating.
type ServiceView struct {
	domain.Service
	ProviderRating rating.Rating `json:"provider_rating"`
}
