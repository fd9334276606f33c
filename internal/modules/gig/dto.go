package gig

import (
	"gigmarket/internal/domain"
	"gigmarket/internal/modules/rating"
)

type CreateGigRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=5000"`
	GigDate     string  `json:"gig_date" validate:"required"`
	StartTime   string  `json:"start_time" validate:"required"`
	EndTime     string  `json:"end_time" validate:"required"`
	Budget      float64 `json:"budget" validate:"required"`
}

type SubmitOfferRequest struct {
	Price   float64 `json:"price" validate:"required"`
	Message string  `json:"message" validate:"max=2000"`
}

type SubmitReviewRequest struct {
	Rating  int    `json:"rating" validate:"required"`
	Comment string `json:"comment" validate:"max=2000"`
}

// OfferView is an offer as the gig owner sees it, with the bidder's rating.
type OfferView struct {
	domain.Offer
	ProviderRating rating.Rating `json:"provider_rating"`
}

type GigDetails struct {
	domain.Gig
	Offers []OfferView `json:"offers"`
}
