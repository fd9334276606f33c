package gig

import (
	"context"

	"gigmarket/internal/domain"
	"gigmarket/internal/modules/rating"
)

type GigRepository interface {
	Create(ctx context.Context, g *domain.Gig) error
	GetByID(ctx context.Context, id int64) (*domain.Gig, error)
	ListOpen(ctx context.Context, limit int) ([]domain.Gig, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Gig, error)
	// Complete is a conditional update assigned -> completed.
	Complete(ctx context.Context, gigID int64) error
}

type OfferRepository interface {
	Create(ctx context.Context, o *domain.Offer) error
	GetByID(ctx context.Context, id int64) (*domain.Offer, error)
	ListByGig(ctx context.Context, gigID int64) ([]domain.Offer, error)
	ListByProvider(ctx context.Context, providerID int64) ([]domain.Offer, error)
	Accepted(ctx context.Context, gigID int64) (*domain.Offer, error)
	// Accept atomically assigns the gig and accepts the offer, or does nothing.
	Accept(ctx context.Context, gigID, offerID int64) error
}

type ReviewRepository interface {
	Create(ctx context.Context, r *domain.Review) error
	ExistsForGig(ctx context.Context, gigID int64) (bool, error)
}

type RatingLookup interface {
	ProviderRatings(ctx context.Context, providerIDs []int64) (map[int64]rating.Rating, error)
}
