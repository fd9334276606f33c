package gig

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"gigmarket/internal/domain"
	"gigmarket/internal/metrics"
)

// Service coordinates the gig lifecycle. Every state change is a conditional
// update in the store; events are emitted only after it commits.
type Service struct {
	gigs    GigRepository
	offers  OfferRepository
	reviews ReviewRepository
	ratings RatingLookup
	events  domain.EventSink
	now     func() time.Time
}

func NewService(
	gigs GigRepository,
	offers OfferRepository,
	reviews ReviewRepository,
	ratings RatingLookup,
	events domain.EventSink,
) *Service {
	return &Service{
		gigs:    gigs,
		offers:  offers,
		reviews: reviews,
		ratings: ratings,
		events:  events,
		now:     time.Now,
	}
}

func (s *Service) CreateGig(ctx context.Context, ownerID int64, req CreateGigRequest) (g *domain.Gig, err error) {
	defer observe("create_gig", &err)

	g = &domain.Gig{
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		GigDate:     strings.TrimSpace(req.GigDate),
		StartTime:   strings.TrimSpace(req.StartTime),
		EndTime:     strings.TrimSpace(req.EndTime),
		Budget:      domain.RoundMoney(req.Budget),
		Status:      domain.GigOpen,
	}
	if err := domain.ValidateGig(g); err != nil {
		return nil, err
	}
	if err := s.gigs.Create(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *Service) SubmitOffer(ctx context.Context, gigID, providerID int64, req SubmitOfferRequest) (o *domain.Offer, err error) {
	defer observe("submit_offer", &err)

	g, err := s.gigs.GetByID(ctx, gigID)
	if err != nil {
		return nil, err
	}
	price := domain.RoundMoney(req.Price)
	if err := domain.CanReceiveOffer(g, providerID, price); err != nil {
		return nil, err
	}

	o = &domain.Offer{
		GigID:      g.ID,
		ProviderID: providerID,
		Price:      price,
		Message:    strings.TrimSpace(req.Message),
		Status:     domain.OfferPending,
	}
	if err := s.offers.Create(ctx, o); err != nil {
		return nil, err
	}

	s.emit(ctx, domain.Event{
		Type:        domain.EventOfferSubmitted,
		RecipientID: g.OwnerID,
		ActorID:     providerID,
		GigID:       g.ID,
		GigTitle:    g.Title,
		OfferID:     o.ID,
		Price:       o.Price,
	})
	return o, nil
}

// AcceptOffer accepts offerID on the gig it was made for.
func (s *Service) AcceptOffer(ctx context.Context, actorID, offerID int64) (*domain.Offer, error) {
	return s.accept(ctx, actorID, 0, offerID)
}

// AcceptGigOffer is AcceptOffer with the gig named by the caller; an offer
// made on another gig is rejected.
func (s *Service) AcceptGigOffer(ctx context.Context, actorID, gigID, offerID int64) (*domain.Offer, error) {
	return s.accept(ctx, actorID, gigID, offerID)
}

func (s *Service) accept(ctx context.Context, actorID, gigID, offerID int64) (o *domain.Offer, err error) {
	defer observe("accept_offer", &err)

	o, err = s.offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if gigID == 0 {
		gigID = o.GigID
	}
	g, err := s.gigs.GetByID(ctx, gigID)
	if err != nil {
		return nil, err
	}
	if g.OwnerID != actorID {
		return nil, domain.ErrNotGigOwner
	}
	if err := domain.CanAccept(g, o); err != nil {
		return nil, err
	}

	if err := s.offers.Accept(ctx, g.ID, o.ID); err != nil {
		if errors.Is(err, domain.ErrInvalidState) {
			log.Printf("gig: accept_lost gig_id=%d offer_id=%d", g.ID, o.ID)
		}
		return nil, err
	}
	o.Status = domain.OfferAccepted

	s.emit(ctx, domain.Event{
		Type:        domain.EventOfferAccepted,
		RecipientID: o.ProviderID,
		ActorID:     actorID,
		GigID:       g.ID,
		GigTitle:    g.Title,
		OfferID:     o.ID,
		Price:       o.Price,
	})
	return o, nil
}

func (s *Service) CompleteGig(ctx context.Context, actorID, gigID int64) (g *domain.Gig, err error) {
	defer observe("complete_gig", &err)

	g, err = s.gigs.GetByID(ctx, gigID)
	if err != nil {
		return nil, err
	}
	if g.OwnerID != actorID {
		return nil, domain.ErrNotGigOwner
	}
	if err := domain.CanComplete(g); err != nil {
		return nil, err
	}
	if err := s.gigs.Complete(ctx, g.ID); err != nil {
		return nil, err
	}
	g.Status = domain.GigCompleted

	accepted, err := s.offers.Accepted(ctx, g.ID)
	if err != nil {
		log.Printf("gig: accepted_offer_lookup_failed gig_id=%d err=%v", g.ID, err)
		return g, nil
	}
	s.emit(ctx, domain.Event{
		Type:        domain.EventGigCompleted,
		RecipientID: accepted.ProviderID,
		ActorID:     actorID,
		GigID:       g.ID,
		GigTitle:    g.Title,
		OfferID:     accepted.ID,
	})
	return g, nil
}

// SubmitReview records the owner's review of the provider who held the
// accepted offer.
func (s *Service) SubmitReview(ctx context.Context, gigID, reviewerID int64, req SubmitReviewRequest) (r *domain.Review, err error) {
	defer observe("submit_review", &err)

	g, err := s.gigs.GetByID(ctx, gigID)
	if err != nil {
		return nil, err
	}
	if g.OwnerID != reviewerID {
		return nil, domain.ErrNotGigOwner
	}
	exists, err := s.reviews.ExistsForGig(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	if err := domain.CanReview(g, exists, req.Rating); err != nil {
		return nil, err
	}

	accepted, err := s.offers.Accepted(ctx, g.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidState
		}
		return nil, err
	}

	r = &domain.Review{
		GigID:      g.ID,
		ReviewerID: reviewerID,
		RevieweeID: accepted.ProviderID,
		Rating:     req.Rating,
		Comment:    strings.TrimSpace(req.Comment),
	}
	if err := s.reviews.Create(ctx, r); err != nil {
		if errors.Is(err, domain.ErrInvalidState) {
			return nil, domain.ErrReviewExists
		}
		return nil, err
	}

	s.emit(ctx, domain.Event{
		Type:        domain.EventReviewReceived,
		RecipientID: r.RevieweeID,
		ActorID:     reviewerID,
		GigID:       g.ID,
		GigTitle:    g.Title,
		ReviewID:    r.ID,
		Rating:      r.Rating,
	})
	return r, nil
}

func (s *Service) ListOpenGigs(ctx context.Context, limit int) ([]domain.Gig, error) {
	return s.gigs.ListOpen(ctx, limit)
}

// GetGig returns the gig with its offers, cheapest first, each carrying the
// bidder's current rating.
func (s *Service) GetGig(ctx context.Context, gigID int64) (*GigDetails, error) {
	g, err := s.gigs.GetByID(ctx, gigID)
	if err != nil {
		return nil, err
	}
	offers, err := s.offers.ListByGig(ctx, g.ID)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(offers))
	for _, o := range offers {
		ids = append(ids, o.ProviderID)
	}
	ratings, err := s.ratings.ProviderRatings(ctx, ids)
	if err != nil {
		return nil, err
	}

	details := &GigDetails{Gig: *g, Offers: make([]OfferView, 0, len(offers))}
	for _, o := range offers {
		details.Offers = append(details.Offers, OfferView{Offer: o, ProviderRating: ratings[o.ProviderID]})
	}
	return details, nil
}

func (s *Service) ListOwnerGigs(ctx context.Context, ownerID int64) ([]domain.Gig, error) {
	return s.gigs.ListByOwner(ctx, ownerID)
}

func (s *Service) ListProviderOffers(ctx context.Context, providerID int64) ([]domain.Offer, error) {
	return s.offers.ListByProvider(ctx, providerID)
}

func (s *Service) emit(ctx context.Context, e domain.Event) {
	if s.events == nil {
		return
	}
	e.OccurredAt = s.now()
	if err := s.events.HandleEvent(ctx, e); err != nil {
		log.Printf("gig: event_dispatch_failed type=%s gig_id=%d recipient_id=%d err=%v", e.Type, e.GigID, e.RecipientID, err)
	}
}

func observe(op string, err *error) {
	metrics.Transitions.WithLabelValues(op, metrics.Outcome(*err)).Inc()
}
