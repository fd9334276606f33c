package catalog

import (
	"context"
	"fmt"
	"log"
	"strings"

	"gigmarket/internal/domain"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type Service struct {
	services ServiceRepository
	bookings BookingRepository
	ratings  RatingLookup
	notifier Notifier
}

func NewService(services ServiceRepository, bookings BookingRepository, ratings RatingLookup, notifier Notifier) *Service {
	return &Service{services: services, bookings: bookings, ratings: ratings, notifier: notifier}
}

/* ---------- SERVICES ---------- */

func (s *Service) CreateService(ctx context.Context, providerID int64, req CreateServiceRequest) (*domain.Service, error) {
	svc := &domain.Service{
		ProviderID:  providerID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Price:       domain.RoundMoney(req.Price),
	}
	if err := domain.ValidateService(svc); err != nil {
		return nil, err
	}
	if err := s.services.Create(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

// ListServices returns the newest services with their providers' ratings.
func (s *Service) ListServices(ctx context.Context, limit int) ([]ServiceView, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	services, err := s.services.List(ctx, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(services))
	for _, svc := range services {
		ids = append(ids, svc.ProviderID)
	}
	ratings, err := s.ratings.ProviderRatings(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]ServiceView, 0, len(services))
	for _, svc := range services {
		out = append(out, ServiceView{Service: svc, ProviderRating: ratings[svc.ProviderID]})
	}
	return out, nil
}

func (s *Service) GetService(ctx context.Context, id int64) (*ServiceView, error) {
	svc, err := s.services.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ratings, err := s.ratings.ProviderRatings(ctx, []int64{svc.ProviderID})
	if err != nil {
		return nil, err
	}
	return &ServiceView{Service: *svc, ProviderRating: ratings[svc.ProviderID]}, nil
}

/* ---------- BOOKINGS ---------- */

// BookService creates a pending booking and tells the provider about it.
func (s *Service) BookService(ctx context.Context, serviceID, consumerID int64, req CreateBookingRequest) (*domain.Booking, error) {
	svc, err := s.services.GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	date := strings.TrimSpace(req.BookingDate)
	if err := domain.CanBook(svc, consumerID, date); err != nil {
		return nil, err
	}

	b := &domain.Booking{
		ServiceID:   svc.ID,
		ConsumerID:  consumerID,
		BookingDate: date,
		Status:      domain.BookingPending,
	}
	if err := s.bookings.Create(ctx, b); err != nil {
		return nil, err
	}
	b.Service = svc

	if s.notifier != nil {
		text := fmt.Sprintf("New booking for %q on %s", svc.Title, date)
		if _, err := s.notifier.Notify(ctx, svc.ProviderID, text); err != nil {
			log.Printf("catalog: booking_notify_failed booking_id=%d provider_id=%d err=%v", b.ID, svc.ProviderID, err)
		}
	}
	return b, nil
}

// ListMyBookings returns bookings the user made or received, newest first.
func (s *Service) ListMyBookings(ctx context.Context, userID int64) ([]domain.Booking, error) {
	return s.bookings.ListForUser(ctx, userID)
}
