package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"gorm.io/datatypes"

	"gigmarket/internal/domain"
	"gigmarket/internal/metrics"
	"gigmarket/internal/realtime"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Service writes notifications and announces each insert on the user's
// realtime topic. It is the domain.EventSink of the gig lifecycle.
type Service struct {
	repo      NotificationRepository
	publisher realtime.Publisher
}

func NewService(repo NotificationRepository, publisher realtime.Publisher) *Service {
	return &Service{repo: repo, publisher: publisher}
}

// Notify stores an unread notification for userID.
func (s *Service) Notify(ctx context.Context, userID int64, text string) (*domain.Notification, error) {
	return s.create(ctx, userID, text, "", nil)
}

// HandleEvent turns a lifecycle event into exactly one notification for its
// recipient.
func (s *Service) HandleEvent(ctx context.Context, e domain.Event) error {
	text, err := eventText(e)
	if err != nil {
		return err
	}
	data, err := json.Marshal(eventLink{
		GigID:    e.GigID,
		OfferID:  e.OfferID,
		ReviewID: e.ReviewID,
		ActorID:  e.ActorID,
	})
	if err != nil {
		return fmt.Errorf("encode notification data: %w", err)
	}
	_, err = s.create(ctx, e.RecipientID, text, e.Type, datatypes.JSON(data))
	return err
}

func (s *Service) create(ctx context.Context, userID int64, text string, typ domain.EventType, data datatypes.JSON) (*domain.Notification, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	text = strings.TrimSpace(text)
	if err := domain.ValidateMessage(text); err != nil {
		return nil, err
	}

	n := &domain.Notification{
		UserID:  userID,
		Message: text,
		Type:    typ,
		Data:    data,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	metrics.NotificationsCreated.Inc()

	// The row is committed; a lost announcement is recovered by the bus on
	// the next signal or resubscribe.
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, realtime.NotificationTopic(userID), n.ID); err != nil {
			log.Printf("notification: publish_failed user_id=%d notification_id=%d err=%v", userID, n.ID, err)
		}
	}
	return n, nil
}

// List returns the newest notifications first.
func (s *Service) List(ctx context.Context, userID int64, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)
	return s.repo.ListByUser(ctx, userID, limit)
}

func (s *Service) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead is idempotent. A notification that does not exist or belongs to
// someone else is domain.ErrNotFound.
func (s *Service) MarkRead(ctx context.Context, userID, notificationID int64) error {
	return s.repo.MarkAsRead(ctx, notificationID, userID)
}

func (s *Service) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return s.repo.MarkAllAsRead(ctx, userID)
}

type eventLink struct {
	GigID    int64 `json:"gig_id"`
	OfferID  int64 `json:"offer_id,omitempty"`
	ReviewID int64 `json:"review_id,omitempty"`
	ActorID  int64 `json:"actor_id,omitempty"`
}

func eventText(e domain.Event) (string, error) {
	switch e.Type {
	case domain.EventOfferSubmitted:
		return fmt.Sprintf("New offer of %.2f on your gig %q", e.Price, e.GigTitle), nil
	case domain.EventOfferAccepted:
		return fmt.Sprintf("Your offer on %q was accepted", e.GigTitle), nil
	case domain.EventGigCompleted:
		return fmt.Sprintf("Gig %q was marked as completed", e.GigTitle), nil
	case domain.EventReviewReceived:
		return fmt.Sprintf("You received a %d-star review for %q", e.Rating, e.GigTitle), nil
	default:
		return "", fmt.Errorf("%w: unknown event type %q", domain.ErrInvalidInput, e.Type)
	}
}
