package chat

import (
	"context"
	"log"
	"strings"

	"gigmarket/internal/domain"
	"gigmarket/internal/metrics"
	"gigmarket/internal/realtime"
)

const maxPage = 500

// Service is the booking message thread between a consumer and the
// provider of the booked service.
type Service struct {
	messages  MessageRepository
	bookings  BookingRepository
	publisher realtime.Publisher
}

func NewService(messages MessageRepository, bookings BookingRepository, publisher realtime.Publisher) *Service {
	return &Service{messages: messages, bookings: bookings, publisher: publisher}
}

// SendMessage appends a message to the booking thread. A zero receiverID
// addresses the other participant.
func (s *Service) SendMessage(ctx context.Context, bookingID, senderID, receiverID int64, content string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if err := domain.ValidateMessage(content); err != nil {
		return nil, err
	}

	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if receiverID == 0 {
		receiverID = counterparty(b, senderID)
	}
	if err := domain.CanMessage(b, senderID, receiverID); err != nil {
		return nil, err
	}

	m := &domain.Message{
		BookingID:  b.ID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
	}
	if err := s.messages.Create(ctx, m); err != nil {
		return nil, err
	}
	metrics.MessagesSent.Inc()

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, realtime.MessageTopic(b.ID), m.ID); err != nil {
			log.Printf("chat: publish_failed booking_id=%d message_id=%d err=%v", b.ID, m.ID, err)
		}
	}
	return m, nil
}

// ListMessages returns the whole thread oldest first. Calling it again after
// a restart yields the same sequence plus anything sent since.
func (s *Service) ListMessages(ctx context.Context, bookingID int64) ([]domain.Message, error) {
	if _, err := s.bookings.GetByID(ctx, bookingID); err != nil {
		return nil, err
	}
	return s.messages.ListByBooking(ctx, bookingID)
}

// MessagesAfter resumes a thread from a cursor, in id order.
func (s *Service) MessagesAfter(ctx context.Context, bookingID, afterID int64, limit int) ([]domain.Message, error) {
	if limit <= 0 || limit > maxPage {
		limit = maxPage
	}
	return s.messages.After(ctx, bookingID, afterID, limit)
}

// CheckParticipant returns domain.ErrNotParticipant unless userID is the
// booking's consumer or provider.
func (s *Service) CheckParticipant(ctx context.Context, bookingID, userID int64) error {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if !b.HasParticipant(userID) {
		return domain.ErrNotParticipant
	}
	return nil
}

func counterparty(b *domain.Booking, userID int64) int64 {
	if b.ConsumerID == userID && b.Service != nil {
		return b.Service.ProviderID
	}
	return b.ConsumerID
}
