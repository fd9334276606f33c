package realtime

import (
	"context"
	"fmt"

	"gigmarket/internal/domain"
)

// Item is one stored row delivered on a topic.
type Item struct {
	Topic   Topic
	ID      int64
	Payload any
}

// Source reads topic rows back from the store in id order.
type Source interface {
	After(ctx context.Context, topic Topic, afterID int64, limit int) ([]Item, error)
	LatestID(ctx context.Context, topic Topic) (int64, error)
}

type NotificationReader interface {
	After(ctx context.Context, userID, afterID int64, limit int) ([]domain.Notification, error)
	LatestID(ctx context.Context, userID int64) (int64, error)
}

type MessageReader interface {
	After(ctx context.Context, bookingID, afterID int64, limit int) ([]domain.Message, error)
	LatestID(ctx context.Context, bookingID int64) (int64, error)
}

// StoreSource serves both topic kinds from their repositories.
type StoreSource struct {
	notifications NotificationReader
	messages      MessageReader
}

func NewStoreSource(notifications NotificationReader, messages MessageReader) *StoreSource {
	return &StoreSource{notifications: notifications, messages: messages}
}

func (s *StoreSource) After(ctx context.Context, topic Topic, afterID int64, limit int) ([]Item, error) {
	kind, key, err := topic.Parse()
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindNotification:
		rows, err := s.notifications.After(ctx, key, afterID, limit)
		if err != nil {
			return nil, err
		}
		items := make([]Item, 0, len(rows))
		for _, n := range rows {
			items = append(items, Item{Topic: topic, ID: n.ID, Payload: n})
		}
		return items, nil
	case KindMessage:
		rows, err := s.messages.After(ctx, key, afterID, limit)
		if err != nil {
			return nil, err
		}
		items := make([]Item, 0, len(rows))
		for _, m := range rows {
			items = append(items, Item{Topic: topic, ID: m.ID, Payload: m})
		}
		return items, nil
	}
	return nil, fmt.Errorf("%w: unsupported topic %q", domain.ErrInvalidInput, topic)
}

func (s *StoreSource) LatestID(ctx context.Context, topic Topic) (int64, error) {
	kind, key, err := topic.Parse()
	if err != nil {
		return 0, err
	}
	switch kind {
	case KindNotification:
		return s.notifications.LatestID(ctx, key)
	case KindMessage:
		return s.messages.LatestID(ctx, key)
	}
	return 0, fmt.Errorf("%w: unsupported topic %q", domain.ErrInvalidInput, topic)
}
