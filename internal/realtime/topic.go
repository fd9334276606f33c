package realtime

import (
	"fmt"
	"strconv"
	"strings"

	"gigmarket/internal/domain"
)

// Topic names one filtered stream of inserted rows, e.g.
// "notifications:user:42" or "messages:booking:7".
type Topic string

// Kind is the row family a topic carries.
type Kind string

const (
	KindNotification Kind = "notifications"
	KindMessage      Kind = "messages"
)

func NotificationTopic(userID int64) Topic {
	return Topic(fmt.Sprintf("%s:user:%d", KindNotification, userID))
}

func MessageTopic(bookingID int64) Topic {
	return Topic(fmt.Sprintf("%s:booking:%d", KindMessage, bookingID))
}

// Parse splits a topic into its kind and filter key.
func (t Topic) Parse() (Kind, int64, error) {
	parts := strings.Split(string(t), ":")
	if len(parts) != 3 {
		return "", 0, fmt.Errorf("%w: malformed topic %q", domain.ErrInvalidInput, t)
	}
	key, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || key <= 0 {
		return "", 0, fmt.Errorf("%w: malformed topic key %q", domain.ErrInvalidInput, t)
	}

	switch {
	case parts[0] == string(KindNotification) && parts[1] == "user":
		return KindNotification, key, nil
	case parts[0] == string(KindMessage) && parts[1] == "booking":
		return KindMessage, key, nil
	default:
		return "", 0, fmt.Errorf("%w: unknown topic %q", domain.ErrInvalidInput, t)
	}
}

// Kind returns the topic kind, or "" for a malformed topic.
func (t Topic) Kind() Kind {
	k, _, err := t.Parse()
	if err != nil {
		return ""
	}
	return k
}
