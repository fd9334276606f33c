package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"
)

// ErrFeedClosed is returned by a feed after Close.
var ErrFeedClosed = errors.New("realtime: feed closed")

// Signal announces that a row with ID was inserted on Topic. It is only a
// wake-up; the row itself is always read from the store.
type Signal struct {
	Topic Topic
	ID    int64
}

// Publisher announces inserted rows.
type Publisher interface {
	Publish(ctx context.Context, topic Topic, id int64) error
}

// Feed is a change feed filtered by topic.
//
// The channel returned by Subscribe is closed when ctx is done or when the
// subscription is lost. A close while ctx is still live is a failure and the
// caller is expected to resubscribe.
type Feed interface {
	Publisher
	Subscribe(ctx context.Context, topic Topic) (<-chan Signal, error)
	Close() error
}

type signalPayload struct {
	ID int64 `json:"id"`
}

func encodeSignal(id int64) string {
	b, _ := json.Marshal(signalPayload{ID: id})
	return string(b)
}

// decodeSignal accepts the JSON payload written by encodeSignal and the
// database triggers, or a bare id.
func decodeSignal(topic Topic, payload string) (Signal, bool) {
	var p signalPayload
	if err := json.Unmarshal([]byte(payload), &p); err == nil && p.ID > 0 {
		return Signal{Topic: topic, ID: p.ID}, true
	}
	if id, err := strconv.ParseInt(payload, 10, 64); err == nil && id > 0 {
		return Signal{Topic: topic, ID: id}, true
	}
	log.Printf("realtime: bad_signal_payload topic=%s payload=%q", topic, payload)
	return Signal{}, false
}

// deliver forwards sig unless ctx ends first.
func deliver(ctx context.Context, out chan<- Signal, sig Signal) bool {
	select {
	case out <- sig:
		return true
	case <-ctx.Done():
		return false
	}
}
