package realtime

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"gigmarket/internal/domain"
)

// RedisFeed carries signals over Redis Pub/Sub. The channel name is the topic.
type RedisFeed struct {
	client redis.UniversalClient
}

func NewRedisFeed(client redis.UniversalClient) *RedisFeed {
	return &RedisFeed{client: client}
}

func (f *RedisFeed) Subscribe(ctx context.Context, topic Topic) (<-chan Signal, error) {
	ps := f.client.Subscribe(ctx, string(topic))
	// Wait for the subscription confirmation so no publish after this call
	// returns can be missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("%w: redis subscribe %s: %v", domain.ErrStoreUnavailable, topic, err)
	}

	out := make(chan Signal, 64)
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		_ = ps.Close()
	}()

	go func() {
		defer close(out)
		defer close(stop)
		for {
			msg, err := ps.Receive(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("realtime: redis_receive_failed topic=%s err=%v", topic, err)
				}
				return
			}
			m, ok := msg.(*redis.Message)
			if !ok {
				continue
			}
			sig, ok := decodeSignal(topic, m.Payload)
			if !ok {
				continue
			}
			if !deliver(ctx, out, sig) {
				return
			}
		}
	}()
	return out, nil
}

func (f *RedisFeed) Publish(ctx context.Context, topic Topic, id int64) error {
	if err := f.client.Publish(ctx, string(topic), encodeSignal(id)).Err(); err != nil {
		return fmt.Errorf("%w: redis publish %s: %v", domain.ErrStoreUnavailable, topic, err)
	}
	return nil
}

func (f *RedisFeed) Close() error {
	return f.client.Close()
}
