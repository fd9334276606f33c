package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigmarket/internal/domain"
)

func newRedisFeed(t *testing.T) (*RedisFeed, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	feed := NewRedisFeed(client)
	t.Cleanup(func() { _ = feed.Close() })
	return feed, mr
}

func TestRedisFeed_PublishSubscribe(t *testing.T) {
	feed, _ := newRedisFeed(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	topic := NotificationTopic(5)
	signals, err := feed.Subscribe(ctx, topic)
	require.NoError(t, err)

	require.NoError(t, feed.Publish(ctx, NotificationTopic(6), 99))
	require.NoError(t, feed.Publish(ctx, topic, 11))

	select {
	case sig := <-signals:
		assert.Equal(t, Signal{Topic: topic, ID: 11}, sig)
	case <-time.After(2 * time.Second):
		t.Fatal("no signal")
	}
}

func TestRedisFeed_CancelClosesChannel(t *testing.T) {
	feed, _ := newRedisFeed(t)
	ctx, cancel := context.WithCancel(context.Background())

	signals, err := feed.Subscribe(ctx, MessageTopic(1))
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-signals:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed")
	}
}

func TestRedisFeed_ServerDownIsStoreUnavailable(t *testing.T) {
	feed, mr := newRedisFeed(t)
	mr.Close()

	_, err := feed.Subscribe(context.Background(), MessageTopic(1))
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.ErrorIs(t, feed.Publish(context.Background(), MessageTopic(1), 1), domain.ErrStoreUnavailable)
}

func TestBus_OverRedis(t *testing.T) {
	feed, _ := newRedisFeed(t)
	src := newMemorySource()
	bus := NewBus(feed, src, testBusConfig)
	topic := MessageTopic(3)

	sub, err := bus.Subscribe(context.Background(), topic, 0)
	require.NoError(t, err)
	defer sub.Close()

	a := insertAndPublish(t, src, feed, topic)
	b := insertAndPublish(t, src, feed, topic)
	assert.Equal(t, a, recv(t, sub).ID)
	assert.Equal(t, b, recv(t, sub).ID)
}
