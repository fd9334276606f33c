package realtime

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigmarket/internal/domain"
)

// memorySource is a Source over in-memory rows with a shared id sequence.
type memorySource struct {
	mu     sync.Mutex
	nextID int64
	rows   map[Topic][]Item
	fail   int
}

func newMemorySource() *memorySource {
	return &memorySource{rows: make(map[Topic][]Item)}
}

func (s *memorySource) insert(topic Topic, payload any) int64 {
	id := s.reserve()
	s.commit(topic, id, payload)
	return id
}

// reserve allocates an id that stays invisible until commit, like a sequence
// value taken by a transaction that has not committed yet.
func (s *memorySource) reserve() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID
}

func (s *memorySource) commit(topic Topic, id int64, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := append(s.rows[topic], Item{Topic: topic, ID: id, Payload: payload})
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	s.rows[topic] = rows
}

// failNext makes the next n reads fail as if the store were down.
func (s *memorySource) failNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = n
}

func (s *memorySource) After(_ context.Context, topic Topic, afterID int64, limit int) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail > 0 {
		s.fail--
		return nil, fmt.Errorf("%w: connection refused", domain.ErrStoreUnavailable)
	}
	var out []Item
	for _, it := range s.rows[topic] {
		if it.ID > afterID {
			out = append(out, it)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *memorySource) LatestID(_ context.Context, topic Topic) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.rows[topic]
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[len(rows)-1].ID, nil
}

// flakyFeed refuses every Subscribe from the failFrom-th call on.
type flakyFeed struct {
	*MemoryFeed
	mu       sync.Mutex
	calls    int
	failFrom int
}

func (f *flakyFeed) Subscribe(ctx context.Context, topic Topic) (<-chan Signal, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	if f.failFrom > 0 && n >= f.failFrom {
		return nil, fmt.Errorf("%w: feed down", domain.ErrStoreUnavailable)
	}
	return f.MemoryFeed.Subscribe(ctx, topic)
}

var testBusConfig = BusConfig{ResubscribeBase: 5 * time.Millisecond, MaxRetries: 3, BackfillLimit: 2}

func recv(t *testing.T, sub *Subscription) Item {
	t.Helper()
	select {
	case it, ok := <-sub.Events():
		require.True(t, ok, "subscription closed")
		return it
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Item{}
	}
}

func assertQuiet(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case it, ok := <-sub.Events():
		if ok {
			t.Fatalf("unexpected event id=%d", it.ID)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func insertAndPublish(t *testing.T, src *memorySource, feed Feed, topic Topic) int64 {
	t.Helper()
	id := src.insert(topic, fmt.Sprintf("row on %s", topic))
	require.NoError(t, feed.Publish(context.Background(), topic, id))
	return id
}

func TestTopics(t *testing.T) {
	kind, key, err := NotificationTopic(42).Parse()
	require.NoError(t, err)
	assert.Equal(t, KindNotification, kind)
	assert.Equal(t, int64(42), key)
	assert.Equal(t, Topic("notifications:user:42"), NotificationTopic(42))

	kind, key, err = MessageTopic(7).Parse()
	require.NoError(t, err)
	assert.Equal(t, KindMessage, kind)
	assert.Equal(t, int64(7), key)

	for _, bad := range []Topic{"", "notifications:user", "notifications:user:x", "messages:user:1", "gigs:user:1", "notifications:user:0"} {
		_, _, err := bad.Parse()
		assert.ErrorIs(t, err, domain.ErrInvalidInput, string(bad))
	}
}

func TestDecodeSignal(t *testing.T) {
	sig, ok := decodeSignal("t", `{"id":12}`)
	assert.True(t, ok)
	assert.Equal(t, int64(12), sig.ID)

	sig, ok = decodeSignal("t", "13")
	assert.True(t, ok)
	assert.Equal(t, int64(13), sig.ID)

	_, ok = decodeSignal("t", "garbage")
	assert.False(t, ok)
}

func TestMemoryFeed_FanOutAndRelease(t *testing.T) {
	feed := NewMemoryFeed(4)
	topic := NotificationTopic(1)

	ctx1, cancel1 := context.WithCancel(context.Background())
	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	ch1, err := feed.Subscribe(ctx1, topic)
	require.NoError(t, err)
	ch2, err := feed.Subscribe(ctx2, topic)
	require.NoError(t, err)
	other, err := feed.Subscribe(ctx2, NotificationTopic(2))
	require.NoError(t, err)

	require.NoError(t, feed.Publish(context.Background(), topic, 5))
	assert.Equal(t, Signal{Topic: topic, ID: 5}, <-ch1)
	assert.Equal(t, Signal{Topic: topic, ID: 5}, <-ch2)
	select {
	case sig := <-other:
		t.Fatalf("signal leaked to another topic: %+v", sig)
	default:
	}

	cancel1()
	assert.Eventually(t, func() bool { return feed.Subscribers(topic) == 1 }, time.Second, 5*time.Millisecond)
	_, open := <-ch1
	assert.False(t, open)
}

func TestMemoryFeed_DropsSlowSubscriber(t *testing.T) {
	feed := NewMemoryFeed(1)
	topic := MessageTopic(3)
	ch, err := feed.Subscribe(context.Background(), topic)
	require.NoError(t, err)

	require.NoError(t, feed.Publish(context.Background(), topic, 1))
	require.NoError(t, feed.Publish(context.Background(), topic, 2))

	assert.Equal(t, int64(1), (<-ch).ID)
	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, feed.Subscribers(topic))
}

func TestMemoryFeed_Closed(t *testing.T) {
	feed := NewMemoryFeed(1)
	require.NoError(t, feed.Close())
	_, err := feed.Subscribe(context.Background(), NotificationTopic(1))
	assert.ErrorIs(t, err, ErrFeedClosed)
	assert.ErrorIs(t, feed.Publish(context.Background(), NotificationTopic(1), 1), ErrFeedClosed)
}

func TestBus_OrderedExactlyOnce(t *testing.T) {
	src := newMemorySource()
	feed := NewMemoryFeed(16)
	bus := NewBus(feed, src, testBusConfig)
	topic := NotificationTopic(1)

	sub, err := bus.Subscribe(context.Background(), topic, 0)
	require.NoError(t, err)
	defer sub.Close()

	ids := []int64{
		insertAndPublish(t, src, feed, topic),
		insertAndPublish(t, src, feed, topic),
		insertAndPublish(t, src, feed, topic),
	}
	// Duplicate and stale signals must not cause redelivery.
	require.NoError(t, feed.Publish(context.Background(), topic, ids[2]))
	require.NoError(t, feed.Publish(context.Background(), topic, ids[0]))

	for _, want := range ids {
		assert.Equal(t, want, recv(t, sub).ID)
	}
	assertQuiet(t, sub)
	assert.Equal(t, ids[2], sub.Cursor())
}

func TestBus_DeliversLowerIDCommittedLate(t *testing.T) {
	src := newMemorySource()
	feed := NewMemoryFeed(16)
	bus := NewBus(feed, src, testBusConfig)
	topic := NotificationTopic(1)

	sub, err := bus.Subscribe(context.Background(), topic, 0)
	require.NoError(t, err)
	defer sub.Close()

	slow := src.reserve()
	fast := insertAndPublish(t, src, feed, topic)
	assert.Equal(t, fast, recv(t, sub).ID)

	src.commit(topic, slow, "committed late")
	require.NoError(t, feed.Publish(context.Background(), topic, slow))
	assert.Equal(t, slow, recv(t, sub).ID)

	// Neither row is redelivered by later catch-ups.
	next := insertAndPublish(t, src, feed, topic)
	assert.Equal(t, next, recv(t, sub).ID)
	assertQuiet(t, sub)
	assert.Equal(t, next, sub.Cursor())
}

func TestBus_LookbackStopsAtSubscriptionStart(t *testing.T) {
	src := newMemorySource()
	feed := NewMemoryFeed(16)
	bus := NewBus(feed, src, testBusConfig)
	topic := NotificationTopic(1)

	seen := src.insert(topic, "delivered on an earlier connection")

	sub, err := bus.Subscribe(context.Background(), topic, seen)
	require.NoError(t, err)
	defer sub.Close()

	id := insertAndPublish(t, src, feed, topic)
	assert.Equal(t, id, recv(t, sub).ID)
	assertQuiet(t, sub)
}

func TestBus_CatchUpFromCursor(t *testing.T) {
	src := newMemorySource()
	feed := NewMemoryFeed(16)
	bus := NewBus(feed, src, testBusConfig)
	topic := MessageTopic(9)

	first := src.insert(topic, "a")
	second := src.insert(topic, "b")
	third := src.insert(topic, "c")

	sub, err := bus.Subscribe(context.Background(), topic, first)
	require.NoError(t, err)
	defer sub.Close()

	// Backfill spans two pages of BackfillLimit=2.
	assert.Equal(t, second, recv(t, sub).ID)
	assert.Equal(t, third, recv(t, sub).ID)
	assertQuiet(t, sub)
}

func TestBus_FromNowSkipsHistory(t *testing.T) {
	src := newMemorySource()
	feed := NewMemoryFeed(16)
	bus := NewBus(feed, src, testBusConfig)
	topic := NotificationTopic(4)

	src.insert(topic, "old")
	sub, err := bus.Subscribe(context.Background(), topic, FromNow)
	require.NoError(t, err)
	defer sub.Close()

	assertQuiet(t, sub)
	fresh := insertAndPublish(t, src, feed, topic)
	assert.Equal(t, fresh, recv(t, sub).ID)
}

func TestBus_TopicScoped(t *testing.T) {
	src := newMemorySource()
	feed := NewMemoryFeed(16)
	bus := NewBus(feed, src, testBusConfig)

	sub, err := bus.Subscribe(context.Background(), NotificationTopic(1), 0)
	require.NoError(t, err)
	defer sub.Close()

	insertAndPublish(t, src, feed, NotificationTopic(2))
	mine := insertAndPublish(t, src, feed, NotificationTopic(1))

	it := recv(t, sub)
	assert.Equal(t, mine, it.ID)
	assert.Equal(t, NotificationTopic(1), it.Topic)
	assertQuiet(t, sub)
}

func TestBus_ResubscribesAndFillsGap(t *testing.T) {
	src := newMemorySource()
	feed := NewMemoryFeed(16)
	bus := NewBus(feed, src, testBusConfig)
	topic := NotificationTopic(1)

	sub, err := bus.Subscribe(context.Background(), topic, 0)
	require.NoError(t, err)
	defer sub.Close()

	first := insertAndPublish(t, src, feed, topic)
	assert.Equal(t, first, recv(t, sub).ID)

	// The row is written but never announced before the feed drops.
	missed := src.insert(topic, "written during outage")
	feed.Drop(topic)

	assert.Equal(t, missed, recv(t, sub).ID)
	assert.Eventually(t, func() bool { return feed.Subscribers(topic) == 1 }, time.Second, 5*time.Millisecond)

	next := insertAndPublish(t, src, feed, topic)
	assert.Equal(t, next, recv(t, sub).ID)
	assert.NoError(t, sub.Err())
}

func TestBus_RetriesStoreErrors(t *testing.T) {
	src := newMemorySource()
	feed := NewMemoryFeed(16)
	bus := NewBus(feed, src, testBusConfig)
	topic := NotificationTopic(1)

	sub, err := bus.Subscribe(context.Background(), topic, 0)
	require.NoError(t, err)
	defer sub.Close()

	src.failNext(2)
	id := insertAndPublish(t, src, feed, topic)
	assert.Equal(t, id, recv(t, sub).ID)
	assert.NoError(t, sub.Err())
}

func TestBus_GivesUpAfterRetries(t *testing.T) {
	src := newMemorySource()
	feed := &flakyFeed{MemoryFeed: NewMemoryFeed(16), failFrom: 2}
	bus := NewBus(feed, src, testBusConfig)
	topic := NotificationTopic(1)

	sub, err := bus.Subscribe(context.Background(), topic, 0)
	require.NoError(t, err)

	feed.Drop(topic)

	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not give up")
	}
	<-sub.Done()
	assert.ErrorIs(t, sub.Err(), domain.ErrStoreUnavailable)

	feed.mu.Lock()
	calls := feed.calls
	feed.mu.Unlock()
	assert.Equal(t, 1+int(testBusConfig.MaxRetries)+1, calls)
}

func TestBus_CloseReleasesFeed(t *testing.T) {
	src := newMemorySource()
	feed := NewMemoryFeed(16)
	bus := NewBus(feed, src, testBusConfig)
	topic := MessageTopic(2)

	sub, err := bus.Subscribe(context.Background(), topic, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, feed.Subscribers(topic))

	sub.Close()
	assert.NoError(t, sub.Err())
	assert.Eventually(t, func() bool { return feed.Subscribers(topic) == 0 }, time.Second, 5*time.Millisecond)
	_, ok := <-sub.Events()
	assert.False(t, ok)
}

func TestBus_ContextCancelReleasesFeed(t *testing.T) {
	src := newMemorySource()
	feed := NewMemoryFeed(16)
	bus := NewBus(feed, src, testBusConfig)
	topic := MessageTopic(2)

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := bus.Subscribe(ctx, topic, 0)
	require.NoError(t, err)

	cancel()
	<-sub.Done()
	assert.NoError(t, sub.Err())
	assert.Eventually(t, func() bool { return feed.Subscribers(topic) == 0 }, time.Second, 5*time.Millisecond)
}

func TestBus_RejectsUnknownTopic(t *testing.T) {
	bus := NewBus(NewMemoryFeed(1), newMemorySource(), testBusConfig)
	_, err := bus.Subscribe(context.Background(), "gigs:all:1", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
