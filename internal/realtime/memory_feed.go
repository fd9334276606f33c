package realtime

import (
	"context"
	"log"
	"sync"
)

const defaultMemoryBuffer = 128

// MemoryFeed fans signals out in process. A subscriber that falls behind by
// more than the buffer is dropped; the bus treats that like any other feed
// loss and catches up from the store.
type MemoryFeed struct {
	mu      sync.Mutex
	buffer  int
	subs    map[Topic]map[int]chan Signal
	nextSub int
	closed  bool
	done    chan struct{}
}

func NewMemoryFeed(buffer int) *MemoryFeed {
	if buffer < 1 {
		buffer = defaultMemoryBuffer
	}
	return &MemoryFeed{
		buffer: buffer,
		subs:   make(map[Topic]map[int]chan Signal),
		done:   make(chan struct{}),
	}
}

func (f *MemoryFeed) Subscribe(ctx context.Context, topic Topic) (<-chan Signal, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrFeedClosed
	}
	id := f.nextSub
	f.nextSub++
	ch := make(chan Signal, f.buffer)
	if f.subs[topic] == nil {
		f.subs[topic] = make(map[int]chan Signal)
	}
	f.subs[topic][id] = ch
	f.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-f.done:
		}
		f.remove(topic, id)
	}()
	return ch, nil
}

func (f *MemoryFeed) Publish(_ context.Context, topic Topic, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrFeedClosed
	}

	sig := Signal{Topic: topic, ID: id}
	for subID, ch := range f.subs[topic] {
		select {
		case ch <- sig:
		default:
			log.Printf("realtime: memory_feed_slow_subscriber topic=%s", topic)
			close(ch)
			delete(f.subs[topic], subID)
		}
	}
	return nil
}

// Drop closes every live subscription on topic, as a broken feed would.
func (f *MemoryFeed) Drop(topic Topic) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for subID, ch := range f.subs[topic] {
		close(ch)
		delete(f.subs[topic], subID)
	}
}

// Subscribers returns the number of live subscriptions on topic.
func (f *MemoryFeed) Subscribers(topic Topic) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[topic])
}

func (f *MemoryFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	close(f.done)
	return nil
}

func (f *MemoryFeed) remove(topic Topic, id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.subs[topic][id]; ok {
		close(ch)
		delete(f.subs[topic], id)
		if len(f.subs[topic]) == 0 {
			delete(f.subs, topic)
		}
	}
}
