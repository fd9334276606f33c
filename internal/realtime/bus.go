package realtime

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"gigmarket/internal/domain"
	"gigmarket/internal/metrics"
)

// FromNow starts a subscription after the newest stored row.
const FromNow int64 = -1

const (
	defaultResubscribeBase = 500 * time.Millisecond
	defaultMaxRetries      = 8
	defaultBackfillLimit   = 500
	defaultLookback        = 1000
	maxResubscribeDelay    = 30 * time.Second
)

type BusConfig struct {
	ResubscribeBase time.Duration
	MaxRetries      uint64
	BackfillLimit   int
	// Lookback is how many ids below the newest delivered row are re-read on
	// every catch-up. Ids are allocated at insert but become visible at
	// commit, so a lower id can appear after a higher one was delivered.
	Lookback int64
}

// Bus turns feed signals into ordered row delivery. Signals only wake a
// subscription up; rows are read from the store past the subscription's
// cursor, so each row is delivered once and in id order even when signals
// are duplicated, reordered or lost during a feed outage.
type Bus struct {
	feed   Feed
	source Source
	cfg    BusConfig
}

func NewBus(feed Feed, source Source, cfg BusConfig) *Bus {
	if cfg.ResubscribeBase <= 0 {
		cfg.ResubscribeBase = defaultResubscribeBase
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.BackfillLimit <= 0 {
		cfg.BackfillLimit = defaultBackfillLimit
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = defaultLookback
	}
	return &Bus{feed: feed, source: source, cfg: cfg}
}

// Subscription is a live, context-scoped stream of rows for one topic.
type Subscription struct {
	topic  Topic
	events chan Item
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	err    error
	cursor int64

	// start is the caller's cursor; rows at or below it are never delivered.
	start     int64
	lookback  int64
	delivered map[int64]struct{}
}

func (s *Subscription) Topic() Topic { return s.topic }

// Events is closed when the subscription ends.
func (s *Subscription) Events() <-chan Item { return s.events }

// Done is closed when the subscription has released its feed resources.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Err reports why the subscription ended. It is nil while the subscription
// is live and after Close or context cancellation.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Cursor returns the highest delivered row id.
func (s *Subscription) Cursor() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Close releases the subscription and waits for it to stop.
func (s *Subscription) Close() {
	s.cancel()
	<-s.done
}

func (s *Subscription) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// floor is the id below which no row can still be pending delivery.
func (s *Subscription) floor() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.floorLocked()
}

func (s *Subscription) floorLocked() int64 {
	return max(s.start, s.cursor-s.lookback)
}

// pending reports whether id may still need delivering.
func (s *Subscription) pending(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id <= s.floorLocked() {
		return false
	}
	_, seen := s.delivered[id]
	return !seen
}

func (s *Subscription) markDelivered(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivered[id] = struct{}{}
	if id > s.cursor {
		s.cursor = id
	}
	floor := s.floorLocked()
	for seen := range s.delivered {
		if seen <= floor {
			delete(s.delivered, seen)
		}
	}
}

// Subscribe opens a subscription on topic delivering rows with id > after.
// Pass FromNow to receive only rows inserted from here on.
func (b *Bus) Subscribe(ctx context.Context, topic Topic, after int64) (*Subscription, error) {
	kind, _, err := topic.Parse()
	if err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	// Listen before reading the cursor so nothing inserted in between is lost.
	signals, stop, err := b.listen(subCtx, topic)
	if err != nil {
		cancel()
		return nil, err
	}

	if after == FromNow {
		after, err = b.source.LatestID(subCtx, topic)
		if err != nil {
			stop()
			cancel()
			return nil, err
		}
	}
	if after < 0 {
		after = 0
	}

	s := &Subscription{
		topic:  topic,
		events: make(chan Item, b.cfg.BackfillLimit),
		cancel: cancel,
		done:   make(chan struct{}),
		cursor:    after,
		start:     after,
		lookback:  b.cfg.Lookback,
		delivered: make(map[int64]struct{}),
	}

	metrics.ActiveSubscriptions.WithLabelValues(string(kind)).Inc()
	go func() {
		defer metrics.ActiveSubscriptions.WithLabelValues(string(kind)).Dec()
		defer close(s.done)
		defer close(s.events)
		b.run(subCtx, s, signals, stop)
	}()
	return s, nil
}

func (b *Bus) run(ctx context.Context, s *Subscription, signals <-chan Signal, stop context.CancelFunc) {
	defer func() { stop() }()

	for {
		if err := b.catchUp(ctx, s); err != nil {
			if ctx.Err() == nil {
				log.Printf("realtime: catch_up_failed topic=%s err=%v", s.topic, err)
				s.fail(err)
			}
			return
		}

		if !b.pump(ctx, s, signals) {
			return
		}

		// The feed dropped us while the subscriber is still there.
		stop()
		log.Printf("realtime: feed_lost topic=%s cursor=%d", s.topic, s.Cursor())

		next, nextStop, err := b.resubscribe(ctx, s.topic)
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("realtime: resubscribe_exhausted topic=%s err=%v", s.topic, err)
				s.fail(fmt.Errorf("realtime: resubscribe %s: %w", s.topic, err))
			}
			return
		}
		signals, stop = next, nextStop
	}
}

// pump waits for signals and catches up on each one past the cursor. It
// returns true when the feed channel closed and false when the subscription
// is finished.
func (b *Bus) pump(ctx context.Context, s *Subscription, signals <-chan Signal) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case sig, ok := <-signals:
			if !ok {
				return ctx.Err() == nil
			}
			if !s.pending(sig.ID) {
				continue
			}
			if err := b.catchUp(ctx, s); err != nil {
				if ctx.Err() == nil {
					log.Printf("realtime: catch_up_failed topic=%s err=%v", s.topic, err)
					s.fail(err)
				}
				return false
			}
		}
	}
}

// catchUp delivers every stored row above the floor that was not delivered
// yet, page by page. Store errors are retried with the resubscribe backoff.
func (b *Bus) catchUp(ctx context.Context, s *Subscription) error {
	kind := string(s.topic.Kind())
	from := s.floor()
	for {
		items, err := retry.DoValue(ctx, b.backoff(), func(ctx context.Context) ([]Item, error) {
			items, err := b.source.After(ctx, s.topic, from, b.cfg.BackfillLimit)
			if err != nil && errors.Is(err, domain.ErrStoreUnavailable) {
				return nil, retry.RetryableError(err)
			}
			return items, err
		})
		if err != nil {
			return err
		}

		for _, item := range items {
			from = max(from, item.ID)
			if !s.pending(item.ID) {
				continue
			}
			select {
			case s.events <- item:
			case <-ctx.Done():
				return ctx.Err()
			}
			s.markDelivered(item.ID)
			metrics.EventsDelivered.WithLabelValues(kind).Inc()
		}

		if len(items) < b.cfg.BackfillLimit {
			return nil
		}
	}
}

func (b *Bus) resubscribe(ctx context.Context, topic Topic) (<-chan Signal, context.CancelFunc, error) {
	type attempt struct {
		signals <-chan Signal
		stop    context.CancelFunc
	}

	a, err := retry.DoValue(ctx, b.backoff(), func(ctx context.Context) (attempt, error) {
		metrics.Resubscribes.Inc()
		signals, stop, err := b.listen(ctx, topic)
		if err != nil {
			if errors.Is(err, ErrFeedClosed) {
				return attempt{}, err
			}
			log.Printf("realtime: resubscribe_failed topic=%s err=%v", topic, err)
			return attempt{}, retry.RetryableError(err)
		}
		return attempt{signals: signals, stop: stop}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return a.signals, a.stop, nil
}

// listen opens one feed subscription with its own context, so a lost
// subscription can be released without ending the bus subscription.
func (b *Bus) listen(ctx context.Context, topic Topic) (<-chan Signal, context.CancelFunc, error) {
	attemptCtx, stop := context.WithCancel(ctx)
	signals, err := b.feed.Subscribe(attemptCtx, topic)
	if err != nil {
		stop()
		return nil, nil, err
	}
	return signals, stop, nil
}

func (b *Bus) backoff() retry.Backoff {
	backoff := retry.NewExponential(b.cfg.ResubscribeBase)
	backoff = retry.WithCappedDuration(maxResubscribeDelay, backoff)
	return retry.WithMaxRetries(b.cfg.MaxRetries, backoff)
}
