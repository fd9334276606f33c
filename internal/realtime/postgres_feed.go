package realtime

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gigmarket/internal/domain"
)

// PostgresFeed listens on the channels the insert triggers notify. Each
// subscription holds one pooled connection for its lifetime.
type PostgresFeed struct {
	pool *pgxpool.Pool
}

func NewPostgresFeed(ctx context.Context, databaseURL string) (*PostgresFeed, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: pgxpool: %v", domain.ErrStoreUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %v", domain.ErrStoreUnavailable, err)
	}
	return &PostgresFeed{pool: pool}, nil
}

func (f *PostgresFeed) Subscribe(ctx context.Context, topic Topic) (<-chan Signal, error) {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: acquire: %v", domain.ErrStoreUnavailable, err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{string(topic)}.Sanitize()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("%w: listen %s: %v", domain.ErrStoreUnavailable, topic, err)
	}

	out := make(chan Signal, 64)
	go func() {
		defer close(out)
		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				f.release(conn, topic, ctx.Err() == nil, err)
				return
			}
			sig, ok := decodeSignal(topic, n.Payload)
			if !ok {
				continue
			}
			if !deliver(ctx, out, sig) {
				f.release(conn, topic, false, nil)
				return
			}
		}
	}()
	return out, nil
}

// release returns a healthy connection to the pool after UNLISTEN and
// destroys a broken one.
func (f *PostgresFeed) release(conn *pgxpool.Conn, topic Topic, broken bool, err error) {
	if broken {
		log.Printf("realtime: postgres_listen_failed topic=%s err=%v", topic, err)
		_ = conn.Conn().Close(context.Background())
		conn.Release()
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := conn.Exec(ctx, "UNLISTEN "+pgx.Identifier{string(topic)}.Sanitize()); err != nil {
		_ = conn.Conn().Close(ctx)
	}
	conn.Release()
}

// Publish is a no-op: the insert triggers announce every row.
func (f *PostgresFeed) Publish(context.Context, Topic, int64) error {
	return nil
}

func (f *PostgresFeed) Close() error {
	f.pool.Close()
	return nil
}
