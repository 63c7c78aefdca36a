package docstore

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Postgres keeps documents as jsonb rows and drives subscriptions from a
// ChangeFeed.
type Postgres struct {
	pool   DBPool
	feed   ChangeFeed
	logger *log.Logger
}

func NewPostgres(pool DBPool, feed ChangeFeed, logger *log.Logger) *Postgres {
	if feed == nil {
		feed = NewLocalFeed()
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Postgres{pool: pool, feed: feed, logger: logger}
}

func unavailable(op Op, collection, id string, err error) error {
	return newError(op, collection, id, CodeUnavailable, err)
}

func (s *Postgres) announce(ctx context.Context, op Op, collection, id string) {
	err := s.feed.Publish(ctx, Change{
		Collection: collection,
		DocumentID: id,
		Op:         op,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Printf("publish change failed collection=%s id=%s op=%s: %v", collection, id, op, err)
	}
}

func (s *Postgres) Write(ctx context.Context, collection, id string, data any) error {
	body, err := encode(OpWrite, collection, id, data)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO documents(collection, id, data)
		VALUES($1, $2, $3::jsonb)
		ON CONFLICT (collection, id) DO UPDATE SET data=EXCLUDED.data, updated_at=now()
	`, collection, id, string(body))
	if err != nil {
		return unavailable(OpWrite, collection, id, err)
	}
	s.announce(ctx, OpWrite, collection, id)
	return nil
}

func (s *Postgres) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	body, err := encode(OpUpdate, collection, id, fields)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE documents SET data = data || $3::jsonb, updated_at=now()
		WHERE collection=$1 AND id=$2
	`, collection, id, string(body))
	if err != nil {
		return unavailable(OpUpdate, collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return newError(OpUpdate, collection, id, CodeNotFound, ErrNotFound)
	}
	s.announce(ctx, OpUpdate, collection, id)
	return nil
}

func (s *Postgres) Delete(ctx context.Context, collection, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE collection=$1 AND id=$2`, collection, id)
	if err != nil {
		return unavailable(OpDelete, collection, id, err)
	}
	s.announce(ctx, OpDelete, collection, id)
	return nil
}

func (s *Postgres) ReadAll(ctx context.Context, collection string) ([]Document, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, data FROM documents WHERE collection=$1 ORDER BY id`, collection)
	if err != nil {
		return nil, unavailable(OpRead, collection, "", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, unavailable(OpRead, collection, "", err)
		}
		docs = append(docs, Document{ID: id, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(OpRead, collection, "", err)
	}
	return docs, nil
}

// Subscribe reads the collection once and again after every change the feed
// reports. Bursts of changes collapse into a single re-read.
func (s *Postgres) Subscribe(collection string, onSnapshot func([]Document), onError func(error)) Subscription {
	ctx, cancel := context.WithCancel(context.Background())

	pending := make(chan struct{}, 1)
	notify := func() {
		select {
		case pending <- struct{}{}:
		default:
		}
	}

	stop, err := s.feed.Watch(ctx, collection, func(Change) { notify() })
	if err != nil {
		cancel()
		onError(unavailable(OpSubscribe, collection, "", err))
		return NewSubscription(nil)
	}
	notify()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-pending:
				docs, err := s.ReadAll(ctx, collection)
				if ctx.Err() != nil {
					return
				}
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return
					}
					onError(err)
					continue
				}
				onSnapshot(docs)
			}
		}
	}()

	return NewSubscription(func() {
		cancel()
		stop()
	})
}
