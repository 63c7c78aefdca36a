package cli

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/docstore"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/identity"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/sequence"
)

var errNoDatabase = errors.New("DATABASE_DSN is not set")

// backend is the document store and account store the app runs against,
// plus whatever connections they hold open.
type backend struct {
	store   docstore.Store
	users   identity.UserStore
	closers []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}

// openBackend keeps everything in memory when no database is configured.
// Otherwise documents and users live in Postgres and changes travel over the
// configured feed.
func openBackend(ctx context.Context, cfg config.Config, logger *log.Logger) (*backend, error) {
	if cfg.DatabaseDSN == "" {
		logger.Printf("no DATABASE_DSN; documents and accounts are kept in memory")
		return &backend{store: docstore.NewMemory(), users: identity.NewMemoryUserStore()}, nil
	}

	b := &backend{}
	ok := false
	defer func() {
		if !ok {
			b.Close()
		}
	}()

	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			return nil, fmt.Errorf("db migrate: %w", err)
		}
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	b.closers = append(b.closers, pool.Close)

	sqlDB, err := db.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	b.closers = append(b.closers, func() { _ = sqlDB.Close() })

	var feed docstore.ChangeFeed
	switch cfg.ChangeFeed {
	case config.FeedRabbitMQ:
		conn, err := events.DialRabbit(cfg.RabbitMQURL)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = conn.Close() })

		rf, err := events.NewRabbitFeed(conn, sequence.NewCounter(pool), logger)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq feed: %w", err)
		}
		b.closers = append(b.closers, func() { _ = rf.Close() })
		feed = rf
	case config.FeedRedis:
		client, err := events.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis connect: %w", err)
		}
		b.closers = append(b.closers, func() { _ = client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		feed = events.NewRedisFeed(client, logger)
	default:
		feed = docstore.NewLocalFeed()
	}

	logger.Printf("documents in postgres, change feed=%s", cfg.ChangeFeed)
	b.store = docstore.NewPostgres(pool, feed, logger)
	b.users = identity.NewPostgresUserStore(sqlDB)
	ok = true
	return b, nil
}
