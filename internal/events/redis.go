package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/go-redis/redis/v8"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/docstore"
)

const defaultRedisPrefix = "storefront"

// NewRedisClient parses a redis:// URL into a client.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// RedisFeed is a docstore.ChangeFeed over Redis pub/sub. Sequence numbers come
// from INCR on a per-collection key.
type RedisFeed struct {
	client redis.UniversalClient
	prefix string
	logger *log.Logger
}

func NewRedisFeed(client redis.UniversalClient, logger *log.Logger) *RedisFeed {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &RedisFeed{client: client, prefix: defaultRedisPrefix, logger: logger}
}

func (f *RedisFeed) channel(collection string) string {
	return fmt.Sprintf("%s:documents:%s", f.prefix, collection)
}

func (f *RedisFeed) sequenceKey(collection string) string {
	return fmt.Sprintf("%s:seq:%s", f.prefix, collection)
}

func (f *RedisFeed) Publish(ctx context.Context, change docstore.Change) error {
	seq, err := f.client.Incr(ctx, f.sequenceKey(change.Collection)).Result()
	if err != nil {
		return fmt.Errorf("reserve sequence: %w", err)
	}

	body, err := json.Marshal(newDocumentChanged(change, &seq))
	if err != nil {
		return fmt.Errorf("marshal DocumentChanged: %w", err)
	}
	if err := f.client.Publish(ctx, f.channel(change.Collection), body).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", change.Collection, err)
	}
	return nil
}

func (f *RedisFeed) Watch(ctx context.Context, collection string, fn func(docstore.Change)) (func(), error) {
	channel := f.channel(collection)
	subCtx, cancel := context.WithCancel(ctx)

	pubsub := f.client.Subscribe(subCtx, channel)
	if _, err := pubsub.Receive(subCtx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	seen := newCheckpoint()
	go func() {
		defer func() { _ = pubsub.Close() }()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				change, err := parseDocumentChanged([]byte(msg.Payload))
				if err != nil {
					f.logger.Printf("%s watcher: %v", channel, err)
					continue
				}
				if !seen.advance(change) {
					f.logger.Printf("%s watcher: skip duplicate seq=%d", channel, change.Sequence)
					continue
				}
				fn(change)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			_ = pubsub.Close()
		})
	}, nil
}
