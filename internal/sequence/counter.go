// Package sequence numbers published document changes per partition so
// watchers can recognise redeliveries.
package sequence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const nextSQL = `
	INSERT INTO event_sequence AS s (partition_key, last_sequence)
	VALUES ($1, 1)
	ON CONFLICT (partition_key)
	DO UPDATE SET last_sequence = s.last_sequence + 1, updated_at = now()
	RETURNING s.last_sequence`

// Counter is backed by the event_sequence table, so every process sharing
// the database draws from the same sequence.
type Counter struct {
	db Querier
}

func NewCounter(db Querier) *Counter {
	return &Counter{db: db}
}

// Next reserves the next number for partition. The first call returns 1.
func (c *Counter) Next(ctx context.Context, partition string) (int64, error) {
	var n int64
	if err := c.db.QueryRow(ctx, nextSQL, partition).Scan(&n); err != nil {
		return 0, fmt.Errorf("next sequence %s: %w", partition, err)
	}
	return n, nil
}
