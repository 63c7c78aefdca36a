package docstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalFeed_SequencesPerCollection(t *testing.T) {
	ctx := context.Background()
	feed := NewLocalFeed()

	var products, orders []Change
	stopProducts, err := feed.Watch(ctx, CollectionProducts, func(c Change) { products = append(products, c) })
	require.NoError(t, err)
	_, err = feed.Watch(ctx, CollectionOrders, func(c Change) { orders = append(orders, c) })
	require.NoError(t, err)

	require.NoError(t, feed.Publish(ctx, Change{Collection: CollectionProducts, DocumentID: "1", Op: OpWrite}))
	require.NoError(t, feed.Publish(ctx, Change{Collection: CollectionProducts, DocumentID: "2", Op: OpDelete}))
	require.NoError(t, feed.Publish(ctx, Change{Collection: CollectionOrders, DocumentID: "9", Op: OpWrite}))

	require.Len(t, products, 2)
	require.Equal(t, int64(1), products[0].Sequence)
	require.Equal(t, int64(2), products[1].Sequence)
	require.False(t, products[0].OccurredAt.IsZero())
	require.Len(t, orders, 1)
	require.Equal(t, int64(1), orders[0].Sequence)

	stopProducts()
	stopProducts()
	require.NoError(t, feed.Publish(ctx, Change{Collection: CollectionProducts, DocumentID: "3", Op: OpWrite}))
	require.Len(t, products, 2)
}
