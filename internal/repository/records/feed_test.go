package records_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mamadbah2/stylishcuts/internal/domain/models"
	"github.com/mamadbah2/stylishcuts/internal/repository/records"
)

func emptyFeed(t *testing.T) *records.Feed {
	t.Helper()
	return records.NewFeed(func(context.Context, models.Collection) (records.Snapshot, error) {
		return records.Snapshot{}, nil
	}, zaptest.NewLogger(t))
}

func TestUnsubscribeWaitsForListenerInProgress(t *testing.T) {
	ctx := context.Background()
	feed := emptyFeed(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	sub, err := feed.Subscribe(ctx, models.CollectionSales, func(records.Snapshot) {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
		}
	})
	require.NoError(t, err)

	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("first snapshot was not delivered")
	}

	unsubscribed := make(chan struct{})
	go func() {
		sub.Unsubscribe()
		close(unsubscribed)
	}()
	require.NoError(t, feed.Refresh(ctx, models.CollectionSales))

	select {
	case <-unsubscribed:
		t.Fatal("Unsubscribe returned while the listener was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-unsubscribed:
	case <-time.After(time.Second):
		t.Fatal("Unsubscribe did not return after the listener finished")
	}

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNoDeliveryAfterUnsubscribeReturns(t *testing.T) {
	ctx := context.Background()
	feed := emptyFeed(t)

	for i := 0; i < 200; i++ {
		var stopped, late atomic.Bool
		sub, err := feed.Subscribe(ctx, models.CollectionExpenses, func(records.Snapshot) {
			if stopped.Load() {
				late.Store(true)
			}
		})
		require.NoError(t, err)

		require.NoError(t, feed.Refresh(ctx, models.CollectionExpenses))
		sub.Unsubscribe()
		stopped.Store(true)
		require.NoError(t, feed.Refresh(ctx, models.CollectionExpenses))

		time.Sleep(time.Millisecond)
		require.False(t, late.Load(), "listener ran after Unsubscribe returned (iteration %d)", i)
	}
	assert.Zero(t, feed.Subscribers(models.CollectionExpenses))
}
