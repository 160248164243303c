package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mamadbah2/stylishcuts/internal/domain/models"
	"github.com/mamadbah2/stylishcuts/internal/repository/records"
	"github.com/mamadbah2/stylishcuts/internal/repository/records/recordstest"
)

func collect(t *testing.T, s *Store, c models.Collection) (*records.Subscription, <-chan records.Snapshot) {
	t.Helper()
	ch := make(chan records.Snapshot, 32)
	sub, err := s.Subscribe(context.Background(), c, func(snap records.Snapshot) { ch <- snap })
	require.NoError(t, err)
	t.Cleanup(sub.Unsubscribe)
	return sub, ch
}

func waitFor(t *testing.T, ch <-chan records.Snapshot, match func(records.Snapshot) bool) records.Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-ch:
			if match(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
			return nil
		}
	}
}

func TestSubscribeDeliversEmptyCollectionImmediately(t *testing.T) {
	s := New(zaptest.NewLogger(t))
	_, ch := collect(t, s, models.CollectionSales)

	snap := waitFor(t, ch, func(records.Snapshot) bool { return true })
	assert.Empty(t, snap)
}

func TestAppendIsDeliveredAsFullSnapshot(t *testing.T) {
	ctx := context.Background()
	s := New(zaptest.NewLogger(t))

	first, err := s.Append(ctx, models.CollectionExpenses, models.Document{"amount": 10.0})
	require.NoError(t, err)

	_, ch := collect(t, s, models.CollectionExpenses)
	second, err := s.Append(ctx, models.CollectionExpenses, models.Document{"amount": 20.0})
	require.NoError(t, err)

	snap := waitFor(t, ch, func(s records.Snapshot) bool { return len(s) == 2 })
	assert.Contains(t, snap, first)
	assert.Contains(t, snap, second)
	assert.Less(t, first, second, "ids follow insertion order")
}

func TestDeleteOneRemovesOnlyTarget(t *testing.T) {
	ctx := context.Background()
	s := New(zaptest.NewLogger(t))

	keep, err := s.Append(ctx, models.CollectionSales, models.Document{"date": "2025-03-14"})
	require.NoError(t, err)
	drop, err := s.Append(ctx, models.CollectionSales, models.Document{"date": "2025-03-15"})
	require.NoError(t, err)

	_, ch := collect(t, s, models.CollectionSales)
	waitFor(t, ch, func(s records.Snapshot) bool { return len(s) == 2 })

	require.NoError(t, s.DeleteOne(ctx, models.CollectionSales, drop))

	snap := waitFor(t, ch, func(s records.Snapshot) bool { return len(s) != 2 })
	require.Len(t, snap, 1)
	assert.Equal(t, "2025-03-14", snap[keep]["date"])
}

func TestUpdateFieldsMergesSuppliedFieldsOnly(t *testing.T) {
	ctx := context.Background()
	s := New(zaptest.NewLogger(t))

	id, err := s.Append(ctx, models.CollectionExpenses, models.Document{"amount": 10.0, "notes": "rent"})
	require.NoError(t, err)
	require.NoError(t, s.UpdateFields(ctx, models.CollectionExpenses, id, models.Document{"amount": 12.0}))

	_, ch := collect(t, s, models.CollectionExpenses)
	snap := waitFor(t, ch, func(s records.Snapshot) bool { return len(s) == 1 })
	assert.Equal(t, 12.0, snap[id]["amount"])
	assert.Equal(t, "rent", snap[id]["notes"])
}

func TestUpdateFieldsUnknownID(t *testing.T) {
	s := New(zaptest.NewLogger(t))
	err := s.UpdateFields(context.Background(), models.CollectionSales, "missing", models.Document{"date": "x"})
	assert.ErrorIs(t, err, models.ErrRecordNotFound)
}

func TestUnsubscribeIsIdempotentAndStopsDelivery(t *testing.T) {
	ctx := context.Background()
	s := New(zaptest.NewLogger(t))
	sub, ch := collect(t, s, models.CollectionSales)
	waitFor(t, ch, func(records.Snapshot) bool { return true })

	sub.Unsubscribe()
	sub.Unsubscribe()

	_, err := s.Append(ctx, models.CollectionSales, models.Document{"date": "2025-03-14"})
	require.NoError(t, err)

	assert.Never(t, func() bool { return len(ch) > 0 }, 200*time.Millisecond, 20*time.Millisecond)
	assert.Equal(t, 0, s.feed.Subscribers(models.CollectionSales))
}

func TestSubscriptionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	s := New(zaptest.NewLogger(t))
	a, chA := collect(t, s, models.CollectionSales)
	_, chB := collect(t, s, models.CollectionSales)
	waitFor(t, chA, func(records.Snapshot) bool { return true })
	waitFor(t, chB, func(records.Snapshot) bool { return true })

	a.Unsubscribe()
	_, err := s.Append(ctx, models.CollectionSales, models.Document{"date": "2025-03-14"})
	require.NoError(t, err)

	waitFor(t, chB, func(s records.Snapshot) bool { return len(s) == 1 })
}

func TestDeleteAllAndFailures(t *testing.T) {
	ctx := context.Background()
	s := New(zaptest.NewLogger(t))
	_, err := s.Append(ctx, models.CollectionSales, models.Document{"date": "2025-03-14"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteAll(ctx, models.CollectionSales))
	_, ch := collect(t, s, models.CollectionSales)
	snap := waitFor(t, ch, func(records.Snapshot) bool { return true })
	assert.Empty(t, snap)

	s.FailWrites(errors.New("network down"))
	_, err = s.Append(ctx, models.CollectionSales, models.Document{})
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	assert.ErrorIs(t, s.DeleteAll(ctx, models.CollectionSales), models.ErrStoreUnavailable)
}

func TestContract(t *testing.T) {
	recordstest.Run(t, New(zaptest.NewLogger(t)))
}
