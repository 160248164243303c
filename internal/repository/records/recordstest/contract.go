// Package recordstest holds the behaviour every records.Backend must share.
package recordstest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/stylishcuts/internal/domain/models"
	"github.com/mamadbah2/stylishcuts/internal/repository/records"
)

const wait = 5 * time.Second

// Run exercises backend against the shared contract. The backend must start empty.
func Run(t *testing.T, backend records.Backend) {
	t.Helper()
	ctx := context.Background()

	t.Run("initial snapshot", func(t *testing.T) {
		ch := subscribe(t, backend, models.CollectionSales)
		snap := next(t, ch, func(records.Snapshot) bool { return true })
		assert.Empty(t, snap)
	})

	t.Run("append update delete", func(t *testing.T) {
		ch := subscribe(t, backend, models.CollectionExpenses)

		keep, err := backend.Append(ctx, models.CollectionExpenses, models.Document{"date": "2025-03-14", "amount": 10.0, "notes": "soap"})
		require.NoError(t, err)
		drop, err := backend.Append(ctx, models.CollectionExpenses, models.Document{"date": "2025-03-15", "amount": 20.0})
		require.NoError(t, err)
		next(t, ch, func(s records.Snapshot) bool { return len(s) == 2 })

		require.NoError(t, backend.UpdateFields(ctx, models.CollectionExpenses, keep, models.Document{"amount": 12.0}))
		snap := next(t, ch, func(s records.Snapshot) bool {
			rec, err := models.DecodeExpense(keep, s[keep])
			return err == nil && rec.Amount == 12
		})
		assert.Equal(t, "soap", snap[keep]["notes"])

		require.NoError(t, backend.DeleteOne(ctx, models.CollectionExpenses, drop))
		snap = next(t, ch, func(s records.Snapshot) bool { return len(s) == 1 })
		assert.Contains(t, snap, keep)

		require.NoError(t, backend.DeleteAll(ctx, models.CollectionExpenses))
		next(t, ch, func(s records.Snapshot) bool { return len(s) == 0 })
	})

	t.Run("update missing record", func(t *testing.T) {
		err := backend.UpdateFields(ctx, models.CollectionSales, records.NewID(), models.Document{"date": "x"})
		assert.ErrorIs(t, err, models.ErrRecordNotFound)
	})

	t.Run("unsubscribe twice", func(t *testing.T) {
		got := make(chan records.Snapshot, 16)
		sub, err := backend.Subscribe(ctx, models.CollectionSales, func(s records.Snapshot) { got <- s })
		require.NoError(t, err)
		next(t, got, func(records.Snapshot) bool { return true })

		sub.Unsubscribe()
		sub.Unsubscribe()
		_, err = backend.Append(ctx, models.CollectionSales, models.Document{"date": "2025-03-14"})
		require.NoError(t, err)
		assert.Never(t, func() bool { return len(got) > 0 }, 300*time.Millisecond, 20*time.Millisecond)

		require.NoError(t, backend.DeleteAll(ctx, models.CollectionSales))
	})
}

func subscribe(t *testing.T, backend records.Backend, c models.Collection) <-chan records.Snapshot {
	t.Helper()
	ch := make(chan records.Snapshot, 64)
	sub, err := backend.Subscribe(context.Background(), c, func(s records.Snapshot) { ch <- s })
	require.NoError(t, err)
	t.Cleanup(sub.Unsubscribe)
	return ch
}

func next(t *testing.T, ch <-chan records.Snapshot, match func(records.Snapshot) bool) records.Snapshot {
	t.Helper()
	deadline := time.After(wait)
	for {
		select {
		case snap := <-ch:
			if match(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timed out waiting for a matching snapshot")
			return nil
		}
	}
}
