// Package dashboard keeps a live mirror of both record collections for one viewer
// and recomputes the filtered aggregation whenever either stream or the filter changes.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mamadbah2/stylishcuts/internal/domain/models"
	"github.com/mamadbah2/stylishcuts/internal/repository/records"
	"github.com/mamadbah2/stylishcuts/internal/service/aggregation"
	"github.com/mamadbah2/stylishcuts/internal/service/confirm"
)

var errClosed = errors.New("dashboard closed")

// Source is the part of the record adapter a dashboard consumes.
type Source interface {
	SubscribeSales(ctx context.Context, fn func([]models.SalesRecord)) (*records.Subscription, error)
	SubscribeExpenses(ctx context.Context, fn func([]models.ExpenseRecord)) (*records.Subscription, error)
	DeleteAll(ctx context.Context, c models.Collection) error
}

// View is an immutable picture of the dashboard at one point.
type View struct {
	aggregation.Result
	Filter aggregation.Filter
	// Ready turns true once both collections delivered their first snapshot.
	Ready   bool
	Version uint64
}

// Dashboard owns the mirrors for one viewer. Close must be called when the viewer goes away.
type Dashboard struct {
	source Source
	logger *zap.Logger

	mu            sync.Mutex
	sales         []models.SalesRecord
	expenses      []models.ExpenseRecord
	salesReady    bool
	expensesReady bool
	filter        aggregation.Filter
	view          View
	closed        bool
	subs          []*records.Subscription
	watchers      map[uint64]chan View
	nextWatcher   uint64
}

// Open subscribes to both collections.
func Open(ctx context.Context, source Source, logger *zap.Logger) (*Dashboard, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dashboard{
		source:   source,
		logger:   logger,
		watchers: make(map[uint64]chan View),
	}
	d.view = d.compute()

	salesSub, err := source.SubscribeSales(ctx, d.onSales)
	if err != nil {
		return nil, fmt.Errorf("subscribe sales: %w", err)
	}
	expensesSub, err := source.SubscribeExpenses(ctx, d.onExpenses)
	if err != nil {
		salesSub.Unsubscribe()
		return nil, fmt.Errorf("subscribe expenses: %w", err)
	}

	d.mu.Lock()
	d.subs = []*records.Subscription{salesSub, expensesSub}
	d.mu.Unlock()
	return d, nil
}

func (d *Dashboard) onSales(recs []models.SalesRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.sales = recs
	d.salesReady = true
	d.refreshLocked()
}

func (d *Dashboard) onExpenses(recs []models.ExpenseRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.expenses = recs
	d.expensesReady = true
	d.refreshLocked()
}

func (d *Dashboard) compute() View {
	return View{
		Result:  aggregation.FilterAndSummarize(d.sales, d.expenses, d.filter),
		Filter:  d.filter,
		Ready:   d.salesReady && d.expensesReady,
		Version: d.view.Version + 1,
	}
}

// refreshLocked recomputes the view and hands it to every watcher, replacing a
// view the watcher has not consumed yet.
func (d *Dashboard) refreshLocked() {
	d.view = d.compute()
	for _, ch := range d.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- d.view
	}
}

// View returns the current filtered aggregation.
func (d *Dashboard) View() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view
}

// Records returns the unfiltered mirrors in id order.
func (d *Dashboard) Records() ([]models.SalesRecord, []models.ExpenseRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.SalesRecord(nil), d.sales...), append([]models.ExpenseRecord(nil), d.expenses...)
}

// FindSales looks a sales record up in the mirror.
func (d *Dashboard) FindSales(id string) (models.SalesRecord, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range d.sales {
		if r.ID == id {
			return r.Clone(), true
		}
	}
	return models.SalesRecord{}, false
}

// FindExpense looks an expense record up in the mirror.
func (d *Dashboard) FindExpense(id string) (models.ExpenseRecord, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range d.expenses {
		if r.ID == id {
			return r, true
		}
	}
	return models.ExpenseRecord{}, false
}

// SetDate filters by exact date, clearing any month filter.
func (d *Dashboard) SetDate(date string) View {
	return d.setFilter(aggregation.ByDate(date))
}

// SetMonth filters by month prefix, clearing any date filter.
func (d *Dashboard) SetMonth(month string) View {
	return d.setFilter(aggregation.ByMonth(month))
}

// ClearFilters returns to the unfiltered totals.
func (d *Dashboard) ClearFilters() View {
	return d.setFilter(aggregation.None())
}

// SetFilter replaces the active filter.
func (d *Dashboard) SetFilter(f aggregation.Filter) View {
	return d.setFilter(f)
}

func (d *Dashboard) setFilter(f aggregation.Filter) View {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.filter = f
	if !d.closed {
		d.refreshLocked()
	}
	return d.view
}

// Watch streams every new view. Only the latest unconsumed view is kept.
// The channel is closed by cancel or by Close.
func (d *Dashboard) Watch() (<-chan View, func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ch := make(chan View, 1)
	if d.closed {
		close(ch)
		return ch, func() {}
	}
	id := d.nextWatcher
	d.nextWatcher++
	d.watchers[id] = ch
	ch <- d.view

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			if w, ok := d.watchers[id]; ok {
				delete(d.watchers, id)
				close(w)
			}
		})
	}
}

// WaitReady blocks until both collections delivered their first snapshot.
func (d *Dashboard) WaitReady(ctx context.Context) (View, error) {
	return d.WaitUntil(ctx, func(v View) bool { return v.Ready })
}

// WaitUntil blocks until cond holds, checking it against the current view and
// again after every recompute.
func (d *Dashboard) WaitUntil(ctx context.Context, cond func(View) bool) (View, error) {
	ch, cancel := d.Watch()
	defer cancel()
	for {
		select {
		case v, ok := <-ch:
			if !ok {
				return d.View(), errClosed
			}
			if cond(v) {
				return v, nil
			}
		case <-ctx.Done():
			return d.View(), ctx.Err()
		}
	}
}

// ClearAll deletes every sales and expense record after two confirmations.
// Declining either prompt returns (false, nil). When sales were removed but
// expenses were not, the error wraps models.ErrPartialFailure.
func (d *Dashboard) ClearAll(ctx context.Context, c confirm.Confirmer) (bool, error) {
	if !c.Confirm(confirm.ClearAllPrompt) {
		return false, nil
	}
	if !c.Confirm(confirm.ClearAllFinal) {
		return false, nil
	}

	d.logger.Warn("clearing all records")
	if err := d.source.DeleteAll(ctx, models.CollectionSales); err != nil {
		return false, fmt.Errorf("clear sales: %w", err)
	}
	if err := d.source.DeleteAll(ctx, models.CollectionExpenses); err != nil {
		d.logger.Error("expenses not cleared after sales were removed", zap.Error(err))
		return false, fmt.Errorf("clear expenses: sales were already removed, records are now inconsistent: %w: %w", models.ErrPartialFailure, err)
	}
	d.logger.Info("all records cleared")
	return true, nil
}

// Close unsubscribes both streams and closes every watcher. It is idempotent;
// after it returns the dashboard no longer changes.
func (d *Dashboard) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	subs := d.subs
	d.subs = nil
	for id, ch := range d.watchers {
		delete(d.watchers, id)
		close(ch)
	}
	d.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

// Closed reports whether Close was called.
func (d *Dashboard) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
