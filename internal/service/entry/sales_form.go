// Package entry holds the sales and expense capture forms. Forms keep user input
// across failed submissions and reset only after the store accepted the record.
package entry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/stylishcuts/internal/domain/models"
)

var (
	// ErrSubmitInProgress is returned when a submission is already waiting on the store.
	ErrSubmitInProgress = errors.New("submission already in progress")
	// ErrLastItem is returned when removing the only remaining customer row.
	ErrLastItem = errors.New("at least one customer row is required")
	// ErrNoSuchItem is returned for an out-of-range row position.
	ErrNoSuchItem = errors.New("no such customer row")
)

// SalesSink persists new sales records.
type SalesSink interface {
	AppendSales(ctx context.Context, rec models.SalesRecord) (string, error)
}

// Option customizes a form.
type Option func(*options)

type options struct {
	now    func() time.Time
	logger *zap.Logger
}

// WithClock overrides the clock used for today's date and record timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

// SalesForm captures one day's customers.
type SalesForm struct {
	sink SalesSink
	opts options

	mu         sync.Mutex
	date       string
	items      []models.Customer
	submitting bool
}

// NewSalesForm returns a form with one blank row dated today.
func NewSalesForm(sink SalesSink, opts ...Option) *SalesForm {
	f := &SalesForm{sink: sink, opts: buildOptions(opts)}
	f.reset()
	return f
}

func blankItem() models.Customer {
	return models.Customer{Service: models.DefaultService}
}

func (f *SalesForm) reset() {
	f.date = f.opts.now().Format(models.DateLayout)
	f.items = []models.Customer{blankItem()}
}

// Date returns the date the record will carry.
func (f *SalesForm) Date() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.date
}

// SetDate changes the record date.
func (f *SalesForm) SetDate(date string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.date = strings.TrimSpace(date)
}

// Items returns a copy of the current rows.
func (f *SalesForm) Items() []models.Customer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Customer(nil), f.items...)
}

// AddItem appends a blank row.
func (f *SalesForm) AddItem() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, blankItem())
}

// RemoveItem drops the row at i. The last remaining row cannot be removed.
func (f *SalesForm) RemoveItem(i int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i < 0 || i >= len(f.items) {
		return fmt.Errorf("remove row %d: %w", i, ErrNoSuchItem)
	}
	if len(f.items) == 1 {
		return ErrLastItem
	}
	f.items = append(f.items[:i], f.items[i+1:]...)
	return nil
}

// SetItem replaces the row at i.
func (f *SalesForm) SetItem(i int, item models.Customer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i < 0 || i >= len(f.items) {
		return fmt.Errorf("set row %d: %w", i, ErrNoSuchItem)
	}
	if item.Service == "" {
		item.Service = models.DefaultService
	}
	f.items[i] = item
	return nil
}

// SetItems replaces every row at once, as a posted form does. An empty slice leaves one blank row.
func (f *SalesForm) SetItems(items []models.Customer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = f.items[:0]
	for _, item := range items {
		if item.Service == "" {
			item.Service = models.DefaultService
		}
		f.items = append(f.items, item)
	}
	if len(f.items) == 0 {
		f.items = append(f.items, blankItem())
	}
}

// Total is the running sum of every row's price, including rows that would be discarded.
func (f *SalesForm) Total() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return models.SumPrices(f.items)
}

// Submitting reports whether a submission is waiting on the store.
func (f *SalesForm) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// Submit validates and persists the form. Rows with a blank name or a non-positive
// price are discarded. On failure the rows stay as entered.
func (f *SalesForm) Submit(ctx context.Context) (models.SalesRecord, error) {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return models.SalesRecord{}, ErrSubmitInProgress
	}
	if f.date == "" {
		f.mu.Unlock()
		return models.SalesRecord{}, models.Invalid("date", "is required")
	}
	valid := make([]models.Customer, 0, len(f.items))
	for _, item := range f.items {
		if strings.TrimSpace(item.Name) == "" || item.Price <= 0 {
			continue
		}
		item.Name = strings.TrimSpace(item.Name)
		valid = append(valid, item)
	}
	if len(valid) == 0 {
		f.mu.Unlock()
		return models.SalesRecord{}, models.Invalid("customers", "add at least one customer with a name and a price")
	}
	rec := models.NewSalesRecord(f.date, valid, f.opts.now())
	f.submitting = true
	f.mu.Unlock()

	id, err := f.sink.AppendSales(ctx, rec)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitting = false
	if err != nil {
		f.opts.logger.Warn("sales submission failed", zap.String("date", rec.Date), zap.Error(err))
		return models.SalesRecord{}, fmt.Errorf("submit sales: %w", err)
	}
	rec.ID = id
	f.reset()
	return rec, nil
}
