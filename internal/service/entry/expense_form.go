package entry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mamadbah2/stylishcuts/internal/domain/models"
)

// ExpenseSink persists new expense records.
type ExpenseSink interface {
	AppendExpense(ctx context.Context, rec models.ExpenseRecord) (string, error)
}

// ExpenseForm captures a single expense.
type ExpenseForm struct {
	sink ExpenseSink
	opts options

	mu         sync.Mutex
	date       string
	amount     float64
	notes      string
	submitting bool
}

// NewExpenseForm returns an empty form dated today.
func NewExpenseForm(sink ExpenseSink, opts ...Option) *ExpenseForm {
	f := &ExpenseForm{sink: sink, opts: buildOptions(opts)}
	f.reset()
	return f
}

func (f *ExpenseForm) reset() {
	f.date = f.opts.now().Format(models.DateLayout)
	f.amount = 0
	f.notes = ""
}

// Fields returns the current input.
func (f *ExpenseForm) Fields() (date string, amount float64, notes string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.date, f.amount, f.notes
}

// Set replaces every field at once.
func (f *ExpenseForm) Set(date string, amount float64, notes string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.date = strings.TrimSpace(date)
	f.amount = amount
	f.notes = notes
}

// Submitting reports whether a submission is waiting on the store.
func (f *ExpenseForm) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// Submit validates and persists the expense. On failure the input stays as entered.
func (f *ExpenseForm) Submit(ctx context.Context) (models.ExpenseRecord, error) {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return models.ExpenseRecord{}, ErrSubmitInProgress
	}
	if f.date == "" {
		f.mu.Unlock()
		return models.ExpenseRecord{}, models.Invalid("date", "is required")
	}
	if f.amount <= 0 {
		f.mu.Unlock()
		return models.ExpenseRecord{}, models.Invalid("amount", "must be greater than zero")
	}
	rec := models.ExpenseRecord{
		Date:      f.date,
		Amount:    f.amount,
		Notes:     strings.TrimSpace(f.notes),
		Timestamp: f.opts.now().UnixMilli(),
	}
	f.submitting = true
	f.mu.Unlock()

	id, err := f.sink.AppendExpense(ctx, rec)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitting = false
	if err != nil {
		f.opts.logger.Warn("expense submission failed", zap.String("date", rec.Date), zap.Error(err))
		return models.ExpenseRecord{}, fmt.Errorf("submit expense: %w", err)
	}
	rec.ID = id
	f.reset()
	return rec, nil
}
