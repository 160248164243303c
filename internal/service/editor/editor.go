// Package editor implements the record browser with inline editing and deletion.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mamadbah2/stylishcuts/internal/domain/models"
	"github.com/mamadbah2/stylishcuts/internal/service/aggregation"
	"github.com/mamadbah2/stylishcuts/internal/service/confirm"
)

var (
	// ErrNoSession is returned by edit calls when nothing (or another record type) is open.
	ErrNoSession = errors.New("no matching record is being edited")
	// ErrNoSuchCustomer is returned for an out-of-range customer position.
	ErrNoSuchCustomer = errors.New("no such customer")
)

// Store is the write side the editor needs.
type Store interface {
	UpdateFields(ctx context.Context, ref models.RecordRef, fields models.Document) error
	DeleteOne(ctx context.Context, ref models.RecordRef) error
}

// Session is the scratch copy of the record being edited.
type Session struct {
	Ref     models.RecordRef
	Sales   models.SalesRecord
	Expense models.ExpenseRecord

	priceChanged bool
}

// Editor lists records and, with the admin capability, edits and deletes them.
// At most one record is open for editing at a time.
type Editor struct {
	store  Store
	admin  bool
	logger *zap.Logger

	mu      sync.Mutex
	session *Session
}

// New returns an editor. Without admin every mutating call fails with models.ErrNotPermitted.
func New(store Store, admin bool, logger *zap.Logger) *Editor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Editor{store: store, admin: admin, logger: logger}
}

// Admin reports whether edit and delete actions are available.
func (e *Editor) Admin() bool { return e.admin }

// Browse filters both sets to one exact date (empty means all) and sorts them newest first.
func (e *Editor) Browse(sales []models.SalesRecord, expenses []models.ExpenseRecord, date string) ([]models.SalesRecord, []models.ExpenseRecord) {
	res := aggregation.FilterAndSummarize(sales, expenses, aggregation.ByDate(date))
	return res.Sales, res.Expenses
}

// BeginSales opens rec for editing, replacing any open session.
func (e *Editor) BeginSales(rec models.SalesRecord) error {
	if !e.admin {
		return models.ErrNotPermitted
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session = &Session{
		Ref:   models.RecordRef{Collection: models.CollectionSales, ID: rec.ID},
		Sales: rec.Clone(),
	}
	return nil
}

// BeginExpense opens rec for editing, replacing any open session.
func (e *Editor) BeginExpense(rec models.ExpenseRecord) error {
	if !e.admin {
		return models.ErrNotPermitted
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session = &Session{
		Ref:     models.RecordRef{Collection: models.CollectionExpenses, ID: rec.ID},
		Expense: rec,
	}
	return nil
}

// Current returns a copy of the open session.
func (e *Editor) Current() (Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return Session{}, false
	}
	s := *e.session
	s.Sales = s.Sales.Clone()
	return s, true
}

// Editing reports whether ref is the open record.
func (e *Editor) Editing(ref models.RecordRef) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session != nil && e.session.Ref == ref
}

// SetDate changes the scratch date of the open record.
func (e *Editor) SetDate(date string) error {
	return e.edit("", func(s *Session) error {
		if s.Ref.Collection == models.CollectionSales {
			s.Sales.Date = date
		} else {
			s.Expense.Date = date
		}
		return nil
	})
}

// SetCustomer changes one line of the open sales record. A price change
// recomputes the scratch total immediately.
func (e *Editor) SetCustomer(i int, c models.Customer) error {
	return e.edit(models.CollectionSales, func(s *Session) error {
		if i < 0 || i >= len(s.Sales.Customers) {
			return fmt.Errorf("customer %d: %w", i, ErrNoSuchCustomer)
		}
		if s.Sales.Customers[i].Price != c.Price {
			s.priceChanged = true
		}
		s.Sales.Customers[i] = c
		if s.priceChanged {
			s.Sales.TotalSales = models.SumPrices(s.Sales.Customers)
		}
		return nil
	})
}

// SetAmount changes the scratch amount of the open expense.
func (e *Editor) SetAmount(amount float64) error {
	return e.edit(models.CollectionExpenses, func(s *Session) error {
		s.Expense.Amount = amount
		return nil
	})
}

// SetNotes changes the scratch note of the open expense.
func (e *Editor) SetNotes(notes string) error {
	return e.edit(models.CollectionExpenses, func(s *Session) error {
		s.Expense.Notes = notes
		return nil
	})
}

func (e *Editor) edit(want models.Collection, fn func(*Session) error) error {
	if !e.admin {
		return models.ErrNotPermitted
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil || (want != "" && e.session.Ref.Collection != want) {
		return ErrNoSession
	}
	return fn(e.session)
}

// Save writes the scratch copy and closes the session. On failure the session stays open.
func (e *Editor) Save(ctx context.Context) error {
	if !e.admin {
		return models.ErrNotPermitted
	}
	e.mu.Lock()
	if e.session == nil {
		e.mu.Unlock()
		return ErrNoSession
	}
	s := *e.session
	e.mu.Unlock()

	var fields models.Document
	switch s.Ref.Collection {
	case models.CollectionSales:
		rec := s.Sales.Clone()
		if s.priceChanged {
			rec.TotalSales = models.SumPrices(rec.Customers)
		}
		doc := rec.Document()
		fields = models.Document{
			"date":       doc["date"],
			"customers":  doc["customers"],
			"totalSales": doc["totalSales"],
		}
	default:
		fields = models.Document{
			"date":   s.Expense.Date,
			"amount": s.Expense.Amount,
			"notes":  s.Expense.Notes,
		}
	}

	if err := e.store.UpdateFields(ctx, s.Ref, fields); err != nil {
		e.logger.Warn("record save failed", zap.String("id", s.Ref.ID), zap.Error(err))
		return fmt.Errorf("save %s %s: %w", s.Ref.Collection, s.Ref.ID, err)
	}

	e.mu.Lock()
	if e.session != nil && e.session.Ref == s.Ref {
		e.session = nil
	}
	e.mu.Unlock()
	return nil
}

// Cancel discards the scratch copy without touching the store.
func (e *Editor) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session = nil
}

// Delete removes ref after the user confirms. Declining returns (false, nil).
func (e *Editor) Delete(ctx context.Context, ref models.RecordRef, c confirm.Confirmer) (bool, error) {
	if !e.admin {
		return false, models.ErrNotPermitted
	}
	if !c.Confirm(confirm.DeleteRecordPrompt) {
		return false, nil
	}
	if err := e.store.DeleteOne(ctx, ref); err != nil {
		return false, fmt.Errorf("delete %s %s: %w", ref.Collection, ref.ID, err)
	}

	e.mu.Lock()
	if e.session != nil && e.session.Ref == ref {
		e.session = nil
	}
	e.mu.Unlock()
	return true, nil
}
