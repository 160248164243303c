package records

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/stylishcuts/internal/domain/models"
)

// Adapter translates between typed sales/expense records and a Backend.
type Adapter struct {
	backend Backend
	logger  *zap.Logger
}

// NewAdapter wraps backend with record encoding and decoding.
func NewAdapter(backend Backend, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{backend: backend, logger: logger}
}

// SubscribeSales streams decoded sales records in id order.
func (a *Adapter) SubscribeSales(ctx context.Context, fn func([]models.SalesRecord)) (*Subscription, error) {
	return a.backend.Subscribe(ctx, models.CollectionSales, func(snap Snapshot) {
		fn(a.decodeSales(snap))
	})
}

// SubscribeExpenses streams decoded expense records in id order.
func (a *Adapter) SubscribeExpenses(ctx context.Context, fn func([]models.ExpenseRecord)) (*Subscription, error) {
	return a.backend.Subscribe(ctx, models.CollectionExpenses, func(snap Snapshot) {
		fn(a.decodeExpenses(snap))
	})
}

// AppendSales persists a new sales record and returns its id.
func (a *Adapter) AppendSales(ctx context.Context, rec models.SalesRecord) (string, error) {
	id, err := a.backend.Append(ctx, models.CollectionSales, rec.Document())
	if err != nil {
		return "", err
	}
	a.logger.Info("sales record added",
		zap.String("id", id),
		zap.String("date", rec.Date),
		zap.Int("customers", len(rec.Customers)),
		zap.Float64("total_sales", rec.TotalSales))
	return id, nil
}

// AppendExpense persists a new expense record and returns its id.
func (a *Adapter) AppendExpense(ctx context.Context, rec models.ExpenseRecord) (string, error) {
	id, err := a.backend.Append(ctx, models.CollectionExpenses, rec.Document())
	if err != nil {
		return "", err
	}
	a.logger.Info("expense record added",
		zap.String("id", id),
		zap.String("date", rec.Date),
		zap.Float64("amount", rec.Amount))
	return id, nil
}

// UpdateFields merges fields into the referenced record.
func (a *Adapter) UpdateFields(ctx context.Context, ref models.RecordRef, fields models.Document) error {
	if err := a.backend.UpdateFields(ctx, ref.Collection, ref.ID, fields); err != nil {
		return err
	}
	a.logger.Info("record updated", zap.String("collection", string(ref.Collection)), zap.String("id", ref.ID))
	return nil
}

// DeleteOne removes the referenced record.
func (a *Adapter) DeleteOne(ctx context.Context, ref models.RecordRef) error {
	if err := a.backend.DeleteOne(ctx, ref.Collection, ref.ID); err != nil {
		return err
	}
	a.logger.Info("record deleted", zap.String("collection", string(ref.Collection)), zap.String("id", ref.ID))
	return nil
}

// DeleteAll removes every record of c.
func (a *Adapter) DeleteAll(ctx context.Context, c models.Collection) error {
	if err := a.backend.DeleteAll(ctx, c); err != nil {
		return err
	}
	a.logger.Warn("collection cleared", zap.String("collection", string(c)))
	return nil
}

// LoadSales reads the current sales collection once.
func (a *Adapter) LoadSales(ctx context.Context) ([]models.SalesRecord, error) {
	snap, err := a.loadOnce(ctx, models.CollectionSales)
	if err != nil {
		return nil, err
	}
	return a.decodeSales(snap), nil
}

// LoadExpenses reads the current expense collection once.
func (a *Adapter) LoadExpenses(ctx context.Context) ([]models.ExpenseRecord, error) {
	snap, err := a.loadOnce(ctx, models.CollectionExpenses)
	if err != nil {
		return nil, err
	}
	return a.decodeExpenses(snap), nil
}

func (a *Adapter) loadOnce(ctx context.Context, c models.Collection) (Snapshot, error) {
	first := make(chan Snapshot, 1)
	sub, err := a.backend.Subscribe(ctx, c, func(snap Snapshot) {
		select {
		case first <- snap:
		default:
		}
	})
	if err != nil {
		return nil, err
	}
	defer sub.Unsubscribe()

	select {
	case snap := <-first:
		return snap, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("load %s: %w", c, ctx.Err())
	}
}

func (a *Adapter) decodeSales(snap Snapshot) []models.SalesRecord {
	out := make([]models.SalesRecord, 0, len(snap))
	for _, id := range snap.SortedIDs() {
		rec, err := models.DecodeSales(id, snap[id])
		if err != nil {
			a.logger.Warn("skip undecodable sales record", zap.String("id", id), zap.Error(err))
			continue
		}
		out = append(out, rec)
	}
	return out
}

func (a *Adapter) decodeExpenses(snap Snapshot) []models.ExpenseRecord {
	out := make([]models.ExpenseRecord, 0, len(snap))
	for _, id := range snap.SortedIDs() {
		rec, err := models.DecodeExpense(id, snap[id])
		if err != nil {
			a.logger.Warn("skip undecodable expense record", zap.String("id", id), zap.Error(err))
			continue
		}
		out = append(out, rec)
	}
	return out
}
