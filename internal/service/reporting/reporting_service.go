package reporting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/stylishcuts/internal/domain/models"
	"github.com/mamadbah2/stylishcuts/internal/service/aggregation"
	"github.com/mamadbah2/stylishcuts/pkg/clients/whatsapp"
)

// RecordLoader reads both collections once.
type RecordLoader interface {
	LoadSales(ctx context.Context) ([]models.SalesRecord, error)
	LoadExpenses(ctx context.Context) ([]models.ExpenseRecord, error)
}

// Sink archives a closed-out day.
type Sink interface {
	SaveDailyReport(ctx context.Context, report models.DailyReport) error
}

// Notifier tells someone about a closed-out day.
type Notifier interface {
	NotifyDailyReport(ctx context.Context, report models.DailyReport) error
}

type namedSink struct {
	name string
	sink Sink
}

// Service builds the end-of-day report and distributes it.
type Service struct {
	loader   RecordLoader
	loc      *time.Location
	logger   *zap.Logger
	sinks    []namedSink
	notifier Notifier
	now      func() time.Time
}

// NewService wires a new reporting service instance. Days are cut in loc.
func NewService(loader RecordLoader, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{loader: loader, loc: loc, logger: logger, now: time.Now}
}

// AddSink registers an archive destination.
func (s *Service) AddSink(name string, sink Sink) {
	s.sinks = append(s.sinks, namedSink{name: name, sink: sink})
}

// SetNotifier registers who hears about each close-out.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// BuildDailyReport totals the records dated on day (in the service location).
func (s *Service) BuildDailyReport(ctx context.Context, day time.Time) (models.DailyReport, error) {
	var (
		sales    []models.SalesRecord
		expenses []models.ExpenseRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sales, err = s.loader.LoadSales(gctx)
		if err != nil {
			return fmt.Errorf("load sales: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		expenses, err = s.loader.LoadExpenses(gctx)
		if err != nil {
			return fmt.Errorf("load expenses: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return models.DailyReport{}, err
	}

	date := day.In(s.loc).Format(models.DateLayout)
	res := aggregation.FilterAndSummarize(sales, expenses, aggregation.ByDate(date))
	return models.DailyReport{
		Date:            date,
		TotalSales:      res.Summary.TotalSales,
		TotalExpenses:   res.Summary.TotalExpenses,
		NetProfit:       res.Summary.NetProfit,
		SalesCount:      len(res.Sales),
		ExpenseCount:    len(res.Expenses),
		CustomersServed: aggregation.CustomersServed(res.Sales),
		CreatedAt:       s.now().UTC(),
	}, nil
}

// CloseOut builds today's report, archives it to every sink concurrently and
// notifies. A failing sink does not stop the others; all failures are returned joined.
func (s *Service) CloseOut(ctx context.Context) (models.DailyReport, error) {
	report, err := s.BuildDailyReport(ctx, s.now())
	if err != nil {
		return models.DailyReport{}, fmt.Errorf("build daily report: %w", err)
	}

	errs := make([]error, len(s.sinks))
	var g errgroup.Group
	for i, ns := range s.sinks {
		g.Go(func() error {
			if err := ns.sink.SaveDailyReport(ctx, report); err != nil {
				errs[i] = fmt.Errorf("archive to %s: %w", ns.name, err)
				s.logger.Error("daily report archive failed", zap.String("sink", ns.name), zap.Error(err))
				return nil
			}
			s.logger.Info("daily report archived", zap.String("sink", ns.name), zap.String("date", report.Date))
			return nil
		})
	}
	_ = g.Wait()

	if s.notifier != nil {
		if err := s.notifier.NotifyDailyReport(ctx, report); err != nil {
			s.logger.Error("daily report notification failed", zap.Error(err))
			errs = append(errs, fmt.Errorf("notify: %w", err))
		}
	}

	return report, errors.Join(errs...)
}

// FormatDailyReport renders the close-out message text.
func FormatDailyReport(shop string, report models.DailyReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s daily close-out (%s)\n", shop, report.Date)
	fmt.Fprintf(&b, "Sales: %s across %d record(s), %d customer(s)\n",
		models.FormatMoney(report.TotalSales), report.SalesCount, report.CustomersServed)
	fmt.Fprintf(&b, "Expenses: %s across %d record(s)\n", models.FormatMoney(report.TotalExpenses), report.ExpenseCount)
	fmt.Fprintf(&b, "Net profit: %s", models.FormatMoney(report.NetProfit))
	return b.String()
}

// WhatsAppNotifier sends the close-out to the shop owner.
type WhatsAppNotifier struct {
	client whatsapp.Client
	to     string
	shop   string
}

// NewWhatsAppNotifier builds a notifier that messages to.
func NewWhatsAppNotifier(client whatsapp.Client, to, shop string) *WhatsAppNotifier {
	return &WhatsAppNotifier{client: client, to: to, shop: shop}
}

// NotifyDailyReport implements Notifier.
func (n *WhatsAppNotifier) NotifyDailyReport(ctx context.Context, report models.DailyReport) error {
	_, err := n.client.SendTextMessage(ctx, whatsapp.SendTextMessageRequest{
		To:   n.to,
		Body: FormatDailyReport(n.shop, report),
	})
	return err
}
