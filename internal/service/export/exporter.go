// Package export renders the filtered aggregation as a printable report.
package export

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/stylishcuts/internal/domain/models"
	"github.com/mamadbah2/stylishcuts/internal/service/aggregation"
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

var reportTemplate = template.Must(
	template.New("report.html.tmpl").
		Funcs(template.FuncMap{"money": models.FormatMoney}).
		ParseFS(templateFS, "templates/report.html.tmpl"),
)

// ReportTitle is the document title of every export.
const ReportTitle = "Stylish Cuts Report"

// Report is everything printed on an export.
type Report struct {
	Title       string
	Shop        string
	FilterLabel string
	Summary     models.Summary
	Sales       []models.SalesRecord
	Expenses    []models.ExpenseRecord
	GeneratedAt time.Time
	AutoPrint   bool
}

// Document is a rendered report ready for the host's print subsystem.
type Document struct {
	Title       string
	ContentType string
	Body        []byte
}

// Printer hands a document to whatever can show or print it.
type Printer interface {
	RenderPrintable(ctx context.Context, doc Document) error
}

// PrinterFunc adapts a function to Printer.
type PrinterFunc func(ctx context.Context, doc Document) error

// RenderPrintable calls f.
func (f PrinterFunc) RenderPrintable(ctx context.Context, doc Document) error { return f(ctx, doc) }

// WriterPrinter writes the document body to W, typically an HTTP response.
type WriterPrinter struct {
	W io.Writer
}

// RenderPrintable implements Printer. A nil writer has no surface to render on.
func (p WriterPrinter) RenderPrintable(_ context.Context, doc Document) error {
	if p.W == nil {
		return models.ErrNoRenderSurface
	}
	if _, err := p.W.Write(doc.Body); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Exporter builds and renders reports.
type Exporter struct {
	shop   string
	now    func() time.Time
	logger *zap.Logger
}

// New returns an exporter that prints shop in the report header.
func New(shop string, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{shop: shop, now: time.Now, logger: logger}
}

// Build assembles the report for res under filter.
func (e *Exporter) Build(res aggregation.Result, filter aggregation.Filter) Report {
	sales := append([]models.SalesRecord(nil), res.Sales...)
	expenses := append([]models.ExpenseRecord(nil), res.Expenses...)
	aggregation.SortSales(sales)
	aggregation.SortExpenses(expenses)
	return Report{
		Title:       ReportTitle,
		Shop:        e.shop,
		FilterLabel: filter.Describe(),
		Summary:     res.Summary,
		Sales:       sales,
		Expenses:    expenses,
		GeneratedAt: e.now(),
		AutoPrint:   true,
	}
}

// Render produces the HTML document for report.
func (e *Exporter) Render(report Report) (Document, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, report); err != nil {
		return Document{}, fmt.Errorf("render report: %w", err)
	}
	return Document{Title: report.Title, ContentType: "text/html; charset=utf-8", Body: buf.Bytes()}, nil
}

// Export renders the current view and hands it to printer. Any failure is logged
// and swallowed; the return value reports whether the printer accepted the document.
func (e *Exporter) Export(ctx context.Context, res aggregation.Result, filter aggregation.Filter, printer Printer) bool {
	doc, err := e.Render(e.Build(res, filter))
	if err != nil {
		e.logger.Error("report rendering failed", zap.Error(err))
		return false
	}
	if printer == nil {
		e.logger.Warn("report export skipped", zap.Error(models.ErrNoRenderSurface))
		return false
	}
	if err := printer.RenderPrintable(ctx, doc); err != nil {
		e.logger.Warn("report export skipped", zap.String("filter", filter.String()), zap.Error(err))
		return false
	}
	e.logger.Info("report exported",
		zap.String("filter", filter.String()),
		zap.Int("sales", len(res.Sales)),
		zap.Int("expenses", len(res.Expenses)))
	return true
}
