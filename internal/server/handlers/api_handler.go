package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/stylishcuts/internal/domain/models"
	"github.com/mamadbah2/stylishcuts/internal/service/aggregation"
	"github.com/mamadbah2/stylishcuts/internal/service/dashboard"
)

// SummaryResponse is the body of GET /api/summary.
type SummaryResponse struct {
	Filter          string  `json:"filter"`
	TotalSales      float64 `json:"totalSales"`
	TotalExpenses   float64 `json:"totalExpenses"`
	NetProfit       float64 `json:"netProfit"`
	SalesCount      int     `json:"salesCount"`
	ExpenseCount    int     `json:"expenseCount"`
	CustomersServed int     `json:"customersServed"`
}

// RecordsResponse is the body of GET /api/records.
type RecordsResponse struct {
	Filter   string                 `json:"filter"`
	Sales    []models.SalesRecord   `json:"sales,omitempty"`
	Expenses []models.ExpenseRecord `json:"expenses,omitempty"`
}

func (h *Handler) load(ctx context.Context, filter aggregation.Filter) (aggregation.Result, error) {
	var (
		sales    []models.SalesRecord
		expenses []models.ExpenseRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sales, err = h.loader.LoadSales(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = h.loader.LoadExpenses(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return aggregation.Result{}, fmt.Errorf("load records: %w", err)
	}
	return aggregation.FilterAndSummarize(sales, expenses, filter), nil
}

func (h *Handler) apiError(c *gin.Context, err error) {
	status := statusFor(err)
	h.logger.Error("api request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.JSON(status, gin.H{"error": http.StatusText(status)})
}

// Summary returns the totals, optionally filtered by ?date= or ?month=.
func (h *Handler) Summary(c *gin.Context) {
	filter := aggregation.FromQuery(c.Query("date"), c.Query("month"))
	res, err := h.load(c.Request.Context(), filter)
	if err != nil {
		h.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, SummaryResponse{
		Filter:          filter.Describe(),
		TotalSales:      res.Summary.TotalSales,
		TotalExpenses:   res.Summary.TotalExpenses,
		NetProfit:       res.Summary.NetProfit,
		SalesCount:      len(res.Sales),
		ExpenseCount:    len(res.Expenses),
		CustomersServed: aggregation.CustomersServed(res.Sales),
	})
}

// Records lists records newest first, optionally filtered by ?date= or ?month=
// and restricted to one ?collection=.
func (h *Handler) Records(c *gin.Context) {
	var only models.Collection
	if raw := c.Query("collection"); raw != "" {
		coll, err := models.ParseCollection(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		only = coll
	}

	filter := aggregation.FromQuery(c.Query("date"), c.Query("month"))
	res, err := h.load(c.Request.Context(), filter)
	if err != nil {
		h.apiError(c, err)
		return
	}

	resp := RecordsResponse{Filter: filter.Describe()}
	if only != models.CollectionExpenses {
		resp.Sales = nonNil(res.Sales)
	}
	if only != models.CollectionSales {
		resp.Expenses = nonNil(res.Expenses)
	}
	c.JSON(http.StatusOK, resp)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

type liveFigures map[string]any

func figures(s models.Summary) liveFigures {
	return liveFigures{
		"total_sales":    models.FormatMoney(s.TotalSales),
		"total_expenses": models.FormatMoney(s.TotalExpenses),
		"net_profit":     models.FormatMoney(s.NetProfit),
	}
}

func livePayload(d *dashboard.Dashboard, v dashboard.View) gin.H {
	sales, expenses := d.Records()
	filtered := figures(v.Summary)
	filtered["sales_count"] = len(v.Sales)
	filtered["expense_count"] = len(v.Expenses)
	filtered["filter"] = v.Filter.Describe()
	return gin.H{
		"version":  v.Version,
		"ready":    v.Ready,
		"filtered": filtered,
		"all_time": figures(aggregation.FilterAndSummarize(sales, expenses, aggregation.None()).Summary),
	}
}

// Events streams the workspace dashboard as server-sent "summary" events.
func (h *Handler) Events(c *gin.Context) {
	ws := workspace(c)
	d, err := ws.Dashboard(c.Request.Context())
	if err != nil {
		h.apiError(c, err)
		return
	}
	views, cancel := d.Watch()
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	ctx := c.Request.Context()
	c.Stream(func(io.Writer) bool {
		select {
		case v, ok := <-views:
			if !ok {
				return false
			}
			c.SSEvent("summary", livePayload(d, v))
			return true
		case <-ctx.Done():
			return false
		}
	})
}
