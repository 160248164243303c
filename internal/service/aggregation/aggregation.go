package aggregation

import (
	"sort"

	"github.com/mamadbah2/stylishcuts/internal/domain/models"
)

// Result is a filtered view over both record sets plus its totals.
type Result struct {
	Sales    []models.SalesRecord
	Expenses []models.ExpenseRecord
	Summary  models.Summary
}

// FilterAndSummarize keeps the records matching filter, totals them and returns both
// subsets newest first. Inputs are expected in id order and are not modified.
func FilterAndSummarize(sales []models.SalesRecord, expenses []models.ExpenseRecord, filter Filter) Result {
	res := Result{
		Sales:    make([]models.SalesRecord, 0, len(sales)),
		Expenses: make([]models.ExpenseRecord, 0, len(expenses)),
	}

	// Totals accumulate in input order; sorting happens afterwards.
	for _, s := range sales {
		if !filter.Matches(s.Date) {
			continue
		}
		res.Sales = append(res.Sales, s)
		res.Summary.TotalSales += s.TotalSales
	}
	for _, e := range expenses {
		if !filter.Matches(e.Date) {
			continue
		}
		res.Expenses = append(res.Expenses, e)
		res.Summary.TotalExpenses += e.Amount
	}
	res.Summary.NetProfit = res.Summary.TotalSales - res.Summary.TotalExpenses

	SortSales(res.Sales)
	SortExpenses(res.Expenses)
	return res
}

// SortSales orders records by timestamp, newest first; ties keep their current order.
func SortSales(recs []models.SalesRecord) {
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Timestamp > recs[j].Timestamp })
}

// SortExpenses orders records by timestamp, newest first; ties keep their current order.
func SortExpenses(recs []models.ExpenseRecord) {
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Timestamp > recs[j].Timestamp })
}

// CustomersServed counts line items across recs.
func CustomersServed(recs []models.SalesRecord) int {
	n := 0
	for _, r := range recs {
		n += len(r.Customers)
	}
	return n
}
