package models

import "time"

// Summary holds the three derived totals shown on every dashboard.
type Summary struct {
	TotalSales    float64 `json:"totalSales"`
	TotalExpenses float64 `json:"totalExpenses"`
	NetProfit     float64 `json:"netProfit"`
}

// DailyReport represents the closed-out figures of one business day.
type DailyReport struct {
	Date            string    `bson:"date" json:"date"`
	TotalSales      float64   `bson:"total_sales" json:"total_sales"`
	TotalExpenses   float64   `bson:"total_expenses" json:"total_expenses"`
	NetProfit       float64   `bson:"net_profit" json:"net_profit"`
	SalesCount      int       `bson:"sales_count" json:"sales_count"`
	ExpenseCount    int       `bson:"expense_count" json:"expense_count"`
	CustomersServed int       `bson:"customers_served" json:"customers_served"`
	CreatedAt       time.Time `bson:"created_at" json:"created_at"`
}
