package sheets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mamadbah2/stylishcuts/internal/domain/models"
)

func TestReportRow(t *testing.T) {
	row := ReportRow(models.DailyReport{
		Date:            "2025-03-14",
		TotalSales:      80,
		TotalExpenses:   12.5,
		NetProfit:       67.5,
		SalesCount:      2,
		ExpenseCount:    1,
		CustomersServed: 3,
		CreatedAt:       time.Date(2025, 3, 14, 21, 0, 0, 0, time.UTC),
	})
	assert.Equal(t, []interface{}{"2025-03-14", "80.00", "12.50", "67.50", 2, 1, 3, "2025-03-14 21:00:00"}, row)
}
