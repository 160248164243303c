package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSalesRecordTotalsCustomers(t *testing.T) {
	at := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	rec := NewSalesRecord("2025-03-14", []Customer{
		{Name: "Ama", Service: "Haircut", Price: 50},
		{Name: "Kofi", Service: "Shave", Price: 25.5},
	}, at)

	assert.Equal(t, 75.5, rec.TotalSales)
	assert.Equal(t, at.UnixMilli(), rec.Timestamp)
	assert.Len(t, rec.Customers, 2)
}

func TestSalesDocumentDecodesBack(t *testing.T) {
	rec := SalesRecord{
		Date:       "2025-03-14",
		TotalSales: 80,
		Customers:  []Customer{{Name: "Ama", Service: "Haircut", Price: 50}, {Name: "Yaw", Service: "Styling", Price: 30}},
		Timestamp:  1710410400000,
	}

	got, err := DecodeSales("abc", rec.Document())
	require.NoError(t, err)

	rec.ID = "abc"
	assert.Equal(t, rec, got)
}

func TestDecodeSalesAcceptsLooseNumbers(t *testing.T) {
	doc := Document{
		"date":       "2025-03-14",
		"totalSales": int32(50),
		"customers":  []any{map[string]any{"name": "Ama", "service": "Haircut", "price": int64(50)}},
		"timestamp":  int64(1),
	}

	got, err := DecodeSales("x", doc)
	require.NoError(t, err)
	assert.Equal(t, 50.0, got.TotalSales)
	assert.Equal(t, 50.0, got.Customers[0].Price)
}

func TestDecodeExpenseRejectsWrongShape(t *testing.T) {
	_, err := DecodeExpense("x", Document{"amount": "lots"})
	require.Error(t, err)
}

func TestCloneDoesNotAliasCustomers(t *testing.T) {
	rec := SalesRecord{Customers: []Customer{{Name: "Ama", Price: 50}}}
	cp := rec.Clone()
	cp.Customers[0].Price = 75

	assert.Equal(t, 50.0, rec.Customers[0].Price)
}

func TestParseCollection(t *testing.T) {
	c, err := ParseCollection("sales")
	require.NoError(t, err)
	assert.Equal(t, CollectionSales, c)

	_, err = ParseCollection("users")
	assert.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"", 0, false},
		{"50", 50, false},
		{" 12.5 ", 12.5, false},
		{"12,75", 12.75, false},
		{"-3", 0, true},
		{"abc", 0, true},
		{"1e400", 0, true},
		{"10.125", 10.125, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "₵50.00", FormatMoney(50))
	assert.Equal(t, "₵0.30", FormatMoney(0.1+0.2))
	assert.Equal(t, "₵-12.50", FormatMoney(-12.5))
}

func TestFormatInputRoundTrips(t *testing.T) {
	for _, v := range []float64{0, 50, 10.125, 0.1 + 0.2, 1234.5678} {
		got, err := ParseAmount(FormatInput(v))
		require.NoError(t, err)
		assert.Equal(t, v, got, FormatInput(v))
	}
	assert.Equal(t, "10.125", FormatInput(10.125))
}

func TestStoreFailureKeepsNotFound(t *testing.T) {
	err := StoreFailure("update", CollectionSales, ErrRecordNotFound)
	assert.ErrorIs(t, err, ErrRecordNotFound)
	assert.NotErrorIs(t, err, ErrStoreUnavailable)

	err = StoreFailure("update", CollectionSales, errors.New("connection reset"))
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Nil(t, StoreFailure("update", CollectionSales, nil))
}
