package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the calendar date format stored on every record.
const DateLayout = "2006-01-02"

// Collection names the record-type namespace inside the store.
type Collection string

const (
	CollectionSales    Collection = "sales"
	CollectionExpenses Collection = "expenses"
)

// Collections lists every namespace the application writes to.
var Collections = []Collection{CollectionSales, CollectionExpenses}

// Valid reports whether c is a known namespace.
func (c Collection) Valid() bool {
	return c == CollectionSales || c == CollectionExpenses
}

// ParseCollection converts a path segment into a Collection.
func ParseCollection(value string) (Collection, error) {
	c := Collection(value)
	if !c.Valid() {
		return "", fmt.Errorf("unknown collection %q", value)
	}
	return c, nil
}

// RecordRef identifies one persisted record.
type RecordRef struct {
	Collection Collection
	ID         string
}

// Document is the wire shape of a record: a flat key-value map stored per id.
type Document map[string]any

// Customer is a single service line inside a sales record.
type Customer struct {
	Name    string  `json:"name" bson:"name"`
	Service string  `json:"service" bson:"service"`
	Price   float64 `json:"price" bson:"price"`
}

// SalesRecord captures one day's sales entry with its customer breakdown.
type SalesRecord struct {
	ID         string     `json:"id" bson:"-"`
	Date       string     `json:"date" bson:"date"`
	TotalSales float64    `json:"totalSales" bson:"totalSales"`
	Customers  []Customer `json:"customers" bson:"customers"`
	Timestamp  int64      `json:"timestamp" bson:"timestamp"`
}

// ExpenseRecord captures a single operating expense.
type ExpenseRecord struct {
	ID        string  `json:"id" bson:"-"`
	Date      string  `json:"date" bson:"date"`
	Amount    float64 `json:"amount" bson:"amount"`
	Notes     string  `json:"notes" bson:"notes"`
	Timestamp int64   `json:"timestamp" bson:"timestamp"`
}

// SumPrices adds the customer prices in entry order.
func SumPrices(customers []Customer) float64 {
	var total float64
	for _, c := range customers {
		total += c.Price
	}
	return total
}

// NewSalesRecord builds an unsaved record whose total matches its customers.
func NewSalesRecord(date string, customers []Customer, at time.Time) SalesRecord {
	items := append([]Customer(nil), customers...)
	return SalesRecord{
		Date:       date,
		TotalSales: SumPrices(items),
		Customers:  items,
		Timestamp:  at.UnixMilli(),
	}
}

// Clone returns a deep copy so scratch edits never alias the mirror.
func (r SalesRecord) Clone() SalesRecord {
	r.Customers = append([]Customer(nil), r.Customers...)
	return r
}

// Document converts the record to its wire shape. The id is the map key, not a field.
func (r SalesRecord) Document() Document {
	customers := make([]any, 0, len(r.Customers))
	for _, c := range r.Customers {
		customers = append(customers, map[string]any{
			"name":    c.Name,
			"service": c.Service,
			"price":   c.Price,
		})
	}
	return Document{
		"date":       r.Date,
		"totalSales": r.TotalSales,
		"customers":  customers,
		"timestamp":  r.Timestamp,
	}
}

// Document converts the expense to its wire shape.
func (r ExpenseRecord) Document() Document {
	return Document{
		"date":      r.Date,
		"amount":    r.Amount,
		"notes":     r.Notes,
		"timestamp": r.Timestamp,
	}
}

// DecodeSales rebuilds a sales record from a stored document.
func DecodeSales(id string, doc Document) (SalesRecord, error) {
	var r SalesRecord
	if err := decodeDocument(doc, &r); err != nil {
		return SalesRecord{}, fmt.Errorf("decode sales %s: %w", id, err)
	}
	r.ID = id
	return r, nil
}

// DecodeExpense rebuilds an expense record from a stored document.
func DecodeExpense(id string, doc Document) (ExpenseRecord, error) {
	var r ExpenseRecord
	if err := decodeDocument(doc, &r); err != nil {
		return ExpenseRecord{}, fmt.Errorf("decode expense %s: %w", id, err)
	}
	r.ID = id
	return r, nil
}

// Backends hand back loosely typed values (int32 from bson, json.Number, nested
// maps), so documents go through JSON once to land on the typed struct.
func decodeDocument(doc Document, out any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
