// Package aggregation projects the live record mirrors into filtered subsets and totals.
package aggregation

import (
	"fmt"
	"strings"
	"time"

	"github.com/mamadbah2/stylishcuts/internal/domain/models"
)

// Kind identifies the active filter dimension.
type Kind int

const (
	KindNone Kind = iota
	KindDate
	KindMonth
)

// MonthLayout is the "YYYY-MM" prefix a month filter carries.
const MonthLayout = "2006-01"

// Filter selects records by their date field. It holds at most one dimension, so
// switching between date and month always clears the other.
type Filter struct {
	kind  Kind
	value string
}

// None matches every record.
func None() Filter { return Filter{} }

// ByDate matches records whose date equals day exactly. An empty day means no filter.
func ByDate(day string) Filter {
	if day == "" {
		return None()
	}
	return Filter{kind: KindDate, value: day}
}

// ByMonth matches records whose date starts with month ("2025-03"). An empty month means no filter.
func ByMonth(month string) Filter {
	if month == "" {
		return None()
	}
	return Filter{kind: KindMonth, value: month}
}

// Kind reports which dimension is active.
func (f Filter) Kind() Kind { return f.kind }

// Date returns the exact-date value, or "" when the filter is not by date.
func (f Filter) Date() string {
	if f.kind != KindDate {
		return ""
	}
	return f.value
}

// Month returns the month prefix, or "" when the filter is not by month.
func (f Filter) Month() string {
	if f.kind != KindMonth {
		return ""
	}
	return f.value
}

// Active reports whether any dimension is set.
func (f Filter) Active() bool { return f.kind != KindNone }

// Matches applies the filter to a record date.
func (f Filter) Matches(date string) bool {
	switch f.kind {
	case KindDate:
		return date == f.value
	case KindMonth:
		return strings.HasPrefix(date, f.value)
	default:
		return true
	}
}

// Describe is the human label printed on reports and dashboards.
func (f Filter) Describe() string {
	switch f.kind {
	case KindDate:
		if d, err := time.Parse(models.DateLayout, f.value); err == nil {
			return "Date: " + d.Format("January 2, 2006")
		}
		return "Date: " + f.value
	case KindMonth:
		if m, err := time.Parse(MonthLayout, f.value); err == nil {
			return "Month: " + m.Format("January 2006")
		}
		return "Month: " + f.value
	default:
		return "All Time"
	}
}

// String is a compact form for logs.
func (f Filter) String() string {
	switch f.kind {
	case KindDate:
		return fmt.Sprintf("date=%s", f.value)
	case KindMonth:
		return fmt.Sprintf("month=%s", f.value)
	default:
		return "none"
	}
}

// FromQuery builds a filter from request parameters. A date wins over a month when both are sent.
func FromQuery(date, month string) Filter {
	if date != "" {
		return ByDate(date)
	}
	return ByMonth(month)
}
