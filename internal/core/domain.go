package core

import (
	"fmt"
	"strings"
	"time"
)

// Column names of the joined order dataset.
const (
	ColOrderID       = "order_id"
	ColCustomerID    = "customer_id"
	ColCustomerCity  = "customer_city"
	ColCustomerState = "customer_state"
	ColProductID     = "product_id"
	ColCategory      = "product_category_name"
	ColPaymentType   = "payment_type"
	ColPurchasedAt   = "order_purchase_timestamp"
)

// RequiredColumns lists every column the loader projects out of a source.
var RequiredColumns = []string{
	ColOrderID,
	ColCustomerID,
	ColCustomerCity,
	ColCustomerState,
	ColProductID,
	ColCategory,
	ColPaymentType,
	ColPurchasedAt,
}

type (
	// Date is a calendar day in UTC. The zero value means "unset".
	Date struct {
		time.Time
	}

	// OrderRecord is one (order, product) line item. Several records may share
	// the same OrderID.
	OrderRecord struct {
		Row           int // stable index after sorting by PurchasedAt
		OrderID       string
		CustomerID    string
		CustomerCity  string
		CustomerState string
		ProductID     string
		Category      string
		PaymentType   string
		PurchasedAt   time.Time
	}

	// DateRange is an inclusive [Start, End] interval at day granularity.
	DateRange struct {
		Start Date `json:"start"`
		End   Date `json:"end"`
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar day, keeping the wall clock of
// the timestamp's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// IsEmpty returns true if the date is unset.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// String renders the date as YYYY-MM-DD, or "" when unset.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

// Compare orders two dates: -1, 0 or +1.
func (d Date) Compare(o Date) int {
	return d.Time.Compare(o.Time)
}

// Validate checks start <= end. Unset bounds are not validated here; callers
// resolve them against a table first.
func (r DateRange) Validate() error {
	if r.Start.IsEmpty() || r.End.IsEmpty() {
		return nil
	}
	if r.Start.Compare(r.End) > 0 {
		return &InvalidRangeError{Start: r.Start, End: r.End}
	}
	return nil
}

// Contains reports whether t falls on a day within the range, both bounds inclusive.
func (r DateRange) Contains(t time.Time) bool {
	day := DateOf(t)
	return day.Compare(r.Start) >= 0 && day.Compare(r.End) <= 0
}

// Key is a stable cache key for the range.
func (r DateRange) Key() string {
	return r.Start.String() + ".." + r.End.String()
}

func (r DateRange) String() string {
	return "[" + r.Start.String() + ", " + r.End.String() + "]"
}
