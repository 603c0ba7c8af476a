// Package dataset holds the immutable base table of order line items and the
// read-only views produced by filtering it.
package dataset

import (
	"sort"
	"time"

	"ecomdash/internal/core"
)

// Table is the base table: loaded once, sorted ascending by purchase
// timestamp, never mutated afterwards. A *Table is safe for concurrent use.
type Table struct {
	rows []core.OrderRecord
	min  time.Time
	max  time.Time
}

// View is a read-only window over a Table. It shares the table's backing
// storage and only hands out copies of records.
type View struct {
	rows []core.OrderRecord
	rng  core.DateRange
}

func newTable(rows []core.OrderRecord) *Table {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].PurchasedAt.Before(rows[j].PurchasedAt)
	})
	for i := range rows {
		rows[i].Row = i
	}
	t := &Table{rows: rows}
	if len(rows) > 0 {
		t.min = rows[0].PurchasedAt
		t.max = rows[len(rows)-1].PurchasedAt
	}
	return t
}

// Len returns the number of line items.
func (t *Table) Len() int { return len(t.rows) }

// MinTimestamp returns the earliest purchase timestamp of the full table.
func (t *Table) MinTimestamp() time.Time { return t.min }

// MaxTimestamp returns the latest purchase timestamp of the full table.
func (t *Table) MaxTimestamp() time.Time { return t.max }

// Bounds returns the day range spanned by the full table.
func (t *Table) Bounds() core.DateRange {
	return core.DateRange{Start: core.DateOf(t.min), End: core.DateOf(t.max)}
}

// Resolve fills unset bounds of r with the table's min and max day.
func (t *Table) Resolve(r core.DateRange) core.DateRange {
	b := t.Bounds()
	if r.Start.IsEmpty() {
		r.Start = b.Start
	}
	if r.End.IsEmpty() {
		r.End = b.End
	}
	return r
}

// All returns a view over every row.
func (t *Table) All() View {
	return View{rows: t.rows[:len(t.rows):len(t.rows)], rng: t.Bounds()}
}

// Filter returns the rows whose purchase day lies in r, both ends inclusive.
// Unset bounds default to the table bounds. A range with start after end is
// rejected with *core.InvalidRangeError; a valid range that matches nothing
// yields an empty view.
func (t *Table) Filter(r core.DateRange) (View, error) {
	r = t.Resolve(r)
	if err := r.Validate(); err != nil {
		return View{}, err
	}
	// Rows are sorted by timestamp, and day truncation is monotonic, so the
	// matching rows form one contiguous run.
	lo := sort.Search(len(t.rows), func(i int) bool {
		return core.DateOf(t.rows[i].PurchasedAt).Compare(r.Start) >= 0
	})
	hi := sort.Search(len(t.rows), func(i int) bool {
		return core.DateOf(t.rows[i].PurchasedAt).Compare(r.End) > 0
	})
	if hi < lo {
		hi = lo
	}
	return View{rows: t.rows[lo:hi:hi], rng: r}, nil
}

// Len returns the number of rows in the view.
func (v View) Len() int { return len(v.rows) }

// Range returns the resolved range the view was filtered with.
func (v View) Range() core.DateRange { return v.rng }

// Each calls fn for every row in timestamp order.
func (v View) Each(fn func(core.OrderRecord)) {
	for _, r := range v.rows {
		fn(r)
	}
}

// Records returns a copy of the rows.
func (v View) Records() []core.OrderRecord {
	out := make([]core.OrderRecord, len(v.rows))
	copy(out, v.rows)
	return out
}
