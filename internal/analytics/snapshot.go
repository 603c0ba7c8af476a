package analytics

import (
	"ecomdash/internal/core"
	"ecomdash/internal/dataset"
)

// Compute filters the table to r and runs all six aggregations over the
// resulting view. It fails only when r is an invalid range.
func Compute(t *dataset.Table, r core.DateRange) (core.Snapshot, error) {
	v, err := t.Filter(r)
	if err != nil {
		return core.Snapshot{}, err
	}
	return Summarize(v, t.Bounds()), nil
}

// Summarize runs the aggregations over an already filtered view.
func Summarize(v dataset.View, bounds core.DateRange) core.Snapshot {
	daily := DailyOrders(v)
	total := 0
	for _, d := range daily {
		total += d.Count
	}
	return core.Snapshot{
		Range:       v.Range(),
		Bounds:      bounds,
		Rows:        v.Len(),
		TotalOrders: total,
		Daily:       daily,
		ByCity:      ByCity(v),
		ByState:     ByState(v),
		ByProduct:   ByProduct(v),
		ByCategory:  ByCategory(v),
		ByPayment:   ByPaymentType(v),
	}
}

// Truncate cuts the city, state, product and category aggregates of s to
// their n largest groups. Payment types and the daily series are kept
// whole. n <= 0 returns s unchanged.
func Truncate(s core.Snapshot, n int) core.Snapshot {
	if n <= 0 {
		return s
	}
	s.ByCity = TopN(s.ByCity, n)
	s.ByState = TopN(s.ByState, n)
	s.ByProduct = TopN(s.ByProduct, n)
	s.ByCategory = TopN(s.ByCategory, n)
	return s
}
