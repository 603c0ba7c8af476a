// Package analytics derives the dashboard aggregates from a filtered view.
//
// Every function here is pure: it reads the view, allocates its result, and
// never touches the base table or performs I/O. All of them are total; an
// empty view yields an empty aggregate.
package analytics

import (
	"sort"

	"ecomdash/internal/core"
	"ecomdash/internal/dataset"
)

// DailyOrders buckets rows by calendar day of the purchase timestamp and
// counts distinct orders per day. Buckets are chronological; days without
// orders are absent.
func DailyOrders(v dataset.View) []core.DayCount {
	var (
		out  = []core.DayCount{}
		seen map[string]struct{}
		cur  core.Date
	)
	// The view is sorted by timestamp, so each day is one contiguous run.
	v.Each(func(r core.OrderRecord) {
		day := core.DateOf(r.PurchasedAt)
		if len(out) == 0 || day != cur {
			cur = day
			seen = make(map[string]struct{})
			out = append(out, core.DayCount{Day: day})
		}
		if r.OrderID == "" {
			return
		}
		if _, ok := seen[r.OrderID]; !ok {
			seen[r.OrderID] = struct{}{}
			out[len(out)-1].Count++
		}
	})
	// A day whose rows all lack an order id has nothing to count.
	kept := out[:0]
	for _, dc := range out {
		if dc.Count > 0 {
			kept = append(kept, dc)
		}
	}
	return kept
}

// ByCity counts distinct customers per customer city.
func ByCity(v dataset.View) core.Aggregate {
	return countDistinct(v, cityKey, customerID)
}

// ByState counts distinct customers per customer state.
func ByState(v dataset.View) core.Aggregate {
	return countDistinct(v, stateKey, customerID)
}

// ByProduct counts distinct orders per product id.
func ByProduct(v dataset.View) core.Aggregate {
	return countDistinct(v, productKey, orderID)
}

// ByCategory counts distinct orders per product category.
func ByCategory(v dataset.View) core.Aggregate {
	return countDistinct(v, categoryKey, orderID)
}

// ByPaymentType counts distinct orders per payment type.
func ByPaymentType(v dataset.View) core.Aggregate {
	return countDistinct(v, paymentKey, orderID)
}

// DistinctOrders counts distinct order ids in the view.
func DistinctOrders(v dataset.View) int {
	seen := make(map[string]struct{})
	v.Each(func(r core.OrderRecord) {
		if r.OrderID != "" {
			seen[r.OrderID] = struct{}{}
		}
	})
	return len(seen)
}

type field func(core.OrderRecord) string

func cityKey(r core.OrderRecord) string     { return r.CustomerCity }
func stateKey(r core.OrderRecord) string    { return r.CustomerState }
func productKey(r core.OrderRecord) string  { return r.ProductID }
func categoryKey(r core.OrderRecord) string { return r.Category }
func paymentKey(r core.OrderRecord) string  { return r.PaymentType }
func customerID(r core.OrderRecord) string  { return r.CustomerID }
func orderID(r core.OrderRecord) string     { return r.OrderID }

// countDistinct groups rows by key and counts the distinct ids within each
// group. Groups keep first-seen order. Rows with an empty key are not grouped
// and empty ids are not counted, so a group whose ids are all empty is dropped.
func countDistinct(v dataset.View, key, id field) core.Aggregate {
	index := make(map[string]int)
	sets := make([]map[string]struct{}, 0)
	keys := make([]string, 0)

	v.Each(func(r core.OrderRecord) {
		k := key(r)
		if k == "" {
			return
		}
		i, ok := index[k]
		if !ok {
			i = len(keys)
			index[k] = i
			keys = append(keys, k)
			sets = append(sets, make(map[string]struct{}))
		}
		if x := id(r); x != "" {
			sets[i][x] = struct{}{}
		}
	})

	out := make(core.Aggregate, 0, len(keys))
	for i, k := range keys {
		if n := len(sets[i]); n > 0 {
			out = append(out, core.KeyCount{Key: k, Count: n})
		}
	}
	return out
}

// TopN returns the n largest groups, descending by count. Ties keep the
// aggregate's first-seen order. n <= 0 returns every group sorted.
func TopN(a core.Aggregate, n int) core.Aggregate {
	sorted := make(core.Aggregate, len(a))
	copy(sorted, a)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Count > sorted[j].Count
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
