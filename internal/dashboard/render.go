// Package dashboard turns a computed snapshot into what the page shows.
//
// Render is a pure function of its inputs; the HTTP layer calls it once per
// filter change and never keeps UI state between requests.
package dashboard

import (
	"ecomdash/internal/analytics"
	"ecomdash/internal/core"
)

const (
	Title = "E-Commerce Public Dashboard"

	HighlightColor = "#72BCD4"
	MutedColor     = "#D3D3D3"
	LineColor      = "#90CAF9"

	DefaultTopN = 5
)

// Point is one day of the orders line.
type Point struct {
	Day   core.Date `json:"day"`
	Count int       `json:"count"`
}

// Bar is one bar of a ranked panel. The leading bar is highlighted.
type Bar struct {
	Label     string `json:"label"`
	Value     int    `json:"value"`
	Color     string `json:"color"`
	Highlight bool   `json:"highlight"`
}

// Panel is a titled bar chart.
type Panel struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Unit  string `json:"unit"`
	Bars  []Bar  `json:"bars"`
}

// Empty reports whether the panel has nothing to draw.
func (p Panel) Empty() bool { return len(p.Bars) == 0 }

// ViewModel is everything the dashboard template needs for one range.
type ViewModel struct {
	Title       string         `json:"title"`
	Range       core.DateRange `json:"range"`
	Bounds      core.DateRange `json:"bounds"`
	Rows        int            `json:"rows"`
	TotalOrders int            `json:"total_orders"`
	Daily       []Point        `json:"daily_orders"`

	City     Panel `json:"city"`
	State    Panel `json:"state"`
	Product  Panel `json:"product"`
	Category Panel `json:"category"`
	Payment  Panel `json:"payment_type"`
}

// Panels returns the bar panels in page order.
func (vm ViewModel) Panels() []Panel {
	return []Panel{vm.City, vm.State, vm.Product, vm.Category, vm.Payment}
}

// Render builds the view model for a snapshot. City, state, product and
// category are cut to the topN largest groups; payment types are all shown.
// topN <= 0 falls back to DefaultTopN.
func Render(s core.Snapshot, topN int) ViewModel {
	if topN <= 0 {
		topN = DefaultTopN
	}

	daily := make([]Point, len(s.Daily))
	for i, d := range s.Daily {
		daily[i] = Point{Day: d.Day, Count: d.Count}
	}

	return ViewModel{
		Title:       Title,
		Range:       s.Range,
		Bounds:      s.Bounds,
		Rows:        s.Rows,
		TotalOrders: s.TotalOrders,
		Daily:       daily,
		City:        panel("city", "City", "customers", analytics.TopN(s.ByCity, topN)),
		State:       panel("state", "State", "customers", analytics.TopN(s.ByState, topN)),
		Product:     panel("product", "Product", "orders", analytics.TopN(s.ByProduct, topN)),
		Category:    panel("category", "Product Category", "orders", analytics.TopN(s.ByCategory, topN)),
		Payment:     panel("payment", "Payment Type", "orders", analytics.TopN(s.ByPayment, 0)),
	}
}

func panel(id, title, unit string, agg core.Aggregate) Panel {
	bars := make([]Bar, len(agg))
	for i, kc := range agg {
		bars[i] = Bar{Label: kc.Key, Value: kc.Count, Color: MutedColor}
	}
	if len(bars) > 0 {
		bars[0].Color = HighlightColor
		bars[0].Highlight = true
	}
	return Panel{ID: id, Title: title, Unit: unit, Bars: bars}
}
