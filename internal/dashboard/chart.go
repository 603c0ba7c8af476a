package dashboard

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	lineWidth, lineHeight = 960, 360
	barWidth, barHeight   = 460, 300
)

// Charts holds the rendered SVG documents of a view model, keyed by panel id.
// Empty data yields an empty string so the page can show a placeholder.
type Charts struct {
	Daily  string
	Panels map[string]string
}

// RenderCharts draws every chart of vm as SVG.
func RenderCharts(vm ViewModel) (Charts, error) {
	out := Charts{Panels: make(map[string]string, 5)}

	daily, err := DailySVG(vm.Daily)
	if err != nil {
		return Charts{}, fmt.Errorf("daily orders chart: %w", err)
	}
	out.Daily = daily

	for _, p := range vm.Panels() {
		svg, err := BarSVG(p)
		if err != nil {
			return Charts{}, fmt.Errorf("%s chart: %w", p.ID, err)
		}
		out.Panels[p.ID] = svg
	}
	return out, nil
}

// DailySVG draws the orders-per-day line with a dot on each day.
func DailySVG(points []Point) (string, error) {
	if len(points) == 0 {
		return "", nil
	}

	xs := make([]time.Time, len(points))
	ys := make([]float64, len(points))
	maxY := 0.0
	for i, p := range points {
		xs[i] = p.Day.Time
		ys[i] = float64(p.Count)
		if ys[i] > maxY {
			maxY = ys[i]
		}
	}

	color := hexColor(LineColor)
	ch := chart.Chart{
		Width:      lineWidth,
		Height:     lineHeight,
		Background: chart.Style{Padding: chart.Box{Top: 20, Left: 20, Right: 20, Bottom: 10}},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
			Range:          dayRange(xs),
		},
		YAxis: chart.YAxis{
			Range:          &chart.ContinuousRange{Min: 0, Max: maxY + 1},
			ValueFormatter: intFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "orders",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: color,
					StrokeWidth: 2,
					DotColor:    color,
					DotWidth:    3,
				},
			},
		},
	}
	return renderSVG(ch.Render)
}

// BarSVG draws a ranked panel as vertical bars.
func BarSVG(p Panel) (string, error) {
	if p.Empty() {
		return "", nil
	}

	bars := make([]chart.Value, len(p.Bars))
	maxY := 0.0
	for i, b := range p.Bars {
		c := hexColor(b.Color)
		bars[i] = chart.Value{
			Label: b.Label,
			Value: float64(b.Value),
			Style: chart.Style{FillColor: c, StrokeColor: c, StrokeWidth: 1},
		}
		if float64(b.Value) > maxY {
			maxY = float64(b.Value)
		}
	}

	bc := chart.BarChart{
		Title:      p.Title,
		Width:      barWidth,
		Height:     barHeight,
		BarWidth:   48,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10}},
		YAxis: chart.YAxis{
			Range:          &chart.ContinuousRange{Min: 0, Max: maxY},
			ValueFormatter: intFormatter,
		},
		Bars: bars,
	}
	return renderSVG(bc.Render)
}

func renderSVG(render func(chart.RendererProvider, io.Writer) error) (string, error) {
	var buf bytes.Buffer
	if err := render(chart.SVG, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// dayRange pads a single-day series by half a day on both sides; go-chart
// refuses a zero-width x range.
func dayRange(xs []time.Time) *chart.ContinuousRange {
	first, last := xs[0], xs[len(xs)-1]
	if first.Equal(last) {
		first = first.Add(-12 * time.Hour)
		last = last.Add(12 * time.Hour)
	}
	return &chart.ContinuousRange{Min: chart.TimeToFloat64(first), Max: chart.TimeToFloat64(last)}
}

func intFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return strconv.Itoa(int(f))
	}
	return ""
}

func hexColor(s string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(s, "#"))
}
