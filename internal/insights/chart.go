package insights

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/cli2468/Vision-sub000/internal/money"
)

// RenderDailyChart draws daily and cumulative profit and returns PNG bytes.
func RenderDailyChart(s Series) ([]byte, error) {
	if len(s.Buckets) < 2 {
		return nil, fmt.Errorf("need at least 2 days, got %d", len(s.Buckets))
	}

	xValues := make([]time.Time, len(s.Buckets))
	profitY := make([]float64, len(s.Buckets))
	cumulativeY := make([]float64, len(s.Buckets))
	for i, b := range s.Buckets {
		xValues[i] = b.Date
		profitY[i] = money.ToDollars(s.Profit[i])
		cumulativeY[i] = money.ToDollars(s.Cumulative[i])
	}

	profitSeries := chart.TimeSeries{
		Name: "Daily Profit",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("16a34a"), // green-600
			StrokeWidth: 1.5,
		},
		XValues: xValues,
		YValues: profitY,
	}

	cumulativeSeries := chart.TimeSeries{
		Name: "Cumulative Profit",
		Style: chart.Style{
			StrokeColor:     drawing.ColorFromHex("2563eb"), // blue-600
			StrokeWidth:     2.5,
			StrokeDashArray: []float64{5.0, 3.0},
		},
		XValues: xValues,
		YValues: cumulativeY,
	}

	lo, hi := cumulativeY[0], cumulativeY[0]
	for i := range profitY {
		lo = min(lo, profitY[i], cumulativeY[i])
		hi = max(hi, profitY[i], cumulativeY[i])
	}
	var yRange chart.Range
	if lo == hi {
		// go-chart refuses a zero-height range; pad a flat line.
		yRange = &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}

	dayFormat := "Jan 2"
	if len(s.Buckets) > 120 {
		dayFormat = "Jan 06"
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("Profit (%s)", s.Range),
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format(dayFormat)
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			Range: yRange,
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("$%.0f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{
			profitSeries,
			cumulativeSeries,
		},
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}
