package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"

	"github.com/antdash/antdash/internal/dashboard"
	"github.com/antdash/antdash/internal/timeseries"
)

const chartHeight = 8

// renderTimeline draws one metric's bucket history as a bar chart at
// the active zoom, newest bucket on the right.
func (m Model) renderTimeline(mt dashboard.MetricTimeline) string {
	width := m.width - 6
	if width < 40 {
		width = 74
	}

	maxBars := width / 2 // bar width 1 plus gap 1
	buckets := mt.Buckets
	if len(buckets) > maxBars {
		buckets = buckets[len(buckets)-maxBars:]
	}

	bc := barchart.New(width, chartHeight,
		barchart.WithBarGap(1),
		barchart.WithBarWidth(1),
		barchart.WithNoAxis(),
	)

	// Left-pad with empty bars so a short history still hugs the right
	// edge like a ticker.
	for i := len(buckets); i < maxBars; i++ {
		bc.Push(barchart.BarData{
			Label:  "",
			Values: []barchart.BarValue{{Name: "empty", Value: 0, Style: chartBarStyle}},
		})
	}
	for _, b := range buckets {
		bc.Push(barchart.BarData{
			Label: "",
			Values: []barchart.BarValue{
				{Name: mt.Info.Name, Value: bucketValue(mt, b), Style: chartBarStyle},
			},
		})
	}
	bc.Draw()

	caption := fmt.Sprintf("%s, %s", mt.Info.Title, mt.Scale.Name)
	if !mt.Info.Cumulative {
		caption += fmt.Sprintf(" (%s)", mt.Mode)
	}
	if mt.LateDrops > 0 {
		caption += errorStyle.Render(fmt.Sprintf("  %d late samples dropped", mt.LateDrops))
	}

	return sectionStyle.Render(strings.Join([]string{
		headerStyle.Render(caption),
		bc.View(),
	}, "\n"))
}

// bucketValue picks the charted statistic: per-bucket totals for
// counting metrics, the selected min/mean/max projection for gauges.
func bucketValue(mt dashboard.MetricTimeline, b timeseries.Bucket) float64 {
	if mt.Info.Cumulative {
		return b.Sum
	}
	return mt.Mode.Value(b)
}
