package timeseries

import (
	"time"

	"github.com/antdash/antdash/internal/model"
)

// Scale pairs a display name with a bucket resolution.
type Scale struct {
	Name       string
	Resolution time.Duration
}

// Scales lists the supported timeline resolutions from finest to
// coarsest. Every metric records into all of them; zoom selects which
// one is read for display.
var Scales = []Scale{
	{"1 second columns", time.Second},
	{"1 minute columns", time.Minute},
	{"1 hour columns", time.Hour},
	{"1 day columns", 24 * time.Hour},
	{"1 week columns", 7 * 24 * time.Hour},
}

// DisplayMode selects which bucket statistic is the primary displayed
// value for gauge-style metrics. It is a read-side projection flag and
// never affects what is stored.
type DisplayMode int

const (
	ModeMean DisplayMode = iota
	ModeMax
	ModeMin
)

func (m DisplayMode) String() string {
	switch m {
	case ModeMin:
		return "min"
	case ModeMax:
		return "max"
	default:
		return "mean"
	}
}

// Value projects the mode's statistic out of a bucket.
func (m DisplayMode) Value(b Bucket) float64 {
	switch m {
	case ModeMin:
		if b.Empty() {
			return 0
		}
		return b.Min
	case ModeMax:
		return b.Max
	default:
		return b.Mean()
	}
}

// TimelineSet owns one Series per supported scale for a single metric.
// Every sample fans out to all series; the zoom index only affects what
// is read for display.
type TimelineSet struct {
	metric string
	series []*Series
	zoom   int
	mode   DisplayMode
}

// NewTimelineSet creates series for metric at every scale, each with
// steps buckets of capacity.
func NewTimelineSet(metric string, steps int) *TimelineSet {
	if steps < model.MinTimelineSteps {
		steps = model.MinTimelineSteps
	}
	series := make([]*Series, len(Scales))
	for i, sc := range Scales {
		series[i] = NewSeries(sc.Resolution, steps)
	}
	return &TimelineSet{metric: metric, series: series}
}

// Metric returns the metric name this set records.
func (t *TimelineSet) Metric() string { return t.metric }

// Record fans the sample out to every resolution's series.
func (t *TimelineSet) Record(sample model.MetricSample) {
	for _, s := range t.series {
		s.Insert(sample.Timestamp, sample.Value)
	}
}

// AdvanceTo rolls every series' window forward to now.
func (t *TimelineSet) AdvanceTo(now time.Time) {
	for _, s := range t.series {
		s.AdvanceTo(now)
	}
}

// ZoomIn moves to a finer resolution; no-op at the finest.
func (t *TimelineSet) ZoomIn() {
	if t.zoom > 0 {
		t.zoom--
	}
}

// ZoomOut moves to a coarser resolution; no-op at the coarsest.
func (t *TimelineSet) ZoomOut() {
	if t.zoom < len(t.series)-1 {
		t.zoom++
	}
}

// SetZoom clamps and sets the active zoom index.
func (t *TimelineSet) SetZoom(i int) {
	if i < 0 {
		i = 0
	}
	if i > len(t.series)-1 {
		i = len(t.series) - 1
	}
	t.zoom = i
}

// Zoom returns the active zoom index.
func (t *TimelineSet) Zoom() int { return t.zoom }

// ActiveScale returns the scale selected by the current zoom.
func (t *TimelineSet) ActiveScale() Scale { return Scales[t.zoom] }

// Active returns the series selected by the current zoom.
func (t *TimelineSet) Active() *Series { return t.series[t.zoom] }

// At returns the series for an explicit scale index, or nil when out of
// range.
func (t *TimelineSet) At(i int) *Series {
	if i < 0 || i >= len(t.series) {
		return nil
	}
	return t.series[i]
}

// CycleDisplayMode rotates the read-side statistic mean -> max -> min.
func (t *TimelineSet) CycleDisplayMode() {
	t.mode = (t.mode + 1) % 3
}

// Mode returns the active display mode.
func (t *TimelineSet) Mode() DisplayMode { return t.mode }

// LateDrops totals dropped late samples across all resolutions.
func (t *TimelineSet) LateDrops() uint64 {
	var total uint64
	for _, s := range t.series {
		total += s.LateDrops()
	}
	return total
}
