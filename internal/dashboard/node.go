// Package dashboard holds the aggregation state: one NodeRecord per
// watched log file and the State that owns the full node map plus the
// selection and sort settings the display reads.
//
// Everything here is single-writer. Only the pipeline's aggregation
// loop mutates records; every other consumer works from snapshots.
package dashboard

import (
	"time"

	"github.com/antdash/antdash/internal/logparse"
	"github.com/antdash/antdash/internal/model"
	"github.com/antdash/antdash/internal/timeseries"
)

// RunningStat accumulates count, total, min, max and the most recent
// value of a metric over a node's whole lifetime.
type RunningStat struct {
	Count uint64
	Total float64
	Min   float64
	Max   float64
	Last  float64
}

// Observe folds one value into the stat.
func (s *RunningStat) Observe(v float64) {
	if s.Count == 0 || v < s.Min {
		s.Min = v
	}
	if s.Count == 0 || v > s.Max {
		s.Max = v
	}
	s.Count++
	s.Total += v
	s.Last = v
}

// Mean returns the lifetime mean, 0 when nothing was observed.
func (s RunningStat) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Total / float64(s.Count)
}

// NodeRecord aggregates everything known about one monitored node. It
// is created on the first line event for an unseen path and retained
// for the process lifetime; status transitions only move forward.
type NodeRecord struct {
	ID      string // source log file path
	PID     uint64
	PeerID  string
	Version string
	Conn    model.ConnState
	Status  model.NodeStatus

	Counters   map[string]uint64
	LastValues map[string]float64
	Restarts   int

	LastOffset  int64
	LastEntryAt time.Time

	stats     map[string]*RunningStat
	timelines map[string]*timeseries.TimelineSet
	steps     int

	lines    []string
	linesMax int
}

func newNodeRecord(id string, steps, linesMax int) *NodeRecord {
	if linesMax < 1 {
		linesMax = model.DefaultLinesMax
	}
	return &NodeRecord{
		ID:         id,
		Counters:   make(map[string]uint64),
		LastValues: make(map[string]float64),
		stats:      make(map[string]*RunningStat),
		timelines:  make(map[string]*timeseries.TimelineSet),
		steps:      steps,
		linesMax:   linesMax,
	}
}

// Timeline returns the node's timeline set for metric, creating it on
// first use so new metric names need no registration.
func (n *NodeRecord) Timeline(metric string) *timeseries.TimelineSet {
	t, ok := n.timelines[metric]
	if !ok {
		t = timeseries.NewTimelineSet(metric, n.steps)
		n.timelines[metric] = t
	}
	return t
}

// Stat returns the node's lifetime stat for metric, zero if none.
func (n *NodeRecord) Stat(metric string) RunningStat {
	if s, ok := n.stats[metric]; ok {
		return *s
	}
	return RunningStat{}
}

// Stats returns a copy of the lifetime stats per metric.
func (n *NodeRecord) Stats() map[string]RunningStat {
	out := make(map[string]RunningStat, len(n.stats))
	for name, s := range n.stats {
		out[name] = *s
	}
	return out
}

// RestoreStats replaces the lifetime stats wholesale, used when
// resuming a node from a checkpoint.
func (n *NodeRecord) RestoreStats(stats map[string]RunningStat) {
	n.stats = make(map[string]*RunningStat, len(stats))
	for name, s := range stats {
		s := s
		n.stats[name] = &s
	}
}

// ApplySamples routes samples into timelines and stats and applies all
// counter deltas as one unit, so a line reporting several related
// counters never shows a partial update.
func (n *NodeRecord) ApplySamples(samples []model.MetricSample, deltas []model.CounterDelta) {
	for _, d := range deltas {
		n.Counters[d.Counter] += d.Delta
	}
	for _, s := range samples {
		n.Timeline(s.Metric).Record(s)
		stat, ok := n.stats[s.Metric]
		if !ok {
			stat = &RunningStat{}
			n.stats[s.Metric] = stat
		}
		stat.Observe(s.Value)
		n.LastValues[s.Metric] = s.Value
	}
}

// ApplyLine folds one parsed line into the record: identity and
// connection updates, gauges, counters, samples and the raw-line ring.
func (n *NodeRecord) ApplyLine(raw string, offset int64, res logparse.Result) {
	n.LastOffset = offset
	n.pushLine(raw)
	if res.Meta == nil {
		return
	}
	n.LastEntryAt = res.Meta.Timestamp

	if res.Restart != nil {
		n.Restarts++
		n.Version = res.Restart.Version
		// A restarted process starts its counters over; keep the
		// timelines so history spans restarts.
		n.Counters = make(map[string]uint64)
	}
	if res.PID != 0 {
		n.PID = res.PID
	}
	if res.PeerID != "" {
		n.PeerID = res.PeerID
	}
	if res.Conn != model.ConnUnknown {
		n.Conn = res.Conn
	}
	for _, g := range res.Gauges {
		n.LastValues[g.Name] = g.Value
	}
	n.ApplySamples(res.Samples, res.Counters)
}

// AdvanceTo rolls every timeline window forward to now.
func (n *NodeRecord) AdvanceTo(now time.Time) {
	for _, t := range n.timelines {
		t.AdvanceTo(now)
	}
}

// MarkStale transitions Active to Stale. History is retained so the
// node can resume if its file reappears.
func (n *NodeRecord) MarkStale() {
	if n.Status == model.StatusActive {
		n.Status = model.StatusStale
	}
}

// MarkRemoved drops the node from the watch set permanently.
func (n *NodeRecord) MarkRemoved() {
	n.Status = model.StatusRemoved
}

// Resume reactivates a Stale record when its file is observed again.
// Removed records stay removed.
func (n *NodeRecord) Resume() bool {
	if n.Status == model.StatusRemoved {
		return false
	}
	n.Status = model.StatusActive
	return true
}

// Inactive reports whether the node has been silent long enough to
// flag in the summary.
func (n *NodeRecord) Inactive(now time.Time) bool {
	if n.LastEntryAt.IsZero() {
		return true
	}
	return now.Sub(n.LastEntryAt) > model.InactivityTimeout
}

// scalar returns the node's current value for a sortable column: the
// cumulative counter for counting metrics, the latest value otherwise.
func (n *NodeRecord) scalar(column string) float64 {
	if model.MetricByName(column).Cumulative {
		return float64(n.Counters[column])
	}
	return n.LastValues[column]
}

func (n *NodeRecord) pushLine(raw string) {
	n.lines = append(n.lines, raw)
	if len(n.lines) > n.linesMax {
		n.lines = n.lines[len(n.lines)-n.linesMax:]
	}
}

// Lines returns the retained raw log tail, oldest first. The returned
// slice is a copy safe to hand to snapshots.
func (n *NodeRecord) Lines() []string {
	out := make([]string, len(n.lines))
	copy(out, n.lines)
	return out
}
