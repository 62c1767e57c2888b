// Package pipeline merges line events from every watched file, the
// periodic clock tick and user commands into one ordered stream
// consumed by a single aggregation loop. The loop is the only writer
// of dashboard state; everything else reads published snapshots.
package pipeline

import (
	"time"

	"github.com/antdash/antdash/internal/dashboard"
	"github.com/antdash/antdash/internal/model"
)

// Event is one item on the pipeline queue. The concrete types below
// are the full event vocabulary.
type Event interface{ event() }

// LineAppended carries one raw log line from a tail source. Producers
// enqueue these blocking: line events are never dropped.
type LineAppended struct{ model.LineEvent }

// Tick advances every timeline window to Now and, at a throttled
// sub-rate, publishes a snapshot. Ticks may be coalesced under load.
type Tick struct{ Now time.Time }

// Rescan reconciles the watch set after a glob rescan.
type Rescan struct{ model.RescanResult }

// RateUpdate installs a fresh currency conversion rate.
type RateUpdate struct{ model.ExchangeRate }

// RestoreNode seeds a node record, typically from a checkpoint. Apply
// runs inside the aggregation loop against the upserted record.
type RestoreNode struct {
	NodeID string
	Apply  func(*dashboard.NodeRecord)
}

// CheckpointTick asks the aggregation loop to persist node progress
// via the configured checkpoint hook.
type CheckpointTick struct{ Now time.Time }

// Select makes a node the detail view target; unknown ids are ignored.
type Select struct{ NodeID string }

// SelectStep moves the selection through the sorted summary rows.
type SelectStep struct{ Delta int }

// SortBy changes the summary sort column and direction.
type SortBy struct {
	Column    string
	Ascending bool
}

// ZoomIn narrows the selected node's timelines one resolution step.
type ZoomIn struct{}

// ZoomOut widens the selected node's timelines one resolution step.
type ZoomOut struct{}

// CycleDisplayMode rotates min/mean/max on the focused timeline.
type CycleDisplayMode struct{}

// FocusMetric moves the detail view focus across metrics.
type FocusMetric struct{ Delta int }

// RemoveNode permanently drops a node from the watch set.
type RemoveNode struct{ NodeID string }

func (LineAppended) event()     {}
func (Tick) event()             {}
func (Rescan) event()           {}
func (RateUpdate) event()       {}
func (RestoreNode) event()      {}
func (CheckpointTick) event()   {}
func (Select) event()           {}
func (SelectStep) event()       {}
func (SortBy) event()           {}
func (ZoomIn) event()           {}
func (ZoomOut) event()          {}
func (CycleDisplayMode) event() {}
func (FocusMetric) event()      {}
func (RemoveNode) event()       {}
