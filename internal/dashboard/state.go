package dashboard

import (
	"sort"
	"time"

	"github.com/antdash/antdash/internal/model"
)

// Sortable non-metric columns. Metric columns use the metric name.
const (
	ColumnID     = "id"
	ColumnStatus = "status"
)

// State is the full dashboard state: the node map plus the selection,
// sort and focus settings the views read. It is owned exclusively by
// the aggregation loop; everything else sees it through Snapshot.
type State struct {
	nodes map[string]*NodeRecord

	sortColumn    string
	sortAscending bool
	selected      string
	focus         int // index into model.Metrics for the detail view

	steps    int
	linesMax int
	rate     model.ExchangeRate
}

// NewState builds an empty state. steps is the per-series bucket
// capacity for new nodes, linesMax the raw-line tail length.
func NewState(steps, linesMax int) *State {
	return &State{
		nodes:      make(map[string]*NodeRecord),
		sortColumn: ColumnID,
		steps:      steps,
		linesMax:   linesMax,
	}
}

// Upsert returns the record for id, creating it on first reference. A
// Stale record seen again resumes with its history intact; a Removed
// one stays dormant.
func (st *State) Upsert(id string) *NodeRecord {
	n, ok := st.nodes[id]
	if !ok {
		n = newNodeRecord(id, st.steps, st.linesMax)
		st.nodes[id] = n
	} else {
		n.Resume()
	}
	return n
}

// Node returns the record for id, nil when unknown.
func (st *State) Node(id string) *NodeRecord { return st.nodes[id] }

// Len returns the number of known nodes, in any status.
func (st *State) Len() int { return len(st.nodes) }

// SortBy sets the summary sort column and direction.
func (st *State) SortBy(column string, ascending bool) {
	st.sortColumn = column
	st.sortAscending = ascending
}

// SortColumn returns the active sort settings.
func (st *State) SortColumn() (string, bool) { return st.sortColumn, st.sortAscending }

// Select makes id the detail-view node. Selecting an unknown id is a
// no-op, not an error.
func (st *State) Select(id string) {
	if _, ok := st.nodes[id]; ok {
		st.selected = id
	}
}

// Selected returns the selected node id, "" when none.
func (st *State) Selected() string { return st.selected }

// SelectedNode returns the selected record, nil when none.
func (st *State) SelectedNode() *NodeRecord {
	if st.selected == "" {
		return nil
	}
	return st.nodes[st.selected]
}

// SelectStep moves the selection up or down the currently sorted row
// order, clamped at both ends.
func (st *State) SelectStep(delta int) {
	ids := st.sortedIDs()
	if len(ids) == 0 {
		return
	}
	pos := 0
	for i, id := range ids {
		if id == st.selected {
			pos = i
			break
		}
	}
	pos += delta
	if pos < 0 {
		pos = 0
	}
	if pos > len(ids)-1 {
		pos = len(ids) - 1
	}
	st.selected = ids[pos]
}

// FocusMetric cycles the detail view's focused metric by delta.
func (st *State) FocusMetric(delta int) {
	n := len(model.Metrics)
	st.focus = ((st.focus+delta)%n + n) % n
}

// FocusedMetric returns the detail view's focused metric.
func (st *State) FocusedMetric() model.MetricInfo { return model.Metrics[st.focus] }

// ZoomIn narrows the selected node's timelines to a finer resolution.
// All of the node's timelines move together so charts stay aligned.
func (st *State) ZoomIn() {
	if n := st.SelectedNode(); n != nil {
		for _, info := range model.Metrics {
			n.Timeline(info.Name).ZoomIn()
		}
	}
}

// ZoomOut widens the selected node's timelines to a coarser resolution.
func (st *State) ZoomOut() {
	if n := st.SelectedNode(); n != nil {
		for _, info := range model.Metrics {
			n.Timeline(info.Name).ZoomOut()
		}
	}
}

// CycleDisplayMode rotates min/mean/max on the focused metric's
// timeline of the selected node.
func (st *State) CycleDisplayMode() {
	if n := st.SelectedNode(); n != nil {
		n.Timeline(st.FocusedMetric().Name).CycleDisplayMode()
	}
}

// SetRate records the latest currency conversion rate. Formatting is
// read-side; a zero rate leaves raw token units displayed.
func (st *State) SetRate(r model.ExchangeRate) { st.rate = r }

// Rate returns the current conversion rate.
func (st *State) Rate() model.ExchangeRate { return st.rate }

// ApplyRescan reconciles a glob rescan: added paths are upserted (and
// resumed when Stale), paths that vanished are marked Stale. History
// is never dropped by a rescan.
func (st *State) ApplyRescan(res model.RescanResult) {
	for _, id := range res.Added {
		st.Upsert(id)
	}
	for _, id := range res.Removed {
		if n, ok := st.nodes[id]; ok {
			n.MarkStale()
		}
	}
}

// Remove permanently drops a node from the watch set.
func (st *State) Remove(id string) {
	if n, ok := st.nodes[id]; ok {
		n.MarkRemoved()
	}
}

// Each calls fn for every node record in unspecified order. Callers
// run inside the aggregation loop; fn must not retain the record.
func (st *State) Each(fn func(*NodeRecord)) {
	for _, n := range st.nodes {
		fn(n)
	}
}

// AdvanceTo rolls every node's timeline windows forward to now.
func (st *State) AdvanceTo(now time.Time) {
	for _, n := range st.nodes {
		n.AdvanceTo(now)
	}
}

// sortedIDs returns node ids ordered by the active sort settings.
// Ties always break by id so the order is deterministic.
func (st *State) sortedIDs() []string {
	ids := make([]string, 0, len(st.nodes))
	for id := range st.nodes {
		ids = append(ids, id)
	}
	col, asc := st.sortColumn, st.sortAscending
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := ids[i], ids[j]
		switch col {
		case ColumnID, "":
			if asc {
				return a < b
			}
			return a > b
		case ColumnStatus:
			sa, sb := st.nodes[a].Status, st.nodes[b].Status
			if sa != sb {
				if asc {
					return sa < sb
				}
				return sa > sb
			}
		default:
			va, vb := st.nodes[a].scalar(col), st.nodes[b].scalar(col)
			if va != vb {
				if asc {
					return va < vb
				}
				return va > vb
			}
		}
		return a < b
	})
	return ids
}
