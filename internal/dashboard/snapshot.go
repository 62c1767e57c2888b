package dashboard

import (
	"time"

	"github.com/antdash/antdash/internal/model"
	"github.com/antdash/antdash/internal/timeseries"
)

// SummaryRow is one node's line in the summary table. Values holds the
// current scalar per metric name (cumulative counter or latest value),
// which is also what sorting keys on.
type SummaryRow struct {
	ID       string
	Status   model.NodeStatus
	Conn     model.ConnState
	Inactive bool
	Version  string
	PID      uint64
	Restarts int
	Values   map[string]float64

	UsedSpace   float64
	MaxCapacity float64
}

// MetricTimeline is one metric's read view at the node's active zoom.
type MetricTimeline struct {
	Info      model.MetricInfo
	Scale     timeseries.Scale
	Mode      timeseries.DisplayMode
	Buckets   []timeseries.Bucket
	Stat      RunningStat
	LateDrops uint64
}

// NodeDetail is the full read view of the selected node.
type NodeDetail struct {
	SummaryRow
	PeerID      string
	LastEntryAt time.Time
	Focused     string
	Timelines   []MetricTimeline
	Lines       []string
}

// Snapshot is an immutable copy of everything the views render. The
// aggregation loop builds one per redraw; readers never see state
// mid-mutation.
type Snapshot struct {
	TakenAt       time.Time
	Rows          []SummaryRow
	SortColumn    string
	SortAscending bool
	Selected      string
	Detail        *NodeDetail
	Rate          model.ExchangeRate
}

// Snapshot copies the current state into an immutable view: summary
// rows in sorted order, plus the selected node's timelines at their
// active zoom.
func (st *State) Snapshot(now time.Time) *Snapshot {
	snap := &Snapshot{
		TakenAt:       now,
		SortColumn:    st.sortColumn,
		SortAscending: st.sortAscending,
		Selected:      st.selected,
		Rate:          st.rate,
	}

	for _, id := range st.sortedIDs() {
		snap.Rows = append(snap.Rows, st.summaryRow(st.nodes[id], now))
	}

	if n := st.SelectedNode(); n != nil {
		snap.Detail = st.nodeDetail(n, now)
	}
	return snap
}

func (st *State) summaryRow(n *NodeRecord, now time.Time) SummaryRow {
	row := SummaryRow{
		ID:          n.ID,
		Status:      n.Status,
		Conn:        n.Conn,
		Inactive:    n.Inactive(now),
		Version:     n.Version,
		PID:         n.PID,
		Restarts:    n.Restarts,
		Values:      make(map[string]float64, len(model.Metrics)),
		UsedSpace:   n.LastValues[model.GaugeUsedSpace],
		MaxCapacity: n.LastValues[model.GaugeMaxCapacity],
	}
	for _, info := range model.Metrics {
		row.Values[info.Name] = n.scalar(info.Name)
	}
	return row
}

func (st *State) nodeDetail(n *NodeRecord, now time.Time) *NodeDetail {
	d := &NodeDetail{
		SummaryRow:  st.summaryRow(n, now),
		PeerID:      n.PeerID,
		LastEntryAt: n.LastEntryAt,
		Focused:     st.FocusedMetric().Name,
		Lines:       n.Lines(),
	}
	for _, info := range model.Metrics {
		t := n.Timeline(info.Name)
		s := t.Active()
		mt := MetricTimeline{
			Info:      info,
			Scale:     t.ActiveScale(),
			Mode:      t.Mode(),
			LateDrops: t.LateDrops(),
			Stat:      n.Stat(info.Name),
		}
		for b := range s.Last(s.Capacity()) {
			mt.Buckets = append(mt.Buckets, b)
		}
		d.Timelines = append(d.Timelines, mt)
	}
	return d
}
