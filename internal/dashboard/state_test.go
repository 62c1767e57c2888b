package dashboard

import (
	"testing"
	"time"

	"github.com/antdash/antdash/internal/model"
)

func seedErrors(st *State, id string, errors int) {
	n := st.Upsert(id)
	for i := 0; i < errors; i++ {
		n.ApplySamples(
			[]model.MetricSample{{Metric: model.MetricErrors, Timestamp: t0, Value: 1}},
			[]model.CounterDelta{{Counter: model.MetricErrors, Delta: 1}},
		)
	}
}

func rowIDs(rows []SummaryRow) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids
}

func TestState_UpsertCreatesOnce(t *testing.T) {
	t.Parallel()
	st := NewState(30, 10)

	a := st.Upsert("n1.log")
	b := st.Upsert("n1.log")
	if a != b {
		t.Error("upsert created a second record for the same id")
	}
	if st.Len() != 1 {
		t.Errorf("Len = %d, want 1", st.Len())
	}
}

func TestState_SelectMissingIsNoOp(t *testing.T) {
	t.Parallel()
	st := NewState(30, 10)
	st.Upsert("n1.log")
	st.Select("n1.log")

	st.Select("does-not-exist.log")
	if st.Selected() != "n1.log" {
		t.Errorf("selected = %q, want n1.log", st.Selected())
	}
}

func TestState_SortReversalStableTies(t *testing.T) {
	t.Parallel()
	st := NewState(30, 10)
	seedErrors(st, "a.log", 3)
	seedErrors(st, "b.log", 1)
	seedErrors(st, "c.log", 3) // ties with a.log
	seedErrors(st, "d.log", 5)

	st.SortBy(model.MetricErrors, false)
	desc := rowIDs(st.Snapshot(t0).Rows)
	want := []string{"d.log", "a.log", "c.log", "b.log"}
	for i := range want {
		if desc[i] != want[i] {
			t.Fatalf("desc order = %v, want %v", desc, want)
		}
	}

	st.SortBy(model.MetricErrors, true)
	asc := rowIDs(st.Snapshot(t0).Rows)
	want = []string{"b.log", "a.log", "c.log", "d.log"}
	for i := range want {
		if asc[i] != want[i] {
			t.Fatalf("asc order = %v, want %v", asc, want)
		}
	}
}

func TestState_RescanStaleThenResume(t *testing.T) {
	t.Parallel()
	st := NewState(30, 10)
	seedErrors(st, "n1.log", 2)

	st.ApplyRescan(model.RescanResult{Removed: []string{"n1.log"}})
	n := st.Node("n1.log")
	if n.Status != model.StatusStale {
		t.Fatalf("status = %v, want Stale", n.Status)
	}
	if n.Counters[model.MetricErrors] != 2 {
		t.Error("stale record lost its counters")
	}

	// Reappearing under the same id resumes with history intact.
	st.ApplyRescan(model.RescanResult{Added: []string{"n1.log"}})
	if n.Status != model.StatusActive {
		t.Errorf("status = %v, want Active after re-add", n.Status)
	}
	if n.Counters[model.MetricErrors] != 2 {
		t.Error("resume reset existing history")
	}
}

func TestState_RemoveIsPermanent(t *testing.T) {
	t.Parallel()
	st := NewState(30, 10)
	st.Upsert("n1.log")
	st.Remove("n1.log")

	st.ApplyRescan(model.RescanResult{Added: []string{"n1.log"}})
	if st.Node("n1.log").Status != model.StatusRemoved {
		t.Error("removed node came back on rescan")
	}
}

func TestState_SelectStepFollowsSortOrder(t *testing.T) {
	t.Parallel()
	st := NewState(30, 10)
	seedErrors(st, "a.log", 1)
	seedErrors(st, "b.log", 2)
	seedErrors(st, "c.log", 3)
	st.SortBy(model.MetricErrors, false) // c, b, a
	st.Select("c.log")

	st.SelectStep(1)
	if st.Selected() != "b.log" {
		t.Errorf("selected = %q, want b.log", st.Selected())
	}
	st.SelectStep(-5) // clamps at the top
	if st.Selected() != "c.log" {
		t.Errorf("selected = %q, want c.log", st.Selected())
	}
	st.SelectStep(10) // clamps at the bottom
	if st.Selected() != "a.log" {
		t.Errorf("selected = %q, want a.log", st.Selected())
	}
}

func TestState_FocusMetricWraps(t *testing.T) {
	t.Parallel()
	st := NewState(30, 10)

	first := st.FocusedMetric().Name
	st.FocusMetric(-1)
	if st.FocusedMetric().Name != model.Metrics[len(model.Metrics)-1].Name {
		t.Errorf("focus after -1 = %q", st.FocusedMetric().Name)
	}
	st.FocusMetric(1)
	if st.FocusedMetric().Name != first {
		t.Errorf("focus did not wrap back to %q", first)
	}
}

func TestState_SnapshotDetail(t *testing.T) {
	t.Parallel()
	st := NewState(30, 10)
	seedErrors(st, "n1.log", 2)
	st.Select("n1.log")
	st.SetRate(model.ExchangeRate{Symbol: "$", Rate: 0.5, FetchedAt: t0})

	snap := st.Snapshot(t0)
	if snap.Detail == nil {
		t.Fatal("snapshot of a selected node has no detail")
	}
	if snap.Detail.ID != "n1.log" {
		t.Errorf("detail id = %q", snap.Detail.ID)
	}
	if len(snap.Detail.Timelines) != len(model.Metrics) {
		t.Errorf("timelines = %d, want %d", len(snap.Detail.Timelines), len(model.Metrics))
	}
	if !snap.Rate.Valid() || snap.Rate.Symbol != "$" {
		t.Errorf("rate = %+v", snap.Rate)
	}
	if snap.Rows[0].Values[model.MetricErrors] != 2 {
		t.Errorf("row errors = %v, want 2", snap.Rows[0].Values[model.MetricErrors])
	}
}

func TestState_SnapshotIsDetached(t *testing.T) {
	t.Parallel()
	st := NewState(30, 10)
	seedErrors(st, "n1.log", 1)
	st.Select("n1.log")

	snap := st.Snapshot(t0)
	before := snap.Rows[0].Values[model.MetricErrors]

	// Mutating state after the snapshot must not change the copy.
	seedErrors(st, "n1.log", 4)
	st.AdvanceTo(t0.Add(time.Minute))

	if snap.Rows[0].Values[model.MetricErrors] != before {
		t.Error("snapshot row changed after state mutation")
	}
}

func TestState_ZoomAppliesToSelectedNode(t *testing.T) {
	t.Parallel()
	st := NewState(30, 10)
	seedErrors(st, "n1.log", 1)
	st.Select("n1.log")

	st.ZoomOut()
	snap := st.Snapshot(t0)
	if got := snap.Detail.Timelines[0].Scale.Resolution; got != time.Minute {
		t.Errorf("resolution after zoom out = %v, want 1m", got)
	}
	st.ZoomIn()
	snap = st.Snapshot(t0)
	if got := snap.Detail.Timelines[0].Scale.Resolution; got != time.Second {
		t.Errorf("resolution after zoom in = %v, want 1s", got)
	}
}
