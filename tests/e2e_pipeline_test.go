// End-to-end coverage of the tail-to-snapshot path: real files on
// disk, glob rescans, tailers feeding the pipeline, snapshots served
// over the HTTP API. Everything runs in-process against a temp dir.
package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/antdash/antdash/internal/checkpoint"
	"github.com/antdash/antdash/internal/dashboard"
	"github.com/antdash/antdash/internal/httpserver"
	"github.com/antdash/antdash/internal/logsource"
	"github.com/antdash/antdash/internal/model"
	"github.com/antdash/antdash/internal/pipeline"
	"github.com/antdash/antdash/internal/rescan"
)

const e2ePoll = 5 * time.Millisecond

type e2eStack struct {
	t       *testing.T
	dir     string
	pipe    *pipeline.Pipeline
	api     *httpserver.Server
	apiAddr string
	scanner *rescan.Scanner

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	tailers  map[string]*logsource.Tailer
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// startE2EStack wires the production components the way cmd/antdash
// does, minus the TUI: pipeline, rescan scanner, tailers with
// checkpoint restore, and the status API on an ephemeral port.
func startE2EStack(t *testing.T, dir string) *e2eStack {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	state := dashboard.NewState(model.MinTimelineSteps, 20)
	pipe := pipeline.New(ctx, state, pipeline.Config{
		TickInterval:   10 * time.Millisecond,
		RedrawInterval: 10 * time.Millisecond,
		Checkpoint: func(n *dashboard.NodeRecord, now time.Time) {
			if err := checkpoint.Save(checkpoint.Capture(n, now)); err != nil {
				t.Errorf("checkpoint save: %v", err)
			}
		},
	})
	pipe.Start()

	api := httpserver.NewServer("127.0.0.1:0", pipe)
	if err := api.Start(); err != nil {
		t.Fatalf("starting API server: %v", err)
	}

	s := &e2eStack{
		t:       t,
		dir:     dir,
		pipe:    pipe,
		api:     api,
		apiAddr: api.Addr(),
		scanner: rescan.New([]string{filepath.Join(dir, "*.log")}),
		ctx:     ctx,
		cancel:  cancel,
		tailers: make(map[string]*logsource.Tailer),
	}
	t.Cleanup(s.stop)
	return s
}

// rescan runs one glob scan and reconciles tailers, mirroring the
// watch manager: new files get a checkpoint-aware tailer, vanished
// files lose theirs, and the delta goes into the pipeline.
func (s *e2eStack) rescan() {
	s.t.Helper()
	res, err := s.scanner.Scan()
	if err != nil {
		s.t.Fatalf("rescan: %v", err)
	}

	s.mu.Lock()
	for _, path := range res.Added {
		if _, ok := s.tailers[path]; ok {
			continue
		}
		tc := logsource.TailConfig{PollInterval: e2ePoll}
		if cp, err := checkpoint.Load(path); err != nil {
			s.t.Fatalf("loading checkpoint: %v", err)
		} else if cp != nil {
			tc.StartOffset = cp.Offset
			if err := s.pipe.Enqueue(s.ctx, pipeline.RestoreNode{NodeID: path, Apply: cp.Restore}); err != nil {
				s.t.Fatalf("enqueuing restore: %v", err)
			}
		}
		tl := logsource.NewTailer(s.ctx, path, tc)
		s.tailers[path] = tl
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for ev := range tl.Lines() {
				if s.pipe.Enqueue(s.ctx, pipeline.LineAppended{LineEvent: ev}) != nil {
					return
				}
			}
		}()
	}
	for _, path := range res.Removed {
		if tl, ok := s.tailers[path]; ok {
			tl.Stop()
			delete(s.tailers, path)
		}
	}
	s.mu.Unlock()

	if err := s.pipe.Enqueue(s.ctx, pipeline.Rescan{RescanResult: res}); err != nil {
		s.t.Fatalf("enqueuing rescan: %v", err)
	}
}

func (s *e2eStack) stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		s.mu.Lock()
		for path, tl := range s.tailers {
			tl.Stop()
			delete(s.tailers, path)
		}
		s.mu.Unlock()
		s.wg.Wait()
		s.pipe.Stop()
		if err := s.api.Stop(); err != nil {
			s.t.Errorf("stopping API server: %v", err)
		}
	})
}

// row returns the current snapshot row for id, or nil.
func (s *e2eStack) row(id string) *dashboard.SummaryRow {
	snap := s.pipe.Snapshot()
	for i := range snap.Rows {
		if snap.Rows[i].ID == id {
			return &snap.Rows[i]
		}
	}
	return nil
}

// waitRow polls snapshots until pred accepts the node's row.
func (s *e2eStack) waitRow(id string, what string, pred func(dashboard.SummaryRow) bool) {
	s.t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if row := s.row(id); row != nil && pred(*row) {
			return
		}
		time.Sleep(e2ePoll)
	}
	s.t.Fatalf("timed out waiting for %s on %s; last row: %+v", what, id, s.row(id))
}

func e2eLine(msg string) string {
	ts := time.Now().UTC().Format("2006-01-02T15:04:05.000000Z")
	return fmt.Sprintf("[%s INFO sn_node::storage] %s\n", ts, msg)
}

func appendLines(t *testing.T, path string, msgs ...string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("opening %s: %v", path, err)
	}
	defer f.Close()
	for _, msg := range msgs {
		if _, err := f.WriteString(e2eLine(msg)); err != nil {
			t.Fatalf("appending to %s: %v", path, err)
		}
	}
}

func TestE2ELogLinesReachSnapshot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "node1.log")
	appendLines(t, path,
		"Wrote record abc to disk",
		"Wrote record def to disk",
		"Wrote record ghi to disk",
		"Retrieved record from disk xyz",
	)

	s := startE2EStack(t, dir)
	s.rescan()

	s.waitRow(path, "initial counters", func(row dashboard.SummaryRow) bool {
		return row.Values[model.MetricPuts] == 3 && row.Values[model.MetricGets] == 1
	})

	// Lines appended after the tailer attaches arrive incrementally.
	appendLines(t, path, "Wrote record jkl to disk", "Wrote record mno to disk")
	s.waitRow(path, "appended counters", func(row dashboard.SummaryRow) bool {
		return row.Values[model.MetricPuts] == 5
	})
}

func TestE2ERestartMarkerResetsCounters(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "node1.log")
	appendLines(t, path, "Wrote record abc to disk")

	s := startE2EStack(t, dir)
	s.rescan()
	s.waitRow(path, "first put", func(row dashboard.SummaryRow) bool {
		return row.Values[model.MetricPuts] == 1
	})

	appendLines(t, path,
		"Running safenode v0.99.1",
		"Retrieved record from disk xyz",
	)
	s.waitRow(path, "post-restart counters", func(row dashboard.SummaryRow) bool {
		return row.Restarts == 1 &&
			row.Values[model.MetricPuts] == 0 &&
			row.Values[model.MetricGets] == 1 &&
			row.Version == "v0.99.1"
	})
}

func TestE2ECheckpointSurvivesRestart(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "node1.log")
	appendLines(t, path,
		"Wrote record abc to disk",
		"payment of NanoTokens(1500) nanos accepted for record abc",
	)

	first := startE2EStack(t, dir)
	first.rescan()
	first.waitRow(path, "counters before checkpoint", func(row dashboard.SummaryRow) bool {
		return row.Values[model.MetricPuts] == 1 && row.Values[model.MetricEarnings] == 1500
	})

	first.pipe.Offer(pipeline.CheckpointTick{Now: time.Now().UTC()})
	cpPath := checkpoint.PathFor(path)
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(cpPath); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for checkpoint file")
		}
		time.Sleep(e2ePoll)
	}
	first.stop()

	// A fresh stack restores counters and resumes at the checkpointed
	// offset, so the existing content is not parsed twice.
	second := startE2EStack(t, dir)
	second.rescan()
	second.waitRow(path, "restored counters", func(row dashboard.SummaryRow) bool {
		return row.Values[model.MetricPuts] == 1 && row.Values[model.MetricEarnings] == 1500
	})

	appendLines(t, path, "Wrote record def to disk")
	second.waitRow(path, "counters after resume", func(row dashboard.SummaryRow) bool {
		return row.Values[model.MetricPuts] == 2 && row.Values[model.MetricEarnings] == 1500
	})
}

func TestE2ERescanMarksVanishedNodesStale(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	keep := filepath.Join(dir, "keep.log")
	gone := filepath.Join(dir, "gone.log")
	appendLines(t, keep, "Wrote record abc to disk")
	appendLines(t, gone, "Wrote record def to disk")

	s := startE2EStack(t, dir)
	s.rescan()
	s.waitRow(gone, "both nodes active", func(row dashboard.SummaryRow) bool {
		return row.Status == model.StatusActive && row.Values[model.MetricPuts] == 1
	})

	if err := os.Remove(gone); err != nil {
		t.Fatalf("removing log: %v", err)
	}
	s.rescan()
	s.waitRow(gone, "vanished node stale", func(row dashboard.SummaryRow) bool {
		return row.Status == model.StatusStale && row.Values[model.MetricPuts] == 1
	})
	s.waitRow(keep, "surviving node active", func(row dashboard.SummaryRow) bool {
		return row.Status == model.StatusActive
	})
}

func TestE2EHTTPAPIServesSnapshots(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "node1.log")
	appendLines(t, path, "Wrote record abc to disk", "Wrote record def to disk")

	s := startE2EStack(t, dir)
	s.rescan()
	s.waitRow(path, "counters visible", func(row dashboard.SummaryRow) bool {
		return row.Values[model.MetricPuts] == 2
	})

	var health struct {
		Status string `json:"status"`
		Nodes  int    `json:"nodes"`
	}
	getJSON(t, "http://"+s.apiAddr+"/api/health", &health)
	if health.Status != "ok" || health.Nodes != 1 {
		t.Fatalf("unexpected health response: %+v", health)
	}

	var nodes struct {
		SortColumn string `json:"sort_column"`
		Nodes      []struct {
			ID      string             `json:"id"`
			Status  string             `json:"status"`
			Metrics map[string]float64 `json:"metrics"`
		} `json:"nodes"`
	}
	getJSON(t, "http://"+s.apiAddr+"/api/nodes", &nodes)
	if len(nodes.Nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(nodes.Nodes))
	}
	got := nodes.Nodes[0]
	if got.ID != path || got.Status != "Active" || got.Metrics[model.MetricPuts] != 2 {
		t.Fatalf("unexpected node row: %+v", got)
	}
}

func getJSON(t *testing.T, url string, out any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decoding %s: %v", url, err)
	}
}
