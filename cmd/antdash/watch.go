package main

import (
	"context"
	"log"
	"sync"

	"github.com/antdash/antdash/internal/checkpoint"
	"github.com/antdash/antdash/internal/logsource"
	"github.com/antdash/antdash/internal/model"
	"github.com/antdash/antdash/internal/pipeline"
)

// watchManager keeps one tailer per watched log file and forwards
// their lines into the pipeline. Rescan deltas start and stop tailers;
// the aggregation loop owns the records themselves.
type watchManager struct {
	ctx  context.Context
	pipe *pipeline.Pipeline
	cfg  Config

	mu      sync.Mutex
	tailers map[string]*logsource.Tailer
	wg      sync.WaitGroup
	stopped bool
}

func newWatchManager(ctx context.Context, pipe *pipeline.Pipeline, cfg Config) *watchManager {
	return &watchManager{
		ctx:     ctx,
		pipe:    pipe,
		cfg:     cfg,
		tailers: make(map[string]*logsource.Tailer),
	}
}

// handle reconciles one rescan delta: new files get tailers, vanished
// files lose theirs, and the pipeline hears about both.
func (w *watchManager) handle(res model.RescanResult) {
	for _, path := range res.Added {
		w.start(path)
	}
	for _, path := range res.Removed {
		w.stop(path)
	}
	if err := w.pipe.Enqueue(w.ctx, pipeline.Rescan{RescanResult: res}); err != nil {
		log.Printf("watch: dropping rescan result: %v", err)
	}
}

func (w *watchManager) start(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if _, ok := w.tailers[path]; ok {
		return
	}

	tc := logsource.TailConfig{IgnoreExisting: w.cfg.IgnoreExisting}
	if cp, err := checkpoint.Load(path); err != nil {
		log.Printf("watch: ignoring checkpoint for %s: %v", path, err)
	} else if cp != nil {
		tc.StartOffset = cp.Offset
		if err := w.pipe.Enqueue(w.ctx, pipeline.RestoreNode{NodeID: path, Apply: cp.Restore}); err != nil {
			return
		}
	}

	t := logsource.NewTailer(w.ctx, path, tc)
	w.tailers[path] = t
	w.wg.Add(1)
	go w.forward(t)
}

func (w *watchManager) stop(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.tailers[path]; ok {
		t.Stop()
		delete(w.tailers, path)
	}
}

func (w *watchManager) forward(t *logsource.Tailer) {
	defer w.wg.Done()
	for ev := range t.Lines() {
		if err := w.pipe.Enqueue(w.ctx, pipeline.LineAppended{LineEvent: ev}); err != nil {
			return
		}
	}
}

// stopAll shuts every tailer down and waits for the forwarders to
// finish. Safe to call more than once.
func (w *watchManager) stopAll() {
	w.mu.Lock()
	w.stopped = true
	for path, t := range w.tailers {
		t.Stop()
		delete(w.tailers, path)
	}
	w.mu.Unlock()
	w.wg.Wait()
}
