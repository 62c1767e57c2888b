package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/antdash/antdash/internal/dashboard"
	"github.com/antdash/antdash/internal/logparse"
	"github.com/antdash/antdash/internal/model"
)

// DefaultQueueSize is the default event queue capacity.
const DefaultQueueSize = 50_000

// ErrStopped is returned by Enqueue once the pipeline is shutting down.
var ErrStopped = errors.New("pipeline: stopped")

// Config holds pipeline tunables. Zero values fall back to defaults.
type Config struct {
	QueueSize      int
	TickInterval   time.Duration
	RedrawInterval time.Duration

	// Checkpoint, when set, is called per node on every CheckpointTick.
	// It runs inside the aggregation loop so it sees consistent state.
	Checkpoint func(*dashboard.NodeRecord, time.Time)
}

// Pipeline owns the event queue, the single aggregation consumer and
// the published snapshot.
type Pipeline struct {
	ctx    context.Context
	cancel context.CancelFunc

	state  *dashboard.State
	events chan Event
	redraw chan struct{}

	snap         atomic.Pointer[dashboard.Snapshot]
	droppedTicks atomic.Uint64

	tickInterval   time.Duration
	redrawInterval time.Duration

	checkpoint func(*dashboard.NodeRecord, time.Time)

	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
	done      chan struct{}

	// consumer-local, touched only by the aggregation loop
	now        time.Time
	lastRedraw time.Time
}

// New builds a pipeline over state. Nothing runs until Start.
func New(parent context.Context, state *dashboard.State, cfg Config) *Pipeline {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = model.DefaultTickInterval
	}
	if cfg.RedrawInterval <= 0 {
		cfg.RedrawInterval = model.DefaultRedrawInterval
	}
	ctx, cancel := context.WithCancel(parent)
	p := &Pipeline{
		ctx:            ctx,
		cancel:         cancel,
		state:          state,
		events:         make(chan Event, cfg.QueueSize),
		redraw:         make(chan struct{}, 1),
		tickInterval:   cfg.TickInterval,
		redrawInterval: cfg.RedrawInterval,
		checkpoint:     cfg.Checkpoint,
		done:           make(chan struct{}),
	}
	p.snap.Store(state.Snapshot(time.Now()))
	return p
}

// Start launches the ticker and the aggregation consumer.
func (p *Pipeline) Start() {
	p.startOnce.Do(func() {
		p.wg.Add(1)
		go p.tickLoop()
		go p.run()
	})
}

// Stop cancels the pipeline, drains queued events and waits for the
// consumer to exit. Safe to call more than once.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		p.cancel()
		p.wg.Wait()
		<-p.done
	})
}

// Enqueue blocks until ev is queued or a context ends. Line producers
// use this path so bursts apply backpressure instead of losing lines.
func (p *Pipeline) Enqueue(ctx context.Context, ev Event) error {
	if p.ctx.Err() != nil {
		return ErrStopped
	}
	select {
	case p.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrStopped
	}
}

// Offer queues ev without blocking and reports whether it fit. Ticks,
// rate updates and commands use this path; they are coalescable.
func (p *Pipeline) Offer(ev Event) bool {
	select {
	case p.events <- ev:
		return true
	default:
		return false
	}
}

// Snapshot returns the most recently published view. Never nil.
func (p *Pipeline) Snapshot() *dashboard.Snapshot { return p.snap.Load() }

// Redraw signals at most once per pending snapshot, rate-limited to
// the redraw interval.
func (p *Pipeline) Redraw() <-chan struct{} { return p.redraw }

// DroppedTicks counts ticks coalesced because the queue was full.
// Dropping a tick loses no data; the next one advances further.
func (p *Pipeline) DroppedTicks() uint64 { return p.droppedTicks.Load() }

func (p *Pipeline) tickLoop() {
	defer p.wg.Done()
	t := time.NewTicker(p.tickInterval)
	defer t.Stop()
	for {
		select {
		case <-p.ctx.Done():
			return
		case now := <-t.C:
			if !p.Offer(Tick{Now: now.UTC()}) {
				p.droppedTicks.Add(1)
			}
		}
	}
}

func (p *Pipeline) run() {
	defer close(p.done)
	for {
		select {
		case <-p.ctx.Done():
			p.drain()
			return
		case ev := <-p.events:
			p.apply(ev)
		}
	}
}

// drain applies everything already queued so shutdown never tears a
// half-applied burst, then publishes a final snapshot.
func (p *Pipeline) drain() {
	for {
		select {
		case ev := <-p.events:
			p.apply(ev)
		default:
			p.publish(p.clock())
			return
		}
	}
}

// apply is the single-writer state transition. Events are applied
// strictly in arrival order.
func (p *Pipeline) apply(ev Event) {
	switch e := ev.(type) {
	case LineAppended:
		n := p.state.Upsert(e.NodeID)
		n.ApplyLine(e.Line, e.Offset, logparse.ParseLine(e.Line))

	case Tick:
		p.now = e.Now
		p.state.AdvanceTo(e.Now)
		if e.Now.Sub(p.lastRedraw) >= p.redrawInterval {
			p.lastRedraw = e.Now
			p.publish(e.Now)
		}

	case Rescan:
		p.state.ApplyRescan(e.RescanResult)

	case RestoreNode:
		if e.Apply != nil {
			e.Apply(p.state.Upsert(e.NodeID))
		}

	case RateUpdate:
		p.state.SetRate(e.ExchangeRate)

	case CheckpointTick:
		if p.checkpoint != nil {
			p.state.Each(func(n *dashboard.NodeRecord) { p.checkpoint(n, e.Now) })
		}

	// Commands publish immediately so the display tracks input without
	// waiting for the next redraw tick.
	case Select:
		p.state.Select(e.NodeID)
		p.publish(p.clock())
	case SelectStep:
		p.state.SelectStep(e.Delta)
		p.publish(p.clock())
	case SortBy:
		p.state.SortBy(e.Column, e.Ascending)
		p.publish(p.clock())
	case ZoomIn:
		p.state.ZoomIn()
		p.publish(p.clock())
	case ZoomOut:
		p.state.ZoomOut()
		p.publish(p.clock())
	case CycleDisplayMode:
		p.state.CycleDisplayMode()
		p.publish(p.clock())
	case FocusMetric:
		p.state.FocusMetric(e.Delta)
		p.publish(p.clock())
	case RemoveNode:
		p.state.Remove(e.NodeID)
		p.publish(p.clock())
	}
}

func (p *Pipeline) clock() time.Time {
	if p.now.IsZero() {
		return time.Now().UTC()
	}
	return p.now
}

func (p *Pipeline) publish(now time.Time) {
	p.snap.Store(p.state.Snapshot(now))
	select {
	case p.redraw <- struct{}{}:
	default:
	}
}
