// Package reconcile follows document mutations after the initial scan. Inserted
// subtrees are queued and annotated on a debounce; every flush first prunes the
// registry so it only tracks markers still attached to the document.
package reconcile

import (
	"log/slog"
	"time"

	"github.com/arshiaxbt/Aura/internal/logging"
	"github.com/arshiaxbt/Aura/pkg/annotate"
	"github.com/arshiaxbt/Aura/pkg/dom"
	"github.com/arshiaxbt/Aura/pkg/page"
	"github.com/arshiaxbt/Aura/pkg/runloop"
)

const DefaultDelay = 250 * time.Millisecond

// Config configures a Reconciler.
type Config struct {
	Delay   time.Duration
	Ceiling int
	// OnRemoved runs after a flush dropped records, swept or evicted.
	OnRemoved func(keys []string)
}

// Reconciler is driven from the loop.
type Reconciler struct {
	sched     runloop.Scheduler
	state     *page.State
	engine    *annotate.Engine
	delay     time.Duration
	ceiling   int
	onRemoved func([]string)
	log       *slog.Logger

	queue []dom.Node
	timer runloop.Timer
}

func New(sched runloop.Scheduler, state *page.State, engine *annotate.Engine, cfg Config) *Reconciler {
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.Ceiling <= 0 {
		cfg.Ceiling = page.DefaultCeiling
	}
	return &Reconciler{
		sched:     sched,
		state:     state,
		engine:    engine,
		delay:     cfg.Delay,
		ceiling:   cfg.Ceiling,
		onRemoved: cfg.OnRemoved,
		log:       logging.Component("reconcile"),
	}
}

// Inserted queues inserted nodes and restarts the debounce window.
func (r *Reconciler) Inserted(nodes ...dom.Node) {
	for _, n := range nodes {
		if n != nil {
			r.queue = append(r.queue, n)
		}
	}
	r.arm()
}

// Removed records that nodes left the document; the next flush sweeps them.
func (r *Reconciler) Removed() {
	r.arm()
}

// Queued counts nodes waiting for the next flush.
func (r *Reconciler) Queued() int { return len(r.queue) }

func (r *Reconciler) arm() {
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = r.sched.AfterFunc(r.delay, r.Flush)
}

// Flush runs a reconciliation cycle now.
func (r *Reconciler) Flush() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}

	removed := r.state.Sweep()
	removed = append(removed, r.state.Evict(r.ceiling)...)

	queue := r.queue
	r.queue = nil
	markers := 0
	for _, n := range queue {
		if !n.Connected() {
			continue
		}
		switch n.Type() {
		case dom.TextNode:
			markers += r.engine.AnnotateText(n)
		case dom.ElementNode:
			markers += r.engine.ScanSync(n)
		}
	}

	if len(removed) > 0 || markers > 0 {
		r.log.Debug("reconciled", "inserted", len(queue), "markers", markers, "removed", len(removed), "tracked", r.state.Len())
	}
	if len(removed) > 0 && r.onRemoved != nil {
		r.onRemoved(removed)
	}
}
