// Package conductor wires the page pipeline for one page context: the initial
// scan, the lookup batcher, mutation reconciliation, the hover tooltip and the
// notes vault session. Host events (DOM mutations, pointer events) come in
// through its methods, which must run on the loop.
package conductor

import (
	"log/slog"
	"time"

	"github.com/arshiaxbt/Aura/internal/config"
	"github.com/arshiaxbt/Aura/internal/logging"
	"github.com/arshiaxbt/Aura/internal/metrics"
	"github.com/arshiaxbt/Aura/pkg/annotate"
	"github.com/arshiaxbt/Aura/pkg/batcher"
	"github.com/arshiaxbt/Aura/pkg/dom"
	"github.com/arshiaxbt/Aura/pkg/hover"
	"github.com/arshiaxbt/Aura/pkg/identifier"
	"github.com/arshiaxbt/Aura/pkg/page"
	"github.com/arshiaxbt/Aura/pkg/reconcile"
	"github.com/arshiaxbt/Aura/pkg/reputation"
	"github.com/arshiaxbt/Aura/pkg/resolver"
	"github.com/arshiaxbt/Aura/pkg/runloop"
	"github.com/arshiaxbt/Aura/pkg/vault"
)

// Deps are the collaborators of a Conductor.
type Deps struct {
	Doc      dom.Document
	Sched    runloop.Scheduler
	Resolver resolver.Resolver
	Scorer   reputation.Scorer
	// Surface renders the tooltip; nil uses a hover.Overlay on Doc.
	Surface hover.Surface
	// Vault is optional; without it the tooltip offers no note actions.
	Vault   *vault.Manager
	Metrics *metrics.Metrics
}

// Config tunes the pipeline. Zero values take each component's default.
type Config struct {
	Debounce      time.Duration
	BatchSize     int
	MutationDelay time.Duration
	Linger        time.Duration
	Ceiling       int
	Chunk         int
}

// ConfigFrom maps environment configuration onto the pipeline.
func ConfigFrom(c config.Config) Config {
	return Config{
		Debounce:      c.Debounce,
		BatchSize:     c.BatchSize,
		MutationDelay: c.MutationDelay,
		Linger:        c.Linger,
	}
}

// Conductor owns the page state of one page context.
type Conductor struct {
	doc      dom.Document
	sched    runloop.Scheduler
	resolver resolver.Resolver
	scorer   reputation.Scorer
	vault    *vault.Manager
	log      *slog.Logger

	state      *page.State
	engine     *annotate.Engine
	batcher    *batcher.Batcher
	reconciler *reconcile.Reconciler
	hover      *hover.Controller
	surface    hover.Surface

	scanning bool
	unsub    func()
}

func New(d Deps, cfg Config) *Conductor {
	c := &Conductor{
		doc:      d.Doc,
		sched:    d.Sched,
		resolver: d.Resolver,
		scorer:   d.Scorer,
		vault:    d.Vault,
		log:      logging.Component("conductor"),
		state:    page.New(d.Metrics),
		surface:  d.Surface,
	}
	if c.surface == nil {
		c.surface = hover.NewOverlay(d.Doc)
	}

	hcfg := hover.Config{Linger: cfg.Linger}
	if d.Vault != nil {
		hcfg.Notes = d.Vault.NoteAffordance
	}
	c.hover = hover.New(d.Sched, c.state, c.surface, hcfg)

	c.batcher = batcher.New(d.Sched, c.state, d.Resolver, d.Scorer, batcher.Config{
		Debounce:  cfg.Debounce,
		BatchSize: cfg.BatchSize,
		OnUpdate:  c.updated,
		Metrics:   d.Metrics,
	})
	c.engine = annotate.New(d.Sched, d.Doc, identifier.NewMatcher(), c.state, c.batcher, annotate.Config{Chunk: cfg.Chunk})
	c.reconciler = reconcile.New(d.Sched, c.state, c.engine, reconcile.Config{
		Delay:     cfg.MutationDelay,
		Ceiling:   cfg.Ceiling,
		OnRemoved: c.removed,
	})

	if d.Vault != nil {
		// session changes may arrive from any goroutine
		c.unsub = d.Vault.Subscribe(func(vault.Event) {
			d.Sched.Post(c.hover.RefreshAll)
		})
	}
	return c
}

// Start runs the paced initial scan of the document. done, if set, runs on
// the loop once every chunk has been annotated.
func (c *Conductor) Start(done func(markers int)) {
	c.scanning = true
	c.engine.Scan(c.doc.Root(), func(n int) {
		c.scanning = false
		c.log.Info("initial scan complete", "markers", n, "identifiers", c.state.Len())
		if done != nil {
			done(n)
		}
	})
}

// Inserted forwards nodes added to the document.
func (c *Conductor) Inserted(nodes ...dom.Node) { c.reconciler.Inserted(nodes...) }

// Removed notes that nodes left the document.
func (c *Conductor) Removed() { c.reconciler.Removed() }

func (c *Conductor) PointerEnter(n dom.Node) { c.hover.MarkerEnter(n) }
func (c *Conductor) PointerLeave(n dom.Node) { c.hover.MarkerLeave(n) }
func (c *Conductor) TooltipEnter()           { c.hover.TooltipEnter() }
func (c *Conductor) TooltipLeave()           { c.hover.TooltipLeave() }

// Hover exposes the tooltip controller state.
func (c *Conductor) Hover() *hover.Controller { return c.hover }

// Surface is the tooltip surface in use.
func (c *Conductor) Surface() hover.Surface { return c.surface }

// Snapshot lists every tracked record in first-seen order.
func (c *Conductor) Snapshot() []page.Record { return c.state.Snapshot() }

// Settled reports whether the scan, the reconciler and the batcher are all
// idle.
func (c *Conductor) Settled() bool {
	return !c.scanning && c.reconciler.Queued() == 0 && !c.batcher.Busy()
}

// Close detaches from the vault and hides the tooltip.
func (c *Conductor) Close() {
	if c.unsub != nil {
		c.unsub()
		c.unsub = nil
	}
	c.hover.Close()
}

func (c *Conductor) updated(key string) {
	c.engine.Restyle(key)
	c.hover.Refresh(key)
}

func (c *Conductor) removed(keys []string) {
	for _, k := range keys {
		c.hover.Refresh(k)
	}
}
