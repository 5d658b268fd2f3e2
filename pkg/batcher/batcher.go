// Package batcher turns identifiers found on the page into reputation state.
// Enqueued identifiers are debounced, deduplicated and dispatched in bounded
// cycles; each cycle walks its slice sequentially off the loop and posts every
// result back as a field update on the page state.
package batcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/arshiaxbt/Aura/internal/logging"
	"github.com/arshiaxbt/Aura/internal/metrics"
	"github.com/arshiaxbt/Aura/pkg/identifier"
	"github.com/arshiaxbt/Aura/pkg/page"
	"github.com/arshiaxbt/Aura/pkg/reputation"
	"github.com/arshiaxbt/Aura/pkg/resolver"
	"github.com/arshiaxbt/Aura/pkg/runloop"
)

const (
	DefaultDebounce  = 150 * time.Millisecond
	DefaultBatchSize = 30
)

// Item is one queued lookup.
type Item struct {
	Identifier string
	Kind       identifier.Kind
}

func (it Item) key() string { return identifier.Normalize(it.Identifier) }

// Config configures a Batcher. Zero values take the defaults.
type Config struct {
	Debounce  time.Duration
	BatchSize int
	// OnUpdate runs on the loop after every update applied to a live record.
	OnUpdate func(key string)
	Metrics  *metrics.Metrics
}

// Batcher is driven from the run loop; Enqueue must only be called from loop tasks.
type Batcher struct {
	sched    runloop.Scheduler
	state    *page.State
	resolver resolver.Resolver
	scorer   reputation.Scorer

	debounce  time.Duration
	batchSize int
	onUpdate  func(string)
	metrics   *metrics.Metrics
	log       *slog.Logger

	pending []Item
	timer   runloop.Timer
	running bool
	cycles  atomic.Uint64
}

func New(sched runloop.Scheduler, state *page.State, res resolver.Resolver, scorer reputation.Scorer, cfg Config) *Batcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.OnUpdate == nil {
		cfg.OnUpdate = func(string) {}
	}
	return &Batcher{
		sched:     sched,
		state:     state,
		resolver:  res,
		scorer:    scorer,
		debounce:  cfg.Debounce,
		batchSize: cfg.BatchSize,
		onUpdate:  cfg.OnUpdate,
		metrics:   cfg.Metrics,
		log:       logging.Component("batcher"),
	}
}

// Enqueue queues an identifier unless it is already pending (case-insensitive)
// and restarts the debounce window.
func (b *Batcher) Enqueue(text string, kind identifier.Kind) {
	it := Item{Identifier: text, Kind: kind}
	key := it.key()
	if key == "" {
		return
	}
	dup := false
	for _, p := range b.pending {
		if p.key() == key {
			dup = true
			break
		}
	}
	if !dup {
		b.pending = append(b.pending, it)
	}
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = b.sched.AfterFunc(b.debounce, b.dispatch)
}

// Pending counts queued items not yet taken by a cycle.
func (b *Batcher) Pending() int { return len(b.pending) }

// Busy reports whether a cycle is running or items are waiting.
func (b *Batcher) Busy() bool { return b.running || len(b.pending) > 0 }

// Cycles counts dispatch cycles started so far. Safe to call off the loop.
func (b *Batcher) Cycles() uint64 { return b.cycles.Load() }

func (b *Batcher) dispatch() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if b.running || len(b.pending) == 0 {
		// a running cycle picks the rest up when it ends
		return
	}
	n := min(b.batchSize, len(b.pending))
	slice := make([]Item, n)
	copy(slice, b.pending[:n])
	b.pending = append(b.pending[:0], b.pending[n:]...)
	b.running = true

	cycle := b.cycles.Add(1)
	b.metrics.CycleStarted()
	b.log.Debug("dispatch cycle", "cycle", cycle, "items", n, "left", len(b.pending))

	b.sched.Go(func(ctx context.Context) {
		start := time.Now()
		for _, it := range slice {
			b.process(ctx, it)
		}
		b.log.Info("cycle done", "cycle", cycle, "items", len(slice), "took", time.Since(start))
		b.sched.Post(b.cycleDone)
	})
}

func (b *Batcher) cycleDone() {
	b.running = false
	if len(b.pending) > 0 {
		b.dispatch()
	}
}

// process runs off the loop. It never touches page state directly; every
// write goes through apply.
func (b *Batcher) process(ctx context.Context, it Item) {
	key := it.key()
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("lookup panicked", "key", key, "panic", fmt.Sprint(r))
			b.finish(key, nil)
			b.metrics.ItemProcessed("error")
		}
	}()

	address := key
	if it.Kind.IsName() {
		addr, err := b.resolver.Resolve(ctx, key)
		if err != nil || !identifier.IsAddress(strings.ToLower(addr)) {
			if err != nil && !errors.Is(err, resolver.ErrUnresolvable) {
				b.log.Warn("resolve failed", "name", key, "err", err)
			}
			b.finish(key, nil)
			b.metrics.ItemProcessed("unresolved")
			return
		}
		address = strings.ToLower(addr)
		b.apply(key, func(r *page.Record) { r.ResolvedAddress = address })
	}

	var score *int
	s, err := b.scorer.Score(ctx, address)
	switch {
	case err == nil:
		score = &s
	case errors.Is(err, reputation.ErrNotFound):
	default:
		b.log.Warn("score fetch failed", "address", address, "err", err)
	}
	b.finish(key, score)
	if score != nil {
		b.metrics.ItemProcessed("scored")
	} else {
		b.metrics.ItemProcessed("unscored")
	}

	profile, err := b.scorer.Profile(ctx, address)
	if err != nil {
		if !errors.Is(err, reputation.ErrNotFound) {
			b.log.Debug("profile fetch failed", "address", address, "err", err)
		}
		return
	}
	b.apply(key, func(r *page.Record) {
		r.DisplayName = profile.DisplayName
		r.AvatarURL = profile.AvatarURL
		// the score endpoint may report nothing for an address whose
		// profile carries a score; take the profile's
		if r.Score == nil && profile.Score != nil {
			v := *profile.Score
			r.SetScore(&v)
		}
	})
}

func (b *Batcher) finish(key string, score *int) {
	b.apply(key, func(r *page.Record) {
		r.SetScore(score)
		r.Fetched = true
	})
}

// apply posts fn to the loop. Records removed in the meantime are skipped.
func (b *Batcher) apply(key string, fn func(*page.Record)) {
	b.sched.Post(func() {
		if b.state.Update(key, fn) {
			b.onUpdate(key)
		}
	})
}
