// Package annotate wraps identifiers found in page text in marker elements
// and keeps the marker registry in step. It never reparents or rewrites
// anything but the text nodes it splits.
package annotate

import (
	"log/slog"
	"strings"

	"github.com/arshiaxbt/Aura/internal/logging"
	"github.com/arshiaxbt/Aura/pkg/dom"
	"github.com/arshiaxbt/Aura/pkg/identifier"
	"github.com/arshiaxbt/Aura/pkg/page"
	"github.com/arshiaxbt/Aura/pkg/reputation"
	"github.com/arshiaxbt/Aura/pkg/runloop"
)

const (
	MarkerTag   = "span"
	MarkerClass = "aura-marker"

	AttrID    = "data-aura-id"
	AttrKind  = "data-aura-kind"
	AttrTier  = "data-aura-tier"
	AttrState = "data-aura-state"
	// AttrTooltip marks the tooltip overlay host, which is never scanned.
	AttrTooltip = "data-aura-tooltip"

	StateLoading = "loading"
	StateReady   = "ready"

	// DefaultChunk is how many text nodes one frame of a paced scan handles.
	DefaultChunk = 200
)

// skipTags never hold renderable text worth annotating.
var skipTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"textarea": true,
	"input":    true,
	"select":   true,
	"option":   true,
	"template": true,
	"iframe":   true,
	"svg":      true,
	"head":     true,
	"title":    true,
}

// Enqueuer receives identifiers that need a reputation lookup.
type Enqueuer interface {
	Enqueue(text string, kind identifier.Kind)
}

// Config configures an Engine.
type Config struct {
	Chunk int
}

// Engine annotates subtrees of one document. All methods run on the loop.
type Engine struct {
	sched   runloop.Scheduler
	doc     dom.Document
	matcher *identifier.Matcher
	state   *page.State
	queue   Enqueuer
	chunk   int
	log     *slog.Logger
}

func New(sched runloop.Scheduler, doc dom.Document, m *identifier.Matcher, state *page.State, queue Enqueuer, cfg Config) *Engine {
	if cfg.Chunk <= 0 {
		cfg.Chunk = DefaultChunk
	}
	return &Engine{
		sched:   sched,
		doc:     doc,
		matcher: m,
		state:   state,
		queue:   queue,
		chunk:   cfg.Chunk,
		log:     logging.Component("annotate"),
	}
}

// Scan annotates everything under root, cfg.Chunk text nodes per frame.
// done, if set, runs on the loop with the number of markers created.
func (e *Engine) Scan(root dom.Node, done func(markers int)) {
	if root == nil || e.Excluded(root) {
		if done != nil {
			e.sched.Post(func() { done(0) })
		}
		return
	}
	nodes := e.collect(root)
	e.log.Debug("scan started", "textNodes", len(nodes))
	total := 0
	var step func(from int)
	step = func(from int) {
		to := min(from+e.chunk, len(nodes))
		for _, n := range nodes[from:to] {
			total += e.annotate(n)
		}
		if to < len(nodes) {
			e.sched.NextFrame(func() { step(to) })
			return
		}
		e.log.Debug("scan finished", "textNodes", len(nodes), "markers", total)
		if done != nil {
			done(total)
		}
	}
	e.sched.NextFrame(func() { step(0) })
}

// ScanSync annotates root immediately and returns the markers created.
func (e *Engine) ScanSync(root dom.Node) int {
	if root == nil || e.Excluded(root) {
		return 0
	}
	total := 0
	for _, n := range e.collect(root) {
		total += e.annotate(n)
	}
	return total
}

// AnnotateText annotates a single inserted text node.
func (e *Engine) AnnotateText(n dom.Node) int {
	if n == nil || n.Type() != dom.TextNode || e.Excluded(n) {
		return 0
	}
	return e.annotate(n)
}

// Excluded reports whether n sits in a subtree that is never annotated:
// a skipped tag, an editable region, an existing marker or the tooltip host.
func (e *Engine) Excluded(n dom.Node) bool {
	for p := n; p != nil; p = p.Parent() {
		if p.Type() == dom.ElementNode && skipElement(p) {
			return true
		}
	}
	return false
}

func skipElement(n dom.Node) bool {
	if skipTags[n.Tag()] || IsMarker(n) {
		return true
	}
	if _, ok := n.Attr(AttrTooltip); ok {
		return true
	}
	if v, ok := n.Attr("contenteditable"); ok && !strings.EqualFold(v, "false") {
		return true
	}
	return false
}

func (e *Engine) collect(root dom.Node) []dom.Node {
	var out []dom.Node
	dom.Walk(root, func(n dom.Node) bool {
		switch n.Type() {
		case dom.ElementNode:
			return !skipElement(n)
		case dom.TextNode:
			if strings.TrimSpace(n.Text()) != "" {
				out = append(out, n)
			}
			return false
		default:
			return true
		}
	})
	return out
}

// annotate splits one text node around its matches. The node may have been
// detached or rewritten since it was collected, so it is re-read here.
func (e *Engine) annotate(n dom.Node) int {
	parent := n.Parent()
	if parent == nil || !n.Connected() {
		return 0
	}
	text := n.Text()
	matches := e.matcher.Find(text)
	if len(matches) == 0 {
		return 0
	}

	// records in document order so first-seen order follows the page
	records := make([]*page.Record, len(matches))
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		rec, created := e.state.Ensure(m.Text, m.Kind)
		records[i] = rec
		if created {
			e.queue.Enqueue(m.Text, m.Kind)
		}
	}

	// matches run from the end of the text, so earlier offsets stay valid
	ref := n.NextSibling()
	end := len(text)
	for i, m := range matches {
		if m.End < end {
			tail := e.doc.CreateText(text[m.End:end])
			parent.InsertBefore(tail, ref)
			ref = tail
		}
		marker := e.newMarker(m, records[i])
		parent.InsertBefore(marker, ref)
		ref = marker
		e.state.Track(records[i].Key, marker)
		end = m.Start
	}
	if end == 0 {
		n.Remove()
	} else {
		n.SetText(text[:end])
	}
	return len(matches)
}

func (e *Engine) newMarker(m identifier.Match, rec *page.Record) dom.Node {
	el := e.doc.CreateElement(MarkerTag)
	el.SetAttr("class", MarkerClass)
	el.SetAttr(AttrID, rec.Key)
	el.SetAttr(AttrKind, m.Kind.String())
	style(el, rec)
	dom.AppendChild(el, e.doc.CreateText(m.Text))
	return el
}

// Restyle refreshes the tier and loading state of every live marker for key.
func (e *Engine) Restyle(key string) {
	rec, ok := e.state.Record(key)
	if !ok {
		return
	}
	for _, m := range e.state.Markers(key) {
		if m.Connected() {
			style(m, rec)
		}
	}
}

func style(el dom.Node, rec *page.Record) {
	tier := rec.Tier
	if tier == "" {
		tier = reputation.Unscored
	}
	el.SetAttr(AttrTier, string(tier))
	if rec.Fetched {
		el.SetAttr(AttrState, StateReady)
	} else {
		el.SetAttr(AttrState, StateLoading)
	}
}

// IsMarker reports whether n is a marker element.
func IsMarker(n dom.Node) bool {
	if n == nil || n.Type() != dom.ElementNode {
		return false
	}
	_, ok := n.Attr(AttrID)
	return ok && n.Tag() == MarkerTag
}

// MarkerOf returns the marker n is, or is inside of.
func MarkerOf(n dom.Node) (dom.Node, bool) {
	for p := n; p != nil; p = p.Parent() {
		if IsMarker(p) {
			return p, true
		}
	}
	return nil, false
}

// MarkerKey maps an event target back to the identifier key it marks.
func MarkerKey(n dom.Node) (string, bool) {
	m, ok := MarkerOf(n)
	if !ok {
		return "", false
	}
	return m.Attr(AttrID)
}
