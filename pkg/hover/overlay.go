package hover

import (
	"fmt"
	"strconv"

	"github.com/arshiaxbt/Aura/pkg/annotate"
	"github.com/arshiaxbt/Aura/pkg/dom"
	"github.com/arshiaxbt/Aura/pkg/vault"
)

// Overlay is a Surface built from plain document nodes. Its host element is
// appended to the document root and carries annotate.AttrTooltip so scans
// never descend into it.
type Overlay struct {
	doc  dom.Document
	host dom.Node

	// Bounds measures a marker; Viewport sizes the visible area. Both may be
	// nil when there is no layout (tests, the CLI).
	Bounds   func(dom.Node) dom.Rect
	Viewport func() dom.Rect
	// TipW and TipH estimate the rendered tooltip size for placement.
	TipW, TipH float64

	shown bool
	last  View
	pos   dom.Rect
}

func NewOverlay(doc dom.Document) *Overlay {
	return &Overlay{doc: doc, TipW: 280, TipH: 140}
}

// Host returns the overlay host element, creating it on first use.
func (o *Overlay) Host() dom.Node {
	if o.host == nil || !o.host.Connected() {
		o.host = o.doc.CreateElement("div")
		o.host.SetAttr(annotate.AttrTooltip, "")
		o.host.SetAttr("class", "aura-tooltip")
		o.host.SetAttr("hidden", "")
		dom.AppendChild(o.doc.Root(), o.host)
	}
	return o.host
}

// Shown reports whether the tooltip is visible, and what it shows.
func (o *Overlay) Shown() (View, bool) { return o.last, o.shown }

// Position is where the tooltip was last placed.
func (o *Overlay) Position() dom.Rect { return o.pos }

func (o *Overlay) Show(anchor dom.Node, v View) {
	host := o.Host()
	for c := host.FirstChild(); c != nil; c = host.FirstChild() {
		c.Remove()
	}
	o.build(host, v)

	var a, vp dom.Rect
	if o.Bounds != nil {
		a = o.Bounds(anchor)
	}
	if o.Viewport != nil {
		vp = o.Viewport()
	} else {
		vp = dom.Rect{W: a.Right() + o.TipW + 2*Margin, H: a.Bottom() + o.TipH + Gap + 2*Margin}
	}
	o.pos = Place(a, o.TipW, o.TipH, vp)
	host.SetAttr("style", fmt.Sprintf("position:fixed;left:%.0fpx;top:%.0fpx;z-index:2147483647", o.pos.X, o.pos.Y))
	host.RemoveAttr("hidden")
	host.SetAttr(annotate.AttrTier, string(v.Tier))

	o.shown = true
	o.last = v
}

func (o *Overlay) Hide() {
	if o.host != nil {
		o.host.SetAttr("hidden", "")
	}
	o.shown = false
	o.last = View{}
}

func (o *Overlay) build(host dom.Node, v View) {
	title := v.Identifier
	if v.DisplayName != "" {
		title = v.DisplayName
	}
	o.line(host, "aura-tip-title", title)
	if v.Address != "" && v.Address != v.Key {
		o.line(host, "aura-tip-address", v.Address)
	}

	switch {
	case v.Loading:
		o.line(host, "aura-tip-status", "Loading reputation…")
	case v.Score == nil:
		o.line(host, "aura-tip-status", "No reputation data")
	default:
		o.line(host, "aura-tip-score", "Score "+strconv.Itoa(*v.Score)+" · "+string(v.Tier))
	}

	switch v.Note {
	case vault.AffordanceSetup:
		o.action(host, "note-setup", "Set up notes vault")
	case vault.AffordanceUnlock:
		o.action(host, "note-unlock", "Unlock to view note")
	case vault.AffordanceEdit:
		o.action(host, "note-edit", "Edit note")
	}
}

func (o *Overlay) line(host dom.Node, class, text string) {
	el := o.doc.CreateElement("div")
	el.SetAttr("class", class)
	dom.AppendChild(el, o.doc.CreateText(text))
	dom.AppendChild(host, el)
}

func (o *Overlay) action(host dom.Node, action, label string) {
	el := o.doc.CreateElement("button")
	el.SetAttr("class", "aura-tip-action")
	el.SetAttr("data-aura-action", action)
	dom.AppendChild(el, o.doc.CreateText(label))
	dom.AppendChild(host, el)
}
