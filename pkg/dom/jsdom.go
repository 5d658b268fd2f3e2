//go:build js && wasm

package dom

import (
	"strings"
	"syscall/js"
)

// JSDocument is a Document over the page's live DOM.
type JSDocument struct {
	doc js.Value
}

// Global returns the document of the current page context.
func Global() *JSDocument {
	return &JSDocument{doc: js.Global().Get("document")}
}

// Wrap turns a DOM value (an event target, a MutationRecord node) into a Node.
func Wrap(v js.Value) Node {
	if v.IsUndefined() || v.IsNull() {
		return nil
	}
	return jsNode{v: v}
}

// Value unwraps a Node created by this package.
func Value(n Node) js.Value {
	if j, ok := n.(jsNode); ok {
		return j.v
	}
	return js.Null()
}

func (d *JSDocument) Root() Node {
	if body := d.doc.Get("body"); body.Truthy() {
		return jsNode{v: body}
	}
	return jsNode{v: d.doc.Get("documentElement")}
}

func (d *JSDocument) CreateElement(tag string) Node {
	return jsNode{v: d.doc.Call("createElement", tag)}
}

func (d *JSDocument) CreateText(text string) Node {
	return jsNode{v: d.doc.Call("createTextNode", text)}
}

// Viewport is the layout viewport in client coordinates.
func (d *JSDocument) Viewport() Rect {
	w := js.Global()
	return Rect{W: w.Get("innerWidth").Float(), H: w.Get("innerHeight").Float()}
}

// Bounds is the node's bounding client rect.
func Bounds(n Node) Rect {
	v := Value(n)
	if v.IsNull() || v.Get("getBoundingClientRect").IsUndefined() {
		return Rect{}
	}
	r := v.Call("getBoundingClientRect")
	return Rect{X: r.Get("left").Float(), Y: r.Get("top").Float(), W: r.Get("width").Float(), H: r.Get("height").Float()}
}

type jsNode struct {
	v js.Value
}

func (j jsNode) Type() NodeType {
	switch j.v.Get("nodeType").Int() {
	case 1:
		return ElementNode
	case 3:
		return TextNode
	case 9:
		return DocumentNode
	default:
		return OtherNode
	}
}

func (j jsNode) Tag() string {
	if j.Type() != ElementNode {
		return ""
	}
	return strings.ToLower(j.v.Get("tagName").String())
}

func (j jsNode) Text() string {
	if j.Type() != TextNode {
		return ""
	}
	return j.v.Get("nodeValue").String()
}

func (j jsNode) SetText(s string) { j.v.Set("nodeValue", s) }

func (j jsNode) Attr(name string) (string, bool) {
	if j.Type() != ElementNode {
		return "", false
	}
	a := j.v.Call("getAttribute", name)
	if a.IsNull() {
		return "", false
	}
	return a.String(), true
}

func (j jsNode) SetAttr(name, value string) { j.v.Call("setAttribute", name, value) }
func (j jsNode) RemoveAttr(name string)     { j.v.Call("removeAttribute", name) }

func (j jsNode) Parent() Node      { return Wrap(j.v.Get("parentNode")) }
func (j jsNode) FirstChild() Node  { return Wrap(j.v.Get("firstChild")) }
func (j jsNode) NextSibling() Node { return Wrap(j.v.Get("nextSibling")) }

func (j jsNode) InsertBefore(child, ref Node) {
	r := js.Null()
	if ref != nil {
		r = Value(ref)
	}
	j.v.Call("insertBefore", Value(child), r)
}

func (j jsNode) Remove() {
	if p := j.v.Get("parentNode"); p.Truthy() {
		p.Call("removeChild", j.v)
	}
}

func (j jsNode) Connected() bool { return j.v.Get("isConnected").Bool() }

func (j jsNode) Same(other Node) bool {
	o, ok := other.(jsNode)
	return ok && o.v.Equal(j.v)
}
