// Package dom is the narrow view of a document tree the page pipeline works
// against. The browser build backs it with syscall/js; everything else (the
// CLI and the tests) backs it with a parsed golang.org/x/net/html tree.
package dom

// NodeType mirrors the handful of DOM node types the pipeline distinguishes.
type NodeType int

const (
	OtherNode NodeType = iota
	TextNode
	ElementNode
	DocumentNode
)

// Node is one node of a live tree. Implementations are small handles; two
// handles to the same underlying node report Same == true.
type Node interface {
	Type() NodeType
	// Tag is the lower-case tag name of an element, "" otherwise.
	Tag() string
	// Text is the character data of a text node, "" otherwise.
	Text() string
	SetText(s string)

	Attr(name string) (string, bool)
	SetAttr(name, value string)
	RemoveAttr(name string)

	Parent() Node
	FirstChild() Node
	NextSibling() Node

	// InsertBefore inserts child under the receiver before ref. A nil ref
	// appends. child must be detached.
	InsertBefore(child, ref Node)
	// Remove detaches the node from its parent. It is a no-op on a detached node.
	Remove()

	// Connected reports whether the node is attached to its document.
	Connected() bool
	Same(other Node) bool
}

// Document creates nodes belonging to one tree.
type Document interface {
	// Root is the element scanning starts from (the body when present).
	Root() Node
	CreateElement(tag string) Node
	CreateText(text string) Node
}

// Rect is a box in viewport coordinates.
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) Right() float64  { return r.X + r.W }
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Walk visits n and its descendants in document order. Returning false from
// fn skips the node's children.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for c := n.FirstChild(); c != nil; {
		// fn may detach c
		next := c.NextSibling()
		Walk(c, fn)
		c = next
	}
}

// TextContent concatenates every text node under n.
func TextContent(n Node) string {
	var buf []byte
	Walk(n, func(c Node) bool {
		if c.Type() == TextNode {
			buf = append(buf, c.Text()...)
		}
		return true
	})
	return string(buf)
}

// AppendChild appends child as the last child of parent.
func AppendChild(parent, child Node) {
	parent.InsertBefore(child, nil)
}

// Elements returns every element under root (root included) with the given tag.
func Elements(root Node, tag string) []Node {
	var out []Node
	Walk(root, func(n Node) bool {
		if n.Type() == ElementNode && n.Tag() == tag {
			out = append(out, n)
		}
		return true
	})
	return out
}
