package dom

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLDocument is a Document over a parsed x/net/html tree.
type HTMLDocument struct {
	doc *html.Node
}

// ParseHTML parses a full HTML document.
func ParseHTML(r io.Reader) (*HTMLDocument, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return &HTMLDocument{doc: doc}, nil
}

// MustParseHTML parses s and panics on error. Intended for fixtures.
func MustParseHTML(s string) *HTMLDocument {
	d, err := ParseHTML(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return d
}

func (d *HTMLDocument) wrap(n *html.Node) Node {
	if n == nil {
		return nil
	}
	return htmlNode{n: n, d: d}
}

// Root returns the body element, or the document node when there is none.
func (d *HTMLDocument) Root() Node {
	var body *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if body != nil {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			body = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(d.doc)
	if body == nil {
		return d.wrap(d.doc)
	}
	return d.wrap(body)
}

// Document returns the document node itself.
func (d *HTMLDocument) Document() Node { return d.wrap(d.doc) }

func (d *HTMLDocument) CreateElement(tag string) Node {
	tag = strings.ToLower(tag)
	return d.wrap(&html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))})
}

func (d *HTMLDocument) CreateText(text string) Node {
	return d.wrap(&html.Node{Type: html.TextNode, Data: text})
}

// Render serializes the tree back to HTML.
func (d *HTMLDocument) Render(w io.Writer) error {
	return html.Render(w, d.doc)
}

// String renders the body's inner HTML, or the whole document without one.
func (d *HTMLDocument) String() string {
	var buf bytes.Buffer
	root := d.Root().(htmlNode).n
	if root == d.doc {
		_ = html.Render(&buf, d.doc)
		return buf.String()
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// htmlNode is comparable so handles can be compared with == as well as Same.
type htmlNode struct {
	n *html.Node
	d *HTMLDocument
}

func (h htmlNode) Type() NodeType {
	switch h.n.Type {
	case html.TextNode:
		return TextNode
	case html.ElementNode:
		return ElementNode
	case html.DocumentNode:
		return DocumentNode
	default:
		return OtherNode
	}
}

func (h htmlNode) Tag() string {
	if h.n.Type != html.ElementNode {
		return ""
	}
	return h.n.Data
}

func (h htmlNode) Text() string {
	if h.n.Type != html.TextNode {
		return ""
	}
	return h.n.Data
}

func (h htmlNode) SetText(s string) {
	if h.n.Type == html.TextNode {
		h.n.Data = s
	}
}

func (h htmlNode) Attr(name string) (string, bool) {
	for _, a := range h.n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func (h htmlNode) SetAttr(name, value string) {
	for i, a := range h.n.Attr {
		if a.Namespace == "" && a.Key == name {
			h.n.Attr[i].Val = value
			return
		}
	}
	h.n.Attr = append(h.n.Attr, html.Attribute{Key: name, Val: value})
}

func (h htmlNode) RemoveAttr(name string) {
	attrs := h.n.Attr[:0]
	for _, a := range h.n.Attr {
		if a.Namespace == "" && a.Key == name {
			continue
		}
		attrs = append(attrs, a)
	}
	h.n.Attr = attrs
}

func (h htmlNode) Parent() Node      { return h.d.wrap(h.n.Parent) }
func (h htmlNode) FirstChild() Node  { return h.d.wrap(h.n.FirstChild) }
func (h htmlNode) NextSibling() Node { return h.d.wrap(h.n.NextSibling) }

func (h htmlNode) InsertBefore(child, ref Node) {
	c := child.(htmlNode).n
	if ref == nil {
		h.n.AppendChild(c)
		return
	}
	h.n.InsertBefore(c, ref.(htmlNode).n)
}

func (h htmlNode) Remove() {
	if h.n.Parent != nil {
		h.n.Parent.RemoveChild(h.n)
	}
}

func (h htmlNode) Connected() bool {
	n := h.n
	for n.Parent != nil {
		n = n.Parent
	}
	return n == h.d.doc
}

func (h htmlNode) Same(other Node) bool {
	o, ok := other.(htmlNode)
	return ok && o.n == h.n
}
