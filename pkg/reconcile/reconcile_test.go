package reconcile

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arshiaxbt/Aura/internal/logging"
	"github.com/arshiaxbt/Aura/pkg/annotate"
	"github.com/arshiaxbt/Aura/pkg/dom"
	"github.com/arshiaxbt/Aura/pkg/identifier"
	"github.com/arshiaxbt/Aura/pkg/page"
	"github.com/arshiaxbt/Aura/pkg/runloop"
)

func init() { logging.DiscardLogging() }

type nopQueue struct{ n int }

func (q *nopQueue) Enqueue(string, identifier.Kind) { q.n++ }

type fixture struct {
	doc     *dom.HTMLDocument
	m       *runloop.Manual
	state   *page.State
	q       *nopQueue
	e       *annotate.Engine
	r       *Reconciler
	removed []string
}

func newFixture(t *testing.T, html string, ceiling int) *fixture {
	t.Helper()
	f := &fixture{
		doc:   dom.MustParseHTML(html),
		m:     runloop.NewManual(time.Unix(0, 0)),
		state: page.New(nil),
		q:     &nopQueue{},
	}
	f.e = annotate.New(f.m, f.doc, identifier.NewMatcher(), f.state, f.q, annotate.Config{})
	f.r = New(f.m, f.state, f.e, Config{
		Ceiling:   ceiling,
		OnRemoved: func(keys []string) { f.removed = append(f.removed, keys...) },
	})
	return f
}

func TestInsertedElementIsScannedAfterDebounce(t *testing.T) {
	f := newFixture(t, `<div id="feed"></div>`, 0)
	feed := dom.Elements(f.doc.Root(), "div")[0]

	p := f.doc.CreateElement("p")
	dom.AppendChild(p, f.doc.CreateText("new post by nick.eth"))
	dom.AppendChild(feed, p)
	f.r.Inserted(p)

	f.m.Advance(200 * time.Millisecond)
	assert.Equal(t, 0, f.state.MarkerCount(), "still inside the debounce window")

	f.m.Advance(50 * time.Millisecond)
	assert.Equal(t, 1, f.state.MarkerCount())
	assert.Equal(t, 0, f.r.Queued())
}

func TestInsertedTextNode(t *testing.T) {
	f := newFixture(t, `<p>hi </p>`, 0)
	p := dom.Elements(f.doc.Root(), "p")[0]
	txt := f.doc.CreateText("from jesse.base.eth")
	dom.AppendChild(p, txt)

	f.r.Inserted(txt)
	f.m.Advance(DefaultDelay)
	assert.Len(t, f.state.Markers("jesse.base.eth"), 1)
}

func TestDebounceCoalesces(t *testing.T) {
	f := newFixture(t, `<div></div>`, 0)
	div := dom.Elements(f.doc.Root(), "div")[0]
	for i := 0; i < 5; i++ {
		p := f.doc.CreateElement("p")
		dom.AppendChild(p, f.doc.CreateText(fmt.Sprintf("n%d.eth", i)))
		dom.AppendChild(div, p)
		f.r.Inserted(p)
		f.m.Advance(100 * time.Millisecond)
	}
	assert.Equal(t, 0, f.state.MarkerCount())
	f.m.Advance(DefaultDelay)
	assert.Equal(t, 5, f.state.MarkerCount())
}

func TestDetachedInsertionsAreIgnored(t *testing.T) {
	f := newFixture(t, `<div></div>`, 0)
	div := dom.Elements(f.doc.Root(), "div")[0]
	p := f.doc.CreateElement("p")
	dom.AppendChild(p, f.doc.CreateText("gone.eth"))
	dom.AppendChild(div, p)
	f.r.Inserted(p)
	p.Remove()

	f.m.Advance(DefaultDelay)
	assert.Equal(t, 0, f.state.Len())
	assert.Equal(t, 0, f.q.n)
}

func TestDetachedMarkerIsForgotten(t *testing.T) {
	f := newFixture(t, `<p id="a">a.eth</p><p id="b">b.eth and a.eth</p>`, 0)
	f.e.ScanSync(f.doc.Root())
	require.Equal(t, 2, f.state.Len())

	dom.Elements(f.doc.Root(), "p")[1].Remove()
	f.r.Removed()
	f.m.Advance(DefaultDelay)

	_, ok := f.state.Record("b.eth")
	assert.False(t, ok, "b.eth has no marker left")
	assert.Nil(t, f.state.Markers("b.eth"))

	_, ok = f.state.Record("a.eth")
	assert.True(t, ok, "a.eth is still on the page")
	assert.Len(t, f.state.Markers("a.eth"), 1)
	assert.Equal(t, []string{"b.eth"}, f.removed)
}

func TestHousekeepingRunsBeforeNewScans(t *testing.T) {
	f := newFixture(t, `<p>old.eth</p><div></div>`, 0)
	f.e.ScanSync(f.doc.Root())
	old := dom.Elements(f.doc.Root(), "p")[0]
	old.Remove()

	// re-inserted content recreates the record from scratch
	div := dom.Elements(f.doc.Root(), "div")[0]
	p := f.doc.CreateElement("p")
	dom.AppendChild(p, f.doc.CreateText("old.eth"))
	dom.AppendChild(div, p)
	f.r.Inserted(p)
	f.m.Advance(DefaultDelay)

	_, ok := f.state.Record("old.eth")
	assert.True(t, ok)
	assert.Len(t, f.state.Markers("old.eth"), 1)
	assert.Equal(t, 2, f.q.n, "swept first, so the identifier is enqueued again")
}

func TestCeilingEvictsOldest(t *testing.T) {
	var html string
	for i := 0; i < 6; i++ {
		html += fmt.Sprintf("<p>n%d.eth</p>", i)
	}
	f := newFixture(t, html, 4)
	f.e.ScanSync(f.doc.Root())
	require.Equal(t, 6, f.state.Len())

	f.r.Flush()
	assert.Equal(t, 4, f.state.Len())
	assert.Equal(t, []string{"n0.eth", "n1.eth"}, f.removed)
}
