package annotate

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arshiaxbt/Aura/internal/logging"
	"github.com/arshiaxbt/Aura/pkg/dom"
	"github.com/arshiaxbt/Aura/pkg/identifier"
	"github.com/arshiaxbt/Aura/pkg/page"
	"github.com/arshiaxbt/Aura/pkg/reputation"
	"github.com/arshiaxbt/Aura/pkg/runloop"
)

func init() { logging.DiscardLogging() }

const addrA = "0xDE0B295669a9FD93d5F28D9Ec85E40f4cb697BAe"

type queue struct{ items []string }

func (q *queue) Enqueue(text string, _ identifier.Kind) { q.items = append(q.items, text) }

type fixture struct {
	doc   *dom.HTMLDocument
	m     *runloop.Manual
	state *page.State
	q     *queue
	e     *Engine
}

func newFixture(t *testing.T, html string, chunk int) *fixture {
	t.Helper()
	f := &fixture{
		doc:   dom.MustParseHTML(html),
		m:     runloop.NewManual(time.Unix(0, 0)),
		state: page.New(nil),
		q:     &queue{},
	}
	f.e = New(f.m, f.doc, identifier.NewMatcher(), f.state, f.q, Config{Chunk: chunk})
	return f
}

func TestSplicesTextAroundMarkers(t *testing.T) {
	f := newFixture(t, `<p>send to `+addrA+` now, or vitalik.eth</p>`, 0)
	n := f.e.ScanSync(f.doc.Root())
	assert.Equal(t, 2, n)

	want := `<p>send to ` +
		`<span class="aura-marker" data-aura-id="` + strings.ToLower(addrA) + `" data-aura-kind="address" data-aura-tier="unscored" data-aura-state="loading">` + addrA + `</span>` +
		` now, or ` +
		`<span class="aura-marker" data-aura-id="vitalik.eth" data-aura-kind="ens" data-aura-tier="unscored" data-aura-state="loading">vitalik.eth</span>` +
		`</p>`
	assert.Equal(t, want, f.doc.String())
	assert.Equal(t, "send to "+addrA+" now, or vitalik.eth", dom.TextContent(f.doc.Root()), "text content is preserved")
	assert.Equal(t, []string{addrA, "vitalik.eth"}, f.q.items, "document order")
}

func TestWholeTextNodeMatch(t *testing.T) {
	f := newFixture(t, `<b>jesse.base.eth</b>`, 0)
	require.Equal(t, 1, f.e.ScanSync(f.doc.Root()))
	b := dom.Elements(f.doc.Root(), "b")[0]
	assert.True(t, IsMarker(b.FirstChild()))
	assert.Nil(t, b.FirstChild().NextSibling(), "no empty text siblings left behind")
}

func TestScanIsIdempotent(t *testing.T) {
	f := newFixture(t, `<div><p>`+addrA+` and nick.eth</p><p>again nick.eth, a.base.eth.</p></div>`, 0)
	first := f.e.ScanSync(f.doc.Root())
	require.Equal(t, 4, first)
	html := f.doc.String()

	assert.Equal(t, 0, f.e.ScanSync(f.doc.Root()))
	assert.Equal(t, html, f.doc.String())
	assert.Equal(t, 4, f.state.MarkerCount())
}

func TestNameGluedToAddressStaysUnmarked(t *testing.T) {
	f := newFixture(t, `<p>vitalik.eth.`+addrA+`</p>`, 0)
	assert.Equal(t, 0, f.e.ScanSync(f.doc.Root()))
	assert.Equal(t, 0, f.e.ScanSync(f.doc.Root()))
	assert.Empty(t, f.q.items)
}

// TestRescanOfSplitTextAddsNothing builds randomized runs, annotates them, then
// feeds every resulting text node back in the way inserted nodes arrive, and
// scans the whole tree again.
func TestRescanOfSplitTextAddsNothing(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	fragments := []string{
		addrA, strings.ToLower(addrA), "vitalik.eth", "nick.eth", "jesse.base.eth",
		"a-b.eth", "base.eth", ".", "-", " ", ",", "x", "_", "0x", ".eth",
	}
	for i := 0; i < 1500; i++ {
		var b strings.Builder
		for j, n := 0, 1+rng.Intn(7); j < n; j++ {
			b.WriteString(fragments[rng.Intn(len(fragments))])
		}
		text := b.String()
		f := newFixture(t, "<p>"+text+"</p>", 0)
		f.e.ScanSync(f.doc.Root())
		markers := f.state.MarkerCount()

		var texts []dom.Node
		dom.Walk(f.doc.Root(), func(n dom.Node) bool {
			if n.Type() == dom.TextNode {
				texts = append(texts, n)
			}
			return true
		})
		for _, n := range texts {
			require.Equal(t, 0, f.e.AnnotateText(n), "split text re-annotated in %q", text)
		}
		require.Equal(t, 0, f.e.ScanSync(f.doc.Root()), "rescan added markers in %q", text)
		require.Equal(t, markers, f.state.MarkerCount())
		require.Equal(t, text, dom.TextContent(f.doc.Root()))
	}
}

func TestRepeatedIdentifierSharesRecord(t *testing.T) {
	f := newFixture(t, `<p>nick.eth</p><p>NICK.eth</p>`, 0)
	f.e.ScanSync(f.doc.Root())
	assert.Equal(t, 1, f.state.Len())
	assert.Len(t, f.state.Markers("nick.eth"), 2)
	assert.Equal(t, []string{"nick.eth"}, f.q.items, "enqueued once")
}

func TestSkipsExcludedSubtrees(t *testing.T) {
	f := newFixture(t, `
		<script>var a = "vitalik.eth"</script>
		<style>.vitalik.eth{}</style>
		<textarea>vitalik.eth</textarea>
		<div contenteditable="true"><p>vitalik.eth</p></div>
		<div contenteditable="false"><p>ok.eth</p></div>
		<div data-aura-tooltip=""><p>tip.eth</p></div>
		<svg><text>svg.eth</text></svg>`, 0)

	assert.Equal(t, 1, f.e.ScanSync(f.doc.Root()))
	assert.Equal(t, []string{"ok.eth"}, f.q.items)
}

func TestPacedScan(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 450; i++ {
		fmt.Fprintf(&b, "<p>%s</p>", fmt.Sprintf("0x%040x", i+1))
	}
	f := newFixture(t, b.String(), 200)

	total := -1
	f.e.Scan(f.doc.Root(), func(n int) { total = n })
	assert.Equal(t, 0, f.state.MarkerCount(), "nothing happens before the first frame")

	require.True(t, f.m.RunFrame())
	assert.Equal(t, 200, f.state.MarkerCount())
	require.True(t, f.m.RunFrame())
	assert.Equal(t, 400, f.state.MarkerCount())
	assert.Equal(t, -1, total)
	require.True(t, f.m.RunFrame())
	assert.Equal(t, 450, f.state.MarkerCount())
	assert.Equal(t, 450, total)
	assert.False(t, f.m.RunFrame())
}

func TestPacedScanSkipsNodesDetachedBetweenFrames(t *testing.T) {
	f := newFixture(t, `<p id="a">a.eth</p><p id="b">b.eth</p>`, 1)
	f.e.Scan(f.doc.Root(), nil)
	f.m.RunFrame()

	dom.Elements(f.doc.Root(), "p")[1].Remove()
	f.m.Flush()
	assert.Equal(t, []string{"a.eth"}, f.q.items)
}

func TestAnnotateTextRespectsAncestors(t *testing.T) {
	f := newFixture(t, `<textarea></textarea><p></p>`, 0)
	ta := dom.Elements(f.doc.Root(), "textarea")[0]
	p := dom.Elements(f.doc.Root(), "p")[0]

	t1 := f.doc.CreateText("x.eth")
	dom.AppendChild(ta, t1)
	assert.Equal(t, 0, f.e.AnnotateText(t1))

	t2 := f.doc.CreateText("y.eth")
	dom.AppendChild(p, t2)
	assert.Equal(t, 1, f.e.AnnotateText(t2))
}

func TestNewMarkerUsesExistingRecordState(t *testing.T) {
	f := newFixture(t, `<p>nick.eth</p>`, 0)
	rec, _ := f.state.Ensure("nick.eth", identifier.ENSName)
	score := 1800
	rec.SetScore(&score)
	rec.Fetched = true

	f.e.ScanSync(f.doc.Root())
	m := f.state.Markers("nick.eth")[0]
	tier, _ := m.Attr(AttrTier)
	st, _ := m.Attr(AttrState)
	assert.Equal(t, "exemplary", tier)
	assert.Equal(t, StateReady, st)
	assert.Empty(t, f.q.items, "existing records are not re-enqueued")
}

func TestRestyle(t *testing.T) {
	f := newFixture(t, `<p>nick.eth</p><p>nick.eth</p>`, 0)
	f.e.ScanSync(f.doc.Root())

	f.state.Update("nick.eth", func(r *page.Record) {
		s := 1450
		r.SetScore(&s)
		r.Fetched = true
	})
	f.e.Restyle("nick.eth")

	for _, m := range f.state.Markers("nick.eth") {
		tier, _ := m.Attr(AttrTier)
		assert.Equal(t, string(reputation.Established), tier)
	}
}

func TestMarkerKey(t *testing.T) {
	f := newFixture(t, `<p>hello Nick.eth</p>`, 0)
	f.e.ScanSync(f.doc.Root())
	marker := f.state.Markers("nick.eth")[0]

	key, ok := MarkerKey(marker.FirstChild())
	require.True(t, ok)
	assert.Equal(t, "nick.eth", key)

	_, ok = MarkerKey(dom.Elements(f.doc.Root(), "p")[0])
	assert.False(t, ok)
}
