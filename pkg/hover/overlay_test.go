package hover

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arshiaxbt/Aura/pkg/annotate"
	"github.com/arshiaxbt/Aura/pkg/dom"
	"github.com/arshiaxbt/Aura/pkg/reputation"
	"github.com/arshiaxbt/Aura/pkg/vault"
)

func classText(root dom.Node, class string) []string {
	var out []string
	dom.Walk(root, func(n dom.Node) bool {
		if c, ok := n.Attr("class"); ok && c == class {
			out = append(out, dom.TextContent(n))
		}
		return true
	})
	return out
}

func TestOverlayRendersView(t *testing.T) {
	doc := dom.MustParseHTML(`<p>x</p>`)
	o := NewOverlay(doc)
	score := 1450
	v := View{
		Key:         "vitalik.eth",
		Identifier:  "vitalik.eth",
		Address:     addrA,
		Score:       &score,
		Tier:        reputation.Established,
		DisplayName: "Vitalik",
		Note:        vault.AffordanceEdit,
	}
	o.Show(doc.Root().FirstChild(), v)

	host := o.Host()
	_, hidden := host.Attr("hidden")
	assert.False(t, hidden)
	tier, _ := host.Attr(annotate.AttrTier)
	assert.Equal(t, "established", tier)
	assert.Equal(t, []string{"Vitalik"}, classText(host, "aura-tip-title"))
	assert.Equal(t, []string{addrA}, classText(host, "aura-tip-address"))
	assert.Equal(t, []string{"Score 1450 · established"}, classText(host, "aura-tip-score"))
	assert.Equal(t, []string{"Edit note"}, classText(host, "aura-tip-action"))

	shown, ok := o.Shown()
	assert.True(t, ok)
	assert.Equal(t, v, shown)
}

func TestOverlayStatusLines(t *testing.T) {
	doc := dom.MustParseHTML(`<p>x</p>`)
	o := NewOverlay(doc)
	anchor := doc.Root().FirstChild()

	o.Show(anchor, View{Key: addrA, Identifier: addrA, Address: addrA, Loading: true})
	assert.Equal(t, []string{"Loading reputation…"}, classText(o.Host(), "aura-tip-status"))
	assert.Empty(t, classText(o.Host(), "aura-tip-address"), "raw address is already the title")

	o.Show(anchor, View{Key: addrA, Identifier: addrA, Address: addrA})
	assert.Equal(t, []string{"No reputation data"}, classText(o.Host(), "aura-tip-status"))
	assert.Empty(t, classText(o.Host(), "aura-tip-action"))
}

func TestOverlayHideAndScanExclusion(t *testing.T) {
	doc := dom.MustParseHTML(`<p>x</p>`)
	o := NewOverlay(doc)
	o.Show(doc.Root().FirstChild(), View{Identifier: "vitalik.eth", Note: vault.AffordanceSetup})
	require.Len(t, dom.Elements(doc.Root(), "div"), 3)

	o.Hide()
	_, hidden := o.Host().Attr("hidden")
	assert.True(t, hidden)
	_, ok := o.Shown()
	assert.False(t, ok)

	_, marked := o.Host().Attr(annotate.AttrTooltip)
	assert.True(t, marked)
}

func TestOverlayPlacement(t *testing.T) {
	doc := dom.MustParseHTML(`<p>x</p>`)
	o := NewOverlay(doc)
	o.Bounds = func(dom.Node) dom.Rect { return dom.Rect{X: 40, Y: 700, W: 80, H: 20} }
	o.Viewport = func() dom.Rect { return dom.Rect{W: 1000, H: 800} }

	o.Show(doc.Root().FirstChild(), View{Identifier: "vitalik.eth"})
	assert.Equal(t, dom.Rect{X: 40, Y: 554, W: 280, H: 140}, o.Position())
	style, _ := o.Host().Attr("style")
	assert.Contains(t, style, "left:40px;top:554px")
}
