// Package hover coordinates the tooltip across its two surfaces: the marker
// under the pointer and the overlay the tooltip renders in. The overlay lives
// outside the marker's subtree, so leaving the marker only starts a linger
// timer; reaching the tooltip before it fires keeps the tooltip open.
package hover

import (
	"log/slog"
	"time"

	"github.com/arshiaxbt/Aura/internal/logging"
	"github.com/arshiaxbt/Aura/pkg/annotate"
	"github.com/arshiaxbt/Aura/pkg/dom"
	"github.com/arshiaxbt/Aura/pkg/page"
	"github.com/arshiaxbt/Aura/pkg/reputation"
	"github.com/arshiaxbt/Aura/pkg/runloop"
	"github.com/arshiaxbt/Aura/pkg/vault"
)

const DefaultLinger = 300 * time.Millisecond

// State of the controller.
type State int

const (
	Idle State = iota
	TargetHover
	TooltipHover
)

func (s State) String() string {
	switch s {
	case TargetHover:
		return "target-hover"
	case TooltipHover:
		return "tooltip-hover"
	default:
		return "idle"
	}
}

// View is what the tooltip shows for one identifier.
type View struct {
	Key        string
	Identifier string
	Kind       string
	// Loading is set until a scoring attempt has completed.
	Loading     bool
	Address     string
	Score       *int
	Tier        reputation.Tier
	DisplayName string
	AvatarURL   string
	Note        vault.Affordance
}

// NewView renders a record; note is the current note affordance.
func NewView(r *page.Record, note vault.Affordance) View {
	v := View{
		Key:         r.Key,
		Identifier:  r.Identifier,
		Kind:        r.Kind.String(),
		Loading:     !r.Fetched,
		Address:     r.Address(),
		Tier:        r.Tier,
		DisplayName: r.DisplayName,
		AvatarURL:   r.AvatarURL,
		Note:        note,
	}
	if r.Score != nil {
		s := *r.Score
		v.Score = &s
	}
	if v.Tier == "" {
		v.Tier = reputation.Unscored
	}
	return v
}

// Surface renders the tooltip.
type Surface interface {
	Show(anchor dom.Node, v View)
	Hide()
}

// Config configures a Controller.
type Config struct {
	Linger time.Duration
	// Notes reports the current note affordance; nil shows none.
	Notes func() vault.Affordance
}

// Controller is driven from the loop by pointer events and state changes.
type Controller struct {
	sched   runloop.Scheduler
	state   *page.State
	surface Surface
	linger  time.Duration
	notes   func() vault.Affordance
	log     *slog.Logger

	st         State
	target     dom.Node
	key        string
	overMarker bool
	overTip    bool
	timer      runloop.Timer
}

func New(sched runloop.Scheduler, state *page.State, surface Surface, cfg Config) *Controller {
	if cfg.Linger <= 0 {
		cfg.Linger = DefaultLinger
	}
	return &Controller{
		sched:   sched,
		state:   state,
		surface: surface,
		linger:  cfg.Linger,
		notes:   cfg.Notes,
		log:     logging.Component("hover"),
	}
}

// State returns the current state.
func (c *Controller) State() State { return c.st }

// Target returns the key the tooltip currently shows, "" when idle.
func (c *Controller) Target() string {
	if c.st == Idle {
		return ""
	}
	return c.key
}

// MarkerEnter handles the pointer entering n or a node inside a marker.
func (c *Controller) MarkerEnter(n dom.Node) {
	marker, ok := annotate.MarkerOf(n)
	if !ok {
		return
	}
	key, _ := marker.Attr(annotate.AttrID)
	c.cancel()
	c.overMarker = true

	changed := c.st == Idle || c.target == nil || !c.target.Same(marker)
	c.target = marker
	c.key = key
	c.st = TargetHover
	if changed {
		c.overTip = false
		c.render()
	}
}

// MarkerLeave handles the pointer leaving a marker.
func (c *Controller) MarkerLeave(n dom.Node) {
	marker, ok := annotate.MarkerOf(n)
	if !ok || c.target == nil || !c.target.Same(marker) {
		return
	}
	c.overMarker = false
	c.arm()
}

// TooltipEnter handles the pointer reaching the tooltip surface.
func (c *Controller) TooltipEnter() {
	if c.st == Idle {
		return
	}
	c.cancel()
	c.overTip = true
	c.st = TooltipHover
}

// TooltipLeave handles the pointer leaving the tooltip surface.
func (c *Controller) TooltipLeave() {
	if c.st == Idle {
		return
	}
	c.overTip = false
	if c.overMarker {
		c.st = TargetHover
		return
	}
	c.arm()
}

// Refresh re-renders the tooltip in place if it shows key.
func (c *Controller) Refresh(key string) {
	if c.st == Idle || key != c.key {
		return
	}
	c.render()
}

// RefreshAll re-renders whatever the tooltip shows, e.g. after a vault
// lock or unlock.
func (c *Controller) RefreshAll() {
	if c.st == Idle {
		return
	}
	c.render()
}

// Close hides the tooltip immediately.
func (c *Controller) Close() {
	c.cancel()
	c.hide()
}

func (c *Controller) render() {
	rec, ok := c.state.Record(c.key)
	if !ok || !c.target.Connected() {
		// swept or evicted while open
		c.hide()
		return
	}
	var note vault.Affordance
	if c.notes != nil {
		note = c.notes()
	}
	c.surface.Show(c.target, NewView(rec, note))
}

func (c *Controller) arm() {
	c.cancel()
	c.timer = c.sched.AfterFunc(c.linger, c.expire)
}

func (c *Controller) cancel() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) expire() {
	c.timer = nil
	if c.overMarker || c.overTip {
		return
	}
	c.hide()
}

func (c *Controller) hide() {
	if c.st == Idle {
		return
	}
	c.st = Idle
	c.target = nil
	c.key = ""
	c.overMarker = false
	c.overTip = false
	c.surface.Hide()
}
