// Package transition switches the displayed frame or style of a tiled image
// without flicker.
//
// A new target is loaded into the hidden back layer of a layers.Pair. Once
// the engine has drained its draw work twice (after the front layer let go
// of its quad frame, then after the back layer loaded), the layers are
// swapped. Requests arriving while a transition is in flight only replace
// the desired target; when the transition settles the controller starts
// again with whatever was requested last. Intermediate targets are never
// rendered.
//
// The controller is not safe for concurrent use. Requests and engine
// callbacks must arrive on the same goroutine.
package transition

import (
	"github.com/charmbracelet/log"
	"github.com/matjam/smoothtile/internal/frameurl"
	"github.com/matjam/smoothtile/internal/layers"
	"github.com/matjam/smoothtile/internal/render"
	"github.com/matjam/smoothtile/internal/types"
)

// Events receives the observable side effects of the controller.
type Events interface {
	FrameChanging(frame types.Frame)
	FrameChanged(frame types.Frame)
}

// EventFuncs adapts plain functions to Events. Nil fields are skipped.
type EventFuncs struct {
	OnFrameChanging func(types.Frame)
	OnFrameChanged  func(types.Frame)
}

func (f EventFuncs) FrameChanging(frame types.Frame) {
	if f.OnFrameChanging != nil {
		f.OnFrameChanging(frame)
	}
}

func (f EventFuncs) FrameChanged(frame types.Frame) {
	if f.OnFrameChanged != nil {
		f.OnFrameChanged(frame)
	}
}

type State int

const (
	StateIdle State = iota
	StateTransitioning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTransitioning:
		return "transitioning"
	default:
		return "unknown"
	}
}

// Stats counts what the controller did with the requests it received.
type Stats struct {
	Requests    uint64 `json:"requests"`    // requestTarget calls while live
	Transitions uint64 `json:"transitions"` // completed double buffered swaps
	FastPaths   uint64 `json:"fast_paths"`  // frames switched on the front layer
	Superseded  uint64 `json:"superseded"`  // queued targets replaced before they ran
}

type Controller struct {
	engine render.Engine
	pair   *layers.Pair
	events Events
	logger *log.Logger

	state   State
	loaded  bool               // the back layer has been given the active target
	started bool               // a non-default target has been requested
	baseURL string             // front layer URL before frame parameters
	current types.RenderTarget // last target put in motion
	desired types.RenderTarget // last target requested
	active  types.RenderTarget // target of the in-flight transition
	deleted bool

	stats Stats
}

func New(engine render.Engine, pair *layers.Pair, events Events) *Controller {
	if events == nil {
		events = EventFuncs{}
	}
	return &Controller{
		engine: engine,
		pair:   pair,
		events: events,
		logger: log.WithPrefix("transition"),
	}
}

func (c *Controller) State() State                { return c.state }
func (c *Controller) Desired() types.RenderTarget { return c.desired }
func (c *Controller) Current() types.RenderTarget { return c.current }
func (c *Controller) Stats() Stats                { return c.stats }
func (c *Controller) Deleted() bool               { return c.deleted }

// RequestTarget asks for frame and style to be displayed. Negative frames
// are treated as frame 0.
func (c *Controller) RequestTarget(frame types.Frame, style types.Style) {
	if c.deleted {
		return
	}
	if frame < 0 {
		frame = 0
	}
	c.stats.Requests++

	if !c.started {
		// the initial render already shows frame 0 without a style
		if frame == 0 && style == nil {
			return
		}
		c.started = true
		c.baseURL = c.pair.Front().URL()
		c.current = types.RenderTarget{}
	}

	target := types.RenderTarget{Frame: frame, Style: style}
	if c.state == StateTransitioning && !c.desired.Equal(target) &&
		(!c.loaded || !c.desired.Equal(c.active)) {
		c.stats.Superseded++
	}
	c.desired = target
	c.advance()
}

// advance starts a transition towards the desired target unless one is in
// flight or the desired target is already current.
func (c *Controller) advance() {
	if c.state == StateTransitioning || c.desired.Equal(c.current) {
		return
	}

	target := c.desired
	c.current = target
	c.events.FrameChanging(target.Frame)

	front := c.pair.Front()
	if front.QuadLoaded() && target.Style == nil {
		front.SetURL(c.url(target))
		front.ActivateFrame(target.Frame)
		c.stats.FastPaths++
		c.logger.Debug("frame switched on front layer", "frame", target.Frame)
		c.events.FrameChanged(target.Frame)
		return
	}

	if err := c.pair.EnsureSecondLayer(); err != nil {
		c.logger.Error("cannot set up double buffering", "err", err)
		c.current = types.RenderTarget{}
		return
	}

	// a quad frame left active on the front layer would be drawn over its
	// tiles while the back layer loads
	front.ClearFrame()

	c.state = StateTransitioning
	c.loaded = false
	c.active = target
	c.logger.Debug("transition started", "target", target)
	c.engine.OnIdle(c.loadBack)
}

// loadBack runs on the first idle notification. Requests that arrived in
// the meantime are folded in: the back layer loads the latest target.
func (c *Controller) loadBack() {
	if c.deleted {
		return
	}
	if !c.desired.Equal(c.active) {
		c.events.FrameChanging(c.desired.Frame)
	}
	c.active = c.desired
	c.current = c.desired
	c.loaded = true

	c.pair.LoadInto(c.pair.Back(), c.url(c.active), c.active.Frame, c.active.Style)
	c.engine.OnIdle(c.settle)
}

// settle runs on the second idle notification, once the back layer is drawn.
func (c *Controller) settle() {
	if c.deleted {
		return
	}
	activated := c.active

	c.pair.Swap()
	c.state = StateIdle
	c.loaded = false
	c.active = types.RenderTarget{}
	c.stats.Transitions++
	c.logger.Debug("transition settled", "target", activated)
	c.events.FrameChanged(activated.Frame)

	// whatever arrived while the back layer was loading starts right away
	c.advance()
}

func (c *Controller) url(t types.RenderTarget) string {
	return frameurl.Build(c.baseURL, t.Frame, t.Style)
}

// Destroy makes the controller inert. Idle callbacks still queued in the
// engine become no-ops.
func (c *Controller) Destroy() {
	c.deleted = true
	c.state = StateIdle
}
