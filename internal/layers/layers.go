// Package layers keeps two rendering engine layers as a front/back pair so
// a new frame can load out of sight and then be shown in one step.
package layers

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/matjam/smoothtile/internal/render"
	"github.com/matjam/smoothtile/internal/types"
)

var ErrReleased = errors.New("layer pair released")

// QuadSetup is what the front layer's frame quad was configured with. The
// back layer gets the same quad.
type QuadSetup struct {
	Metadata types.Metadata
	Options  render.QuadOptions
}

// Pair owns the front (visible, stacked on top) and back (hidden) layers.
// The back layer only exists after EnsureSecondLayer.
type Pair struct {
	engine render.Engine
	front  render.Layer
	back   render.Layer
	bottom render.Layer // optional base map layer, kept under both
	quad   QuadSetup

	logger *log.Logger
}

func New(engine render.Engine, front, bottom render.Layer, quad QuadSetup) *Pair {
	return &Pair{
		engine: engine,
		front:  front,
		bottom: bottom,
		quad:   quad,
		logger: log.WithPrefix("layers"),
	}
}

func (p *Pair) Front() render.Layer { return p.front }
func (p *Pair) Back() render.Layer  { return p.back }

// Materialized reports whether the back layer has been created.
func (p *Pair) Materialized() bool { return p.back != nil }

// EnsureSecondLayer creates the back layer from the front layer's options
// and stacks it below the front. Calling it again does nothing.
func (p *Pair) EnsureSecondLayer() error {
	if p.back != nil {
		return nil
	}
	if p.front == nil {
		return ErrReleased
	}

	back, err := p.engine.CreateLayer(render.LayerKindOSM, p.front.Options())
	if err != nil {
		return fmt.Errorf("creating back layer: %w", err)
	}
	back.MoveDown()
	if err := p.engine.SetFrameQuad(back, p.quad.Metadata, p.quad.Options); err != nil {
		// the layer still works, it just loads every frame as tiles
		p.logger.Warn("frame quad setup failed for back layer", "err", err)
	}
	back.ActivateFrame(0)

	p.back = back
	p.logger.Debug("back layer created", "url", back.URL())
	return nil
}

// LoadInto points layer at url. Without a style the frame is activated
// through the frame quad; styled sources are rendered by the server, so any
// quad frame is cleared instead.
func (p *Pair) LoadInto(layer render.Layer, url string, frame types.Frame, style types.Style) {
	if layer == nil {
		return
	}
	layer.SetURL(url)
	if style == nil {
		layer.ActivateFrame(frame)
	} else {
		layer.ClearFrame()
	}
}

// Swap moves the front layer down and exchanges the front and back roles.
// It only restacks; no layer source changes.
func (p *Pair) Swap() {
	if p.front == nil || p.back == nil {
		return
	}
	p.front.MoveDown()
	if p.bottom != nil {
		p.bottom.MoveDown()
	}
	p.front, p.back = p.back, p.front
}

// Release drops every layer reference. The engine frees the layers on exit.
func (p *Pair) Release() {
	p.front = nil
	p.back = nil
	p.bottom = nil
}
