// Package rendertest provides a recording rendering engine for tests. Idle
// notifications are only delivered when the test fires them.
package rendertest

import (
	"fmt"

	"github.com/matjam/smoothtile/internal/render"
	"github.com/matjam/smoothtile/internal/types"
)

type Layer struct {
	Name string
	Kind render.LayerKind

	url        string
	frame      *types.Frame
	quadLoaded bool
	opts       render.LayerOptions

	URLSets      []string
	Activations  []types.Frame
	Clears       int
	MoveDowns    int
	QuadSetups   int
	QuadOptions  render.QuadOptions
	QuadMetadata types.Metadata
}

func (l *Layer) URL() string { return l.url }

func (l *Layer) SetURL(url string) {
	l.url = url
	l.URLSets = append(l.URLSets, url)
}

func (l *Layer) ActivateFrame(f types.Frame) {
	l.frame = &f
	l.Activations = append(l.Activations, f)
}

func (l *Layer) ClearFrame() {
	l.frame = nil
	l.Clears++
}

func (l *Layer) MoveDown() { l.MoveDowns++ }

func (l *Layer) QuadLoaded() bool { return l.quadLoaded }

// SetQuadLoaded simulates the frame quad finishing (or failing) to load.
func (l *Layer) SetQuadLoaded(loaded bool) { l.quadLoaded = loaded }

func (l *Layer) Options() render.LayerOptions { return l.opts }

// Frame returns the active quad frame, if any.
func (l *Layer) Frame() (types.Frame, bool) {
	if l.frame == nil {
		return 0, false
	}
	return *l.frame, true
}

// Engine implements render.Engine.
type Engine struct {
	Layers        []*Layer
	Bounds        *types.Bounds
	Projection    string
	QueueClears   int
	Exited        bool
	IdleRequested int

	// QuadLoads is the loaded flag given to layers by SetFrameQuad.
	QuadLoads bool
	// CreateErr is returned by CreateLayer when set.
	CreateErr error

	idle []func()
}

func New() *Engine { return &Engine{} }

func (e *Engine) CreateLayer(kind render.LayerKind, opts render.LayerOptions) (render.Layer, error) {
	if e.CreateErr != nil {
		return nil, e.CreateErr
	}
	l := &Layer{
		Name: fmt.Sprintf("layer%d", len(e.Layers)),
		Kind: kind,
		url:  opts.URL,
		opts: opts,
	}
	e.Layers = append(e.Layers, l)
	return l, nil
}

func (e *Engine) SetFrameQuad(layer render.Layer, meta types.Metadata, opts render.QuadOptions) error {
	l, ok := layer.(*Layer)
	if !ok {
		return fmt.Errorf("rendertest: foreign layer %T", layer)
	}
	l.QuadSetups++
	l.QuadOptions = opts
	l.QuadMetadata = meta
	l.quadLoaded = e.QuadLoads
	return nil
}

func (e *Engine) SetBounds(b types.Bounds, projection string) {
	e.Bounds = &b
	e.Projection = projection
}

func (e *Engine) OnIdle(cb func()) {
	e.IdleRequested++
	e.idle = append(e.idle, cb)
}

func (e *Engine) ClearAnimationQueue() { e.QueueClears++ }

func (e *Engine) Exit() { e.Exited = true }

// PendingIdle is the number of idle callbacks waiting to be fired.
func (e *Engine) PendingIdle() int { return len(e.idle) }

// FireIdle delivers the idle callbacks registered so far. Callbacks
// registered while firing wait for the next call.
func (e *Engine) FireIdle() int {
	cbs := e.idle
	e.idle = nil
	for _, cb := range cbs {
		cb()
	}
	return len(cbs)
}

// Settle fires idle notifications until none are pending.
func (e *Engine) Settle() {
	for i := 0; e.PendingIdle() > 0; i++ {
		if i > 1000 {
			panic("rendertest: idle callbacks never settle")
		}
		e.FireIdle()
	}
}
