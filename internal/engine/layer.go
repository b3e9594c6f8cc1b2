package engine

import (
	"errors"
	"sync/atomic"

	"github.com/matjam/smoothtile/internal/render"
	"github.com/matjam/smoothtile/internal/types"
)

var ErrExited = errors.New("engine has exited")

// Layer is a tiled layer of the headless engine.
type Layer struct {
	engine *Engine
	kind   render.LayerKind
	opts   render.LayerOptions

	url        string
	frame      *types.Frame
	quadLoaded atomic.Bool
}

func (l *Layer) URL() string { return l.url }

func (l *Layer) SetURL(url string) {
	l.url = url
	l.engine.redraw(l)
}

// ActivateFrame shows f from the frame quad. Without a loaded quad the
// layer has to draw the frame's tiles instead.
func (l *Layer) ActivateFrame(f types.Frame) {
	l.frame = &f
	if !l.quadLoaded.Load() {
		l.engine.redraw(l)
	}
}

func (l *Layer) ClearFrame() {
	if l.frame == nil {
		return
	}
	l.frame = nil
	l.engine.redraw(l)
}

func (l *Layer) Frame() (types.Frame, bool) {
	if l.frame == nil {
		return 0, false
	}
	return *l.frame, true
}

func (l *Layer) MoveDown() { l.engine.moveDown(l) }

func (l *Layer) QuadLoaded() bool { return l.quadLoaded.Load() }

func (l *Layer) Options() render.LayerOptions { return l.opts }

func (l *Layer) Kind() render.LayerKind { return l.kind }
