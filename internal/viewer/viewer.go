// Package viewer sets up a multi-frame tiled image on a rendering engine and
// routes frame and style changes to the transition controller.
package viewer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/matjam/smoothtile/internal/layers"
	"github.com/matjam/smoothtile/internal/render"
	"github.com/matjam/smoothtile/internal/transition"
	"github.com/matjam/smoothtile/internal/types"
)

const (
	// tiles larger than this do not fit in a texture
	maxTextureSide = 8192

	WebMercator = "EPSG:3857"
)

// Events extends the transition events with the one-time render
// notification.
type Events interface {
	transition.Events
	ImageRendered()
}

// EventFuncs adapts plain functions to Events. Nil fields are skipped.
type EventFuncs struct {
	transition.EventFuncs
	OnImageRendered func()
}

func (f EventFuncs) ImageRendered() {
	if f.OnImageRendered != nil {
		f.OnImageRendered()
	}
}

type Viewer struct {
	engine  render.Engine
	meta    types.Metadata
	tileURL string
	events  Events
	logger  *log.Logger

	layer  render.Layer
	bottom render.Layer
	pair   *layers.Pair
	ctrl   *transition.Controller

	rendered bool
	deleted  bool
}

// New creates a viewer for an image described by meta whose tiles are served
// at tileURL, a template containing {z}, {x} and {y}.
func New(engine render.Engine, meta types.Metadata, tileURL string, events Events) *Viewer {
	if events == nil {
		events = EventFuncs{}
	}
	return &Viewer{
		engine:  engine,
		meta:    meta,
		tileURL: tileURL,
		events:  events,
		logger:  log.WithPrefix("viewer"),
	}
}

// Render creates the image layers and shows frame 0. It does nothing when
// already rendered, after Destroy, or when the tile size is unknown.
func (v *Viewer) Render() error {
	if v.deleted || v.rendered || v.meta.TileWidth == 0 || v.meta.TileHeight == 0 {
		return nil
	}

	params := render.LayerOptions{
		Credentials: true,
		KeepLower:   true,
		MaxLevel:    v.meta.Levels - 1,
	}
	if v.meta.TileWidth > maxTextureSide || v.meta.TileHeight > maxTextureSide {
		params.Renderer = render.RendererCanvas
	}

	if v.meta.Geospatial && v.meta.Bounds != nil {
		params.KeepLower = false
		params.URL = withQuery(v.tileURL, "encoding=PNG&projection="+WebMercator)

		bottom, err := v.engine.CreateLayer(render.LayerKindOSM, render.LayerOptions{MaxLevel: v.meta.Levels - 1})
		if err != nil {
			return fmt.Errorf("creating base map layer: %w", err)
		}
		v.bottom = bottom
		if !v.meta.Bounds.Degenerate() {
			v.engine.SetBounds(*v.meta.Bounds, WebMercator)
		}
	} else {
		params.URL = v.tileURL
		params.SizeX = v.meta.SizeX
		params.SizeY = v.meta.SizeY
		params.TileWidth = v.meta.TileWidth
		params.TileHeight = v.meta.TileHeight
	}

	layer, err := v.engine.CreateLayer(render.LayerKindOSM, params)
	if err != nil {
		return fmt.Errorf("creating image layer: %w", err)
	}
	v.layer = layer

	quad := QuadOptions(v.tileURL)
	if err := v.engine.SetFrameQuad(layer, v.meta, quad); err != nil {
		v.logger.Warn("frame quad setup failed", "err", err)
	}
	layer.ActivateFrame(0)

	v.pair = layers.New(v.engine, layer, v.bottom, layers.QuadSetup{Metadata: v.meta, Options: quad})
	v.ctrl = transition.New(v.engine, v.pair, v.events)
	v.rendered = true

	v.logger.Info("image rendered",
		"size", fmt.Sprintf("%dx%d", v.meta.SizeX, v.meta.SizeY),
		"levels", v.meta.Levels,
		"frames", v.meta.NumFrames(),
		"geospatial", v.meta.Geospatial)
	v.events.ImageRendered()
	return nil
}

// FrameUpdate requests a frame and style. Requests before Render are
// dropped; frame 0 is already shown then.
func (v *Viewer) FrameUpdate(frame types.Frame, style types.Style) {
	if v.deleted {
		return
	}
	if v.ctrl == nil {
		v.logger.Debug("frame update before render ignored", "frame", frame)
		return
	}
	v.ctrl.RequestTarget(frame, style)
}

func (v *Viewer) Metadata() types.Metadata { return v.meta }

// Controller is nil until the viewer has rendered.
func (v *Viewer) Controller() *transition.Controller { return v.ctrl }

func (v *Viewer) Rendered() bool { return v.rendered }
func (v *Viewer) Deleted() bool  { return v.deleted }

// Destroy empties the engine's animation queue, exits the engine and makes
// the viewer and its controller inert.
func (v *Viewer) Destroy() {
	if v.deleted {
		return
	}
	if v.rendered {
		v.engine.ClearAnimationQueue()
		v.engine.Exit()
	}
	if v.ctrl != nil {
		v.ctrl.Destroy()
	}
	if v.pair != nil {
		v.pair.Release()
	}
	v.layer = nil
	v.bottom = nil
	v.deleted = true
	v.logger.Debug("viewer destroyed")
}

var cacheBuster = regexp.MustCompile(`[?&](_=[^&]*)`)

// QuadOptions derives the frame quad endpoint from a tile URL template:
// everything before "/tiles/", plus the cache busting parameter if present.
func QuadOptions(tileURL string) render.QuadOptions {
	query := "cache=true"
	if m := cacheBuster.FindStringSubmatch(tileURL); m != nil && m[1] != "" {
		query += "&" + m[1]
	}
	return render.QuadOptions{
		BaseURL: strings.SplitN(tileURL, "/tiles/", 2)[0] + "/tiles",
		Query:   query,
	}
}

func withQuery(u, query string) string {
	if strings.Contains(u, "?") {
		return u + "&" + query
	}
	return u + "?" + query
}
