package render

import (
	"github.com/matjam/smoothtile/internal/types"
)

type LayerKind string

const (
	LayerKindOSM LayerKind = "osm" // tiled image layer
)

type RendererKind string

const (
	RendererDefault RendererKind = ""
	RendererCanvas  RendererKind = "canvas"
)

// LayerOptions configure a tiled layer. They are cloned verbatim when a
// second layer is created for double buffering.
type LayerOptions struct {
	URL         string       // tile URL template containing {z}, {x} and {y}
	MaxLevel    int          // deepest zoom level served by the source
	Renderer    RendererKind // canvas is used when tiles are too large for textures
	KeepLower   bool         // keep lower-resolution tiles while loading
	Credentials bool         // send credentials with tile requests
	SizeX       int          // image size for pixel coordinate layers
	SizeY       int
	TileWidth   int
	TileHeight  int
}

// QuadOptions configure the frame quad of a layer: a set of preloaded
// low-resolution images that let a layer switch frames without refetching
// tiles.
type QuadOptions struct {
	BaseURL string // tiles endpoint of the item, without trailing slash
	Query   string // extra query appended to quad requests
}

// Layer is a rendering engine layer handle.
type Layer interface {
	URL() string                 // current tile URL template
	SetURL(url string)           // change the source; schedules a redraw
	ActivateFrame(f types.Frame) // show a frame through the frame quad
	ClearFrame()                 // stop showing a quad frame
	MoveDown()                   // restack one position lower
	QuadLoaded() bool            // every frame of the quad is available
	Options() LayerOptions
}

// Engine is the capability interface of the tile rendering engine. All
// methods are called from, and all callbacks delivered on, the owner's
// single logical thread.
type Engine interface {
	CreateLayer(kind LayerKind, opts LayerOptions) (Layer, error)
	SetFrameQuad(layer Layer, meta types.Metadata, opts QuadOptions) error
	SetBounds(b types.Bounds, projection string)
	OnIdle(cb func())     // cb runs once, later, when pending draw work drains
	ClearAnimationQueue() // drop queued animation work without waiting
	Exit()                // release every layer; the engine is unusable afterwards
}
