package types

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Frame indexes the non-spatial axis (channel, time point, z-slice) of a
// multi-frame image. The zero value is the first frame.
type Frame int

// Style describes how raw frame data is composed into displayed color. It
// holds JSON-shaped data and is never validated; a nil Style means "raw
// frame, no style".
type Style map[string]any

// Band is one entry of a style's "bands" list.
type Band struct {
	Frame     *int           `mapstructure:"frame"`
	Band      *int           `mapstructure:"band"`
	Palette   any            `mapstructure:"palette"`
	Min       any            `mapstructure:"min"`
	Max       any            `mapstructure:"max"`
	Composite string         `mapstructure:"composite"`
	Extra     map[string]any `mapstructure:",remain"`
}

// ParseStyle decodes a JSON object into a Style. An empty input or "null"
// yields a nil Style.
func ParseStyle(data []byte) (Style, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var s Style
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("invalid style: %w", err)
	}
	return s, nil
}

// Canonical returns the JSON encoding of the style with object keys sorted
// at every level, or "" for a nil style.
func (s Style) Canonical() string {
	if s == nil {
		return ""
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]any(s)); err != nil {
		// not JSON-shaped; fall back to the printed form so equality
		// still behaves deterministically
		return fmt.Sprintf("%v", map[string]any(s))
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

// Equal reports whether both styles are nil or have the same canonical form.
func (s Style) Equal(other Style) bool {
	if (s == nil) != (other == nil) {
		return false
	}
	return s.Canonical() == other.Canonical()
}

// Bands decodes the "bands" entry. Styles without bands, or with a bands
// value that is not a list, return nil. A band whose other fields do not
// decode still reports its frame; the raw entry is kept in Extra.
func (s Style) Bands() []Band {
	var raw []any
	switch v := s["bands"].(type) {
	case []any:
		raw = v
	case []map[string]any:
		for _, m := range v {
			raw = append(raw, m)
		}
	default:
		return nil
	}
	bands := make([]Band, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			bands = append(bands, Band{})
			continue
		}
		bands = append(bands, decodeBand(m))
	}
	return bands
}

func decodeBand(m map[string]any) Band {
	var b Band
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &b,
	})
	if err == nil && dec.Decode(m) == nil {
		return b
	}
	return Band{Frame: intField(m, "frame"), Extra: m}
}

func intField(m map[string]any, key string) *int {
	var v int
	switch n := m[key].(type) {
	case float64:
		v = int(n)
	case int:
		v = n
	case int64:
		v = int(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return nil
		}
		v = int(i)
	default:
		return nil
	}
	return &v
}

// RenderTarget is the (frame, style) pair that should be on screen.
type RenderTarget struct {
	Frame Frame
	Style Style
}

func (t RenderTarget) Equal(other RenderTarget) bool {
	return t.Frame == other.Frame && t.Style.Equal(other.Style)
}

func (t RenderTarget) String() string {
	if t.Style == nil {
		return fmt.Sprintf("frame %d", t.Frame)
	}
	return fmt.Sprintf("frame %d style %s", t.Frame, t.Style.Canonical())
}

// Bounds are geospatial bounds in the projection of the tile source.
type Bounds struct {
	XMin float64 `json:"xmin"`
	XMax float64 `json:"xmax"`
	YMin float64 `json:"ymin"`
	YMax float64 `json:"ymax"`
}

// Degenerate reports whether the bounds collapse to a line or a point.
func (b Bounds) Degenerate() bool {
	return b.XMin == b.XMax || b.YMin == b.YMax
}

// Metadata is the part of the tile source description the viewer consumes.
type Metadata struct {
	SizeX      int              `json:"sizeX"`
	SizeY      int              `json:"sizeY"`
	TileWidth  int              `json:"tileWidth"`
	TileHeight int              `json:"tileHeight"`
	Levels     int              `json:"levels"`
	Geospatial bool             `json:"geospatial"`
	Bounds     *Bounds          `json:"bounds,omitempty"`
	MMX        *float64         `json:"mm_x,omitempty"`
	Frames     []map[string]any `json:"frames,omitempty"`
}

// NumFrames is the length of the frame axis; single-frame sources report 1.
func (m Metadata) NumFrames() int {
	if len(m.Frames) == 0 {
		return 1
	}
	return len(m.Frames)
}
