// Package frameurl computes tile source URLs for a (frame, style) pair.
package frameurl

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/matjam/smoothtile/internal/types"
)

// Build returns base with the frame and style query parameters appended.
//
// When every band of the style names an explicit frame, the first band's
// frame is used instead of frame.
func Build(base string, frame types.Frame, style types.Style) string {
	if bands := style.Bands(); len(bands) > 0 && allFramed(bands) {
		frame = types.Frame(*bands[0].Frame)
	}

	u := base
	if frame != 0 {
		u = appendParam(u, "frame", strconv.Itoa(int(frame)))
	}
	if style != nil {
		u = appendParam(u, "style", escape(style.Canonical()))
	}
	return u
}

func allFramed(bands []types.Band) bool {
	for _, b := range bands {
		if b.Frame == nil {
			return false
		}
	}
	return true
}

func appendParam(u, key, value string) string {
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + key + "=" + value
}

// escape percent-encodes a query component, spaces as %20.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
