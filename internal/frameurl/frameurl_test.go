package frameurl

import (
	"net/url"
	"testing"

	"github.com/matjam/smoothtile/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const base = "http://tiles.local/api/v1/item/abc/tiles/zxy/{z}/{x}/{y}"

func TestBuildFrameZeroNoStyle(t *testing.T) {
	assert.Equal(t, base, Build(base, 0, nil))
}

func TestBuildFrame(t *testing.T) {
	assert.Equal(t, base+"?frame=4", Build(base, 4, nil))
	assert.Equal(t, base+"?edit=true&frame=4", Build(base+"?edit=true", 4, nil))
}

func TestBuildStyle(t *testing.T) {
	style := types.Style{"min": 0, "max": 100, "palette": "#ff0000 blue"}
	got := Build(base, 2, style)

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "2", u.Query().Get("frame"))
	assert.Equal(t, `{"max":100,"min":0,"palette":"#ff0000 blue"}`, u.Query().Get("style"))
	assert.NotContains(t, got, "+")
	assert.Contains(t, got, "%20")
}

func TestBuildEmptyStyleStillEncoded(t *testing.T) {
	assert.Equal(t, base+"?style=%7B%7D", Build(base, 0, types.Style{}))
}

func TestBuildBandFrameOverride(t *testing.T) {
	style := types.Style{"bands": []any{
		map[string]any{"frame": 5, "palette": "red"},
		map[string]any{"frame": 6, "palette": "green"},
	}}
	u, err := url.Parse(Build(base, 1, style))
	require.NoError(t, err)
	assert.Equal(t, "5", u.Query().Get("frame"))
}

func TestBuildBandFrameOverrideToZeroDropsFrame(t *testing.T) {
	style := types.Style{"bands": []any{map[string]any{"frame": 0}}}
	u, err := url.Parse(Build(base, 3, style))
	require.NoError(t, err)
	assert.False(t, u.Query().Has("frame"))
	assert.True(t, u.Query().Has("style"))
}

func TestBuildNoOverrideWhenABandLacksFrame(t *testing.T) {
	style := types.Style{"bands": []any{
		map[string]any{"frame": 5},
		map[string]any{"band": 2},
	}}
	u, err := url.Parse(Build(base, 1, style))
	require.NoError(t, err)
	assert.Equal(t, "1", u.Query().Get("frame"))
}

func TestBuildNoOverrideForEmptyBands(t *testing.T) {
	u, err := url.Parse(Build(base, 1, types.Style{"bands": []any{}}))
	require.NoError(t, err)
	assert.Equal(t, "1", u.Query().Get("frame"))
}

func TestBuildBandFrameOverrideIgnoresOtherBandFields(t *testing.T) {
	style, err := types.ParseStyle([]byte(`{"bands":[{"frame":2,"composite":1}]}`))
	require.NoError(t, err)
	u, err := url.Parse(Build(base, 1, style))
	require.NoError(t, err)
	assert.Equal(t, "2", u.Query().Get("frame"))
}

func TestBuildStyleKeepsHTMLCharacters(t *testing.T) {
	assert.Equal(t, base+"?style=%7B%22palette%22%3A%22a%3Cb%26c%22%7D",
		Build(base, 0, types.Style{"palette": "a<b&c"}))
}
