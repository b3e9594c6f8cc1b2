package layers

import (
	"errors"
	"testing"

	"github.com/matjam/smoothtile/internal/render"
	"github.com/matjam/smoothtile/internal/render/rendertest"
	"github.com/matjam/smoothtile/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tileURL = "http://tiles.local/item/abc/tiles/zxy/{z}/{x}/{y}"

func newPair(t *testing.T, withBottom bool) (*Pair, *rendertest.Engine) {
	t.Helper()
	engine := rendertest.New()
	var bottom render.Layer
	if withBottom {
		var err error
		bottom, err = engine.CreateLayer(render.LayerKindOSM, render.LayerOptions{})
		require.NoError(t, err)
	}
	front, err := engine.CreateLayer(render.LayerKindOSM, render.LayerOptions{URL: tileURL, MaxLevel: 5})
	require.NoError(t, err)

	quad := QuadSetup{
		Metadata: types.Metadata{SizeX: 1000, SizeY: 800},
		Options:  render.QuadOptions{BaseURL: "http://tiles.local/item/abc/tiles", Query: "cache=true"},
	}
	return New(engine, front, bottom, quad), engine
}

func TestEnsureSecondLayerIsIdempotent(t *testing.T) {
	pair, engine := newPair(t, false)
	assert.False(t, pair.Materialized())

	require.NoError(t, pair.EnsureSecondLayer())
	require.NoError(t, pair.EnsureSecondLayer())

	assert.True(t, pair.Materialized())
	require.Len(t, engine.Layers, 2)

	back := engine.Layers[1]
	assert.Same(t, back, pair.Back())
	assert.Equal(t, 1, back.MoveDowns)
	assert.Equal(t, 1, back.QuadSetups)
	assert.Equal(t, "cache=true", back.QuadOptions.Query)
	assert.Equal(t, []types.Frame{0}, back.Activations)
	assert.Equal(t, 5, back.Options().MaxLevel)
	assert.Equal(t, tileURL, back.URL())
}

func TestEnsureSecondLayerCreateError(t *testing.T) {
	pair, engine := newPair(t, false)
	engine.CreateErr = errors.New("out of textures")

	assert.Error(t, pair.EnsureSecondLayer())
	assert.False(t, pair.Materialized())
}

func TestLoadIntoWithoutStyleActivatesFrame(t *testing.T) {
	pair, engine := newPair(t, false)
	require.NoError(t, pair.EnsureSecondLayer())
	back := engine.Layers[1]

	pair.LoadInto(pair.Back(), tileURL+"?frame=3", 3, nil)

	assert.Equal(t, tileURL+"?frame=3", back.URL())
	f, ok := back.Frame()
	assert.True(t, ok)
	assert.Equal(t, types.Frame(3), f)
}

func TestLoadIntoWithStyleClearsFrame(t *testing.T) {
	pair, engine := newPair(t, false)
	require.NoError(t, pair.EnsureSecondLayer())
	back := engine.Layers[1]

	pair.LoadInto(pair.Back(), tileURL+"?style=%7B%7D", 3, types.Style{})

	_, ok := back.Frame()
	assert.False(t, ok)
	assert.Equal(t, 1, back.Clears)
}

func TestSwapOnlyRestacks(t *testing.T) {
	pair, engine := newPair(t, true)
	require.NoError(t, pair.EnsureSecondLayer())
	bottom, front, back := engine.Layers[0], engine.Layers[1], engine.Layers[2]
	frontSets, backSets := len(front.URLSets), len(back.URLSets)

	pair.Swap()

	assert.Same(t, back, pair.Front())
	assert.Same(t, front, pair.Back())
	assert.Equal(t, 1, front.MoveDowns)
	assert.Equal(t, 1, bottom.MoveDowns)
	assert.Len(t, front.URLSets, frontSets)
	assert.Len(t, back.URLSets, backSets)

	pair.Swap()
	assert.Same(t, front, pair.Front())
}

func TestSwapBeforeMaterializeIsNoop(t *testing.T) {
	pair, engine := newPair(t, false)
	pair.Swap()
	assert.Same(t, engine.Layers[0], pair.Front())
	assert.Zero(t, engine.Layers[0].MoveDowns)
}

func TestRelease(t *testing.T) {
	pair, _ := newPair(t, false)
	require.NoError(t, pair.EnsureSecondLayer())
	pair.Release()

	assert.Nil(t, pair.Front())
	assert.Nil(t, pair.Back())
	assert.ErrorIs(t, New(nil, nil, nil, QuadSetup{}).EnsureSecondLayer(), ErrReleased)
	pair.LoadInto(pair.Back(), tileURL, 1, nil)
	pair.Swap()
}
