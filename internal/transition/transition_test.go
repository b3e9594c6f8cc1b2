package transition

import (
	"net/url"
	"testing"

	"github.com/matjam/smoothtile/internal/layers"
	"github.com/matjam/smoothtile/internal/render"
	"github.com/matjam/smoothtile/internal/render/rendertest"
	"github.com/matjam/smoothtile/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tileURL = "http://tiles.local/item/abc/tiles/zxy/{z}/{x}/{y}"

type recorder struct {
	changing []types.Frame
	changed  []types.Frame
}

func (r *recorder) FrameChanging(f types.Frame) { r.changing = append(r.changing, f) }
func (r *recorder) FrameChanged(f types.Frame)  { r.changed = append(r.changed, f) }

type fixture struct {
	engine *rendertest.Engine
	front  *rendertest.Layer
	pair   *layers.Pair
	events *recorder
	ctrl   *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	engine := rendertest.New()
	l, err := engine.CreateLayer(render.LayerKindOSM, render.LayerOptions{URL: tileURL})
	require.NoError(t, err)
	front := l.(*rendertest.Layer)

	pair := layers.New(engine, front, nil, layers.QuadSetup{})
	events := &recorder{}
	return &fixture{
		engine: engine,
		front:  front,
		pair:   pair,
		events: events,
		ctrl:   New(engine, pair, events),
	}
}

// visible returns the front layer as seen by the test engine.
func (f *fixture) visible() *rendertest.Layer {
	return f.pair.Front().(*rendertest.Layer)
}

func frameParam(t *testing.T, u string) string {
	t.Helper()
	parsed, err := url.Parse(u)
	require.NoError(t, err)
	return parsed.Query().Get("frame")
}

func TestInitialDefaultRequestDoesNothing(t *testing.T) {
	f := newFixture(t)

	f.ctrl.RequestTarget(0, nil)

	assert.Len(t, f.engine.Layers, 1)
	assert.Zero(t, f.engine.IdleRequested)
	assert.Empty(t, f.events.changing)
	assert.False(t, f.pair.Materialized())
}

func TestTransitionSwapsAfterTwoIdleNotifications(t *testing.T) {
	f := newFixture(t)

	f.ctrl.RequestTarget(3, nil)
	require.True(t, f.pair.Materialized())
	back := f.engine.Layers[1]

	assert.Equal(t, StateTransitioning, f.ctrl.State())
	assert.Equal(t, []types.Frame{3}, f.events.changing)
	assert.Empty(t, f.events.changed)
	assert.Equal(t, 1, f.front.Clears)
	assert.Same(t, f.front, f.visible())

	require.Equal(t, 1, f.engine.FireIdle())
	assert.Equal(t, tileURL+"?frame=3", back.URL())
	frame, ok := back.Frame()
	assert.True(t, ok)
	assert.Equal(t, types.Frame(3), frame)
	assert.Same(t, f.front, f.visible(), "swap must wait for the back layer to draw")

	require.Equal(t, 1, f.engine.FireIdle())
	assert.Same(t, back, f.visible())
	assert.Equal(t, 1, f.front.MoveDowns)
	assert.Equal(t, []types.Frame{3}, f.events.changed)
	assert.Equal(t, StateIdle, f.ctrl.State())
	assert.Zero(t, f.engine.PendingIdle())
	assert.Equal(t, uint64(1), f.ctrl.Stats().Transitions)
}

func TestRepeatedRequestIsNoop(t *testing.T) {
	f := newFixture(t)

	f.ctrl.RequestTarget(3, nil)
	f.ctrl.RequestTarget(3, nil)
	f.engine.Settle()
	f.ctrl.RequestTarget(3, nil)
	f.engine.Settle()

	back := f.engine.Layers[1]
	assert.Len(t, back.URLSets, 1)
	assert.Equal(t, []types.Frame{3}, f.events.changed)
	assert.Equal(t, []types.Frame{3}, f.events.changing)
	assert.Zero(t, f.ctrl.Stats().Superseded)
}

func TestRequestsDuringTransitionAreCoalesced(t *testing.T) {
	f := newFixture(t)

	f.ctrl.RequestTarget(3, nil)
	f.ctrl.RequestTarget(7, nil)
	f.ctrl.RequestTarget(5, nil)
	f.engine.Settle()

	assert.Equal(t, []types.Frame{5}, f.events.changed)
	assert.Equal(t, []types.Frame{3, 5}, f.events.changing)
	for _, l := range f.engine.Layers {
		for _, u := range l.URLSets {
			assert.NotEqual(t, "3", frameParam(t, u))
			assert.NotEqual(t, "7", frameParam(t, u))
		}
		assert.NotContains(t, l.Activations, types.Frame(3))
		assert.NotContains(t, l.Activations, types.Frame(7))
	}
	assert.Equal(t, tileURL+"?frame=5", f.visible().URL())
	assert.Equal(t, types.RenderTarget{Frame: 5}, f.ctrl.Desired())
	assert.Equal(t, uint64(1), f.ctrl.Stats().Transitions)
	assert.Equal(t, uint64(2), f.ctrl.Stats().Superseded)
}

func TestRequestAfterBackLoadReentersWithLatestTarget(t *testing.T) {
	f := newFixture(t)

	f.ctrl.RequestTarget(3, nil)
	f.engine.FireIdle() // back layer now loading frame 3

	f.ctrl.RequestTarget(7, nil)
	f.ctrl.RequestTarget(5, nil)
	assert.Equal(t, types.RenderTarget{Frame: 5}, f.ctrl.Desired())

	f.engine.FireIdle() // swap to 3, then start towards 5
	assert.Equal(t, []types.Frame{3}, f.events.changed)
	assert.Equal(t, StateTransitioning, f.ctrl.State())

	f.engine.Settle()
	assert.Equal(t, []types.Frame{3, 5}, f.events.changed)
	assert.Equal(t, tileURL+"?frame=5", f.visible().URL())
	frame, ok := f.visible().Frame()
	assert.True(t, ok)
	assert.Equal(t, types.Frame(5), frame)
	assert.Equal(t, uint64(1), f.ctrl.Stats().Superseded)
}

func TestVisibleLayerMatchesCompletedTarget(t *testing.T) {
	f := newFixture(t)
	style := types.Style{"min": 0, "max": 4000}

	f.ctrl.RequestTarget(2, style)
	f.engine.Settle()

	visible := f.visible()
	u, err := url.Parse(visible.URL())
	require.NoError(t, err)
	assert.Equal(t, "2", u.Query().Get("frame"))
	assert.Equal(t, style.Canonical(), u.Query().Get("style"))
	_, ok := visible.Frame()
	assert.False(t, ok, "styled layers show tiles, not quad frames")
	assert.True(t, f.ctrl.Current().Equal(types.RenderTarget{Frame: 2, Style: style}))
}

func TestStyleChangeAloneTriggersTransition(t *testing.T) {
	f := newFixture(t)

	f.ctrl.RequestTarget(2, types.Style{"max": 10})
	f.engine.Settle()
	f.ctrl.RequestTarget(2, types.Style{"max": 10})
	assert.Zero(t, f.engine.PendingIdle())

	f.ctrl.RequestTarget(2, types.Style{"max": 20})
	assert.Equal(t, StateTransitioning, f.ctrl.State())
	f.engine.Settle()
	assert.Equal(t, []types.Frame{2, 2}, f.events.changed)
}

func TestSwapNeverSetsURL(t *testing.T) {
	f := newFixture(t)

	f.ctrl.RequestTarget(4, nil)
	f.engine.FireIdle()
	back := f.engine.Layers[1]
	frontSets, backSets := len(f.front.URLSets), len(back.URLSets)

	f.engine.FireIdle() // swap
	assert.Len(t, f.front.URLSets, frontSets)
	assert.Len(t, back.URLSets, backSets)
}

func TestFastPathSkipsDoubleBuffering(t *testing.T) {
	f := newFixture(t)
	f.front.SetQuadLoaded(true)

	f.ctrl.RequestTarget(6, nil)

	assert.False(t, f.pair.Materialized())
	assert.Len(t, f.engine.Layers, 1)
	assert.Zero(t, f.engine.IdleRequested)
	assert.Equal(t, []types.Frame{6}, f.events.changing)
	assert.Equal(t, []types.Frame{6}, f.events.changed)
	assert.Equal(t, tileURL+"?frame=6", f.front.URL())
	frame, ok := f.front.Frame()
	assert.True(t, ok)
	assert.Equal(t, types.Frame(6), frame)
	assert.Equal(t, uint64(1), f.ctrl.Stats().FastPaths)

	// the base URL stays the unparameterized one
	f.ctrl.RequestTarget(2, nil)
	assert.Equal(t, tileURL+"?frame=2", f.front.URL())
}

func TestFastPathNotTakenWithStyle(t *testing.T) {
	f := newFixture(t)
	f.front.SetQuadLoaded(true)

	f.ctrl.RequestTarget(6, types.Style{"palette": "viridis"})

	assert.True(t, f.pair.Materialized())
	assert.Equal(t, StateTransitioning, f.ctrl.State())
	assert.Empty(t, f.events.changed)
	f.engine.Settle()
	assert.Equal(t, []types.Frame{6}, f.events.changed)
}

func TestBandFrameOverrideUsedForURL(t *testing.T) {
	f := newFixture(t)
	style := types.Style{"bands": []any{map[string]any{"frame": 9}}}

	f.ctrl.RequestTarget(1, style)
	f.engine.Settle()

	assert.Equal(t, "9", frameParam(t, f.visible().URL()))
	assert.Equal(t, []types.Frame{1}, f.events.changed)
}

func TestReturnToFrameZero(t *testing.T) {
	f := newFixture(t)

	f.ctrl.RequestTarget(3, nil)
	f.engine.Settle()
	f.ctrl.RequestTarget(0, nil)
	f.engine.Settle()

	assert.Equal(t, []types.Frame{3, 0}, f.events.changed)
	assert.Equal(t, tileURL, f.visible().URL())
}

func TestNegativeFrameIsFrameZero(t *testing.T) {
	f := newFixture(t)
	f.ctrl.RequestTarget(-4, nil)
	assert.False(t, f.pair.Materialized())
	assert.Zero(t, f.engine.IdleRequested)
}

func TestDestroyIgnoresPendingCallbacks(t *testing.T) {
	f := newFixture(t)

	f.ctrl.RequestTarget(3, nil)
	f.ctrl.Destroy()
	f.engine.Settle()

	back := f.engine.Layers[1]
	assert.Empty(t, back.URLSets)
	assert.Empty(t, f.events.changed)
	assert.Same(t, f.front, f.visible())
	assert.True(t, f.ctrl.Deleted())

	f.ctrl.RequestTarget(8, nil)
	assert.Zero(t, f.engine.PendingIdle())
	assert.Equal(t, []types.Frame{3}, f.events.changing)
}

func TestDestroyBetweenIdleNotifications(t *testing.T) {
	f := newFixture(t)

	f.ctrl.RequestTarget(3, nil)
	f.engine.FireIdle()
	f.ctrl.Destroy()
	f.engine.FireIdle()

	assert.Same(t, f.front, f.visible())
	assert.Zero(t, f.front.MoveDowns)
	assert.Empty(t, f.events.changed)
}

func TestEventFuncsNilSafe(t *testing.T) {
	var changed []types.Frame
	ev := EventFuncs{OnFrameChanged: func(f types.Frame) { changed = append(changed, f) }}
	ev.FrameChanging(1)
	ev.FrameChanged(2)
	assert.Equal(t, []types.Frame{2}, changed)
}
