// Package engine is a headless tile rendering engine. Layers "draw" by
// fetching the tiles of one zoom level for their current source; the engine
// reports idle once every queued and running draw has finished.
//
// Engine methods must be called from the owner's goroutine. Callbacks are
// handed back to that goroutine through the post function given to New.
package engine

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/golang/groupcache"
	"github.com/matjam/smoothtile/internal/render"
	"github.com/matjam/smoothtile/internal/types"
	"github.com/sourcegraph/conc/pool"
	"resty.dev/v3"
)

const (
	DefaultCacheBytes  = 64 << 20
	DefaultConcurrency = 6
)

var groupSeq atomic.Int64

type Options struct {
	Client        *resty.Client
	CacheBytes    int64 // tile cache size
	PrefetchLevel int   // zoom level fetched by every draw
	Concurrency   int   // tile requests in flight per draw
}

type Stats struct {
	Draws        uint64 `json:"draws"`
	TilesFetched uint64 `json:"tiles_fetched"`
	TilesFailed  uint64 `json:"tiles_failed"`
	Pending      int    `json:"pending"`
}

type job struct {
	layer *Layer
	quad  *render.QuadOptions // nil for a tile draw
	url   string
}

type Engine struct {
	mu      sync.Mutex
	post    func(func())
	client  *resty.Client
	tiles   *groupcache.Group
	meta    types.Metadata
	level   int
	workers int
	logger  *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	layers    []*Layer // bottom to top
	queue     []job    // animation queue, started on the next tick
	ticking   bool
	pending   int
	idle      []func()
	bounds    *types.Bounds
	exited    bool
	projected string

	draws, fetched, failed atomic.Uint64
}

func New(meta types.Metadata, post func(func()), opts Options) *Engine {
	if opts.Client == nil {
		opts.Client = resty.New()
	}
	if opts.CacheBytes <= 0 {
		opts.CacheBytes = DefaultCacheBytes
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		post:    post,
		client:  opts.Client,
		meta:    meta,
		level:   clamp(opts.PrefetchLevel, 0, max(meta.Levels-1, 0)),
		workers: opts.Concurrency,
		logger:  log.WithPrefix("engine"),
		ctx:     ctx,
		cancel:  cancel,
	}

	// group names are process global
	name := "tiles-" + strconv.FormatInt(groupSeq.Add(1), 10)
	e.tiles = groupcache.NewGroup(name, opts.CacheBytes, groupcache.GetterFunc(e.fetch))
	return e
}

func (e *Engine) fetch(ctx context.Context, key string, dest groupcache.Sink) error {
	res, err := e.client.R().SetContext(ctx).Get(key)
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("GET %s: %s", key, res.Status())
	}
	return dest.SetBytes(res.Bytes())
}

func (e *Engine) CreateLayer(kind render.LayerKind, opts render.LayerOptions) (render.Layer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.exited {
		return nil, ErrExited
	}

	l := &Layer{engine: e, kind: kind, opts: opts, url: opts.URL}
	e.layers = append(e.layers, l)
	if l.url != "" {
		e.enqueueLocked(job{layer: l, url: l.url})
	}
	return l, nil
}

func (e *Engine) SetFrameQuad(layer render.Layer, meta types.Metadata, opts render.QuadOptions) error {
	l, ok := layer.(*Layer)
	if !ok || l.engine != e {
		return fmt.Errorf("layer %T does not belong to this engine", layer)
	}
	if meta.NumFrames() < 2 {
		// nothing to switch between; frame activation stays a no-op
		l.quadLoaded.Store(true)
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.exited {
		return ErrExited
	}
	e.enqueueLocked(job{layer: l, quad: &opts, url: withQuery(opts.BaseURL+"/tile_frames", opts.Query)})
	return nil
}

func (e *Engine) SetBounds(b types.Bounds, projection string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bounds = &b
	e.projected = projection
}

func (e *Engine) OnIdle(cb func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.exited {
		return
	}
	if e.pending == 0 {
		e.post(cb)
		return
	}
	e.idle = append(e.idle, cb)
}

func (e *Engine) ClearAnimationQueue() {
	e.mu.Lock()
	dropped := len(e.queue)
	e.queue = nil
	e.pending -= dropped
	cbs := e.drainedLocked()
	e.mu.Unlock()

	if dropped > 0 {
		e.logger.Debug("animation queue cleared", "dropped", dropped)
	}
	e.postAll(cbs)
}

func (e *Engine) Exit() {
	e.mu.Lock()
	if e.exited {
		e.mu.Unlock()
		return
	}
	e.exited = true
	e.queue = nil
	e.idle = nil
	e.layers = nil
	e.mu.Unlock()

	e.cancel()
	e.logger.Debug("engine exited")
}

// Wait blocks until every running draw has returned.
func (e *Engine) Wait() { e.wg.Wait() }

func (e *Engine) Stats() Stats {
	e.mu.Lock()
	pending := e.pending
	e.mu.Unlock()
	return Stats{
		Draws:        e.draws.Load(),
		TilesFetched: e.fetched.Load(),
		TilesFailed:  e.failed.Load(),
		Pending:      pending,
	}
}

// Stack returns the layers from bottom to top.
func (e *Engine) Stack() []*Layer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Layer(nil), e.layers...)
}

func (e *Engine) Bounds() (types.Bounds, string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.bounds == nil {
		return types.Bounds{}, "", false
	}
	return *e.bounds, e.projected, true
}

// enqueueLocked adds a draw to the animation queue and makes sure a tick
// is scheduled to start it.
func (e *Engine) enqueueLocked(j job) {
	e.queue = append(e.queue, j)
	e.pending++
	if !e.ticking {
		e.ticking = true
		e.post(e.tick)
	}
}

// tick starts every queued draw.
func (e *Engine) tick() {
	e.mu.Lock()
	jobs := e.queue
	e.queue = nil
	e.ticking = false
	exited := e.exited
	e.mu.Unlock()

	if exited {
		return
	}
	for _, j := range jobs {
		e.wg.Add(1)
		go e.run(j)
	}
}

func (e *Engine) run(j job) {
	defer e.wg.Done()
	defer e.finish()

	e.draws.Add(1)
	if j.quad != nil {
		if err := e.get(j.url); err != nil {
			e.logger.Warn("frame quad unavailable", "url", j.url, "err", err)
			return
		}
		j.layer.quadLoaded.Store(true)
		return
	}

	p := pool.New().WithMaxGoroutines(e.workers)
	for _, u := range e.tileURLs(j.url) {
		p.Go(func() {
			if err := e.get(u); err != nil {
				// a failed tile is left blank; the draw still completes
				e.logger.Debug("tile failed", "url", u, "err", err)
			}
		})
	}
	p.Wait()
}

func (e *Engine) get(u string) error {
	var data []byte
	if err := e.tiles.Get(e.ctx, u, groupcache.AllocatingByteSliceSink(&data)); err != nil {
		e.failed.Add(1)
		return err
	}
	e.fetched.Add(1)
	return nil
}

func (e *Engine) finish() {
	e.mu.Lock()
	e.pending--
	cbs := e.drainedLocked()
	e.mu.Unlock()
	e.postAll(cbs)
}

// drainedLocked hands out the idle callbacks once nothing is pending.
func (e *Engine) drainedLocked() []func() {
	if e.pending > 0 || e.exited {
		return nil
	}
	if e.pending < 0 {
		e.pending = 0
	}
	cbs := e.idle
	e.idle = nil
	return cbs
}

func (e *Engine) postAll(cbs []func()) {
	for _, cb := range cbs {
		e.post(cb)
	}
}

// tileURLs expands a tile template for every tile of the prefetch level.
func (e *Engine) tileURLs(template string) []string {
	scale := math.Pow(2, float64(max(e.meta.Levels-1, 0)-e.level))
	cols, rows := 1, 1
	if e.meta.TileWidth > 0 && e.meta.TileHeight > 0 {
		cols = max(int(math.Ceil(float64(e.meta.SizeX)/(float64(e.meta.TileWidth)*scale))), 1)
		rows = max(int(math.Ceil(float64(e.meta.SizeY)/(float64(e.meta.TileHeight)*scale))), 1)
	}

	urls := make([]string, 0, cols*rows)
	z := strconv.Itoa(e.level)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			r := strings.NewReplacer("{z}", z, "{x}", strconv.Itoa(x), "{y}", strconv.Itoa(y))
			urls = append(urls, r.Replace(template))
		}
	}
	return urls
}

func (e *Engine) moveDown(l *Layer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, other := range e.layers {
		if other == l {
			if i > 0 {
				e.layers[i-1], e.layers[i] = e.layers[i], e.layers[i-1]
			}
			return
		}
	}
}

func (e *Engine) redraw(l *Layer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.exited || l.url == "" {
		return
	}
	e.enqueueLocked(job{layer: l, url: l.url})
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func withQuery(u, query string) string {
	if query == "" {
		return u
	}
	if strings.Contains(u, "?") {
		return u + "&" + query
	}
	return u + "?" + query
}
