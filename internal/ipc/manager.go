package ipc

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/matjam/smoothtile/internal/engine"
	"github.com/matjam/smoothtile/internal/render"
	"github.com/matjam/smoothtile/internal/types"
	"github.com/matjam/smoothtile/internal/viewer"
)

// EngineFactory builds the rendering engine. post hands callbacks back to
// the manager's loop.
type EngineFactory func(post func(func())) render.Engine

// Manager owns the viewer and runs every viewer call, command and engine
// callback on a single goroutine.
type Manager struct {
	sync.Mutex
	item   string
	meta   types.Metadata
	engine render.Engine
	viewer *viewer.Viewer

	cmds  chan Command
	tasks []func()
	wake  chan struct{}
	done  chan struct{}

	status Status
}

func NewManager(item string, meta types.Metadata, tileURL string, newEngine EngineFactory) *Manager {
	m := &Manager{
		item: item,
		meta: meta,
		cmds: make(chan Command, 16),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	m.engine = newEngine(m.Post)
	m.viewer = viewer.New(m.engine, meta, tileURL, m)
	m.status = Status{State: "idle", Frames: meta.NumFrames()}
	return m
}

// Post schedules fn on the manager's loop. It never blocks.
func (m *Manager) Post(fn func()) {
	m.Lock()
	m.tasks = append(m.tasks, fn)
	m.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) Item() string { return m.item }

func (m *Manager) Metadata() types.Metadata { return m.meta }

func (m *Manager) Status() Status {
	m.Lock()
	defer m.Unlock()
	return m.status
}

// EnqueueCommand hands cmd to the loop. It fails once the loop has ended.
func (m *Manager) EnqueueCommand(cmd Command) error {
	select {
	case <-m.done:
		return ErrStopped
	default:
	}

	select {
	case m.cmds <- cmd:
		return nil
	case <-m.done:
		return ErrStopped
	}
}

// Run renders the image and processes commands and engine callbacks until
// a stop command arrives or ctx is done.
func (m *Manager) Run(ctx context.Context) {
	defer close(m.done)
	log.Info("Starting viewer...", "item", m.item)

	if err := m.viewer.Render(); err != nil {
		log.Error("Failed to render image", "err", err)
	}
	m.refresh()

	running := true
	for running {
		select {
		case <-ctx.Done():
			log.Info("Context done, stopping viewer ...")
			running = false
		case cmd := <-m.cmds:
			running = m.handle(cmd)
		case <-m.wake:
			m.runTasks()
		}
		m.refresh()
	}

	m.viewer.Destroy()
	if w, ok := m.engine.(interface{ Wait() }); ok {
		w.Wait()
	}
	log.Info("Viewer stopped.")
}

func (m *Manager) handle(cmd Command) bool {
	switch cmd.Type {
	case CommandStop:
		log.Info("Stopping viewer ...")
		return false
	case CommandFrame:
		log.Debug("Received frame command", "frame", cmd.Frame, "styled", cmd.Style != nil)
		m.viewer.FrameUpdate(types.Frame(cmd.Frame), cmd.Style)
	case CommandStatus:
		// the snapshot is refreshed after every command
	default:
		log.Error("Unknown command", "type", cmd.Type)
	}
	return true
}

func (m *Manager) runTasks() {
	m.Lock()
	tasks := m.tasks
	m.tasks = nil
	m.Unlock()

	for _, fn := range tasks {
		fn()
	}
}

// refresh copies the viewer state into the status snapshot. It runs on the
// loop; engine stats are read before taking the manager lock because the
// engine posts while holding its own.
func (m *Manager) refresh() {
	var es engine.Stats
	if s, ok := m.engine.(interface{ Stats() engine.Stats }); ok {
		es = s.Stats()
	}

	m.Lock()
	defer m.Unlock()
	m.status.Rendered = m.viewer.Rendered()
	m.status.Engine = es
	if ctrl := m.viewer.Controller(); ctrl != nil {
		desired := ctrl.Desired()
		m.status.State = ctrl.State().String()
		m.status.DesiredFrame = int(desired.Frame)
		m.status.DesiredStyle = desired.Style
		m.status.Controller = ctrl.Stats()
	}
}

func (m *Manager) FrameChanging(frame types.Frame) {
	log.Debug("Frame changing", "frame", frame)
	f := int(frame)
	m.Lock()
	m.status.ChangingFrame = &f
	m.Unlock()
}

func (m *Manager) FrameChanged(frame types.Frame) {
	log.Info("Frame changed", "frame", frame)
	f := int(frame)
	m.Lock()
	m.status.ChangingFrame = nil
	m.status.ChangedFrame = &f
	m.Unlock()
}

func (m *Manager) ImageRendered() {
	log.Info("Image rendered", "item", m.item, "frames", m.meta.NumFrames())
}

// HeadlessEngine returns a factory for the HTTP tile engine.
func HeadlessEngine(meta types.Metadata, opts engine.Options) EngineFactory {
	return func(post func(func())) render.Engine {
		return engine.New(meta, post, opts)
	}
}
