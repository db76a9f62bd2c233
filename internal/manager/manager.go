// Package manager is the tiling orchestrator. It consumes observer
// events and external commands, mutates the workspace state, recomputes
// layouts through the layout engine and applies the resulting frames
// via the platform source inside a batched-update guard.
//
// All OS-mutating work happens on one goroutine, the manager loop.
// Commands from other goroutines are marshaled onto it and applied in
// arrival order. The workspace state itself may be read from any
// goroutine under its own lock, which is how the queries work.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/1broseidon/tilewm/internal/config"
	"github.com/1broseidon/tilewm/internal/geometry"
	"github.com/1broseidon/tilewm/internal/layout"
	"github.com/1broseidon/tilewm/internal/observer"
	"github.com/1broseidon/tilewm/internal/platform"
	"github.com/1broseidon/tilewm/internal/state"
)

// Options wires the manager's collaborators. Source and State are
// required; Registry may be nil when no observer is running (tests).
type Options struct {
	Source   platform.WindowSource
	State    *state.ManagedState
	Config   *config.Config
	Registry *observer.Registry
	Logger   *slog.Logger
}

// Manager owns the event/command loop.
type Manager struct {
	source   platform.WindowSource
	st       *state.ManagedState
	registry *observer.Registry
	logger   *slog.Logger

	// cfg and ratioOverride are touched only from the loop goroutine.
	cfg           *config.Config
	ratioOverride map[string]float64

	events   chan observer.Event
	commands chan func()
	running  atomic.Bool
	done     chan struct{}
	stopOnce sync.Once

	listenerMu sync.Mutex
	listeners  []func(Notification)
}

// New builds a manager. Call Bootstrap before Start to seed the state
// from the current desktop contents.
func New(opts Options) *Manager {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		source:        opts.Source,
		st:            opts.State,
		registry:      opts.Registry,
		logger:        logger,
		cfg:           cfg,
		ratioOverride: make(map[string]float64),
		events:        make(chan observer.Event, 256),
		commands:      make(chan func()),
		done:          make(chan struct{}),
	}
}

// Bootstrap seeds screens, workspaces and the current window population
// and performs the initial layout pass. It runs on the caller's
// goroutine and must complete before Start.
func (m *Manager) Bootstrap() error {
	screens, err := m.source.Screens()
	if err != nil {
		return fmt.Errorf("failed to query screens: %w", err)
	}
	if len(screens) == 0 {
		return fmt.Errorf("no screens detected: %w", state.ErrScreenNotFound)
	}
	sts := make([]state.Screen, len(screens))
	for i, sc := range screens {
		sts[i] = state.Screen{ID: sc.ID, Name: sc.Name, Frame: sc.Frame}
	}
	m.st.SetScreens(sts)

	// Workspaces come from config. An explicit screen index wins;
	// otherwise they are spread round-robin across detected screens.
	for i, def := range m.cfg.Workspaces {
		idx := def.Screen
		if idx < 0 || idx >= len(screens) {
			idx = i % len(screens)
		}
		mode := def.Layout
		if mode == "" {
			mode = m.cfg.DefaultLayout
		}
		if err := m.st.CreateWorkspace(def.Name, screens[idx].ID, mode, m.cfg.GapsFor(def.Name)); err != nil {
			return fmt.Errorf("failed to create workspace %q: %w", def.Name, err)
		}
	}

	windows, err := m.source.QueryWindows()
	if err != nil {
		return fmt.Errorf("failed to query windows: %w", err)
	}
	for _, w := range windows {
		if m.cfg.ShouldSkipApp(w.AppClass) {
			continue
		}
		m.adopt(state.Window{
			ID:        w.ID,
			PID:       w.PID,
			Title:     w.Title,
			AppClass:  w.AppClass,
			Frame:     w.Frame,
			Layer:     w.Layer,
			Minimized: w.Minimized,
		})
	}

	if m.registry != nil {
		if err := m.registry.Initialize(windows); err != nil {
			return fmt.Errorf("observer initialization failed: %w", err)
		}
	}

	if id, err := m.source.ActiveWindow(); err == nil && id != 0 {
		if err := m.st.SetFocus(id); err == nil {
			m.logger.Debug("initial focus", "window", id)
		}
	}

	m.logger.Info("bootstrap complete",
		"screens", len(screens),
		"workspaces", len(m.cfg.Workspaces),
		"windows", len(windows))

	return m.retileAll()
}

// Start launches the manager loop and returns once it is accepting
// work. The loop exits when ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	ready := make(chan struct{})
	go m.run(ctx, ready)
	<-ready
}

func (m *Manager) run(ctx context.Context, ready chan<- struct{}) {
	m.running.Store(true)
	close(ready)
	defer m.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-m.events:
			m.handleEvent(ev)
		case fn := <-m.commands:
			fn()
		}
	}
}

// shutdown flips the not-running flag first so that events and commands
// observed afterwards are dropped rather than applied.
func (m *Manager) shutdown() {
	m.running.Store(false)
	m.stopOnce.Do(func() { close(m.done) })
	if m.registry != nil {
		m.registry.Shutdown()
	}
	m.logger.Info("manager stopped")
}

// Running reports whether the loop is accepting events and commands.
func (m *Manager) Running() bool {
	return m.running.Load()
}

// Done is closed when the loop has exited.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// EnqueueEvent hands an observer event to the loop. Events arriving
// after shutdown are dropped.
func (m *Manager) EnqueueEvent(ev observer.Event) {
	if !m.running.Load() {
		return
	}
	select {
	case m.events <- ev:
	case <-m.done:
	}
}

// do marshals fn onto the manager loop and waits for its result.
func (m *Manager) do(fn func() error) error {
	if !m.running.Load() {
		return ErrNotRunning
	}
	reply := make(chan error, 1)
	select {
	case m.commands <- func() { reply <- fn() }:
	case <-m.done:
		return ErrNotRunning
	}
	select {
	case err := <-reply:
		return err
	case <-m.done:
		return ErrNotRunning
	}
}

func (m *Manager) handleEvent(ev observer.Event) {
	switch ev.Kind {
	case observer.WindowCreated:
		m.onWindowCreated(ev)
	case observer.WindowDestroyed:
		m.onWindowDestroyed(ev)
	case observer.WindowFocused:
		if err := m.st.SetFocus(ev.Window); err == nil {
			m.emit(Notification{Kind: NotifyWindowFocused, Window: ev.Window})
		}
	case observer.WindowMoved:
		if err := m.st.SetWindowFrame(ev.Window, ev.Frame); err == nil {
			m.emit(Notification{Kind: NotifyWindowMoved, Window: ev.Window, Frame: ev.Frame})
		}
	case observer.WindowResized:
		if err := m.st.SetWindowFrame(ev.Window, ev.Frame); err == nil {
			m.emit(Notification{Kind: NotifyWindowResized, Window: ev.Window, Frame: ev.Frame})
		}
	case observer.WindowMinimized:
		if err := m.st.SetWindowMinimized(ev.Window, true); err == nil {
			m.retileWorkspaceOf(ev.Window)
		}
	case observer.WindowUnminimized:
		if err := m.st.SetWindowMinimized(ev.Window, false); err == nil {
			m.retileWorkspaceOf(ev.Window)
		}
	case observer.TitleChanged:
		_ = m.st.SetWindowTitle(ev.Window, ev.Title)
	case observer.AppActivated:
		// Per-window tracking happens on the created events; nothing
		// to do for the app itself.
		m.logger.Debug("app activated", "pid", ev.PID)
	case observer.AppTerminated:
		// The registry already synthesized destroyed events for the
		// app's remaining windows.
		m.logger.Debug("app terminated", "pid", ev.PID)
	default:
		m.logger.Debug("ignoring event", "kind", ev.Kind.String(), "window", ev.Window)
	}
}

func (m *Manager) onWindowCreated(ev observer.Event) {
	if _, err := m.st.Window(ev.Window); err == nil {
		return // already managed, duplicate delivery
	}
	if m.cfg.ShouldSkipApp(ev.AppClass) {
		m.logger.Debug("skipping window", "window", ev.Window, "app", ev.AppClass)
		return
	}

	ws := m.adopt(state.Window{
		ID:       ev.Window,
		PID:      ev.PID,
		Title:    ev.Title,
		AppClass: ev.AppClass,
		Frame:    ev.Frame,
	})

	if m.registry != nil {
		err := m.registry.Track(platform.Window{
			ID:       ev.Window,
			PID:      ev.PID,
			AppClass: ev.AppClass,
			Title:    ev.Title,
			Frame:    ev.Frame,
		})
		if err != nil {
			// The window stays managed but unobserved.
			m.logger.Warn("failed to observe window", "window", ev.Window, "error", err)
		}
	}

	if ws != "" {
		if err := m.retile(ws); err != nil {
			m.logger.Warn("relayout after window create", "workspace", ws, "error", err)
		}
	}
	m.emit(Notification{Kind: NotifyWindowCreated, Window: ev.Window, Workspace: ws})
}

func (m *Manager) onWindowDestroyed(ev observer.Event) {
	ws, _ := m.st.WorkspaceForWindow(ev.Window)
	if _, err := m.st.Window(ev.Window); err != nil {
		return
	}
	m.st.RemoveWindow(ev.Window)
	if m.registry != nil {
		m.registry.Untrack(ev.Window)
	}
	if ws != "" {
		if err := m.retile(ws); err != nil {
			m.logger.Warn("relayout after window destroy", "workspace", ws, "error", err)
		}
	}
	m.emit(Notification{Kind: NotifyWindowDestroyed, Window: ev.Window, Workspace: ws})
}

// adopt registers a window, applies any matching rule and assigns it to
// a workspace. It returns the workspace name, or "" if the window ended
// up unmanaged.
func (m *Manager) adopt(w state.Window) string {
	rule, hasRule := m.cfg.RuleFor(w.AppClass, w.Title)
	if hasRule && rule.Floating {
		w.Floating = true
	}
	m.st.AddWindow(w)

	target := ""
	if hasRule && rule.Workspace != "" {
		if _, err := m.st.Workspace(rule.Workspace); err == nil {
			target = rule.Workspace
		} else {
			m.logger.Warn("rule names unknown workspace", "workspace", rule.Workspace, "app", w.AppClass)
		}
	}
	if target == "" {
		target = m.workspaceForFrame(w.Frame)
	}
	if target == "" {
		return ""
	}
	if err := m.st.AssignWindow(w.ID, target); err != nil {
		m.logger.Warn("failed to assign window", "window", w.ID, "workspace", target, "error", err)
		return ""
	}

	if hasRule && rule.Preset != "" {
		if preset, ok := m.cfg.FindPreset(rule.Preset); ok {
			if err := m.placePreset(w.ID, target, preset); err != nil {
				m.logger.Warn("failed to apply preset rule", "window", w.ID, "preset", rule.Preset, "error", err)
			}
		}
	}
	return target
}

// workspaceForFrame picks the active workspace of the screen holding
// the frame's center, falling back to the first workspace anywhere.
func (m *Manager) workspaceForFrame(frame geometry.Rect) string {
	center := frame.Center()
	var fallback string
	for _, sc := range m.st.Screens() {
		if fallback == "" && sc.ActiveWorkspace != "" {
			fallback = sc.ActiveWorkspace
		}
		if sc.Frame.Contains(center) && sc.ActiveWorkspace != "" {
			return sc.ActiveWorkspace
		}
	}
	if fallback != "" {
		return fallback
	}
	for _, ws := range m.st.Workspaces() {
		return ws.Name
	}
	return ""
}

// placePreset floats a window and moves it to the preset's frame on the
// workspace's screen.
func (m *Manager) placePreset(id uint32, workspace string, preset config.FloatingPreset) error {
	screen, err := m.st.ScreenForWorkspace(workspace)
	if err != nil {
		return err
	}
	ws, err := m.st.Workspace(workspace)
	if err != nil {
		return err
	}
	frame := layout.PresetFrame(preset, screen.Frame, ws.Gaps)
	if err := m.st.SetWindowFloating(id, true); err != nil {
		return err
	}
	if err := m.source.MoveResize(id, frame); err != nil {
		return &OperationError{Window: id, Err: err}
	}
	return m.st.SetWindowFrame(id, frame)
}

// retile recomputes and applies the layout for one workspace. Per
// window failures are logged, skipped and joined into the returned
// error; they never abort the rest of the batch.
func (m *Manager) retile(name string) error {
	ws, err := m.st.Workspace(name)
	if err != nil {
		return err
	}
	if ws.Layout == config.LayoutFloating {
		return nil
	}
	screen, err := m.st.ScreenForWorkspace(name)
	if err != nil {
		return err
	}
	ids, err := m.st.TiledWindows(name)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	params := layout.FromConfig(m.cfg, name)
	params.Mode = ws.Layout
	params.Gaps = ws.Gaps
	if r, ok := m.ratioOverride[name]; ok {
		params.MasterRatio = r
	}

	rects, err := layout.Compute(ids, screen.Frame, params)
	if err != nil {
		return fmt.Errorf("layout for workspace %q: %w", name, err)
	}
	if len(rects) == 0 {
		return nil
	}

	guard, err := m.source.BeginBatch()
	if err != nil {
		return fmt.Errorf("failed to open batch: %w", err)
	}
	defer guard.Release()

	m.logger.Debug("applying layout",
		"workspace", name,
		"mode", string(params.Mode),
		"windows", len(rects))

	var failures []error
	for _, id := range ids {
		frame, ok := rects[id]
		if !ok {
			continue // grid overflow, left where it was
		}
		if err := m.source.MoveResize(id, frame); err != nil {
			m.logger.Warn("failed to place window", "window", id, "frame", frame.String(), "error", err)
			failures = append(failures, &OperationError{Window: id, Err: err})
			continue
		}
		if err := m.st.SetWindowFrame(id, frame); err != nil {
			failures = append(failures, &OperationError{Window: id, Err: err})
		}
	}
	return errors.Join(failures...)
}

func (m *Manager) retileWorkspaceOf(id uint32) {
	if ws, ok := m.st.WorkspaceForWindow(id); ok {
		if err := m.retile(ws); err != nil {
			m.logger.Warn("relayout failed", "workspace", ws, "error", err)
		}
	}
}

func (m *Manager) retileAll() error {
	var errs []error
	for _, ws := range m.st.Workspaces() {
		if err := m.retile(ws.Name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
