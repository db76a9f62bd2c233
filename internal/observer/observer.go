// Package observer maintains the per-application event observer
// registry and the internal event stream it feeds. The registry is a
// process-wide singleton with an explicit lifecycle; straggling
// notifications arriving after shutdown are dropped, not dispatched.
package observer

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/1broseidon/tilewm/internal/geometry"
	"github.com/1broseidon/tilewm/internal/platform"
)

// ErrObserverFailed marks a failed registration for one process. The
// process's windows stay unobserved; everything else continues.
var ErrObserverFailed = errors.New("observer registration failed")

// EventKind enumerates the internal event stream.
type EventKind int

const (
	WindowCreated EventKind = iota
	WindowDestroyed
	WindowFocused
	WindowMoved
	WindowResized
	WindowMinimized
	WindowUnminimized
	TitleChanged
	AppActivated
	AppTerminated
)

func (k EventKind) String() string {
	switch k {
	case WindowCreated:
		return "window-created"
	case WindowDestroyed:
		return "window-destroyed"
	case WindowFocused:
		return "window-focused"
	case WindowMoved:
		return "window-moved"
	case WindowResized:
		return "window-resized"
	case WindowMinimized:
		return "window-minimized"
	case WindowUnminimized:
		return "window-unminimized"
	case TitleChanged:
		return "title-changed"
	case AppActivated:
		return "app-activated"
	case AppTerminated:
		return "app-terminated"
	default:
		return fmt.Sprintf("event-%d", int(k))
	}
}

// Event is one observation delivered to the manager.
type Event struct {
	Kind     EventKind
	Window   uint32
	PID      uint32
	AppClass string
	Frame    geometry.Rect
	Title    string
	// Synthesized is set on destroy events generated when an app
	// terminated without per-window notifications.
	Synthesized bool
}

// State tracks the registry lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateRunning
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting-down"
	default:
		return fmt.Sprintf("state-%d", int(s))
	}
}

type appObserver struct {
	pid      uint32
	appClass string
	windows  map[uint32]struct{}
}

// Options configures a Registry. Watch and Unwatch hook the platform's
// per-window subscription; tests leave them nil.
type Options struct {
	Sink     func(Event)
	SkipApps []string
	Watch    func(windowID uint32) error
	Unwatch  func(windowID uint32)
	Logger   *slog.Logger
}

// Registry maps process id to its app observer. It has its own lock and
// is never locked together with the workspace state.
type Registry struct {
	mu        sync.Mutex
	state     State
	observers map[uint32]*appObserver
	sink      func(Event)

	skipApps []string
	watch    func(uint32) error
	unwatch  func(uint32)
	logger   *slog.Logger
}

func NewRegistry(opts Options) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	watch := opts.Watch
	if watch == nil {
		watch = func(uint32) error { return nil }
	}
	unwatch := opts.Unwatch
	if unwatch == nil {
		unwatch = func(uint32) {}
	}
	return &Registry{
		state:     StateUninitialized,
		observers: make(map[uint32]*appObserver),
		sink:      opts.Sink,
		skipApps:  opts.SkipApps,
		watch:     watch,
		unwatch:   unwatch,
		logger:    logger,
	}
}

// State returns the current lifecycle state.
func (r *Registry) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// ShouldSkip reports whether an app class is excluded from observation.
func (r *Registry) ShouldSkip(appClass string) bool {
	if appClass == "" {
		return false
	}
	for _, skip := range r.skipApps {
		if strings.EqualFold(appClass, skip) {
			return true
		}
	}
	return false
}

// Initialize registers observers for every currently known window and
// moves the registry to Running. A second call is an error until a
// Shutdown resets the lifecycle.
func (r *Registry) Initialize(windows []platform.Window) error {
	r.mu.Lock()
	if r.state != StateUninitialized {
		state := r.state
		r.mu.Unlock()
		return fmt.Errorf("registry already initialized (state %s)", state)
	}
	r.state = StateInitializing
	r.mu.Unlock()

	for _, w := range windows {
		if err := r.Track(w); err != nil {
			// Per-process failures are not fatal to initialization.
			r.logger.Warn("observer registration failed",
				"pid", w.PID, "app", w.AppClass, "error", err)
		}
	}

	r.mu.Lock()
	r.state = StateRunning
	r.mu.Unlock()
	return nil
}

// Track makes sure the window's owning process has an observer and that
// the window itself is watched. Registering an already-observed process
// is a no-op, never an error.
func (r *Registry) Track(w platform.Window) error {
	if r.ShouldSkip(w.AppClass) {
		return nil
	}

	r.mu.Lock()
	if r.state == StateShuttingDown {
		r.mu.Unlock()
		return nil
	}
	obs, ok := r.observers[w.PID]
	if !ok {
		obs = &appObserver{
			pid:      w.PID,
			appClass: w.AppClass,
			windows:  make(map[uint32]struct{}),
		}
		r.observers[w.PID] = obs
	}
	_, already := obs.windows[w.ID]
	obs.windows[w.ID] = struct{}{}
	r.mu.Unlock()

	if already {
		return nil
	}
	if err := r.watch(w.ID); err != nil {
		r.mu.Lock()
		delete(obs.windows, w.ID)
		r.mu.Unlock()
		return fmt.Errorf("%w: pid %d window %d: %v", ErrObserverFailed, w.PID, w.ID, err)
	}
	return nil
}

// Untrack removes one window from its process observer. Empty observers
// stay registered: the process is still running and may open windows.
func (r *Registry) Untrack(windowID uint32) {
	r.mu.Lock()
	for _, obs := range r.observers {
		delete(obs.windows, windowID)
	}
	r.mu.Unlock()
	r.unwatch(windowID)
}

// RemoveApp deregisters a terminated process and synthesizes destroy
// events for any windows it still had. A missing pid is a no-op.
func (r *Registry) RemoveApp(pid uint32) {
	r.mu.Lock()
	obs, ok := r.observers[pid]
	if ok {
		delete(r.observers, pid)
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	for id := range obs.windows {
		r.unwatch(id)
		r.Dispatch(Event{
			Kind:        WindowDestroyed,
			Window:      id,
			PID:         pid,
			Synthesized: true,
		})
	}
	r.Dispatch(Event{Kind: AppTerminated, PID: pid})
}

// Dispatch forwards an event to the sink unless the registry is not
// running, in which case the event is dropped.
func (r *Registry) Dispatch(ev Event) {
	r.mu.Lock()
	running := r.state == StateRunning
	sink := r.sink
	r.mu.Unlock()

	if !running || sink == nil {
		return
	}
	sink(ev)
}

// ObserverCount returns the number of observed processes.
func (r *Registry) ObserverCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.observers)
}

// WindowsForPID lists the window ids tracked under one process.
func (r *Registry) WindowsForPID(pid uint32) []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	obs, ok := r.observers[pid]
	if !ok {
		return nil
	}
	out := make([]uint32, 0, len(obs.windows))
	for id := range obs.windows {
		out = append(out, id)
	}
	return out
}

// PIDs lists the observed processes.
func (r *Registry) PIDs() []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]uint32, 0, len(r.observers))
	for pid := range r.observers {
		out = append(out, pid)
	}
	return out
}

// Shutdown clears the sink and all observers and returns the registry
// to Uninitialized. In-flight callbacks observing the shutting-down
// state drop their events.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	r.state = StateShuttingDown
	observers := r.observers
	r.observers = make(map[uint32]*appObserver)
	r.sink = nil
	r.mu.Unlock()

	for _, obs := range observers {
		for id := range obs.windows {
			r.unwatch(id)
		}
	}

	r.mu.Lock()
	r.state = StateUninitialized
	r.mu.Unlock()
}
