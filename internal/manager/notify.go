package manager

import (
	"github.com/1broseidon/tilewm/internal/geometry"
)

// NotificationKind labels a state change emitted to listeners.
type NotificationKind string

const (
	NotifyWindowCreated    NotificationKind = "window-created"
	NotifyWindowDestroyed  NotificationKind = "window-destroyed"
	NotifyWindowFocused    NotificationKind = "window-focused"
	NotifyWindowMoved      NotificationKind = "window-moved"
	NotifyWindowResized    NotificationKind = "window-resized"
	NotifyLayoutChanged    NotificationKind = "workspace-layout-changed"
	NotifyWorkspaceFocused NotificationKind = "workspace-focus-changed"
)

// Notification is fire-and-forget; listeners must not block the manager
// loop for long. At-least-once delivery, ordered as the loop applied
// the changes.
type Notification struct {
	Kind      NotificationKind
	Window    uint32        `json:",omitempty"`
	Workspace string        `json:",omitempty"`
	Frame     geometry.Rect `json:",omitempty"`
}

// Subscribe registers a listener for change notifications. Listeners
// are invoked from the manager loop.
func (m *Manager) Subscribe(fn func(Notification)) {
	m.listenerMu.Lock()
	defer m.listenerMu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Manager) emit(n Notification) {
	m.listenerMu.Lock()
	fns := make([]func(Notification), len(m.listeners))
	copy(fns, m.listeners)
	m.listenerMu.Unlock()

	for _, fn := range fns {
		fn(n)
	}
}
