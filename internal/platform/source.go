// Package platform abstracts the window system behind a capability
// interface so the manager and its tests never touch X directly.
package platform

import (
	"errors"

	"github.com/1broseidon/tilewm/internal/geometry"
)

// ErrNotAuthorized means the window server refused the connection. It
// disables all observation and mutation until resolved externally.
var ErrNotAuthorized = errors.New("window server access not authorized")

// Screen describes a physical display with its usable area (panels and
// docks already subtracted).
type Screen struct {
	ID    uint32
	Name  string
	Frame geometry.Rect
}

// Window is one entry from a batch window query.
type Window struct {
	ID        uint32
	PID       uint32
	AppClass  string
	Title     string
	Frame     geometry.Rect
	Layer     int // Stacking position, bottom-most first.
	Minimized bool
}

// BatchGuard suspends window-server redraw for the duration of a
// multi-window geometry change. Release re-enables redraw exactly once;
// extra calls are no-ops.
type BatchGuard interface {
	Release() error
}

// WindowSource is the capability surface the tiling manager needs from
// the platform. One batch QueryWindows call replaces per-window queries,
// which are far slower.
type WindowSource interface {
	Screens() ([]Screen, error)
	QueryWindows() ([]Window, error)
	ActiveWindow() (uint32, error)
	MoveResize(id uint32, frame geometry.Rect) error
	FocusRaise(id uint32) error
	Minimize(id uint32) error
	Close(id uint32) error
	// BeginBatch acquires the redraw guard. Only one guard may be
	// active; nested acquisition fails instead of deadlocking.
	BeginBatch() (BatchGuard, error)
}
