package x11

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/1broseidon/tilewm/internal/geometry"
)

// MoveResizeWindow applies a frame to a window. A maximized window
// ignores geometry requests, so the maximized states are dropped first.
func (c *Connection) MoveResizeWindow(windowID xproto.Window, frame geometry.Rect) error {
	c.unmaximize(windowID)

	// EWMH first for WM cooperation, direct configure as fallback.
	err := ewmh.MoveresizeWindow(c.XUtil, windowID, frame.X, frame.Y, frame.Width, frame.Height)
	if err != nil {
		xwindow.New(c.XUtil, windowID).MoveResize(frame.X, frame.Y, frame.Width, frame.Height)
	}
	return nil
}

func (c *Connection) unmaximize(windowID xproto.Window) {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return
	}
	for _, state := range states {
		switch state {
		case "_NET_WM_STATE_MAXIMIZED_HORZ", "_NET_WM_STATE_MAXIMIZED_VERT":
			ewmh.WmStateReq(c.XUtil, windowID, 0, state)
		}
	}
}

// IsNormalWindow reports whether a window is a regular application
// window rather than a dock, desktop, splash, or notification surface.
// Windows without a declared type count as normal.
func (c *Connection) IsNormalWindow(windowID xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
	if err != nil {
		return true
	}
	for _, t := range types {
		switch t {
		case "_NET_WM_WINDOW_TYPE_NORMAL":
			return true
		case "_NET_WM_WINDOW_TYPE_DESKTOP",
			"_NET_WM_WINDOW_TYPE_DOCK",
			"_NET_WM_WINDOW_TYPE_SPLASH",
			"_NET_WM_WINDOW_TYPE_NOTIFICATION":
			return false
		}
	}
	return len(types) == 0
}
