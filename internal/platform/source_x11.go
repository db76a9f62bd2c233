//go:build linux

package platform

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"

	"github.com/1broseidon/tilewm/internal/geometry"
	"github.com/1broseidon/tilewm/internal/x11"
)

// X11Source implements WindowSource against a live X server connection.
type X11Source struct {
	conn   *x11.Connection
	ownPID uint32
}

var _ WindowSource = (*X11Source)(nil)

// NewX11Source opens a fresh X connection. A refused connection is
// reported as ErrNotAuthorized since nothing works without one.
func NewX11Source() (*X11Source, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAuthorized, err)
	}
	return NewX11SourceFromConnection(conn), nil
}

// NewX11SourceFromConnection wraps an existing connection, typically the
// one the daemon's event loop runs on.
func NewX11SourceFromConnection(conn *x11.Connection) *X11Source {
	return &X11Source{conn: conn, ownPID: uint32(os.Getpid())}
}

// Connection exposes the underlying X connection for event subscription.
func (s *X11Source) Connection() *x11.Connection {
	return s.conn
}

// EventLoop runs the blocking X event loop.
func (s *X11Source) EventLoop() {
	s.conn.EventLoop()
}

// Disconnect drops the X server connection. Distinct from Close, which
// asks one window to close itself.
func (s *X11Source) Disconnect() {
	s.conn.Close()
}

// Screens lists monitors with panels and docks subtracted.
func (s *X11Source) Screens() ([]Screen, error) {
	monitors, err := s.conn.GetUsableMonitors()
	if err != nil {
		return nil, err
	}

	screens := make([]Screen, 0, len(monitors))
	for _, m := range monitors {
		screens = append(screens, Screen{ID: uint32(m.ID), Name: m.Name, Frame: m.Frame})
	}
	sort.Slice(screens, func(i, j int) bool { return screens[i].ID < screens[j].ID })
	return screens, nil
}

// QueryWindows enumerates normal client windows in one batch. The
// stacking client list doubles as the layer order; windows of our own
// process are excluded.
func (s *X11Source) QueryWindows() ([]Window, error) {
	clients, err := ewmh.ClientListStackingGet(s.conn.XUtil)
	if err != nil {
		// Some window managers only maintain the unordered list.
		clients, err = ewmh.ClientListGet(s.conn.XUtil)
		if err != nil {
			return nil, fmt.Errorf("failed to get client list: %w", err)
		}
	}

	windows := make([]Window, 0, len(clients))
	for layer, windowID := range clients {
		if !s.conn.IsNormalWindow(windowID) {
			continue
		}

		var pid uint32
		if p, err := ewmh.WmPidGet(s.conn.XUtil, windowID); err == nil {
			pid = uint32(p)
		}
		if pid == s.ownPID {
			continue
		}

		rect, ok := s.windowRect(windowID)
		if !ok {
			continue
		}

		windows = append(windows, Window{
			ID:        uint32(windowID),
			PID:       pid,
			AppClass:  s.windowAppClass(windowID),
			Title:     s.windowTitle(windowID),
			Frame:     rect,
			Layer:     layer,
			Minimized: s.windowMinimized(windowID),
		})
	}
	return windows, nil
}

// ActiveWindow returns the focused window id, zero when none.
func (s *X11Source) ActiveWindow() (uint32, error) {
	wid, err := s.conn.GetActiveWindow()
	if err != nil {
		return 0, err
	}
	return uint32(wid), nil
}

// MoveResize applies a target frame to one window.
func (s *X11Source) MoveResize(id uint32, frame geometry.Rect) error {
	return s.conn.MoveResizeWindow(xproto.Window(id), frame)
}

// FocusRaise activates and raises a window.
func (s *X11Source) FocusRaise(id uint32) error {
	return s.conn.FocusWindow(id)
}

// Minimize iconifies a window via WM_CHANGE_STATE.
func (s *X11Source) Minimize(id uint32) error {
	reply, err := xproto.InternAtom(s.conn.XUtil.Conn(), false,
		uint16(len("WM_CHANGE_STATE")), "WM_CHANGE_STATE").Reply()
	if err != nil {
		return err
	}

	const iconicState = 3
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: xproto.Window(id),
		Type:   reply.Atom,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{iconicState, 0, 0, 0, 0}),
	}

	return xproto.SendEventChecked(
		s.conn.XUtil.Conn(),
		false,
		s.conn.Root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}

// Close requests a graceful close via WM_DELETE_WINDOW.
func (s *X11Source) Close(id uint32) error {
	deleteReply, err := xproto.InternAtom(s.conn.XUtil.Conn(), false,
		uint16(len("WM_DELETE_WINDOW")), "WM_DELETE_WINDOW").Reply()
	if err != nil {
		return err
	}
	protocolsReply, err := xproto.InternAtom(s.conn.XUtil.Conn(), false,
		uint16(len("WM_PROTOCOLS")), "WM_PROTOCOLS").Reply()
	if err != nil {
		return err
	}

	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: xproto.Window(id),
		Type:   protocolsReply.Atom,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{uint32(deleteReply.Atom), 0, 0, 0, 0}),
	}

	return xproto.SendEventChecked(
		s.conn.XUtil.Conn(),
		false,
		xproto.Window(id),
		xproto.EventMaskNoEvent,
		string(ev.Bytes()),
	).Check()
}

// BeginBatch grabs the X server so the whole geometry burst repaints as
// one update.
func (s *X11Source) BeginBatch() (BatchGuard, error) {
	return s.conn.GrabServer()
}

func (s *X11Source) windowRect(windowID xproto.Window) (geometry.Rect, bool) {
	geom, err := xproto.GetGeometry(s.conn.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return geometry.Rect{}, false
	}

	translate, err := xproto.TranslateCoordinates(
		s.conn.XUtil.Conn(),
		windowID,
		s.conn.Root,
		0, 0,
	).Reply()
	if err != nil {
		return geometry.Rect{}, false
	}

	return geometry.Rect{
		X:      int(translate.DstX),
		Y:      int(translate.DstY),
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}, true
}

func (s *X11Source) windowAppClass(windowID xproto.Window) string {
	wmClass, err := icccm.WmClassGet(s.conn.XUtil, windowID)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(wmClass.Class)
}

func (s *X11Source) windowTitle(windowID xproto.Window) string {
	title, err := ewmh.WmNameGet(s.conn.XUtil, windowID)
	if err == nil {
		if title = strings.TrimSpace(title); title != "" {
			return title
		}
	}

	title, err = icccm.WmNameGet(s.conn.XUtil, windowID)
	if err == nil {
		if title = strings.TrimSpace(title); title != "" {
			return title
		}
	}
	return ""
}

func (s *X11Source) windowMinimized(windowID xproto.Window) bool {
	states, err := ewmh.WmStateGet(s.conn.XUtil, windowID)
	if err != nil {
		return false
	}
	for _, state := range states {
		if state == "_NET_WM_STATE_HIDDEN" {
			return true
		}
	}
	return false
}
