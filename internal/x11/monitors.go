package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"

	"github.com/1broseidon/tilewm/internal/geometry"
)

// Monitor is one active RandR CRTC.
type Monitor struct {
	ID    int
	Name  string
	Frame geometry.Rect
}

// GetMonitors enumerates active monitors via RandR. Disabled CRTCs and
// CRTCs with no outputs are skipped.
func (c *Connection) GetMonitors() ([]Monitor, error) {
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var monitors []Monitor
	for i, crtc := range resources.Crtcs {
		info, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		if info.Width == 0 || info.Height == 0 || len(info.Outputs) == 0 {
			continue
		}

		name := fmt.Sprintf("Monitor%d", i)
		if out, err := randr.GetOutputInfo(c.XUtil.Conn(), info.Outputs[0], resources.ConfigTimestamp).Reply(); err == nil {
			name = string(out.Name)
		}

		monitors = append(monitors, Monitor{
			ID:   i,
			Name: name,
			Frame: geometry.Rect{
				X:      int(info.X),
				Y:      int(info.Y),
				Width:  int(info.Width),
				Height: int(info.Height),
			},
		})
	}
	return monitors, nil
}

// GetUsableMonitors returns all monitors with dock struts subtracted, so
// tiling never covers panels. Monitors without struts fall back to the
// EWMH work area when one is published.
func (c *Connection) GetUsableMonitors() ([]Monitor, error) {
	monitors, err := c.GetMonitors()
	if err != nil {
		return nil, err
	}
	if len(monitors) == 0 {
		return nil, fmt.Errorf("no monitors found")
	}

	for i := range monitors {
		if usable, ok := c.subtractStruts(monitors[i].Frame); ok {
			monitors[i].Frame = usable
		} else if wa, ok := c.workArea(); ok {
			if clipped, ok := monitors[i].Frame.Intersect(wa); ok {
				monitors[i].Frame = clipped
			}
		}
	}
	return monitors, nil
}

// workArea reads _NET_WORKAREA for the current desktop. Some
// environments publish only this, not struts.
func (c *Connection) workArea() (geometry.Rect, bool) {
	areas, err := ewmh.WorkareaGet(c.XUtil)
	if err != nil || len(areas) == 0 {
		return geometry.Rect{}, false
	}

	idx := 0
	if desktop, err := ewmh.CurrentDesktopGet(c.XUtil); err == nil && int(desktop) < len(areas) {
		idx = int(desktop)
	}
	wa := areas[idx]
	return geometry.Rect{X: int(wa.X), Y: int(wa.Y), Width: int(wa.Width), Height: int(wa.Height)}, true
}

// subtractStruts shrinks a monitor frame by every dock strut that
// overlaps it. Reports false when no dock reserves space on this
// monitor.
func (c *Connection) subtractStruts(frame geometry.Rect) (geometry.Rect, bool) {
	rootGeom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(c.Root)).Reply()
	if err != nil {
		return frame, false
	}
	rootW := int(rootGeom.Width)
	rootH := int(rootGeom.Height)

	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return frame, false
	}

	var left, right, top, bottom int
	for _, windowID := range clients {
		if !isDock(c, windowID) {
			continue
		}

		sp, err := ewmh.WmStrutPartialGet(c.XUtil, windowID)
		if err != nil {
			// Older docks only set _NET_WM_STRUT; treat the strut as
			// spanning the full root edge.
			s, err := ewmh.WmStrutGet(c.XUtil, windowID)
			if err != nil {
				continue
			}
			sp = &ewmh.WmStrutPartial{
				Left: s.Left, Right: s.Right, Top: s.Top, Bottom: s.Bottom,
				LeftStartY: 0, LeftEndY: uint(rootH - 1),
				RightStartY: 0, RightEndY: uint(rootH - 1),
				TopStartX: 0, TopEndX: uint(rootW - 1),
				BottomStartX: 0, BottomEndX: uint(rootW - 1),
			}
		}

		// Each strut is a band along one root edge, limited to a span
		// on the other axis. Only the part overlapping this monitor
		// reserves space here.
		if sp.Top > 0 {
			band := geometry.Rect{
				X: int(sp.TopStartX), Y: 0,
				Width: int(sp.TopEndX) - int(sp.TopStartX) + 1, Height: int(sp.Top),
			}
			if overlap, ok := frame.Intersect(band); ok && overlap.Height > top {
				top = overlap.Height
			}
		}
		if sp.Bottom > 0 {
			band := geometry.Rect{
				X: int(sp.BottomStartX), Y: rootH - int(sp.Bottom),
				Width: int(sp.BottomEndX) - int(sp.BottomStartX) + 1, Height: int(sp.Bottom),
			}
			if overlap, ok := frame.Intersect(band); ok && overlap.Height > bottom {
				bottom = overlap.Height
			}
		}
		if sp.Left > 0 {
			band := geometry.Rect{
				X: 0, Y: int(sp.LeftStartY),
				Width: int(sp.Left), Height: int(sp.LeftEndY) - int(sp.LeftStartY) + 1,
			}
			if overlap, ok := frame.Intersect(band); ok && overlap.Width > left {
				left = overlap.Width
			}
		}
		if sp.Right > 0 {
			band := geometry.Rect{
				X: rootW - int(sp.Right), Y: int(sp.RightStartY),
				Width: int(sp.Right), Height: int(sp.RightEndY) - int(sp.RightStartY) + 1,
			}
			if overlap, ok := frame.Intersect(band); ok && overlap.Width > right {
				right = overlap.Width
			}
		}
	}

	if left == 0 && right == 0 && top == 0 && bottom == 0 {
		return frame, false
	}

	frame.X += left
	frame.Y += top
	frame.Width -= left + right
	frame.Height -= top + bottom
	if frame.Width < 1 {
		frame.Width = 1
	}
	if frame.Height < 1 {
		frame.Height = 1
	}
	return frame, true
}

func isDock(c *Connection, windowID xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
	if err != nil {
		return false
	}
	for _, t := range types {
		if t == "_NET_WM_WINDOW_TYPE_DOCK" {
			return true
		}
	}
	return false
}
