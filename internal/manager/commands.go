package manager

import (
	"errors"
	"fmt"
	"math"

	"github.com/1broseidon/tilewm/internal/config"
	"github.com/1broseidon/tilewm/internal/geometry"
	"github.com/1broseidon/tilewm/internal/state"
)

// Direction selects a neighbor for focus and move commands. Next and
// previous walk the workspace's ordered list; the spatial directions
// pick the nearest window whose center lies that way.
type Direction string

const (
	DirectionNext     Direction = "next"
	DirectionPrevious Direction = "previous"
	DirectionLeft     Direction = "left"
	DirectionRight    Direction = "right"
	DirectionUp       Direction = "up"
	DirectionDown     Direction = "down"
)

// ParseDirection validates a direction keyword from the command layer.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionNext, DirectionPrevious, DirectionLeft, DirectionRight, DirectionUp, DirectionDown:
		return Direction(s), nil
	case "prev":
		return DirectionPrevious, nil
	default:
		return "", fmt.Errorf("unknown direction %q", s)
	}
}

// Queries read the state snapshot directly under its own lock; they do
// not pass through the manager loop.

func (m *Manager) QueryScreens() []state.Screen       { return m.st.Screens() }
func (m *Manager) QueryWorkspaces() []state.Workspace { return m.st.Workspaces() }
func (m *Manager) QueryWindows() []state.Window       { return m.st.Windows() }

// FocusedWindow returns the window holding focus, if any.
func (m *Manager) FocusedWindow() (state.Window, bool) { return m.st.Focused() }

// FocusWorkspace makes a workspace the active one on its screen and
// focuses its first visible window.
func (m *Manager) FocusWorkspace(name string) error {
	return m.do(func() error {
		if err := m.st.FocusWorkspace(name); err != nil {
			return err
		}
		if ids, err := m.st.TiledWindows(name); err == nil && len(ids) > 0 {
			if err := m.focusRaise(ids[0]); err != nil {
				m.logger.Warn("failed to focus window", "window", ids[0], "error", err)
			}
		}
		m.emit(Notification{Kind: NotifyWorkspaceFocused, Workspace: name})
		return nil
	})
}

// SetLayout switches a workspace's layout mode and relayouts it.
func (m *Manager) SetLayout(workspace string, mode config.LayoutMode) error {
	return m.do(func() error {
		if !config.ValidMode(mode) {
			return fmt.Errorf("unknown layout mode %q", mode)
		}
		if err := m.st.SetLayout(workspace, mode); err != nil {
			return err
		}
		m.emit(Notification{Kind: NotifyLayoutChanged, Workspace: workspace})
		return m.retile(workspace)
	})
}

// Balance resets a workspace's layout parameters to the configured
// defaults, dropping any resize deltas, and relayouts.
func (m *Manager) Balance(workspace string) error {
	return m.do(func() error {
		if _, err := m.st.Workspace(workspace); err != nil {
			return err
		}
		delete(m.ratioOverride, workspace)
		return m.retile(workspace)
	})
}

// SendWorkspaceToScreen rebinds a workspace to another screen and
// relayouts it against the new screen frame.
func (m *Manager) SendWorkspaceToScreen(workspace string, screenID uint32) error {
	return m.do(func() error {
		if err := m.st.SendWorkspaceToScreen(workspace, screenID); err != nil {
			return err
		}
		return m.retile(workspace)
	})
}

// MoveWindowToWorkspace reassigns a window and relayouts both the old
// and the new workspace.
func (m *Manager) MoveWindowToWorkspace(id uint32, workspace string) error {
	return m.do(func() error {
		from, ok := m.st.WorkspaceForWindow(id)
		if !ok {
			return fmt.Errorf("window %d: %w", id, state.ErrWindowNotFound)
		}
		if from == workspace {
			return nil
		}
		if err := m.st.MoveWindow(id, from, workspace); err != nil {
			return err
		}
		m.emit(Notification{Kind: NotifyWindowMoved, Window: id, Workspace: workspace})
		var errs []error
		if err := m.retile(from); err != nil {
			errs = append(errs, err)
		}
		if err := m.retile(workspace); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})
}

// MoveWindowToScreen moves a window to the active workspace of the
// given screen.
func (m *Manager) MoveWindowToScreen(id uint32, screenID uint32) error {
	screen, err := m.st.Screen(screenID)
	if err != nil {
		return err
	}
	if screen.ActiveWorkspace == "" {
		return fmt.Errorf("screen %d has no workspace: %w", screenID, state.ErrWorkspaceNotFound)
	}
	return m.MoveWindowToWorkspace(id, screen.ActiveWorkspace)
}

// MoveWindowDirection swaps a window with its neighbor in the given
// direction within its workspace, then relayouts. Order is what the
// layout engine keys on, so a swap is a move.
func (m *Manager) MoveWindowDirection(id uint32, dir Direction) error {
	return m.do(func() error {
		ws, ok := m.st.WorkspaceForWindow(id)
		if !ok {
			return fmt.Errorf("window %d: %w", id, state.ErrWindowNotFound)
		}
		other, err := m.neighbor(id, ws, dir)
		if err != nil {
			return err
		}
		if other == id {
			return nil
		}
		if err := m.st.SwapWindows(ws, id, other); err != nil {
			return err
		}
		m.emit(Notification{Kind: NotifyWindowMoved, Window: id, Workspace: ws})
		return m.retile(ws)
	})
}

// FocusWindow gives a managed window the input focus and raises it.
func (m *Manager) FocusWindow(id uint32) error {
	return m.do(func() error {
		return m.focusRaise(id)
	})
}

// FocusDirection moves focus from the currently focused window to its
// neighbor in the given direction.
func (m *Manager) FocusDirection(dir Direction) error {
	return m.do(func() error {
		cur, ok := m.st.Focused()
		if !ok {
			return fmt.Errorf("no focused window: %w", state.ErrWindowNotFound)
		}
		ws, ok := m.st.WorkspaceForWindow(cur.ID)
		if !ok {
			return fmt.Errorf("window %d: %w", cur.ID, state.ErrWindowNotFound)
		}
		target, err := m.neighbor(cur.ID, ws, dir)
		if err != nil {
			return err
		}
		if target == cur.ID {
			return nil
		}
		return m.focusRaise(target)
	})
}

// ResizeWindow grows or shrinks a window by a signed pixel delta. For a
// floating window the frame changes directly; for a tiled window the
// delta adjusts the workspace's master ratio and the whole workspace
// relayouts.
func (m *Manager) ResizeWindow(id uint32, dimension string, delta int) error {
	return m.do(func() error {
		if dimension != "width" && dimension != "height" {
			return fmt.Errorf("unknown dimension %q", dimension)
		}
		w, err := m.st.Window(id)
		if err != nil {
			return err
		}
		if w.Floating {
			return m.resizeFloating(w, dimension, delta)
		}

		ws, ok := m.st.WorkspaceForWindow(id)
		if !ok {
			return fmt.Errorf("window %d: %w", id, state.ErrWindowNotFound)
		}
		screen, err := m.st.ScreenForWorkspace(ws)
		if err != nil {
			return err
		}
		axis := screen.Frame.Width
		if dimension == "height" {
			axis = screen.Frame.Height
		}
		if axis <= 0 {
			return fmt.Errorf("screen %d has no extent", screen.ID)
		}

		ratio, ok := m.ratioOverride[ws]
		if !ok {
			ratio = m.cfg.Master.Ratio()
		}
		ratio += float64(delta) / float64(axis)
		ratio = math.Min(0.9, math.Max(0.1, ratio))
		m.ratioOverride[ws] = ratio
		return m.retile(ws)
	})
}

func (m *Manager) resizeFloating(w state.Window, dimension string, delta int) error {
	frame := w.Frame
	if dimension == "width" {
		frame.Width += delta
	} else {
		frame.Height += delta
	}
	if frame.Width < 1 || frame.Height < 1 {
		return fmt.Errorf("resize leaves window %d with no extent", w.ID)
	}
	if err := m.source.MoveResize(w.ID, frame); err != nil {
		return &OperationError{Window: w.ID, Err: err}
	}
	if err := m.st.SetWindowFrame(w.ID, frame); err != nil {
		return err
	}
	m.emit(Notification{Kind: NotifyWindowResized, Window: w.ID, Frame: frame})
	return nil
}

// ApplyPreset floats a window into a named preset frame; the remaining
// tiled windows reflow.
func (m *Manager) ApplyPreset(id uint32, name string) error {
	return m.do(func() error {
		preset, ok := m.cfg.FindPreset(name)
		if !ok {
			return fmt.Errorf("unknown preset %q", name)
		}
		ws, found := m.st.WorkspaceForWindow(id)
		if !found {
			return fmt.Errorf("window %d: %w", id, state.ErrWindowNotFound)
		}
		if err := m.placePreset(id, ws, preset); err != nil {
			return err
		}
		m.emit(Notification{Kind: NotifyWindowResized, Window: id, Workspace: ws})
		return m.retile(ws)
	})
}

// Relayout recomputes one workspace, or every workspace when name is
// empty.
func (m *Manager) Relayout(name string) error {
	return m.do(func() error {
		if name == "" {
			return m.retileAll()
		}
		return m.retile(name)
	})
}

// CreateWorkspace adds a workspace on a screen at runtime.
func (m *Manager) CreateWorkspace(name string, screenID uint32) error {
	return m.do(func() error {
		return m.st.CreateWorkspace(name, screenID, m.cfg.LayoutFor(name), m.cfg.GapsFor(name))
	})
}

// RemoveWorkspace deletes a workspace. With force, its windows move to
// a fallback workspace and that workspace relayouts.
func (m *Manager) RemoveWorkspace(name string, force bool) error {
	return m.do(func() error {
		if err := m.st.RemoveWorkspace(name, force); err != nil {
			return err
		}
		delete(m.ratioOverride, name)
		return m.retileAll()
	})
}

// MinimizeWindow asks the platform to minimize; the state update and
// relayout follow from the resulting observer event.
func (m *Manager) MinimizeWindow(id uint32) error {
	return m.do(func() error {
		if _, err := m.st.Window(id); err != nil {
			return err
		}
		if err := m.source.Minimize(id); err != nil {
			return &OperationError{Window: id, Err: err}
		}
		return nil
	})
}

// CloseWindow politely asks the window to close.
func (m *Manager) CloseWindow(id uint32) error {
	return m.do(func() error {
		if _, err := m.st.Window(id); err != nil {
			return err
		}
		if err := m.source.Close(id); err != nil {
			return &OperationError{Window: id, Err: err}
		}
		return nil
	})
}

// Reload swaps in a freshly loaded config, clears resize overrides and
// relayouts everything.
func (m *Manager) Reload(cfg *config.Config) error {
	return m.do(func() error {
		if cfg == nil {
			return fmt.Errorf("nil config")
		}
		m.cfg = cfg
		m.ratioOverride = make(map[string]float64)
		m.logger.Info("configuration reloaded")
		return m.retileAll()
	})
}

// ScreensChanged re-reads the display configuration, rebinding orphaned
// workspaces and relayouting everything.
func (m *Manager) ScreensChanged() error {
	return m.do(func() error {
		screens, err := m.source.Screens()
		if err != nil {
			return fmt.Errorf("failed to query screens: %w", err)
		}
		sts := make([]state.Screen, len(screens))
		for i, sc := range screens {
			sts[i] = state.Screen{ID: sc.ID, Name: sc.Name, Frame: sc.Frame}
		}
		m.st.SetScreens(sts)
		m.logger.Info("screen configuration changed", "screens", len(screens))
		return m.retileAll()
	})
}

// focusRaise updates state focus and raises the window on screen.
func (m *Manager) focusRaise(id uint32) error {
	if err := m.st.SetFocus(id); err != nil {
		return err
	}
	if err := m.source.FocusRaise(id); err != nil {
		return &OperationError{Window: id, Err: err}
	}
	m.emit(Notification{Kind: NotifyWindowFocused, Window: id})
	return nil
}

// neighbor resolves a direction to a concrete window id within a
// workspace. Next/previous wrap around the ordered list.
func (m *Manager) neighbor(id uint32, workspace string, dir Direction) (uint32, error) {
	ids, err := m.st.TiledWindows(workspace)
	if err != nil {
		return 0, err
	}
	idx := -1
	for i, wid := range ids {
		if wid == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, fmt.Errorf("window %d not visible in workspace %q: %w", id, workspace, state.ErrWindowNotFound)
	}

	switch dir {
	case DirectionNext:
		return ids[(idx+1)%len(ids)], nil
	case DirectionPrevious:
		return ids[(idx+len(ids)-1)%len(ids)], nil
	case DirectionLeft, DirectionRight, DirectionUp, DirectionDown:
		return m.spatialNeighbor(id, ids, dir)
	default:
		return 0, fmt.Errorf("unknown direction %q", dir)
	}
}

// spatialNeighbor picks the candidate whose center lies in the given
// direction and is nearest to the reference window's center.
func (m *Manager) spatialNeighbor(id uint32, ids []uint32, dir Direction) (uint32, error) {
	ref, err := m.st.Window(id)
	if err != nil {
		return 0, err
	}
	from := ref.Frame.Center()

	best := id
	bestDist := math.MaxFloat64
	for _, cand := range ids {
		if cand == id {
			continue
		}
		w, err := m.st.Window(cand)
		if err != nil {
			continue
		}
		c := w.Frame.Center()
		if !inDirection(from, c, dir) {
			continue
		}
		dx := float64(c.X - from.X)
		dy := float64(c.Y - from.Y)
		if d := dx*dx + dy*dy; d < bestDist {
			bestDist = d
			best = cand
		}
	}
	return best, nil
}

func inDirection(from, to geometry.Point, dir Direction) bool {
	switch dir {
	case DirectionLeft:
		return to.X < from.X
	case DirectionRight:
		return to.X > from.X
	case DirectionUp:
		return to.Y < from.Y
	case DirectionDown:
		return to.Y > from.Y
	}
	return false
}
