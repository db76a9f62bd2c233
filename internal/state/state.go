// Package state holds the mutable model of screens, workspaces, windows
// and focus. It is the single source of truth mutated by both observer
// events and external commands. All access goes through ManagedState,
// whose lock is never held across a window-server call: callers snapshot
// under the lock, release it, then talk to the platform.
package state

import (
	"fmt"
	"sort"
	"sync"

	"github.com/1broseidon/tilewm/internal/config"
	"github.com/1broseidon/tilewm/internal/geometry"
)

// Screen describes one physical display.
type Screen struct {
	ID              uint32
	Name            string
	Frame           geometry.Rect
	ActiveWorkspace string
}

// Workspace groups an ordered list of managed windows on one screen.
// Order matters for stack-based layouts.
type Workspace struct {
	Name     string
	ScreenID uint32
	Layout   config.LayoutMode
	Gaps     geometry.Gaps
	Windows  []uint32
}

// Window is the handle for one OS window. The id is stable for the
// lifetime of the underlying window object.
type Window struct {
	ID        uint32
	PID       uint32
	Title     string
	AppClass  string
	Frame     geometry.Rect
	Layer     int
	Minimized bool
	Floating  bool
}

// ManagedState is protected by a single coarse lock. Invariant
// maintenance stays simple that way, and every operation is fast enough
// that finer locking buys nothing.
type ManagedState struct {
	mu         sync.RWMutex
	screens    map[uint32]*Screen
	workspaces map[string]*Workspace
	windows    map[uint32]*Window
	focused    uint32 // 0 means no focus
}

func NewManagedState() *ManagedState {
	return &ManagedState{
		screens:    make(map[uint32]*Screen),
		workspaces: make(map[string]*Workspace),
		windows:    make(map[uint32]*Window),
	}
}

// SetScreens replaces the known displays after a configuration change.
// Screens that survive by id keep their active workspace; workspaces on
// a vanished screen move to the lowest-id remaining screen.
func (s *ManagedState) SetScreens(screens []Screen) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.screens
	s.screens = make(map[uint32]*Screen, len(screens))
	for i := range screens {
		sc := screens[i]
		if prev, ok := old[sc.ID]; ok && sc.ActiveWorkspace == "" {
			sc.ActiveWorkspace = prev.ActiveWorkspace
		}
		s.screens[sc.ID] = &sc
	}

	var fallback uint32
	var haveFallback bool
	for _, id := range s.sortedScreenIDsLocked() {
		fallback = id
		haveFallback = true
		break
	}
	for _, ws := range s.workspaces {
		if _, ok := s.screens[ws.ScreenID]; !ok && haveFallback {
			ws.ScreenID = fallback
		}
	}
}

// Screens returns a snapshot sorted by screen id.
func (s *ManagedState) Screens() []Screen {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Screen, 0, len(s.screens))
	for _, id := range s.sortedScreenIDsLocked() {
		out = append(out, *s.screens[id])
	}
	return out
}

func (s *ManagedState) Screen(id uint32) (Screen, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.screens[id]
	if !ok {
		return Screen{}, fmt.Errorf("screen %d: %w", id, ErrScreenNotFound)
	}
	return *sc, nil
}

// CreateWorkspace adds a workspace on an existing screen. The name is
// the workspace id and must be unique.
func (s *ManagedState) CreateWorkspace(name string, screenID uint32, layout config.LayoutMode, gaps geometry.Gaps) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.screens[screenID]; !ok {
		return fmt.Errorf("screen %d: %w", screenID, ErrScreenNotFound)
	}
	if _, ok := s.workspaces[name]; ok {
		return fmt.Errorf("workspace %q already exists", name)
	}
	s.workspaces[name] = &Workspace{
		Name:     name,
		ScreenID: screenID,
		Layout:   layout,
		Gaps:     gaps,
	}
	if sc := s.screens[screenID]; sc.ActiveWorkspace == "" {
		sc.ActiveWorkspace = name
	}
	return nil
}

// RemoveWorkspace deletes a workspace. A non-empty workspace is refused
// unless force is set, in which case its windows move to a fallback
// workspace on the same screen, or become unmanaged when none exists.
func (s *ManagedState) RemoveWorkspace(name string, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, ok := s.workspaces[name]
	if !ok {
		return fmt.Errorf("workspace %q: %w", name, ErrWorkspaceNotFound)
	}
	if len(ws.Windows) > 0 && !force {
		return fmt.Errorf("workspace %q has %d windows; not removing without force", name, len(ws.Windows))
	}

	fallback := s.fallbackWorkspaceLocked(name, ws.ScreenID)
	if fallback != nil {
		fallback.Windows = append(fallback.Windows, ws.Windows...)
	}
	delete(s.workspaces, name)

	for _, sc := range s.screens {
		if sc.ActiveWorkspace == name {
			sc.ActiveWorkspace = ""
			if fallback != nil && fallback.ScreenID == sc.ID {
				sc.ActiveWorkspace = fallback.Name
			}
		}
	}
	return nil
}

// fallbackWorkspaceLocked prefers another workspace on the same screen,
// then any other workspace at all.
func (s *ManagedState) fallbackWorkspaceLocked(exclude string, screenID uint32) *Workspace {
	var anyOther *Workspace
	for _, name := range s.sortedWorkspaceNamesLocked() {
		if name == exclude {
			continue
		}
		ws := s.workspaces[name]
		if ws.ScreenID == screenID {
			return ws
		}
		if anyOther == nil {
			anyOther = ws
		}
	}
	return anyOther
}

func (s *ManagedState) Workspace(name string) (Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ws, ok := s.workspaces[name]
	if !ok {
		return Workspace{}, fmt.Errorf("workspace %q: %w", name, ErrWorkspaceNotFound)
	}
	return copyWorkspace(ws), nil
}

// Workspaces returns a snapshot sorted by name.
func (s *ManagedState) Workspaces() []Workspace {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Workspace, 0, len(s.workspaces))
	for _, name := range s.sortedWorkspaceNamesLocked() {
		out = append(out, copyWorkspace(s.workspaces[name]))
	}
	return out
}

// AddWindow starts tracking a window. Registering an id twice updates
// the stored handle in place.
func (s *ManagedState) AddWindow(w Window) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := w
	s.windows[w.ID] = &copied
}

// RemoveWindow drops a window from the map, from any workspace list and
// from focus.
func (s *ManagedState) RemoveWindow(id uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.windows, id)
	s.removeFromWorkspacesLocked(id)
	if s.focused == id {
		s.focused = 0
	}
}

func (s *ManagedState) Window(id uint32) (Window, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.windows[id]
	if !ok {
		return Window{}, fmt.Errorf("window %d: %w", id, ErrWindowNotFound)
	}
	return *w, nil
}

// Windows returns a snapshot of every tracked window sorted by id.
func (s *ManagedState) Windows() []Window {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uint32, 0, len(s.windows))
	for id := range s.windows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]Window, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.windows[id])
	}
	return out
}

// AssignWindow places a window in a workspace, removing it from any
// other workspace first so the membership invariant holds.
func (s *ManagedState) AssignWindow(id uint32, workspace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.windows[id]; !ok {
		return fmt.Errorf("window %d: %w", id, ErrWindowNotFound)
	}
	ws, ok := s.workspaces[workspace]
	if !ok {
		return fmt.Errorf("workspace %q: %w", workspace, ErrWorkspaceNotFound)
	}

	s.removeFromWorkspacesLocked(id)
	ws.Windows = append(ws.Windows, id)
	return nil
}

// UnassignWindow removes a window from whatever workspace holds it. The
// window stays tracked but unmanaged.
func (s *ManagedState) UnassignWindow(id uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.windows[id]; !ok {
		return fmt.Errorf("window %d: %w", id, ErrWindowNotFound)
	}
	s.removeFromWorkspacesLocked(id)
	return nil
}

// MoveWindow moves a window between two named workspaces. The window
// must currently be in from.
func (s *ManagedState) MoveWindow(id uint32, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.windows[id]; !ok {
		return fmt.Errorf("window %d: %w", id, ErrWindowNotFound)
	}
	src, ok := s.workspaces[from]
	if !ok {
		return fmt.Errorf("workspace %q: %w", from, ErrWorkspaceNotFound)
	}
	dst, ok := s.workspaces[to]
	if !ok {
		return fmt.Errorf("workspace %q: %w", to, ErrWorkspaceNotFound)
	}
	if !containsID(src.Windows, id) {
		return fmt.Errorf("window %d not in workspace %q: %w", id, from, ErrWindowNotFound)
	}

	src.Windows = removeID(src.Windows, id)
	dst.Windows = append(dst.Windows, id)
	return nil
}

// SwapWindows exchanges the positions of two windows in a workspace's
// ordered list. Order determines the master slot and split nesting, so
// this is how a window moves within its workspace.
func (s *ManagedState) SwapWindows(workspace string, a, b uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, ok := s.workspaces[workspace]
	if !ok {
		return fmt.Errorf("workspace %q: %w", workspace, ErrWorkspaceNotFound)
	}
	ai, bi := -1, -1
	for i, id := range ws.Windows {
		if id == a {
			ai = i
		}
		if id == b {
			bi = i
		}
	}
	if ai < 0 {
		return fmt.Errorf("window %d not in workspace %q: %w", a, workspace, ErrWindowNotFound)
	}
	if bi < 0 {
		return fmt.Errorf("window %d not in workspace %q: %w", b, workspace, ErrWindowNotFound)
	}
	ws.Windows[ai], ws.Windows[bi] = ws.Windows[bi], ws.Windows[ai]
	return nil
}

// WorkspaceForWindow returns the workspace holding a window, if any.
func (s *ManagedState) WorkspaceForWindow(id uint32) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, name := range s.sortedWorkspaceNamesLocked() {
		if containsID(s.workspaces[name].Windows, id) {
			return name, true
		}
	}
	return "", false
}

// ScreenForWorkspace resolves the screen a workspace lives on.
func (s *ManagedState) ScreenForWorkspace(name string) (Screen, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ws, ok := s.workspaces[name]
	if !ok {
		return Screen{}, fmt.Errorf("workspace %q: %w", name, ErrWorkspaceNotFound)
	}
	sc, ok := s.screens[ws.ScreenID]
	if !ok {
		return Screen{}, fmt.Errorf("screen %d: %w", ws.ScreenID, ErrScreenNotFound)
	}
	return *sc, nil
}

// SetFocus records the focused window.
func (s *ManagedState) SetFocus(id uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.windows[id]; !ok {
		return fmt.Errorf("window %d: %w", id, ErrWindowNotFound)
	}
	s.focused = id
	return nil
}

// ClearFocus drops focus without requiring the window to still exist.
func (s *ManagedState) ClearFocus() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focused = 0
}

// Focused returns the focused window, if there is one.
func (s *ManagedState) Focused() (Window, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.focused == 0 {
		return Window{}, false
	}
	w, ok := s.windows[s.focused]
	if !ok {
		return Window{}, false
	}
	return *w, true
}

// FocusWorkspace marks a workspace active on its screen.
func (s *ManagedState) FocusWorkspace(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, ok := s.workspaces[name]
	if !ok {
		return fmt.Errorf("workspace %q: %w", name, ErrWorkspaceNotFound)
	}
	sc, ok := s.screens[ws.ScreenID]
	if !ok {
		return fmt.Errorf("screen %d: %w", ws.ScreenID, ErrScreenNotFound)
	}
	sc.ActiveWorkspace = name
	return nil
}

// SendWorkspaceToScreen rebinds a workspace to another screen.
func (s *ManagedState) SendWorkspaceToScreen(name string, screenID uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, ok := s.workspaces[name]
	if !ok {
		return fmt.Errorf("workspace %q: %w", name, ErrWorkspaceNotFound)
	}
	sc, ok := s.screens[screenID]
	if !ok {
		return fmt.Errorf("screen %d: %w", screenID, ErrScreenNotFound)
	}

	if old, ok := s.screens[ws.ScreenID]; ok && old.ActiveWorkspace == name {
		old.ActiveWorkspace = ""
	}
	ws.ScreenID = screenID
	if sc.ActiveWorkspace == "" {
		sc.ActiveWorkspace = name
	}
	return nil
}

// SetLayout changes a workspace's layout mode.
func (s *ManagedState) SetLayout(name string, mode config.LayoutMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, ok := s.workspaces[name]
	if !ok {
		return fmt.Errorf("workspace %q: %w", name, ErrWorkspaceNotFound)
	}
	ws.Layout = mode
	return nil
}

// SetWindowFrame records a window's current geometry.
func (s *ManagedState) SetWindowFrame(id uint32, frame geometry.Rect) error {
	return s.updateWindow(id, func(w *Window) { w.Frame = frame })
}

// SetWindowTitle records a title change.
func (s *ManagedState) SetWindowTitle(id uint32, title string) error {
	return s.updateWindow(id, func(w *Window) { w.Title = title })
}

// SetWindowMinimized flips the minimized flag.
func (s *ManagedState) SetWindowMinimized(id uint32, minimized bool) error {
	return s.updateWindow(id, func(w *Window) { w.Minimized = minimized })
}

// SetWindowFloating opts a window in or out of tiling. Floating windows
// stay tracked and focusable.
func (s *ManagedState) SetWindowFloating(id uint32, floating bool) error {
	return s.updateWindow(id, func(w *Window) { w.Floating = floating })
}

func (s *ManagedState) updateWindow(id uint32, mutate func(*Window)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[id]
	if !ok {
		return fmt.Errorf("window %d: %w", id, ErrWindowNotFound)
	}
	mutate(w)
	return nil
}

// TiledWindows returns the workspace's window order with floating and
// minimized windows filtered out, ready to feed the layout engine.
func (s *ManagedState) TiledWindows(workspace string) ([]uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ws, ok := s.workspaces[workspace]
	if !ok {
		return nil, fmt.Errorf("workspace %q: %w", workspace, ErrWorkspaceNotFound)
	}

	out := make([]uint32, 0, len(ws.Windows))
	for _, id := range ws.Windows {
		w, ok := s.windows[id]
		if !ok {
			continue
		}
		if w.Floating || w.Minimized {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// WindowsByPID returns the ids of all tracked windows owned by a process.
func (s *ManagedState) WindowsByPID(pid uint32) []uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []uint32
	for id, w := range s.windows {
		if w.PID == pid {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CheckInvariants verifies the structural invariants. It exists for
// tests; production code relies on every operation re-establishing them
// before releasing the lock.
func (s *ManagedState) CheckInvariants() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[uint32]string)
	for name, ws := range s.workspaces {
		if _, ok := s.screens[ws.ScreenID]; !ok && len(s.screens) > 0 {
			return fmt.Errorf("workspace %q references missing screen %d", name, ws.ScreenID)
		}
		for _, id := range ws.Windows {
			if other, dup := seen[id]; dup {
				return fmt.Errorf("window %d in both %q and %q", id, other, name)
			}
			seen[id] = name
		}
	}
	if s.focused != 0 {
		if _, ok := s.windows[s.focused]; !ok {
			return fmt.Errorf("focused window %d is not tracked", s.focused)
		}
	}
	return nil
}

func (s *ManagedState) removeFromWorkspacesLocked(id uint32) {
	for _, ws := range s.workspaces {
		ws.Windows = removeID(ws.Windows, id)
	}
}

func (s *ManagedState) sortedScreenIDsLocked() []uint32 {
	ids := make([]uint32, 0, len(s.screens))
	for id := range s.screens {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *ManagedState) sortedWorkspaceNamesLocked() []string {
	names := make([]string, 0, len(s.workspaces))
	for name := range s.workspaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func copyWorkspace(ws *Workspace) Workspace {
	out := *ws
	out.Windows = append([]uint32(nil), ws.Windows...)
	return out
}

func containsID(ids []uint32, id uint32) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

func removeID(ids []uint32, id uint32) []uint32 {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
