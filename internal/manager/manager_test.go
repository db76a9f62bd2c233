package manager

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/1broseidon/tilewm/internal/config"
	"github.com/1broseidon/tilewm/internal/geometry"
	"github.com/1broseidon/tilewm/internal/observer"
	"github.com/1broseidon/tilewm/internal/platform"
	"github.com/1broseidon/tilewm/internal/state"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Gaps = config.GapsConfig{}
	cfg.Workspaces = []config.WorkspaceDef{
		{Name: "1", Screen: 0},
		{Name: "2", Screen: 1},
	}
	return cfg
}

func singleScreen() []platform.Screen {
	return []platform.Screen{
		{ID: 1, Name: "eDP-1", Frame: geometry.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}},
	}
}

func dualScreens() []platform.Screen {
	return []platform.Screen{
		{ID: 1, Name: "eDP-1", Frame: geometry.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}},
		{ID: 2, Name: "HDMI-1", Frame: geometry.Rect{X: 1920, Y: 0, Width: 1920, Height: 1080}},
	}
}

func testWindows(ids ...uint32) []platform.Window {
	out := make([]platform.Window, 0, len(ids))
	for i, id := range ids {
		out = append(out, platform.Window{
			ID:       id,
			PID:      1000 + uint32(i),
			AppClass: "XTerm",
			Title:    "xterm",
			Frame:    geometry.Rect{X: 100 * i, Y: 50 * i, Width: 800, Height: 600},
			Layer:    i,
		})
	}
	return out
}

func startManager(t *testing.T, cfg *config.Config, screens []platform.Screen, windows []platform.Window) (*Manager, *platform.MockSource) {
	t.Helper()

	src := platform.NewMockSource(screens, windows)
	st := state.NewManagedState()
	m := New(Options{
		Source: src,
		State:  st,
		Config: cfg,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err := m.Bootstrap(); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	t.Cleanup(func() {
		cancel()
		<-m.Done()
	})
	return m, src
}

type notifyRecorder struct {
	ch chan Notification
}

func recordNotifications(m *Manager) *notifyRecorder {
	r := &notifyRecorder{ch: make(chan Notification, 64)}
	m.Subscribe(func(n Notification) { r.ch <- n })
	return r
}

func (r *notifyRecorder) wait(t *testing.T, kind NotificationKind) Notification {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case n := <-r.ch:
			if n.Kind == kind {
				return n
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s notification", kind)
		}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func windowFrame(t *testing.T, m *Manager, id uint32) geometry.Rect {
	t.Helper()
	for _, w := range m.QueryWindows() {
		if w.ID == id {
			return w.Frame
		}
	}
	t.Fatalf("window %d not in state", id)
	return geometry.Rect{}
}

func TestBootstrapTilesExistingWindows(t *testing.T) {
	m, _ := startManager(t, testConfig(), singleScreen(), testWindows(101, 102))

	ws := m.QueryWorkspaces()
	if len(ws) != 2 {
		t.Fatalf("expected 2 workspaces, got %d", len(ws))
	}

	want101 := geometry.Rect{X: 0, Y: 0, Width: 1152, Height: 1080}
	want102 := geometry.Rect{X: 1152, Y: 0, Width: 768, Height: 1080}
	if got := windowFrame(t, m, 101); got != want101 {
		t.Errorf("master frame = %v, want %v", got, want101)
	}
	if got := windowFrame(t, m, 102); got != want102 {
		t.Errorf("stack frame = %v, want %v", got, want102)
	}
}

func TestWindowCreatedEventRetiles(t *testing.T) {
	m, _ := startManager(t, testConfig(), singleScreen(), testWindows(101))
	rec := recordNotifications(m)

	m.EnqueueEvent(observer.Event{
		Kind:     observer.WindowCreated,
		Window:   202,
		PID:      2000,
		AppClass: "XTerm",
		Frame:    geometry.Rect{X: 10, Y: 10, Width: 400, Height: 300},
	})
	n := rec.wait(t, NotifyWindowCreated)
	if n.Window != 202 || n.Workspace != "1" {
		t.Fatalf("created notification = %+v, want window 202 on workspace 1", n)
	}

	if got := windowFrame(t, m, 101); got.Width != 1152 {
		t.Errorf("master width = %d, want 1152", got.Width)
	}
	if got := windowFrame(t, m, 202); got.X != 1152 {
		t.Errorf("new window x = %d, want 1152", got.X)
	}
}

func TestWindowDestroyedEventRetiles(t *testing.T) {
	m, _ := startManager(t, testConfig(), singleScreen(), testWindows(101, 102))
	rec := recordNotifications(m)

	m.EnqueueEvent(observer.Event{Kind: observer.WindowDestroyed, Window: 102})
	rec.wait(t, NotifyWindowDestroyed)

	if len(m.QueryWindows()) != 1 {
		t.Fatalf("expected 1 window after destroy, got %d", len(m.QueryWindows()))
	}
	want := geometry.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}
	if got := windowFrame(t, m, 101); got != want {
		t.Errorf("survivor frame = %v, want %v", got, want)
	}
}

func TestBatchContinuesPastFailedWindow(t *testing.T) {
	m, src := startManager(t, testConfig(), singleScreen(), testWindows(101, 102, 103))

	src.MoveResizeErr[102] = errors.New("rejected by server")
	src.ResetCalls()
	begins0, releases0 := src.BatchCounts()

	err := m.Relayout("1")
	if err == nil {
		t.Fatal("expected per-window failure to surface")
	}
	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.Window != 102 {
		t.Fatalf("error = %v, want OperationError for window 102", err)
	}

	moved := map[uint32]bool{}
	for _, call := range src.Moves() {
		moved[call.ID] = true
	}
	if !moved[101] || !moved[103] {
		t.Errorf("windows 101 and 103 should still have been placed, got %v", moved)
	}
	if moved[102] {
		t.Error("window 102 should not have been placed")
	}

	begins, releases := src.BatchCounts()
	if begins != begins0+1 || releases != releases0+1 {
		t.Errorf("batch begins/releases = %d/%d, want exactly one more of each", begins-begins0, releases-releases0)
	}
}

func TestSetLayoutMonocle(t *testing.T) {
	m, _ := startManager(t, testConfig(), singleScreen(), testWindows(101, 102))
	rec := recordNotifications(m)

	if err := m.SetLayout("1", config.LayoutMonocle); err != nil {
		t.Fatalf("SetLayout: %v", err)
	}
	if n := rec.wait(t, NotifyLayoutChanged); n.Workspace != "1" {
		t.Errorf("notification workspace = %q, want 1", n.Workspace)
	}

	full := geometry.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}
	for _, id := range []uint32{101, 102} {
		if got := windowFrame(t, m, id); got != full {
			t.Errorf("window %d frame = %v, want %v", id, got, full)
		}
	}
}

func TestSetLayoutErrors(t *testing.T) {
	m, _ := startManager(t, testConfig(), singleScreen(), nil)

	if err := m.SetLayout("1", "spiral"); err == nil {
		t.Error("expected error for unknown layout mode")
	}
	err := m.SetLayout("nope", config.LayoutGrid)
	if !errors.Is(err, state.ErrWorkspaceNotFound) {
		t.Errorf("error = %v, want ErrWorkspaceNotFound", err)
	}
}

func TestMoveWindowToWorkspaceAcrossScreens(t *testing.T) {
	m, _ := startManager(t, testConfig(), dualScreens(), testWindows(101, 102))

	if err := m.MoveWindowToWorkspace(102, "2"); err != nil {
		t.Fatalf("MoveWindowToWorkspace: %v", err)
	}

	ws2, err := m.st.Workspace("2")
	if err != nil {
		t.Fatalf("Workspace: %v", err)
	}
	if len(ws2.Windows) != 1 || ws2.Windows[0] != 102 {
		t.Fatalf("workspace 2 windows = %v, want [102]", ws2.Windows)
	}

	// Alone on each screen now, both fill their screen.
	if got := windowFrame(t, m, 101); got.X != 0 || got.Width != 1920 {
		t.Errorf("window 101 frame = %v", got)
	}
	if got := windowFrame(t, m, 102); got.X != 1920 || got.Width != 1920 {
		t.Errorf("window 102 frame = %v, want on second screen", got)
	}
}

func TestMoveWindowToUnknownWorkspace(t *testing.T) {
	m, _ := startManager(t, testConfig(), singleScreen(), testWindows(101))

	err := m.MoveWindowToWorkspace(101, "void")
	if !errors.Is(err, state.ErrWorkspaceNotFound) {
		t.Fatalf("error = %v, want ErrWorkspaceNotFound", err)
	}
	if ws, _ := m.st.WorkspaceForWindow(101); ws != "1" {
		t.Errorf("window moved despite error, now on %q", ws)
	}
}

func TestMoveWindowDirectionSwapsMaster(t *testing.T) {
	m, _ := startManager(t, testConfig(), singleScreen(), testWindows(101, 102))

	if err := m.MoveWindowDirection(101, DirectionNext); err != nil {
		t.Fatalf("MoveWindowDirection: %v", err)
	}

	if got := windowFrame(t, m, 102); got.X != 0 || got.Width != 1152 {
		t.Errorf("window 102 should be master after swap, frame = %v", got)
	}
	if got := windowFrame(t, m, 101); got.X != 1152 {
		t.Errorf("window 101 should be in the stack, frame = %v", got)
	}
}

func TestFocusDirectionSpatial(t *testing.T) {
	m, src := startManager(t, testConfig(), singleScreen(), testWindows(101, 102, 103))

	if err := m.FocusWindow(101); err != nil {
		t.Fatalf("FocusWindow: %v", err)
	}
	// Master sits left, the stack right; the nearest window to the
	// right is the top stack entry.
	if err := m.FocusDirection(DirectionRight); err != nil {
		t.Fatalf("FocusDirection: %v", err)
	}
	if w, ok := m.FocusedWindow(); !ok || w.ID != 102 {
		t.Fatalf("focused = %+v, want window 102", w)
	}
	if err := m.FocusDirection(DirectionNext); err != nil {
		t.Fatalf("FocusDirection next: %v", err)
	}
	if w, _ := m.FocusedWindow(); w.ID != 103 {
		t.Fatalf("focused = %d, want 103", w.ID)
	}

	calls := src.FocusCalls()
	if len(calls) != 3 {
		t.Errorf("focus-raise calls = %v, want 3 entries", calls)
	}
}

func TestFocusDirectionWithoutFocusFails(t *testing.T) {
	m, _ := startManager(t, testConfig(), singleScreen(), testWindows(101))

	err := m.FocusDirection(DirectionNext)
	if !errors.Is(err, state.ErrWindowNotFound) {
		t.Fatalf("error = %v, want ErrWindowNotFound", err)
	}
}

func TestResizeWindowAdjustsMasterRatio(t *testing.T) {
	m, _ := startManager(t, testConfig(), singleScreen(), testWindows(101, 102))

	// 192px on a 1920px axis is a 0.1 ratio step: 0.6 -> 0.7.
	if err := m.ResizeWindow(101, "width", 192); err != nil {
		t.Fatalf("ResizeWindow: %v", err)
	}
	if got := windowFrame(t, m, 101); got.Width != 1344 {
		t.Errorf("master width after resize = %d, want 1344", got.Width)
	}

	if err := m.Balance("1"); err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if got := windowFrame(t, m, 101); got.Width != 1152 {
		t.Errorf("master width after balance = %d, want 1152", got.Width)
	}
}

func TestResizeRatioClamped(t *testing.T) {
	m, _ := startManager(t, testConfig(), singleScreen(), testWindows(101, 102))

	if err := m.ResizeWindow(101, "width", 100000); err != nil {
		t.Fatalf("ResizeWindow: %v", err)
	}
	// Ratio caps at 0.9.
	if got := windowFrame(t, m, 101); got.Width != 1728 {
		t.Errorf("master width = %d, want 1728", got.Width)
	}
}

func TestApplyPresetFloatsWindow(t *testing.T) {
	m, _ := startManager(t, testConfig(), singleScreen(), testWindows(101, 102))

	if err := m.ApplyPreset(101, "half-left"); err != nil {
		t.Fatalf("ApplyPreset: %v", err)
	}

	want := geometry.Rect{X: 0, Y: 0, Width: 960, Height: 1080}
	if got := windowFrame(t, m, 101); got != want {
		t.Errorf("preset frame = %v, want %v", got, want)
	}
	w, err := m.st.Window(101)
	if err != nil || !w.Floating {
		t.Errorf("window 101 should be floating")
	}
	// The remaining tiled window takes the whole screen.
	if got := windowFrame(t, m, 102); got.Width != 1920 {
		t.Errorf("window 102 width = %d, want 1920", got.Width)
	}
}

func TestApplyPresetUnknownName(t *testing.T) {
	m, _ := startManager(t, testConfig(), singleScreen(), testWindows(101))

	if err := m.ApplyPreset(101, "nope"); err == nil {
		t.Fatal("expected error for unknown preset")
	}
}

func TestResizeFloatingWindow(t *testing.T) {
	m, _ := startManager(t, testConfig(), singleScreen(), testWindows(101, 102))

	if err := m.ApplyPreset(101, "half-left"); err != nil {
		t.Fatalf("ApplyPreset: %v", err)
	}
	if err := m.ResizeWindow(101, "width", 10); err != nil {
		t.Fatalf("ResizeWindow: %v", err)
	}
	if got := windowFrame(t, m, 101); got.Width != 970 {
		t.Errorf("floating width = %d, want 970", got.Width)
	}
}

func TestSendWorkspaceToScreen(t *testing.T) {
	m, _ := startManager(t, testConfig(), dualScreens(), testWindows(101))

	if err := m.SendWorkspaceToScreen("1", 2); err != nil {
		t.Fatalf("SendWorkspaceToScreen: %v", err)
	}
	if got := windowFrame(t, m, 101); got.X < 1920 {
		t.Errorf("window should have moved to the second screen, frame = %v", got)
	}

	err := m.SendWorkspaceToScreen("1", 99)
	if !errors.Is(err, state.ErrScreenNotFound) {
		t.Errorf("error = %v, want ErrScreenNotFound", err)
	}
}

func TestScreensChangedKeepsActiveWorkspace(t *testing.T) {
	m, src := startManager(t, testConfig(), dualScreens(), nil)

	if err := m.FocusWorkspace("2"); err != nil {
		t.Fatalf("FocusWorkspace: %v", err)
	}

	// Same ids, new resolution.
	src.SetScreens([]platform.Screen{
		{ID: 1, Name: "eDP-1", Frame: geometry.Rect{Width: 2560, Height: 1440}},
		{ID: 2, Name: "HDMI-1", Frame: geometry.Rect{X: 2560, Width: 2560, Height: 1440}},
	})
	if err := m.ScreensChanged(); err != nil {
		t.Fatalf("ScreensChanged: %v", err)
	}

	sc, err := m.st.Screen(2)
	if err != nil {
		t.Fatal(err)
	}
	if sc.ActiveWorkspace != "2" {
		t.Errorf("active workspace after reconfiguration = %q, want 2", sc.ActiveWorkspace)
	}
}

func TestMinimizedWindowLeavesLayout(t *testing.T) {
	m, _ := startManager(t, testConfig(), singleScreen(), testWindows(101, 102))

	m.EnqueueEvent(observer.Event{Kind: observer.WindowMinimized, Window: 102})
	waitFor(t, "minimize to land", func() bool {
		w, err := m.st.Window(102)
		return err == nil && w.Minimized
	})
	waitFor(t, "survivor to expand", func() bool {
		return windowFrame(t, m, 101).Width == 1920
	})
}

func TestCloseWindowAsksSource(t *testing.T) {
	m, src := startManager(t, testConfig(), singleScreen(), testWindows(101, 102))

	if err := m.CloseWindow(102); err != nil {
		t.Fatalf("CloseWindow: %v", err)
	}
	calls := src.CloseCalls()
	if len(calls) != 1 || calls[0] != 102 {
		t.Errorf("source close calls = %v, want [102]", calls)
	}

	if err := m.CloseWindow(999); !errors.Is(err, state.ErrWindowNotFound) {
		t.Errorf("err = %v, want ErrWindowNotFound", err)
	}
}

func TestWindowRuleAssignsAndFloats(t *testing.T) {
	cfg := testConfig()
	cfg.Rules = []config.Rule{{App: "gimp", Floating: true, Workspace: "2"}}
	m, _ := startManager(t, cfg, dualScreens(), nil)
	rec := recordNotifications(m)

	m.EnqueueEvent(observer.Event{
		Kind:     observer.WindowCreated,
		Window:   301,
		PID:      3000,
		AppClass: "Gimp",
		Frame:    geometry.Rect{X: 0, Y: 0, Width: 640, Height: 480},
	})
	n := rec.wait(t, NotifyWindowCreated)
	if n.Workspace != "2" {
		t.Fatalf("rule workspace = %q, want 2", n.Workspace)
	}
	w, err := m.st.Window(301)
	if err != nil || !w.Floating {
		t.Errorf("rule should have floated the window")
	}
}

func TestSkipListedAppNotManaged(t *testing.T) {
	cfg := testConfig()
	cfg.SkipApps = []string{"polybar"}
	m, _ := startManager(t, cfg, singleScreen(), testWindows(101))

	m.EnqueueEvent(observer.Event{
		Kind:     observer.WindowCreated,
		Window:   401,
		AppClass: "Polybar",
	})
	// Use a second event as a fence; the loop applies them in order.
	m.EnqueueEvent(observer.Event{Kind: observer.WindowFocused, Window: 101})
	waitFor(t, "fence event", func() bool {
		w, ok := m.FocusedWindow()
		return ok && w.ID == 101
	})

	if _, err := m.st.Window(401); err == nil {
		t.Error("skip-listed window should not be managed")
	}
}

func TestCommandsDroppedAfterShutdown(t *testing.T) {
	src := platform.NewMockSource(singleScreen(), nil)
	st := state.NewManagedState()
	m := New(Options{
		Source: src,
		State:  st,
		Config: testConfig(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err := m.Bootstrap(); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	cancel()
	<-m.Done()

	if err := m.FocusWorkspace("1"); !errors.Is(err, ErrNotRunning) {
		t.Errorf("error = %v, want ErrNotRunning", err)
	}
	// Late event deliveries are dropped, not applied.
	m.EnqueueEvent(observer.Event{Kind: observer.WindowCreated, Window: 501})
	if _, err := m.st.Window(501); err == nil {
		t.Error("event after shutdown should have been dropped")
	}
}

func TestReloadClearsOverrides(t *testing.T) {
	m, _ := startManager(t, testConfig(), singleScreen(), testWindows(101, 102))

	if err := m.ResizeWindow(101, "width", 192); err != nil {
		t.Fatalf("ResizeWindow: %v", err)
	}
	if err := m.Reload(testConfig()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := windowFrame(t, m, 101); got.Width != 1152 {
		t.Errorf("master width after reload = %d, want 1152", got.Width)
	}
}

func TestFocusWorkspaceRaisesFirstWindow(t *testing.T) {
	m, src := startManager(t, testConfig(), dualScreens(), testWindows(101))
	rec := recordNotifications(m)

	if err := m.FocusWorkspace("1"); err != nil {
		t.Fatalf("FocusWorkspace: %v", err)
	}
	rec.wait(t, NotifyWorkspaceFocused)
	calls := src.FocusCalls()
	if len(calls) == 0 || calls[len(calls)-1] != 101 {
		t.Errorf("focus calls = %v, want trailing 101", calls)
	}

	err := m.FocusWorkspace("void")
	if !errors.Is(err, state.ErrWorkspaceNotFound) {
		t.Errorf("error = %v, want ErrWorkspaceNotFound", err)
	}
}
