package ipc

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/1broseidon/tilewm/internal/config"
	"github.com/1broseidon/tilewm/internal/geometry"
	"github.com/1broseidon/tilewm/internal/manager"
	"github.com/1broseidon/tilewm/internal/platform"
	"github.com/1broseidon/tilewm/internal/state"
)

func startTestServer(t *testing.T) (*Client, chan struct{}) {
	t.Helper()

	src := platform.NewMockSource(
		[]platform.Screen{{ID: 1, Name: "eDP-1", Frame: geometry.Rect{Width: 1920, Height: 1080}}},
		[]platform.Window{
			{ID: 101, PID: 1000, AppClass: "XTerm", Title: "xterm", Frame: geometry.Rect{Width: 800, Height: 600}},
			{ID: 102, PID: 1001, AppClass: "XTerm", Title: "xterm", Frame: geometry.Rect{X: 100, Width: 800, Height: 600}},
		},
	)
	cfg := config.DefaultConfig()
	cfg.Gaps = config.GapsConfig{}
	cfg.Workspaces = []config.WorkspaceDef{{Name: "1"}, {Name: "2"}}

	mgr := manager.New(manager.Options{
		Source: src,
		State:  state.NewManagedState(),
		Config: cfg,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err := mgr.Bootstrap(); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	mgr.Start(ctx)

	reloadChan := make(chan struct{}, 1)
	srv := NewServerWithPath(filepath.Join(t.TempDir(), "tilewm.sock"), mgr, reloadChan)
	if err := srv.Start(); err != nil {
		t.Fatalf("server Start: %v", err)
	}
	t.Cleanup(func() {
		srv.Stop()
		cancel()
		<-mgr.Done()
	})

	return NewClientWithPath(srv.socketPath), reloadChan
}

func TestStatusRoundTrip(t *testing.T) {
	client, _ := startTestServer(t)

	status, err := client.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if !status.DaemonRunning {
		t.Error("expected daemon_running true")
	}
	if status.Windows != 2 || status.Workspaces != 2 || status.Screens != 1 {
		t.Errorf("status = %+v, want 2 windows, 2 workspaces, 1 screen", status)
	}
}

func TestQueryWindowsRoundTrip(t *testing.T) {
	client, _ := startTestServer(t)

	data, err := client.QueryWindows()
	if err != nil {
		t.Fatalf("QueryWindows: %v", err)
	}
	if len(data.Windows) != 2 {
		t.Fatalf("got %d windows, want 2", len(data.Windows))
	}
	byID := map[uint32]WindowInfo{}
	for _, w := range data.Windows {
		byID[w.ID] = w
	}
	if byID[101].Workspace != "1" || byID[101].App != "XTerm" {
		t.Errorf("window 101 = %+v", byID[101])
	}
	// Master-stack at 60% on a 1920px screen.
	if byID[101].Width != 1152 {
		t.Errorf("window 101 width = %d, want 1152", byID[101].Width)
	}
}

func TestSetLayoutRoundTrip(t *testing.T) {
	client, _ := startTestServer(t)

	if err := client.SetLayout("1", "monocle"); err != nil {
		t.Fatalf("SetLayout: %v", err)
	}
	ws, err := client.QueryWorkspaces()
	if err != nil {
		t.Fatalf("QueryWorkspaces: %v", err)
	}
	for _, w := range ws.Workspaces {
		if w.Name == "1" && w.Layout != "monocle" {
			t.Errorf("workspace 1 layout = %q, want monocle", w.Layout)
		}
	}

	err = client.SetLayout("1", "spiral")
	if err == nil || !strings.Contains(err.Error(), "daemon error") {
		t.Errorf("error = %v, want daemon error for unknown mode", err)
	}
}

func TestMoveAndFocusRoundTrip(t *testing.T) {
	client, _ := startTestServer(t)

	if err := client.FocusWindow(101); err != nil {
		t.Fatalf("FocusWindow: %v", err)
	}
	if err := client.FocusDirection("next"); err != nil {
		t.Fatalf("FocusDirection: %v", err)
	}
	data, err := client.QueryWindows()
	if err != nil {
		t.Fatalf("QueryWindows: %v", err)
	}
	for _, w := range data.Windows {
		if w.ID == 102 && !w.Focused {
			t.Error("window 102 should hold focus after next")
		}
	}

	if err := client.MoveWindowToWorkspace(102, "2"); err != nil {
		t.Fatalf("MoveWindowToWorkspace: %v", err)
	}
	err = client.MoveWindowToWorkspace(102, "void")
	if err == nil {
		t.Error("expected error for unknown workspace")
	}
}

func TestReloadSignalsDaemon(t *testing.T) {
	client, reloadChan := startTestServer(t)

	if err := client.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	select {
	case <-reloadChan:
	case <-time.After(2 * time.Second):
		t.Fatal("reload channel never signaled")
	}
}

func TestUnknownCommandRejected(t *testing.T) {
	client, _ := startTestServer(t)

	err := client.send(CommandType("NOPE"), nil)
	if err == nil || !strings.Contains(err.Error(), "Unknown command") {
		t.Errorf("error = %v, want unknown command", err)
	}
}
