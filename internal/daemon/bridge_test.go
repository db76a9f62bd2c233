package daemon

import (
	"testing"

	"github.com/1broseidon/tilewm/internal/geometry"
	"github.com/1broseidon/tilewm/internal/observer"
	"github.com/1broseidon/tilewm/internal/platform"
	"github.com/1broseidon/tilewm/internal/x11"
)

func bridgeFixture() (*platform.MockSource, *EventBridge, *[]observer.Event) {
	source := platform.NewMockSource(
		[]platform.Screen{{ID: 1, Name: "eDP-1", Frame: geometry.Rect{Width: 1920, Height: 1080}}},
		[]platform.Window{
			{ID: 101, PID: 4242, AppClass: "XTerm", Title: "shell", Frame: geometry.Rect{Width: 800, Height: 600}},
			{ID: 102, PID: 4243, AppClass: "Firefox", Title: "page", Frame: geometry.Rect{X: 800, Width: 800, Height: 600}, Minimized: true},
		},
	)
	var got []observer.Event
	bridge := NewEventBridge(source, func(ev observer.Event) { got = append(got, ev) }, discardLogger())
	return source, bridge, &got
}

func TestBridgeMappedEnrichesDetails(t *testing.T) {
	_, bridge, got := bridgeFixture()

	bridge.Handle(x11.Event{Kind: x11.EventMapped, Window: 101})

	if len(*got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(*got))
	}
	ev := (*got)[0]
	if ev.Kind != observer.WindowCreated {
		t.Fatalf("expected WindowCreated, got %v", ev.Kind)
	}
	if ev.PID != 4242 || ev.AppClass != "XTerm" || ev.Title != "shell" {
		t.Errorf("event not enriched: %+v", ev)
	}
	if ev.Frame.Width != 800 {
		t.Errorf("expected frame width 800, got %d", ev.Frame.Width)
	}
}

func TestBridgeCreatedIsIgnored(t *testing.T) {
	_, bridge, got := bridgeFixture()

	bridge.Handle(x11.Event{Kind: x11.EventCreated, Window: 101})

	if len(*got) != 0 {
		t.Fatalf("create before map should emit nothing, got %d events", len(*got))
	}
}

func TestBridgeUnmapDisambiguation(t *testing.T) {
	source, bridge, got := bridgeFixture()

	// Still in the client list: iconified, not gone.
	bridge.Handle(x11.Event{Kind: x11.EventUnmapped, Window: 101})
	if len(*got) != 1 || (*got)[0].Kind != observer.WindowMinimized {
		t.Fatalf("expected WindowMinimized, got %+v", *got)
	}

	// Removed from the client list: the window was destroyed.
	source.SetWindows(nil)
	bridge.Handle(x11.Event{Kind: x11.EventUnmapped, Window: 101})
	if len(*got) != 2 || (*got)[1].Kind != observer.WindowDestroyed {
		t.Fatalf("expected WindowDestroyed, got %+v", *got)
	}
}

func TestBridgeFocusChangedQueriesActive(t *testing.T) {
	source, bridge, got := bridgeFixture()
	source.FocusRaise(102)

	bridge.Handle(x11.Event{Kind: x11.EventFocusChanged})

	if len(*got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(*got))
	}
	if ev := (*got)[0]; ev.Kind != observer.WindowFocused || ev.Window != 102 {
		t.Errorf("expected focus on 102, got %+v", ev)
	}
}

func TestBridgeFocusOnNothingIsDropped(t *testing.T) {
	_, bridge, got := bridgeFixture()

	bridge.Handle(x11.Event{Kind: x11.EventFocusChanged})

	if len(*got) != 0 {
		t.Fatalf("focus with no active window should emit nothing, got %+v", *got)
	}
}

func TestBridgeStateChangedFollowsMinimized(t *testing.T) {
	_, bridge, got := bridgeFixture()

	bridge.Handle(x11.Event{Kind: x11.EventStateChanged, Window: 102})
	bridge.Handle(x11.Event{Kind: x11.EventStateChanged, Window: 101})

	if len(*got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(*got))
	}
	if (*got)[0].Kind != observer.WindowMinimized {
		t.Errorf("window 102 is iconified, expected WindowMinimized, got %v", (*got)[0].Kind)
	}
	if (*got)[1].Kind != observer.WindowUnminimized {
		t.Errorf("window 101 is mapped, expected WindowUnminimized, got %v", (*got)[1].Kind)
	}
}

func TestBridgeConfiguredCarriesFrame(t *testing.T) {
	_, bridge, got := bridgeFixture()

	bridge.Handle(x11.Event{Kind: x11.EventConfigured, Window: 102})

	if len(*got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(*got))
	}
	if ev := (*got)[0]; ev.Kind != observer.WindowMoved || ev.Frame.X != 800 {
		t.Errorf("expected WindowMoved at x=800, got %+v", ev)
	}
}

func TestBridgeUnknownWindowDropped(t *testing.T) {
	_, bridge, got := bridgeFixture()

	bridge.Handle(x11.Event{Kind: x11.EventMapped, Window: 999})
	bridge.Handle(x11.Event{Kind: x11.EventConfigured, Window: 999})

	if len(*got) != 0 {
		t.Fatalf("events for unknown windows should be dropped, got %+v", *got)
	}
}
