package daemon

import (
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

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seededState(t *testing.T, windowIDs ...uint32) *state.ManagedState {
	t.Helper()
	st := state.NewManagedState()
	st.SetScreens([]state.Screen{{ID: 1, Name: "eDP-1", Frame: geometry.Rect{Width: 1920, Height: 1080}}})
	if err := st.CreateWorkspace("1", 1, config.LayoutMasterStack, geometry.Gaps{}); err != nil {
		t.Fatalf("CreateWorkspace: %v", err)
	}
	for _, id := range windowIDs {
		st.AddWindow(state.Window{ID: id})
	}
	return st
}

func TestReconcileSynthesizesCreated(t *testing.T) {
	st := seededState(t, 101)
	src := platform.NewMockSource(
		[]platform.Screen{{ID: 1, Name: "eDP-1", Frame: geometry.Rect{Width: 1920, Height: 1080}}},
		[]platform.Window{
			{ID: 101, AppClass: "XTerm"},
			{ID: 202, PID: 2000, AppClass: "Firefox", Title: "page"},
		},
	)

	var events []observer.Event
	r := NewReconciler(ReconcilerConfig{Interval: time.Minute, Logger: discardLogger()},
		src, st, func(ev observer.Event) { events = append(events, ev) }, nil)
	r.ReconcileNow()

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1: %v", len(events), events)
	}
	ev := events[0]
	if ev.Kind != observer.WindowCreated || ev.Window != 202 || !ev.Synthesized {
		t.Errorf("event = %+v, want synthesized created for 202", ev)
	}
	if ev.AppClass != "Firefox" || ev.PID != 2000 {
		t.Errorf("event should carry window details, got %+v", ev)
	}
}

func TestReconcileIgnoresSkippedApps(t *testing.T) {
	st := seededState(t, 101)
	src := platform.NewMockSource(
		[]platform.Screen{{ID: 1, Name: "eDP-1", Frame: geometry.Rect{Width: 1920, Height: 1080}}},
		[]platform.Window{
			{ID: 101, AppClass: "XTerm"},
			{ID: 202, PID: 2000, AppClass: "Gnome-calculator"},
			{ID: 203, PID: 2001, AppClass: "Firefox"},
		},
	)

	var events []observer.Event
	r := NewReconciler(ReconcilerConfig{
		Interval: time.Minute,
		SkipApp:  func(app string) bool { return app == "Gnome-calculator" },
		Logger:   discardLogger(),
	}, src, st, func(ev observer.Event) { events = append(events, ev) }, nil)
	r.ReconcileNow()

	// The skip-listed window must not be re-reported on this pass or any
	// later one; the non-skipped window still is.
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1: %v", len(events), events)
	}
	if ev := events[0]; ev.Kind != observer.WindowCreated || ev.Window != 203 {
		t.Errorf("event = %+v, want synthesized created for 203", ev)
	}

	events = nil
	r.ReconcileNow()
	for _, ev := range events {
		if ev.Window == 202 {
			t.Errorf("skip-listed window re-reported: %+v", ev)
		}
	}
}

func TestReconcileSynthesizesDestroyed(t *testing.T) {
	st := seededState(t, 101, 102)
	src := platform.NewMockSource(
		[]platform.Screen{{ID: 1, Name: "eDP-1", Frame: geometry.Rect{Width: 1920, Height: 1080}}},
		[]platform.Window{{ID: 101, AppClass: "XTerm"}},
	)

	var events []observer.Event
	r := NewReconciler(ReconcilerConfig{Interval: time.Minute, Logger: discardLogger()},
		src, st, func(ev observer.Event) { events = append(events, ev) }, nil)
	r.ReconcileNow()

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1: %v", len(events), events)
	}
	if ev := events[0]; ev.Kind != observer.WindowDestroyed || ev.Window != 102 || !ev.Synthesized {
		t.Errorf("event = %+v, want synthesized destroyed for 102", ev)
	}
}

func TestReconcileDetectsScreenDrift(t *testing.T) {
	st := seededState(t)
	src := platform.NewMockSource(
		[]platform.Screen{
			{ID: 1, Name: "eDP-1", Frame: geometry.Rect{Width: 1920, Height: 1080}},
			{ID: 2, Name: "HDMI-1", Frame: geometry.Rect{X: 1920, Width: 1920, Height: 1080}},
		},
		nil,
	)

	changed := 0
	r := NewReconciler(ReconcilerConfig{Interval: time.Minute, Logger: discardLogger()},
		src, st, func(observer.Event) {}, func() error { changed++; return nil })
	r.ReconcileNow()
	if changed != 1 {
		t.Fatalf("screensChanged fired %d times, want 1", changed)
	}

	// Matching configuration stays quiet.
	src.SetScreens([]platform.Screen{{ID: 1, Name: "eDP-1", Frame: geometry.Rect{Width: 1920, Height: 1080}}})
	r.ReconcileNow()
	if changed != 1 {
		t.Fatalf("screensChanged fired %d times after stable pass, want still 1", changed)
	}
}

func TestReconcileRecoversFromPanic(t *testing.T) {
	st := seededState(t)
	src := platform.NewMockSource(
		[]platform.Screen{{ID: 1, Name: "eDP-1", Frame: geometry.Rect{Width: 1920, Height: 1080}}},
		[]platform.Window{{ID: 900, AppClass: "XTerm"}},
	)

	r := NewReconciler(ReconcilerConfig{Interval: time.Minute, Logger: discardLogger()},
		src, st, func(observer.Event) { panic("sink blew up") }, nil)

	// Must not propagate.
	r.ReconcileNow()
}
