package observer

import (
	"errors"
	"sync"
	"testing"

	"github.com/1broseidon/tilewm/internal/platform"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) sink(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func window(id, pid uint32, app string) platform.Window {
	return platform.Window{ID: id, PID: pid, AppClass: app}
}

func TestInitializeRegistersPerProcess(t *testing.T) {
	rec := &eventRecorder{}
	r := NewRegistry(Options{Sink: rec.sink})

	err := r.Initialize([]platform.Window{
		window(1, 100, "firefox"),
		window(2, 100, "firefox"),
		window(3, 200, "mpv"),
	})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if got := r.ObserverCount(); got != 2 {
		t.Errorf("ObserverCount = %d, want 2 (one per process)", got)
	}
	if got := r.State(); got != StateRunning {
		t.Errorf("state = %s, want running", got)
	}
}

func TestInitializeTwiceFails(t *testing.T) {
	r := NewRegistry(Options{})
	if err := r.Initialize(nil); err != nil {
		t.Fatal(err)
	}
	if err := r.Initialize(nil); err == nil {
		t.Error("second Initialize should fail while running")
	}

	r.Shutdown()
	if err := r.Initialize(nil); err != nil {
		t.Errorf("Initialize after Shutdown should work: %v", err)
	}
}

func TestTrackIsIdempotent(t *testing.T) {
	watches := 0
	r := NewRegistry(Options{
		Watch: func(uint32) error { watches++; return nil },
	})
	if err := r.Initialize(nil); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := r.Track(window(1, 100, "firefox")); err != nil {
			t.Fatalf("Track %d: %v", i, err)
		}
	}
	if watches != 1 {
		t.Errorf("watch called %d times, want 1", watches)
	}
	if got := r.ObserverCount(); got != 1 {
		t.Errorf("ObserverCount = %d, want 1", got)
	}
}

func TestTrackSkipsListedApps(t *testing.T) {
	r := NewRegistry(Options{SkipApps: []string{"Polybar", "Dunst"}})
	if err := r.Initialize(nil); err != nil {
		t.Fatal(err)
	}

	if err := r.Track(window(1, 100, "polybar")); err != nil {
		t.Fatalf("Track: %v", err)
	}
	if got := r.ObserverCount(); got != 0 {
		t.Errorf("skip-listed app registered: count = %d", got)
	}
	if !r.ShouldSkip("DUNST") {
		t.Error("skip matching should be case-insensitive")
	}
}

func TestTrackWatchFailureIsObserverFailed(t *testing.T) {
	r := NewRegistry(Options{
		Watch: func(id uint32) error {
			if id == 2 {
				return errors.New("BadWindow")
			}
			return nil
		},
	})
	if err := r.Initialize(nil); err != nil {
		t.Fatal(err)
	}

	if err := r.Track(window(1, 100, "firefox")); err != nil {
		t.Fatalf("Track(1): %v", err)
	}
	err := r.Track(window(2, 200, "mpv"))
	if !errors.Is(err, ErrObserverFailed) {
		t.Errorf("err = %v, want ErrObserverFailed", err)
	}
	// The failed process keeps no stale window entry.
	if got := r.WindowsForPID(200); len(got) != 0 {
		t.Errorf("failed watch left windows tracked: %v", got)
	}
}

func TestRemoveAppSynthesizesDestroys(t *testing.T) {
	rec := &eventRecorder{}
	r := NewRegistry(Options{Sink: rec.sink})
	err := r.Initialize([]platform.Window{
		window(1, 100, "firefox"),
		window(2, 100, "firefox"),
	})
	if err != nil {
		t.Fatal(err)
	}

	r.RemoveApp(100)

	destroys := 0
	terminated := 0
	for _, ev := range rec.all() {
		switch ev.Kind {
		case WindowDestroyed:
			if !ev.Synthesized {
				t.Errorf("destroy for window %d should be synthesized", ev.Window)
			}
			if ev.PID != 100 {
				t.Errorf("destroy pid = %d, want 100", ev.PID)
			}
			destroys++
		case AppTerminated:
			terminated++
		}
	}
	if destroys != 2 || terminated != 1 {
		t.Errorf("got %d destroys and %d terminations, want 2 and 1", destroys, terminated)
	}
	if got := r.ObserverCount(); got != 0 {
		t.Errorf("ObserverCount = %d, want 0", got)
	}

	// Removing an unknown pid is a no-op.
	r.RemoveApp(999)
}

func TestDispatchDroppedAfterShutdown(t *testing.T) {
	rec := &eventRecorder{}
	r := NewRegistry(Options{Sink: rec.sink})
	if err := r.Initialize([]platform.Window{window(1, 100, "firefox")}); err != nil {
		t.Fatal(err)
	}

	r.Dispatch(Event{Kind: WindowFocused, Window: 1})
	r.Shutdown()
	r.Dispatch(Event{Kind: WindowFocused, Window: 1})

	if got := len(rec.all()); got != 1 {
		t.Errorf("dispatched %d events, want 1 (post-shutdown dropped)", got)
	}
	if got := r.State(); got != StateUninitialized {
		t.Errorf("state after shutdown = %s, want uninitialized", got)
	}
}

func TestUntrackCallsUnwatch(t *testing.T) {
	var unwatched []uint32
	r := NewRegistry(Options{
		Unwatch: func(id uint32) { unwatched = append(unwatched, id) },
	})
	if err := r.Initialize([]platform.Window{window(1, 100, "firefox")}); err != nil {
		t.Fatal(err)
	}

	r.Untrack(1)
	if len(unwatched) != 1 || unwatched[0] != 1 {
		t.Errorf("unwatched = %v, want [1]", unwatched)
	}
	if got := r.WindowsForPID(100); len(got) != 0 {
		t.Errorf("window still tracked: %v", got)
	}
}
