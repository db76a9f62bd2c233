package daemon

import (
	"log/slog"

	"github.com/1broseidon/tilewm/internal/observer"
	"github.com/1broseidon/tilewm/internal/platform"
	"github.com/1broseidon/tilewm/internal/x11"
)

// EventBridge turns raw X notifications into enriched observer events.
// X events only carry a window id; the bridge resolves the rest through
// the batch query so the manager never talks to X for event details.
type EventBridge struct {
	source platform.WindowSource
	emit   func(observer.Event)
	logger *slog.Logger
}

// NewEventBridge wires a bridge to the platform source. emit feeds the
// manager loop.
func NewEventBridge(source platform.WindowSource, emit func(observer.Event), logger *slog.Logger) *EventBridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBridge{source: source, emit: emit, logger: logger}
}

// Handle translates one X event. Safe to call from the X event loop
// goroutine; emit is expected to be non-blocking (a buffered enqueue).
func (b *EventBridge) Handle(ev x11.Event) {
	switch ev.Kind {
	case x11.EventCreated:
		// Windows are created unmapped; management starts on map.
	case x11.EventMapped:
		if w, ok := b.lookup(ev.Window); ok {
			b.emit(observer.Event{
				Kind:     observer.WindowCreated,
				Window:   w.ID,
				PID:      w.PID,
				AppClass: w.AppClass,
				Title:    w.Title,
				Frame:    w.Frame,
			})
		}
	case x11.EventDestroyed:
		b.emit(observer.Event{Kind: observer.WindowDestroyed, Window: ev.Window})
	case x11.EventUnmapped:
		// Iconified windows unmap too. Still in the client list means
		// minimized, gone means destroyed.
		if _, ok := b.lookup(ev.Window); ok {
			b.emit(observer.Event{Kind: observer.WindowMinimized, Window: ev.Window})
		} else {
			b.emit(observer.Event{Kind: observer.WindowDestroyed, Window: ev.Window})
		}
	case x11.EventConfigured:
		if w, ok := b.lookup(ev.Window); ok {
			b.emit(observer.Event{Kind: observer.WindowMoved, Window: w.ID, Frame: w.Frame})
		}
	case x11.EventFocusChanged:
		id, err := b.source.ActiveWindow()
		if err != nil || id == 0 {
			return
		}
		b.emit(observer.Event{Kind: observer.WindowFocused, Window: id})
	case x11.EventTitleChanged:
		if w, ok := b.lookup(ev.Window); ok {
			b.emit(observer.Event{Kind: observer.TitleChanged, Window: w.ID, Title: w.Title})
		}
	case x11.EventStateChanged:
		if w, ok := b.lookup(ev.Window); ok {
			kind := observer.WindowUnminimized
			if w.Minimized {
				kind = observer.WindowMinimized
			}
			b.emit(observer.Event{Kind: kind, Window: w.ID})
		}
	default:
		b.logger.Debug("unhandled X event", "kind", int(ev.Kind), "window", ev.Window)
	}
}

func (b *EventBridge) lookup(id uint32) (platform.Window, bool) {
	windows, err := b.source.QueryWindows()
	if err != nil {
		b.logger.Warn("window query failed", "error", err)
		return platform.Window{}, false
	}
	for _, w := range windows {
		if w.ID == id {
			return w, true
		}
	}
	return platform.Window{}, false
}
