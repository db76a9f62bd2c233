package x11

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// EventKind identifies a raw X notification before it is enriched into
// an observer event.
type EventKind int

const (
	EventCreated EventKind = iota
	EventDestroyed
	EventMapped
	EventUnmapped
	EventConfigured
	EventFocusChanged
	EventTitleChanged
	EventStateChanged
)

// Event is a minimal record of an X notification. Callers query current
// window details themselves; by the time an event is handled the window
// may already have changed again.
type Event struct {
	Kind   EventKind
	Window uint32
}

// Subscribe listens for child window lifecycle and focus notifications
// on the root window. The sink runs on the X event loop goroutine. X
// round-trips from the sink are safe because xgb reads replies on its
// own goroutine, but long work in the sink delays later events.
func (c *Connection) Subscribe(sink func(Event)) error {
	root := xwindow.New(c.XUtil, c.Root)
	if err := root.Listen(xproto.EventMaskSubstructureNotify | xproto.EventMaskPropertyChange); err != nil {
		return err
	}

	activeAtom, err := xprop.Atm(c.XUtil, "_NET_ACTIVE_WINDOW")
	if err != nil {
		return err
	}

	xevent.CreateNotifyFun(func(xu *xgbutil.XUtil, ev xevent.CreateNotifyEvent) {
		sink(Event{Kind: EventCreated, Window: uint32(ev.Window)})
	}).Connect(c.XUtil, c.Root)

	xevent.DestroyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.DestroyNotifyEvent) {
		sink(Event{Kind: EventDestroyed, Window: uint32(ev.Window)})
	}).Connect(c.XUtil, c.Root)

	xevent.MapNotifyFun(func(xu *xgbutil.XUtil, ev xevent.MapNotifyEvent) {
		sink(Event{Kind: EventMapped, Window: uint32(ev.Window)})
	}).Connect(c.XUtil, c.Root)

	xevent.UnmapNotifyFun(func(xu *xgbutil.XUtil, ev xevent.UnmapNotifyEvent) {
		sink(Event{Kind: EventUnmapped, Window: uint32(ev.Window)})
	}).Connect(c.XUtil, c.Root)

	xevent.ConfigureNotifyFun(func(xu *xgbutil.XUtil, ev xevent.ConfigureNotifyEvent) {
		sink(Event{Kind: EventConfigured, Window: uint32(ev.Window)})
	}).Connect(c.XUtil, c.Root)

	xevent.PropertyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
		if ev.Atom == activeAtom {
			sink(Event{Kind: EventFocusChanged, Window: 0})
		}
	}).Connect(c.XUtil, c.Root)

	return nil
}

// WatchWindow subscribes to property changes on one window, reporting
// title and WM state changes. Safe to call more than once per window.
func (c *Connection) WatchWindow(windowID uint32, sink func(Event)) error {
	win := xwindow.New(c.XUtil, xproto.Window(windowID))
	if err := win.Listen(xproto.EventMaskPropertyChange); err != nil {
		return err
	}

	nameAtom, err := xprop.Atm(c.XUtil, "_NET_WM_NAME")
	if err != nil {
		return err
	}
	icccmNameAtom, err := xprop.Atm(c.XUtil, "WM_NAME")
	if err != nil {
		return err
	}
	stateAtom, err := xprop.Atm(c.XUtil, "_NET_WM_STATE")
	if err != nil {
		return err
	}
	wmStateAtom, err := xprop.Atm(c.XUtil, "WM_STATE")
	if err != nil {
		return err
	}

	xevent.PropertyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
		switch ev.Atom {
		case nameAtom, icccmNameAtom:
			sink(Event{Kind: EventTitleChanged, Window: windowID})
		case stateAtom, wmStateAtom:
			sink(Event{Kind: EventStateChanged, Window: windowID})
		}
	}).Connect(c.XUtil, xproto.Window(windowID))

	return nil
}

// UnwatchWindow drops all callbacks attached to a window.
func (c *Connection) UnwatchWindow(windowID uint32) {
	xevent.Detach(c.XUtil, xproto.Window(windowID))
}
