// Package daemon holds the long-running pieces that sit around the
// tiling manager: the periodic reconciler and shutdown plumbing.
package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/1broseidon/tilewm/internal/observer"
	"github.com/1broseidon/tilewm/internal/platform"
	"github.com/1broseidon/tilewm/internal/state"
)

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	// SkipApp reports whether windows of an app class are unmanaged.
	// The manager would refuse them anyway; filtering here keeps the
	// reconciler from re-reporting them every pass. May be nil.
	SkipApp func(appClass string) bool
	Logger  *slog.Logger
}

// Reconciler periodically re-runs the batch window query and synthesizes
// the created/destroyed events the observer missed. Event delivery over
// X is best effort; the reconciler is what keeps state drift bounded.
type Reconciler struct {
	interval       time.Duration
	source         platform.WindowSource
	st             *state.ManagedState
	emit           func(observer.Event)
	screensChanged func() error
	skipApp        func(string) bool
	logger         *slog.Logger
}

// NewReconciler creates a reconciler. emit feeds synthesized events to
// the manager loop; screensChanged fires when the display configuration
// no longer matches the state (may be nil).
func NewReconciler(cfg ReconcilerConfig, source platform.WindowSource, st *state.ManagedState, emit func(observer.Event), screensChanged func() error) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		interval:       interval,
		source:         source,
		st:             st,
		emit:           emit,
		screensChanged: screensChanged,
		skipApp:        cfg.SkipApp,
		logger:         logger,
	}
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			r.reconcile()
		}
	}
}

// reconcile performs a single reconciliation pass.
func (r *Reconciler) reconcile() {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconciler panic recovered", "error", err)
		}
	}()

	actual, err := r.source.QueryWindows()
	if err != nil {
		r.logger.Error("reconciler: failed to query windows", "error", err)
		return
	}

	known := make(map[uint32]bool)
	for _, w := range r.st.Windows() {
		known[w.ID] = true
	}

	actualIDs := make(map[uint32]bool, len(actual))
	for _, w := range actual {
		actualIDs[w.ID] = true
		if known[w.ID] {
			continue
		}
		if r.skipApp != nil && r.skipApp(w.AppClass) {
			continue
		}
		r.logger.Info("reconciler: untracked window", "window", w.ID, "app", w.AppClass)
		r.emit(observer.Event{
			Kind:        observer.WindowCreated,
			Window:      w.ID,
			PID:         w.PID,
			AppClass:    w.AppClass,
			Title:       w.Title,
			Frame:       w.Frame,
			Synthesized: true,
		})
	}

	for id := range known {
		if !actualIDs[id] {
			r.logger.Info("reconciler: vanished window", "window", id)
			r.emit(observer.Event{
				Kind:        observer.WindowDestroyed,
				Window:      id,
				Synthesized: true,
			})
		}
	}

	r.checkScreens()
}

// checkScreens compares the live display configuration against the
// state and triggers the change handler on drift.
func (r *Reconciler) checkScreens() {
	if r.screensChanged == nil {
		return
	}
	screens, err := r.source.Screens()
	if err != nil {
		r.logger.Error("reconciler: failed to query screens", "error", err)
		return
	}
	current := r.st.Screens()
	if len(screens) == len(current) {
		same := true
		byID := make(map[uint32]state.Screen, len(current))
		for _, sc := range current {
			byID[sc.ID] = sc
		}
		for _, sc := range screens {
			if got, ok := byID[sc.ID]; !ok || got.Frame != sc.Frame {
				same = false
				break
			}
		}
		if same {
			return
		}
	}
	r.logger.Info("reconciler: display configuration drift", "screens", len(screens))
	if err := r.screensChanged(); err != nil {
		r.logger.Warn("reconciler: screen change handling failed", "error", err)
	}
}

// ReconcileNow triggers an immediate reconciliation pass.
func (r *Reconciler) ReconcileNow() {
	r.reconcile()
}
