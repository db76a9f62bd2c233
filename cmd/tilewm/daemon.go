package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/1broseidon/tilewm/internal/config"
	"github.com/1broseidon/tilewm/internal/daemon"
	"github.com/1broseidon/tilewm/internal/ipc"
	"github.com/1broseidon/tilewm/internal/manager"
	"github.com/1broseidon/tilewm/internal/observer"
	"github.com/1broseidon/tilewm/internal/platform"
	"github.com/1broseidon/tilewm/internal/state"
)

func slogLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func runDaemon() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		"default_layout", cfg.DefaultLayout,
		"workspaces", len(cfg.Workspaces),
		"rules", len(cfg.Rules))

	source, err := platform.NewX11Source()
	if err != nil {
		log.Fatalf("Failed to connect to display: %v", err)
	}
	defer source.Disconnect()
	conn := source.Connection()

	st := state.NewManagedState()

	// The manager is created after the registry but the registry's sink
	// needs it, so the closures capture the variable, not the value.
	var mgr *manager.Manager
	emit := func(ev observer.Event) { mgr.EnqueueEvent(ev) }

	bridge := daemon.NewEventBridge(source, emit, logger)

	registry := observer.NewRegistry(observer.Options{
		Sink:     emit,
		SkipApps: cfg.SkipApps,
		Watch: func(windowID uint32) error {
			return conn.WatchWindow(windowID, bridge.Handle)
		},
		Unwatch: conn.UnwatchWindow,
		Logger:  logger,
	})

	mgr = manager.New(manager.Options{
		Source:   source,
		State:    st,
		Config:   cfg,
		Registry: registry,
		Logger:   logger,
	})

	if err := mgr.Bootstrap(); err != nil {
		log.Fatalf("Failed to adopt existing windows: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mgr.Start(ctx)

	if err := conn.Subscribe(bridge.Handle); err != nil {
		log.Fatalf("Failed to subscribe to window events: %v", err)
	}

	reloadChan := make(chan struct{}, 1)

	ipcServer, err := ipc.NewServer(mgr, reloadChan)
	if err != nil {
		log.Fatalf("Failed to create IPC server: %v", err)
	}
	if err := ipcServer.Start(); err != nil {
		log.Fatalf("Failed to start IPC server: %v", err)
	}
	defer ipcServer.Stop()

	if cfg.ReconcileInterval > 0 {
		reconciler := daemon.NewReconciler(daemon.ReconcilerConfig{
			Interval: time.Duration(cfg.ReconcileInterval) * time.Second,
			SkipApp:  cfg.ShouldSkipApp,
			Logger:   logger,
		}, source, st, emit, mgr.ScreensChanged)

		// Immediate pass catches windows that appeared between the
		// bootstrap query and the event subscription.
		reconciler.ReconcileNow()
		go reconciler.Run(ctx)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	reloadConfig := func() {
		newCfg, err := config.Load()
		if err != nil {
			logger.Error("config reload failed", "error", err)
			return
		}
		if err := mgr.Reload(newCfg); err != nil {
			logger.Error("config reload rejected", "error", err)
			return
		}
		logger.Info("config reloaded")
	}

	go func() {
		for {
			select {
			case sig := <-sigCh:
				switch sig {
				case syscall.SIGHUP:
					logger.Info("received SIGHUP, reloading config")
					reloadConfig()
				case os.Interrupt, syscall.SIGTERM:
					logger.Info("shutting down tilewm daemon")
					cancel()
					<-mgr.Done()
					ipcServer.Stop()
					source.Disconnect()
					os.Exit(0)
				}
			case <-reloadChan:
				reloadConfig()
			}
		}
	}()

	logger.Info("tilewm daemon started", "pid", os.Getpid())
	source.EventLoop()
}
