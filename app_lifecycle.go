package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"twitch-overlay/internal/chat"
	"twitch-overlay/internal/config"
	"twitch-overlay/internal/ipc"
	"twitch-overlay/internal/telemetry"
	"twitch-overlay/internal/transcript"
	"twitch-overlay/internal/workerutil"
	"twitch-overlay/internal/wsserver"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

type appRuntimeLogger interface {
	Warningf(context.Context, string, ...interface{})
	Infof(context.Context, string, ...interface{})
	Errorf(context.Context, string, ...interface{})
}

type wailsRuntimeLogger struct{}

func formatRuntimeLogMessage(message string, args ...interface{}) string {
	if len(args) == 0 {
		return message
	}
	return fmt.Sprintf(message, args...)
}

func (wailsRuntimeLogger) Warningf(ctx context.Context, message string, args ...interface{}) {
	if ctx == nil {
		slog.Warn(formatRuntimeLogMessage(message, args...))
		return
	}
	runtime.LogWarningf(ctx, message, args...)
}

func (wailsRuntimeLogger) Infof(ctx context.Context, message string, args ...interface{}) {
	if ctx == nil {
		slog.Info(formatRuntimeLogMessage(message, args...))
		return
	}
	runtime.LogInfof(ctx, message, args...)
}

func (wailsRuntimeLogger) Errorf(ctx context.Context, message string, args ...interface{}) {
	if ctx == nil {
		slog.Error(formatRuntimeLogMessage(message, args...))
		return
	}
	runtime.LogErrorf(ctx, message, args...)
}

var (
	runtimeEventsEmitFn                            = runtime.EventsEmit
	runtimeLogger                 appRuntimeLogger = wailsRuntimeLogger{}
	newPipeServerFn                                = ipc.NewPipeServer
	openTranscriptFn                               = transcript.Open
	startTelemetryFn                               = telemetry.Start
	watchConfigFn                                  = config.Watch
	loadDotEnvFn                                   = config.LoadDotEnv
	runtimeWindowIsMinimisedFn                     = runtime.WindowIsMinimised
	runtimeWindowHideFn                            = runtime.WindowHide
	runtimeWindowShowFn                            = runtime.WindowShow
	runtimeWindowUnminimiseFn                      = runtime.WindowUnminimise
	runtimeWindowSetAlwaysOnTopFn                  = runtime.WindowSetAlwaysOnTop
)

const (
	shutdownWaitTimeout = 10 * time.Second
	// chatCloseTimeout bounds the wait for chat session goroutines.
	chatCloseTimeout = 3 * time.Second
)

func (a *App) addPendingConfigLoadWarning(message string) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return
	}
	a.startupWarnMu.Lock()
	a.configLoadWarnings = append(a.configLoadWarnings, trimmed)
	a.startupWarnMu.Unlock()
}

func (a *App) consumePendingConfigLoadWarning() string {
	a.startupWarnMu.Lock()
	defer a.startupWarnMu.Unlock()
	if len(a.configLoadWarnings) == 0 {
		return ""
	}
	message := strings.Join(a.configLoadWarnings, "\n")
	a.configLoadWarnings = nil
	return message
}

func (a *App) startup(ctx context.Context) {
	setConsoleUTF8()

	a.setRuntimeContext(ctx)
	a.setWindowVisible(true)

	a.configPath = config.DefaultPath()
	for _, message := range config.ConsumeDefaultPathWarnings() {
		a.addPendingConfigLoadWarning(message)
	}
	a.initSessionLog()
	cfg := a.loadStartupConfig(ctx)
	a.setConfigSnapshot(cfg)

	workerCtx, cancel := context.WithCancel(ctx)
	a.workerCancel = cancel
	a.dispatcher.Start(workerCtx, a.defaultRecoveryOptions())

	a.chat = chat.NewClient(chat.Options{
		Address: cfg.Chat.Address,
		Handler: a.chatEventHandler(),
	})
	a.openTranscript(ctx, cfg)
	a.startWebSocketHub(workerCtx, cfg)
	a.startMetricsServer(ctx, cfg)
	a.startPipeServer(ctx)
	a.configureGlobalHotkey()
	a.startConfigWatcher(workerCtx)
	a.autoConnect(cfg)
	// Warnings stay pending until the frontend calls
	// GetConfigAndFlushWarnings: its EventsOn handlers are not registered yet.
}

// loadStartupConfig reads config.yaml (creating it when missing), then
// applies .env and process environment overrides. Load failures are
// non-fatal: the app runs with defaults and surfaces a warning.
func (a *App) loadStartupConfig(ctx context.Context) config.Config {
	if err := loadDotEnvFn(a.configPath); err != nil {
		runtimeLogger.Warningf(ctx, "failed to load .env beside %s: %v", a.configPath, err)
		a.addPendingConfigLoadWarning("Failed to load .env file. Environment overrides may be missing. Error: " + err.Error())
	}

	cfg, err := config.EnsureFile(a.configPath)
	if err != nil {
		cfg = config.DefaultConfig()
		a.addPendingConfigLoadWarning(
			"Failed to load config file at startup. Running with defaults. Error: " + err.Error(),
		)
		runtimeLogger.Warningf(ctx, "failed to load config from %s: %v", a.configPath, err)
	}

	cfg, applied := config.ApplyEnvOverrides(cfg)
	if len(applied) > 0 {
		slog.Info("[DEBUG-CONFIG] environment overrides applied", "vars", applied)
	}
	return cfg
}

func (a *App) openTranscript(ctx context.Context, cfg config.Config) {
	if !cfg.Transcript.Enabled {
		slog.Debug("[DEBUG-CONFIG] transcript disabled")
		return
	}
	path := config.TranscriptPath(a.configPath, cfg)
	store, err := openTranscriptFn(path)
	if err != nil {
		runtimeLogger.Warningf(ctx, "transcript unavailable: %v", err)
		a.addPendingConfigLoadWarning(
			"Failed to open chat transcript. Messages will not be stored. Error: " + err.Error(),
		)
		return
	}
	a.transcript = store
	runtimeLogger.Infof(ctx, "transcript opened: %s", path)
}

func (a *App) startWebSocketHub(ctx context.Context, cfg config.Config) {
	opts := wsserver.HubOptions{
		Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.WebSocketPort),
		HistoryLimit: cfg.Transcript.ReplayLimit,
	}
	if a.transcript != nil {
		opts.History = a.recentMessages
	}
	hub := wsserver.NewHub(opts)
	if err := hub.Start(ctx); err != nil {
		runtimeLogger.Warningf(ctx, "websocket server failed: %v", err)
		a.addPendingConfigLoadWarning(
			"Failed to start the local chat feed. Browser sources will not receive chat. Error: " + err.Error(),
		)
		return
	}
	a.wsHub = hub
	a.updateFeedStatus(func(st *wsserver.Status) { st.OverlayVisible = a.isWindowVisible() })
	runtimeLogger.Infof(ctx, "chat feed listening: %s", hub.PageURL())
}

func (a *App) startMetricsServer(ctx context.Context, cfg config.Config) {
	addr := strings.TrimSpace(cfg.MetricsAddr)
	if addr == "" {
		return
	}
	server, err := startTelemetryFn(addr)
	if err != nil {
		runtimeLogger.Warningf(ctx, "metrics server failed: %v", err)
		a.addPendingConfigLoadWarning("Failed to start the metrics endpoint. Error: " + err.Error())
		return
	}
	a.metrics = server
}

func (a *App) startPipeServer(ctx context.Context) {
	a.pipeServer = newPipeServerFn(ipc.DefaultPipeName(), ipc.HandlerFunc(a.handleActivationRequest))
	if err := a.pipeServer.Start(); err != nil {
		runtimeLogger.Errorf(ctx, "pipe server failed: %v", err)
		a.addPendingConfigLoadWarning(
			"Failed to start the activation pipe at startup. A second launch cannot reach this window. Error: " + err.Error(),
		)
		return
	}
	runtimeLogger.Infof(ctx, "pipe server listening: %s", a.pipeServer.PipeName())
}

func (a *App) startConfigWatcher(ctx context.Context) {
	path := a.configPath
	if path == "" {
		return
	}
	workerutil.RunWithPanicRecovery(ctx, "config-watcher", &a.bgWG, func(ctx context.Context) {
		if err := watchConfigFn(ctx, path, config.DefaultWatchDebounce, a.reloadConfigFromDisk); err != nil {
			slog.Warn("[WARN-CONFIG] config watcher stopped", "path", path, "error", err)
		}
	}, a.defaultRecoveryOptions())
}

func (a *App) autoConnect(cfg config.Config) {
	channel := strings.TrimSpace(a.launchChannel)
	if channel == "" && cfg.AutoConnect {
		channel = strings.TrimSpace(cfg.Channel)
	}
	if channel == "" {
		return
	}
	if err := a.ConnectToChannel(channel, cfg.OAuthToken); err != nil {
		slog.Warn("[chat] auto-connect failed", "channel", channel, "error", err)
	}
}

func (a *App) shutdown(_ context.Context) {
	logCtx := a.runtimeContext()
	a.shuttingDown.Store(true)
	// Give the frontend a chance to persist UI state before teardown.
	a.emitRuntimeEventWithContext(logCtx, "app:about-to-quit", nil)

	if a.hotkeys != nil {
		if err := a.hotkeys.Stop(); err != nil {
			runtimeLogger.Warningf(logCtx, "hotkeys stop failed: %v", err)
		}
		telemetry.SetHookInstalled(false)
	}
	if a.pipeServer != nil {
		if err := a.pipeServer.Stop(); err != nil {
			runtimeLogger.Warningf(logCtx, "pipe server stop failed: %v", err)
		}
	}
	if a.chat != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), chatCloseTimeout)
		if err := a.chat.Close(closeCtx); err != nil {
			runtimeLogger.Warningf(logCtx, "chat close failed: %v", err)
		}
		cancel()
	}

	// Chat is closed, so no new events arrive; drain what is queued before
	// closing the sinks.
	a.dispatcher.Stop()
	if a.workerCancel != nil {
		a.workerCancel()
		a.workerCancel = nil
	}
	if !waitWithTimeout(a.bgWG.Wait, shutdownWaitTimeout) {
		runtimeLogger.Warningf(logCtx, "timed out waiting for background workers during shutdown")
	}

	var errs []error
	if a.wsHub != nil {
		if err := a.wsHub.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("websocket hub: %w", err))
		}
	}
	if a.metrics != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), chatCloseTimeout)
		if err := a.metrics.Stop(stopCtx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server: %w", err))
		}
		cancel()
	}
	if a.transcript != nil {
		if err := a.transcript.Close(); err != nil {
			errs = append(errs, fmt.Errorf("transcript: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		runtimeLogger.Warningf(logCtx, "shutdown cleanup failed: %v", err)
	}
	a.closeSessionLog()
	a.setRuntimeContext(nil)
}

func waitWithTimeout(waitFn func(), timeout time.Duration) bool {
	// Best effort timeout guard for shutdown paths. The waiting goroutine may
	// outlive timeout when waitFn blocks indefinitely, but this function is only
	// used during process shutdown where eventual completion is expected.
	done := make(chan struct{})
	go func() {
		waitFn()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// configureGlobalHotkey installs the keyboard hook with the configured
// toggle binding, or swaps the binding when the hook is already installed.
// Failure leaves the overlay usable without the global toggle.
func (a *App) configureGlobalHotkey() {
	manager, err := a.requireHotkeys()
	if err != nil {
		slog.Debug("[hotkey] hotkey backend unavailable, skipping registration")
		return
	}
	logCtx := a.runtimeContext()
	spec := strings.TrimSpace(a.getConfigSnapshot().ToggleHotkey)
	if spec == "" {
		slog.Debug("[hotkey] no toggle hotkey configured, skipping")
		return
	}

	if err := manager.Start(spec, a.toggleOverlay); err != nil {
		telemetry.SetHookInstalled(manager.Installed())
		runtimeLogger.Warningf(logCtx, "global hotkey registration failed: %v", err)
		return
	}
	telemetry.SetHookInstalled(true)
	runtimeLogger.Infof(logCtx, "global hotkey registered: %s", manager.ActiveBinding())
}

// bringWindowToFront shows and raises the overlay window.
// Used when a second instance signals the first to activate.
func (a *App) bringWindowToFront() {
	ctx := a.runtimeContext()
	if ctx == nil {
		slog.Warn("[ipc] bringWindowToFront dropped because runtime context is nil")
		return
	}
	a.raiseWindow(ctx)
	a.applyWindowVisible(ctx, true)
}

func (a *App) raiseWindow(ctx context.Context) {
	runtimeWindowShowFn(ctx)
	runtimeWindowUnminimiseFn(ctx)
	runtimeWindowSetAlwaysOnTopFn(ctx, true)
}

func (a *App) setWindowVisible(visible bool) {
	a.windowMu.Lock()
	a.windowVisible = visible
	a.windowMu.Unlock()
}

func (a *App) isWindowVisible() bool {
	a.windowMu.Lock()
	defer a.windowMu.Unlock()
	return a.windowVisible
}

// applyWindowVisible records visibility and tells the frontend and feed
// clients about it.
func (a *App) applyWindowVisible(ctx context.Context, visible bool) {
	a.setWindowVisible(visible)
	a.emitRuntimeEventWithContext(ctx, "overlay:visibility-changed", map[string]bool{"visible": visible})
	a.updateFeedStatus(func(st *wsserver.Status) { st.OverlayVisible = visible })
}

// toggleOverlay runs when the global toggle chord is pressed.
func (a *App) toggleOverlay() {
	// CAS guard prevents double-toggle when a second hotkey fires
	// while OS window operations are in progress.
	if !a.windowToggling.CompareAndSwap(false, true) {
		slog.Debug("[hotkey] toggle already in progress, skipping")
		return
	}
	defer a.windowToggling.Store(false)

	ctx := a.runtimeContext()
	if ctx == nil {
		return
	}
	telemetry.IncOverlayToggles()
	a.emitRuntimeEventWithContext(ctx, "overlay:toggle", nil)

	// Read OS window state outside lock: no Wails runtime API inside windowMu.
	isMinimised := runtimeWindowIsMinimisedFn(ctx)

	a.windowMu.Lock()
	currentlyVisible := a.windowVisible && !isMinimised
	a.windowMu.Unlock()

	if currentlyVisible {
		runtimeWindowHideFn(ctx)
	} else {
		a.raiseWindow(ctx)
	}

	a.applyWindowVisible(ctx, !currentlyVisible)
}
