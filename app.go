package main

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"twitch-overlay/internal/chat"
	"twitch-overlay/internal/config"
	"twitch-overlay/internal/hotkeys"
	"twitch-overlay/internal/ipc"
	"twitch-overlay/internal/sessionlog"
	"twitch-overlay/internal/telemetry"
	"twitch-overlay/internal/transcript"
	"twitch-overlay/internal/workerutil"
	"twitch-overlay/internal/wsserver"
)

// dispatchQueueSize bounds chat events waiting for fan-out. A full queue
// drops events instead of stalling the chat reader.
const dispatchQueueSize = 1024

// App is the Wails-bound application service.
type App struct {
	// Runtime context lifecycle.
	ctx   context.Context
	ctxMu sync.RWMutex

	// Configuration state and startup warnings.
	// Lock ordering (outer -> inner):
	//   cfgSaveMu -> cfgMu
	//
	// Independent locks: do not assume ordering across these.
	//   windowMu, statusMu, startupWarnMu, sessionLogMu, ctxMu
	cfgMu              sync.RWMutex
	cfgSaveMu          sync.Mutex
	configEventVersion atomic.Uint64
	cfg                config.Config
	configPath         string
	// launchChannel is the channel given on the command line. It overrides
	// auto_connect for this run.
	launchChannel      string
	startupWarnMu      sync.Mutex
	configLoadWarnings []string

	// Backend services. Set once during startup before any reader goroutine
	// starts; nil when the service is disabled or failed to start.
	chat       *chat.Client
	hotkeys    *hotkeys.Manager
	pipeServer *ipc.PipeServer
	dispatcher *workerutil.Dispatcher
	transcript *transcript.Store
	metrics    *telemetry.Server
	// wsHub streams chat frames to browser sources and the overlay webview.
	wsHub *wsserver.Hub

	// sessionLog tees warnings and errors of this run; prevLogger is the
	// default logger it replaced.
	sessionLogMu sync.Mutex
	sessionLog   *sessionlog.Recorder
	prevLogger   *slog.Logger

	// statusMu serializes read-modify-write of the hub status.
	statusMu sync.Mutex

	// Window visibility state.
	windowMu       sync.Mutex
	windowVisible  bool
	windowToggling atomic.Bool // CAS guard to prevent concurrent toggleOverlay
	shuttingDown   atomic.Bool // set true at the start of shutdown(); checked by worker recovery loops

	// Background worker cancellation/waits.
	workerCancel context.CancelFunc
	bgWG         sync.WaitGroup
}

// NewApp creates the app service.
func NewApp() *App {
	return &App{
		hotkeys:    hotkeys.NewManager(),
		dispatcher: workerutil.NewDispatcher("chat-dispatch", dispatchQueueSize, telemetry.IncDispatchDropped),
	}
}

// GetWebSocketURL returns the WebSocket endpoint of the local chat feed.
// Returns empty string if the WebSocket server is not available.
func (a *App) GetWebSocketURL() string {
	if a.wsHub == nil {
		slog.Debug("[DEBUG-WS] wsHub is nil, WebSocket URL unavailable")
		return ""
	}
	return a.wsHub.URL()
}

// GetBrowserSourceURL returns the page URL to add as an OBS browser source.
func (a *App) GetBrowserSourceURL() string {
	if a.wsHub == nil {
		return ""
	}
	return a.wsHub.PageURL()
}

func (a *App) setRuntimeContext(ctx context.Context) {
	a.ctxMu.Lock()
	a.ctx = ctx
	a.ctxMu.Unlock()
}

// runtimeContext returns the Wails context, or nil before startup and after
// shutdown.
func (a *App) runtimeContext() context.Context {
	a.ctxMu.RLock()
	ctx := a.ctx
	a.ctxMu.RUnlock()
	return ctx
}
