package main

import (
	"embed"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"twitch-overlay/internal/ipc"
	"twitch-overlay/internal/singleinstance"
	"twitch-overlay/internal/telemetry"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/windows"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	setupLogging(os.Stderr)
	telemetry.Init()

	launchChannel := launchChannelFromArgs(os.Args[1:])

	// Single-instance check BEFORE any Wails/WebView2 initialization.
	mutexLock, err := singleinstance.TryLock(singleinstance.DefaultMutexName())
	if errors.Is(err, singleinstance.ErrAlreadyRunning) {
		slog.Info("[DEBUG-SINGLE] another instance is already running, signaling activation")
		if _, sendErr := ipc.Send("", activationRequest(launchChannel)); sendErr != nil {
			slog.Warn("[DEBUG-SINGLE] failed to signal existing instance", "error", sendErr)
		}
		return
	}
	if err != nil {
		// Mutex creation failed for unexpected reason. Continue startup defensively.
		slog.Warn("[DEBUG-SINGLE] mutex creation failed, proceeding without single-instance guard", "error", err)
	}
	if mutexLock != nil {
		defer func() {
			if releaseErr := mutexLock.Release(); releaseErr != nil {
				slog.Warn("[DEBUG-SINGLE] mutex release failed", "error", releaseErr)
			}
		}()
	}

	app := NewApp()
	app.launchChannel = launchChannel

	err = wails.Run(&options.App{
		Title:       "twitch-overlay",
		Width:       420,
		Height:      640,
		MinWidth:    240,
		MinHeight:   160,
		Frameless:   true,
		AlwaysOnTop: true,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 0, G: 0, B: 0, A: 0},
		Windows: &windows.Options{
			WebviewIsTransparent: true,
			WindowIsTranslucent:  true,
			DisableWindowIcon:    true,
		},
		OnStartup:  app.startup,
		OnShutdown: app.shutdown,
		Bind: []any{
			app,
		},
	})

	if err != nil {
		slog.Error("[DEBUG-SINGLE] wails run failed", "error", err)
	}
}

// setupLogging configures the default logger from LOG_LEVEL
// (debug|info|warn|error) and LOG_FORMAT (text|json).
func setupLogging(w io.Writer) {
	lvl := slog.LevelInfo
	unknownLevel := false
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
	default:
		unknownLevel = true
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(os.Getenv("LOG_FORMAT")), "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
	if unknownLevel {
		slog.Warn("unknown LOG_LEVEL, using info", "value", os.Getenv("LOG_LEVEL"))
	}
}

// launchChannelFromArgs returns the channel given as the first non-flag
// argument, e.g. "twitch-overlay somechannel".
func launchChannelFromArgs(args []string) string {
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if arg == "" || strings.HasPrefix(arg, "-") {
			continue
		}
		return arg
	}
	return ""
}

func activationRequest(channel string) ipc.Request {
	if channel != "" {
		return ipc.Request{Command: ipc.CommandConnect, Channel: channel}
	}
	return ipc.Request{Command: ipc.CommandShow}
}
