package main

import (
	"log/slog"
	"path/filepath"

	"twitch-overlay/internal/sessionlog"
)

const sessionLogDir = "session-logs"

var openSessionLogFn = sessionlog.Open

// initSessionLog starts this run's warning/error log beside config.yaml and
// tees the default logger into it. Failure leaves logging unchanged.
func (a *App) initSessionLog() {
	dir := filepath.Join(filepath.Dir(a.configPath), sessionLogDir)
	recorder, err := openSessionLogFn(dir, sessionlog.Options{
		OnUpdate: func() {
			// A nil context would log a warning from inside the log pipeline.
			ctx := a.runtimeContext()
			if ctx == nil {
				return
			}
			// Ping only: the frontend fetches GetSessionErrorLog.
			a.emitRuntimeEventWithContext(ctx, "app:session-log-updated", nil)
		},
	})
	if err != nil {
		slog.Warn("[session-log] unavailable", "dir", dir, "error", err)
		return
	}

	a.sessionLogMu.Lock()
	a.sessionLog = recorder
	a.prevLogger = slog.Default()
	a.sessionLogMu.Unlock()

	slog.SetDefault(slog.New(sessionlog.NewTeeHandler(a.prevLogger.Handler(), slog.LevelWarn, recorder)))
	slog.Info("[session-log] initialized", "path", recorder.Path())
}

// closeSessionLog restores the logger replaced by initSessionLog and closes
// the file. Entries stay readable.
func (a *App) closeSessionLog() {
	a.sessionLogMu.Lock()
	recorder := a.sessionLog
	prev := a.prevLogger
	a.prevLogger = nil
	a.sessionLogMu.Unlock()

	if prev != nil {
		slog.SetDefault(prev)
	}
	if recorder == nil {
		return
	}
	if err := recorder.Close(); err != nil {
		slog.Warn("[session-log] close failed", "error", err)
	}
}

// GetSessionErrorLog returns this run's warnings and errors, oldest first.
func (a *App) GetSessionErrorLog() []sessionlog.Entry {
	a.sessionLogMu.Lock()
	recorder := a.sessionLog
	a.sessionLogMu.Unlock()
	if recorder == nil {
		return []sessionlog.Entry{}
	}
	return recorder.Entries()
}

// GetSessionLogFilePath returns the JSONL file of this run, or "".
func (a *App) GetSessionLogFilePath() string {
	a.sessionLogMu.Lock()
	defer a.sessionLogMu.Unlock()
	if a.sessionLog == nil {
		return ""
	}
	return a.sessionLog.Path()
}
