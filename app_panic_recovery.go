package main

import (
	"log/slog"
	"time"

	"twitch-overlay/internal/workerutil"
)

const (
	initialPanicRestartBackoff = 100 * time.Millisecond
	maxPanicRestartBackoff     = 5 * time.Second
	maxPanicRestartRetries     = 10
)

// defaultRecoveryOptions returns the restart policy shared by App workers.
// Panics are surfaced to the frontend as app:worker-panic and
// app:worker-fatal events.
func (a *App) defaultRecoveryOptions() workerutil.RecoveryOptions {
	return workerutil.RecoveryOptions{
		InitialBackoff: initialPanicRestartBackoff,
		MaxBackoff:     maxPanicRestartBackoff,
		MaxRetries:     maxPanicRestartRetries,
		OnPanic: func(worker string, attempt int) {
			ctx := a.runtimeContext()
			if ctx == nil {
				slog.Debug("[DEBUG-PANIC] worker panic event skipped, runtime context is nil", "worker", worker)
				return
			}
			a.emitRuntimeEventWithContext(ctx, "app:worker-panic", map[string]any{
				"worker":  worker,
				"attempt": attempt,
			})
		},
		OnFatal: func(worker string, maxRetries int) {
			ctx := a.runtimeContext()
			if ctx == nil {
				return
			}
			a.emitRuntimeEventWithContext(ctx, "app:worker-fatal", map[string]any{
				"worker":     worker,
				"maxRetries": maxRetries,
			})
		},
		IsShutdown: a.shuttingDown.Load,
	}
}
