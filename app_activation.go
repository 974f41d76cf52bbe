package main

import (
	"log/slog"

	"twitch-overlay/internal/ipc"
)

// handleActivationRequest serves commands sent by a second launch of the
// overlay. It runs on a pipe server goroutine.
func (a *App) handleActivationRequest(req ipc.Request) ipc.Response {
	slog.Debug("[ipc] activation request", "command", req.Command, "channel", req.Channel)
	switch req.Command {
	case ipc.CommandShow:
		if a.runtimeContext() == nil {
			return ipc.ErrorResponse("overlay window is not ready")
		}
		a.bringWindowToFront()
	case ipc.CommandToggle:
		if a.runtimeContext() == nil {
			return ipc.ErrorResponse("overlay window is not ready")
		}
		a.toggleOverlay()
	case ipc.CommandConnect:
		if err := a.ConnectToChannel(req.Channel, ""); err != nil {
			return ipc.ErrorResponse("connect %s: %v", req.Channel, err)
		}
		a.bringWindowToFront()
	default:
		return ipc.ErrorResponse("unknown command %q", req.Command)
	}
	return ipc.Response{OK: true}
}
