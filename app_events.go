package main

import (
	"context"
	"log/slog"
	"time"

	"twitch-overlay/internal/chat"
	"twitch-overlay/internal/telemetry"
	"twitch-overlay/internal/wsserver"
)

// transcriptWriteTimeout bounds one transcript insert on the dispatch worker.
const transcriptWriteTimeout = 2 * time.Second

type chatHistoryEvent struct {
	Channel  string         `json:"channel"`
	Messages []chat.Message `json:"messages"`
}

// emitRuntimeEvent emits via the app context and delegates to emitRuntimeEventWithContext.
func (a *App) emitRuntimeEvent(name string, payload any) {
	a.emitRuntimeEventWithContext(a.runtimeContext(), name, payload)
}

// emitRuntimeEventWithContext emits a runtime event only when ctx is non-nil.
// Prefer this helper for best-effort contexts that may not be initialized yet.
func (a *App) emitRuntimeEventWithContext(ctx context.Context, name string, payload any) {
	if ctx == nil {
		slog.Warn("[EVENT] runtime event dropped because app context is nil", "event", name)
		return
	}
	runtimeEventsEmitFn(ctx, name, payload)
}

// chatEventHandler adapts chat client callbacks onto the dispatch worker.
// The client calls it with its notify lock held, so every callback only
// queues work.
func (a *App) chatEventHandler() chat.Handler {
	return chat.HandlerFuncs{
		OnMessage: func(msg chat.Message) {
			a.dispatcher.Submit(func() { a.deliverMessage(msg) })
		},
		OnConnectedChanged: func(connected bool) {
			a.dispatcher.Submit(func() { a.deliverConnectedChanged(connected) })
		},
		OnChannelChanged: func(channel string) {
			a.dispatcher.Submit(func() { a.deliverChannelChanged(channel) })
		},
		OnConnectionError: func(description string) {
			a.dispatcher.Submit(func() { a.deliverConnectionError(description) })
		},
	}
}

func (a *App) deliverMessage(msg chat.Message) {
	a.emitRuntimeEvent("chat:message", msg)
	if a.wsHub != nil {
		a.wsHub.BroadcastMessage(msg)
	}
	if a.transcript == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), transcriptWriteTimeout)
	defer cancel()
	if err := a.transcript.Append(ctx, msg); err != nil {
		telemetry.IncTranscriptFailures()
		slog.Warn("[chat] transcript append failed", "channel", msg.Channel, "error", err)
	}
}

func (a *App) deliverConnectedChanged(connected bool) {
	a.emitRuntimeEvent("chat:connected-changed", map[string]bool{"connected": connected})
	a.updateFeedStatus(func(st *wsserver.Status) { st.Connected = connected })
}

// deliverChannelChanged announces the joined channel and replays its stored
// history before any new message of the session is delivered.
func (a *App) deliverChannelChanged(channel string) {
	a.emitRuntimeEvent("chat:channel-changed", map[string]string{"channel": channel})
	a.updateFeedStatus(func(st *wsserver.Status) { st.Channel = channel })

	limit := a.getConfigSnapshot().Transcript.ReplayLimit
	if a.transcript == nil || limit <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), transcriptWriteTimeout)
	defer cancel()
	messages, err := a.transcript.Recent(ctx, channel, limit)
	if err != nil {
		slog.Warn("[chat] transcript replay failed", "channel", channel, "error", err)
		return
	}
	if len(messages) == 0 {
		return
	}
	a.emitRuntimeEvent("chat:history", chatHistoryEvent{Channel: channel, Messages: messages})
}

func (a *App) deliverConnectionError(description string) {
	a.emitRuntimeEvent("chat:connection-error", map[string]string{"message": description})
}

// updateFeedStatus applies mutate to the hub status and broadcasts it.
func (a *App) updateFeedStatus(mutate func(*wsserver.Status)) {
	if a.wsHub == nil {
		return
	}
	a.statusMu.Lock()
	defer a.statusMu.Unlock()
	st := a.wsHub.Status()
	mutate(&st)
	a.wsHub.SetStatus(st)
}

// recentMessages serves hub history requests for the current channel.
func (a *App) recentMessages(ctx context.Context, limit int) ([]chat.Message, error) {
	if a.transcript == nil || a.chat == nil {
		return nil, nil
	}
	channel := a.chat.Channel()
	if channel == "" {
		return nil, nil
	}
	return a.transcript.Recent(ctx, channel, limit)
}
