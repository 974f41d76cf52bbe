package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"twitch-overlay/internal/chat"
)

const recentMessagesTimeout = 2 * time.Second

// ConnectToChannel joins channel, replacing any current session. An empty
// token falls back to the configured oauth_token; the relay accepts any
// value for anonymous logins. Progress arrives as chat:* events.
func (a *App) ConnectToChannel(channel, token string) error {
	client, err := a.requireChat()
	if err != nil {
		return err
	}
	if strings.TrimSpace(token) == "" {
		token = a.getConfigSnapshot().OAuthToken
	}
	return client.Connect(channel, token)
}

// Disconnect leaves the current channel. It is a no-op when disconnected.
func (a *App) Disconnect() {
	client, err := a.requireChat()
	if err != nil {
		return
	}
	client.Disconnect()
}

// IsConnected reports whether the chat client has joined a channel.
func (a *App) IsConnected() bool {
	client, err := a.requireChat()
	if err != nil {
		return false
	}
	return client.Connected()
}

// CurrentChannel returns the last requested channel, or "" if none.
func (a *App) CurrentChannel() string {
	client, err := a.requireChat()
	if err != nil {
		return ""
	}
	return client.Channel()
}

// GetRecentMessages returns up to limit stored messages of the current
// channel, oldest first. A non-positive limit uses transcript.replay_limit.
func (a *App) GetRecentMessages(limit int) ([]chat.Message, error) {
	if limit <= 0 {
		limit = a.getConfigSnapshot().Transcript.ReplayLimit
	}
	ctx, cancel := context.WithTimeout(context.Background(), recentMessagesTimeout)
	defer cancel()
	messages, err := a.recentMessages(ctx, limit)
	if err != nil {
		slog.Warn("[chat] recent messages unavailable", "error", err)
		return nil, err
	}
	if messages == nil {
		return []chat.Message{}, nil
	}
	return messages, nil
}
