package main

import (
	"errors"

	"twitch-overlay/internal/chat"
	"twitch-overlay/internal/hotkeys"
)

func (a *App) requireChat() (*chat.Client, error) {
	if a.chat == nil {
		return nil, errors.New("chat client is unavailable")
	}
	return a.chat, nil
}

func (a *App) requireHotkeys() (*hotkeys.Manager, error) {
	if a.hotkeys == nil {
		return nil, errors.New("hotkey manager is unavailable")
	}
	return a.hotkeys, nil
}
