package main

import (
	"log/slog"

	"twitch-overlay/internal/hotkeys"
	"twitch-overlay/internal/telemetry"
)

// recordedShortcut is the payload of hotkey:recorded.
type recordedShortcut struct {
	Modifiers int    `json:"modifiers"`
	Key       int    `json:"key"`
	Text      string `json:"text"`
}

// HotkeyStatus describes the global keyboard hook for the settings UI.
type HotkeyStatus struct {
	Installed bool   `json:"installed"`
	Binding   string `json:"binding"`
	// Configured is the toggle_hotkey value, shown when the hook is down.
	Configured string `json:"configured"`
}

// GetShortcutText renders a modifier mask and key code as a label such as
// "Ctrl+Shift+T". Unknown keys render as "Key_<code>".
func (a *App) GetShortcutText(modifiers, key int) string {
	return hotkeys.ShortcutText(hotkeys.Modifier(modifiers), hotkeys.Key(key))
}

// ExecuteShortcut replays modifiers+key as synthetic keyboard input to the
// focused application.
func (a *App) ExecuteShortcut(modifiers, key int) error {
	manager, err := a.requireHotkeys()
	if err != nil {
		return err
	}
	err = manager.ExecuteShortcut(hotkeys.Modifier(modifiers), hotkeys.Key(key))
	telemetry.ObserveShortcut(err)
	if err != nil {
		slog.Warn("[hotkey] execute shortcut failed", "error", err)
	}
	return err
}

// RecordShortcut captures the next chord pressed anywhere on the system and
// emits it as hotkey:recorded. The chord does not reach other applications.
func (a *App) RecordShortcut() error {
	manager, err := a.requireHotkeys()
	if err != nil {
		return err
	}
	return manager.RecordNext(func(c hotkeys.Combination) {
		a.emitRuntimeEvent("hotkey:recorded", recordedShortcut{
			Modifiers: int(c.Modifiers()),
			Key:       int(c.Key()),
			Text:      c.String(),
		})
	})
}

// CancelShortcutRecording drops a pending RecordShortcut and reports whether
// one was pending.
func (a *App) CancelShortcutRecording() bool {
	manager, err := a.requireHotkeys()
	if err != nil {
		return false
	}
	return manager.CancelRecording()
}

// ToggleOverlay flips overlay visibility, like the global toggle chord.
func (a *App) ToggleOverlay() {
	a.toggleOverlay()
}

// GetHotkeyStatus reports whether the global hook is active and its binding.
func (a *App) GetHotkeyStatus() HotkeyStatus {
	status := HotkeyStatus{Configured: a.getConfigSnapshot().ToggleHotkey}
	manager, err := a.requireHotkeys()
	if err != nil {
		return status
	}
	status.Installed = manager.Installed()
	status.Binding = manager.ActiveBinding()
	return status
}
