package main

import (
	"log/slog"
	"time"

	"twitch-overlay/internal/config"
)

type configUpdatedEvent struct {
	Config             config.Config `json:"config"`
	Version            uint64        `json:"version"`
	UpdatedAtUnixMilli int64         `json:"updated_at_unix_milli"`
}

// GetConfig returns the effective config: config.yaml plus environment
// overrides.
func (a *App) GetConfig() config.Config {
	return a.getConfigSnapshot()
}

// GetConfigAndFlushWarnings returns loaded config and emits any pending startup warnings.
func (a *App) GetConfigAndFlushWarnings() config.Config {
	a.flushPendingConfigLoadWarnings()
	return a.getConfigSnapshot()
}

func (a *App) flushPendingConfigLoadWarnings() {
	ctx := a.runtimeContext()
	if ctx == nil {
		return
	}
	if warning := a.consumePendingConfigLoadWarning(); warning != "" {
		a.emitRuntimeEventWithContext(ctx, "config:load-failed", map[string]string{
			"message": warning,
		})
	}
}

// SaveConfig validates and persists cfg to disk, then updates in-memory config.
// The app:config-updated event carries the normalized config (with defaults
// filled and environment overrides applied).
func (a *App) SaveConfig(cfg config.Config) error {
	previous, event, err := a.saveConfigWithLock(cfg)
	if err != nil {
		return err
	}
	a.applyRuntimeConfig(previous, event.Config)
	// Event emission intentionally happens outside cfgSaveMu.
	// Concurrent saves are ordered by Version, and frontend consumers must
	// treat the highest version as authoritative.
	a.emitRuntimeEvent("app:config-updated", event)
	return nil
}

// saveConfigWithLock persists cfg, updates the in-memory snapshot, and bumps
// event version under cfgSaveMu. It returns the snapshot it replaced.
func (a *App) saveConfigWithLock(cfg config.Config) (config.Config, configUpdatedEvent, error) {
	a.cfgSaveMu.Lock()
	defer a.cfgSaveMu.Unlock()

	normalized, err := config.Save(a.configPath, cfg)
	if err != nil {
		return config.Config{}, configUpdatedEvent{}, err
	}
	effective, _ := config.ApplyEnvOverrides(normalized)
	previous := a.getConfigSnapshot()
	a.setConfigSnapshot(effective)
	return previous, a.newConfigUpdatedEvent(effective), nil
}

// reloadConfigFromDisk runs after config.yaml changed outside the app.
// Invalid files are reported and the running config is kept.
func (a *App) reloadConfigFromDisk() {
	a.cfgSaveMu.Lock()
	loaded, err := config.Load(a.configPath)
	if err != nil {
		a.cfgSaveMu.Unlock()
		slog.Warn("[WARN-CONFIG] reload failed, keeping current config", "path", a.configPath, "error", err)
		a.addPendingConfigLoadWarning("Failed to reload config file. Keeping the current settings. Error: " + err.Error())
		a.flushPendingConfigLoadWarnings()
		return
	}
	effective, _ := config.ApplyEnvOverrides(loaded)
	previous := a.getConfigSnapshot()
	if effective == previous {
		a.cfgSaveMu.Unlock()
		slog.Debug("[DEBUG-CONFIG] config file changed without effective changes")
		return
	}
	a.setConfigSnapshot(effective)
	event := a.newConfigUpdatedEvent(effective)
	a.cfgSaveMu.Unlock()

	slog.Info("[DEBUG-CONFIG] config reloaded from disk", "version", event.Version)
	a.applyRuntimeConfig(previous, effective)
	a.emitRuntimeEvent("app:config-updated", event)
}

// newConfigUpdatedEvent must be called with cfgSaveMu held so versions
// follow snapshot order.
func (a *App) newConfigUpdatedEvent(cfg config.Config) configUpdatedEvent {
	return configUpdatedEvent{
		Config:             config.Clone(cfg),
		Version:            a.configEventVersion.Add(1),
		UpdatedAtUnixMilli: time.Now().UnixMilli(),
	}
}

// applyRuntimeConfig pushes settings that can change while running. Overlay
// appearance is applied by the frontend from app:config-updated; listener
// and transport settings take effect on the next start.
func (a *App) applyRuntimeConfig(previous, next config.Config) {
	if previous.ToggleHotkey != next.ToggleHotkey {
		a.configureGlobalHotkey()
	}
	var restartOnly []string
	if previous.Chat.Address != next.Chat.Address {
		restartOnly = append(restartOnly, "chat.address")
	}
	if previous.WebSocketPort != next.WebSocketPort {
		restartOnly = append(restartOnly, "websocket_port")
	}
	if previous.MetricsAddr != next.MetricsAddr {
		restartOnly = append(restartOnly, "metrics_addr")
	}
	if previous.Transcript.Enabled != next.Transcript.Enabled || previous.Transcript.Path != next.Transcript.Path {
		restartOnly = append(restartOnly, "transcript")
	}
	if len(restartOnly) > 0 {
		slog.Info("[DEBUG-CONFIG] settings take effect after restart", "fields", restartOnly)
	}
}

// getConfigSnapshot returns a copy of the config protected by cfgMu.
// All read access to App.cfg should go through this helper.
func (a *App) getConfigSnapshot() config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return config.Clone(a.cfg)
}

// setConfigSnapshot stores a copy of cfg protected by cfgMu.
// All write access to App.cfg should go through this helper.
func (a *App) setConfigSnapshot(cfg config.Config) {
	a.cfgMu.Lock()
	a.cfg = config.Clone(cfg)
	a.cfgMu.Unlock()
}
