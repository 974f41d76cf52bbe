package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"twitch-overlay/internal/hotkeys"
)

// Environment variables that override file values at runtime. They apply to
// the effective snapshot only; the file keeps whatever value was saved.
const (
	EnvChannel      = "TWITCH_CHANNEL"
	EnvOAuthToken   = "TWITCH_OAUTH_TOKEN"
	EnvToggleHotkey = "OVERLAY_TOGGLE_HOTKEY"
	EnvMetricsAddr  = "OVERLAY_METRICS_ADDR"
)

var lookupEnvFn = os.LookupEnv

// LoadDotEnv loads a .env file that sits beside the config file. Variables
// already present in the process environment win. A missing file is not an
// error.
func LoadDotEnv(configPath string) error {
	if strings.TrimSpace(configPath) == "" {
		return nil
	}
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	slog.Debug("[DEBUG-CONFIG] loaded .env", "path", envPath)
	return nil
}

// ApplyEnvOverrides returns cfg with environment overrides applied and the
// names of the variables that were used. Invalid values are logged and
// skipped.
func ApplyEnvOverrides(cfg Config) (Config, []string) {
	var applied []string

	if v, ok := lookupTrimmed(EnvChannel); ok {
		cfg.Channel = v
		applied = append(applied, EnvChannel)
	}
	if v, ok := lookupTrimmed(EnvOAuthToken); ok {
		cfg.OAuthToken = v
		applied = append(applied, EnvOAuthToken)
	}
	if v, ok := lookupTrimmed(EnvToggleHotkey); ok {
		combo, err := hotkeys.ParseCombination(v)
		if err != nil {
			slog.Warn("[WARN-CONFIG] ignoring invalid hotkey override", "env", EnvToggleHotkey, "error", err)
		} else {
			cfg.ToggleHotkey = combo.String()
			applied = append(applied, EnvToggleHotkey)
		}
	}
	if v, ok := lookupTrimmed(EnvMetricsAddr); ok {
		cfg.MetricsAddr = v
		applied = append(applied, EnvMetricsAddr)
	}
	return cfg, applied
}

func lookupTrimmed(key string) (string, bool) {
	v, ok := lookupEnvFn(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}
