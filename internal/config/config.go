package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.yaml.in/yaml/v3"

	"twitch-overlay/internal/hotkeys"
)

const (
	appDirName     = "twitch-overlay"
	configFileName = "config.yaml"

	maxConfigFileBytes int64 = 1 << 20 // 1MB
	maxRenameRetry           = 10
	// Windows file lock releases (antivirus/indexing) typically settle quickly.
	// Use a short linear backoff: baseDelay * (1..maxRenameRetry).
	renameRetryBaseDelay = 10 * time.Millisecond
	// maxValidPort is the highest TCP/UDP port number (2^16 - 1).
	// Port 0 is valid and means "OS auto-assign".
	maxValidPort = 65535

	defaultOpacity     = 0.85
	minOpacity         = 0.1
	defaultMaxMessages = 50
	maxMaxMessages     = 500
	defaultReplayLimit = 20
	maxReplayLimit     = 500
)

// defaultConfigDirFn is a test seam; tests override it to simulate
// directory-resolution failures in validateConfigPath.
var defaultConfigDirFn = defaultConfigDir
var userHomeDirFn = os.UserHomeDir
var yamlUnmarshalConfigMetadataFn = func(raw []byte, out *map[string]any) error {
	return yaml.Unmarshal(raw, out)
}
var defaultPathWarningState struct {
	mu       sync.Mutex
	messages []string
}

func recordDefaultPathWarning(message string) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return
	}
	defaultPathWarningState.mu.Lock()
	defaultPathWarningState.messages = append(defaultPathWarningState.messages, trimmed)
	defaultPathWarningState.mu.Unlock()
}

// ConsumeDefaultPathWarnings returns and clears path-resolution warnings
// accumulated during DefaultPath() calls.
func ConsumeDefaultPathWarnings() []string {
	defaultPathWarningState.mu.Lock()
	defer defaultPathWarningState.mu.Unlock()
	if len(defaultPathWarningState.messages) == 0 {
		return nil
	}
	out := make([]string, len(defaultPathWarningState.messages))
	copy(out, defaultPathWarningState.messages)
	defaultPathWarningState.messages = nil
	return out
}

// Config is the overlay runtime configuration.
type Config struct {
	// Channel is joined on startup when AutoConnect is set.
	Channel string `yaml:"channel" json:"channel"`
	// OAuthToken is sent on the PASS line. The anonymous login accepts any
	// value, so it may stay empty.
	OAuthToken  string `yaml:"oauth_token,omitempty" json:"oauth_token,omitempty"`
	AutoConnect bool   `yaml:"auto_connect" json:"auto_connect"`
	// ToggleHotkey is the system-wide chord that shows and hides the overlay.
	ToggleHotkey string           `yaml:"toggle_hotkey" json:"toggle_hotkey"`
	Chat         ChatConfig       `yaml:"chat" json:"chat"`
	Overlay      OverlayConfig    `yaml:"overlay" json:"overlay"`
	Transcript   TranscriptConfig `yaml:"transcript" json:"transcript"`
	// WebSocketPort is the port of the local chat feed. 0 (default) lets the
	// OS assign an available port.
	WebSocketPort int `yaml:"websocket_port" json:"websocket_port"`
	// MetricsAddr enables the Prometheus endpoint when non-empty,
	// e.g. "127.0.0.1:9464".
	MetricsAddr string `yaml:"metrics_addr,omitempty" json:"metrics_addr,omitempty"`
}

// ChatConfig holds relay connection settings.
type ChatConfig struct {
	// Address is the relay host:port.
	Address string `yaml:"address" json:"address"`
}

// OverlayConfig holds settings consumed by the overlay frontend.
type OverlayConfig struct {
	Opacity     float64 `yaml:"opacity" json:"opacity"`           // window opacity, 0.1..1
	MaxMessages int     `yaml:"max_messages" json:"max_messages"` // bubbles kept on screen
}

// TranscriptConfig controls the local message log.
type TranscriptConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Path of the sqlite file. Empty means transcript.db beside config.yaml.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
	// ReplayLimit is how many stored messages are replayed on join.
	ReplayLimit int `yaml:"replay_limit" json:"replay_limit"`
}

// DefaultConfig returns default values.
func DefaultConfig() Config {
	return Config{
		ToggleHotkey: hotkeys.DefaultToggleBinding,
		Chat: ChatConfig{
			Address: "irc.chat.twitch.tv:6667",
		},
		Overlay: OverlayConfig{
			Opacity:     defaultOpacity,
			MaxMessages: defaultMaxMessages,
		},
		Transcript: TranscriptConfig{
			Enabled:     true,
			ReplayLimit: defaultReplayLimit,
		},
	}
}

// DefaultPath resolves the config file path, preferring LOCALAPPDATA over
// APPDATA, falling back to ~/.config when both are unset, and then to
// os.TempDir() if the home directory cannot be resolved.
// The temp-dir fallback is not a stable persistence location and may vary
// between sessions depending on environment configuration.
func DefaultPath() string {
	base := strings.TrimSpace(os.Getenv("LOCALAPPDATA"))
	if base == "" {
		base = strings.TrimSpace(os.Getenv("APPDATA"))
	}
	if base == "" {
		home, err := userHomeDirFn()
		if err != nil {
			// Keep config path resolvable even in restricted environments.
			slog.Warn("[WARN-CONFIG] using temp dir as config path fallback", "error", err)
			recordDefaultPathWarning(
				"Config path fallback: failed to resolve LOCALAPPDATA/APPDATA/home directory. Using temp directory; settings persistence may be limited.",
			)
			base = os.TempDir()
		} else {
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, appDirName, configFileName)
}

// TranscriptPath returns the transcript database location for cfg loaded
// from configPath.
func TranscriptPath(configPath string, cfg Config) string {
	if p := strings.TrimSpace(cfg.Transcript.Path); p != "" {
		return p
	}
	return filepath.Join(filepath.Dir(configPath), "transcript.db")
}

// Load reads config file. If file does not exist, defaults are returned.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, errors.New("config path required")
	}

	raw, err := readLimitedFile(path, maxConfigFileBytes)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if len(raw) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		slog.Warn("[WARN-CONFIG] failed to parse config, using defaults", "path", path, "error", err)
		return DefaultConfig(), err
	}

	rawMap, metadataErr := parseRawConfigMetadata(raw)
	defaultTranscriptEnabled := DefaultConfig().Transcript.Enabled
	if metadataErr != nil {
		slog.Warn("[WARN-CONFIG] failed to parse config metadata", "error", metadataErr)
	} else {
		warnUnknownFields(rawMap)
	}
	hasTranscriptEnabled, resolveErr := resolveTranscriptEnabled(raw, rawMap)
	if resolveErr != nil {
		// Keep already-parsed cfg.Transcript.Enabled to avoid silently overwriting
		// explicit user values when helper probing is unavailable.
		slog.Warn("[WARN-CONFIG] failed to resolve transcript.enabled metadata, preserving parsed value", "error", resolveErr)
	} else if !hasTranscriptEnabled {
		cfg.Transcript.Enabled = defaultTranscriptEnabled
	}
	if err := applyDefaultsAndValidate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// EnsureFile writes default config if missing and returns loaded config.
func EnsureFile(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		if _, err := Save(path, cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// Clone returns a copy of cfg.
// Config holds no reference types today; Clone exists so callers sharing
// snapshots across goroutines keep working if that changes.
func Clone(src Config) Config {
	return src
}

// Save validates cfg, fills defaults, and atomically writes to path.
// Returns the normalized config that was actually written to disk.
func Save(path string, cfg Config) (Config, error) {
	normalizedPath, err := validateConfigPath(path)
	if err != nil {
		return cfg, err
	}
	if err := applyDefaultsAndValidate(&cfg); err != nil {
		return cfg, fmt.Errorf("save config: %w", err)
	}

	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return cfg, fmt.Errorf("save config: marshal: %w", err)
	}
	if err := atomicWrite(normalizedPath, raw); err != nil {
		return cfg, err
	}
	slog.Debug("[DEBUG-CONFIG] config saved", "path", path)
	return cfg, nil
}

// atomicWrite writes config data using temp-file + rename to avoid partial
// writes and retries rename on Windows to tolerate transient file locks.
func atomicWrite(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("save config: mkdir: %w", err)
	}

	// Atomic write: temp file + rename in same directory ensures
	// same-filesystem rename and prevents partial writes on crash.
	tmpFile, err := os.CreateTemp(dir, ".config.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("save config: create temp: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			if closeErr := tmpFile.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
				slog.Warn("[WARN-CONFIG] failed to close temp file", "path", tmpPath, "error", closeErr)
			}
		}
		if err != nil {
			if removeErr := os.Remove(tmpPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
				slog.Warn("[WARN-CONFIG] failed to remove temp file", "path", tmpPath, "error", removeErr)
			}
		}
	}()

	// 0o600: the file may hold an OAuth token.
	if err = tmpFile.Chmod(0o600); err != nil {
		return fmt.Errorf("save config: chmod temp: %w", err)
	}
	if _, err = tmpFile.Write(data); err != nil {
		return fmt.Errorf("save config: write: %w", err)
	}
	if err = tmpFile.Sync(); err != nil {
		return fmt.Errorf("save config: sync: %w", err)
	}
	err = tmpFile.Close()
	tmpFile = nil
	if err != nil {
		return fmt.Errorf("save config: close: %w", err)
	}

	if err = renameFileWithRetry(tmpPath, path); err != nil {
		return fmt.Errorf("save config: rename: %w", err)
	}
	return nil
}

// validateConfigPath normalizes path and enforces that config writes stay
// inside the default config directory when that directory is resolvable.
func validateConfigPath(path string) (string, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return "", errors.New("config path required")
	}
	absolutePath, err := filepath.Abs(trimmedPath)
	if err != nil {
		return "", fmt.Errorf("save config: resolve path: %w", err)
	}

	expectedDir, err := defaultConfigDirFn()
	if err != nil {
		return "", fmt.Errorf("save config: resolve config dir: %w", err)
	}
	absoluteExpectedDir, err := filepath.Abs(expectedDir)
	if err != nil {
		return "", fmt.Errorf("save config: resolve config dir: %w", err)
	}
	if !pathWithinDir(absolutePath, absoluteExpectedDir) {
		return "", fmt.Errorf("save config: path outside config directory: %q", absolutePath)
	}

	return absolutePath, nil
}

func defaultConfigDir() (string, error) {
	return filepath.Dir(DefaultPath()), nil
}

// pathWithinDir blocks directory traversal by ensuring path is under dir.
// It also rejects Windows cross-drive escapes because filepath.Rel returns
// an absolute path when roots differ.
func pathWithinDir(path string, dir string) bool {
	relativePath, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	if relativePath == "." {
		return true
	}
	if relativePath == ".." || strings.HasPrefix(relativePath, ".."+string(os.PathSeparator)) {
		return false
	}
	return !filepath.IsAbs(relativePath)
}

// applyDefaultsAndValidate fills missing defaults and validates cfg in-place.
// MUTATES: cfg is directly modified.
// Used by both Load and Save to ensure consistent normalization.
func applyDefaultsAndValidate(cfg *Config) error {
	defaults := DefaultConfig()
	if isZeroConfig(*cfg) {
		*cfg = defaults
		return nil
	}

	cfg.Channel = strings.TrimSpace(cfg.Channel)
	cfg.OAuthToken = strings.TrimSpace(cfg.OAuthToken)
	cfg.MetricsAddr = strings.TrimSpace(cfg.MetricsAddr)

	if err := normalizeToggleHotkey(cfg); err != nil {
		return err
	}
	if err := normalizeChatAddress(cfg); err != nil {
		return err
	}
	if cfg.AutoConnect && cfg.Channel == "" {
		slog.Warn("[WARN-CONFIG] auto_connect is set but channel is empty, disabling auto_connect")
		cfg.AutoConnect = false
	}
	validateWebSocketPort(cfg)
	validateOverlay(cfg)
	validateTranscript(cfg)
	return nil
}

// normalizeToggleHotkey fills the default binding and rewrites the binding
// in its canonical form (e.g. "shift+ctrl+t" -> "Ctrl+Shift+T").
func normalizeToggleHotkey(cfg *Config) error {
	spec := strings.TrimSpace(cfg.ToggleHotkey)
	if spec == "" {
		cfg.ToggleHotkey = hotkeys.DefaultToggleBinding
		return nil
	}
	combo, err := hotkeys.ParseCombination(spec)
	if err != nil {
		return fmt.Errorf("toggle_hotkey: %w", err)
	}
	cfg.ToggleHotkey = combo.String()
	return nil
}

func normalizeChatAddress(cfg *Config) error {
	addr := strings.TrimSpace(cfg.Chat.Address)
	if addr == "" {
		cfg.Chat.Address = DefaultConfig().Chat.Address
		return nil
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("chat.address must be host:port: %w", err)
	}
	if host == "" || port == "" {
		return fmt.Errorf("chat.address must be host:port, got %q", addr)
	}
	cfg.Chat.Address = addr
	return nil
}

// validateWebSocketPort checks that WebSocketPort is within the valid TCP port
// range (0-65535). Port 0 means "let the OS auto-assign an available port".
// Invalid values are logged and reset to 0 (auto-assign) to keep the
// application startable even with a misconfigured config file.
// NOTE: non-fatal: an invalid port falls back to default (0) instead of
// returning an error, consistent with the project policy that parse errors
// must not prevent startup.
func validateWebSocketPort(cfg *Config) {
	if cfg.WebSocketPort < 0 || cfg.WebSocketPort > maxValidPort {
		slog.Warn("[WARN-CONFIG] websocket_port out of valid range (0-65535), falling back to 0 (auto-assign)",
			"configured", cfg.WebSocketPort, "max", maxValidPort)
		cfg.WebSocketPort = 0
	}
}

// validateOverlay clamps overlay settings into their usable ranges.
// NOTE: non-fatal, same policy as validateWebSocketPort.
func validateOverlay(cfg *Config) {
	switch {
	case cfg.Overlay.Opacity == 0 || math.IsNaN(cfg.Overlay.Opacity):
		cfg.Overlay.Opacity = defaultOpacity
	case cfg.Overlay.Opacity < minOpacity:
		slog.Warn("[WARN-CONFIG] overlay.opacity below minimum, clamping", "configured", cfg.Overlay.Opacity, "min", minOpacity)
		cfg.Overlay.Opacity = minOpacity
	case cfg.Overlay.Opacity > 1:
		slog.Warn("[WARN-CONFIG] overlay.opacity above 1, clamping", "configured", cfg.Overlay.Opacity)
		cfg.Overlay.Opacity = 1
	}

	switch {
	case cfg.Overlay.MaxMessages <= 0:
		cfg.Overlay.MaxMessages = defaultMaxMessages
	case cfg.Overlay.MaxMessages > maxMaxMessages:
		slog.Warn("[WARN-CONFIG] overlay.max_messages too large, clamping", "configured", cfg.Overlay.MaxMessages, "max", maxMaxMessages)
		cfg.Overlay.MaxMessages = maxMaxMessages
	}
}

func validateTranscript(cfg *Config) {
	cfg.Transcript.Path = strings.TrimSpace(cfg.Transcript.Path)
	if cfg.Transcript.Path != "" && !filepath.IsAbs(cfg.Transcript.Path) {
		slog.Warn("[WARN-CONFIG] transcript.path is not an absolute path, using default location", "path", cfg.Transcript.Path)
		cfg.Transcript.Path = ""
	}
	switch {
	case cfg.Transcript.ReplayLimit < 0:
		slog.Warn("[WARN-CONFIG] transcript.replay_limit is negative, disabling replay", "configured", cfg.Transcript.ReplayLimit)
		cfg.Transcript.ReplayLimit = 0
	case cfg.Transcript.ReplayLimit > maxReplayLimit:
		slog.Warn("[WARN-CONFIG] transcript.replay_limit too large, clamping", "configured", cfg.Transcript.ReplayLimit, "max", maxReplayLimit)
		cfg.Transcript.ReplayLimit = maxReplayLimit
	}
}

// parseRawConfigMetadata unmarshals raw YAML into a generic map used only
// for metadata checks (unknown fields and missing option detection).
func parseRawConfigMetadata(raw []byte) (map[string]any, error) {
	var rawMap map[string]any
	if err := yamlUnmarshalConfigMetadataFn(raw, &rawMap); err != nil {
		return nil, err
	}
	return rawMap, nil
}

type rawTranscriptEnabledProbe struct {
	Transcript *struct {
		Enabled *bool `yaml:"enabled"`
	} `yaml:"transcript"`
}

func probeRawTranscriptEnabled(raw []byte) (bool, error) {
	var probe rawTranscriptEnabledProbe
	if err := yaml.Unmarshal(raw, &probe); err != nil {
		return false, err
	}
	if probe.Transcript == nil {
		return false, nil
	}
	return probe.Transcript.Enabled != nil, nil
}

// resolveTranscriptEnabled reports whether transcript.enabled is spelled out
// in the file. A bare `false` zero value cannot be told apart from a missing
// key after yaml.Unmarshal, so the raw document decides.
func resolveTranscriptEnabled(raw []byte, rawMap map[string]any) (bool, error) {
	if rawMap != nil {
		tr, ok := rawMap["transcript"].(map[string]any)
		if !ok {
			return false, nil
		}
		_, hasEnabled := tr["enabled"]
		return hasEnabled, nil
	}
	return probeRawTranscriptEnabled(raw)
}

var knownTopLevelKeys = map[string]struct{}{
	"channel":        {},
	"oauth_token":    {},
	"auto_connect":   {},
	"toggle_hotkey":  {},
	"chat":           {},
	"overlay":        {},
	"transcript":     {},
	"websocket_port": {},
	"metrics_addr":   {},
}

func warnUnknownFields(rawMap map[string]any) {
	for key := range rawMap {
		if _, ok := knownTopLevelKeys[key]; !ok {
			slog.Warn("[WARN-CONFIG] unknown field ignored", "field", key)
		}
	}
}

func readLimitedFile(path string, maxBytes int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	limited := io.LimitReader(file, maxBytes+1)
	raw, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > maxBytes {
		return nil, fmt.Errorf("config file exceeds %d bytes", maxBytes)
	}
	return raw, nil
}

func isZeroConfig(cfg Config) bool {
	// reflect.DeepEqual guards against field-addition drift that manual checks miss.
	return reflect.DeepEqual(cfg, Config{})
}

func renameFileWithRetry(sourcePath string, targetPath string) error {
	var lastErr error
	for attempt := range maxRenameRetry {
		err := os.Rename(sourcePath, targetPath)
		if err == nil {
			return nil
		}
		lastErr = err
		if runtime.GOOS != "windows" {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * renameRetryBaseDelay)
	}
	return lastErr
}
