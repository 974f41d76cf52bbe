package config

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"sync"
	"testing"
)

func newConfigPathForSaveTest(t *testing.T, elems ...string) string {
	t.Helper()
	localAppData := t.TempDir()
	t.Setenv("LOCALAPPDATA", localAppData)
	t.Setenv("APPDATA", "")

	defaultPath := DefaultPath()

	return filepath.Join(filepath.Dir(defaultPath), filepath.Join(elems...))
}

func writeConfigFile(t *testing.T, raw string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestPathWithinDir(t *testing.T) {
	baseDir := t.TempDir()
	configDir := filepath.Join(baseDir, "config")

	tests := []struct {
		name string
		path string
		dir  string
		want bool
	}{
		{
			name: "same path",
			path: configDir,
			dir:  configDir,
			want: true,
		},
		{
			name: "subdirectory path",
			path: filepath.Join(configDir, "sub", "config.yaml"),
			dir:  configDir,
			want: true,
		},
		{
			name: "traversal path",
			path: filepath.Join(configDir, "..", "outside.yaml"),
			dir:  configDir,
			want: false,
		},
		{
			name: "different path",
			path: filepath.Join(baseDir, "other", "config.yaml"),
			dir:  configDir,
			want: false,
		},
	}
	if runtime.GOOS == "windows" {
		tests = append(tests, struct {
			name string
			path string
			dir  string
			want bool
		}{
			name: "different drive",
			path: `D:\outside\config.yaml`,
			dir:  `C:\inside`,
			want: false,
		})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pathWithinDir(tt.path, tt.dir)
			if got != tt.want {
				t.Fatalf("pathWithinDir(%q, %q) = %v, want %v", tt.path, tt.dir, got, tt.want)
			}
		})
	}
}

func TestIsZeroConfig(t *testing.T) {
	if !isZeroConfig(Config{}) {
		t.Fatal("isZeroConfig(Config{}) = false, want true")
	}
	if isZeroConfig(DefaultConfig()) {
		t.Fatal("isZeroConfig(DefaultConfig()) = true, want false")
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "channel set", mutate: func(cfg *Config) { cfg.Channel = "ronni" }},
		{name: "auto connect set", mutate: func(cfg *Config) { cfg.AutoConnect = true }},
		{name: "chat address set", mutate: func(cfg *Config) { cfg.Chat.Address = "localhost:6667" }},
		{name: "opacity set", mutate: func(cfg *Config) { cfg.Overlay.Opacity = 0.5 }},
		{name: "transcript enabled", mutate: func(cfg *Config) { cfg.Transcript.Enabled = true }},
		{name: "websocket port set", mutate: func(cfg *Config) { cfg.WebSocketPort = 8080 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var cfg Config
			tc.mutate(&cfg)
			if isZeroConfig(cfg) {
				t.Fatalf("isZeroConfig() = true after %s", tc.name)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ToggleHotkey != "Ctrl+Shift+T" {
		t.Fatalf("ToggleHotkey = %q, want Ctrl+Shift+T", cfg.ToggleHotkey)
	}
	if cfg.Chat.Address != "irc.chat.twitch.tv:6667" {
		t.Fatalf("Chat.Address = %q", cfg.Chat.Address)
	}
	if cfg.AutoConnect {
		t.Fatal("AutoConnect should default to false")
	}
	if !cfg.Transcript.Enabled {
		t.Fatal("Transcript.Enabled should default to true")
	}
	if cfg.Transcript.ReplayLimit != defaultReplayLimit {
		t.Fatalf("Transcript.ReplayLimit = %d, want %d", cfg.Transcript.ReplayLimit, defaultReplayLimit)
	}
	if cfg.Overlay.Opacity != defaultOpacity || cfg.Overlay.MaxMessages != defaultMaxMessages {
		t.Fatalf("Overlay = %+v", cfg.Overlay)
	}
}

func TestDefaultPathUsesLocalAppDataWhenAvailable(t *testing.T) {
	localAppData := t.TempDir()
	t.Setenv("LOCALAPPDATA", localAppData)
	t.Setenv("APPDATA", t.TempDir())

	want := filepath.Join(localAppData, "twitch-overlay", "config.yaml")
	if got := DefaultPath(); got != want {
		t.Fatalf("DefaultPath() = %q, want %q", got, want)
	}
}

func TestDefaultPathFallsBackToAppData(t *testing.T) {
	t.Setenv("LOCALAPPDATA", "")
	t.Setenv("APPDATA", `C:\Users\tester\AppData\Roaming`)

	want := filepath.Join(`C:\Users\tester\AppData\Roaming`, "twitch-overlay", "config.yaml")
	if got := DefaultPath(); got != want {
		t.Fatalf("DefaultPath() = %q, want %q", got, want)
	}
}

func TestDefaultPathFallsBackToHomeConfig(t *testing.T) {
	original := userHomeDirFn
	t.Cleanup(func() { userHomeDirFn = original })
	home := t.TempDir()
	userHomeDirFn = func() (string, error) { return home, nil }
	t.Setenv("LOCALAPPDATA", "")
	t.Setenv("APPDATA", "")

	want := filepath.Join(home, ".config", "twitch-overlay", "config.yaml")
	if got := DefaultPath(); got != want {
		t.Fatalf("DefaultPath() = %q, want %q", got, want)
	}
}

func TestDefaultPathFallsBackToTempDirWhenHomeDirUnavailable(t *testing.T) {
	originalUserHomeDirFn := userHomeDirFn
	originalLogger := slog.Default()
	t.Cleanup(func() {
		userHomeDirFn = originalUserHomeDirFn
		slog.SetDefault(originalLogger)
	})
	ConsumeDefaultPathWarnings()
	t.Cleanup(func() {
		ConsumeDefaultPathWarnings()
	})

	var logBuf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelWarn})))

	userHomeDirFn = func() (string, error) {
		return "", errors.New("simulated home dir resolution failure")
	}
	t.Setenv("LOCALAPPDATA", "")
	t.Setenv("APPDATA", "")

	path := DefaultPath()
	want := filepath.Join(os.TempDir(), "twitch-overlay", "config.yaml")
	if path != want {
		t.Fatalf("DefaultPath() = %q, want %q", path, want)
	}
	if !strings.Contains(logBuf.String(), "using temp dir as config path fallback") {
		t.Fatalf("log output = %q, want temp-dir fallback warning", logBuf.String())
	}
	warnings := ConsumeDefaultPathWarnings()
	if len(warnings) == 0 || !strings.Contains(warnings[0], "Config path fallback") {
		t.Fatalf("ConsumeDefaultPathWarnings() = %q, want fallback message", warnings)
	}
	if again := ConsumeDefaultPathWarnings(); again != nil {
		t.Fatalf("second ConsumeDefaultPathWarnings() = %q, want nil", again)
	}
}

func TestTranscriptPath(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()

	if got, want := TranscriptPath(configPath, cfg), filepath.Join(filepath.Dir(configPath), "transcript.db"); got != want {
		t.Fatalf("TranscriptPath(default) = %q, want %q", got, want)
	}

	custom := filepath.Join(t.TempDir(), "log.db")
	cfg.Transcript.Path = custom
	if got := TranscriptPath(configPath, cfg); got != custom {
		t.Fatalf("TranscriptPath(custom) = %q, want %q", got, custom)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Fatalf("Load(missing) = %+v, want defaults", cfg)
	}
}

func TestLoadRequiresPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("Load(\"\") expected error")
	}
}

func TestLoadEmptyFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, ""))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Fatalf("Load(empty) = %+v, want defaults", cfg)
	}
}

func TestLoadOverlayFields(t *testing.T) {
	path := writeConfigFile(t, strings.Join([]string{
		"channel: '  ronni '",
		"oauth_token: abc123",
		"auto_connect: true",
		"toggle_hotkey: shift+ctrl+o",
		"chat:",
		"  address: 127.0.0.1:6667",
		"overlay:",
		"  opacity: 0.5",
		"  max_messages: 10",
		"transcript:",
		"  replay_limit: 5",
		"websocket_port: 9000",
		"metrics_addr: 127.0.0.1:9464",
		"",
	}, "\n"))

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := Config{
		Channel:       "ronni",
		OAuthToken:    "abc123",
		AutoConnect:   true,
		ToggleHotkey:  "Ctrl+Shift+O",
		Chat:          ChatConfig{Address: "127.0.0.1:6667"},
		Overlay:       OverlayConfig{Opacity: 0.5, MaxMessages: 10},
		Transcript:    TranscriptConfig{Enabled: true, ReplayLimit: 5},
		WebSocketPort: 9000,
		MetricsAddr:   "127.0.0.1:9464",
	}
	if !reflect.DeepEqual(cfg, want) {
		t.Fatalf("Load() = %+v\nwant %+v", cfg, want)
	}
}

func TestLoadRejectsInvalidToggleHotkey(t *testing.T) {
	for _, raw := range []string{"toggle_hotkey: T\n", "toggle_hotkey: Ctrl+Shift+Nope\n", "toggle_hotkey: Hyper+T\n"} {
		if _, err := Load(writeConfigFile(t, raw)); err == nil {
			t.Fatalf("Load(%q) expected error", raw)
		} else if !strings.Contains(err.Error(), "toggle_hotkey") {
			t.Fatalf("Load(%q) error = %v, want toggle_hotkey context", raw, err)
		}
	}
}

func TestLoadRejectsInvalidChatAddress(t *testing.T) {
	for _, raw := range []string{"chat:\n  address: irc.chat.twitch.tv\n", "chat:\n  address: ':6667'\n"} {
		if _, err := Load(writeConfigFile(t, raw)); err == nil {
			t.Fatalf("Load(%q) expected error", raw)
		}
	}
}

func TestLoadDisablesAutoConnectWithoutChannel(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, "auto_connect: true\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AutoConnect {
		t.Fatal("AutoConnect should be disabled when channel is empty")
	}
}

func TestLoadIgnoresUnknownFields(t *testing.T) {
	originalLogger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(originalLogger) })
	var logBuf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelWarn})))

	cfg, err := Load(writeConfigFile(t, "channel: ronni\nlegacy_theme: dark\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Channel != "ronni" {
		t.Fatalf("cfg.Channel = %q, want ronni", cfg.Channel)
	}
	if !strings.Contains(logBuf.String(), "legacy_theme") {
		t.Fatalf("log output = %q, want unknown field warning", logBuf.String())
	}
}

func TestLoadTranscriptEnabled(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{name: "section missing", raw: "channel: ronni\n", want: true},
		{name: "enabled missing", raw: "transcript:\n  replay_limit: 3\n", want: true},
		{name: "explicit false", raw: "transcript:\n  enabled: false\n", want: false},
		{name: "explicit true", raw: "transcript:\n  enabled: true\n", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfigFile(t, tt.raw))
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.Transcript.Enabled != tt.want {
				t.Fatalf("Transcript.Enabled = %v, want %v", cfg.Transcript.Enabled, tt.want)
			}
		})
	}
}

func TestLoadPreservesExplicitTranscriptEnabledWhenMetadataParseFails(t *testing.T) {
	original := yamlUnmarshalConfigMetadataFn
	t.Cleanup(func() {
		yamlUnmarshalConfigMetadataFn = original
	})
	yamlUnmarshalConfigMetadataFn = func([]byte, *map[string]any) error {
		return errors.New("simulated metadata parse failure")
	}

	cfg, err := Load(writeConfigFile(t, "transcript:\n  enabled: false\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Transcript.Enabled {
		t.Fatal("Transcript.Enabled should remain false when metadata parse fails")
	}
}

func TestProbeRawTranscriptEnabled(t *testing.T) {
	tests := []struct {
		name    string
		raw     []byte
		want    bool
		wantErr bool
	}{
		{name: "enabled true", raw: []byte("transcript:\n  enabled: true\n"), want: true},
		{name: "enabled false", raw: []byte("transcript:\n  enabled: false\n"), want: true},
		{name: "enabled missing", raw: []byte("transcript:\n  replay_limit: 3\n"), want: false},
		{name: "section missing", raw: []byte("channel: ronni\n"), want: false},
		{name: "invalid yaml", raw: []byte("transcript: ["), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := probeRawTranscriptEnabled(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("probeRawTranscriptEnabled() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("probeRawTranscriptEnabled() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("probeRawTranscriptEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadReturnsDefaultsOnParseError(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, "overlay: ["))
	if err == nil {
		t.Fatal("Load() expected parse error")
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Fatalf("Load() = %+v, want defaults on parse error", cfg)
	}
}

func TestValidateOverlay(t *testing.T) {
	tests := []struct {
		name string
		in   OverlayConfig
		want OverlayConfig
	}{
		{name: "zero values get defaults", in: OverlayConfig{}, want: OverlayConfig{Opacity: defaultOpacity, MaxMessages: defaultMaxMessages}},
		{name: "valid values kept", in: OverlayConfig{Opacity: 0.3, MaxMessages: 7}, want: OverlayConfig{Opacity: 0.3, MaxMessages: 7}},
		{name: "opacity clamped low", in: OverlayConfig{Opacity: 0.01, MaxMessages: 7}, want: OverlayConfig{Opacity: minOpacity, MaxMessages: 7}},
		{name: "opacity clamped high", in: OverlayConfig{Opacity: 3, MaxMessages: 7}, want: OverlayConfig{Opacity: 1, MaxMessages: 7}},
		{name: "negative max messages", in: OverlayConfig{Opacity: 1, MaxMessages: -4}, want: OverlayConfig{Opacity: 1, MaxMessages: defaultMaxMessages}},
		{name: "max messages clamped", in: OverlayConfig{Opacity: 1, MaxMessages: 10000}, want: OverlayConfig{Opacity: 1, MaxMessages: maxMaxMessages}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Overlay: tt.in}
			validateOverlay(&cfg)
			if cfg.Overlay != tt.want {
				t.Fatalf("validateOverlay(%+v) = %+v, want %+v", tt.in, cfg.Overlay, tt.want)
			}
		})
	}
}

func TestValidateTranscript(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "t.db")
	tests := []struct {
		name string
		in   TranscriptConfig
		want TranscriptConfig
	}{
		{name: "negative replay disabled", in: TranscriptConfig{ReplayLimit: -1}, want: TranscriptConfig{}},
		{name: "replay clamped", in: TranscriptConfig{ReplayLimit: 9999}, want: TranscriptConfig{ReplayLimit: maxReplayLimit}},
		{name: "relative path dropped", in: TranscriptConfig{Path: "rel/t.db", ReplayLimit: 3}, want: TranscriptConfig{ReplayLimit: 3}},
		{name: "absolute path kept", in: TranscriptConfig{Path: " " + abs + " ", ReplayLimit: 3}, want: TranscriptConfig{Path: abs, ReplayLimit: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Transcript: tt.in}
			validateTranscript(&cfg)
			if cfg.Transcript != tt.want {
				t.Fatalf("validateTranscript(%+v) = %+v, want %+v", tt.in, cfg.Transcript, tt.want)
			}
		})
	}
}

func TestValidateWebSocketPort(t *testing.T) {
	tests := []struct {
		port int
		want int
	}{
		{port: 0, want: 0},
		{port: 8080, want: 8080},
		{port: 65535, want: 65535},
		{port: -1, want: 0},
		{port: 65536, want: 0},
	}
	for _, tt := range tests {
		cfg := Config{WebSocketPort: tt.port}
		validateWebSocketPort(&cfg)
		if cfg.WebSocketPort != tt.want {
			t.Fatalf("validateWebSocketPort(%d) = %d, want %d", tt.port, cfg.WebSocketPort, tt.want)
		}
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := newConfigPathForSaveTest(t, "config.yaml")

	cfg := DefaultConfig()
	cfg.Channel = "ronni"
	cfg.AutoConnect = true
	cfg.ToggleHotkey = "alt+ctrl+f9"
	cfg.Transcript.Enabled = false
	cfg.WebSocketPort = 70000

	saved, err := Save(path, cfg)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if saved.ToggleHotkey != "Ctrl+Alt+F9" {
		t.Fatalf("saved.ToggleHotkey = %q, want Ctrl+Alt+F9", saved.ToggleHotkey)
	}
	if saved.WebSocketPort != 0 {
		t.Fatalf("saved.WebSocketPort = %d, want 0", saved.WebSocketPort)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(loaded, saved) {
		t.Fatalf("Load() after Save = %+v\nwant %+v", loaded, saved)
	}
	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat config: %v", err)
		}
		if info.Mode().Perm()&0o077 != 0 {
			t.Fatalf("config file permissions = %o, want owner-only", info.Mode().Perm())
		}
	}
}

func TestSaveZeroConfigWritesDefaults(t *testing.T) {
	path := newConfigPathForSaveTest(t, "config.yaml")
	saved, err := Save(path, Config{})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !reflect.DeepEqual(saved, DefaultConfig()) {
		t.Fatalf("Save(Config{}) = %+v, want defaults", saved)
	}
}

func TestSaveRejectsInvalidConfig(t *testing.T) {
	path := newConfigPathForSaveTest(t, "config.yaml")
	cfg := DefaultConfig()
	cfg.ToggleHotkey = "NotAHotkey"
	if _, err := Save(path, cfg); err == nil {
		t.Fatal("Save() expected validation error")
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("config file should not exist after failed Save, stat err = %v", err)
	}
}

func TestSaveRejectsPathOutsideConfigDir(t *testing.T) {
	newConfigPathForSaveTest(t)
	outside := filepath.Join(t.TempDir(), "config.yaml")
	if _, err := Save(outside, DefaultConfig()); err == nil {
		t.Fatal("Save() expected error for path outside config dir")
	}
	if _, err := Save("  ", DefaultConfig()); err == nil {
		t.Fatal("Save() expected error for blank path")
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	path := newConfigPathForSaveTest(t, "config.yaml")
	for range 3 {
		if _, err := Save(path, DefaultConfig()); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read config dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".config.yaml.tmp.") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestValidateConfigPathReturnsErrorWhenDefaultConfigDirResolutionFails(t *testing.T) {
	original := defaultConfigDirFn
	t.Cleanup(func() {
		defaultConfigDirFn = original
	})

	defaultConfigDirFn = func() (string, error) {
		return "", errors.New("simulated default dir error")
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if _, err := validateConfigPath(path); err == nil {
		t.Fatal("validateConfigPath() expected error when default config dir resolution fails")
	}
}

func TestReadLimitedFileRejectsTooLargeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "large-config.yaml")
	oversized := bytes.Repeat([]byte("a"), int(maxConfigFileBytes+1))
	if err := os.WriteFile(path, oversized, 0o600); err != nil {
		t.Fatalf("write oversized config: %v", err)
	}

	if _, err := readLimitedFile(path, maxConfigFileBytes); err == nil {
		t.Fatal("readLimitedFile() expected size limit error")
	}
}

func TestReadLimitedFileAllowsFileAtExactMaxBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exact-config.yaml")
	exactSize := bytes.Repeat([]byte("a"), int(maxConfigFileBytes))
	if err := os.WriteFile(path, exactSize, 0o600); err != nil {
		t.Fatalf("write exact-size config: %v", err)
	}

	raw, err := readLimitedFile(path, maxConfigFileBytes)
	if err != nil {
		t.Fatalf("readLimitedFile() error = %v", err)
	}
	if got := int64(len(raw)); got != maxConfigFileBytes {
		t.Fatalf("read bytes = %d, want %d", got, maxConfigFileBytes)
	}
}

func TestEnsureFileCreatesConfigFile(t *testing.T) {
	path := newConfigPathForSaveTest(t, "config.yaml")

	cfg, err := EnsureFile(path)
	if err != nil {
		t.Fatalf("EnsureFile() error = %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Fatalf("EnsureFile() = %+v, want defaults", cfg)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat config: %v", err)
	}
	if info.IsDir() {
		t.Fatalf("EnsureFile() created a directory instead of file")
	}
}

func TestEnsureFileUsesExistingConfigFile(t *testing.T) {
	path := newConfigPathForSaveTest(t, "config.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, []byte("channel: ronni\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := EnsureFile(path)
	if err != nil {
		t.Fatalf("EnsureFile() error = %v", err)
	}
	if cfg.Channel != "ronni" {
		t.Fatalf("cfg.Channel = %q, want ronni", cfg.Channel)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if string(raw) != "channel: ronni\n" {
		t.Fatalf("existing config was unexpectedly rewritten: %q", string(raw))
	}
}

func TestEnsureFileReturnsLoadedConfigWhenInitialSaveFails(t *testing.T) {
	newConfigPathForSaveTest(t)
	path := filepath.Join(t.TempDir(), "outside-default-config-dir.yaml")
	cfg, err := EnsureFile(path)
	if err == nil {
		t.Fatal("EnsureFile() expected save error for path outside default config dir")
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Fatalf("EnsureFile() = %+v, want defaults", cfg)
	}
}

func TestSaveConcurrentWrites(t *testing.T) {
	path := newConfigPathForSaveTest(t, "concurrent-config.yaml")

	const writers = 6
	const iterations = 30

	var wg sync.WaitGroup
	errCh := make(chan error, writers*iterations)

	for i := range writers {
		writerID := i
		wg.Go(func() {
			for j := range iterations {
				cfg := DefaultConfig()
				if (writerID+j)%2 == 0 {
					cfg.Channel = "alpha"
				} else {
					cfg.Channel = "beta"
				}
				if _, err := Save(path, cfg); err != nil {
					errCh <- err
					return
				}
			}
		})
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			t.Fatalf("Save() concurrent write error = %v", err)
		}
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() after concurrent writes error = %v", err)
	}
	if loaded.Channel != "alpha" && loaded.Channel != "beta" {
		t.Fatalf("final channel = %q, want alpha or beta", loaded.Channel)
	}
}

func TestClone(t *testing.T) {
	src := DefaultConfig()
	src.Channel = "ronni"
	dst := Clone(src)
	dst.Channel = "other"
	if src.Channel != "ronni" {
		t.Fatalf("Clone() shares state: src.Channel = %q", src.Channel)
	}
}
