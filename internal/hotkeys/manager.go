package hotkeys

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrNotInstalled is returned by RecordNext when no hook is installed.
var ErrNotInstalled = errors.New("keyboard hook is not installed")

// Options overrides the platform capabilities. Nil fields use the platform
// defaults.
type Options struct {
	Hook     Hook
	Injector Injector
}

// Manager owns the global keyboard hook, the toggle binding and the one-shot
// shortcut recorder.
type Manager struct {
	hook     Hook
	injector Injector
	filter   *Filter

	mu        sync.Mutex
	installed bool

	onToggle atomic.Pointer[func()]
	onRecord atomic.Pointer[func(Combination)]
}

// NewManager creates a manager backed by the platform hook and injector.
func NewManager() *Manager {
	return NewManagerWithOptions(Options{})
}

// NewManagerWithOptions creates a manager with explicit capabilities.
func NewManagerWithOptions(opts Options) *Manager {
	if opts.Hook == nil {
		opts.Hook = newPlatformHook()
	}
	if opts.Injector == nil {
		opts.Injector = newPlatformInjector()
	}
	return &Manager{
		hook:     opts.Hook,
		injector: opts.Injector,
		filter:   &Filter{},
	}
}

// Start parses spec as the toggle binding and installs the hook. Calling
// Start again swaps the binding and callback without reinstalling.
func (m *Manager) Start(spec string, onToggle func()) error {
	if onToggle == nil {
		return errors.New("onToggle callback is required")
	}
	combo, err := ParseCombination(spec)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.filter.SetToggle(combo)
	m.onToggle.Store(&onToggle)
	if m.installed {
		return nil
	}
	if err := m.hook.Install(m.handle); err != nil {
		m.onToggle.Store(nil)
		m.filter.SetToggle(Combination{})
		return fmt.Errorf("install hook for %q: %w", combo.String(), err)
	}
	m.installed = true
	return nil
}

// Stop removes the hook. It is a no-op when nothing is installed.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.installed {
		return nil
	}
	m.installed = false
	m.onToggle.Store(nil)
	m.filter.DisarmRecording()
	m.onRecord.Store(nil)
	return m.hook.Uninstall()
}

// Installed reports whether the hook is active.
func (m *Manager) Installed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.installed
}

// ActiveBinding returns the label of the toggle binding, or "" when stopped.
func (m *Manager) ActiveBinding() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.installed {
		return ""
	}
	return m.filter.Toggle().String()
}

// ShortcutText renders mods+key as a label.
func (m *Manager) ShortcutText(mods Modifier, key Key) string {
	return ShortcutText(mods, key)
}

// ExecuteShortcut replays mods+key as synthetic input. An unmappable key
// still presses and releases the modifiers.
func (m *Manager) ExecuteShortcut(mods Modifier, key Key) error {
	inputs := Sequence(mods, key)
	if _, ok := VirtualKey(key); !ok {
		slog.Debug("[hotkey] key has no virtual key, replaying modifiers only", "key", int(key))
	}
	if err := m.injector.Inject(inputs); err != nil {
		return fmt.Errorf("execute shortcut %s: %w", ShortcutText(mods, key), err)
	}
	slog.Debug("[hotkey] executed shortcut", "shortcut", ShortcutText(mods, key))
	return nil
}

// RecordNext captures the next chord pressed anywhere on the system. The
// chord is suppressed and fn receives it on its own goroutine. A later call
// replaces an earlier pending fn.
func (m *Manager) RecordNext(fn func(Combination)) error {
	if fn == nil {
		return errors.New("record callback is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.installed {
		return ErrNotInstalled
	}
	m.onRecord.Store(&fn)
	m.filter.ArmRecording()
	return nil
}

// CancelRecording drops a pending RecordNext. It reports whether one was
// pending.
func (m *Manager) CancelRecording() bool {
	m.onRecord.Store(nil)
	return m.filter.DisarmRecording()
}

// handle runs on the hook thread. Side effects leave the thread on fresh
// goroutines so the OS callback returns immediately.
func (m *Manager) handle(ev KeyEvent) bool {
	d := m.filter.Handle(ev)
	if d.Toggle {
		if fn := m.onToggle.Load(); fn != nil {
			go (*fn)()
		}
	}
	if d.HasRecorded {
		if fn := m.onRecord.Swap(nil); fn != nil {
			recorded := d.Recorded
			go (*fn)(recorded)
		}
	}
	return d.Consume
}
