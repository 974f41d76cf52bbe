package hotkeys

import (
	"errors"
)

// ErrUnsupported is returned by the hook and injector on platforms without a
// global keyboard intercept.
var ErrUnsupported = errors.New("global keyboard hooks are supported only on Windows")

// KeyInput is one synthetic key transition.
type KeyInput struct {
	VKey VKey
	Up   bool
}

// Injector dispatches synthetic key transitions into the OS input stream.
type Injector interface {
	Inject(inputs []KeyInput) error
}

// Hook installs a process-wide low-level keyboard intercept. handler runs
// synchronously for every keyboard event on the system and returns true to
// suppress the event. Install on an installed hook and Uninstall on an
// absent one are no-ops.
type Hook interface {
	Install(handler func(KeyEvent) bool) error
	Uninstall() error
}

// Sequence returns the inputs that replay mods+key: modifiers down in
// Ctrl, Shift, Alt order, the key pressed and released, then modifiers up in
// reverse order. The key steps are omitted when key has no virtual key.
func Sequence(mods Modifier, key Key) []KeyInput {
	type step struct {
		mod Modifier
		vk  VKey
	}
	order := []step{{ModControl, vkControl}, {ModShift, vkShift}, {ModAlt, vkMenu}}

	inputs := make([]KeyInput, 0, 8)
	for _, s := range order {
		if mods&s.mod != 0 {
			inputs = append(inputs, KeyInput{VKey: s.vk})
		}
	}
	if vk, ok := VirtualKey(key); ok {
		inputs = append(inputs, KeyInput{VKey: vk}, KeyInput{VKey: vk, Up: true})
	}
	for i := len(order) - 1; i >= 0; i-- {
		if mods&order[i].mod != 0 {
			inputs = append(inputs, KeyInput{VKey: order[i].vk, Up: true})
		}
	}
	return inputs
}
