package hotkeys

import "sync/atomic"

// KeyEvent is one physical (or injected) key transition seen by the hook.
type KeyEvent struct {
	VKey VKey
	Down bool
}

// Decision is the outcome of Filter.Handle for one event.
type Decision struct {
	// Consume suppresses the event: no other application sees it.
	Consume bool
	// Toggle reports that the toggle combination was pressed.
	Toggle bool
	// Recorded holds the captured chord when HasRecorded is true.
	Recorded    Combination
	HasRecorded bool
}

type toggleBinding struct {
	combo Combination
	vk    VKey
}

// Filter is the synchronous decision function behind the keyboard hook.
//
// The modifier flags are owned by the goroutine that calls Handle (the hook
// thread) and are never shared. The toggle binding and the recorder flag are
// written from other goroutines and are therefore atomic.
type Filter struct {
	ctrl  bool
	shift bool
	alt   bool

	toggle    atomic.Pointer[toggleBinding]
	recording atomic.Bool
}

// NewFilter returns a filter that recognizes toggle. toggle must be
// injectable (see VirtualKey); otherwise no toggle is ever reported.
func NewFilter(toggle Combination) *Filter {
	f := &Filter{}
	f.SetToggle(toggle)
	return f
}

// SetToggle replaces the toggle combination.
func (f *Filter) SetToggle(toggle Combination) {
	vk, ok := VirtualKey(toggle.Key())
	if !ok {
		f.toggle.Store(nil)
		return
	}
	f.toggle.Store(&toggleBinding{combo: toggle, vk: vk})
}

// Toggle returns the current toggle combination.
func (f *Filter) Toggle() Combination {
	if tb := f.toggle.Load(); tb != nil {
		return tb.combo
	}
	return Combination{}
}

// ArmRecording makes the next non-modifier key-down be captured and consumed.
func (f *Filter) ArmRecording() { f.recording.Store(true) }

// DisarmRecording cancels a pending capture. It reports whether one was armed.
func (f *Filter) DisarmRecording() bool { return f.recording.Swap(false) }

// Modifiers returns the modifier mask as last observed. Only meaningful on
// the goroutine that calls Handle.
func (f *Filter) Modifiers() Modifier {
	var mods Modifier
	if f.ctrl {
		mods |= ModControl
	}
	if f.shift {
		mods |= ModShift
	}
	if f.alt {
		mods |= ModAlt
	}
	return mods
}

// Handle updates modifier state from ev and decides whether to suppress it.
// It never blocks and performs no I/O.
func (f *Filter) Handle(ev KeyEvent) Decision {
	if mod, ok := modifierForVirtual(ev.VKey); ok {
		f.setModifier(mod, ev.Down)
		return Decision{}
	}
	if !ev.Down {
		return Decision{}
	}

	if f.recording.Load() {
		if key, ok := KeyForVirtual(ev.VKey); ok && f.recording.CompareAndSwap(true, false) {
			return Decision{
				Consume:     true,
				Recorded:    NewCombination(f.Modifiers(), key),
				HasRecorded: true,
			}
		}
	}

	tb := f.toggle.Load()
	if tb != nil && ev.VKey == tb.vk && f.Modifiers() == tb.combo.Modifiers() {
		return Decision{Consume: true, Toggle: true}
	}
	return Decision{}
}

func (f *Filter) setModifier(mod Modifier, down bool) {
	switch mod {
	case ModControl:
		f.ctrl = down
	case ModShift:
		f.shift = down
	case ModAlt:
		f.alt = down
	}
}
