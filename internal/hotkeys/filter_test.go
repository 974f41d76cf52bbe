package hotkeys

import "testing"

func down(vk VKey) KeyEvent { return KeyEvent{VKey: vk, Down: true} }
func up(vk VKey) KeyEvent   { return KeyEvent{VKey: vk} }

func newToggleFilter(t *testing.T) *Filter {
	t.Helper()
	combo, err := ParseCombination(DefaultToggleBinding)
	if err != nil {
		t.Fatalf("ParseCombination: %v", err)
	}
	return NewFilter(combo)
}

// feed runs events through f and returns the decisions plus the events a
// downstream listener would have observed.
func feed(f *Filter, events ...KeyEvent) ([]Decision, []KeyEvent) {
	var decisions []Decision
	var passed []KeyEvent
	for _, ev := range events {
		d := f.Handle(ev)
		decisions = append(decisions, d)
		if !d.Consume {
			passed = append(passed, ev)
		}
	}
	return decisions, passed
}

func countToggles(decisions []Decision) int {
	n := 0
	for _, d := range decisions {
		if d.Toggle {
			n++
		}
	}
	return n
}

func TestFilterToggle(t *testing.T) {
	const vkT = VKey('T')

	tests := []struct {
		name        string
		events      []KeyEvent
		wantToggles int
		wantSawT    bool
	}{
		{
			name:        "ctrl shift T toggles and is suppressed",
			events:      []KeyEvent{down(vkLControl), down(vkLShift), down(vkT)},
			wantToggles: 1,
		},
		{
			name:        "right-hand modifiers count",
			events:      []KeyEvent{down(vkRControl), down(vkRShift), down(vkT)},
			wantToggles: 1,
		},
		{
			name:     "alt held blocks toggle",
			events:   []KeyEvent{down(vkLMenu), down(vkLControl), down(vkLShift), down(vkT)},
			wantSawT: true,
		},
		{
			name:     "ctrl only passes through",
			events:   []KeyEvent{down(vkLControl), down(vkT)},
			wantSawT: true,
		},
		{
			name:     "released shift no longer counts",
			events:   []KeyEvent{down(vkLControl), down(vkLShift), up(vkLShift), down(vkT)},
			wantSawT: true,
		},
		{
			name:     "different key passes through",
			events:   []KeyEvent{down(vkLControl), down(vkLShift), down(VKey('R'))},
			wantSawT: false,
		},
		{
			name:        "auto-repeat toggles on every key-down",
			events:      []KeyEvent{down(vkLControl), down(vkLShift), down(vkT), down(vkT)},
			wantToggles: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newToggleFilter(t)
			decisions, passed := feed(f, tt.events...)
			if got := countToggles(decisions); got != tt.wantToggles {
				t.Fatalf("toggles = %d, want %d", got, tt.wantToggles)
			}
			sawT := false
			for _, ev := range passed {
				if ev.VKey == vkT && ev.Down {
					sawT = true
				}
			}
			if sawT != tt.wantSawT {
				t.Fatalf("downstream saw T key-down = %v, want %v", sawT, tt.wantSawT)
			}
		})
	}
}

func TestFilterModifierEventsAlwaysPass(t *testing.T) {
	f := newToggleFilter(t)
	_, passed := feed(f, down(vkLControl), down(vkLShift), down(VKey('T')), up(VKey('T')), up(vkLShift), up(vkLControl))
	// Everything except the T key-down reaches downstream listeners.
	if len(passed) != 5 {
		t.Fatalf("passed %d events, want 5: %+v", len(passed), passed)
	}
	if f.Modifiers() != 0 {
		t.Fatalf("Modifiers() after release = 0x%X, want 0", f.Modifiers())
	}
}

func TestFilterModifiersTracksGenericVirtualKeys(t *testing.T) {
	f := &Filter{}
	feed(f, down(vkControl), down(vkMenu))
	if want := ModControl | ModAlt; f.Modifiers() != want {
		t.Fatalf("Modifiers() = 0x%X, want 0x%X", f.Modifiers(), want)
	}
}

func TestFilterRecording(t *testing.T) {
	f := newToggleFilter(t)
	f.ArmRecording()

	decisions, passed := feed(f, down(vkLControl), down(VKey('K')), up(VKey('K')), down(VKey('K')))
	if !decisions[1].HasRecorded || !decisions[1].Consume {
		t.Fatalf("second event decision = %+v, want recorded and consumed", decisions[1])
	}
	if got := decisions[1].Recorded.String(); got != "Ctrl+K" {
		t.Fatalf("recorded = %q, want %q", got, "Ctrl+K")
	}
	if decisions[3].HasRecorded || decisions[3].Consume {
		t.Fatalf("recording must be one-shot, got %+v", decisions[3])
	}
	if len(passed) != 3 {
		t.Fatalf("passed %d events, want 3", len(passed))
	}
}

func TestFilterRecordingTakesPrecedenceOverToggle(t *testing.T) {
	f := newToggleFilter(t)
	f.ArmRecording()
	decisions, _ := feed(f, down(vkLControl), down(vkLShift), down(VKey('T')))
	last := decisions[2]
	if !last.HasRecorded || last.Toggle {
		t.Fatalf("decision = %+v, want recorded without toggle", last)
	}
}

func TestFilterRecordingSkipsUnknownKeys(t *testing.T) {
	f := &Filter{}
	f.ArmRecording()
	decisions, _ := feed(f, down(0xFF), down(VKey('Q')))
	if decisions[0].HasRecorded || decisions[0].Consume {
		t.Fatalf("unknown key decision = %+v, want pass-through", decisions[0])
	}
	if !decisions[1].HasRecorded || decisions[1].Recorded.Key() != Key('Q') {
		t.Fatalf("expected Q to be recorded after unknown key, got %+v", decisions[1])
	}
}

func TestFilterDisarmRecording(t *testing.T) {
	f := &Filter{}
	if f.DisarmRecording() {
		t.Fatal("DisarmRecording on idle filter reported pending capture")
	}
	f.ArmRecording()
	if !f.DisarmRecording() {
		t.Fatal("DisarmRecording after ArmRecording reported nothing pending")
	}
	decisions, _ := feed(f, down(VKey('A')))
	if decisions[0].HasRecorded {
		t.Fatal("disarmed filter recorded a key")
	}
}

func TestFilterUnmappableToggleNeverFires(t *testing.T) {
	f := NewFilter(NewCombination(ModControl, KeyEnter))
	if !f.Toggle().IsZero() {
		t.Fatalf("Toggle() = %v, want zero for unmappable key", f.Toggle())
	}
	decisions, _ := feed(f, down(vkLControl), down(vkReturn))
	if countToggles(decisions) != 0 {
		t.Fatal("unmappable toggle fired")
	}
}
