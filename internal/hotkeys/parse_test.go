package hotkeys

import (
	"strings"
	"testing"
)

func TestParseCombinationSuccess(t *testing.T) {
	tests := []struct {
		name     string
		spec     string
		wantText string
		wantMods Modifier
		wantKey  Key
	}{
		{
			name:     "default toggle",
			spec:     DefaultToggleBinding,
			wantText: "Ctrl+Shift+T",
			wantMods: ModControl | ModShift,
			wantKey:  KeyT,
		},
		{
			name:     "lowercase function key",
			spec:     "ctrl+shift+f12",
			wantText: "Ctrl+Shift+F12",
			wantMods: ModControl | ModShift,
			wantKey:  KeyF12,
		},
		{
			name:     "whitespace padded",
			spec:     "  Ctrl + A  ",
			wantText: "Ctrl+A",
			wantMods: ModControl,
			wantKey:  KeyA,
		},
		{
			name:     "digit key",
			spec:     "Alt+3",
			wantText: "Alt+3",
			wantMods: ModAlt,
			wantKey:  Key3,
		},
		{
			name:     "Control alias and named key",
			spec:     "Control+Space",
			wantText: "Ctrl+Space",
			wantMods: ModControl,
			wantKey:  KeySpace,
		},
		{
			name:     "Esc alias",
			spec:     "Ctrl+Esc",
			wantText: "Ctrl+Escape",
			wantMods: ModControl,
			wantKey:  KeyEscape,
		},
		{
			name:     "Enter means Return",
			spec:     "Ctrl+Enter",
			wantText: "Ctrl+Return",
			wantMods: ModControl,
			wantKey:  KeyReturn,
		},
		{
			name:     "PageUp without space",
			spec:     "Ctrl+PageUp",
			wantText: "Ctrl+Page Up",
			wantMods: ModControl,
			wantKey:  KeyPageUp,
		},
		{
			name:     "backtick",
			spec:     "Ctrl+`",
			wantText: "Ctrl+`",
			wantMods: ModControl,
			wantKey:  KeyQuoteLeft,
		},
		{
			name:     "Grave alias",
			spec:     "Ctrl+Grave",
			wantText: "Ctrl+`",
			wantMods: ModControl,
			wantKey:  KeyQuoteLeft,
		},
		{
			name:     "shifted glyph stored as base key",
			spec:     "Shift+!",
			wantText: "Shift+1",
			wantMods: ModShift,
			wantKey:  Key1,
		},
		{
			name:     "duplicate modifiers collapse",
			spec:     "Ctrl+Ctrl+A",
			wantText: "Ctrl+A",
			wantMods: ModControl,
			wantKey:  KeyA,
		},
		{
			name:     "modifier order is canonical",
			spec:     "Alt+Shift+Ctrl+Z",
			wantText: "Ctrl+Shift+Alt+Z",
			wantMods: ModControl | ModShift | ModAlt,
			wantKey:  KeyZ,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			combo, err := ParseCombination(tt.spec)
			if err != nil {
				t.Fatalf("ParseCombination(%q) returned unexpected error: %v", tt.spec, err)
			}
			if combo.String() != tt.wantText {
				t.Errorf("String() = %q, want %q", combo.String(), tt.wantText)
			}
			if combo.Modifiers() != tt.wantMods {
				t.Errorf("Modifiers() = 0x%X, want 0x%X", combo.Modifiers(), tt.wantMods)
			}
			if combo.Key() != tt.wantKey {
				t.Errorf("Key() = 0x%X, want 0x%X", combo.Key(), tt.wantKey)
			}
		})
	}
}

func TestParseCombinationErrors(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		wantSub string
	}{
		{name: "empty spec", spec: "", wantSub: "empty"},
		{name: "whitespace-only spec", spec: "   ", wantSub: "empty"},
		{name: "modifier only", spec: "Ctrl", wantSub: "modifiers and key"},
		{name: "unknown modifier", spec: "Meta+A", wantSub: "unknown modifier"},
		{name: "missing key token", spec: "Ctrl+", wantSub: "missing hotkey key token"},
		{name: "unknown key name", spec: "Ctrl+Launch", wantSub: "unknown key"},
		{name: "leading plus", spec: "+A", wantSub: "unknown modifier"},
		{name: "function key out of range", spec: "Ctrl+F24", wantSub: "unknown key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCombination(tt.spec)
			if err == nil {
				t.Fatalf("ParseCombination(%q) expected error, got nil", tt.spec)
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.wantSub)
			}
		})
	}
}

func TestNewCombinationDropsUnknownModifierBits(t *testing.T) {
	combo := NewCombination(ModControl|0x10000000, KeyA)
	if combo.Modifiers() != ModControl {
		t.Fatalf("Modifiers() = 0x%X, want 0x%X", combo.Modifiers(), ModControl)
	}
	if (Combination{}).IsZero() != true {
		t.Fatal("zero Combination should report IsZero")
	}
	if combo.IsZero() {
		t.Fatal("Ctrl+A should not report IsZero")
	}
}
