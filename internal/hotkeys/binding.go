package hotkeys

import "strings"

// Modifier is a keyboard modifier bitmask. The bit values match the ones the
// overlay settings UI records, so masks received from the frontend can be
// used without translation.
type Modifier uint32

const (
	ModShift   Modifier = 0x02000000
	ModControl Modifier = 0x04000000
	ModAlt     Modifier = 0x08000000
)

// Key is a portable key code. Printable keys use their ASCII value and named
// keys live in the 0x01000000 block (see keys.go).
type Key int

// VKey represents a Win32 virtual-key code.
type VKey uint32

// Combination describes a modifier+key chord.
// Construct via NewCombination or ParseCombination.
type Combination struct {
	modifiers Modifier
	key       Key
}

// NewCombination returns the combination of mods and key. Modifier bits other
// than Ctrl, Shift and Alt are dropped.
func NewCombination(mods Modifier, key Key) Combination {
	return Combination{modifiers: mods & (ModControl | ModShift | ModAlt), key: key}
}

// Modifiers returns the modifier bitmask.
func (c Combination) Modifiers() Modifier { return c.modifiers }

// Key returns the key code.
func (c Combination) Key() Key { return c.key }

// String returns the human-readable label, e.g. "Ctrl+Shift+T".
func (c Combination) String() string { return ShortcutText(c.modifiers, c.key) }

// IsZero reports whether c carries neither modifiers nor a key.
func (c Combination) IsZero() bool { return c.modifiers == 0 && c.key == 0 }

// modifierNames renders the active modifiers of mods in Ctrl, Shift, Alt order.
func modifierNames(mods Modifier) []string {
	parts := make([]string, 0, 4)
	if mods&ModControl != 0 {
		parts = append(parts, "Ctrl")
	}
	if mods&ModShift != 0 {
		parts = append(parts, "Shift")
	}
	if mods&ModAlt != 0 {
		parts = append(parts, "Alt")
	}
	return parts
}

// ShortcutText renders mods and key as a label such as "Ctrl+Shift+T".
// Shifted symbols render as their base key because combinations are stored
// as base key plus Shift. Unknown non-printable keys render as "Key_<code>".
func ShortcutText(mods Modifier, key Key) string {
	parts := modifierNames(mods)
	parts = append(parts, keyLabel(key))
	return strings.Join(parts, "+")
}
