package hotkeys

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultToggleBinding is the chord that shows and hides the overlay.
const DefaultToggleBinding = "Ctrl+Shift+T"

var modifierByName = map[string]Modifier{
	"CTRL":    ModControl,
	"CONTROL": ModControl,
	"SHIFT":   ModShift,
	"ALT":     ModAlt,
}

// keyByName indexes namedKeys by upper-cased label plus a few aliases.
var keyByName = func() map[string]Key {
	out := make(map[string]Key, len(namedKeys)+8)
	for key, nk := range namedKeys {
		out[strings.ToUpper(nk.label)] = key
	}
	// Enter is the keypad key and cannot be injected; users mean Return.
	out["ENTER"] = KeyReturn
	out["ESC"] = KeyEscape
	out["PAGEUP"] = KeyPageUp
	out["PGUP"] = KeyPageUp
	out["PAGEDOWN"] = KeyPageDown
	out["PGDN"] = KeyPageDown
	out["DEL"] = KeyDelete
	out["INS"] = KeyInsert
	out["BACKQUOTE"] = KeyQuoteLeft
	out["GRAVE"] = KeyQuoteLeft
	return out
}()

// ParseCombination parses a binding like "Ctrl+Shift+T".
// At least one modifier is required and the key must be injectable.
func ParseCombination(spec string) (Combination, error) {
	raw := strings.TrimSpace(spec)
	if raw == "" {
		return Combination{}, fmt.Errorf("hotkey spec is empty")
	}

	parts := strings.Split(raw, "+")
	// "Ctrl++" names the plus key; fold the trailing empty tokens back.
	if len(parts) >= 3 && parts[len(parts)-1] == "" && parts[len(parts)-2] == "" {
		parts = append(parts[:len(parts)-2], "+")
	}
	if len(parts) < 2 {
		return Combination{}, fmt.Errorf("hotkey must include modifiers and key: %s", raw)
	}

	var modifiers Modifier
	for _, token := range parts[:len(parts)-1] {
		name := strings.ToUpper(strings.TrimSpace(token))
		mod, ok := modifierByName[name]
		if !ok {
			return Combination{}, fmt.Errorf("unknown modifier %q in hotkey %q", token, raw)
		}
		modifiers |= mod
	}

	key, err := parseKeyToken(parts[len(parts)-1])
	if err != nil {
		return Combination{}, err
	}
	if _, ok := VirtualKey(key); !ok {
		return Combination{}, fmt.Errorf("key %q in hotkey %q cannot be intercepted", keyLabel(key), raw)
	}

	return NewCombination(modifiers, key), nil
}

func parseKeyToken(raw string) (Key, error) {
	token := strings.TrimSpace(raw)
	if token == "" {
		return 0, fmt.Errorf("missing hotkey key token")
	}
	upper := strings.ToUpper(token)

	if len(upper) == 1 {
		key := Key(upper[0])
		if isLetter(key) || isDigit(key) {
			return key, nil
		}
		if base, ok := shiftedKeys[key]; ok {
			return base, nil
		}
		if _, ok := namedKeys[key]; ok {
			return key, nil
		}
	}

	if strings.HasPrefix(upper, "F") && len(upper) <= 3 {
		if n, err := strconv.Atoi(upper[1:]); err == nil && n >= 1 && n <= 12 {
			return KeyF1 + Key(n-1), nil
		}
	}
	if key, ok := keyByName[upper]; ok {
		return key, nil
	}
	if key, ok := keyByName[strings.ReplaceAll(upper, " ", "")]; ok {
		return key, nil
	}

	return 0, fmt.Errorf("unknown key %q in hotkey spec", raw)
}
