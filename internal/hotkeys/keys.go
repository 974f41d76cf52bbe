package hotkeys

import "strconv"

const (
	KeySpace        Key = 0x20
	KeyExclam       Key = 0x21
	KeyQuoteDbl     Key = 0x22
	KeyNumberSign   Key = 0x23
	KeyDollar       Key = 0x24
	KeyPercent      Key = 0x25
	KeyAmpersand    Key = 0x26
	KeyApostrophe   Key = 0x27
	KeyParenLeft    Key = 0x28
	KeyParenRight   Key = 0x29
	KeyAsterisk     Key = 0x2a
	KeyPlus         Key = 0x2b
	KeyComma        Key = 0x2c
	KeyMinus        Key = 0x2d
	KeyPeriod       Key = 0x2e
	KeySlash        Key = 0x2f
	Key0            Key = 0x30
	Key1            Key = 0x31
	Key2            Key = 0x32
	Key3            Key = 0x33
	Key4            Key = 0x34
	Key5            Key = 0x35
	Key6            Key = 0x36
	Key7            Key = 0x37
	Key8            Key = 0x38
	Key9            Key = 0x39
	KeyColon        Key = 0x3a
	KeySemicolon    Key = 0x3b
	KeyLess         Key = 0x3c
	KeyEqual        Key = 0x3d
	KeyGreater      Key = 0x3e
	KeyQuestion     Key = 0x3f
	KeyAt           Key = 0x40
	KeyA            Key = 0x41
	KeyT            Key = 0x54
	KeyZ            Key = 0x5a
	KeyBracketLeft  Key = 0x5b
	KeyBackslash    Key = 0x5c
	KeyBracketRight Key = 0x5d
	KeyAsciiCircum  Key = 0x5e
	KeyUnderscore   Key = 0x5f
	KeyQuoteLeft    Key = 0x60
	KeyBraceLeft    Key = 0x7b
	KeyBar          Key = 0x7c
	KeyBraceRight   Key = 0x7d
	KeyAsciiTilde   Key = 0x7e

	KeyEscape    Key = 0x01000000
	KeyTab       Key = 0x01000001
	KeyBackspace Key = 0x01000003
	KeyReturn    Key = 0x01000004
	KeyEnter     Key = 0x01000005
	KeyInsert    Key = 0x01000006
	KeyDelete    Key = 0x01000007
	KeyHome      Key = 0x01000010
	KeyEnd       Key = 0x01000011
	KeyLeft      Key = 0x01000012
	KeyUp        Key = 0x01000013
	KeyRight     Key = 0x01000014
	KeyDown      Key = 0x01000015
	KeyPageUp    Key = 0x01000016
	KeyPageDown  Key = 0x01000017
	KeyF1        Key = 0x01000030
	KeyF12       Key = 0x0100003b
)

const (
	vkBack      VKey = 0x08
	vkTab       VKey = 0x09
	vkReturn    VKey = 0x0D
	vkShift     VKey = 0x10
	vkControl   VKey = 0x11
	vkMenu      VKey = 0x12
	vkEscape    VKey = 0x1B
	vkSpace     VKey = 0x20
	vkPrior     VKey = 0x21
	vkNext      VKey = 0x22
	vkEnd       VKey = 0x23
	vkHome      VKey = 0x24
	vkLeft      VKey = 0x25
	vkUp        VKey = 0x26
	vkRight     VKey = 0x27
	vkDown      VKey = 0x28
	vkInsert    VKey = 0x2D
	vkDelete    VKey = 0x2E
	vkF1        VKey = 0x70
	vkLShift    VKey = 0xA0
	vkRShift    VKey = 0xA1
	vkLControl  VKey = 0xA2
	vkRControl  VKey = 0xA3
	vkLMenu     VKey = 0xA4
	vkRMenu     VKey = 0xA5
	vkOem1      VKey = 0xBA // ;:
	vkOemPlus   VKey = 0xBB
	vkOemComma  VKey = 0xBC
	vkOemMinus  VKey = 0xBD
	vkOemPeriod VKey = 0xBE
	vkOem2      VKey = 0xBF // /?
	vkOem3      VKey = 0xC0 // `~
	vkOem4      VKey = 0xDB // [{
	vkOem5      VKey = 0xDC // \|
	vkOem6      VKey = 0xDD // ]}
	vkOem7      VKey = 0xDE // '"
)

// namedKey is the label and virtual key of a key outside the letter/digit
// ranges. vk is zero for keys that cannot be injected.
type namedKey struct {
	label string
	vk    VKey
}

var namedKeys = map[Key]namedKey{
	KeySpace:     {"Space", vkSpace},
	KeyReturn:    {"Return", vkReturn},
	KeyEnter:     {"Enter", 0},
	KeyTab:       {"Tab", vkTab},
	KeyEscape:    {"Escape", vkEscape},
	KeyBackspace: {"Backspace", vkBack},
	KeyDelete:    {"Delete", vkDelete},
	KeyInsert:    {"Insert", vkInsert},
	KeyHome:      {"Home", vkHome},
	KeyEnd:       {"End", vkEnd},
	KeyPageUp:    {"Page Up", vkPrior},
	KeyPageDown:  {"Page Down", vkNext},
	KeyLeft:      {"Left", vkLeft},
	KeyRight:     {"Right", vkRight},
	KeyUp:        {"Up", vkUp},
	KeyDown:      {"Down", vkDown},

	KeyMinus:        {"-", vkOemMinus},
	KeyEqual:        {"=", vkOemPlus},
	KeyBracketLeft:  {"[", vkOem4},
	KeyBracketRight: {"]", vkOem6},
	KeyBackslash:    {`\`, vkOem5},
	KeySemicolon:    {";", vkOem1},
	KeyApostrophe:   {"'", vkOem7},
	KeyComma:        {",", vkOemComma},
	KeyPeriod:       {".", vkOemPeriod},
	KeySlash:        {"/", vkOem2},
	KeyQuoteLeft:    {"`", vkOem3},
}

// shiftedKeys maps a shifted glyph to the base key that produces it.
var shiftedKeys = map[Key]Key{
	KeyExclam:      Key1,
	KeyAt:          Key2,
	KeyNumberSign:  Key3,
	KeyDollar:      Key4,
	KeyPercent:     Key5,
	KeyAsciiCircum: Key6,
	KeyAmpersand:   Key7,
	KeyAsterisk:    Key8,
	KeyParenLeft:   Key9,
	KeyParenRight:  Key0,
	KeyUnderscore:  KeyMinus,
	KeyPlus:        KeyEqual,
	KeyBraceLeft:   KeyBracketLeft,
	KeyBraceRight:  KeyBracketRight,
	KeyBar:         KeyBackslash,
	KeyColon:       KeySemicolon,
	KeyQuoteDbl:    KeyApostrophe,
	KeyLess:        KeyComma,
	KeyGreater:     KeyPeriod,
	KeyQuestion:    KeySlash,
	KeyAsciiTilde:  KeyQuoteLeft,
}

// keyByVirtual is the reverse of the injectable entries of namedKeys.
var keyByVirtual = func() map[VKey]Key {
	out := make(map[VKey]Key, len(namedKeys)+12)
	for key, nk := range namedKeys {
		if nk.vk != 0 {
			out[nk.vk] = key
		}
	}
	for i := range 12 {
		out[vkF1+VKey(i)] = KeyF1 + Key(i)
	}
	return out
}()

func isLetter(key Key) bool { return key >= KeyA && key <= KeyZ }
func isDigit(key Key) bool  { return key >= Key0 && key <= Key9 }
func isFunction(key Key) bool {
	return key >= KeyF1 && key <= KeyF12
}

func keyLabel(key Key) string {
	switch {
	case isLetter(key), isDigit(key):
		return string(rune(key))
	case isFunction(key):
		return "F" + strconv.Itoa(int(key-KeyF1)+1)
	}
	if nk, ok := namedKeys[key]; ok {
		return nk.label
	}
	if base, ok := shiftedKeys[key]; ok {
		return keyLabel(base)
	}
	if key >= 32 && key <= 126 {
		return string(rune(key))
	}
	return "Key_" + strconv.Itoa(int(key))
}

// VirtualKey returns the Win32 virtual key that injects key. Shifted glyphs
// resolve to their base key. ok is false when key has no injectable mapping.
func VirtualKey(key Key) (vk VKey, ok bool) {
	switch {
	case isLetter(key), isDigit(key):
		return VKey(key), true
	case isFunction(key):
		return vkF1 + VKey(key-KeyF1), true
	}
	if nk, found := namedKeys[key]; found {
		return nk.vk, nk.vk != 0
	}
	if base, found := shiftedKeys[key]; found {
		return VirtualKey(base)
	}
	return 0, false
}

// KeyForVirtual is the inverse of VirtualKey for base keys.
func KeyForVirtual(vk VKey) (Key, bool) {
	k := Key(vk)
	if isLetter(k) || isDigit(k) {
		return k, true
	}
	key, ok := keyByVirtual[vk]
	return key, ok
}

// modifierForVirtual reports which modifier flag vk drives, if any.
func modifierForVirtual(vk VKey) (Modifier, bool) {
	switch vk {
	case vkLControl, vkRControl, vkControl:
		return ModControl, true
	case vkLShift, vkRShift, vkShift:
		return ModShift, true
	case vkLMenu, vkRMenu, vkMenu:
		return ModAlt, true
	}
	return 0, false
}
