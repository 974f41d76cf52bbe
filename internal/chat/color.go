package chat

import (
	"strings"
	"unicode/utf8"
)

// Palette holds the relay's default name colors, in the order the fallback
// index selects them.
var Palette = [15]string{
	"#FF0000", "#0000FF", "#00FF00", "#B22222", "#FF7F50",
	"#9ACD32", "#FF4500", "#2E8B57", "#DAA520", "#D2691E",
	"#5F9EA0", "#1E90FF", "#FF69B4", "#8A2BE2", "#00FF7F",
}

// FallbackColor picks a palette color for a user who has not chosen one.
// The index is the sum of the first and last code points of the lower-cased
// login, modulo the palette size. An empty login maps to Palette[0].
func FallbackColor(login string) string {
	name := strings.ToLower(login)
	if name == "" {
		return Palette[0]
	}
	first, _ := utf8.DecodeRuneInString(name)
	last, _ := utf8.DecodeLastRuneInString(name)
	return Palette[(int(first)+int(last))%len(Palette)]
}
