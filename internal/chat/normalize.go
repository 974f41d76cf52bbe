package chat

import "strings"

// NormalizeChannel trims channel, strips one leading '#' and lower-cases it.
func NormalizeChannel(channel string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(channel), "#"))
}

// NormalizeToken trims token and prepends "oauth:" unless it is already
// there, so the prefix appears exactly once.
func NormalizeToken(token string) string {
	token = strings.TrimSpace(token)
	if strings.HasPrefix(token, tokenPrefix) {
		return token
	}
	return tokenPrefix + token
}
