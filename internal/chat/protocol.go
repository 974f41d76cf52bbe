package chat

import (
	"strings"
	"time"
)

const (
	// DefaultAddress is the plaintext relay endpoint.
	DefaultAddress = "irc.chat.twitch.tv:6667"

	// AnonymousNick is the read-only login the relay accepts without a
	// registered account.
	AnonymousNick = "justinfan12345"

	// KeepAliveInterval is how often the client pings the relay.
	KeepAliveInterval = 60 * time.Second

	tokenPrefix = "oauth:"
	lineEnd     = "\r\n"

	capRequestLine = "CAP REQ :twitch.tv/tags twitch.tv/commands"
	pingLine       = "PING :tmi.twitch.tv"
	pongLine       = "PONG :tmi.twitch.tv"

	pingCommand    = "PING"
	privmsgCommand = "PRIVMSG"
)

// handshake returns the lines sent right after the transport connects.
// token must already be normalized.
func handshake(channel, token string) []string {
	return []string{
		capRequestLine,
		"PASS " + token,
		"NICK " + AnonymousNick,
		"JOIN #" + channel,
	}
}

// redactLine hides the credential on PASS lines before they reach the log.
func redactLine(line string) string {
	if strings.HasPrefix(line, "PASS ") {
		return "PASS ***"
	}
	return line
}
