package chat

import (
	"regexp"
	"strings"
)

// LineKind classifies one inbound relay line.
type LineKind int

const (
	LineIgnored LineKind = iota
	LinePing
	LinePrivmsg
	LineMalformed // carries PRIVMSG but the body could not be extracted
)

func (k LineKind) String() string {
	switch k {
	case LinePing:
		return "ping"
	case LinePrivmsg:
		return "privmsg"
	case LineMalformed:
		return "malformed"
	default:
		return "ignored"
	}
}

var (
	displayNameTagRe = regexp.MustCompile(`(?:^|;)display-name=([^;]*)`)
	colorTagRe       = regexp.MustCompile(`(?:^|;)color=([^;]*)`)
	privmsgBodyRe    = regexp.MustCompile(`^([^!]+)![^\s]*\s+PRIVMSG\s+[^\s]+\s+:(.*)$`)
)

// ParseLine classifies line and, for a well-formed PRIVMSG, extracts the
// message. Only Login, Speaker, Text and Color are filled in.
func ParseLine(line string) (LineKind, Message) {
	if strings.HasPrefix(line, pingCommand) {
		return LinePing, Message{}
	}
	if !strings.Contains(line, privmsgCommand) {
		return LineIgnored, Message{}
	}
	msg, ok := parsePrivmsg(line)
	if !ok {
		return LineMalformed, Message{}
	}
	return LinePrivmsg, msg
}

func parsePrivmsg(line string) (Message, bool) {
	var tags, body string
	switch {
	case strings.HasPrefix(line, "@"):
		i := strings.Index(line, " :")
		if i < 0 {
			return Message{}, false
		}
		tags, body = line[1:i], line[i+2:]
	case strings.HasPrefix(line, ":"):
		body = line[1:]
	default:
		i := strings.Index(line, " :")
		if i < 0 {
			return Message{}, false
		}
		body = line[i+2:]
	}

	m := privmsgBodyRe.FindStringSubmatch(body)
	if m == nil {
		return Message{}, false
	}
	login, text := m[1], m[2]

	speaker := tagValue(displayNameTagRe, tags)
	if speaker == "" {
		speaker = login
	}
	color := tagValue(colorTagRe, tags)
	if color == "" {
		color = FallbackColor(login)
	}

	return Message{
		Login:   login,
		Speaker: speaker,
		Text:    text,
		Color:   color,
	}, true
}

func tagValue(re *regexp.Regexp, tags string) string {
	if tags == "" {
		return ""
	}
	if m := re.FindStringSubmatch(tags); m != nil {
		return m[1]
	}
	return ""
}
