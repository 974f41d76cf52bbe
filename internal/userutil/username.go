// Package userutil names per-user endpoints. The activation pipe and the
// single-instance lock both embed the local account name so that two users
// signed in to the same machine each get their own overlay.
package userutil

import (
	"os"
	"os/user"
	"regexp"
	"strings"
)

// unknownUser stands in when no account name can be determined.
const unknownUser = "unknown"

var invalidNameRune = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

var (
	getenvFn      = os.Getenv
	currentUserFn = user.Current
)

// Sanitize makes value safe inside a pipe, socket or mutex name. Runs of
// other characters collapse to one underscore; blank input becomes
// "unknown".
func Sanitize(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return unknownUser
	}
	return invalidNameRune.ReplaceAllString(value, "_")
}

// Current returns the signed-in account name. USERNAME (Windows) wins over
// USER (POSIX); the OS account database is the last resort.
func Current() string {
	for _, key := range []string{"USERNAME", "USER"} {
		if v := strings.TrimSpace(getenvFn(key)); v != "" {
			return v
		}
	}
	if u, err := currentUserFn(); err == nil {
		return u.Username
	}
	return ""
}

// EndpointName returns prefix followed by the sanitized current user, e.g.
// "twitch-overlay-alice".
func EndpointName(prefix string) string {
	return prefix + Sanitize(Current())
}
