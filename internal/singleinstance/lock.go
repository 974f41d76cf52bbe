// Package singleinstance keeps one overlay running per user. A second
// launch finds the lock taken and forwards its request to the running
// overlay over the activation pipe instead of opening another window.
package singleinstance

import "errors"

// ErrAlreadyRunning is returned by TryLock when another overlay holds the lock.
var ErrAlreadyRunning = errors.New("another instance is already running")

// lockBaseName prefixes every per-user lock name.
const lockBaseName = "twitch-overlay-"
