//go:build !windows

package main

// setConsoleUTF8 is a no-op: POSIX terminals take their encoding from the
// locale.
func setConsoleUTF8() {}
