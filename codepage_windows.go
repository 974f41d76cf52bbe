//go:build windows

package main

import (
	"log/slog"

	"golang.org/x/sys/windows"
)

const utf8CodePage = 65001

// setConsoleUTF8 switches an attached console to UTF-8 so channel names and
// chat text in log lines render instead of turning into '?'. A GUI launch
// has no console and both calls fail harmlessly.
func setConsoleUTF8() {
	if err := windows.SetConsoleOutputCP(utf8CodePage); err != nil {
		slog.Debug("[DEBUG-CONSOLE] SetConsoleOutputCP failed", "error", err)
	}
	if err := windows.SetConsoleCP(utf8CodePage); err != nil {
		slog.Debug("[DEBUG-CONSOLE] SetConsoleCP failed", "error", err)
	}
}
