package main

import (
	"fmt"
	"strings"

	"twitch-overlay/internal/ipc"
)

type commandSpec struct {
	command string
	summary string
	// needsChannel marks commands that take exactly one channel argument.
	needsChannel bool
}

var commandOrder = []string{"show", "toggle", "join"}

var commandSpecs = map[string]commandSpec{
	"show":   {command: ipc.CommandShow, summary: "bring the overlay window to the front"},
	"toggle": {command: ipc.CommandToggle, summary: "show or hide the overlay, like the toggle hotkey"},
	"join":   {command: ipc.CommandConnect, summary: "join <channel> and show the overlay", needsChannel: true},
}

func parseCommand(args []string) (ipc.Request, error) {
	name := strings.ToLower(strings.TrimSpace(args[0]))
	spec, ok := commandSpecs[name]
	if !ok {
		return ipc.Request{}, fmt.Errorf("unknown command: %s", args[0])
	}
	rest := args[1:]

	if !spec.needsChannel {
		if len(rest) > 0 {
			return ipc.Request{}, fmt.Errorf("%s takes no arguments", name)
		}
		return ipc.Request{Command: spec.command}, nil
	}
	if len(rest) != 1 || strings.TrimSpace(rest[0]) == "" {
		return ipc.Request{}, fmt.Errorf("%s requires one channel", name)
	}
	return ipc.Request{Command: spec.command, Channel: strings.TrimSpace(rest[0])}, nil
}
