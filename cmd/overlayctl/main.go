// Command overlayctl sends activation commands to a running twitch-overlay:
// show the window, toggle it, or join a channel.
package main

import (
	"fmt"
	"io"
	"os"

	"twitch-overlay/internal/ipc"
)

// sendFn is a test seam for the pipe client.
var sendFn = ipc.Send

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stdout)
		return 0
	}

	req, err := parseCommand(args)
	if err != nil {
		writeLine(stderr, err.Error())
		return 2
	}

	// An empty name resolves TWITCH_OVERLAY_PIPE or the per-user default.
	resp, err := sendFn("", req)
	if err != nil {
		if ipc.IsConnectionError(err) {
			writeLine(stderr, "no overlay running")
			return 1
		}
		writeLine(stderr, err.Error())
		return 1
	}
	if !resp.OK {
		writeLine(stderr, resp.Error)
		return 1
	}
	return 0
}

func writeLine(w io.Writer, message string) {
	// Output is best-effort; the exit code carries the result.
	_, _ = fmt.Fprintln(w, message)
}
