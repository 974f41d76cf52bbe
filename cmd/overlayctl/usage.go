package main

import (
	"fmt"
	"io"
)

func printUsage(w io.Writer) {
	// NOTE: Usage output is best-effort.
	_, _ = fmt.Fprintln(w, "overlayctl controls a running twitch-overlay")
	_, _ = fmt.Fprintln(w, "Usage: overlayctl <command> [channel]")
	_, _ = fmt.Fprintln(w, "Commands:")
	for _, name := range commandOrder {
		_, _ = fmt.Fprintf(w, "  %-7s %s\n", name, commandSpecs[name].summary)
	}
}
