// Package sessionlog keeps the warnings and errors of one overlay run: a
// slog handler tees them into a Recorder that holds the newest entries in
// memory and appends every entry to a JSONL file.
package sessionlog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
)

// Sink receives teed records. Record must not log through the handler that
// feeds it.
type Sink interface {
	Record(entry Entry)
}

// TeeHandler forwards every record to base and copies records at or above
// minLevel to sink.
type TeeHandler struct {
	base     slog.Handler
	sink     Sink
	minLevel slog.Level
	group    string
}

// NewTeeHandler wraps base. A nil sink makes the handler a plain pass-through.
func NewTeeHandler(base slog.Handler, minLevel slog.Level, sink Sink) *TeeHandler {
	return &TeeHandler{base: base, sink: sink, minLevel: minLevel}
}

// Enabled defers to base: the tee threshold never widens what is logged.
func (h *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle writes record to base, then tees it. The base error is returned so
// slog can report it.
func (h *TeeHandler) Handle(ctx context.Context, record slog.Record) error {
	err := h.base.Handle(ctx, record)
	if h.sink == nil || record.Level < h.minLevel {
		return err
	}

	entry := Entry{
		Time:    record.Time,
		Level:   levelName(record.Level),
		Message: record.Message,
		Source:  h.group,
	}
	if entry.Source == "" {
		entry.Source = tagOf(record.Message)
	}
	func() {
		defer func() {
			if r := recover(); r != nil {
				// stderr, not slog: logging here would re-enter this handler.
				fmt.Fprintf(os.Stderr, "[session-log] sink panicked: %v\n%s\n", r, debug.Stack())
			}
		}()
		h.sink.Record(entry)
	}()
	return err
}

// WithAttrs keeps the sink, threshold and group.
func (h *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.base = h.base.WithAttrs(attrs)
	return &clone
}

// WithGroup appends name to the dot-separated group reported as Source.
func (h *TeeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.base = h.base.WithGroup(name)
	if h.group != "" {
		clone.group = h.group + "." + name
	} else {
		clone.group = name
	}
	return &clone
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}

// tagOf returns the bracket tag that starts msg, e.g. "chat" for
// "[chat] connect failed", or "" when msg has none.
func tagOf(msg string) string {
	if !strings.HasPrefix(msg, "[") {
		return ""
	}
	end := strings.IndexByte(msg, ']')
	if end <= 1 {
		return ""
	}
	return msg[1:end]
}
