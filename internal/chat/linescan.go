package chat

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
)

// maxLineBytes bounds one relay line, terminator included. Longer lines are
// discarded up to their CRLF and the session continues.
const maxLineBytes = 64 * 1024

// readChunkBytes is the bufio buffer size. Lines longer than one chunk are
// assembled from several ReadSlice calls.
const readChunkBytes = 4096

// lineReader yields non-empty UTF-8 lines from a relay stream. Lines are
// CRLF-terminated; a bare LF is part of the line. A line split across reads
// stays buffered until its terminator arrives, and a trailing unterminated
// line is flushed at EOF.
type lineReader struct {
	r   *bufio.Reader
	buf []byte
	err error
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReaderSize(r, readChunkBytes)}
}

// Next returns the next non-empty line. ok is false at end of stream; Err
// then reports why.
func (lr *lineReader) Next() (line string, ok bool) {
	for lr.err == nil {
		raw, err := lr.readLine()
		if err != nil {
			lr.err = err
		}
		if len(raw) == 0 {
			continue
		}
		return strings.ToValidUTF8(string(raw), "\uFFFD"), true
	}
	return "", false
}

// Err returns the first non-EOF error.
func (lr *lineReader) Err() error {
	if errors.Is(lr.err, io.EOF) {
		return nil
	}
	return lr.err
}

// readLine returns one line without its CRLF. It returns an empty line after
// discarding an oversized one.
func (lr *lineReader) readLine() ([]byte, error) {
	lr.buf = lr.buf[:0]
	discarding := false
	dropped := 0
	prevCR := false
	for {
		chunk, err := lr.r.ReadSlice('\n')
		if discarding {
			dropped += len(chunk)
		} else if len(lr.buf)+len(chunk) > maxLineBytes {
			discarding = true
			dropped = len(lr.buf) + len(chunk)
			lr.buf = lr.buf[:0]
		} else {
			lr.buf = append(lr.buf, chunk...)
		}

		if endsWithCRLF(chunk, prevCR) {
			if discarding {
				slog.Debug("[chat] dropped oversized line", "bytes", dropped)
				return nil, nil
			}
			return lr.buf[:len(lr.buf)-len(crlf)], nil
		}
		if len(chunk) > 0 {
			prevCR = chunk[len(chunk)-1] == '\r'
		}

		switch {
		case err == nil, errors.Is(err, bufio.ErrBufferFull):
			continue
		case discarding:
			slog.Debug("[chat] dropped oversized line", "bytes", dropped)
			return nil, err
		default:
			return lr.buf, err
		}
	}
}

var crlf = []byte(lineEnd)

func endsWithCRLF(chunk []byte, prevCR bool) bool {
	if bytes.HasSuffix(chunk, crlf) {
		return true
	}
	return len(chunk) == 1 && chunk[0] == '\n' && prevCR
}
