package sessionlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultMaxEntries bounds the in-memory entries of a run.
	DefaultMaxEntries = 2000
	// DefaultMaxFiles bounds the log files kept in the log directory.
	DefaultMaxFiles = 30
	// DefaultNotifyInterval throttles OnUpdate calls.
	DefaultNotifyInterval = 50 * time.Millisecond

	filePrefix = "session-"
	fileSuffix = ".jsonl"
)

// Entry is one teed log record.
type Entry struct {
	// Seq increases by one per entry and never resets within a run.
	Seq     uint64    `json:"seq"`
	Time    time.Time `json:"ts"`
	Level   string    `json:"level"`
	Message string    `json:"msg"`
	// Source is the slog group, or the message's bracket tag.
	Source string `json:"source"`
}

// Options configures a Recorder. Zero values use the defaults.
type Options struct {
	MaxEntries     int
	MaxFiles       int
	NotifyInterval time.Duration
	// OnUpdate is called after an entry is recorded, at most once per
	// NotifyInterval. It carries no entry: callers fetch Entries.
	OnUpdate func()
}

// Recorder stores entries in a ring and appends them to a JSONL file.
type Recorder struct {
	mu         sync.Mutex
	file       *os.File
	path       string
	seq        uint64
	ring       ring
	lastNotify time.Time

	notifyInterval time.Duration
	onUpdate       func()
}

// Open creates dir, starts a new log file in it and trims the oldest files
// beyond MaxFiles. The current file is never trimmed.
func Open(dir string, opts Options) (*Recorder, error) {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = DefaultMaxFiles
	}
	if opts.NotifyInterval <= 0 {
		opts.NotifyInterval = DefaultNotifyInterval
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("sessionlog: create dir: %w", err)
	}

	// The pid keeps names unique across sub-second restarts.
	name := fmt.Sprintf("%s%s-%d%s", filePrefix, time.Now().Format("20060102-150405"), os.Getpid(), fileSuffix)
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("sessionlog: open file: %w", err)
	}

	r := &Recorder{
		file:           f,
		path:           path,
		ring:           newRing(opts.MaxEntries),
		notifyInterval: opts.NotifyInterval,
		onUpdate:       opts.OnUpdate,
	}
	if err := trimOldFiles(dir, name, opts.MaxFiles); err != nil {
		fmt.Fprintf(os.Stderr, "[session-log] trim old files: %v\n", err)
	}
	return r, nil
}

// Record implements Sink. Internal failures go to stderr because Record runs
// inside the log pipeline.
func (r *Recorder) Record(entry Entry) {
	var (
		writeErr error
		syncFile *os.File
		notify   bool
	)

	r.mu.Lock()
	r.seq++
	entry.Seq = r.seq
	if r.file != nil {
		raw, err := json.Marshal(entry)
		if err == nil {
			_, err = r.file.Write(append(raw, '\n'))
		}
		writeErr = err
		if err == nil && entry.Level == "error" {
			syncFile = r.file
		}
	}
	r.ring.push(entry)
	if now := time.Now(); now.Sub(r.lastNotify) >= r.notifyInterval {
		r.lastNotify = now
		notify = true
	}
	r.mu.Unlock()

	if syncFile != nil {
		// Close may win the race with this Sync during shutdown.
		if err := syncFile.Sync(); err != nil && !errors.Is(err, os.ErrClosed) {
			fmt.Fprintf(os.Stderr, "[session-log] sync: %v\n", err)
		}
	}
	if writeErr != nil {
		fmt.Fprintf(os.Stderr, "[session-log] write entry: %v\n", writeErr)
	}
	if notify && r.onUpdate != nil {
		r.onUpdate()
	}
}

// Entries returns the in-memory entries, oldest first.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ring.snapshot()
}

// Path returns the log file of this run.
func (r *Recorder) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

// Close closes the file. Entries stay readable; later records are kept in
// memory only. Safe to call multiple times.
func (r *Recorder) Close() error {
	r.mu.Lock()
	f := r.file
	r.file = nil
	r.mu.Unlock()
	if f == nil {
		return nil
	}
	return f.Close()
}

func trimOldFiles(dir, current string, maxFiles int) error {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var names []string
	for _, e := range dirEntries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix) {
			names = append(names, name)
		}
	}
	// Names start with the timestamp, so lexical order is age order.
	slices.Sort(names)

	var errs []error
	excess := len(names) - maxFiles
	for _, name := range names {
		if excess <= 0 {
			break
		}
		if name == current {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			errs = append(errs, err)
			continue
		}
		excess--
	}
	return errors.Join(errs...)
}

// ring is a fixed-capacity circular buffer. Callers hold Recorder.mu.
type ring struct {
	buf   []Entry
	head  int
	count int
}

func newRing(capacity int) ring {
	return ring{buf: make([]Entry, max(capacity, 1))}
}

func (rb *ring) push(e Entry) {
	n := len(rb.buf)
	if rb.count < n {
		rb.buf[(rb.head+rb.count)%n] = e
		rb.count++
		return
	}
	rb.buf[rb.head] = e
	rb.head = (rb.head + 1) % n
}

func (rb *ring) snapshot() []Entry {
	out := make([]Entry, rb.count)
	first := min(len(rb.buf)-rb.head, rb.count)
	copy(out, rb.buf[rb.head:rb.head+first])
	copy(out[first:], rb.buf[:rb.count-first])
	return out
}
