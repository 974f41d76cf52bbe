// Package transcript keeps a local sqlite log of received chat messages so
// the overlay can replay recent history when it joins a channel.
package transcript

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"twitch-overlay/internal/chat"
)

const schema = `
CREATE TABLE IF NOT EXISTS chat_messages (
	id TEXT PRIMARY KEY,
	channel TEXT NOT NULL,
	login TEXT NOT NULL,
	speaker TEXT NOT NULL,
	message TEXT NOT NULL,
	color TEXT NOT NULL,
	received_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_channel_received ON chat_messages(channel, received_at);
`

// ErrClosed is returned by operations on a closed Store.
var ErrClosed = errors.New("transcript: store is closed")

// Store is a sqlite-backed message log. It is safe for concurrent use.
type Store struct {
	db        *sql.DB
	closeOnce sync.Once
	closed    chan struct{}
}

// Open opens (creating if needed) the transcript database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("transcript: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("transcript: create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("transcript: open database: %w", err)
	}
	// One writer keeps sqlite from returning SQLITE_BUSY between our own
	// connections.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("transcript: %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("transcript: create tables: %w", err)
	}

	return &Store{db: db, closed: make(chan struct{})}, nil
}

// Append stores msg. A message whose ID is already stored is ignored.
func (s *Store) Append(ctx context.Context, msg chat.Message) error {
	if s.isClosed() {
		return ErrClosed
	}
	if msg.ID == "" {
		return errors.New("transcript: message ID is required")
	}
	const query = `INSERT OR IGNORE INTO chat_messages
		(id, channel, login, speaker, message, color, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.Channel, msg.Login, msg.Speaker, msg.Text, msg.Color, msg.ReceivedAt.UnixNano(),
	); err != nil {
		return fmt.Errorf("transcript: append %s: %w", msg.ID, err)
	}
	return nil
}

// Recent returns up to limit of the newest messages of channel, oldest
// first. A non-positive limit returns nothing.
func (s *Store) Recent(ctx context.Context, channel string, limit int) ([]chat.Message, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	if limit <= 0 {
		return nil, nil
	}
	const query = `SELECT id, channel, login, speaker, message, color, received_at
		FROM chat_messages
		WHERE channel = ?
		ORDER BY received_at DESC, rowid DESC
		LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, channel, limit)
	if err != nil {
		return nil, fmt.Errorf("transcript: query recent: %w", err)
	}
	defer rows.Close()

	var out []chat.Message
	for rows.Next() {
		var (
			msg        chat.Message
			receivedAt int64
		)
		if err := rows.Scan(&msg.ID, &msg.Channel, &msg.Login, &msg.Speaker, &msg.Text, &msg.Color, &receivedAt); err != nil {
			return nil, fmt.Errorf("transcript: scan row: %w", err)
		}
		msg.ReceivedAt = time.Unix(0, receivedAt)
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("transcript: iterate rows: %w", err)
	}
	slices.Reverse(out)
	return out, nil
}

// Count returns the number of stored messages for channel.
func (s *Store) Count(ctx context.Context, channel string) (int, error) {
	if s.isClosed() {
		return 0, ErrClosed
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_messages WHERE channel = ?`, channel).Scan(&n); err != nil {
		return 0, fmt.Errorf("transcript: count: %w", err)
	}
	return n, nil
}

// Close closes the database. Safe to call multiple times.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = s.db.Close()
	})
	return err
}

func (s *Store) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}
