//go:build !windows

package ipc

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"
)

func pipePath(name string) string {
	return filepath.Join(os.TempDir(), name+".sock")
}

func trustedPipeName(value string) bool {
	if !filepath.IsAbs(value) || !strings.HasSuffix(value, ".sock") {
		return false
	}
	return strings.HasPrefix(filepath.Base(value), pipeBaseName)
}

func dialPipe(pipeName string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("unix", pipeName, timeout)
}

// listenPipe listens on a unix socket readable only by the current user.
// A stale socket left by a crashed instance is removed first; a live one is
// reported as in use.
func listenPipe(pipeName string) (net.Listener, error) {
	if _, err := os.Lstat(pipeName); err == nil {
		if conn, dialErr := net.DialTimeout("unix", pipeName, 200*time.Millisecond); dialErr == nil {
			_ = conn.Close()
			return nil, fmt.Errorf("socket %s is in use", pipeName)
		}
		if err := os.Remove(pipeName); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale socket: %w", err)
		}
	}
	ln, err := net.Listen("unix", pipeName)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(pipeName, 0o600); err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}
	return ln, nil
}
