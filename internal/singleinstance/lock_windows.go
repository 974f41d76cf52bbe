//go:build windows

package singleinstance

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"

	"twitch-overlay/internal/userutil"
)

// Lock holds a Windows named mutex handle. The kernel releases the mutex when
// the owning process terminates, so a crashed overlay never blocks the next
// launch.
type Lock struct {
	handle windows.Handle
}

// TryLock attempts to acquire the system-wide named mutex name.
func TryLock(name string) (*Lock, error) {
	if name == "" {
		return nil, errors.New("mutex name is required")
	}
	nameUTF16, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, fmt.Errorf("invalid mutex name %q: %w", name, err)
	}
	h, err := windows.CreateMutex(nil, true, nameUTF16)
	if errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
		if h != 0 {
			_ = windows.CloseHandle(h)
		}
		return nil, ErrAlreadyRunning
	}
	if err != nil {
		if h != 0 {
			_ = windows.CloseHandle(h)
		}
		return nil, fmt.Errorf("CreateMutex %q: %w", name, err)
	}
	return &Lock{handle: h}, nil
}

// Release closes the mutex handle. Safe on a nil receiver and idempotent.
func (l *Lock) Release() error {
	if l == nil || l.handle == 0 {
		return nil
	}
	err := windows.CloseHandle(l.handle)
	l.handle = 0
	return err
}

// DefaultMutexName returns the per-user mutex, in the Global namespace so
// that a second launch from another desktop session of the same user still
// finds it. It matches the user part of ipc.DefaultPipeName.
func DefaultMutexName() string {
	return `Global\` + userutil.EndpointName(lockBaseName)
}
