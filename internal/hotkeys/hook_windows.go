//go:build windows

package hotkeys

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32DLL   = windows.NewLazySystemDLL("user32.dll")
	kernel32DLL = windows.NewLazySystemDLL("kernel32.dll")

	procSetWindowsHookExW   = user32DLL.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32DLL.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32DLL.NewProc("CallNextHookEx")
	procGetMessageW         = user32DLL.NewProc("GetMessageW")
	procPeekMessageW        = user32DLL.NewProc("PeekMessageW")
	procPostThreadMessageW  = user32DLL.NewProc("PostThreadMessageW")
	procGetModuleHandleW    = kernel32DLL.NewProc("GetModuleHandleW")
)

const (
	whKeyboardLL = 13

	wmKeyDown    = 0x0100
	wmKeyUp      = 0x0101
	wmSysKeyDown = 0x0104
	wmSysKeyUp   = 0x0105
	wmQuit       = 0x0012
	pmNoRemove   = 0x0000

	hookStopTimeout = 2 * time.Second
)

// kbdllHookStruct mirrors KBDLLHOOKSTRUCT.
type kbdllHookStruct struct {
	vkCode      uint32
	scanCode    uint32
	flags       uint32
	time        uint32
	dwExtraInfo uintptr
}

// point mirrors the Win32 POINT struct.
type point struct {
	x int32
	y int32
}

// winMsg mirrors the Win32 MSG struct. Field order must match the Win32
// binary layout on both 32-bit and 64-bit Windows.
type winMsg struct {
	hWnd     uintptr
	message  uint32
	wParam   uintptr
	lParam   uintptr
	time     uint32
	pt       point
	lPrivate uint32
}

// The OS calls the hook procedure without any user context, so the handler
// of the single installed hook is routed through this pointer.
var (
	activeHandler atomic.Pointer[func(KeyEvent) bool]
	hookCallback  = sync.OnceValue(func() uintptr {
		return windows.NewCallback(lowLevelKeyboardProc)
	})
)

type loopReady struct {
	threadID uint32
	err      error
}

type hookLoop struct {
	threadID uint32
	doneCh   chan struct{}
}

type windowsHook struct {
	mu     sync.Mutex
	active *hookLoop
}

func newPlatformHook() Hook { return &windowsHook{} }

func (h *windowsHook) Install(handler func(KeyEvent) bool) error {
	if handler == nil {
		return errors.New("hook handler is required")
	}
	if err := user32DLL.Load(); err != nil {
		return fmt.Errorf("user32.dll is unavailable: %w", err)
	}
	if err := kernel32DLL.Load(); err != nil {
		return fmt.Errorf("kernel32.dll is unavailable: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	activeHandler.Store(&handler)
	if h.active != nil {
		return nil
	}

	readyCh := make(chan loopReady, 1)
	doneCh := make(chan struct{})
	go runHookLoop(readyCh, doneCh)

	ready := <-readyCh
	if ready.err != nil {
		activeHandler.Store(nil)
		return fmt.Errorf("install keyboard hook: %w", ready.err)
	}
	h.active = &hookLoop{threadID: ready.threadID, doneCh: doneCh}
	return nil
}

func (h *windowsHook) Uninstall() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active == nil {
		return nil
	}
	loop := h.active
	h.active = nil
	activeHandler.Store(nil)

	stopErr := postQuit(loop.threadID)
	timer := time.NewTimer(hookStopTimeout)
	defer timer.Stop()
	select {
	case <-loop.doneCh:
	case <-timer.C:
		slog.Warn("[hotkey] DEBUG hook loop stop timed out, thread may leak", "threadID", loop.threadID)
		stopErr = errors.Join(stopErr, fmt.Errorf("keyboard hook loop stop timed out (threadID=%d)", loop.threadID))
	}
	return stopErr
}

// runHookLoop owns the hook for its whole lifetime. WH_KEYBOARD_LL callbacks
// are delivered on the installing thread while it pumps messages, so the
// goroutine stays locked to one OS thread.
func runHookLoop(readyCh chan<- loopReady, doneCh chan struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(doneCh)

	threadID := windows.GetCurrentThreadId()

	// Force creation of the thread message queue so WM_QUIT can be posted.
	var qmsg winMsg
	procPeekMessageW.Call(uintptr(unsafe.Pointer(&qmsg)), 0, 0, 0, pmNoRemove)

	module, _, _ := procGetModuleHandleW.Call(0)
	hook, _, err := procSetWindowsHookExW.Call(whKeyboardLL, hookCallback(), module, 0)
	if hook == 0 {
		if err == syscall.Errno(0) {
			err = errors.New("SetWindowsHookExW failed")
		}
		readyCh <- loopReady{err: err}
		return
	}
	defer func() {
		if res, _, unhookErr := procUnhookWindowsHookEx.Call(hook); res == 0 {
			slog.Error("[hotkey] DEBUG UnhookWindowsHookEx failed", "error", unhookErr)
		}
	}()

	readyCh <- loopReady{threadID: threadID}

	for {
		var msg winMsg
		ret, _, lastErr := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
		switch int32(ret) {
		case -1:
			slog.Warn("[hotkey] DEBUG GetMessageW returned error, exiting hook loop", "error", lastErr)
			return
		case 0:
			slog.Info("[hotkey] DEBUG hook loop received WM_QUIT, exiting normally")
			return
		}
	}
}

func lowLevelKeyboardProc(nCode, wParam, lParam uintptr) uintptr {
	if int32(nCode) >= 0 {
		if handler := activeHandler.Load(); handler != nil {
			if down, ok := keyTransition(wParam); ok {
				info := (*kbdllHookStruct)(unsafe.Pointer(lParam))
				if (*handler)(KeyEvent{VKey: VKey(info.vkCode), Down: down}) {
					return 1
				}
			}
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
	return ret
}

// keyTransition maps a keyboard hook message to a key direction.
func keyTransition(msg uintptr) (down, ok bool) {
	switch msg {
	case wmKeyDown, wmSysKeyDown:
		return true, true
	case wmKeyUp, wmSysKeyUp:
		return false, true
	}
	return false, false
}

func postQuit(threadID uint32) error {
	if threadID == 0 {
		return errors.New("cannot post WM_QUIT: threadID is 0")
	}
	res, _, err := procPostThreadMessageW.Call(uintptr(threadID), wmQuit, 0, 0)
	if res != 0 {
		return nil
	}
	if err == syscall.Errno(0) {
		return errors.New("PostThreadMessageW failed")
	}
	return err
}
