//go:build windows

package hotkeys

import (
	"errors"
	"fmt"
	"syscall"
	"unsafe"
)

var procSendInput = user32DLL.NewProc("SendInput")

const (
	inputKeyboard  = 1
	keyEventFKeyUp = 0x0002
)

// keybdInput mirrors KEYBDINPUT.
type keybdInput struct {
	wVk         uint16
	wScan       uint16
	dwFlags     uint32
	time        uint32
	dwExtraInfo uintptr
}

// input mirrors INPUT for the keyboard case. The trailing padding makes the
// struct as large as the MOUSEINPUT arm of the union (40 bytes on 64-bit,
// 28 bytes on 32-bit), which SendInput validates through cbSize.
type input struct {
	inputType uint32
	ki        keybdInput
	padding   uint64
}

type sendInputInjector struct{}

func newPlatformInjector() Injector { return sendInputInjector{} }

func (sendInputInjector) Inject(inputs []KeyInput) error {
	if len(inputs) == 0 {
		return nil
	}
	if err := user32DLL.Load(); err != nil {
		return fmt.Errorf("user32.dll is unavailable: %w", err)
	}

	raw := make([]input, len(inputs))
	for i, in := range inputs {
		raw[i].inputType = inputKeyboard
		raw[i].ki.wVk = uint16(in.VKey)
		if in.Up {
			raw[i].ki.dwFlags = keyEventFKeyUp
		}
	}

	sent, _, err := procSendInput.Call(
		uintptr(len(raw)),
		uintptr(unsafe.Pointer(&raw[0])),
		unsafe.Sizeof(raw[0]),
	)
	if int(sent) == len(raw) {
		return nil
	}
	if err == syscall.Errno(0) {
		err = errors.New("SendInput was blocked by another thread")
	}
	return fmt.Errorf("SendInput inserted %d of %d events: %w", sent, len(raw), err)
}
