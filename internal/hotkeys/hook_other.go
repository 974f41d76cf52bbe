//go:build !windows

package hotkeys

// On non-Windows targets the capabilities exist so the manager can be
// constructed and its pure helpers used, but the toggle never fires.
type unsupportedHook struct{}

func newPlatformHook() Hook { return unsupportedHook{} }

func (unsupportedHook) Install(func(KeyEvent) bool) error { return ErrUnsupported }
func (unsupportedHook) Uninstall() error                  { return nil }

type unsupportedInjector struct{}

func newPlatformInjector() Injector { return unsupportedInjector{} }

func (unsupportedInjector) Inject([]KeyInput) error { return ErrUnsupported }
