//go:build windows

package signals

import (
	"os"
	"syscall"
)

func handledSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}

func isReload(sig os.Signal) bool {
	// Windows has no SIGHUP; reloads are not signal-driven there.
	return false
}
