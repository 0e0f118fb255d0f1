//go:build !windows

package signals

import (
	"os"
	"syscall"
)

func handledSignals() []os.Signal {
	return []os.Signal{syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM}
}

func isReload(sig os.Signal) bool {
	return sig == syscall.SIGHUP
}
