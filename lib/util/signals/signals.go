package signals

import (
	"os"
	"os/signal"
	"sync"
)

// sigChan is buffered to avoid missing signals delivered while no receiver is ready.
var sigChan = make(chan os.Signal, 1)

// Handler is a function called when a signal is received.
type Handler func()

var (
	mu           sync.RWMutex
	reloaders    []Handler
	interrupters []Handler
)

// RegisterReloadHandler registers a handler called on SIGHUP (config reload).
// Nil handlers are silently ignored.
func RegisterReloadHandler(f Handler) {
	if f == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	reloaders = append(reloaders, f)
}

// RegisterInterruptHandler registers a handler called on SIGINT/SIGTERM.
// Nil handlers are silently ignored.
func RegisterInterruptHandler(f Handler) {
	if f == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	interrupters = append(interrupters, f)
}

func handleReload() {
	mu.RLock()
	defer mu.RUnlock()
	for _, f := range reloaders {
		f()
	}
}

func handleInterrupt() {
	mu.RLock()
	defer mu.RUnlock()
	for _, f := range interrupters {
		f()
	}
}

// Handle blocks processing signals until the process exits.
func Handle() {
	signal.Notify(sigChan, handledSignals()...)
	for sig := range sigChan {
		if isReload(sig) {
			handleReload()
		} else {
			handleInterrupt()
		}
	}
}
