// Package logger hands out the process-wide logrus instance. Output is
// discarded unless DEBUG_NODECRYPT selects a level, so the relay and client
// stay silent by default and diagnostics cost nothing in production.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	log  *logrus.Logger
	once sync.Once
)

// GetNodeCryptLogger returns the shared logger, initializing it on first use.
func GetNodeCryptLogger() *logrus.Logger {
	once.Do(setup)
	return log
}

func setup() {
	log = logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.PanicLevel)

	level := strings.ToLower(os.Getenv("DEBUG_NODECRYPT"))
	if level == "" {
		return
	}
	log.SetOutput(os.Stderr)
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		// Any unrecognized value (e.g. DEBUG_NODECRYPT=1) means full debug.
		parsed = logrus.DebugLevel
	}
	log.SetLevel(parsed)
	log.WithField("level", parsed).Debug("logging enabled")
}
