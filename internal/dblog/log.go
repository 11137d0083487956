// Package dblog centralizes ArmDb's structured logging. Every package in
// the storage core logs through a component-scoped *logrus.Entry rather
// than calling the stdlib log package directly.
package dblog

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	once   sync.Once
	logger *logrus.Logger
)

// base returns the process-wide logrus.Logger, constructing it on first
// use. Level defaults to Info; set ARMDB_LOG_LEVEL=debug for trace-level
// suspension-point logging.
func base() *logrus.Logger {
	once.Do(func() {
		logger = logrus.New()
		logger.Out = os.Stderr
		logger.Formatter = &logrus.TextFormatter{FullTimestamp: true}
		level := logrus.InfoLevel
		if lvl, err := logrus.ParseLevel(os.Getenv("ARMDB_LOG_LEVEL")); err == nil {
			level = lvl
		}
		logger.SetLevel(level)
	})
	return logger
}

// For returns a logger scoped to the named component (e.g. "disk",
// "buffer", "btree", "storage").
func For(component string) *logrus.Entry {
	return base().WithField("component", component)
}

// SetOutputForTest redirects the shared logger's output; tests use this
// to keep log noise out of `go test -v` when exercising error paths
// deliberately.
func SetOutputForTest(w io.Writer) {
	base().Out = w
}
