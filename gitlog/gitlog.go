// Package gitlog is the logging entrypoint every other package imports
// instead of reaching into pkgs/logger directly: a thin namespacing shim
// so call sites read "gitlog.New(...)" rather than repeating the
// pkgs/logger import and file-rotation wiring at every call site.
package gitlog

import (
	"github.com/sirupsen/logrus"

	"github.com/make-os/grasp/pkgs/logger"
)

// Logger is re-exported so callers only need this package's import.
type Logger = logger.Logger

// New returns a stderr-only logger, namespaced under module.
func New(module string) Logger {
	return logger.NewLogrus().Module(module)
}

// NewWithFileRotation returns a logger that writes to stderr and rotates
// daily files at logPath, namespaced under module.
func NewWithFileRotation(logPath, module string) Logger {
	return logger.NewLogrusWithFileRotation(logPath, logrus.InfoLevel).Module(module)
}
