// Package log implements structured logging for the engine and its daemon.
package log

import "sync"

// Logger is the logging surface the rest of the codebase programs against;
// the concrete backend is logrus, but nothing outside this package knows
// that. pkg/task and pkg/runtime declare their own one- or two-method
// logger interfaces which this Logger satisfies.
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})

	Info(args ...interface{})
	Infof(format string, args ...interface{})

	Warn(args ...interface{})
	Warnf(format string, args ...interface{})

	Error(args ...interface{})
	Errorf(format string, args ...interface{})

	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})

	WithField(field string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger

	IsDebugEnabled() bool
	IsInfoEnabled() bool
}

var (
	mu     sync.RWMutex
	logger Logger = newAdapter(defaultConfig())
)

// GetLogger returns the process-wide logger. Before Init it is a
// stdout-only logger at info level.
func GetLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Init replaces the process-wide logger with one built from cfg.
func Init(cfg Config) {
	l := newAdapter(cfg)
	mu.Lock()
	logger = l
	mu.Unlock()
}
