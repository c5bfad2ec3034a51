package utils

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logMu  sync.RWMutex
	logger = zap.NewNop()
)

// Logger returns the process wide logger used by the mesh, fem and parallel
// packages when no per-call logger was supplied. It is a no-op logger until
// SetLogger is called.
func Logger() *zap.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return logger
}

// SetLogger replaces the process wide logger and returns a func restoring the
// previous one.
func SetLogger(l *zap.Logger) (restore func()) {
	if l == nil {
		l = zap.NewNop()
	}
	logMu.Lock()
	old := logger
	logger = l
	logMu.Unlock()
	return func() {
		logMu.Lock()
		logger = old
		logMu.Unlock()
	}
}
