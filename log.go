package xcodec

import (
	"os"
	"sync"

	"github.com/pion/logging"
)

const logScope = "xcodec"

var (
	logMu      sync.RWMutex
	logFactory logging.LoggerFactory
	logPkg     logging.LeveledLogger
)

// SetLoggerFactory replaces the factory used for package logging.
// Passing nil restores the default.
func SetLoggerFactory(f logging.LoggerFactory) {
	logMu.Lock()
	defer logMu.Unlock()
	logFactory = f
	logPkg = nil
}

// logger returns the package logger, creating it on first use.
// XCODEC_DEBUG enables debug output for the package scope.
func logger() logging.LeveledLogger {
	logMu.RLock()
	l := logPkg
	logMu.RUnlock()
	if l != nil {
		return l
	}

	logMu.Lock()
	defer logMu.Unlock()
	if logPkg != nil {
		return logPkg
	}
	f := logFactory
	if f == nil {
		def := logging.NewDefaultLoggerFactory()
		if v := os.Getenv("XCODEC_DEBUG"); v != "" && v != "0" {
			def.ScopeLevels[logScope] = logging.LogLevelDebug
		}
		f = def
	}
	logPkg = f.NewLogger(logScope)
	return logPkg
}
