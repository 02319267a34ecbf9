// Package logs provides the process-wide logger used by the probes and the CLI.
package logs

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	level  = zap.NewAtomicLevelAt(zap.InfoLevel)
	logger = newLogger(level)
)

func newLogger(lvl zap.AtomicLevel) *zap.SugaredLogger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05")
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		lvl,
	)
	return zap.New(core).Sugar()
}

// Init sets the verbosity of the global logger. Debug output carries every
// single probe step.
func Init(verbose bool) {
	if verbose {
		level.SetLevel(zap.DebugLevel)
		return
	}
	level.SetLevel(zap.InfoLevel)
}

// SetLogger replaces the global logger, returning a function that restores
// the previous one.
func SetLogger(l *zap.SugaredLogger) (restore func()) {
	mu.Lock()
	prev := logger
	logger = l
	mu.Unlock()
	return func() {
		mu.Lock()
		logger = prev
		mu.Unlock()
	}
}

func get() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Logger writes an info line.
func Logger(format string, args ...interface{}) {
	get().Infof(format, args...)
}

// Debugf writes a debug line, shown only with --verbose.
func Debugf(format string, args ...interface{}) {
	get().Debugf(format, args...)
}

// Warnf writes a warning line.
func Warnf(format string, args ...interface{}) {
	get().Warnf(format, args...)
}

// Sync flushes buffered log entries.
func Sync() {
	_ = get().Sync()
}
