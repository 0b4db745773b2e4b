// Package log provides the package-level structured logger used throughout
// lighthouse. It wraps zap the same way the upstream codebase this project
// was adapted from wraps it: a single global *zap.Logger, a settable level,
// and console/logfmt encoding suited to local development.
package log

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.Mutex
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	global = newLogger("lighthouse", level)
)

// NewDefaultEncoderConfig returns the encoder configuration shared by every
// logger constructed in this package, so that output from subordinate
// components (the etcd client, cfssl) lines up with lighthouse's own.
func NewDefaultEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

func newLogger(name string, lvl zap.AtomicLevel) *zap.Logger {
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(NewDefaultEncoderConfig()),
		zapcore.Lock(os.Stderr),
		lvl,
	)
	return zap.New(core).Named(name)
}

// NewLoggerWithLevel returns a standalone named logger at a fixed level, for
// components (the etcd client, cfssl) that want their own verbosity
// independent of the global level.
func NewLoggerWithLevel(name string, lvl zapcore.Level) *zap.Logger {
	return newLogger(name, zap.NewAtomicLevelAt(lvl))
}

// SetLevel adjusts the verbosity of the global logger.
func SetLevel(lvl zapcore.Level) {
	mu.Lock()
	defer mu.Unlock()
	level.SetLevel(lvl)
}

func L() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	return global
}

func Debug(msg string, fields ...zap.Field) { L().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { L().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { L().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { L().Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { L().Fatal(msg, fields...) }

func Debugf(format string, args ...interface{}) { L().Sugar().Debugf(format, args...) }
func Infof(format string, args ...interface{})  { L().Sugar().Infof(format, args...) }
func Warnf(format string, args ...interface{})  { L().Sugar().Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { L().Sugar().Errorf(format, args...) }
func Fatalf(format string, args ...interface{}) { L().Sugar().Fatalf(format, args...) }
