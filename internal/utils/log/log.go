package log

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// base is handed out by L and With; logger skips one extra frame for the
	// package-level wrappers below so callers are reported, not this file.
	base   atomic.Pointer[zap.Logger]
	logger atomic.Pointer[zap.Logger]
)

func init() {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	store(l)
}

func store(l *zap.Logger) *zap.Logger {
	old := base.Swap(l)
	logger.Store(l.WithOptions(zap.AddCallerSkip(1)))
	return old
}

// Init replaces the global logger. level is one of debug, info, warn, error.
func Init(level string, development bool) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	SetLogger(l)
	return nil
}

// SetLogger installs l as the global logger. Tests use it with zaptest/observer.
func SetLogger(l *zap.Logger) {
	if old := store(l); old != nil {
		_ = old.Sync()
	}
}

func L() *zap.Logger {
	return base.Load()
}

func With(fields ...zap.Field) *zap.Logger {
	return base.Load().With(fields...)
}

func Debug(msg string, fields ...zap.Field) {
	logger.Load().Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	logger.Load().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	logger.Load().Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	logger.Load().Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	logger.Load().Fatal(msg, fields...)
}

func Sync() error {
	return logger.Load().Sync()
}
