// Package logger provides the shared application logger backed by zap.
package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu  sync.RWMutex
	log *zap.SugaredLogger = newLogger(zapcore.InfoLevel)
)

// Initialize configures the global logger from the CUSTSYNC_LOG_LEVEL
// environment variable (falling back to LOG_LEVEL). Safe to call more
// than once; the last call wins.
func Initialize() {
	mu.Lock()
	defer mu.Unlock()
	log = newLogger(levelFromEnv())
}

func levelFromEnv() zapcore.Level {
	levelStr := os.Getenv("CUSTSYNC_LOG_LEVEL")
	if levelStr == "" {
		levelStr = os.Getenv("LOG_LEVEL")
	}

	switch strings.ToLower(levelStr) {
	case "debug":
		return zapcore.DebugLevel
	case "info", "":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// newLogger builds a JSON logger writing to stderr so stdout stays clean
// for commands that print data (e.g. version --format json).
func newLogger(level zapcore.Level) *zap.SugaredLogger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "time"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		level,
	)
	return zap.New(core, zap.AddCallerSkip(1)).Sugar()
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Debug logs a message at debug level
func Debug(args ...any) { current().Debug(args...) }

// Debugf logs a formatted message at debug level
func Debugf(format string, args ...any) { current().Debugf(format, args...) }

// Info logs a message at info level
func Info(args ...any) { current().Info(args...) }

// Infof logs a formatted message at info level
func Infof(format string, args ...any) { current().Infof(format, args...) }

// Warn logs a message at warn level
func Warn(args ...any) { current().Warn(args...) }

// Warnf logs a formatted message at warn level
func Warnf(format string, args ...any) { current().Warnf(format, args...) }

// Error logs a message at error level
func Error(args ...any) { current().Error(args...) }

// Errorf logs a formatted message at error level
func Errorf(format string, args ...any) { current().Errorf(format, args...) }

// Fatalf logs a formatted message at fatal level and exits
func Fatalf(format string, args ...any) { current().Fatalf(format, args...) }

// Sync flushes any buffered log entries
func Sync() error {
	return current().Sync()
}
