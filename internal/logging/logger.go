package logging

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.Mutex
	logger *zap.SugaredLogger
)

// Init initializes the global structured logger at the given level.
func Init(level string) {
	mu.Lock()
	defer mu.Unlock()

	var lvl zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = zapcore.DebugLevel
	case "warn", "warning":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	default:
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.OutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		l = zap.NewNop()
	}
	logger = l.Sugar()
	zap.ReplaceGlobals(l)
}

// Logger returns the global logger instance.
func Logger() *zap.SugaredLogger {
	mu.Lock()
	l := logger
	mu.Unlock()
	if l == nil {
		Init("info")
		mu.Lock()
		l = logger
		mu.Unlock()
	}
	return l
}

// Debug logs a debug message with key-value pairs.
func Debug(msg string, args ...any) {
	Logger().Debugw(msg, args...)
}

// Info logs an info message with key-value pairs.
func Info(msg string, args ...any) {
	Logger().Infow(msg, args...)
}

// Warn logs a warning message with key-value pairs.
func Warn(msg string, args ...any) {
	Logger().Warnw(msg, args...)
}

// Error logs an error message with key-value pairs.
func Error(msg string, args ...any) {
	Logger().Errorw(msg, args...)
}
