package logger

import (
	"log/slog"
	"os"
)

// Log is the process-wide structured logger. Setup must run before any
// package logs; main does that first thing, test mains likewise.
var Log *slog.Logger

// Setup initializes the global logger for the given environment. Production
// emits JSON at info level for log shipping; everything else gets readable
// text output with debug enabled.
func Setup(env string) {
	var handler slog.Handler

	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	Log = slog.New(handler)
	slog.SetDefault(Log)
}

// Info logs at info level with key/value pairs
func Info(msg string, args ...any) {
	Log.Info(msg, args...)
}

// Error logs at error level with key/value pairs
func Error(msg string, args ...any) {
	Log.Error(msg, args...)
}

// Debug logs at debug level with key/value pairs
func Debug(msg string, args ...any) {
	Log.Debug(msg, args...)
}

// Warn logs at warn level with key/value pairs
func Warn(msg string, args ...any) {
	Log.Warn(msg, args...)
}
