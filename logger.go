package modloader

// Logger defines the interface for loader logging.
// The loader uses structured logging with key-value pairs so that hosts
// can route construction, resolution and invocation messages into
// whatever logging backend the game already uses.
//
// The Logger interface uses variadic arguments in key-value pairs:
//
//	logger.Info("message", "key1", "value1", "key2", "value2")
//
// This matches the method set of *slog.Logger, so a standard library
// logger can be passed directly.
type Logger interface {
	// Info logs an informational message, such as a mod completing a phase.
	Info(msg string, args ...any)

	// Error logs an error message, such as a phase callback failing.
	// Errors logged here never abort the session.
	Error(msg string, args ...any)

	// Warn logs a warning message, such as a mod being excluded.
	Warn(msg string, args ...any)

	// Debug logs a debug message, such as a dropped ordering hint.
	Debug(msg string, args ...any)
}

// nopLogger discards everything. It backs coordinators created without a logger.
type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}
