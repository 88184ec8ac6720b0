package modloader

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
)

// logger writes through t.Log. Errors are logged too, since mod failures
// are expected in most tests.
type logger struct {
	t *testing.T
}

func (l *logger) getCallerInfo() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "unknown"
	}
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	relPath, err := filepath.Rel(wd, file)
	if err != nil {
		relPath = file
	}
	return fmt.Sprintf("%s:%d", relPath, line)
}

func (l *logger) Info(msg string, args ...any) {
	l.t.Log(fmt.Sprintf("[%s] INFO %s", l.getCallerInfo(), msg), args)
}

func (l *logger) Error(msg string, args ...any) {
	l.t.Log(fmt.Sprintf("[%s] ERROR %s", l.getCallerInfo(), msg), args)
}

func (l *logger) Warn(msg string, args ...any) {
	l.t.Log(fmt.Sprintf("[%s] WARN %s", l.getCallerInfo(), msg), args)
}

func (l *logger) Debug(msg string, args ...any) {
	l.t.Log(fmt.Sprintf("[%s] DEBUG %s", l.getCallerInfo(), msg), args)
}

// recordingLogger keeps every message by level.
type recordingLogger struct {
	mu       sync.Mutex
	messages map[string][]string
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{messages: make(map[string][]string)}
}

func (r *recordingLogger) record(level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[level] = append(r.messages[level], msg)
}

func (r *recordingLogger) Info(msg string, _ ...any)  { r.record("info", msg) }
func (r *recordingLogger) Error(msg string, _ ...any) { r.record("error", msg) }
func (r *recordingLogger) Warn(msg string, _ ...any)  { r.record("warn", msg) }
func (r *recordingLogger) Debug(msg string, _ ...any) { r.record("debug", msg) }

func (r *recordingLogger) has(level, fragment string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, msg := range r.messages[level] {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

func TestNopLoggerIsSilent(t *testing.T) {
	var l Logger = nopLogger{}
	l.Info("info")
	l.Warn("warn")
	l.Error("error")
	l.Debug("debug")
}
