package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger writes timestamped lines to a log file, falling back to stdout when
// the file cannot be opened.
type Logger struct {
	mu        sync.Mutex
	path      string
	writeFile *os.File
}

// defaultLogPath returns the gallery log path under ./data next to the
// working directory.
func defaultLogPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return NewPaths(filepath.Join(os.TempDir(), "gallery")).LogFile()
	}
	return NewPaths(filepath.Join(cwd, "data")).LogFile()
}

// NewLogger opens the given log file for appending. If the file cannot be
// opened, logs will be written to stdout.
func NewLogger(logFile string) *Logger {
	if logFile == "" {
		logFile = defaultLogPath()
	}
	logger := &Logger{path: logFile}
	_ = os.MkdirAll(filepath.Dir(logFile), 0o755)

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: Error opening log file (%s): %v\n", time.Now().Format("2006-01-02 15:04:05"), logFile, err)
		return logger
	}
	logger.writeFile = f
	return logger
}

// Write appends a timestamped message to the log (or stdout when no file).
func (l *Logger) Write(message string) {
	if l == nil {
		return
	}
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	line := fmt.Sprintf("%s: %s\n", timestamp, message)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writeFile != nil {
		_, _ = l.writeFile.WriteString(line)
		return
	}
	fmt.Print(line)
}

// Writef formats and writes a message.
func (l *Logger) Writef(format string, args ...interface{}) {
	l.Write(fmt.Sprintf(format, args...))
}

// Path returns the log file path this logger was created for.
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Close flushes and closes the underlying file handle.
func (l *Logger) Close() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writeFile != nil {
		_ = l.writeFile.Sync()
		_ = l.writeFile.Close()
		l.writeFile = nil
	}
}
