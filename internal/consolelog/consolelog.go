// Package consolelog keeps the in-editor console transcript: lines stay in
// memory for the terminal to draw and append to a file on disk.
package consolelog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FilePath is the transcript file, relative to the working directory.
const FilePath = "logs/console.txt"

// Logger stores console lines in memory and appends them to disk. It keeps
// its own mutex: the terminal reads lines for drawing while commands append.
type Logger struct {
	mu    sync.Mutex
	lines []string
}

// New returns a Logger and ensures the logs directory exists. A dated session
// header separates runs in the transcript file; per-line stamps carry only
// the time of day.
func New() *Logger {
	_ = os.MkdirAll(filepath.Dir(FilePath), 0755)
	appendToFile(time.Now().Format("--- session 2006-01-02 15:04:05 ---"))
	return &Logger{}
}

// Log appends a time-stamped line to the transcript and to the file on disk.
func (l *Logger) Log(line string) {
	stamped := time.Now().Format("[15:04:05] ") + line

	l.mu.Lock()
	l.lines = append(l.lines, stamped)
	l.mu.Unlock()

	appendToFile(stamped)
}

// appendToFile best-effort appends one line to the transcript file. Console
// logging must never take the editor down over a disk error.
func appendToFile(line string) {
	f, err := os.OpenFile(FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	_, _ = f.WriteString(line + "\n")
	_ = f.Close()
}

// Logf formats like fmt.Sprintf and logs the result.
func (l *Logger) Logf(format string, args ...any) {
	l.Log(fmt.Sprintf(format, args...))
}

// Lines returns a copy of all stored lines.
func (l *Logger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

// Tail returns a copy of the most recent n lines, oldest first. It returns
// fewer when the transcript is shorter and nil when n is not positive.
func (l *Logger) Tail(n int) []string {
	if n <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if n > len(l.lines) {
		n = len(l.lines)
	}
	out := make([]string, n)
	copy(out, l.lines[len(l.lines)-n:])
	return out
}
