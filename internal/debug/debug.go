// Package debug is geoform's opt-in file log. Nothing is written unless Init
// is called with enable=true (the --debug flag); the file at
// ~/.geoform/debug.log is truncated on every launch.
package debug

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	LogFileName = "debug.log"
	LogDirName  = ".geoform"
)

// level tags a line with its severity.
type level int

const (
	levelInfo level = iota
	levelWarn
	levelError
)

func (l level) prefix() string {
	switch l {
	case levelWarn:
		return "WARN "
	case levelError:
		return "ERROR "
	default:
		return ""
	}
}

// sink is where lines go while logging is enabled.
type sink struct {
	logger *log.Logger
	file   *os.File
}

var (
	mu      sync.RWMutex
	current *sink

	getLogPath = defaultGetLogPath
)

// Init enables or disables the log. Enabling opens (and truncates) the log
// file; disabling closes any file left open by an earlier Init.
func Init(enable bool) error {
	mu.Lock()
	defer mu.Unlock()

	closeLocked()
	if !enable {
		return nil
	}

	path, err := getLogPath()
	if err != nil {
		return fmt.Errorf("determine log path: %w", err)
	}
	//nolint:gosec // G301: user config directory
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	//nolint:gosec // G304: path derives from the user's home directory
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	current = &sink{
		logger: log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds),
		file:   f,
	}
	current.logger.Printf("=== geoform debug log started at %s ===", time.Now().Format(time.RFC3339))
	return nil
}

// SetOutput sends every line to w until restore is called, which puts back
// whatever was configured before. Used by tests in other packages.
func SetOutput(w io.Writer) (restore func()) {
	mu.Lock()
	prev := current
	current = &sink{logger: log.New(w, "", 0)}
	mu.Unlock()

	return func() {
		mu.Lock()
		defer mu.Unlock()
		current = prev
	}
}

// Close flushes and closes the log file. Logging stays off afterwards.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
}

func closeLocked() {
	if current != nil && current.file != nil {
		_ = current.file.Close()
	}
	current = nil
}

func write(lvl level, msg string) {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil {
		return
	}
	current.logger.Print(lvl.prefix() + msg)
}

// Log writes its arguments in the manner of fmt.Print.
func Log(v ...any) {
	if Enabled() {
		write(levelInfo, fmt.Sprint(v...))
	}
}

// Logf writes an info line.
func Logf(format string, v ...any) {
	if Enabled() {
		write(levelInfo, fmt.Sprintf(format, v...))
	}
}

// Warnf writes a line tagged WARN.
func Warnf(format string, v ...any) {
	if Enabled() {
		write(levelWarn, fmt.Sprintf(format, v...))
	}
}

// Errorf writes a line tagged ERROR.
func Errorf(format string, v ...any) {
	if Enabled() {
		write(levelError, fmt.Sprintf(format, v...))
	}
}

// Enabled reports whether lines are currently written anywhere.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return current != nil
}

func defaultGetLogPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine user home: %w", err)
	}
	return filepath.Join(home, LogDirName, LogFileName), nil
}

// GetLogPath returns where Init(true) writes.
func GetLogPath() (string, error) {
	return getLogPath()
}
