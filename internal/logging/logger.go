// Package logging configures the process-wide leveled logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level string
	// File enables a rotating log file next to stderr output.
	File   string
	Prefix string
}

var (
	mu      sync.RWMutex
	current = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "appxzip"})
)

// Setup builds a logger from opts and installs it as the default.
func Setup(opts Options) (*log.Logger, error) {
	w, err := writer(opts.File)
	if err != nil {
		return nil, err
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "appxzip"
	}
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          prefix,
	})

	level := log.InfoLevel
	if opts.Level != "" {
		level, err = log.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
	}
	l.SetLevel(level)

	mu.Lock()
	current = l
	mu.Unlock()
	return l, nil
}

// Default returns the installed logger.
func Default() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// OrDefault returns l, or the installed logger when l is nil.
func OrDefault(l *log.Logger) *log.Logger {
	if l != nil {
		return l
	}
	return Default()
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

func writer(file string) (io.Writer, error) {
	if file == "" {
		return os.Stderr, nil
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	rotating := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
	return io.MultiWriter(os.Stderr, rotating), nil
}
