// Package logging builds the structured logger shared by Trackbit's
// components. Entries are JSON lines in a rotating file; debug mode mirrors
// them to stderr.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configure New.
type Options struct {
	// Path is the log file. Its directory is created when missing.
	Path  string
	Debug bool
	// Mirror receives a copy of every entry in debug mode; defaults to stderr.
	Mirror io.Writer
}

// New returns a logger writing to a rotating file and the closer releasing
// it. Debug entries are dropped unless Debug is set.
func New(opts Options) (*log.Logger, io.Closer, error) {
	if opts.Path == "" {
		return nil, nil, fmt.Errorf("log path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	// lumberjack only creates the file on first write.
	f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("create log file: %w", err)
	}
	_ = f.Close()

	file := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    5, // megabytes
		MaxBackups: 3,
		MaxAge:     14, // days
		Compress:   true,
	}

	level := log.InfoLevel
	var w io.Writer = file
	if opts.Debug {
		level = log.DebugLevel
		mirror := opts.Mirror
		if mirror == nil {
			mirror = os.Stderr
		}
		w = io.MultiWriter(file, mirror)
	}

	logger := log.NewWithOptions(w, log.Options{
		Formatter:       log.JSONFormatter,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		ReportCaller:    opts.Debug,
		Level:           level,
		Prefix:          "trackbit",
	})
	return logger, file, nil
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
