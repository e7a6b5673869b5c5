// Package logger provides the leveled logger used across the storage
// engine. It is a trimmed port of the teacher's logger package: the
// level set and the WithPrefix/Verbosity shape survive, the
// metrics-sink wiring does not (nothing here is worth a metric).
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// RFC3339UsecTz0 is the timestamp format used by StandardLogger: UTC,
// microsecond resolution, fixed width.
const RFC3339UsecTz0 = "2006-01-02T15:04:05.000000Z07:00"

// Logger is the shared logging interface. Every storage-engine component
// that wants to log takes one of these at construction time.
type Logger interface {
	Printf(format string, v ...interface{})
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
	Panicf(format string, v ...interface{})
	// WithPrefix returns a new Logger with the same configuration as this
	// one, but all logs carry the given prefix.
	WithPrefix(prefix string) Logger
}

const (
	LevelPanic = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
)

func levelPrefix(level int) string {
	return [...]string{"PANIC: ", "ERROR: ", "WARN:  ", "INFO:  ", "DEBUG: "}[level]
}

// NopLogger discards everything. It is the default for components not
// explicitly given a Logger.
var NopLogger Logger = &nopLogger{}

type nopLogger struct{}

func (n *nopLogger) Printf(format string, v ...interface{}) {}
func (n *nopLogger) Debugf(format string, v ...interface{}) {}
func (n *nopLogger) Infof(format string, v ...interface{})  {}
func (n *nopLogger) Warnf(format string, v ...interface{})  {}
func (n *nopLogger) Errorf(format string, v ...interface{}) {}
func (n *nopLogger) Panicf(format string, v ...interface{}) {}
func (n *nopLogger) WithPrefix(prefix string) Logger         { return n }

// formatLog prefixes every write with a UTC, microsecond-resolution
// timestamp, so StandardLogger's output lines up regardless of where in
// the process it's called from.
type formatLog struct {
	w io.Writer
}

func (fl formatLog) Write(b []byte) (int, error) {
	return fmt.Fprintf(fl.w, "%v %v", time.Now().UTC().Format(RFC3339UsecTz0), string(b))
}

// StandardLogger is a log.Logger-backed Logger with a configurable
// verbosity floor and an optional prefix.
type StandardLogger struct {
	w         io.Writer
	logger    *log.Logger
	verbosity int
	prefix    string
}

// NewStandardLogger returns a StandardLogger writing to w at LevelInfo.
func NewStandardLogger(w io.Writer) *StandardLogger {
	return &StandardLogger{
		w:         w,
		logger:    log.New(formatLog{w: w}, "", 0),
		verbosity: LevelInfo,
	}
}

// SetVerbosity changes the minimum level that is actually written.
func (s *StandardLogger) SetVerbosity(level int) { s.verbosity = level }

func (s *StandardLogger) logf(level int, format string, v ...interface{}) {
	if level > s.verbosity {
		return
	}
	msg := fmt.Sprintf(format, v...)
	if s.prefix != "" {
		msg = s.prefix + msg
	}
	s.logger.Print(levelPrefix(level) + msg)
}

func (s *StandardLogger) Printf(format string, v ...interface{}) { s.logf(LevelInfo, format, v...) }
func (s *StandardLogger) Debugf(format string, v ...interface{}) { s.logf(LevelDebug, format, v...) }
func (s *StandardLogger) Infof(format string, v ...interface{})  { s.logf(LevelInfo, format, v...) }
func (s *StandardLogger) Warnf(format string, v ...interface{})  { s.logf(LevelWarn, format, v...) }
func (s *StandardLogger) Errorf(format string, v ...interface{}) { s.logf(LevelError, format, v...) }
func (s *StandardLogger) Panicf(format string, v ...interface{}) {
	s.logf(LevelPanic, format, v...)
	panic(fmt.Sprintf(format, v...))
}

func (s *StandardLogger) WithPrefix(prefix string) Logger {
	return &StandardLogger{
		w:         s.w,
		logger:    s.logger,
		verbosity: s.verbosity,
		prefix:    s.prefix + prefix,
	}
}

// StderrLogger is a ready-to-use StandardLogger writing to os.Stderr.
var StderrLogger = NewStandardLogger(os.Stderr)
