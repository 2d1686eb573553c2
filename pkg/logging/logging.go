package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Fields is a set of structured key/value pairs attached to a log entry
type Fields map[string]any

// Level is the minimum severity that gets written
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// String returns the lowercase level name
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	default:
		return "unknown"
	}
}

// Logger is the logging surface used across the project
type Logger interface {
	Debug(msg string, fields ...Fields)
	Info(msg string, fields ...Fields)
	Warn(msg string, fields ...Fields)
	Error(err error, msg string, fields ...Fields)
	WithFields(fields Fields) Logger
}

// ParseLevel converts a level name into a Level
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug", "trace":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error", "fatal":
		return ErrorLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
}

var (
	rootMu     sync.RWMutex
	rootLogger = newRootLogrus()
)

func newRootLogrus() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	l.SetLevel(logrus.InfoLevel)
	return l
}

func toLogrusLevel(level Level) logrus.Level {
	switch level {
	case DebugLevel:
		return logrus.DebugLevel
	case WarnLevel:
		return logrus.WarnLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// SetLevel changes the level of the process-wide logger
func SetLevel(level Level) {
	rootMu.Lock()
	defer rootMu.Unlock()
	rootLogger.SetLevel(toLogrusLevel(level))
}

// SetFormat switches between "text" and "json" output
func SetFormat(format string) {
	rootMu.Lock()
	defer rootMu.Unlock()
	if strings.EqualFold(format, "json") {
		rootLogger.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	rootLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
}

// SetOutput redirects the process-wide logger
func SetOutput(w io.Writer) {
	rootMu.Lock()
	defer rootMu.Unlock()
	rootLogger.SetOutput(w)
}

type logrusLogger struct {
	entry *logrus.Entry
}

// NewDefaultLogger returns a logger writing through the process-wide logrus instance
func NewDefaultLogger() Logger {
	rootMu.RLock()
	defer rootMu.RUnlock()
	return &logrusLogger{entry: logrus.NewEntry(rootLogger)}
}

// NewLogger wraps a caller-owned logrus logger
func NewLogger(l *logrus.Logger) Logger {
	if l == nil {
		return NewDefaultLogger()
	}
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

// WithFields returns a default logger pre-populated with fields
func WithFields(fields Fields) Logger {
	return NewDefaultLogger().WithFields(fields)
}

func merge(fields []Fields) logrus.Fields {
	out := logrus.Fields{}
	for _, f := range fields {
		for k, v := range f {
			out[k] = v
		}
	}
	return out
}

func (l *logrusLogger) Debug(msg string, fields ...Fields) {
	l.entry.WithFields(merge(fields)).Debug(msg)
}

func (l *logrusLogger) Info(msg string, fields ...Fields) {
	l.entry.WithFields(merge(fields)).Info(msg)
}

func (l *logrusLogger) Warn(msg string, fields ...Fields) {
	l.entry.WithFields(merge(fields)).Warn(msg)
}

func (l *logrusLogger) Error(err error, msg string, fields ...Fields) {
	entry := l.entry.WithFields(merge(fields))
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error(msg)
}

func (l *logrusLogger) WithFields(fields Fields) Logger {
	return &logrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}
