// Package logging wraps logrus with the component-scoped call shape used
// across the service: logger.Info("message", logging.Fields{...}).
package logging

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Fields carries structured context for a single log entry.
type Fields = logrus.Fields

var base = logrus.New()

// Configure sets the process-wide level and formatter.
// Format is "json" or "text"; anything else falls back to text.
func Configure(level, format string) error {
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return err
	}
	base.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "json":
		base.SetFormatter(&logrus.JSONFormatter{})
	default:
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// SetOutput redirects every logger. Tests use it to silence or capture output.
func SetOutput(w io.Writer) {
	base.SetOutput(w)
}

// Logger is a component-scoped structured logger.
type Logger struct {
	entry *logrus.Entry
}

// NewLogger returns a logger tagged with the given component name.
func NewLogger(component string) *Logger {
	return &Logger{entry: base.WithField("component", component)}
}

// With returns a child logger that always carries fields.
func (l *Logger) With(fields Fields) *Logger {
	return &Logger{entry: l.entry.WithFields(fields)}
}

func (l *Logger) Debug(msg string, fields ...Fields) {
	l.withFields(fields).Debug(msg)
}

func (l *Logger) Info(msg string, fields ...Fields) {
	l.withFields(fields).Info(msg)
}

func (l *Logger) Warn(msg string, fields ...Fields) {
	l.withFields(fields).Warn(msg)
}

func (l *Logger) Error(msg string, fields ...Fields) {
	l.withFields(fields).Error(msg)
}

// Fatal logs and exits the process.
func (l *Logger) Fatal(msg string, fields ...Fields) {
	l.withFields(fields).Fatal(msg)
}

func (l *Logger) withFields(fields []Fields) *logrus.Entry {
	entry := l.entry
	for _, f := range fields {
		entry = entry.WithFields(f)
	}
	return entry
}

// Infof logs a formatted message without a component tag.
func Infof(format string, args ...interface{}) {
	base.Infof(format, args...)
}
