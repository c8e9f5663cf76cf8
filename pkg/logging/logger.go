// Package logging carries the ambient logging concern for the RMI runtime,
// in the teacher's manner: a small interface the skeleton and stub accept
// through their configuration, with a default implementation backed by
// github.com/sirupsen/logrus instead of the teacher's raw fmt.Printf
// (interfaces/logger.DefaultLogger) — the teacher already depends on
// logrus for its code generator, so the runtime's own structured logging
// reuses it rather than hand-rolling a formatter.
package logging

import (
	"github.com/sirupsen/logrus"
)

// Logger is the sole customization point for how the runtime reports what
// it is doing. A nil Logger on a skeleton or stub Config means silent,
// matching spec §4.4.5's "default no-op" stance on the overridable hooks.
type Logger interface {
	Error(err error, msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Debug(msg string, fields map[string]interface{})
}

// DefaultLogger logs structured fields through logrus's standard logger.
type DefaultLogger struct {
	entry *logrus.Entry
}

// NewDefaultLogger returns a Logger that tags every line with the given
// component name (e.g. "skeleton", "stub").
func NewDefaultLogger(component string) *DefaultLogger {
	return &DefaultLogger{entry: logrus.WithField("component", component)}
}

func (d *DefaultLogger) Error(err error, msg string, fields map[string]interface{}) {
	d.entry.WithFields(fields).WithError(err).Error(msg)
}

func (d *DefaultLogger) Info(msg string, fields map[string]interface{}) {
	d.entry.WithFields(fields).Info(msg)
}

func (d *DefaultLogger) Debug(msg string, fields map[string]interface{}) {
	d.entry.WithFields(fields).Debug(msg)
}
