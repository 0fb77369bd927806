package clog

import (
	"github.com/sirupsen/logrus"
)

// LogrusProvider adapts a logrus logger (or entry) to LogProvider, for
// applications that route engine logs through their structured logger.
type LogrusProvider struct {
	log logrus.FieldLogger
}

var _ LogProvider = (*LogrusProvider)(nil)

// NewLogrusProvider wraps a logrus logger. A nil argument wraps the
// logrus standard logger.
func NewLogrusProvider(l logrus.FieldLogger) *LogrusProvider {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &LogrusProvider{log: l}
}

// Error Log ERROR level message.
func (sf *LogrusProvider) Error(format string, v ...interface{}) {
	sf.log.Errorf(format, v...)
}

// Warn Log WARN level message.
func (sf *LogrusProvider) Warn(format string, v ...interface{}) {
	sf.log.Warnf(format, v...)
}

// Debug Log DEBUG level message.
func (sf *LogrusProvider) Debug(format string, v ...interface{}) {
	sf.log.Debugf(format, v...)
}
