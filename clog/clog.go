// Package clog defines the logging contract of the protocol engine.
// The engine emits three kinds of lines: debug traffic traces for every
// message on the wire, warnings for protocol data it had to drop, and
// errors for local failures. A LogProvider routes them into whatever
// logger the application runs; the package ships a standard-library
// default and a logrus adapter.
package clog

import (
	"log"
	"os"
)

// LogProvider receives the engine log lines, printf style.
type LogProvider interface {
	Error(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Debug(format string, v ...interface{})
}

// StdProvider is the default provider: a standard-library logger with a
// level tag in front of each line.
type StdProvider struct {
	l *log.Logger
}

var _ LogProvider = (*StdProvider)(nil)

// NewStdProvider creates the default provider writing to stdout with
// the given prefix.
func NewStdProvider(prefix string) *StdProvider {
	return &StdProvider{l: log.New(os.Stdout, prefix, log.LstdFlags)}
}

// Error Log ERROR level message.
func (sf *StdProvider) Error(format string, v ...interface{}) {
	sf.l.Printf("[E]: "+format, v...)
}

// Warn Log WARN level message.
func (sf *StdProvider) Warn(format string, v ...interface{}) {
	sf.l.Printf("[W]: "+format, v...)
}

// Debug Log DEBUG level message.
func (sf *StdProvider) Debug(format string, v ...interface{}) {
	sf.l.Printf("[D]: "+format, v...)
}
