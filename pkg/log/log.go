// Package log provides the injectable logger used across the core. There
// is no global log sink; every component that wants to log takes a
// Logger in its constructor.
package log

import (
	"fmt"
	"os"
	"time"
)

type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type logger struct {
	out *os.File
}

// New returns a Logger that writes timestamped lines to stderr.
func New() Logger {
	return &logger{out: os.Stderr}
}

func (l *logger) Infof(format string, args ...interface{})  { l.printf("INFO", format, args...) }
func (l *logger) Warnf(format string, args ...interface{})  { l.printf("WARN", format, args...) }
func (l *logger) Errorf(format string, args ...interface{}) { l.printf("ERROR", format, args...) }
func (l *logger) Debugf(format string, args ...interface{}) { l.printf("DEBUG", format, args...) }

func (l *logger) printf(level, format string, args ...interface{}) {
	fmt.Fprintf(l.out, "%s [%s]\t%s\n", time.Now().Format("15:04:05.000"), level, fmt.Sprintf(format, args...))
}
