// Package logging provides the structured logger threaded through every
// solarboat component. Components receive a Logger through their
// constructors instead of calling a global logger.
package logging

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// Logger is the logging surface every component depends on. It is
// deliberately small: components never need more than leveled, fielded
// logging.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	WithField(key string, value interface{}) Logger
}

type logrusLogger struct {
	entry *logrus.Entry
}

// Options configures New.
type Options struct {
	Level  string
	Writer io.Writer
	Color  bool
}

// New builds a Logger backed by logrus, writing to stderr unless a Writer
// is supplied.
func New(opts Options) Logger {
	l := logrus.New()

	if opts.Writer != nil {
		l.SetOutput(opts.Writer)
	} else {
		l.SetOutput(os.Stderr)
	}

	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:   !opts.Color,
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}

	l.SetLevel(level)

	return &logrusLogger{entry: logrus.NewEntry(l)}
}

func (l *logrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *logrusLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *logrusLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *logrusLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

func (l *logrusLogger) WithField(key string, value interface{}) Logger {
	return &logrusLogger{entry: l.entry.WithField(key, value)}
}

// StatusColor returns the color a per-task status line is rendered in.
func StatusColor(status string) *color.Color {
	switch status {
	case "success":
		return color.New(color.FgGreen)
	case "failed", "timed_out":
		return color.New(color.FgRed)
	case "skipped":
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgWhite)
	}
}
