// Package logging owns the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu        sync.Mutex
	log       *logrus.Logger
	closeFile = nop
)

func nop() error { return nil }

// Init configures the shared logger. An unknown level falls back to info.
// Output goes to stderr when console is set and to logFile when non-empty.
// The file of the previous shared logger is closed, so loggers obtained
// from Get before the call stop writing to it.
func Init(level, logFile string, console bool) error {
	l, closer, err := New(level, logFile, console)
	if err != nil {
		return err
	}
	mu.Lock()
	prev := closeFile
	log, closeFile = l, closer
	mu.Unlock()
	return prev()
}

// Close closes the log file of the shared logger, if any, and restores the
// default logger.
func Close() error {
	mu.Lock()
	prev := closeFile
	log, closeFile = nil, nop
	mu.Unlock()
	return prev()
}

// New builds a logger without installing it as the shared one. The
// returned function closes its log file; it is never nil.
func New(level, logFile string, console bool) (*logrus.Logger, func() error, error) {
	l := logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	var writers []io.Writer
	closer := nop
	if console {
		writers = append(writers, os.Stderr)
	}
	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
			return nil, nil, err
		}
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, nil, err
		}
		writers = append(writers, file)
		closer = file.Close
	}

	switch len(writers) {
	case 0:
		l.SetOutput(io.Discard)
	case 1:
		l.SetOutput(writers[0])
	default:
		l.SetOutput(io.MultiWriter(writers...))
	}
	return l, closer, nil
}

// Get returns the shared logger, creating a default one on first use.
func Get() *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()
	if log == nil {
		log = logrus.New()
	}
	return log
}
