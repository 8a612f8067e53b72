// Package log provides small category loggers: named, verbose-gated
// sub-loggers for tagging output by subsystem without pulling in a
// structured-logging dependency this module has no other use for.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// SubLogger is a minimal named, level-gated logger.
type SubLogger struct {
	name    string
	verbose bool
	out     io.Writer
	mu      sync.Mutex
}

// New returns a SubLogger writing to stderr under the given category name.
func New(name string) *SubLogger {
	return &SubLogger{name: name, out: os.Stderr}
}

// SetVerbose toggles Debugf output.
func (l *SubLogger) SetVerbose(v bool) { l.verbose = v }

// SetOutput redirects log output, primarily for tests.
func (l *SubLogger) SetOutput(w io.Writer) { l.out = w }

func (l *SubLogger) write(level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "%s | %s | %s | %s\n", time.Now().UTC().Format(time.RFC3339Nano), level, l.name, fmt.Sprintf(format, args...))
}

// Debugf logs only when verbose is enabled.
func (l *SubLogger) Debugf(format string, args ...any) {
	if l.verbose {
		l.write("DEBUG", format, args...)
	}
}

// Infof always logs.
func (l *SubLogger) Infof(format string, args ...any) { l.write("INFO", format, args...) }

// Warnf always logs.
func (l *SubLogger) Warnf(format string, args ...any) { l.write("WARN", format, args...) }

// Errorf always logs.
func (l *SubLogger) Errorf(format string, args ...any) { l.write("ERROR", format, args...) }
