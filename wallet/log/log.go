// Package log prints wallet process output on stderr. Info lines are
// always written; Debug lines are suppressed unless verbose mode is
// enabled.
package log

import (
	"io"
	"log"
	"os"
	"sync"
)

var (
	mu      sync.Mutex
	std     = log.New(os.Stderr, "", 0)
	verbose bool
)

// SetVerbose enables or disables Debug output.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// SetOutput directs all subsequent output to out.
func SetOutput(out io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	std.SetOutput(out)
}

// Debug logs v when verbose mode is on.
func Debug(v ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if verbose {
		std.Print(v...)
	}
}

// Debugf logs a formatted line when verbose mode is on.
func Debugf(format string, v ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if verbose {
		std.Printf(format, v...)
	}
}

// Info logs v unconditionally.
func Info(v ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	std.Print(v...)
}

// Infof logs a formatted line unconditionally.
func Infof(format string, v ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	std.Printf(format, v...)
}
