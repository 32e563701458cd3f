// Package monitoring holds the diagnostic loggers used by the acquisition and
// render loops. Both are package-level function values so that the binary can
// route them and tests can mute or capture them.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// Debugf logs per-line and per-frame detail. It is a no-op until SetDebug(true).
var Debugf func(format string, v ...interface{}) = noop

func noop(string, ...interface{}) {}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = noop
		return
	}
	Logf = f
}

// SetDebug turns the debug logger on or off. Debug output goes through Logf, so
// it follows whatever SetLogger installed. Call it at startup, before the loops
// are running.
func SetDebug(enabled bool) {
	if !enabled {
		Debugf = noop
		return
	}
	Debugf = func(format string, v ...interface{}) {
		Logf("debug: "+format, v...)
	}
}
