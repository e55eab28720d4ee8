// Package model contains the types shared by the link, its collaborators
// and the tools observing it: frames, events, collaborator interfaces and
// tracing.
package model

// Logger is what the link and its workers log with. The apex/log Logger
// and Interface satisfy it. Frames are logged at debug level, stale timers
// and corrupt frames at debug or warn.
type Logger interface {
	// Debug emits a debug message.
	Debug(msg string)

	// Debugf formats and emits a debug message.
	Debugf(format string, v ...any)

	// Info emits an informational message.
	Info(msg string)

	// Infof formats and emits an informational message.
	Infof(format string, v ...any)

	// Warn emits a warning message.
	Warn(msg string)

	// Warnf formats and emits a warning message.
	Warnf(format string, v ...any)
}
