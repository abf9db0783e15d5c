// SPDX-License-Identifier: GPL-3.0-or-later

package typesniff

// SLogger abstracts the [*slog.Logger] behavior.
//
// By using an abstraction we allow for unit testing and alternative implementations.
//
// This package uses two log levels:
//   - Info for stream lifecycle events (detectStart, detectDone, endOfStream,
//     streamError, and the pull-mode span events)
//   - Debug for per-chunk events (writeDone, deliverDone)
//
// The [*slog.Logger] type satisfies this interface.
type SLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

// DefaultSLogger returns the default [SLogger] to use.
//
// The default discards all output. Libraries should not write to
// stdout/stderr unless explicitly told to do so.
func DefaultSLogger() SLogger {
	return discardSLogger{}
}

type discardSLogger struct{}

var _ SLogger = discardSLogger{}

// Debug implements [SLogger].
func (discardSLogger) Debug(msg string, args ...any) {}

// Info implements [SLogger].
func (discardSLogger) Info(msg string, args ...any) {}
