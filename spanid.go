// SPDX-License-Identifier: GPL-3.0-or-later

package typesniff

import (
	"github.com/bassosimone/runtimex"
	"github.com/google/uuid"
)

// NewSpanID returns a UUIDv7 identifying a span.
//
// In this package a span is the lifetime of a single stream: from the first
// byte written into an [*Adapter] until end-of-output. Attach the span ID to
// the logger using [*slog.Logger.With] so that detectStart, detectDone and
// endOfStream for the same stream can be correlated.
//
// Panics if the system random number generator fails.
func NewSpanID() string {
	return runtimex.PanicOnError1(uuid.NewV7()).String()
}
