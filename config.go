// SPDX-License-Identifier: GPL-3.0-or-later

package typesniff

import (
	"time"

	"github.com/valyala/bytebufferpool"
)

// DefaultMaxDetectBytes is the default value of [Config.MaxDetectBytes].
//
// It matches the amount of data commonly required by magic-number based
// detectors to recognize every format they know about.
const DefaultMaxDetectBytes = 4100

// DefaultReadSize is the default value of [Config.ReadSize].
const DefaultReadSize = 512

// Config holds common configuration for typesniff primitives.
//
// Pass this to constructor functions to pre-wire dependencies.
// All fields have sensible defaults set by [NewConfig].
type Config struct {
	// BufferPool provides the arenas holding pending bytes.
	//
	// Set by [NewConfig] to a pool shared by all the [*Config] instances.
	BufferPool *bytebufferpool.Pool

	// Classifier classifies stream prefixes.
	//
	// Set by [NewConfig] to [FiletypeClassifier].
	Classifier Classifier

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewConfig] to [DefaultErrClassifier].
	ErrClassifier ErrClassifier

	// MaxDetectBytes is the number of buffered bytes after which
	// the [*Adapter] stops asking the Classifier and announces
	// the [FallbackClassification].
	//
	// Set by [NewConfig] to [DefaultMaxDetectBytes].
	MaxDetectBytes int

	// ReadSize is the size of the reads issued by pull-mode
	// primitives such as [*DetectFunc].
	//
	// Set by [NewConfig] to [DefaultReadSize].
	ReadSize int

	// TimeNow returns the current time.
	//
	// Set by [NewConfig] to [time.Now].
	TimeNow func() time.Time
}

// defaultBufferPool is the pool used by [NewConfig].
var defaultBufferPool = &bytebufferpool.Pool{}

// NewConfig creates a [*Config] with sensible defaults.
func NewConfig() *Config {
	return &Config{
		BufferPool:     defaultBufferPool,
		Classifier:     FiletypeClassifier{},
		ErrClassifier:  DefaultErrClassifier,
		MaxDetectBytes: DefaultMaxDetectBytes,
		ReadSize:       DefaultReadSize,
		TimeNow:        time.Now,
	}
}
