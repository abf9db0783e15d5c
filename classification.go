// SPDX-License-Identifier: GPL-3.0-or-later

package typesniff

// Classification describes the content type of a byte stream.
//
// A Classification is an immutable value. The [*Adapter] produces at most
// one per stream and caches it for the lifetime of the stream.
type Classification struct {
	// Extension is the conventional file extension without the leading
	// dot (e.g., "png"). Empty for [FallbackClassification].
	Extension string

	// MIME is the MIME type (e.g., "image/png").
	MIME string
}

// FallbackClassification is announced when the content type cannot be
// resolved before [Config.MaxDetectBytes] bytes or before the end of
// the stream, whichever comes first.
var FallbackClassification = Classification{
	Extension: "",
	MIME:      "application/octet-stream",
}

// Classifier maps a stream prefix to a [Classification].
//
// Classify must be pure and deterministic for a given prefix. Returning
// false means the prefix is not sufficient yet and more data is needed.
//
// The [*Adapter] does not recover panics raised by Classify: they propagate
// to the caller of [*Adapter.Write] or [*Adapter.Close]. Implementations
// wrapping libraries that return errors should map errors to false.
type Classifier interface {
	Classify(prefix []byte) (Classification, bool)
}

// ClassifierFunc adapts a function to the [Classifier] interface.
type ClassifierFunc func(prefix []byte) (Classification, bool)

var _ Classifier = ClassifierFunc(nil)

// Classify implements [Classifier].
func (f ClassifierFunc) Classify(prefix []byte) (Classification, bool) {
	return f(prefix)
}
