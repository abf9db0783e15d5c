// SPDX-License-Identifier: GPL-3.0-or-later

package typesniff

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/h2non/filetype"
)

// FiletypeClassifier is a [Classifier] using magic numbers
// from [github.com/h2non/filetype].
//
// It only answers when a known signature matches, which makes it a good
// fit for the threshold logic of [*Adapter]: short prefixes of unknown
// content keep returning false until more data arrives.
//
// This is the default [Config.Classifier].
type FiletypeClassifier struct{}

var _ Classifier = FiletypeClassifier{}

// Classify implements [Classifier].
func (FiletypeClassifier) Classify(prefix []byte) (Classification, bool) {
	kind, err := filetype.Match(prefix)
	if err != nil || kind == filetype.Unknown {
		return Classification{}, false
	}
	return Classification{Extension: kind.Extension, MIME: kind.MIME.Value}, true
}

// MimetypeClassifier is a [Classifier] using [github.com/gabriel-vasile/mimetype].
//
// The mimetype library always produces a result, falling back to its root
// type "application/octet-stream" when nothing matches. We map the root type
// to false so that the [*Adapter] keeps accumulating bytes. Note that text
// detection is heuristic: a short printable prefix is classified as
// "text/plain" right away.
type MimetypeClassifier struct{}

var _ Classifier = MimetypeClassifier{}

// Classify implements [Classifier].
func (MimetypeClassifier) Classify(prefix []byte) (Classification, bool) {
	if len(prefix) <= 0 {
		return Classification{}, false
	}
	mtype := mimetype.Detect(prefix)
	if mtype.Is(FallbackClassification.MIME) {
		return Classification{}, false
	}
	return Classification{
		Extension: strings.TrimPrefix(mtype.Extension(), "."),
		MIME:      mtype.String(),
	}, true
}
