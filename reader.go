// SPDX-License-Identifier: GPL-3.0-or-later

package typesniff

import "io"

// NewReaderFunc returns a [Func] that always returns the given [io.Reader].
//
// Use it to feed an already open source into a pipeline:
//
//	pipeline := Compose2(NewReaderFunc(file), NewDetectFunc(cfg, logger))
func NewReaderFunc(source io.Reader) Func[Unit, io.Reader] {
	return ConstFunc(source)
}
