// SPDX-License-Identifier: GPL-3.0-or-later

package typesniff

import "context"

// Func is a generic operation that accepts an input and returns a result.
//
// The pull-mode primitives of this package ([*DetectFunc], [*ClassifyConnFunc])
// implement Func so that they can be chained using [Compose2] and [Compose3]
// with the caller's own stages (e.g., opening a file or accepting a connection).
//
// Resource cleanup contract: when a Func receives a closeable resource as input
// and returns an error, it is responsible for closing that resource before returning.
// See [*ClassifyConnFunc] for an example of this pattern.
type Func[A, B any] interface {
	Call(ctx context.Context, input A) (B, error)
}

// FuncAdapter wraps a function as a [Func] implementation.
type FuncAdapter[A, B any] func(ctx context.Context, input A) (B, error)

// Call implements [Func].
func (f FuncAdapter[A, B]) Call(ctx context.Context, input A) (B, error) {
	return f(ctx, input)
}
