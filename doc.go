// SPDX-License-Identifier: GPL-3.0-or-later

// Package typesniff detects the content type of in-flight byte streams.
//
// # Core Abstraction
//
// The [*Adapter] sits between a producer and a consumer. It buffers the first
// bytes of the stream just long enough for a [Classifier] to recognize the
// content type, announces the [Classification] exactly once, and then relays
// every byte, including the buffered prefix, in the original order.
//
// The producer side is an [io.WriteCloser]. The consumer side is push-based
// with explicit demand: the consumer calls [*Adapter.Request] and receives
// bytes through [Consumer.Deliver], which returns whether it wants more.
//
// The classification is always announced before the first byte reaches the
// consumer, and end-of-output is only signaled once everything has been
// delivered. Streams that end, or that grow beyond [Config.MaxDetectBytes],
// before the classifier answers get the [FallbackClassification].
//
// # Available Primitives
//
// Stream adapters:
//   - [*Adapter]: single-goroutine state machine (created via [NewAdapter])
//   - [*Pipe]: goroutine-safe [io.Reader]/[io.WriteCloser] built on [*Adapter]
//
// Classifiers:
//   - [FiletypeClassifier]: magic numbers via github.com/h2non/filetype (default)
//   - [MimetypeClassifier]: github.com/gabriel-vasile/mimetype
//   - [ClassifierFunc]: wrap a function as a [Classifier]
//
// Pull-mode primitives, implementing [Func]:
//   - [*DetectFunc]: classifies an [io.Reader] and returns a reader replaying it
//   - [*ClassifyConnFunc]: classifies the first bytes received from a [net.Conn]
//
// Composition utilities:
//   - [Compose2], [Compose3]: chain Funcs into pipelines
//   - [FuncAdapter], [Apply], [ConstFunc], [NewReaderFunc]
//
// # Observability
//
// All primitives support structured logging via [SLogger] (compatible with [log/slog]).
// By default, logging is disabled. Error classification is configurable via
// [ErrClassifier]; by default, [DefaultErrClassifier] is used.
//
// The [*Adapter] emits detectStart on the first write or close, detectDone
// when announcing (with the reason: classifier, threshold or eof), endOfStream,
// and streamError. Per-chunk events (writeDone, deliverDone) are emitted at
// [slog.LevelDebug]; all other events use [slog.LevelInfo].
//
// Use [NewSpanID] to generate a unique, time-ordered identifier (UUIDv7) for each
// stream, then attach it to the logger with [*slog.Logger.With].
//
// # Design Boundaries
//
// The [*Adapter] does not propagate backpressure to the producer: writes are
// always accepted and buffered. A producer much faster than a paused consumer
// grows the pending buffer without limit. Classification is data-driven only:
// there are no timeouts, no retries and no re-classification.
package typesniff
