// SPDX-License-Identifier: GPL-3.0-or-later

package typesniff

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/bassosimone/runtimex"
)

// AnySize is the [*Adapter.Request] size meaning "any amount".
const AnySize = 0

// ErrClosed is returned when using an [*Adapter] after [*Adapter.Close].
var ErrClosed = errors.New("typesniff: stream closed")

// ErrInvalidMode indicates that the [*Adapter] state machine reached
// an impossible state. It is reported through [Consumer.Error].
var ErrInvalidMode = errors.New("typesniff: invalid adapter mode")

// mode is the state of the [*Adapter] state machine.
type mode int

const (
	// modeDetecting buffers bytes until the content type is known.
	modeDetecting mode = iota

	// modePassThrough relays bytes to the consumer.
	modePassThrough
)

// String implements [fmt.Stringer].
func (m mode) String() string {
	switch m {
	case modeDetecting:
		return "detecting"
	case modePassThrough:
		return "passThrough"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Reasons for announcing a classification.
const (
	reasonClassifier = "classifier"
	reasonThreshold  = "threshold"
	reasonEOF        = "eof"
)

// NewAdapter returns a new [*Adapter] delivering bytes to the given [Consumer].
//
// The cfg argument contains the common configuration for typesniff primitives.
//
// The logger argument is the [SLogger] to use for structured logging.
//
// The callback argument is optional and, when not nil, is invoked once with
// the classification, after all the observers registered using
// [*Adapter.OnClassification].
//
// Panics if cfg or consumer are nil.
func NewAdapter(cfg *Config, logger SLogger, consumer Consumer, callback func(Classification)) *Adapter {
	runtimex.Assert(cfg != nil)
	runtimex.Assert(consumer != nil)
	return &Adapter{
		Classifier:     cfg.Classifier,
		ErrClassifier:  cfg.ErrClassifier,
		Logger:         logger,
		MaxDetectBytes: cfg.MaxDetectBytes,
		TimeNow:        cfg.TimeNow,
		callback:       callback,
		consumer:       consumer,
		mode:           modeDetecting,
		pending:        newPendingBuffer(cfg.BufferPool),
	}
}

// Adapter classifies the content type of a byte stream and relays it.
//
// The producer side is [io.WriteCloser]: Write buffers bytes and Close
// signals that no more input will follow. The consumer side is push-based:
// calling [*Adapter.Request] signals demand and the adapter delivers bytes
// through [Consumer.Deliver] until the consumer stops asking.
//
// While detecting, the adapter buffers everything and runs the Classifier
// on the whole buffer after each write. Once the classifier answers, or
// MaxDetectBytes bytes are buffered, or the producer closes the stream,
// the adapter announces the classification exactly once and switches to
// passing bytes through. No byte reaches the consumer before the
// announcement and EndOfStream only follows the last delivered byte.
//
// Write never blocks on consumer demand: with a stalled consumer the
// pending buffer grows without bound. Use [*Pipe] when the producer
// and the consumer run on different goroutines.
//
// An Adapter is not safe for concurrent use. Observers and consumer
// methods may call back into the Adapter.
//
// All fields are safe to modify after construction but before first use.
type Adapter struct {
	// Classifier classifies the stream prefix.
	//
	// Set by [NewAdapter] from [Config.Classifier].
	Classifier Classifier

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewAdapter] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use (configurable for testing or custom logging).
	//
	// Set by [NewAdapter] to the user-provided logger.
	Logger SLogger

	// MaxDetectBytes is the number of buffered bytes after which
	// we announce the [FallbackClassification].
	//
	// Set by [NewAdapter] from [Config.MaxDetectBytes].
	MaxDetectBytes int

	// TimeNow is the function to get the current time (configurable for testing).
	//
	// Set by [NewAdapter] from [Config.TimeNow].
	TimeNow func() time.Time

	bytesIn    int64
	bytesOut   int64
	callback   func(Classification)
	classified bool
	consumer   Consumer
	delivering bool
	eofSent    bool
	finished   bool
	mode       mode
	observers  []func(Classification)
	pending    *pendingBuffer
	readSize   int
	reading    bool
	requests   uint64
	result     Classification
	started    bool
	t0         time.Time
}

var _ io.WriteCloser = &Adapter{}

// OnClassification registers an observer for the classification.
//
// Observers run synchronously, in registration order, before the callback
// passed to [NewAdapter]. Registering after the announcement invokes fn
// immediately with the cached classification.
//
// Panics if fn is nil.
func (a *Adapter) OnClassification(fn func(Classification)) {
	runtimex.Assert(fn != nil)
	if a.classified {
		fn(a.result)
		return
	}
	a.observers = append(a.observers, fn)
}

// Classification returns the announced classification, if any.
func (a *Adapter) Classification() (Classification, bool) {
	return a.result, a.classified
}

// Buffered returns the number of bytes waiting to be delivered.
func (a *Adapter) Buffered() int {
	return a.pending.Len()
}

// Write implements [io.Writer].
//
// Write appends data to the pending buffer and returns without waiting for
// the consumer. After [*Adapter.Close], Write returns [ErrClosed].
func (a *Adapter) Write(data []byte) (int, error) {
	if a.finished {
		return 0, ErrClosed
	}
	a.start()

	if !a.delivering {
		a.pending.Compact()
	}
	a.pending.Append(data)
	a.bytesIn += int64(len(data))
	a.logWriteDone(len(data))

	switch a.mode {
	case modePassThrough:
		a.drain()

	case modeDetecting:
		a.detect(len(data))

	default:
		err := fmt.Errorf("%w: %s", ErrInvalidMode, a.mode)
		a.fail(err)
		return len(data), err
	}
	return len(data), nil
}

// Close implements [io.Closer].
//
// Close signals that no more input will follow. If the content type is still
// unknown, we announce the [FallbackClassification]. End-of-output follows
// immediately when nothing is buffered, otherwise once the consumer drains the
// buffer. A second call returns [ErrClosed].
func (a *Adapter) Close() error {
	if a.finished {
		return ErrClosed
	}
	a.start()
	a.finished = true
	if !a.classified {
		a.announce(FallbackClassification, reasonEOF)
	}
	a.maybeEnd()
	return nil
}

// Request signals that the consumer is ready to receive data.
//
// A positive size bounds each [Consumer.Deliver] call to size bytes; use
// [AnySize] to receive all the buffered bytes at once. Delivery continues
// until the buffer is empty or the consumer returns false.
func (a *Adapter) Request(size int) {
	if size < 0 {
		size = AnySize
	}
	a.reading = true
	a.readSize = size
	a.requests++
	a.drain()
}

func (a *Adapter) start() {
	if a.started {
		return
	}
	a.started = true
	a.t0 = a.TimeNow()
	a.Logger.Info("detectStart", slog.Time("t", a.t0))
}

func (a *Adapter) detect(count int) {
	if count <= 0 {
		return
	}
	if cls, ok := a.Classifier.Classify(a.pending.Bytes()); ok {
		a.announce(cls, reasonClassifier)
		return
	}
	if a.pending.Len() >= a.MaxDetectBytes {
		a.announce(FallbackClassification, reasonThreshold)
	}
}

// announce must switch mode before running observers, so that a
// Write issued by an observer passes through.
func (a *Adapter) announce(cls Classification, reason string) {
	a.mode = modePassThrough
	a.result = cls
	a.classified = true

	a.Logger.Info(
		"detectDone",
		slog.String("ext", cls.Extension),
		slog.String("mime", cls.MIME),
		slog.Int("pendingBytes", a.pending.Len()),
		slog.String("reason", reason),
		slog.Time("t0", a.t0),
		slog.Time("t", a.TimeNow()),
	)

	for _, fn := range a.observers {
		fn(cls)
	}
	if a.callback != nil {
		a.callback(cls)
	}

	a.drain()
}

func (a *Adapter) drain() {
	if a.delivering || a.mode != modePassThrough {
		return
	}
	a.delivering = true
	for a.reading && a.pending.Len() > 0 {
		chunk := a.pending.Next(a.readSize)
		a.bytesOut += int64(len(chunk))
		requests := a.requests
		wantMore := a.consumer.Deliver(chunk)
		a.reading = wantMore || a.requests != requests
		a.logDeliverDone(len(chunk), wantMore)
	}
	a.delivering = false
	if a.eofSent {
		a.pending.Release()
	}
	a.maybeEnd()
}

func (a *Adapter) maybeEnd() {
	if !a.finished || a.eofSent || a.pending.Len() > 0 {
		return
	}
	a.eofSent = true
	if !a.delivering {
		a.pending.Release()
	}
	a.Logger.Info(
		"endOfStream",
		slog.Int64("bytesIn", a.bytesIn),
		slog.Int64("bytesOut", a.bytesOut),
		slog.Time("t0", a.t0),
		slog.Time("t", a.TimeNow()),
	)
	a.consumer.EndOfStream()
}

func (a *Adapter) fail(err error) {
	a.Logger.Info(
		"streamError",
		slog.Any("err", err),
		slog.String("errClass", a.ErrClassifier.Classify(err)),
		slog.Time("t", a.TimeNow()),
	)
	a.consumer.Error(err)
}

// abort stops the stream without announcing a classification
// and without signaling end-of-output.
func (a *Adapter) abort() {
	a.finished = true
	a.eofSent = true
	if !a.delivering {
		a.pending.Release()
	}
}

func (a *Adapter) logWriteDone(count int) {
	a.Logger.Debug(
		"writeDone",
		slog.Int("ioBytesCount", count),
		slog.String("mode", a.mode.String()),
		slog.Int("pendingBytes", a.pending.Len()),
		slog.Time("t", a.TimeNow()),
	)
}

func (a *Adapter) logDeliverDone(count int, wantMore bool) {
	a.Logger.Debug(
		"deliverDone",
		slog.Int("ioBytesCount", count),
		slog.Int("pendingBytes", a.pending.Len()),
		slog.Bool("wantMore", wantMore),
		slog.Time("t", a.TimeNow()),
	)
}
