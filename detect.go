// SPDX-License-Identifier: GPL-3.0-or-later

package typesniff

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/valyala/bytebufferpool"
)

// NewDetectFunc returns a new [*DetectFunc].
//
// The cfg argument contains the common configuration for typesniff primitives.
//
// The logger argument is the [SLogger] to use for structured logging.
func NewDetectFunc(cfg *Config, logger SLogger) *DetectFunc {
	return &DetectFunc{
		BufferPool:     cfg.BufferPool,
		Classifier:     cfg.Classifier,
		ErrClassifier:  cfg.ErrClassifier,
		Logger:         logger,
		MaxDetectBytes: cfg.MaxDetectBytes,
		ReadSize:       cfg.ReadSize,
		TimeNow:        cfg.TimeNow,
	}
}

// Detection is the result of [*DetectFunc].
type Detection struct {
	// Classification is the detected content type.
	Classification Classification

	// Reader returns the whole stream, including the bytes
	// consumed to detect the content type.
	Reader io.Reader
}

// DetectFunc reads from an [io.Reader] until the content type is known.
//
// This is the pull-mode counterpart of [*Adapter]: bytes are read in chunks of
// ReadSize and written into an adapter until it announces the classification
// or the reader returns [io.EOF]. The returned [*Detection] replays the bytes
// that have been read followed by the rest of the source.
//
// The context is checked between reads. A blocking Read on the source is not
// interrupted: use [*ClassifyConnFunc] for network connections.
//
// All fields are safe to modify after construction but before first use.
// Fields must not be mutated concurrently with calls to [Call].
type DetectFunc struct {
	// BufferPool provides the adapter arenas.
	//
	// Set by [NewDetectFunc] from [Config.BufferPool].
	BufferPool *bytebufferpool.Pool

	// Classifier classifies the stream prefix.
	//
	// Set by [NewDetectFunc] from [Config.Classifier].
	Classifier Classifier

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewDetectFunc] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use (configurable for testing or custom logging).
	//
	// Set by [NewDetectFunc] to the user-provided logger.
	Logger SLogger

	// MaxDetectBytes bounds the bytes read before falling back.
	//
	// Set by [NewDetectFunc] from [Config.MaxDetectBytes].
	MaxDetectBytes int

	// ReadSize is the size of each read from the source.
	//
	// Set by [NewDetectFunc] from [Config.ReadSize].
	ReadSize int

	// TimeNow is the function to get the current time (configurable for testing).
	//
	// Set by [NewDetectFunc] from [Config.TimeNow].
	TimeNow func() time.Time
}

var _ Func[io.Reader, *Detection] = &DetectFunc{}

// Call invokes the [*DetectFunc] to classify the given [io.Reader].
//
// Returns either a valid [*Detection] or an error, never both.
func (op *DetectFunc) Call(ctx context.Context, source io.Reader) (*Detection, error) {
	t0 := op.TimeNow()
	op.Logger.Info("detectStreamStart", slog.Time("t", t0))

	cls, prefix, err := op.detect(ctx, source)

	op.Logger.Info(
		"detectStreamDone",
		slog.Any("err", err),
		slog.String("errClass", op.ErrClassifier.Classify(err)),
		slog.String("ext", cls.Extension),
		slog.Int("ioBytesCount", len(prefix)),
		slog.String("mime", cls.MIME),
		slog.Time("t0", t0),
		slog.Time("t", op.TimeNow()),
	)

	if err != nil {
		return nil, err
	}
	return &Detection{
		Classification: cls,
		Reader:         io.MultiReader(bytes.NewReader(prefix), source),
	}, nil
}

// detect drives an [*Adapter] with data read from source and returns the
// classification along with all the bytes read so far.
//
// On failure, the adapter is aborted so that it does not announce
// a classification that never happened.
func (op *DetectFunc) detect(ctx context.Context, source io.Reader) (cls Classification, prefix []byte, err error) {
	consumer := &ConsumerFuncs{
		DeliverFunc: func(data []byte) bool {
			prefix = append(prefix, data...)
			return true
		},
	}
	adapter := NewAdapter(op.config(), op.Logger, consumer, nil)
	defer func() {
		if err != nil {
			adapter.abort()
			return
		}
		adapter.Close()
	}()
	adapter.Request(AnySize)

	size := op.ReadSize
	if size <= 0 {
		size = DefaultReadSize
	}
	buf := make([]byte, size)

	for {
		if cls, ok := adapter.Classification(); ok {
			return cls, prefix, nil
		}
		if err := ctx.Err(); err != nil {
			return Classification{}, nil, err
		}

		count, err := source.Read(buf)
		if count > 0 {
			if _, werr := adapter.Write(buf[:count]); werr != nil {
				return Classification{}, nil, werr
			}
		}

		switch {
		case errors.Is(err, io.EOF):
			adapter.Close()
			cls, _ := adapter.Classification()
			return cls, prefix, nil

		case err != nil:
			return Classification{}, nil, err
		}
	}
}

func (op *DetectFunc) config() *Config {
	return &Config{
		BufferPool:     op.BufferPool,
		Classifier:     op.Classifier,
		ErrClassifier:  op.ErrClassifier,
		MaxDetectBytes: op.MaxDetectBytes,
		ReadSize:       op.ReadSize,
		TimeNow:        op.TimeNow,
	}
}
