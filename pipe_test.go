// SPDX-License-Identifier: GPL-3.0-or-later

package typesniff

import (
	"bytes"
	"context"
	"errors"
	"io"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// Bytes written by one goroutine are read back unchanged by another.
func TestPipeConcurrent(t *testing.T) {
	input := append(bytes.Clone(pngSignature), bytes.Repeat([]byte("IDAT"), 25000)...)

	pipe := NewPipe(NewConfig(), DefaultSLogger())
	var observed []Classification
	pipe.OnClassification(func(cls Classification) {
		observed = append(observed, cls)
	})

	var (
		eg     errgroup.Group
		output []byte
	)
	eg.Go(func() error {
		for chunk := range slices.Chunk(input, 333) {
			if _, err := pipe.Write(chunk); err != nil {
				return err
			}
		}
		return pipe.Close()
	})
	eg.Go(func() error {
		data, err := io.ReadAll(pipe)
		output = data
		return err
	})
	require.NoError(t, eg.Wait())

	assert.Equal(t, input, output)

	cls, err := pipe.Classification(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Classification{Extension: "png", MIME: "image/png"}, cls)
	assert.Equal(t, []Classification{cls}, observed)
}

// Each Read asks for at most len(buf) bytes and EOF follows the last byte.
func TestPipeReadSize(t *testing.T) {
	cfg := NewConfig()
	cfg.Classifier = neverClassifier
	pipe := NewPipe(cfg, DefaultSLogger())

	_, err := pipe.Write([]byte("0123456789"))
	require.NoError(t, err)
	require.NoError(t, pipe.Close())

	buf := make([]byte, 4)
	var counts []int
	for {
		count, err := pipe.Read(buf)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		counts = append(counts, count)
	}
	assert.Equal(t, []int{4, 4, 2}, counts)

	cls, err := pipe.Classification(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FallbackClassification, cls)
}

// A zero-length read returns immediately.
func TestPipeEmptyRead(t *testing.T) {
	pipe := NewPipe(NewConfig(), DefaultSLogger())

	count, err := pipe.Read(nil)

	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

// CloseWithError delivers the buffered bytes, then the error.
func TestPipeCloseWithError(t *testing.T) {
	pipe := NewPipe(NewConfig(), DefaultSLogger())
	wantErr := errors.New("producer failed")

	_, err := pipe.Write(pngSignature)
	require.NoError(t, err)
	require.NoError(t, pipe.CloseWithError(wantErr))

	data, err := io.ReadAll(pipe)

	require.ErrorIs(t, err, wantErr)
	assert.Equal(t, pngSignature, data)
}

// Writing to or closing a closed pipe fails.
func TestPipeClosed(t *testing.T) {
	pipe := NewPipe(NewConfig(), DefaultSLogger())
	require.NoError(t, pipe.Close())

	_, err := pipe.Write([]byte("late"))
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, pipe.Close(), ErrClosed)

	count, err := pipe.Read(make([]byte, 8))
	assert.Equal(t, 0, count)
	require.ErrorIs(t, err, io.EOF)
}

// Waiting for the classification honours the context.
func TestPipeClassificationContext(t *testing.T) {
	pipe := NewPipe(NewConfig(), DefaultSLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := pipe.Classification(ctx)

	require.ErrorIs(t, err, context.DeadlineExceeded)
}

// A blocked reader wakes up once the classification unblocks delivery.
func TestPipeReaderWaitsForClassification(t *testing.T) {
	cfg := NewConfig()
	cfg.MaxDetectBytes = 8
	cfg.Classifier = neverClassifier
	pipe := NewPipe(cfg, DefaultSLogger())

	done := make(chan []byte)
	go func() {
		buf := make([]byte, 64)
		count, _ := pipe.Read(buf)
		done <- buf[:count]
	}()

	_, err := pipe.Write([]byte("abcd"))
	require.NoError(t, err)
	select {
	case <-done:
		t.Fatal("read should block while detecting")
	case <-time.After(10 * time.Millisecond):
	}

	_, err = pipe.Write([]byte("efgh"))
	require.NoError(t, err)
	assert.Equal(t, []byte("abcdefgh"), <-done)
}

// The first close decides what readers get at the end of the stream.
func TestPipeFirstCloseWins(t *testing.T) {
	t.Run("Close then CloseWithError", func(t *testing.T) {
		pipe := NewPipe(NewConfig(), DefaultSLogger())
		_, err := pipe.Write(pngSignature)
		require.NoError(t, err)
		require.NoError(t, pipe.Close())

		require.ErrorIs(t, pipe.CloseWithError(errors.New("late")), ErrClosed)

		data, err := io.ReadAll(pipe)
		require.NoError(t, err)
		assert.Equal(t, pngSignature, data)
	})

	t.Run("CloseWithError then CloseWithError", func(t *testing.T) {
		pipe := NewPipe(NewConfig(), DefaultSLogger())
		wantErr := errors.New("producer failed")
		require.NoError(t, pipe.CloseWithError(wantErr))

		require.ErrorIs(t, pipe.CloseWithError(errors.New("late")), ErrClosed)

		_, err := io.ReadAll(pipe)
		require.ErrorIs(t, err, wantErr)
	})
}

// An observer registered after the announcement may call back into the pipe.
func TestPipeLateObserverCallsBack(t *testing.T) {
	pipe := NewPipe(NewConfig(), DefaultSLogger())
	_, err := pipe.Write(pngSignature)
	require.NoError(t, err)
	require.NoError(t, pipe.Close())

	var (
		observed Classification
		data     []byte
	)
	pipe.OnClassification(func(Classification) {
		observed, err = pipe.Classification(context.Background())
		require.NoError(t, err)
		data, err = io.ReadAll(pipe)
		require.NoError(t, err)
	})

	assert.Equal(t, "image/png", observed.MIME)
	assert.Equal(t, pngSignature, data)
}
