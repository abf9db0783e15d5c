// SPDX-License-Identifier: GPL-3.0-or-later

package typesniff

import (
	"context"
	"io"
	"sync"
)

// NewPipe returns a new [*Pipe].
//
// The cfg argument contains the common configuration for typesniff primitives.
//
// The logger argument is the [SLogger] to use for structured logging.
func NewPipe(cfg *Config, logger SLogger) *Pipe {
	p := &Pipe{classified: make(chan struct{})}
	p.cond = sync.NewCond(&p.mu)
	p.adapter = NewAdapter(cfg, logger, &ConsumerFuncs{
		DeliverFunc:     p.deliver,
		EndOfStreamFunc: p.endOfStream,
		ErrorFunc:       p.fail,
	}, p.signalClassified)
	return p
}

// Pipe is a synchronous in-memory pipe that classifies what flows through it.
//
// The producer uses Write and Close (or CloseWithError). The consumer uses
// Read, which blocks until the content type has been announced and bytes
// are available. Each Read asks the underlying [*Adapter] for at most
// len(buf) bytes. Writes never block: see [*Adapter] for the buffering
// tradeoff.
//
// A Pipe is safe for concurrent use by one producer and one consumer.
type Pipe struct {
	adapter    *Adapter
	classified chan struct{}
	closed     bool
	cond       *sync.Cond
	eof        bool
	err        error
	mu         sync.Mutex
	staged     []byte
	werr       error
}

var (
	_ io.Reader      = &Pipe{}
	_ io.WriteCloser = &Pipe{}
)

// OnClassification registers an observer for the classification.
//
// An observer registered before the announcement runs from within Write or
// Close while the pipe is locked and must not call back into it. When the
// classification is already known, fn runs immediately without the lock.
func (p *Pipe) OnClassification(fn func(Classification)) {
	p.mu.Lock()
	if cls, ok := p.adapter.Classification(); ok {
		p.mu.Unlock()
		fn(cls)
		return
	}
	p.adapter.OnClassification(fn)
	p.mu.Unlock()
}

// Classification blocks until the classification is announced or the
// context is done, in which case it returns the context error.
func (p *Pipe) Classification(ctx context.Context) (Classification, error) {
	select {
	case <-p.classified:
		p.mu.Lock()
		defer p.mu.Unlock()
		cls, _ := p.adapter.Classification()
		return cls, nil
	case <-ctx.Done():
		return Classification{}, ctx.Err()
	}
}

// Write implements [io.Writer].
func (p *Pipe) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.adapter.Write(data)
}

// Close implements [io.Closer].
//
// Readers get [io.EOF] once the buffered bytes have been read.
func (p *Pipe) Close() error {
	return p.CloseWithError(nil)
}

// CloseWithError closes the producer side. Readers get err instead
// of [io.EOF] once the buffered bytes have been read. Only the first
// close counts: later calls return [ErrClosed] and change nothing.
func (p *Pipe) CloseWithError(err error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.closed = true
	p.werr = err
	defer p.cond.Broadcast()
	return p.adapter.Close()
}

// Read implements [io.Reader].
func (p *Pipe) Read(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(buf) <= 0 {
		return 0, nil
	}
	for {
		if len(p.staged) > 0 {
			count := copy(buf, p.staged)
			p.staged = p.staged[count:]
			return count, nil
		}
		if p.err != nil {
			return 0, p.err
		}
		if p.eof {
			if p.werr != nil {
				return 0, p.werr
			}
			return 0, io.EOF
		}
		p.adapter.Request(len(buf))
		if len(p.staged) <= 0 && !p.eof && p.err == nil {
			p.cond.Wait()
		}
	}
}

// The following methods run with p.mu held.

func (p *Pipe) deliver(data []byte) bool {
	p.staged = append(p.staged, data...)
	p.cond.Broadcast()
	return false
}

func (p *Pipe) endOfStream() {
	p.eof = true
	p.cond.Broadcast()
}

func (p *Pipe) fail(err error) {
	p.err = err
	p.cond.Broadcast()
}

func (p *Pipe) signalClassified(Classification) {
	close(p.classified)
}
