// SPDX-License-Identifier: GPL-3.0-or-later

package typesniff

import "github.com/valyala/bytebufferpool"

// pendingBuffer holds the bytes written but not delivered yet.
//
// The unread bytes are buf.B[off:]. Consuming from the head only advances
// off, so slices handed to the consumer stay valid until the next compact.
type pendingBuffer struct {
	buf  *bytebufferpool.ByteBuffer
	off  int
	pool *bytebufferpool.Pool
}

func newPendingBuffer(pool *bytebufferpool.Pool) *pendingBuffer {
	return &pendingBuffer{buf: nil, off: 0, pool: pool}
}

// Len returns the number of unread bytes.
func (pb *pendingBuffer) Len() int {
	if pb.buf == nil {
		return 0
	}
	return len(pb.buf.B) - pb.off
}

// Bytes returns the unread bytes without consuming them.
func (pb *pendingBuffer) Bytes() []byte {
	if pb.buf == nil {
		return nil
	}
	return pb.buf.B[pb.off:]
}

// Append copies data at the tail.
func (pb *pendingBuffer) Append(data []byte) {
	if pb.buf == nil {
		pb.buf = pb.pool.Get()
	}
	pb.buf.B = append(pb.buf.B, data...)
}

// Next consumes up to count bytes from the head, or all the unread
// bytes when count is not positive.
func (pb *pendingBuffer) Next(count int) []byte {
	unread := pb.Bytes()
	if count <= 0 || count > len(unread) {
		count = len(unread)
	}
	pb.off += count
	return unread[:count:count]
}

// Compact reclaims the consumed prefix of the arena. The caller must
// ensure no slice returned by Next is still in use.
func (pb *pendingBuffer) Compact() {
	if pb.buf == nil || pb.off <= 0 {
		return
	}
	switch unread := pb.Len(); {
	case unread <= 0:
		pb.buf.Reset()
		pb.off = 0
	case pb.off >= unread:
		copied := copy(pb.buf.B, pb.buf.B[pb.off:])
		pb.buf.B = pb.buf.B[:copied]
		pb.off = 0
	}
}

// Release returns the arena to the pool. The caller must ensure the
// buffer is empty. The next Append acquires a new arena.
func (pb *pendingBuffer) Release() {
	if pb.buf == nil {
		return
	}
	pb.pool.Put(pb.buf)
	pb.buf = nil
	pb.off = 0
}
