// SPDX-License-Identifier: GPL-3.0-or-later

package typesniff

// Consumer is the readable side of an [*Adapter].
//
// The adapter calls Deliver zero or more times, then EndOfStream at most
// once. Error is called for non-recoverable internal errors.
type Consumer interface {
	// Deliver receives the next bytes of the stream in order.
	//
	// The data slice is only valid until Deliver returns; copy it
	// if you need to keep it (the same rule as [io.Writer]).
	//
	// The return value is the demand signal: true means the consumer
	// wants more now, false pauses delivery until the next call
	// to [*Adapter.Request].
	Deliver(data []byte) bool

	// EndOfStream signals that all the bytes have been delivered.
	EndOfStream()

	// Error reports a non-recoverable adapter error.
	Error(err error)
}

// ConsumerFuncs adapts functions to the [Consumer] interface.
//
// A nil DeliverFunc discards the data and keeps asking for more.
// Nil EndOfStreamFunc and ErrorFunc do nothing.
type ConsumerFuncs struct {
	DeliverFunc     func(data []byte) bool
	EndOfStreamFunc func()
	ErrorFunc       func(err error)
}

var _ Consumer = &ConsumerFuncs{}

// Deliver implements [Consumer].
func (c *ConsumerFuncs) Deliver(data []byte) bool {
	if c.DeliverFunc == nil {
		return true
	}
	return c.DeliverFunc(data)
}

// EndOfStream implements [Consumer].
func (c *ConsumerFuncs) EndOfStream() {
	if c.EndOfStreamFunc != nil {
		c.EndOfStreamFunc()
	}
}

// Error implements [Consumer].
func (c *ConsumerFuncs) Error(err error) {
	if c.ErrorFunc != nil {
		c.ErrorFunc(err)
	}
}
