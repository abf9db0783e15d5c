// SPDX-License-Identifier: GPL-3.0-or-later

package typesniff

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/bassosimone/netstub"
	"github.com/bassosimone/slogstub"
)

// pngSignature is the magic number of PNG files.
var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// newCapturingLogger returns a logger that captures all log records into the
// returned slice. The caller can inspect the slice after exercising the code
// under test to verify which events were emitted.
func newCapturingLogger() (*slog.Logger, *[]slog.Record) {
	var records []slog.Record
	handler := &slogstub.FuncHandler{
		EnabledFunc: func(ctx context.Context, level slog.Level) bool {
			return true
		},
		HandleFunc: func(ctx context.Context, record slog.Record) error {
			records = append(records, record)
			return nil
		},
	}
	return slog.New(handler), &records
}

// recordMessages returns the messages of the given records.
func recordMessages(records []slog.Record) []string {
	var messages []string
	for _, record := range records {
		messages = append(messages, record.Message)
	}
	return messages
}

// recordAttr returns the value of the attribute with the given key.
func recordAttr(record slog.Record, key string) (value slog.Value, found bool) {
	record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == key {
			value, found = attr.Value, true
			return false
		}
		return true
	})
	return
}

// neverClassifier is a [Classifier] that always needs more data.
var neverClassifier = ClassifierFunc(func([]byte) (Classification, bool) {
	return Classification{}, false
})

// streamRecorder is a [Consumer] recording what the [*Adapter] does.
//
// The events slice interleaves classifications ("classify:<mime>"),
// deliveries ("deliver:<count>"), end of stream ("eos"), and errors
// ("error") so that tests can check their relative order.
type streamRecorder struct {
	// data contains the delivered bytes.
	data []byte

	// chunks contains the size of each delivery.
	chunks []int

	// errs contains the reported errors.
	errs []error

	// events contains the ordered events.
	events []string

	// wantMore is the demand returned by Deliver (nil means always true).
	wantMore func(data []byte) bool
}

var _ Consumer = &streamRecorder{}

func (r *streamRecorder) Deliver(data []byte) bool {
	r.data = append(r.data, data...)
	r.chunks = append(r.chunks, len(data))
	r.events = append(r.events, fmt.Sprintf("deliver:%d", len(data)))
	if r.wantMore == nil {
		return true
	}
	return r.wantMore(data)
}

func (r *streamRecorder) EndOfStream() {
	r.events = append(r.events, "eos")
}

func (r *streamRecorder) Error(err error) {
	r.errs = append(r.errs, err)
	r.events = append(r.events, "error")
}

// observe returns an observer recording the classification as an event.
func (r *streamRecorder) observe(tag string) func(Classification) {
	return func(cls Classification) {
		r.events = append(r.events, tag+":"+cls.MIME)
	}
}

// newMinimalConn returns a [*netstub.FuncConn] with only LocalAddrFunc and
// RemoteAddrFunc set. This is the minimum needed for code that calls
// [safeconn.LocalAddr], [safeconn.RemoteAddr], and [safeconn.Network].
func newMinimalConn() *netstub.FuncConn {
	return &netstub.FuncConn{
		LocalAddrFunc:  func() net.Addr { return &net.TCPAddr{} },
		RemoteAddrFunc: func() net.Addr { return &net.TCPAddr{} },
	}
}
