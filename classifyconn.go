// SPDX-License-Identifier: GPL-3.0-or-later

package typesniff

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/bassosimone/safeconn"
)

// NewClassifyConnFunc returns a new [*ClassifyConnFunc].
//
// The cfg argument contains the common configuration for typesniff primitives.
//
// The logger argument is the [SLogger] to use for structured logging.
func NewClassifyConnFunc(cfg *Config, logger SLogger) *ClassifyConnFunc {
	return &ClassifyConnFunc{
		Detector:      NewDetectFunc(cfg, DefaultSLogger()),
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		TimeNow:       cfg.TimeNow,
	}
}

// ClassifyConnFunc classifies the first bytes received from a [net.Conn].
//
// Useful on the accepting side of a listener to tell protocols or payloads
// apart before handing the connection over. The returned [*ClassifiedConn]
// replays the bytes consumed during detection before reading from the
// underlying connection again.
//
// When the context is done while reading, the read deadline is moved to the
// past to interrupt the pending read, then cleared. On failure, the
// connection is closed.
//
// All fields are safe to modify after construction but before first use.
// Fields must not be mutated concurrently with calls to [Call].
type ClassifyConnFunc struct {
	// Detector reads from the connection until the content type is known.
	//
	// Set by [NewClassifyConnFunc] using the [Config] and a discarding logger.
	Detector *DetectFunc

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewClassifyConnFunc] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use (configurable for testing or custom logging).
	//
	// Set by [NewClassifyConnFunc] to the user-provided logger.
	Logger SLogger

	// TimeNow is the function to get the current time (configurable for testing).
	//
	// Set by [NewClassifyConnFunc] from [Config.TimeNow].
	TimeNow func() time.Time
}

var _ Func[net.Conn, *ClassifiedConn] = &ClassifyConnFunc{}

// Call invokes the [*ClassifyConnFunc] to classify the given [net.Conn].
func (op *ClassifyConnFunc) Call(ctx context.Context, conn net.Conn) (*ClassifiedConn, error) {
	laddr, protocol, raddr := safeconn.LocalAddr(conn), safeconn.Network(conn), safeconn.RemoteAddr(conn)

	t0 := op.TimeNow()
	deadline, _ := ctx.Deadline()
	op.Logger.Info(
		"classifyConnStart",
		slog.Time("deadline", deadline),
		slog.String("localAddr", laddr),
		slog.String("protocol", protocol),
		slog.String("remoteAddr", raddr),
		slog.Time("t", t0),
	)

	interrupted := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(interrupted)
		conn.SetReadDeadline(time.Unix(1, 0))
	})

	cls, prefix, err := op.Detector.detect(ctx, conn)

	if !stop() {
		<-interrupted
		conn.SetReadDeadline(time.Time{})
		if err != nil {
			err = ctx.Err()
		}
	}

	op.Logger.Info(
		"classifyConnDone",
		slog.Time("deadline", deadline),
		slog.Any("err", err),
		slog.String("errClass", op.ErrClassifier.Classify(err)),
		slog.String("ext", cls.Extension),
		slog.Int("ioBytesCount", len(prefix)),
		slog.String("localAddr", laddr),
		slog.String("mime", cls.MIME),
		slog.String("protocol", protocol),
		slog.String("remoteAddr", raddr),
		slog.Time("t0", t0),
		slog.Time("t", op.TimeNow()),
	)

	if err != nil {
		conn.Close()
		return nil, err
	}
	return &ClassifiedConn{Conn: conn, classification: cls, prefix: prefix}, nil
}

// ClassifiedConn is a [net.Conn] whose content type is known.
//
// Read first returns the bytes consumed while classifying, then
// reads from the underlying connection.
type ClassifiedConn struct {
	net.Conn
	classification Classification
	prefix         []byte
}

// Classification returns the content type of the connection.
func (c *ClassifiedConn) Classification() Classification {
	return c.classification
}

// Read implements [net.Conn].
func (c *ClassifiedConn) Read(buf []byte) (int, error) {
	if len(c.prefix) > 0 {
		count := copy(buf, c.prefix)
		c.prefix = c.prefix[count:]
		return count, nil
	}
	return c.Conn.Read(buf)
}
