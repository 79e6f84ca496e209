// File: transport/socket/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Non-blocking view of a connected net.Conn: reads are bounded by a short
// deadline and report api.ErrWouldBlock when nothing arrived.

package socket

import (
	"errors"
	"net"
	"os"
	"time"

	"github.com/momentics/hioload-xio/api"
)

// DefaultPollTimeout bounds a single Read.
const DefaultPollTimeout = time.Millisecond

// Conn implements api.Socket over a net.Conn.
type Conn struct {
	conn        net.Conn
	pollTimeout time.Duration
}

var _ api.Socket = (*Conn)(nil)

// NewConn wraps conn. pollTimeout <= 0 selects DefaultPollTimeout.
func NewConn(conn net.Conn, pollTimeout time.Duration) *Conn {
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}
	return &Conn{conn: conn, pollTimeout: pollTimeout}
}

// Read fills p with whatever arrives within the poll timeout.
func (c *Conn) Read(p []byte) (int, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.pollTimeout)); err != nil {
		return 0, api.Wrap(api.ErrCodeUnderlyingIO, err, "set read deadline")
	}
	n, err := c.conn.Read(p)
	if err != nil {
		if IsTimeout(err) {
			if n > 0 {
				return n, nil
			}
			return 0, api.ErrWouldBlock
		}
		return n, api.Wrap(api.ErrCodeUnderlyingIO, err, "socket read")
	}
	return n, nil
}

// Write transmits all of p.
func (c *Conn) Write(p []byte) (int, error) {
	if err := c.conn.SetWriteDeadline(time.Time{}); err != nil {
		return 0, api.Wrap(api.ErrCodeUnderlyingIO, err, "clear write deadline")
	}
	n, err := c.conn.Write(p)
	if err != nil {
		return n, api.Wrap(api.ErrCodeUnderlyingIO, err, "socket write")
	}
	return n, nil
}

// Close the connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// NetConn returns the wrapped connection.
func (c *Conn) NetConn() net.Conn {
	return c.conn
}

// PollTimeout returns the per-read bound.
func (c *Conn) PollTimeout() time.Duration {
	return c.pollTimeout
}

// IsTimeout reports whether err is a deadline expiry.
func IsTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
