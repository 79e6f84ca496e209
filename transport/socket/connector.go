// File: transport/socket/connector.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Default api.Connector: TCP dial with tuned socket options, optionally
// tunnelled through an HTTP CONNECT proxy.

package socket

import (
	"context"
	"net"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/hioload-xio/api"
)

// Options tunes the sockets produced by a Dialer.
type Options struct {
	// NoDelay disables Nagle's algorithm.
	NoDelay bool
	// ReadBufferSize and WriteBufferSize set SO_RCVBUF / SO_SNDBUF when > 0.
	ReadBufferSize  int
	WriteBufferSize int
}

// Dialer implements api.Connector.
type Dialer struct {
	Timeout     time.Duration
	KeepAlive   time.Duration
	PollTimeout time.Duration
	Options     Options
	// Proxy routes the connection through an HTTP CONNECT tunnel when set.
	Proxy  *api.HTTPProxyOptions
	Logger *zap.Logger
}

var _ api.Connector = (*Dialer)(nil)

// NewDialer returns a Dialer with TCP_NODELAY set and a 30s connect timeout.
func NewDialer() *Dialer {
	return &Dialer{
		Timeout:     30 * time.Second,
		KeepAlive:   15 * time.Second,
		PollTimeout: DefaultPollTimeout,
		Options:     Options{NoDelay: true},
	}
}

// Connect resolves host and connects to port.
func (d *Dialer) Connect(ctx context.Context, host string, port int) (api.Socket, error) {
	if host == "" || port <= 0 || port > 65535 {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "invalid connect target").
			WithContext("host", host).
			WithContext("port", port)
	}

	target := net.JoinHostPort(host, strconv.Itoa(port))
	addr := target
	if d.Proxy != nil {
		if err := d.Proxy.Validate(); err != nil {
			return nil, err
		}
		addr = net.JoinHostPort(d.Proxy.HostAddress, strconv.Itoa(d.Proxy.Port))
	}

	nd := &net.Dialer{
		Timeout:   d.Timeout,
		KeepAlive: d.KeepAlive,
		Control: func(network, address string, rc syscall.RawConn) error {
			var serr error
			if err := rc.Control(func(fd uintptr) {
				serr = applyOptions(fd, d.Options)
			}); err != nil {
				return err
			}
			return serr
		},
	}

	conn, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, api.Wrap(api.ErrCodeUnderlyingIO, err, "dial").WithContext("addr", addr)
	}

	if d.Proxy != nil {
		tunnelled, err := connectTunnel(ctx, conn, target, d.Proxy)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		conn = tunnelled
	}

	if d.Logger != nil {
		d.Logger.Debug("socket connected",
			zap.String("target", target),
			zap.String("local", conn.LocalAddr().String()),
			zap.Bool("proxied", d.Proxy != nil))
	}
	return NewConn(conn, d.PollTimeout), nil
}

// WithProxy returns a copy of d that tunnels through p. A nil p returns d.
func (d *Dialer) WithProxy(p *api.HTTPProxyOptions) *Dialer {
	if p == nil {
		return d
	}
	cp := *d
	proxy := *p
	cp.Proxy = &proxy
	return &cp
}
