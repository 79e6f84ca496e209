// File: fake/session.go
// Author: momentics <momentics@gmail.com>
//
// In-memory connector, socket and secure session.

package fake

import (
	"context"
	"net"

	"github.com/momentics/hioload-xio/api"
)

// Socket is an in-memory api.Socket.
type Socket struct {
	Inbound  [][]byte
	ReadErr  error
	WriteErr error
	Written  []byte
	Closed   bool
	Conn     net.Conn
}

var _ api.Socket = (*Socket)(nil)

// Read returns the next inbound chunk or api.ErrWouldBlock.
func (s *Socket) Read(p []byte) (int, error) {
	if s.ReadErr != nil {
		return 0, s.ReadErr
	}
	if len(s.Inbound) == 0 {
		return 0, api.ErrWouldBlock
	}
	n := copy(p, s.Inbound[0])
	if n < len(s.Inbound[0]) {
		s.Inbound[0] = s.Inbound[0][n:]
	} else {
		s.Inbound = s.Inbound[1:]
	}
	return n, nil
}

// Write records p.
func (s *Socket) Write(p []byte) (int, error) {
	if s.WriteErr != nil {
		return 0, s.WriteErr
	}
	s.Written = append(s.Written, p...)
	return len(p), nil
}

// Close marks the socket closed.
func (s *Socket) Close() error {
	s.Closed = true
	return nil
}

// NetConn returns Conn, which may be nil.
func (s *Socket) NetConn() net.Conn {
	return s.Conn
}

// Connector hands out Socket or fails with Err.
type Connector struct {
	Socket *Socket
	Err    error
	Hosts  []string
	Ports  []int
}

var _ api.Connector = (*Connector)(nil)

// Connect implements api.Connector.
func (c *Connector) Connect(_ context.Context, host string, port int) (api.Socket, error) {
	c.Hosts = append(c.Hosts, host)
	c.Ports = append(c.Ports, port)
	if c.Err != nil {
		return nil, c.Err
	}
	if c.Socket == nil {
		c.Socket = &Socket{}
	}
	return c.Socket, nil
}

// Session is a scriptable api.SecureSession. Reads are served from
// Inbound, one chunk per call.
type Session struct {
	HandshakeErr error
	ReadErr      error
	WriteErr     error
	ShutdownErr  error

	Inbound    [][]byte
	Written    [][]byte
	Handshakes int
	Shutdowns  int
	Closed     bool
}

var _ api.SecureSession = (*Session)(nil)

// Handshake implements api.SecureSession.
func (s *Session) Handshake(ctx context.Context) error {
	s.Handshakes++
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.HandshakeErr
}

// Read implements api.SecureSession.
func (s *Session) Read(p []byte) (int, error) {
	if s.ReadErr != nil {
		return 0, s.ReadErr
	}
	if len(s.Inbound) == 0 {
		return 0, api.ErrWouldBlock
	}
	n := copy(p, s.Inbound[0])
	if n < len(s.Inbound[0]) {
		s.Inbound[0] = s.Inbound[0][n:]
	} else {
		s.Inbound = s.Inbound[1:]
	}
	return n, nil
}

// Write implements api.SecureSession.
func (s *Session) Write(p []byte) error {
	if s.WriteErr != nil {
		return s.WriteErr
	}
	cp := make([]byte, len(p))
	copy(cp, p)
	s.Written = append(s.Written, cp)
	return nil
}

// Shutdown implements api.SecureSession.
func (s *Session) Shutdown() error {
	s.Shutdowns++
	return s.ShutdownErr
}

// Close implements api.SecureSession.
func (s *Session) Close() error {
	s.Closed = true
	return nil
}

// SessionFactory returns Session, or fails with Err.
type SessionFactory struct {
	Session *Session
	Err     error
	Configs []api.SecureSessionConfig
}

var _ api.SecureSessionFactory = (*SessionFactory)(nil)

// NewSession implements api.SecureSessionFactory.
func (f *SessionFactory) NewSession(_ api.Socket, cfg api.SecureSessionConfig) (api.SecureSession, error) {
	f.Configs = append(f.Configs, cfg)
	if f.Err != nil {
		return nil, f.Err
	}
	if f.Session == nil {
		f.Session = &Session{}
	}
	return f.Session, nil
}
