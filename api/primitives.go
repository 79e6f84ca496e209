// File: api/primitives.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// External collaborators consumed by the socket and TLS layers: a connect
// primitive producing a raw socket and an opaque secure-session primitive.

package api

import (
	"context"
	"net"
)

// Connector opens raw stream sockets.
type Connector interface {
	// Connect resolves host and connects to port.
	Connect(ctx context.Context, host string, port int) (Socket, error)
}

// Socket is a connected stream socket driven without blocking.
type Socket interface {
	// Read returns (0, ErrWouldBlock) when no bytes are available.
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	// NetConn exposes the connection for layering secure sessions on top.
	NetConn() net.Conn
}

// SecureSession is the opaque handshake/read/write primitive of the TLS layer.
type SecureSession interface {
	// Handshake negotiates the session; it may block up to ctx's deadline.
	Handshake(ctx context.Context) error
	// Read returns (0, ErrWouldBlock) when no plaintext is available.
	Read(p []byte) (int, error)
	// Write transmits all of p or fails.
	Write(p []byte) error
	// Shutdown sends the close notification.
	Shutdown() error
	// Close releases the session without notifying the peer.
	Close() error
}

// SecureSessionConfig carries per-open session parameters.
type SecureSessionConfig struct {
	ServerName   string
	TrustedCerts string // PEM bundle; empty uses the system roots
}

// SecureSessionFactory binds a new session to a connected socket.
type SecureSessionFactory interface {
	NewSession(sock Socket, cfg SecureSessionConfig) (SecureSession, error)
}
