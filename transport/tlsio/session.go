// File: transport/tlsio/session.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Default secure session backed by crypto/tls.

package tlsio

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"time"

	"github.com/momentics/hioload-xio/api"
	"github.com/momentics/hioload-xio/transport/socket"
)

// SessionFactory creates crypto/tls client sessions.
type SessionFactory struct {
	// PollTimeout bounds one Read; defaults to socket.DefaultPollTimeout.
	PollTimeout time.Duration
	// MinVersion defaults to TLS 1.2.
	MinVersion uint16
}

var _ api.SecureSessionFactory = (*SessionFactory)(nil)

// NewSession binds a TLS client to sock. cfg.TrustedCerts, when set,
// replaces the system roots.
func (f *SessionFactory) NewSession(sock api.Socket, cfg api.SecureSessionConfig) (api.SecureSession, error) {
	conn := sock.NetConn()
	if conn == nil {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "tlsio: socket exposes no connection")
	}

	tc := &tls.Config{
		ServerName: cfg.ServerName,
		MinVersion: f.MinVersion,
	}
	if tc.MinVersion == 0 {
		tc.MinVersion = tls.VersionTLS12
	}
	if cfg.TrustedCerts != "" {
		roots, err := CertPoolFromPEM(cfg.TrustedCerts)
		if err != nil {
			return nil, err
		}
		tc.RootCAs = roots
	}

	timeout := f.PollTimeout
	if timeout <= 0 {
		timeout = socket.DefaultPollTimeout
	}
	return &session{conn: tls.Client(conn, tc), pollTimeout: timeout}, nil
}

// CertPoolFromPEM parses a PEM bundle into a certificate pool.
func CertPoolFromPEM(pem string) (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM([]byte(pem)) {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "tlsio: no certificates in TrustedCerts")
	}
	return pool, nil
}

type session struct {
	conn        *tls.Conn
	pollTimeout time.Duration
}

func (s *session) Handshake(ctx context.Context) error {
	return s.conn.HandshakeContext(ctx)
}

func (s *session) Read(p []byte) (int, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(s.pollTimeout)); err != nil {
		return 0, err
	}
	n, err := s.conn.Read(p)
	if err != nil && socket.IsTimeout(err) {
		if n > 0 {
			return n, nil
		}
		return 0, api.ErrWouldBlock
	}
	return n, err
}

func (s *session) Write(p []byte) error {
	if err := s.conn.SetWriteDeadline(time.Time{}); err != nil {
		return err
	}
	_, err := s.conn.Write(p)
	return err
}

func (s *session) Shutdown() error {
	return s.conn.CloseWrite()
}

func (s *session) Close() error {
	return s.conn.Close()
}
