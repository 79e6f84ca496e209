// File: transport/tlsio/transport.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// TLS transport: owns a raw socket, drives the handshake and exposes the
// plaintext stream through the layered transport contract.
//
//	NOT_OPEN -> OPENING_UNDERLYING_IO -> IN_HANDSHAKE -> OPEN -> CLOSING -> NOT_OPEN
//
// Open is synchronous. Any failure on the way releases what was acquired,
// returns the state to NOT_OPEN and is returned to the caller.

package tlsio

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/hioload-xio/api"
	"github.com/momentics/hioload-xio/control"
	"github.com/momentics/hioload-xio/transport/socket"
)

// Defaults.
const (
	DefaultReadBufferSize   = 64
	DefaultHandshakeTimeout = 30 * time.Second
	DefaultConnectTimeout   = 30 * time.Second
)

// Config configures a TLS transport.
type Config struct {
	Hostname string
	Port     int

	// Connector defaults to socket.NewDialer().
	Connector api.Connector
	// SessionFactory defaults to a crypto/tls SessionFactory.
	SessionFactory api.SecureSessionFactory

	ConnectTimeout   time.Duration
	HandshakeTimeout time.Duration
	// ReadBufferSize bounds one read per poll.
	ReadBufferSize int

	Logger  *zap.Logger
	Metrics *control.MetricsRegistry
}

// Transport implements api.Transport over a secure session.
type Transport struct {
	cfg     Config
	log     *zap.Logger
	metrics control.Scope

	state        api.State
	sock         api.Socket
	session      api.SecureSession
	trustedCerts string
	proxy        socket.ProxySettings
	readBuf      []byte

	onBytes api.OnBytesReceived
	onError api.OnIOError
}

var (
	_ api.Transport = (*Transport)(nil)
	_ api.Stater    = (*Transport)(nil)
)

// New validates cfg and returns a transport in StateNotOpen.
func New(cfg Config) (*Transport, error) {
	if cfg.Hostname == "" {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "tlsio: hostname is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "tlsio: invalid port").WithContext("port", cfg.Port)
	}
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = DefaultReadBufferSize
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.SessionFactory == nil {
		cfg.SessionFactory = &SessionFactory{}
	}

	return &Transport{
		cfg: cfg,
		log: control.LoggerOrNop(cfg.Logger).With(
			zap.String("layer", "tlsio"),
			zap.String("host", cfg.Hostname),
			zap.Int("port", cfg.Port)),
		metrics: cfg.Metrics.Scope("tls"),
		readBuf: make([]byte, cfg.ReadBufferSize),
	}, nil
}

// State implements api.Stater.
func (t *Transport) State() api.State {
	return t.state
}

func (t *Transport) connector() api.Connector {
	c := t.cfg.Connector
	if c == nil {
		c = socket.NewDialer()
	}
	if d, ok := c.(*socket.Dialer); ok {
		return d.WithProxy(t.proxy.HTTPProxy())
	}
	return c
}

// release drops the session and the socket.
func (t *Transport) release() {
	if t.session != nil {
		if err := t.session.Close(); err != nil {
			t.log.Debug("session close", zap.Error(err))
		}
		t.session = nil
	}
	if t.sock != nil {
		if err := t.sock.Close(); err != nil {
			t.log.Debug("socket close", zap.Error(err))
		}
		t.sock = nil
	}
}

func (t *Transport) failOpen(err error, msg string) error {
	t.release()
	t.state = api.StateNotOpen
	t.metrics.Inc(control.MetricErrors)
	t.log.Warn(msg, zap.Error(err))
	if api.CodeOf(err) == api.ErrCodeInvalidArgument {
		return err
	}
	return api.Wrap(api.ErrCodeUnderlyingIO, err, "tlsio: "+msg)
}

// Open connects, handshakes and reports OpenOK before returning.
func (t *Transport) Open(onOpen api.OnOpenComplete, onBytes api.OnBytesReceived, onError api.OnIOError) error {
	if t.state != api.StateNotOpen {
		return api.NewError(api.ErrCodeInvalidState, "tlsio: open requires NOT_OPEN").
			WithContext("state", t.state.String())
	}

	t.state = api.StateOpeningUnderlying
	cctx, cancel := context.WithTimeout(context.Background(), t.cfg.ConnectTimeout)
	sock, err := t.connector().Connect(cctx, t.cfg.Hostname, t.cfg.Port)
	cancel()
	if err != nil {
		return t.failOpen(err, "connect failed")
	}
	t.sock = sock

	t.state = api.StateInHandshake
	session, err := t.cfg.SessionFactory.NewSession(sock, api.SecureSessionConfig{
		ServerName:   t.cfg.Hostname,
		TrustedCerts: t.trustedCerts,
	})
	if err != nil {
		return t.failOpen(err, "session setup failed")
	}
	t.session = session

	hctx, cancel := context.WithTimeout(context.Background(), t.cfg.HandshakeTimeout)
	err = session.Handshake(hctx)
	cancel()
	if err != nil {
		return t.failOpen(err, "handshake failed")
	}

	t.onBytes, t.onError = onBytes, onError
	t.state = api.StateOpen
	t.log.Debug("tls open")
	if onOpen != nil {
		onOpen(api.OpenOK)
	}
	return nil
}

// Send writes buf synchronously. A write error is returned and no
// completion is invoked; success completes with SendOK before returning.
func (t *Transport) Send(buf []byte, onSend api.OnSendComplete) error {
	if len(buf) == 0 {
		return api.NewError(api.ErrCodeInvalidArgument, "tlsio: empty send")
	}
	if t.state != api.StateOpen {
		return api.NewError(api.ErrCodeInvalidState, "tlsio: send requires OPEN").
			WithContext("state", t.state.String())
	}
	if err := t.session.Write(buf); err != nil {
		t.metrics.Inc(control.MetricErrors)
		return api.Wrap(api.ErrCodeUnderlyingIO, err, "tlsio: write")
	}
	t.metrics.Add(control.MetricBytesSent, int64(len(buf)))
	if onSend != nil {
		onSend(api.SendOK)
	}
	return nil
}

// Poll performs one bounded read while OPEN.
func (t *Transport) Poll() {
	if t.state != api.StateOpen {
		return
	}
	n, err := t.session.Read(t.readBuf)
	if errors.Is(err, api.ErrWouldBlock) {
		return
	}
	if err != nil {
		t.state = api.StateError
		t.metrics.Inc(control.MetricErrors)
		t.log.Warn("tls read failed", zap.Error(err))
		if t.onError != nil {
			t.onError(api.Wrap(api.ErrCodeUnderlyingIO, err, "tlsio: read"))
		}
		return
	}
	if n == 0 {
		return
	}
	t.metrics.Add(control.MetricBytesReceived, int64(n))
	if t.onBytes != nil {
		t.onBytes(t.readBuf[:n])
	}
}

// Close sends close_notify, releases the session and socket, and reports
// completion synchronously. From ERROR the shutdown failure is expected
// and not logged.
func (t *Transport) Close(onClose api.OnCloseComplete) error {
	if t.state == api.StateNotOpen || t.state == api.StateClosing {
		return api.NewError(api.ErrCodeInvalidState, "tlsio: close requires an open transport").
			WithContext("state", t.state.String())
	}
	prev := t.state
	t.state = api.StateClosing

	if t.session != nil {
		if err := t.session.Shutdown(); err != nil && prev != api.StateError {
			t.log.Warn("tls shutdown failed", zap.Error(err))
		}
	}
	t.release()
	t.state = api.StateNotOpen
	if onClose != nil {
		onClose()
	}
	return nil
}

// SetOption accepts TrustedCerts (PEM string or bytes) and the proxy options.
// TrustedCerts takes effect at the next open.
func (t *Transport) SetOption(name string, value any) error {
	if name == "" || value == nil {
		return api.NewError(api.ErrCodeInvalidArgument, "tlsio: option name and value are required")
	}
	if name == api.OptionTrustedCerts {
		switch v := value.(type) {
		case string:
			t.trustedCerts = v
		case []byte:
			t.trustedCerts = string(v)
		default:
			return api.NewError(api.ErrCodeInvalidArgument, "tlsio: TrustedCerts expects PEM text")
		}
		return nil
	}

	handled, err := t.proxy.Set(name, value)
	if err != nil {
		return err
	}
	if !handled {
		return api.NewError(api.ErrCodeInvalidArgument, "tlsio: unknown option").WithContext("name", name)
	}
	return nil
}

// RetrieveOptions snapshots TrustedCerts and the proxy options.
func (t *Transport) RetrieveOptions() (*api.OptionSet, error) {
	set := api.NewOptionSet(nil)
	if t.trustedCerts != "" {
		if err := set.Add(api.OptionTrustedCerts, t.trustedCerts); err != nil {
			return nil, err
		}
	}
	if err := t.proxy.AddTo(set); err != nil {
		return nil, err
	}
	return set, nil
}

// Destroy closes the transport if needed and drops the stored options.
func (t *Transport) Destroy() {
	if t.state != api.StateNotOpen && t.state != api.StateClosing {
		_ = t.Close(nil)
	}
	t.release()
	t.trustedCerts = ""
	t.proxy = socket.ProxySettings{}
	t.readBuf = nil
}
