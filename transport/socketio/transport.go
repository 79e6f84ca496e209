// File: transport/socketio/transport.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Plain TCP transport: the bottom layer of a non-TLS stack.

package socketio

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/hioload-xio/api"
	"github.com/momentics/hioload-xio/control"
	"github.com/momentics/hioload-xio/transport/socket"
)

// DefaultReadBufferSize bounds one read per poll.
const DefaultReadBufferSize = 4096

// Config configures a plain socket transport.
type Config struct {
	Hostname string
	Port     int

	// Connector defaults to socket.NewDialer().
	Connector      api.Connector
	ConnectTimeout time.Duration
	ReadBufferSize int

	Logger  *zap.Logger
	Metrics *control.MetricsRegistry
}

// Transport implements api.Transport over a raw stream socket.
type Transport struct {
	cfg     Config
	log     *zap.Logger
	metrics control.Scope
	proxy   socket.ProxySettings

	state   api.State
	sock    api.Socket
	readBuf []byte

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
		return nil, api.NewError(api.ErrCodeInvalidArgument, "socketio: hostname is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "socketio: invalid port").WithContext("port", cfg.Port)
	}
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = DefaultReadBufferSize
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}
	log := control.LoggerOrNop(cfg.Logger).With(
		zap.String("layer", "socketio"),
		zap.String("host", cfg.Hostname),
		zap.Int("port", cfg.Port))
	return &Transport{
		cfg:     cfg,
		log:     log,
		metrics: cfg.Metrics.Scope("socket"),
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

// Open connects synchronously and reports OpenOK before returning.
func (t *Transport) Open(onOpen api.OnOpenComplete, onBytes api.OnBytesReceived, onError api.OnIOError) error {
	if t.state != api.StateNotOpen {
		return api.NewError(api.ErrCodeInvalidState, "socketio: open requires NOT_OPEN").
			WithContext("state", t.state.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.ConnectTimeout)
	defer cancel()

	t.state = api.StateOpening
	sock, err := t.connector().Connect(ctx, t.cfg.Hostname, t.cfg.Port)
	if err != nil {
		t.state = api.StateNotOpen
		t.metrics.Inc(control.MetricErrors)
		t.log.Warn("connect failed", zap.Error(err))
		return api.Wrap(api.ErrCodeUnderlyingIO, err, "socketio: connect")
	}

	t.sock = sock
	t.onBytes, t.onError = onBytes, onError
	t.state = api.StateOpen
	t.log.Debug("socket open")
	if onOpen != nil {
		onOpen(api.OpenOK)
	}
	return nil
}

// Send writes buf synchronously and completes with SendOK.
func (t *Transport) Send(buf []byte, onSend api.OnSendComplete) error {
	if len(buf) == 0 {
		return api.NewError(api.ErrCodeInvalidArgument, "socketio: empty send")
	}
	if t.state != api.StateOpen {
		return api.NewError(api.ErrCodeInvalidState, "socketio: send requires OPEN").
			WithContext("state", t.state.String())
	}
	if _, err := t.sock.Write(buf); err != nil {
		t.metrics.Inc(control.MetricErrors)
		return api.Wrap(api.ErrCodeUnderlyingIO, err, "socketio: write")
	}
	t.metrics.Add(control.MetricBytesSent, int64(len(buf)))
	if onSend != nil {
		onSend(api.SendOK)
	}
	return nil
}

// Poll performs one bounded read while open.
func (t *Transport) Poll() {
	if t.state != api.StateOpen {
		return
	}
	n, err := t.sock.Read(t.readBuf)
	if errors.Is(err, api.ErrWouldBlock) {
		return
	}
	if err != nil {
		t.state = api.StateError
		t.metrics.Inc(control.MetricErrors)
		t.log.Warn("socket read failed", zap.Error(err))
		if t.onError != nil {
			t.onError(api.Wrap(api.ErrCodeUnderlyingIO, err, "socketio: read"))
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

// Close releases the socket and reports completion synchronously.
func (t *Transport) Close(onClose api.OnCloseComplete) error {
	if t.state == api.StateNotOpen || t.state == api.StateClosing {
		return api.NewError(api.ErrCodeInvalidState, "socketio: close requires an open transport").
			WithContext("state", t.state.String())
	}
	t.state = api.StateClosing
	if t.sock != nil {
		if err := t.sock.Close(); err != nil {
			t.log.Debug("socket close", zap.Error(err))
		}
		t.sock = nil
	}
	t.state = api.StateNotOpen
	if onClose != nil {
		onClose()
	}
	return nil
}

// SetOption accepts the proxy options.
func (t *Transport) SetOption(name string, value any) error {
	if name == "" || value == nil {
		return api.NewError(api.ErrCodeInvalidArgument, "socketio: option name and value are required")
	}
	handled, err := t.proxy.Set(name, value)
	if err != nil {
		return err
	}
	if !handled {
		return api.NewError(api.ErrCodeInvalidArgument, "socketio: unknown option").WithContext("name", name)
	}
	return nil
}

// RetrieveOptions snapshots the proxy options.
func (t *Transport) RetrieveOptions() (*api.OptionSet, error) {
	set := api.NewOptionSet(nil)
	if err := t.proxy.AddTo(set); err != nil {
		return nil, err
	}
	return set, nil
}

// Destroy closes the transport if needed.
func (t *Transport) Destroy() {
	if t.state != api.StateNotOpen && t.state != api.StateClosing {
		_ = t.Close(nil)
	}
	t.proxy = socket.ProxySettings{}
	t.readBuf = nil
}
