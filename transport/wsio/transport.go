// File: transport/wsio/transport.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// WebSocket client transport layered over an arbitrary api.Transport.
//
//	NOT_OPEN -> OPENING -> OPEN -> CLOSING -> NOT_OPEN
//	                 \        \
//	                  `-> ERROR <-'
//
// The layer never spawns goroutines. All work happens inside Open, Send,
// Close and Poll, and inside callbacks raised by the layer below during
// those calls.

package wsio

import (
	"io"
	"math"

	"go.uber.org/zap"

	"github.com/momentics/hioload-xio/api"
	"github.com/momentics/hioload-xio/control"
	"github.com/momentics/hioload-xio/internal/pending"
	"github.com/momentics/hioload-xio/pool"
	"github.com/momentics/hioload-xio/protocol"
	"github.com/momentics/hioload-xio/transport/socket"
)

// MaxFramePayloadLimit is the largest accepted Config.MaxFramePayload.
const MaxFramePayloadLimit = math.MaxInt32

// Config configures a WebSocket transport.
type Config struct {
	// Hostname goes into the Host header.
	Hostname string
	// Port goes into the Host header; defaults to 443.
	Port int
	// Resource defaults to protocol.DefaultResource.
	Resource string
	// Protocol defaults to protocol.DefaultProtocol.
	Protocol string

	// Underlying carries the bytes. It is owned by the caller.
	Underlying api.Transport

	// Pool supplies frame and receive buffers; defaults to pool.Default().
	Pool api.BytePool
	// Masker supplies mask keys; defaults to protocol.ZeroMasker.
	Masker protocol.Masker
	// MaxFramePayload caps one inbound frame; defaults to
	// protocol.MaxFramePayload and is clamped to MaxFramePayloadLimit.
	MaxFramePayload uint64

	// StrictHandshake sends a random key and validates the 101 response.
	StrictHandshake bool
	// Rand feeds the challenge key in strict mode; defaults to crypto/rand.
	Rand io.Reader

	Logger  *zap.Logger
	Metrics *control.MetricsRegistry
}

// Transport implements api.Transport for WebSocket framing.
type Transport struct {
	cfg     Config
	log     *zap.Logger
	metrics control.Scope
	proxy   socket.ProxySettings

	state   api.State
	queue   *pending.Queue
	request protocol.UpgradeRequest
	upgrade []byte // request bytes not yet accepted by the layer below

	rx    []byte // accumulation buffer from cfg.Pool
	rxLen int

	onOpen  api.OnOpenComplete
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
		return nil, api.NewError(api.ErrCodeInvalidArgument, "wsio: hostname is required")
	}
	if cfg.Underlying == nil {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "wsio: underlying transport is required")
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "wsio: invalid port").WithContext("port", cfg.Port)
	}
	if cfg.Port == 0 {
		cfg.Port = protocol.DefaultPort
	}
	if cfg.Pool == nil {
		cfg.Pool = pool.Default()
	}
	if cfg.Masker == nil {
		cfg.Masker = protocol.ZeroMasker{}
	}
	if cfg.MaxFramePayload == 0 {
		cfg.MaxFramePayload = protocol.MaxFramePayload
	}
	if cfg.MaxFramePayload > MaxFramePayloadLimit {
		cfg.MaxFramePayload = MaxFramePayloadLimit
	}

	return &Transport{
		cfg: cfg,
		log: control.LoggerOrNop(cfg.Logger).With(
			zap.String("layer", "wsio"),
			zap.String("host", cfg.Hostname)),
		metrics: cfg.Metrics.Scope("ws"),
		queue:   pending.New(),
	}, nil
}

// State implements api.Stater.
func (t *Transport) State() api.State {
	return t.state
}

// Pending returns the number of queued sends.
func (t *Transport) Pending() int {
	return t.queue.Len()
}

// Open opens the layer below and, once it reports success, performs the
// HTTP upgrade. onOpen fires after the upgrade response headers arrive.
func (t *Transport) Open(onOpen api.OnOpenComplete, onBytes api.OnBytesReceived, onError api.OnIOError) error {
	if t.state != api.StateNotOpen {
		return api.NewError(api.ErrCodeInvalidState, "wsio: open requires NOT_OPEN").
			WithContext("state", t.state.String())
	}

	req := protocol.UpgradeRequest{
		Host:     t.cfg.Hostname,
		Port:     t.cfg.Port,
		Resource: t.cfg.Resource,
		Protocol: t.cfg.Protocol,
	}
	if t.cfg.StrictHandshake {
		key, err := protocol.NewChallengeKey(t.cfg.Rand)
		if err != nil {
			return api.Wrap(api.ErrCodeInternal, err, "wsio: challenge key")
		}
		req.Key = key
	}
	t.request = req
	t.upgrade = nil
	t.releaseRx()

	t.onOpen, t.onBytes, t.onError = onOpen, onBytes, onError
	t.state = api.StateOpening
	if err := t.cfg.Underlying.Open(t.underlyingOpened, t.underlyingBytes, t.underlyingError); err != nil {
		t.state = api.StateNotOpen
		t.metrics.Inc(control.MetricErrors)
		t.log.Warn("underlying open failed", zap.Error(err))
		return api.Wrap(api.ErrCodeUnderlyingIO, err, "wsio: underlying open")
	}
	return nil
}

// Send queues a copy of buf as one binary frame and attempts one flush.
func (t *Transport) Send(buf []byte, onSend api.OnSendComplete) error {
	if len(buf) == 0 {
		return api.NewError(api.ErrCodeInvalidArgument, "wsio: empty send")
	}
	if t.state != api.StateOpen {
		return api.NewError(api.ErrCodeInvalidState, "wsio: send requires OPEN").
			WithContext("state", t.state.String())
	}
	it := t.queue.Push(buf, onSend)
	it.Opcode = protocol.OpcodeBinary
	t.flush()
	return nil
}

// Poll flushes one queued frame (or the pending upgrade request) and then
// polls the layer below. It does nothing outside OPENING and OPEN.
func (t *Transport) Poll() {
	switch t.state {
	case api.StateOpen:
		t.flush()
	case api.StateOpening:
		t.flushUpgrade()
	default:
		return
	}
	// the flush may have failed the transport
	if t.state == api.StateOpen || t.state == api.StateOpening {
		t.cfg.Underlying.Poll()
	}
}

// Close cancels every queued send in order, closes the layer below and
// reports completion synchronously. Closing while OPENING reports
// OpenCancelled first.
func (t *Transport) Close(onClose api.OnCloseComplete) error {
	if t.state == api.StateNotOpen || t.state == api.StateClosing {
		return api.NewError(api.ErrCodeInvalidState, "wsio: close requires an open transport").
			WithContext("state", t.state.String())
	}
	wasOpening := t.state == api.StateOpening
	t.state = api.StateClosing

	if wasOpening && t.onOpen != nil {
		t.onOpen(api.OpenCancelled)
	}
	if n := t.queue.CancelAll(); n > 0 {
		t.log.Debug("cancelled pending sends", zap.Int("count", n))
	}
	t.upgrade = nil
	t.releaseRx()

	if err := t.cfg.Underlying.Close(nil); err != nil {
		t.log.Debug("underlying close", zap.Error(err))
	}
	t.state = api.StateNotOpen
	if onClose != nil {
		onClose()
	}
	return nil
}

// SetOption stores the proxy options and passes them down. Every other
// option is passed to the layer below unchanged.
func (t *Transport) SetOption(name string, value any) error {
	if name == "" || value == nil {
		return api.NewError(api.ErrCodeInvalidArgument, "wsio: option name and value are required")
	}
	if _, err := t.proxy.Set(name, value); err != nil {
		return err
	}
	if err := t.cfg.Underlying.SetOption(name, value); err != nil {
		return err
	}
	return nil
}

// RetrieveOptions snapshots the proxy options held by this layer.
func (t *Transport) RetrieveOptions() (*api.OptionSet, error) {
	set := api.NewOptionSet(nil)
	if err := t.proxy.AddTo(set); err != nil {
		return nil, err
	}
	return set, nil
}

// Destroy closes the transport if needed and releases its buffers. The
// layer below is left to its owner.
func (t *Transport) Destroy() {
	if t.state != api.StateNotOpen && t.state != api.StateClosing {
		_ = t.Close(nil)
	}
	t.queue.CancelAll()
	t.releaseRx()
	t.proxy = socket.ProxySettings{}
}

// underlyingError handles an I/O failure reported from below.
func (t *Transport) underlyingError(err error) {
	if t.state != api.StateOpen && t.state != api.StateOpening {
		return
	}
	t.fail(api.Wrap(api.ErrCodeUnderlyingIO, err, "wsio: underlying i/o"))
}

// fail moves to ERROR. While opening the failure is reported as OpenError,
// afterwards through OnIOError. A transport already in ERROR reports nothing.
func (t *Transport) fail(err error) {
	if t.state == api.StateError {
		return
	}
	wasOpening := t.state == api.StateOpening
	t.state = api.StateError
	t.metrics.Inc(control.MetricErrors)
	t.log.Warn("websocket failed", zap.Error(err), zap.Bool("opening", wasOpening))
	if wasOpening {
		if t.onOpen != nil {
			t.onOpen(api.OpenError)
		}
		return
	}
	if t.onError != nil {
		t.onError(err)
	}
}
