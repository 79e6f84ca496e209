// File: transport/wsio/framing.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Outbound frame assembly and inbound frame reassembly.

package wsio

import (
	"errors"

	"go.uber.org/zap"

	"github.com/momentics/hioload-xio/api"
	"github.com/momentics/hioload-xio/control"
	"github.com/momentics/hioload-xio/internal/pending"
	"github.com/momentics/hioload-xio/protocol"
)

// flush encodes the queue head and hands it to the layer below. Only one
// item is in flight at a time, so completions follow enqueue order.
func (t *Transport) flush() {
	it := t.queue.Head()
	if it == nil || it.PartiallySent {
		return
	}

	size := protocol.FrameSize(len(it.Payload), true)
	frame, err := t.cfg.Pool.Acquire(size)
	if err != nil {
		t.drop(it, api.Wrap(api.ErrCodeResourceExhausted, err, "wsio: frame buffer"))
		return
	}
	n, err := protocol.EncodeFrame(frame, it.Opcode, it.Payload, t.cfg.Masker)
	if err != nil {
		t.cfg.Pool.Release(frame)
		t.drop(it, api.Wrap(api.ErrCodeInternal, err, "wsio: encode frame"))
		return
	}

	it.PartiallySent = true
	err = t.cfg.Underlying.Send(frame[:n], func(result api.SendResult) {
		t.frameSent(it, result)
	})
	t.cfg.Pool.Release(frame)

	switch {
	case err == nil:
		t.metrics.Inc(control.MetricFramesSent)
		t.metrics.Add(control.MetricBytesSent, int64(n))
	case errors.Is(err, api.ErrWouldBlock):
		if !it.Done() {
			it.PartiallySent = false
		}
	default:
		if !it.Done() {
			it.PartiallySent = false
			t.queue.Remove(it)
			it.Complete(api.SendError)
		}
		t.fail(api.Wrap(api.ErrCodeUnderlyingIO, err, "wsio: send frame"))
	}
}

// drop removes an item that could not be framed. Nothing reached the layer
// below, so the transport stays usable.
func (t *Transport) drop(it *pending.Item, err error) {
	t.queue.Remove(it)
	t.metrics.Inc(control.MetricErrors)
	t.log.Warn("dropping queued send", zap.Error(err), zap.Int("size", len(it.Payload)))
	it.Complete(api.SendError)
}

// frameSent completes the in-flight item. Items already cancelled by Close
// are ignored.
func (t *Transport) frameSent(it *pending.Item, result api.SendResult) {
	if it.Done() {
		return
	}
	it.PartiallySent = false
	t.queue.Remove(it)
	if result == api.SendOK {
		it.Complete(api.SendOK)
		return
	}
	it.Complete(api.SendError)
	if t.state == api.StateOpen {
		t.fail(api.NewError(api.ErrCodeUnderlyingIO, "wsio: frame not delivered").
			WithContext("result", result.String()))
	}
}

// underlyingBytes appends arriving bytes and advances the handshake or the
// frame parser.
func (t *Transport) underlyingBytes(data []byte) {
	if t.state != api.StateOpening && t.state != api.StateOpen {
		return
	}
	if len(data) == 0 {
		return
	}
	if err := t.appendRx(data); err != nil {
		t.fail(err)
		return
	}
	t.metrics.Add(control.MetricBytesReceived, int64(len(data)))

	if t.state == api.StateOpening {
		t.completeHandshake()
	}
	if t.state == api.StateOpen {
		t.drainFrames()
	}
}

// drainFrames delivers every complete frame in the receive buffer.
func (t *Transport) drainFrames() {
	off := 0
	for t.state == api.StateOpen && t.rx != nil {
		f, n, err := protocol.DecodeFrame(t.rx[off:t.rxLen], t.cfg.MaxFramePayload)
		if err != nil {
			t.fail(api.Wrap(api.ErrCodeProtocol, err, "wsio: inbound frame"))
			return
		}
		if f == nil {
			break
		}
		off += n
		t.metrics.Inc(control.MetricFramesReceived)
		t.handleFrame(f)
	}
	if t.rx != nil && t.state == api.StateOpen {
		t.consume(off)
	}
}

func (t *Transport) handleFrame(f *protocol.WSFrame) {
	if protocol.IsControl(f.Opcode) && (!f.Fin || f.Length > protocol.MaxControlPayloadLen) {
		t.fail(api.NewError(api.ErrCodeProtocol, "wsio: malformed control frame").
			WithContext("opcode", f.Opcode).
			WithContext("length", f.Length))
		return
	}
	switch f.Opcode {
	case protocol.OpcodeBinary, protocol.OpcodeText, protocol.OpcodeContinuation:
		if t.onBytes != nil {
			t.onBytes(f.Payload)
		}
	case protocol.OpcodePing:
		it := t.queue.Push(f.Payload, nil)
		it.Opcode = protocol.OpcodePong
	case protocol.OpcodePong:
	case protocol.OpcodeClose:
		t.fail(api.NewError(api.ErrCodeUnderlyingIO, "wsio: peer sent close frame"))
	default:
		t.fail(api.NewError(api.ErrCodeProtocol, "wsio: unknown opcode").WithContext("opcode", f.Opcode))
	}
}

// appendRx grows the receive buffer through the pool when needed.
func (t *Transport) appendRx(data []byte) error {
	need := t.rxLen + len(data)
	if need > len(t.rx) {
		size := 2 * len(t.rx)
		if size < need {
			size = need
		}
		buf, err := t.cfg.Pool.Acquire(size)
		if err != nil && size > need {
			buf, err = t.cfg.Pool.Acquire(need)
		}
		if err != nil {
			return api.Wrap(api.ErrCodeResourceExhausted, err, "wsio: receive buffer").
				WithContext("size", need)
		}
		copy(buf, t.rx[:t.rxLen])
		if t.rx != nil {
			t.cfg.Pool.Release(t.rx)
		}
		t.rx = buf
	}
	copy(t.rx[t.rxLen:], data)
	t.rxLen = need
	return nil
}

// consume drops n bytes from the front of the receive buffer. An emptied
// buffer goes back to the pool.
func (t *Transport) consume(n int) {
	if n <= 0 {
		return
	}
	if n >= t.rxLen {
		t.releaseRx()
		return
	}
	copy(t.rx, t.rx[n:t.rxLen])
	t.rxLen -= n
}

func (t *Transport) releaseRx() {
	if t.rx != nil {
		t.cfg.Pool.Release(t.rx)
	}
	t.rx = nil
	t.rxLen = 0
}
