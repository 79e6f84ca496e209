// File: transport/wsio/handshake.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package wsio

import (
	"errors"

	"go.uber.org/zap"

	"github.com/momentics/hioload-xio/api"
	"github.com/momentics/hioload-xio/control"
	"github.com/momentics/hioload-xio/protocol"
)

// underlyingOpened sends the upgrade request once the layer below is open.
func (t *Transport) underlyingOpened(result api.OpenResult) {
	if t.state != api.StateOpening {
		return
	}
	if result != api.OpenOK {
		t.state = api.StateNotOpen
		t.metrics.Inc(control.MetricErrors)
		t.log.Warn("underlying open completed with failure", zap.Stringer("result", result))
		if t.onOpen != nil {
			t.onOpen(api.OpenError)
		}
		return
	}
	t.upgrade = t.request.Bytes()
	t.flushUpgrade()
}

// flushUpgrade hands the upgrade request to the layer below, retrying on
// the next poll when it would block.
func (t *Transport) flushUpgrade() {
	if t.upgrade == nil {
		return
	}
	req := t.upgrade
	err := t.cfg.Underlying.Send(req, t.upgradeSent)
	switch {
	case err == nil:
		t.upgrade = nil
		t.log.Debug("upgrade request sent", zap.Int("bytes", len(req)))
	case errors.Is(err, api.ErrWouldBlock):
	default:
		t.upgrade = nil
		t.fail(api.Wrap(api.ErrCodeUnderlyingIO, err, "wsio: send upgrade request"))
	}
}

func (t *Transport) upgradeSent(result api.SendResult) {
	if result == api.SendOK || t.state != api.StateOpening {
		return
	}
	t.fail(api.NewError(api.ErrCodeUnderlyingIO, "wsio: upgrade request not delivered").
		WithContext("result", result.String()))
}

// completeHandshake looks for the end of the response headers in the
// receive buffer. Bytes past the blank line stay buffered as frame data.
func (t *Transport) completeHandshake() {
	end := protocol.ScanHeaderEnd(t.rx[:t.rxLen])
	if end < 0 {
		if t.rxLen > protocol.MaxHandshakeHeadersSize {
			t.fail(api.Wrap(api.ErrCodeProtocol, protocol.ErrHeadersTooLarge, "wsio: upgrade response"))
		}
		return
	}

	if t.cfg.StrictHandshake {
		if err := protocol.ValidateUpgradeResponse(t.rx[:end], t.request); err != nil {
			t.fail(api.Wrap(api.ErrCodeProtocol, err, "wsio: upgrade response rejected"))
			return
		}
	}
	t.consume(end)

	t.state = api.StateOpen
	t.log.Debug("websocket open", zap.Int("buffered", t.rxLen))
	if t.onOpen != nil {
		t.onOpen(api.OpenOK)
	}
}
