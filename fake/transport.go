// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, controllable behavior for the transport contract and
// its external collaborators. Fakes are single-threaded like the transports
// they stand in for.

package fake

import (
	"github.com/momentics/hioload-xio/api"
)

// Transport is a scriptable api.Transport used beneath higher layers.
//
// Open only records the callbacks; the test completes it with CompleteOpen.
// Inbound chunks queued with Inject are delivered one per Poll.
type Transport struct {
	// OpenErr, CloseErr and SendErr are returned by the matching calls.
	OpenErr  error
	CloseErr error
	SendErr  error
	// OptionErr is returned by SetOption.
	OptionErr error

	// WouldBlock makes the next N sends return api.ErrWouldBlock.
	WouldBlock int
	// OneSendPerPoll accepts at most one send between polls.
	OneSendPerPoll bool
	// AsyncSends holds completions until CompleteSend is called.
	AsyncSends bool

	Sent      [][]byte
	Options   map[string]any
	Polls     int
	Opens     int
	Closes    int
	Destroyed bool

	state      api.State
	onOpen     api.OnOpenComplete
	onBytes    api.OnBytesReceived
	onError    api.OnIOError
	inbound    [][]byte
	pending    []api.OnSendComplete
	sentInPoll bool
}

var _ api.Transport = (*Transport)(nil)

// NewTransport creates a fake in StateNotOpen.
func NewTransport() *Transport {
	return &Transport{Options: make(map[string]any)}
}

// State implements api.Stater.
func (t *Transport) State() api.State {
	return t.state
}

// Open implements api.Transport.
func (t *Transport) Open(onOpen api.OnOpenComplete, onBytes api.OnBytesReceived, onError api.OnIOError) error {
	t.Opens++
	if t.OpenErr != nil {
		return t.OpenErr
	}
	if t.state != api.StateNotOpen {
		return api.NewError(api.ErrCodeInvalidState, "fake: already open")
	}
	t.onOpen, t.onBytes, t.onError = onOpen, onBytes, onError
	t.state = api.StateOpening
	return nil
}

// CompleteOpen fires the pending open completion.
func (t *Transport) CompleteOpen(result api.OpenResult) {
	if result == api.OpenOK {
		t.state = api.StateOpen
	} else {
		t.state = api.StateNotOpen
	}
	if t.onOpen != nil {
		t.onOpen(result)
	}
}

// Inject queues data for delivery on a later Poll.
func (t *Transport) Inject(chunks ...[]byte) {
	for _, c := range chunks {
		buf := make([]byte, len(c))
		copy(buf, c)
		t.inbound = append(t.inbound, buf)
	}
}

// Deliver hands data to the bytes callback immediately.
func (t *Transport) Deliver(data []byte) {
	if t.onBytes != nil {
		t.onBytes(data)
	}
}

// Fail reports an I/O error through the error callback.
func (t *Transport) Fail(err error) {
	t.state = api.StateError
	if t.onError != nil {
		t.onError(err)
	}
}

// Close implements api.Transport.
func (t *Transport) Close(onClose api.OnCloseComplete) error {
	t.Closes++
	t.state = api.StateNotOpen
	t.pending = nil
	if t.CloseErr != nil {
		return t.CloseErr
	}
	if onClose != nil {
		onClose()
	}
	return nil
}

// Send implements api.Transport.
func (t *Transport) Send(buf []byte, onSend api.OnSendComplete) error {
	if t.SendErr != nil {
		return t.SendErr
	}
	if t.WouldBlock > 0 {
		t.WouldBlock--
		return api.ErrWouldBlock
	}
	if t.OneSendPerPoll && t.sentInPoll {
		return api.ErrWouldBlock
	}
	t.sentInPoll = true

	cp := make([]byte, len(buf))
	copy(cp, buf)
	t.Sent = append(t.Sent, cp)

	if t.AsyncSends {
		t.pending = append(t.pending, onSend)
		return nil
	}
	if onSend != nil {
		onSend(api.SendOK)
	}
	return nil
}

// PendingSends is the number of sends awaiting CompleteSend.
func (t *Transport) PendingSends() int {
	return len(t.pending)
}

// CompleteSend completes the oldest held send with result.
func (t *Transport) CompleteSend(result api.SendResult) bool {
	if len(t.pending) == 0 {
		return false
	}
	cb := t.pending[0]
	t.pending = t.pending[1:]
	if cb != nil {
		cb(result)
	}
	return true
}

// Poll implements api.Transport. It delivers at most one injected chunk.
func (t *Transport) Poll() {
	t.Polls++
	t.sentInPoll = false
	if len(t.inbound) == 0 {
		return
	}
	chunk := t.inbound[0]
	t.inbound = t.inbound[1:]
	t.Deliver(chunk)
}

// SetOption implements api.Transport.
func (t *Transport) SetOption(name string, value any) error {
	if t.OptionErr != nil {
		return t.OptionErr
	}
	t.Options[name] = value
	return nil
}

// RetrieveOptions implements api.Transport.
func (t *Transport) RetrieveOptions() (*api.OptionSet, error) {
	set := api.NewOptionSet(nil)
	for name, v := range t.Options {
		if err := set.Add(name, v); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// Destroy implements api.Transport.
func (t *Transport) Destroy() {
	t.Destroyed = true
	t.state = api.StateNotOpen
}

// SentBytes concatenates everything sent so far.
func (t *Transport) SentBytes() []byte {
	var out []byte
	for _, b := range t.Sent {
		out = append(out, b...)
	}
	return out
}
