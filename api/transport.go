// File: api/transport.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Layered, poll-driven transport contract. Every concrete layer (socket, TLS,
// WebSocket) implements Transport and may hold another Transport beneath it.

package api

// OpenResult is delivered through OnOpenComplete.
type OpenResult int

const (
	OpenOK OpenResult = iota
	OpenError
	OpenCancelled
)

func (r OpenResult) String() string {
	switch r {
	case OpenOK:
		return "ok"
	case OpenError:
		return "error"
	case OpenCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// SendResult is delivered through OnSendComplete.
type SendResult int

const (
	SendOK SendResult = iota
	SendError
	SendCancelled
)

func (r SendResult) String() string {
	switch r {
	case SendOK:
		return "ok"
	case SendError:
		return "error"
	case SendCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Callback signatures. Closures carry any per-call context.
type (
	OnOpenComplete  func(result OpenResult)
	// OnBytesReceived gets a view of the layer's receive buffer. data is
	// valid only for the duration of the call; copy it to retain it.
	OnBytesReceived func(data []byte)
	OnIOError       func(err error)
	OnSendComplete  func(result SendResult)
	OnCloseComplete func()
)

// Transport is the uniform contract shared by every layer.
//
// Implementations are single-threaded: all methods and all callbacks run on
// the goroutine that calls Poll. Callbacks may be nil.
type Transport interface {
	// Open registers the session callbacks and starts connecting.
	// Valid only in StateNotOpen. Completion is reported through onOpen,
	// possibly before Open returns.
	Open(onOpen OnOpenComplete, onBytes OnBytesReceived, onError OnIOError) error

	// Close tears the session down. Queued sends are cancelled in order
	// before the layer beneath is closed. Invalid in StateNotOpen and
	// StateClosing.
	Close(onClose OnCloseComplete) error

	// Send queues buf for transmission. buf is copied before Send returns.
	// Valid only in StateOpen.
	Send(buf []byte, onSend OnSendComplete) error

	// Poll drives pending work: handshakes, queued sends, one bounded read.
	Poll()

	// SetOption sets a named configuration value.
	SetOption(name string, value any) error

	// RetrieveOptions snapshots the current configuration so that it can be
	// fed into a freshly created instance of the same kind.
	RetrieveOptions() (*OptionSet, error)

	// Destroy closes the transport if needed and releases everything it owns.
	Destroy()
}

// Stater is implemented by transports that expose their state.
type Stater interface {
	State() State
}
