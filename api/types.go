// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations and constants.

package api

// State enumerates the lifecycle of a transport instance.
type State int

const (
	StateNotOpen State = iota
	StateOpening
	StateOpeningUnderlying
	StateInHandshake
	StateOpen
	StateClosing
	StateError
)

func (s State) String() string {
	switch s {
	case StateNotOpen:
		return "NOT_OPEN"
	case StateOpening:
		return "OPENING"
	case StateOpeningUnderlying:
		return "OPENING_UNDERLYING_IO"
	case StateInHandshake:
		return "IN_HANDSHAKE"
	case StateOpen:
		return "OPEN"
	case StateClosing:
		return "CLOSING"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// IsOpening reports whether s is any of the connection setup phases.
func (s State) IsOpening() bool {
	return s == StateOpening || s == StateOpeningUnderlying || s == StateInHandshake
}
