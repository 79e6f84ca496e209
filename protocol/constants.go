// File: protocol/constants.go
// Author: momentics <momentics@gmail.com>
//
// RFC 6455 frame header layout used by the client-side codec.

package protocol

const (
	// Control opcodes (<0x8)
	OpcodeContinuation = 0x0
	OpcodeText         = 0x1
	OpcodeBinary       = 0x2
	OpcodeClose        = 0x8
	OpcodePing         = 0x9
	OpcodePong         = 0xA

	// Control frames carry at most this many payload bytes
	MaxControlPayloadLen = 125

	// Bit masks
	FinBit    = 0x80
	MaskBit   = 0x80
	OpcodeBit = 0x0F
	LengthBit = 0x7F

	// Length markers in the 7-bit length field
	lengthMarker16 = 126
	lengthMarker64 = 127
	maxShortLength = 125
	maxLength16    = 0xFFFF

	maskKeyLen = 4
)

// MaxFramePayload is the default ceiling for a single inbound frame payload.
const MaxFramePayload = 1 << 20 // 1 MiB

// IsControl reports whether opcode is a control opcode.
func IsControl(opcode byte) bool {
	return opcode&0x08 != 0
}
