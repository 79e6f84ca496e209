// File: protocol/frame_codec.go
// Package protocol implements the WebSocket frame codec used by the wsio layer.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Frames are encoded into caller-provided buffers and decoded incrementally
// from an accumulation buffer: an incomplete frame decodes to (nil, 0, nil).

package protocol

import (
	"encoding/binary"
	"errors"
	"math"
)

var (
	ErrFrameTooLarge = errors.New("frame payload exceeds maximum allowed size")
	ErrShortBuffer   = errors.New("destination buffer too small for frame")
	ErrReservedBits  = errors.New("frame uses reserved bits")
)

// Header holds the named fields of a frame header.
type Header struct {
	Fin     bool
	Opcode  byte
	Masked  bool
	Length  uint64
	MaskKey [4]byte
}

// LengthExtensionSize returns the number of extended length bytes (0, 2 or 8)
// used for a payload of n bytes.
func LengthExtensionSize(n uint64) int {
	switch {
	case n <= maxShortLength:
		return 0
	case n <= maxLength16:
		return 2
	default:
		return 8
	}
}

// HeaderSize is the encoded size of h, mask key included.
func (h Header) HeaderSize() int {
	size := 2 + LengthExtensionSize(h.Length)
	if h.Masked {
		size += maskKeyLen
	}
	return size
}

// FrameSize is the full encoded size of a frame carrying n payload bytes.
func FrameSize(n int, masked bool) int {
	return Header{Length: uint64(n), Masked: masked}.HeaderSize() + n
}

// PutHeader writes h into dst and returns the number of bytes written.
func PutHeader(dst []byte, h Header) (int, error) {
	size := h.HeaderSize()
	if len(dst) < size {
		return 0, ErrShortBuffer
	}

	b0 := h.Opcode & OpcodeBit
	if h.Fin {
		b0 |= FinBit
	}
	dst[0] = b0

	var maskBit byte
	if h.Masked {
		maskBit = MaskBit
	}

	offset := 2
	switch LengthExtensionSize(h.Length) {
	case 0:
		dst[1] = byte(h.Length) | maskBit
	case 2:
		dst[1] = lengthMarker16 | maskBit
		binary.BigEndian.PutUint16(dst[offset:], uint16(h.Length))
		offset += 2
	default:
		dst[1] = lengthMarker64 | maskBit
		binary.BigEndian.PutUint64(dst[offset:], h.Length)
		offset += 8
	}

	if h.Masked {
		copy(dst[offset:], h.MaskKey[:])
		offset += maskKeyLen
	}
	return offset, nil
}

// EncodeFrame writes one FIN frame with the given opcode into dst.
// A nil masker produces an unmasked frame; otherwise the mask bit is set and
// the payload is XORed with the masker's key.
func EncodeFrame(dst []byte, opcode byte, payload []byte, m Masker) (int, error) {
	h := Header{
		Fin:    true,
		Opcode: opcode,
		Length: uint64(len(payload)),
	}
	if m != nil {
		key, err := m.MaskKey()
		if err != nil {
			return 0, err
		}
		h.Masked = true
		h.MaskKey = key
	}
	if len(dst) < h.HeaderSize()+len(payload) {
		return 0, ErrShortBuffer
	}

	n, err := PutHeader(dst, h)
	if err != nil {
		return 0, err
	}
	copy(dst[n:], payload)
	if h.Masked {
		MaskInPlace(dst[n:n+len(payload)], h.MaskKey)
	}
	return n + len(payload), nil
}

// ParseHeader decodes a header from the front of raw.
// It returns consumed == 0 and a nil error when raw holds an incomplete header.
func ParseHeader(raw []byte) (h Header, consumed int, err error) {
	if len(raw) < 2 {
		return Header{}, 0, nil
	}
	if raw[0]&0x70 != 0 {
		return Header{}, 0, ErrReservedBits
	}
	h.Fin = raw[0]&FinBit != 0
	h.Opcode = raw[0] & OpcodeBit
	h.Masked = raw[1]&MaskBit != 0
	h.Length = uint64(raw[1] & LengthBit)
	offset := 2

	switch h.Length {
	case lengthMarker16:
		if len(raw) < offset+2 {
			return Header{}, 0, nil
		}
		h.Length = uint64(binary.BigEndian.Uint16(raw[offset:]))
		offset += 2
	case lengthMarker64:
		if len(raw) < offset+8 {
			return Header{}, 0, nil
		}
		h.Length = binary.BigEndian.Uint64(raw[offset:])
		if h.Length>>63 != 0 {
			return Header{}, 0, ErrFrameTooLarge
		}
		offset += 8
	}

	if h.Masked {
		if len(raw) < offset+maskKeyLen {
			return Header{}, 0, nil
		}
		copy(h.MaskKey[:], raw[offset:offset+maskKeyLen])
		offset += maskKeyLen
	}
	return h, offset, nil
}

// WSFrame represents a decoded WebSocket frame.
type WSFrame struct {
	Header
	Payload []byte // aliases the decode input
}

// DecodeFrame parses one complete frame from the front of raw, enforcing
// maxPayload. Masked payloads are unmasked in place. If the frame is
// incomplete it returns (nil, 0, nil).
func DecodeFrame(raw []byte, maxPayload uint64) (*WSFrame, int, error) {
	h, offset, err := ParseHeader(raw)
	if err != nil || offset == 0 {
		return nil, 0, err
	}
	if h.Length > maxPayload || h.Length > uint64(math.MaxInt-offset) {
		return nil, 0, ErrFrameTooLarge
	}

	total := offset + int(h.Length)
	if len(raw) < total {
		return nil, 0, nil
	}

	payload := raw[offset:total]
	if h.Masked {
		MaskInPlace(payload, h.MaskKey)
	}
	return &WSFrame{Header: h, Payload: payload}, total, nil
}
