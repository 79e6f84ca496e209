// File: protocol/mask.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Pluggable client masking strategies.

package protocol

import (
	"crypto/rand"
	"fmt"
	"io"
)

// Masker supplies the 4-byte mask key for each outgoing frame.
type Masker interface {
	MaskKey() ([4]byte, error)
}

// ZeroMasker sets the mask bit with an all-zero key, leaving the payload
// bytes unchanged on the wire. This is the compatibility default.
type ZeroMasker struct{}

// MaskKey implements Masker.
func (ZeroMasker) MaskKey() ([4]byte, error) {
	return [4]byte{}, nil
}

// RandomMasker draws a fresh key per frame from Reader (crypto/rand if nil).
type RandomMasker struct {
	Reader io.Reader
}

// MaskKey implements Masker.
func (m RandomMasker) MaskKey() ([4]byte, error) {
	var key [4]byte
	r := m.Reader
	if r == nil {
		r = rand.Reader
	}
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return key, fmt.Errorf("mask key: %w", err)
	}
	return key, nil
}

// MaskInPlace applies XOR on buf using key. Applying it twice restores buf.
func MaskInPlace(buf []byte, key [4]byte) {
	if key == [4]byte{} {
		return
	}
	for i := range buf {
		buf[i] ^= key[i&3]
	}
}
