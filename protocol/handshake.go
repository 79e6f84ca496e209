// File: protocol/handshake.go
// Package protocol
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Client side of the HTTP upgrade: the fixed-shape request and the scanner
// that finds the end of the response headers.

package protocol

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Upgrade request defaults.
const (
	DefaultResource          = "/$iothub/websocket"
	DefaultPort              = 443
	DefaultKey               = "dGhlIHNhbXBsZSBub25jZQ=="
	DefaultProtocol          = "AMQPWSB10"
	RequiredWebSocketVersion = "13"
	MaxHandshakeHeadersSize  = 8192
)

// UpgradeRequest describes the HTTP upgrade request sent by the client.
type UpgradeRequest struct {
	Host     string
	Port     int
	Resource string
	Key      string
	Protocol string
}

// withDefaults fills empty fields from the package defaults.
func (r UpgradeRequest) withDefaults() UpgradeRequest {
	if r.Port == 0 {
		r.Port = DefaultPort
	}
	if r.Resource == "" {
		r.Resource = DefaultResource
	}
	if r.Key == "" {
		r.Key = DefaultKey
	}
	if r.Protocol == "" {
		r.Protocol = DefaultProtocol
	}
	return r
}

// Bytes renders the request, terminated by a blank line.
func (r UpgradeRequest) Bytes() []byte {
	r = r.withDefaults()
	var b strings.Builder
	b.Grow(256)
	b.WriteString("GET ")
	b.WriteString(r.Resource)
	b.WriteString(" HTTP/1.1\r\n")
	b.WriteString("Host: ")
	b.WriteString(r.Host)
	b.WriteString(":")
	b.WriteString(strconv.Itoa(r.Port))
	b.WriteString("\r\n")
	b.WriteString("Upgrade: websocket\r\n")
	b.WriteString("Connection: Upgrade\r\n")
	b.WriteString("Sec-WebSocket-Key: ")
	b.WriteString(r.Key)
	b.WriteString("\r\n")
	b.WriteString("Sec-WebSocket-Protocol: ")
	b.WriteString(r.Protocol)
	b.WriteString("\r\n")
	b.WriteString("Sec-WebSocket-Version: ")
	b.WriteString(RequiredWebSocketVersion)
	b.WriteString("\r\n\r\n")
	return []byte(b.String())
}

// NewChallengeKey returns a base64 encoded random 16-byte nonce.
func NewChallengeKey(r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	var nonce [16]byte
	if _, err := io.ReadFull(r, nonce[:]); err != nil {
		return "", fmt.Errorf("challenge key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(nonce[:]), nil
}

// ScanHeaderEnd looks for the blank line that ends an HTTP header block.
// It returns the offset just past the blank line, or -1 if buf does not yet
// contain one. Header lines end at '\r' followed by any run of '\n'; the
// blank line is a bare "\r\n".
func ScanHeaderEnd(buf []byte) int {
	lineStart, pos := 0, 0
	for {
		for pos < len(buf) && buf[pos] != '\r' {
			pos++
		}
		if pos == len(buf) {
			return -1
		}

		if pos == lineStart {
			// blank line: wait for its '\n' before declaring the end
			if pos+1 >= len(buf) {
				return -1
			}
			if buf[pos+1] == '\n' {
				return pos + 2
			}
			return pos + 1
		}

		pos++
		for pos < len(buf) && buf[pos] == '\n' {
			pos++
		}
		if pos == len(buf) {
			return -1
		}
		lineStart = pos
	}
}
