// File: protocol/native_handshake.go
// Package protocol validates the server's upgrade response.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Strict validation is opt-in: the baseline client only looks for the end of
// the response headers.

package protocol

import (
	"bufio"
	"bytes"
	"crypto/sha1" // #nosec G505 - SHA-1 required by RFC 6455 Section 1.3
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// WebSocketGUID is the RFC 6455 accept-key suffix.
const WebSocketGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// Upgrade response validation errors.
var (
	ErrBadStatus             = errors.New("upgrade response status is not 101")
	ErrInvalidUpgradeHeaders = errors.New("invalid WebSocket upgrade headers")
	ErrBadAcceptKey          = errors.New("Sec-WebSocket-Accept does not match the request key")
	ErrProtocolMismatch      = errors.New("server selected an unrequested sub-protocol")
	ErrHeadersTooLarge       = errors.New("handshake headers too large")
)

// ComputeAcceptKey computes the Sec-WebSocket-Accept value from the client's key.
// This implements the algorithm specified in RFC6455 Section 1.3.
func ComputeAcceptKey(clientKey string) string {
	hash := sha1.Sum([]byte(clientKey + WebSocketGUID))
	return base64.StdEncoding.EncodeToString(hash[:])
}

// ValidateUpgradeResponse parses the header block in raw and checks it
// against the request that was sent.
func ValidateUpgradeResponse(raw []byte, req UpgradeRequest) error {
	req = req.withDefaults()
	if len(raw) > MaxHandshakeHeadersSize {
		return ErrHeadersTooLarge
	}

	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(raw)), nil)
	if err != nil {
		return fmt.Errorf("parse upgrade response: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusSwitchingProtocols {
		return fmt.Errorf("%w: %s", ErrBadStatus, resp.Status)
	}
	if !containsToken(resp.Header.Get("Upgrade"), "websocket") ||
		!containsToken(resp.Header.Get("Connection"), "upgrade") {
		return ErrInvalidUpgradeHeaders
	}
	if resp.Header.Get("Sec-WebSocket-Accept") != ComputeAcceptKey(req.Key) {
		return ErrBadAcceptKey
	}
	if p := resp.Header.Get("Sec-WebSocket-Protocol"); p != "" && p != req.Protocol {
		return fmt.Errorf("%w: %q", ErrProtocolMismatch, p)
	}
	return nil
}

// containsToken checks if the comma separated headerValue holds token (case-insensitive).
func containsToken(headerValue, token string) bool {
	token = strings.ToLower(strings.TrimSpace(token))
	for _, p := range strings.Split(headerValue, ",") {
		if strings.ToLower(strings.TrimSpace(p)) == token {
			return true
		}
	}
	return false
}
