package protocol

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpgradeRequestDefaults(t *testing.T) {
	got := string(UpgradeRequest{Host: "hub.example.net"}.Bytes())
	want := "GET /$iothub/websocket HTTP/1.1\r\n" +
		"Host: hub.example.net:443\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n" +
		"Sec-WebSocket-Protocol: AMQPWSB10\r\n" +
		"Sec-WebSocket-Version: 13\r\n\r\n"
	assert.Equal(t, want, got)
}

func TestUpgradeRequestOverrides(t *testing.T) {
	got := string(UpgradeRequest{
		Host:     "127.0.0.1",
		Port:     8080,
		Resource: "/echo",
		Key:      "abc",
		Protocol: "chat",
	}.Bytes())
	assert.True(t, strings.HasPrefix(got, "GET /echo HTTP/1.1\r\nHost: 127.0.0.1:8080\r\n"))
	assert.Contains(t, got, "Sec-WebSocket-Key: abc\r\n")
	assert.Contains(t, got, "Sec-WebSocket-Protocol: chat\r\n")
}

func TestScanHeaderEnd(t *testing.T) {
	resp := "HTTP/1.1 101 Switching Protocols\r\nUpgrade: websocket\r\n\r\n"
	frame := "\x82\x03abc"

	assert.Equal(t, len(resp), ScanHeaderEnd([]byte(resp)))
	assert.Equal(t, len(resp), ScanHeaderEnd([]byte(resp+frame)))

	// every strict prefix is incomplete
	for i := 0; i < len(resp); i++ {
		assert.Equal(t, -1, ScanHeaderEnd([]byte(resp[:i])), "prefix %d", i)
	}
}

func TestScanHeaderEndBareLineFeeds(t *testing.T) {
	resp := "HTTP/1.1 101 OK\r\n\nX: y\r\n\r\n\x82\x00"
	assert.Equal(t, len(resp)-2, ScanHeaderEnd([]byte(resp)))
}

func TestNewChallengeKey(t *testing.T) {
	k, err := NewChallengeKey(bytes.NewReader(make([]byte, 16)))
	require.NoError(t, err)
	assert.Equal(t, "AAAAAAAAAAAAAAAAAAAAAA==", k)

	_, err = NewChallengeKey(bytes.NewReader(nil))
	assert.Error(t, err)
}

func TestComputeAcceptKey(t *testing.T) {
	// RFC 6455 section 1.3 sample
	assert.Equal(t, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=", ComputeAcceptKey("dGhlIHNhbXBsZSBub25jZQ=="))
}

func upgradeResponse(status, accept, proto string) []byte {
	s := "HTTP/1.1 " + status + "\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: " + accept + "\r\n"
	if proto != "" {
		s += "Sec-WebSocket-Protocol: " + proto + "\r\n"
	}
	return []byte(s + "\r\n")
}

func TestValidateUpgradeResponse(t *testing.T) {
	req := UpgradeRequest{Host: "h", Key: "dGhlIHNhbXBsZSBub25jZQ=="}
	accept := ComputeAcceptKey(req.Key)

	assert.NoError(t, ValidateUpgradeResponse(upgradeResponse("101 Switching Protocols", accept, ""), req))
	assert.NoError(t, ValidateUpgradeResponse(upgradeResponse("101 Switching Protocols", accept, DefaultProtocol), req))

	err := ValidateUpgradeResponse(upgradeResponse("403 Forbidden", accept, ""), req)
	assert.ErrorIs(t, err, ErrBadStatus)

	err = ValidateUpgradeResponse(upgradeResponse("101 Switching Protocols", "bogus", ""), req)
	assert.ErrorIs(t, err, ErrBadAcceptKey)

	err = ValidateUpgradeResponse(upgradeResponse("101 Switching Protocols", accept, "mqtt"), req)
	assert.ErrorIs(t, err, ErrProtocolMismatch)

	noUpgrade := []byte("HTTP/1.1 101 Switching Protocols\r\nSec-WebSocket-Accept: " + accept + "\r\n\r\n")
	assert.ErrorIs(t, ValidateUpgradeResponse(noUpgrade, req), ErrInvalidUpgradeHeaders)

	assert.Error(t, ValidateUpgradeResponse([]byte("garbage\r\n\r\n"), req))
}

func TestContainsToken(t *testing.T) {
	assert.True(t, containsToken("keep-alive, Upgrade", "upgrade"))
	assert.False(t, containsToken("keep-alive", "upgrade"))
}
