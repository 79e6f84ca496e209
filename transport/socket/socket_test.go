package socket

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-xio/api"
)

func listen(t *testing.T) (net.Listener, string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	addr := ln.Addr().(*net.TCPAddr)
	return ln, "127.0.0.1", addr.Port
}

func readUntil(t *testing.T, s api.Socket, n int) []byte {
	t.Helper()
	var out []byte
	buf := make([]byte, 64)
	deadline := time.Now().Add(2 * time.Second)
	for len(out) < n && time.Now().Before(deadline) {
		k, err := s.Read(buf)
		if err == api.ErrWouldBlock {
			continue
		}
		require.NoError(t, err)
		out = append(out, buf[:k]...)
	}
	return out
}

func TestConnectAndWouldBlock(t *testing.T) {
	ln, host, port := listen(t)
	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	d := NewDialer()
	d.Options.ReadBufferSize = 1 << 16
	s, err := d.Connect(context.Background(), host, port)
	require.NoError(t, err)
	defer s.Close()

	peer := <-accepted
	defer peer.Close()

	n, err := s.Read(make([]byte, 16))
	assert.Zero(t, n)
	assert.ErrorIs(t, err, api.ErrWouldBlock)

	_, err = peer.Write([]byte("ping"))
	require.NoError(t, err)
	assert.Equal(t, []byte("ping"), readUntil(t, s, 4))

	_, err = s.Write([]byte("pong"))
	require.NoError(t, err)
	got := make([]byte, 4)
	_, err = io.ReadFull(peer, got)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(got))
}

func TestReadAfterPeerClose(t *testing.T) {
	ln, host, port := listen(t)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			c.Close()
		}
	}()

	s, err := NewDialer().Connect(context.Background(), host, port)
	require.NoError(t, err)
	defer s.Close()

	var rerr error
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, rerr = s.Read(make([]byte, 8))
		if rerr != api.ErrWouldBlock {
			break
		}
	}
	assert.ErrorIs(t, rerr, api.ErrUnderlyingIO)
}

func TestConnectInvalidTarget(t *testing.T) {
	_, err := NewDialer().Connect(context.Background(), "", 80)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)

	_, err = NewDialer().Connect(context.Background(), "127.0.0.1", 0)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestConnectRefused(t *testing.T) {
	ln, host, port := listen(t)
	ln.Close()

	_, err := NewDialer().Connect(context.Background(), host, port)
	assert.ErrorIs(t, err, api.ErrUnderlyingIO)
}

// fakeProxy accepts one CONNECT, answers with status and then echoes.
func fakeProxy(t *testing.T, status int, gotAuth chan<- string) (string, int) {
	ln, host, port := listen(t)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		br := bufio.NewReader(c)
		req, err := http.ReadRequest(br)
		if err != nil {
			return
		}
		gotAuth <- req.Method + " " + req.Host + " " + req.Header.Get("Proxy-Authorization")
		resp := "HTTP/1.1 " + strconv.Itoa(status) + " " + http.StatusText(status) + "\r\n\r\n"
		if status == http.StatusOK {
			resp += "early"
		}
		if _, err := c.Write([]byte(resp)); err != nil {
			return
		}
		_, _ = io.Copy(c, br)
	}()
	return host, port
}

func TestConnectThroughProxy(t *testing.T) {
	got := make(chan string, 1)
	host, port := fakeProxy(t, http.StatusOK, got)

	d := NewDialer()
	d.Proxy = &api.HTTPProxyOptions{HostAddress: host, Port: port, Username: "user", Password: "pass"}
	s, err := d.Connect(context.Background(), "upstream.example", 443)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "CONNECT upstream.example:443 Basic dXNlcjpwYXNz", <-got)
	assert.Equal(t, "early", string(readUntil(t, s, 5)))

	_, err = s.Write([]byte("echo"))
	require.NoError(t, err)
	assert.Equal(t, "echo", string(readUntil(t, s, 4)))
}

func TestConnectProxyRefused(t *testing.T) {
	got := make(chan string, 1)
	host, port := fakeProxy(t, http.StatusForbidden, got)

	d := NewDialer()
	d.Proxy = &api.HTTPProxyOptions{HostAddress: host, Port: port}
	_, err := d.Connect(context.Background(), "upstream.example", 443)
	assert.ErrorIs(t, err, api.ErrUnderlyingIO)
}

func TestConnectProxyInvalid(t *testing.T) {
	d := NewDialer()
	d.Proxy = &api.HTTPProxyOptions{HostAddress: "p", Port: 1, Username: "u"}
	_, err := d.Connect(context.Background(), "h", 1)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestIsTimeout(t *testing.T) {
	assert.False(t, IsTimeout(io.EOF))
	assert.True(t, IsTimeout(&net.OpError{Err: timeoutErr{}}))
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }
