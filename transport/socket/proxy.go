// File: transport/socket/proxy.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// HTTP CONNECT tunnelling.

package socket

import (
	"bufio"
	"context"
	"encoding/base64"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/momentics/hioload-xio/api"
)

// connectTunnel asks the proxy on conn to open a tunnel to target.
func connectTunnel(ctx context.Context, conn net.Conn, target string, p *api.HTTPProxyOptions) (net.Conn, error) {
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
		defer conn.SetDeadline(time.Time{})
	}

	req := &http.Request{
		Method: http.MethodConnect,
		URL:    &url.URL{Opaque: target},
		Host:   target,
		Header: make(http.Header),
	}
	if p.Username != "" {
		cred := base64.StdEncoding.EncodeToString([]byte(p.Username + ":" + p.Password))
		req.Header.Set("Proxy-Authorization", "Basic "+cred)
	}
	if err := req.Write(conn); err != nil {
		return nil, api.Wrap(api.ErrCodeUnderlyingIO, err, "write CONNECT")
	}

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, req)
	if err != nil {
		return nil, api.Wrap(api.ErrCodeUnderlyingIO, err, "read CONNECT response")
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, api.NewError(api.ErrCodeUnderlyingIO, "proxy refused tunnel").
			WithContext("status", resp.Status).
			WithContext("target", target)
	}

	if br.Buffered() > 0 {
		return &bufferedConn{Conn: conn, r: br}, nil
	}
	return conn, nil
}

// bufferedConn replays bytes the proxy sent right after its response.
type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (c *bufferedConn) Read(p []byte) (int, error) {
	if c.r.Buffered() > 0 {
		return c.r.Read(p)
	}
	return c.Conn.Read(p)
}
