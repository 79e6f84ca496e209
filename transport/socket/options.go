// File: transport/socket/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Proxy option handling shared by the layers that own a socket.

package socket

import (
	"net"
	"strconv"
	"strings"

	"github.com/momentics/hioload-xio/api"
)

// ProxySettings accumulates the proxy options set on a transport.
type ProxySettings struct {
	address string
	port    int
}

// Set applies a proxy option. handled is false for names it does not own.
func (p *ProxySettings) Set(name string, value any) (handled bool, err error) {
	switch name {
	case api.OptionHTTPProxy:
		var opts api.HTTPProxyOptions
		switch v := value.(type) {
		case api.HTTPProxyOptions:
			opts = v
		case *api.HTTPProxyOptions:
			if v == nil {
				return true, api.NewError(api.ErrCodeInvalidArgument, "nil proxy options")
			}
			opts = *v
		default:
			return true, api.NewError(api.ErrCodeInvalidArgument, "proxy_data expects HTTPProxyOptions")
		}
		if err := opts.Validate(); err != nil {
			return true, err
		}
		p.address = opts.Address()
		p.port = opts.Port
		return true, nil

	case api.OptionProxyAddress:
		s, ok := value.(string)
		if !ok || s == "" {
			return true, api.NewError(api.ErrCodeInvalidArgument, "proxy_address expects a non-empty string")
		}
		p.address = s
		return true, nil

	case api.OptionProxyPort:
		n, ok := value.(int)
		if !ok || n <= 0 || n > 65535 {
			return true, api.NewError(api.ErrCodeInvalidArgument, "proxy_port expects a port number")
		}
		p.port = n
		return true, nil
	}
	return false, nil
}

// Address returns the stored proxy address ("user:pass@host:port" form).
func (p *ProxySettings) Address() string {
	return p.address
}

// Port returns the stored proxy port.
func (p *ProxySettings) Port() int {
	return p.port
}

// HTTPProxy decodes the stored address, or returns nil when unset.
func (p *ProxySettings) HTTPProxy() *api.HTTPProxyOptions {
	if p.address == "" {
		return nil
	}
	out := &api.HTTPProxyOptions{Port: p.port}
	hostport := p.address
	if at := strings.LastIndex(hostport, "@"); at >= 0 {
		cred := hostport[:at]
		hostport = hostport[at+1:]
		if i := strings.Index(cred, ":"); i >= 0 {
			out.Username, out.Password = cred[:i], cred[i+1:]
		} else {
			out.Username = cred
		}
	}
	if host, port, err := net.SplitHostPort(hostport); err == nil {
		out.HostAddress = host
		if n, err := strconv.Atoi(port); err == nil && out.Port == 0 {
			out.Port = n
		}
	} else {
		out.HostAddress = hostport
	}
	if out.Port == 0 {
		out.Port = 80
	}
	return out
}

// AddTo stores the settings into set.
func (p *ProxySettings) AddTo(set *api.OptionSet) error {
	if p.address != "" {
		if err := set.Add(api.OptionProxyAddress, p.address); err != nil {
			return err
		}
	}
	if p.port != 0 {
		if err := set.Add(api.OptionProxyPort, p.port); err != nil {
			return err
		}
	}
	return nil
}
