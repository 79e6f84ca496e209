//go:build windows

// File: transport/socket/sockopt_windows.go
// Author: momentics <momentics@gmail.com>

package socket

import (
	"fmt"

	"golang.org/x/sys/windows"
)

func applyOptions(fd uintptr, o Options) error {
	h := windows.Handle(fd)
	if o.NoDelay {
		if err := windows.SetsockoptInt(h, windows.IPPROTO_TCP, windows.TCP_NODELAY, 1); err != nil {
			return fmt.Errorf("TCP_NODELAY: %w", err)
		}
	}
	if o.ReadBufferSize > 0 {
		if err := windows.SetsockoptInt(h, windows.SOL_SOCKET, windows.SO_RCVBUF, o.ReadBufferSize); err != nil {
			return fmt.Errorf("SO_RCVBUF: %w", err)
		}
	}
	if o.WriteBufferSize > 0 {
		if err := windows.SetsockoptInt(h, windows.SOL_SOCKET, windows.SO_SNDBUF, o.WriteBufferSize); err != nil {
			return fmt.Errorf("SO_SNDBUF: %w", err)
		}
	}
	return nil
}
