//go:build unix

// File: transport/socket/sockopt_unix.go
// Author: momentics <momentics@gmail.com>

package socket

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func applyOptions(fd uintptr, o Options) error {
	s := int(fd)
	if o.NoDelay {
		if err := unix.SetsockoptInt(s, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
			return fmt.Errorf("TCP_NODELAY: %w", err)
		}
	}
	if o.ReadBufferSize > 0 {
		if err := unix.SetsockoptInt(s, unix.SOL_SOCKET, unix.SO_RCVBUF, o.ReadBufferSize); err != nil {
			return fmt.Errorf("SO_RCVBUF: %w", err)
		}
	}
	if o.WriteBufferSize > 0 {
		if err := unix.SetsockoptInt(s, unix.SOL_SOCKET, unix.SO_SNDBUF, o.WriteBufferSize); err != nil {
			return fmt.Errorf("SO_SNDBUF: %w", err)
		}
	}
	return nil
}
