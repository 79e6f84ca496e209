//go:build !unix && !windows

// File: transport/socket/sockopt_other.go
// Author: momentics <momentics@gmail.com>

package socket

func applyOptions(fd uintptr, o Options) error {
	return nil
}
