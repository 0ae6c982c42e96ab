//go:build linux

package sock

import (
	"golang.org/x/sys/unix"
)

// newSocket creates an IPv4 stream socket that is close-on-exec from the start
func newSocket() (int, error) {
	return unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
}

// accept takes a pending connection that is close-on-exec from the start
func accept(fd int) (int, unix.Sockaddr, error) {
	return unix.Accept4(fd, unix.SOCK_CLOEXEC)
}
