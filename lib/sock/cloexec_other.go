//go:build unix && !linux

package sock

import (
	"golang.org/x/sys/unix"
	"syscall"
)

// newSocket creates an IPv4 stream socket and marks it close-on-exec. The
// fork lock keeps a concurrent exec from inheriting the descriptor in between.
func newSocket() (int, error) {
	syscall.ForkLock.RLock()
	defer syscall.ForkLock.RUnlock()
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, err
	}
	unix.CloseOnExec(fd)
	return fd, nil
}

// accept takes a pending connection and marks it close-on-exec
func accept(fd int) (int, unix.Sockaddr, error) {
	syscall.ForkLock.RLock()
	defer syscall.ForkLock.RUnlock()
	nfd, sa, err := unix.Accept(fd)
	if err != nil {
		return -1, nil, err
	}
	unix.CloseOnExec(nfd)
	return nfd, sa, nil
}
