//go:build unix

package sock

import (
	"errors"
	"fmt"
	"golang.org/x/sys/unix"
	"net/netip"
	"sync"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Handle identifies an OS socket.
type Handle int

// Invalid is the handle value of a closed or never opened socket.
const Invalid Handle = -1

// ISys is the set of socket primitives the engine relies on.
// Every call is a single, non-blocking system call (once SetNonblock has been
// applied to the handle); none of them retry internally.
type ISys interface {
	// Socket creates a new IPv4 stream socket
	Socket() (Handle, error)
	// Bind binds the socket to a local address
	Bind(h Handle, addr netip.AddrPort) error
	// Listen marks the socket as passive with the given backlog
	Listen(h Handle, backlog int) error
	// Connect starts (or continues) a connection attempt to addr.
	// Use IsInProgress and IsConnected to classify the result.
	Connect(h Handle, addr netip.AddrPort) error
	// Accept takes one pending connection from a listening socket
	Accept(h Handle) (Handle, netip.AddrPort, error)
	// Send sends bytes and returns how many were accepted by the kernel
	Send(h Handle, p []byte) (int, error)
	// Recv receives bytes into p. (0, nil) means the peer closed the stream.
	Recv(h Handle, p []byte) (int, error)
	// Close releases the socket
	Close(h Handle) error
	// SetNonblock puts the socket into non-blocking mode
	SetNonblock(h Handle) error
	// SetNoDelay disables Nagle's algorithm (TCP_NODELAY)
	SetNoDelay(h Handle) error
	// SetReuseAddr enables SO_REUSEADDR
	SetReuseAddr(h Handle) error
	// SockName returns the local address of the socket
	SockName(h Handle) (netip.AddrPort, error)
	// PeerName returns the remote address of a connected socket
	PeerName(h Handle) (netip.AddrPort, error)
}

// --------------------------------------------------------------------------
// Error Classification
// --------------------------------------------------------------------------

// IsWouldBlock reports whether err means the call would have blocked.
func IsWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}

// IsInProgress reports whether err means a connect is still pending.
func IsInProgress(err error) bool {
	return errors.Is(err, unix.EINPROGRESS) || errors.Is(err, unix.EALREADY)
}

// IsConnected reports whether err means the socket is already connected.
func IsConnected(err error) bool {
	return errors.Is(err, unix.EISCONN)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

var initOnce sync.Once

// EnsureInit performs the process-wide network initialization exactly once.
// Unix platforms need none, the call only guarantees the ordering.
func EnsureInit() {
	initOnce.Do(func() {
		Logger.Debugf("network stack ready")
	})
}

// ParseIPv4 parses a dotted IPv4 address. An empty string is the wildcard address.
func ParseIPv4(ip string) (netip.Addr, error) {
	if ip == "" {
		return netip.IPv4Unspecified(), nil
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return netip.Addr{}, err
	}
	if !addr.Is4() {
		return netip.Addr{}, fmt.Errorf("%s is not an IPv4 address", ip)
	}
	return addr, nil
}
