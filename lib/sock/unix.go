//go:build unix

package sock

import (
	"fmt"
	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/sys/unix"
	"net/netip"
)

var Logger = logger.GetLogger("sock")

// unixSys implements ISys on top of golang.org/x/sys/unix
type unixSys struct{}

// Unix returns the ISys implementation backed by real OS sockets.
func Unix() ISys {
	return unixSys{}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see sock.ISys)
// --------------------------------------------------------------------------

func (unixSys) Socket() (Handle, error) {
	fd, err := newSocket()
	if err != nil {
		return Invalid, err
	}
	return Handle(fd), nil
}

func (unixSys) Bind(h Handle, addr netip.AddrPort) error {
	sa, err := toSockaddr(addr)
	if err != nil {
		return err
	}
	return unix.Bind(int(h), sa)
}

func (unixSys) Listen(h Handle, backlog int) error {
	return unix.Listen(int(h), backlog)
}

func (unixSys) Connect(h Handle, addr netip.AddrPort) error {
	sa, err := toSockaddr(addr)
	if err != nil {
		return err
	}
	return unix.Connect(int(h), sa)
}

func (unixSys) Accept(h Handle) (Handle, netip.AddrPort, error) {
	fd, sa, err := accept(int(h))
	if err != nil {
		return Invalid, netip.AddrPort{}, err
	}
	return Handle(fd), fromSockaddr(sa), nil
}

func (unixSys) Send(h Handle, p []byte) (int, error) {
	n, err := unix.Write(int(h), p)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (unixSys) Recv(h Handle, p []byte) (int, error) {
	n, err := unix.Read(int(h), p)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (unixSys) Close(h Handle) error {
	return unix.Close(int(h))
}

func (unixSys) SetNonblock(h Handle) error {
	return unix.SetNonblock(int(h), true)
}

func (unixSys) SetNoDelay(h Handle) error {
	return unix.SetsockoptInt(int(h), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
}

func (unixSys) SetReuseAddr(h Handle) error {
	return unix.SetsockoptInt(int(h), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
}

func (unixSys) SockName(h Handle) (netip.AddrPort, error) {
	sa, err := unix.Getsockname(int(h))
	if err != nil {
		return netip.AddrPort{}, err
	}
	return fromSockaddr(sa), nil
}

func (unixSys) PeerName(h Handle) (netip.AddrPort, error) {
	sa, err := unix.Getpeername(int(h))
	if err != nil {
		return netip.AddrPort{}, err
	}
	return fromSockaddr(sa), nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// toSockaddr converts an IPv4 address/port pair to the unix representation
func toSockaddr(addr netip.AddrPort) (unix.Sockaddr, error) {
	ip := addr.Addr().Unmap()
	if !ip.Is4() {
		return nil, fmt.Errorf("%s is not an IPv4 address", addr)
	}
	return &unix.SockaddrInet4{Port: int(addr.Port()), Addr: ip.As4()}, nil
}

// fromSockaddr converts a unix socket address back to netip; unknown families map to the zero value
func fromSockaddr(sa unix.Sockaddr) netip.AddrPort {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(a.Addr), uint16(a.Port))
	case *unix.SockaddrInet6:
		return netip.AddrPortFrom(netip.AddrFrom16(a.Addr).Unmap(), uint16(a.Port))
	default:
		return netip.AddrPort{}
	}
}
