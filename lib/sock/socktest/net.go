//go:build unix

package socktest

import (
	"github.com/ValentinKolb/pollnet/lib/sock"
	"golang.org/x/sys/unix"
	"net/netip"
)

// Op names a fake socket operation for fault injection
type Op string

const (
	OpSocket    Op = "socket"
	OpBind      Op = "bind"
	OpListen    Op = "listen"
	OpConnect   Op = "connect"
	OpAccept    Op = "accept"
	OpSend      Op = "send"
	OpRecv      Op = "recv"
	OpNonblock  Op = "nonblock"
	OpNoDelay   Op = "nodelay"
	OpReuseAddr Op = "reuseaddr"
)

const firstEphemeralPort = 40000

// socket is the in-memory state of one fake socket
type socket struct {
	h          sock.Handle
	closed     bool
	local      netip.AddrPort
	remote     netip.AddrPort
	bound      bool
	listening  bool
	backlog    int
	pending    []*socket // accept side sockets not yet returned by Accept
	peer       *socket
	inbox      [][]byte
	eof        bool // the peer closed its side
	connected  bool
	nonblock   bool
	nodelay    bool
	reuseAddr  bool
	connectCnt int
}

// Net implements sock.ISys in memory
type Net struct {
	next      sock.Handle
	sockets   map[sock.Handle]*socket
	listeners map[uint16]*socket
	faults    map[Op]error
	script    []error
	ephemeral uint16

	// SendLimit caps the number of bytes a single Send accepts (0 = unlimited)
	SendLimit int
}

// New creates an empty fake network
func New() *Net {
	return &Net{
		next:      3,
		sockets:   make(map[sock.Handle]*socket),
		listeners: make(map[uint16]*socket),
		faults:    make(map[Op]error),
		ephemeral: firstEphemeralPort,
	}
}

// --------------------------------------------------------------------------
// Test Controls
// --------------------------------------------------------------------------

// Fail makes every following call of op return err until Clear is called.
func (n *Net) Fail(op Op, err error) {
	n.faults[op] = err
}

// Clear removes an injected fault.
func (n *Net) Clear(op Op) {
	delete(n.faults, op)
}

// ScriptConnect queues results for the next Connect calls, one per call.
// A nil or EISCONN result establishes the connection to a fresh remote
// Endpoint (see Remote). Once the script is exhausted, Connect falls back to
// the fake listeners.
func (n *Net) ScriptConnect(results ...error) {
	n.script = append(n.script, results...)
}

// Dial queues a new inbound connection on the listener at addr and returns
// its remote Endpoint. ECONNREFUSED is returned if nothing listens there or
// the backlog is full.
func (n *Net) Dial(addr netip.AddrPort) (*Endpoint, error) {
	l := n.listenerFor(addr)
	if l == nil || len(l.pending) >= l.backlog {
		return nil, unix.ECONNREFUSED
	}
	remote := &socket{h: sock.Invalid, local: n.nextEphemeral(), remote: l.local, connected: true}
	accepted := &socket{h: sock.Invalid, local: l.local, remote: remote.local, connected: true}
	remote.peer, accepted.peer = accepted, remote
	l.pending = append(l.pending, accepted)
	return &Endpoint{s: remote}, nil
}

// Remote returns the far end of the connection owned by h, or nil.
func (n *Net) Remote(h sock.Handle) *Endpoint {
	s, ok := n.sockets[h]
	if !ok || s.peer == nil {
		return nil
	}
	return &Endpoint{s: s.peer}
}

// IsOpen reports whether h refers to an open fake socket.
func (n *Net) IsOpen(h sock.Handle) bool {
	_, ok := n.sockets[h]
	return ok
}

// OpenCount returns the number of open fake sockets.
func (n *Net) OpenCount() int {
	return len(n.sockets)
}

// Nonblocking reports whether SetNonblock was applied to h.
func (n *Net) Nonblocking(h sock.Handle) bool {
	s, ok := n.sockets[h]
	return ok && s.nonblock
}

// NoDelay reports whether SetNoDelay was applied to h.
func (n *Net) NoDelay(h sock.Handle) bool {
	s, ok := n.sockets[h]
	return ok && s.nodelay
}

// ConnectCalls returns how many times Connect was called on h.
func (n *Net) ConnectCalls(h sock.Handle) int {
	s, ok := n.sockets[h]
	if !ok {
		return 0
	}
	return s.connectCnt
}

// --------------------------------------------------------------------------
// Interface Methods (docu see sock.ISys)
// --------------------------------------------------------------------------

func (n *Net) Socket() (sock.Handle, error) {
	if err := n.faults[OpSocket]; err != nil {
		return sock.Invalid, err
	}
	return n.register(&socket{}), nil
}

func (n *Net) Bind(h sock.Handle, addr netip.AddrPort) error {
	s, err := n.lookup(h, OpBind)
	if err != nil {
		return err
	}
	if s.bound {
		return unix.EINVAL
	}
	if addr.Port() == 0 {
		addr = netip.AddrPortFrom(addr.Addr(), n.nextEphemeral().Port())
	} else if l, ok := n.listeners[addr.Port()]; ok && !l.closed {
		return unix.EADDRINUSE
	}
	s.local = addr
	s.bound = true
	return nil
}

func (n *Net) Listen(h sock.Handle, backlog int) error {
	s, err := n.lookup(h, OpListen)
	if err != nil {
		return err
	}
	if !s.bound {
		s.local = n.nextEphemeral()
		s.bound = true
	}
	if backlog < 1 {
		backlog = 1
	}
	s.listening = true
	s.backlog = backlog
	n.listeners[s.local.Port()] = s
	return nil
}

func (n *Net) Connect(h sock.Handle, addr netip.AddrPort) error {
	s, err := n.lookup(h, OpConnect)
	if err != nil {
		return err
	}
	s.connectCnt++
	if s.connected {
		return unix.EISCONN
	}
	if !s.bound {
		s.local = n.nextEphemeral()
		s.bound = true
	}

	if len(n.script) > 0 {
		res := n.script[0]
		n.script = n.script[1:]
		if res == nil || sock.IsConnected(res) {
			remote := &socket{h: sock.Invalid, local: addr, remote: s.local, connected: true}
			n.pair(s, remote, addr)
		}
		return res
	}

	l := n.listenerFor(addr)
	if l == nil || len(l.pending) >= l.backlog {
		return unix.ECONNREFUSED
	}
	accepted := &socket{h: sock.Invalid, local: l.local, remote: s.local, connected: true}
	n.pair(s, accepted, addr)
	l.pending = append(l.pending, accepted)
	return nil
}

func (n *Net) Accept(h sock.Handle) (sock.Handle, netip.AddrPort, error) {
	s, err := n.lookup(h, OpAccept)
	if err != nil {
		return sock.Invalid, netip.AddrPort{}, err
	}
	if !s.listening {
		return sock.Invalid, netip.AddrPort{}, unix.EINVAL
	}
	if len(s.pending) == 0 {
		return sock.Invalid, netip.AddrPort{}, unix.EAGAIN
	}
	accepted := s.pending[0]
	s.pending = s.pending[1:]
	return n.register(accepted), accepted.remote, nil
}

func (n *Net) Send(h sock.Handle, p []byte) (int, error) {
	s, err := n.lookup(h, OpSend)
	if err != nil {
		return 0, err
	}
	if !s.connected {
		return 0, unix.ENOTCONN
	}
	if s.peer == nil || s.peer.closed || s.eof {
		return 0, unix.EPIPE
	}
	size := len(p)
	if n.SendLimit > 0 && size > n.SendLimit {
		size = n.SendLimit
	}
	if size > 0 {
		s.peer.inbox = append(s.peer.inbox, append([]byte(nil), p[:size]...))
	}
	return size, nil
}

func (n *Net) Recv(h sock.Handle, p []byte) (int, error) {
	s, err := n.lookup(h, OpRecv)
	if err != nil {
		return 0, err
	}
	if !s.connected {
		return 0, unix.ENOTCONN
	}
	return s.recv(p)
}

func (n *Net) Close(h sock.Handle) error {
	s, ok := n.sockets[h]
	if !ok {
		return unix.EBADF
	}
	s.closed = true
	delete(n.sockets, h)
	if s.listening && n.listeners[s.local.Port()] == s {
		delete(n.listeners, s.local.Port())
	}
	if s.peer != nil {
		s.peer.eof = true
	}
	// pending connections of a closed listener are reset
	for _, p := range s.pending {
		p.closed = true
		if p.peer != nil {
			p.peer.eof = true
		}
	}
	s.pending = nil
	return nil
}

func (n *Net) SetNonblock(h sock.Handle) error {
	s, err := n.lookup(h, OpNonblock)
	if err != nil {
		return err
	}
	s.nonblock = true
	return nil
}

func (n *Net) SetNoDelay(h sock.Handle) error {
	s, err := n.lookup(h, OpNoDelay)
	if err != nil {
		return err
	}
	s.nodelay = true
	return nil
}

func (n *Net) SetReuseAddr(h sock.Handle) error {
	s, err := n.lookup(h, OpReuseAddr)
	if err != nil {
		return err
	}
	s.reuseAddr = true
	return nil
}

func (n *Net) SockName(h sock.Handle) (netip.AddrPort, error) {
	s, ok := n.sockets[h]
	if !ok {
		return netip.AddrPort{}, unix.EBADF
	}
	return s.local, nil
}

func (n *Net) PeerName(h sock.Handle) (netip.AddrPort, error) {
	s, ok := n.sockets[h]
	if !ok {
		return netip.AddrPort{}, unix.EBADF
	}
	if !s.connected {
		return netip.AddrPort{}, unix.ENOTCONN
	}
	return s.remote, nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// lookup resolves an open handle and applies the fault injected for op
func (n *Net) lookup(h sock.Handle, op Op) (*socket, error) {
	s, ok := n.sockets[h]
	if !ok {
		return nil, unix.EBADF
	}
	if err := n.faults[op]; err != nil {
		return nil, err
	}
	return s, nil
}

func (n *Net) register(s *socket) sock.Handle {
	s.h = n.next
	n.next++
	n.sockets[s.h] = s
	return s.h
}

func (n *Net) pair(s, remote *socket, addr netip.AddrPort) {
	s.peer, remote.peer = remote, s
	s.remote = addr
	s.connected = true
}

func (n *Net) listenerFor(addr netip.AddrPort) *socket {
	l, ok := n.listeners[addr.Port()]
	if !ok || l.closed {
		return nil
	}
	if l.local.Addr().IsUnspecified() || l.local.Addr() == addr.Addr() {
		return l
	}
	return nil
}

func (n *Net) nextEphemeral() netip.AddrPort {
	port := n.ephemeral
	n.ephemeral++
	return netip.AddrPortFrom(netip.AddrFrom4([4]byte{127, 0, 0, 1}), port)
}

// recv delivers at most one queued chunk
func (s *socket) recv(p []byte) (int, error) {
	if len(s.inbox) == 0 {
		if s.eof {
			return 0, nil
		}
		return 0, unix.EAGAIN
	}
	chunk := s.inbox[0]
	k := copy(p, chunk)
	if k < len(chunk) {
		s.inbox[0] = chunk[k:]
	} else {
		s.inbox = s.inbox[1:]
	}
	return k, nil
}
