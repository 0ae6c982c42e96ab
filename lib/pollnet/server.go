package pollnet

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/pollnet/lib/sock"
	"net/netip"
	"time"
)

// Server accepts inbound connections into a fixed-capacity pool.
//
// Slots [0, ConnCount()) hold the active connections. When a connection
// closes, the last active connection is swapped into its slot, so a
// connection's position in the pool is not a stable identity.
type Server[P any] struct {
	cfg     Config
	sys     sock.ISys
	clock   func() time.Time
	listen  sock.Handle
	addr    netip.AddrPort
	conns   []*Conn[P]
	active  int
	lastErr string
}

// NewServer creates a server with MaxConns pre-allocated connections.
// Call Init before the first Poll.
func NewServer[P any](cfg Config, opts ...Option) (*Server[P], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxConns == 0 {
		return nil, fmt.Errorf("invalid MaxConns=%d, a server needs at least one connection", cfg.MaxConns)
	}
	if cfg.ListenBacklog == 0 {
		cfg.ListenBacklog = DefaultListenBacklog
	}

	o := buildOptions(opts)
	s := &Server[P]{
		cfg:    cfg,
		sys:    o.sys,
		clock:  o.clock,
		listen: sock.Invalid,
		conns:  make([]*Conn[P], cfg.MaxConns),
	}
	for i := range s.conns {
		s.conns[i] = newConn[P](cfg, o)
	}
	return s, nil
}

// --------------------------------------------------------------------------
// Public Methods
// --------------------------------------------------------------------------

// Init creates the listening socket on serverIP:port. An empty serverIP falls
// back to interfaceIP, and to all interfaces if both are empty.
// On failure the listener is closed, LastError describes the failing step and
// the same text is returned as error. Init is not retried automatically.
func (s *Server[P]) Init(interfaceIP, serverIP string, port uint16) error {
	sock.EnsureInit()

	if !s.IsClosed() {
		return fmt.Errorf("server already listening on %s", s.addr)
	}
	if serverIP == "" {
		serverIP = interfaceIP
	}
	ip, err := sock.ParseIPv4(serverIP)
	if err != nil {
		s.lastErr = formatError("invalid listen address", err)
		return errors.New(s.lastErr)
	}
	addr := netip.AddrPortFrom(ip, port)

	h, err := s.sys.Socket()
	if err != nil {
		s.lastErr = formatError("socket error", err)
		return errors.New(s.lastErr)
	}
	s.listen = h

	if err := s.sys.SetNonblock(h); err != nil {
		return s.fail("set nonblock error", err)
	}
	if err := s.sys.SetReuseAddr(h); err != nil {
		return s.fail("setsockopt SO_REUSEADDR error", err)
	}
	if err := s.sys.Bind(h, addr); err != nil {
		return s.fail("bind error", err)
	}
	if err := s.sys.Listen(h, s.cfg.ListenBacklog); err != nil {
		return s.fail("listen error", err)
	}

	s.addr = addr
	if bound, err := s.sys.SockName(h); err == nil {
		s.addr = bound
	}
	Logger.Infof("listening on %s (max %d connections)", s.addr, len(s.conns))
	return nil
}

// Addr returns the bound listening address (useful after binding port 0)
func (s *Server[P]) Addr() (netip.AddrPort, error) {
	if s.IsClosed() {
		return netip.AddrPort{}, fmt.Errorf("server is not listening")
	}
	return s.addr, nil
}

// LastError returns the last listener-level failure
func (s *Server[P]) LastError() string {
	return s.lastErr
}

// IsClosed reports whether the server has no listening socket
func (s *Server[P]) IsClosed() bool {
	return s.listen == sock.Invalid
}

// ConnCount returns the number of active connections
func (s *Server[P]) ConnCount() int {
	return s.active
}

// ForEachConn calls fn for every active connection in pool order.
// fn must not close connections; close them from a handler callback instead.
func (s *Server[P]) ForEachConn(fn func(c *Conn[P])) {
	for i := 0; i < s.active; i++ {
		fn(s.conns[i])
	}
}

// Close closes the listener and every active connection without emitting
// events. The reason is recorded on the listener and the connections.
func (s *Server[P]) Close(reason string) {
	s.close(reason, nil)
	for i := 0; i < s.active; i++ {
		s.conns[i].Close(reason)
	}
	s.active = 0
}

// Poll advances the server by one tick, using a single timestamp: it accepts
// at most one connection while the pool has room, then services every active
// connection and removes the ones that closed.
func (s *Server[P]) Poll(h IHandler[P]) {
	now := s.clock()

	if !s.IsClosed() && s.active < len(s.conns) {
		s.accept(now, h)
	}

	for i := 0; i < s.active; {
		c := s.conns[i]
		c.pollConn(now, h)
		if c.IsConnected() {
			i++
			continue
		}
		s.active--
		s.conns[i], s.conns[s.active] = s.conns[s.active], s.conns[i]
		disconnectsTotal.Inc()
		Logger.Debugf("connection %s closed: %s", c.remote, c.lastErr)
		h.OnDisconnected(c)
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// accept takes one pending connection into the next free slot.
// Accept failures are not fatal, the next tick simply tries again.
func (s *Server[P]) accept(now time.Time, h IHandler[P]) {
	fd, peer, err := s.sys.Accept(s.listen)
	if err != nil {
		if !sock.IsWouldBlock(err) {
			acceptErrorsTotal.Inc()
			Logger.Debugf("accept error: %v", err)
		}
		return
	}

	c := s.conns[s.active]
	var zero P
	c.Payload = zero
	c.remote = peer
	if err := c.open(now, fd); err != nil {
		Logger.Debugf("open accepted connection %s: %v", peer, err)
		return
	}

	s.active++
	acceptsTotal.Inc()
	Logger.Debugf("accepted %s (%d/%d)", peer, s.active, len(s.conns))
	h.OnConnected(c)
}

// fail closes the listener, recording reason and the OS error
func (s *Server[P]) fail(reason string, err error) error {
	s.close(reason, err)
	Logger.Warningf("listener: %s", s.lastErr)
	return errors.New(s.lastErr)
}

func (s *Server[P]) close(reason string, err error) {
	if s.listen == sock.Invalid {
		return
	}
	s.lastErr = formatError(reason, err)
	if cerr := s.sys.Close(s.listen); cerr != nil {
		Logger.Debugf("close listener: %v", cerr)
	}
	s.listen = sock.Invalid
}
