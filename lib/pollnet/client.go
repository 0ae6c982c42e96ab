package pollnet

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/pollnet/lib/sock"
	"net/netip"
	"time"
)

// never is the attempt time used when retries or timeouts are disabled
var never = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// attemptResult is the outcome of one connect step
type attemptResult int

const (
	attemptPending attemptResult = iota // waiting for backoff or for the handshake
	attemptFailed                       // the attempt ended, OnConnectFailed is due
	attemptDone                         // the connection is open
)

// Client maintains one outbound connection. It is idle, connecting or
// connected at any time, and reconnects according to the configured retry
// interval. The embedded Conn is the connection handed to the handler.
type Client[P any] struct {
	Conn[P]

	server           netip.AddrPort
	local            netip.AddrPort // zero if the socket is not bound explicitly
	initialized      bool
	pending          sock.Handle
	nextAttempt      time.Time
	attemptDeadline  time.Time
	reportDisconnect bool
}

// NewClient creates an idle client. Call Init before the first Poll.
func NewClient[P any](cfg Config, opts ...Option) (*Client[P], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client[P]{pending: sock.Invalid}
	c.Conn.init(cfg, buildOptions(opts))
	return c, nil
}

// --------------------------------------------------------------------------
// Public Methods
// --------------------------------------------------------------------------

// Init sets the connection target. If interfaceIP is not empty or localPort is
// not zero, every attempt binds its socket to interfaceIP:localPort first.
func (c *Client[P]) Init(interfaceIP, serverIP string, serverPort, localPort uint16) error {
	sock.EnsureInit()

	ip, err := sock.ParseIPv4(serverIP)
	if err != nil {
		c.setError("invalid server address", err)
		return errors.New(c.lastErr)
	}
	c.server = netip.AddrPortFrom(ip, serverPort)

	c.local = netip.AddrPort{}
	if interfaceIP != "" || localPort != 0 {
		localIP, err := sock.ParseIPv4(interfaceIP)
		if err != nil {
			c.setError("invalid interface address", err)
			return errors.New(c.lastErr)
		}
		c.local = netip.AddrPortFrom(localIP, localPort)
	}

	c.initialized = true
	Logger.Debugf("client target %s", c.server)
	return nil
}

// AllowReconnect lets the next Poll start an attempt regardless of the backoff
func (c *Client[P]) AllowReconnect() {
	c.nextAttempt = time.Time{}
}

// Connecting reports whether a connect attempt is in flight
func (c *Client[P]) Connecting() bool {
	return c.pending != sock.Invalid
}

// ServerAddr returns the configured target
func (c *Client[P]) ServerAddr() netip.AddrPort {
	return c.server
}

// Shutdown aborts a pending attempt and closes the connection without
// emitting events. A later Poll reports the disconnect and reconnects.
func (c *Client[P]) Shutdown(reason string) {
	c.discardPending()
	c.Close(reason)
}

// Poll advances the client by one tick: it reports a pending disconnect,
// performs one connect step while not connected and services the connection
// once connected.
func (c *Client[P]) Poll(h IHandler[P]) {
	if !c.initialized {
		return
	}
	now := c.clock()

	if !c.IsConnected() {
		if c.reportDisconnect {
			c.reportDisconnect = false
			disconnectsTotal.Inc()
			Logger.Debugf("disconnected from %s: %s", c.server, c.lastErr)
			h.OnDisconnected(&c.Conn)
		}

		switch c.connect(now) {
		case attemptPending:
			return
		case attemptFailed:
			connectFailuresTotal.Inc()
			Logger.Debugf("connect to %s failed: %s", c.server, c.lastErr)
			h.OnConnectFailed()
			return
		}

		c.reportDisconnect = true
		connectsTotal.Inc()
		Logger.Debugf("connected to %s", c.server)
		h.OnConnected(&c.Conn)
	}

	c.pollConn(now, h)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// connect performs one step of the connect sequence
func (c *Client[P]) connect(now time.Time) attemptResult {
	if c.pending == sock.Invalid {
		if now.Before(c.nextAttempt) {
			return attemptPending
		}
		if c.cfg.ConnRetryInterval > 0 {
			c.nextAttempt = now.Add(c.cfg.ConnRetryInterval)
		} else {
			c.nextAttempt = never
		}

		h, err := c.newSocket()
		if err != nil {
			return attemptFailed
		}
		c.pending = h

		if c.cfg.ConnTimeout > 0 {
			c.attemptDeadline = now.Add(c.cfg.ConnTimeout)
		} else {
			c.attemptDeadline = never
		}
	}

	err := c.sys.Connect(c.pending, c.server)
	if err == nil || sock.IsConnected(err) {
		h := c.pending
		c.pending = sock.Invalid
		if err := c.open(now, h); err != nil {
			return attemptFailed
		}
		c.remote = c.server
		return attemptDone
	}

	expired := !now.Before(c.attemptDeadline)
	if sock.IsInProgress(err) && !expired {
		return attemptPending
	}

	if expired {
		c.setError("connect expired", nil)
	} else {
		c.setError("connect error", err)
	}
	c.discardPending()
	return attemptFailed
}

// newSocket creates, optionally binds and configures the socket of a new attempt
func (c *Client[P]) newSocket() (sock.Handle, error) {
	h, err := c.sys.Socket()
	if err != nil {
		c.setError("socket error", err)
		return sock.Invalid, err
	}
	if c.local.IsValid() {
		if err := c.sys.Bind(h, c.local); err != nil {
			c.setError("bind error", err)
			_ = c.sys.Close(h)
			return sock.Invalid, err
		}
	}
	if err := c.sys.SetNonblock(h); err != nil {
		c.setError("set nonblock error", err)
		_ = c.sys.Close(h)
		return sock.Invalid, err
	}
	return h, nil
}

func (c *Client[P]) discardPending() {
	if c.pending == sock.Invalid {
		return
	}
	if err := c.sys.Close(c.pending); err != nil {
		Logger.Debugf("close pending %d: %v", c.pending, err)
	}
	c.pending = sock.Invalid
}

// String describes the client for logs
func (c *Client[P]) String() string {
	state := "idle"
	switch {
	case c.IsConnected():
		state = "connected"
	case c.Connecting():
		state = "connecting"
	}
	return fmt.Sprintf("client(%s, %s)", c.server, state)
}
