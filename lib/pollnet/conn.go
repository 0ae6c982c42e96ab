package pollnet

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/pollnet/lib/sock"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"net/netip"
	"time"
	"unicode/utf8"
)

var Logger = logger.GetLogger("pollnet")

// maxErrorLen bounds the length of a recorded error string
const maxErrorLen = 128

// ErrClosed is returned by write operations on a closed connection
var ErrClosed = errors.New("connection closed")

// Conn is one TCP connection driven by a Client or a Server.
// The zero value is not usable; connections are created by the engine.
type Conn[P any] struct {
	// Payload holds caller-defined per-connection state
	Payload P

	cfg        Config
	sys        sock.ISys
	clock      func() time.Time
	handle     sock.Handle
	remote     netip.AddrPort
	lastErr    string
	lastSend   time.Time
	recvExpiry time.Time
	buf        recvBuffer
}

// newConn creates a closed connection with its receive buffer allocated
func newConn[P any](cfg Config, o options) *Conn[P] {
	c := &Conn[P]{}
	c.init(cfg, o)
	return c
}

func (c *Conn[P]) init(cfg Config, o options) {
	c.cfg = cfg
	c.sys = o.sys
	c.clock = o.clock
	c.handle = sock.Invalid
	c.buf = newRecvBuffer(cfg.RecvBufSize)
}

// --------------------------------------------------------------------------
// Public Methods
// --------------------------------------------------------------------------

// IsConnected reports whether the connection holds an open socket
func (c *Conn[P]) IsConnected() bool {
	return c.handle != sock.Invalid
}

// LastError returns the reason of the last close or failure
func (c *Conn[P]) LastError() string {
	return c.lastErr
}

// RemoteAddr returns the peer address recorded when the connection was opened
func (c *Conn[P]) RemoteAddr() netip.AddrPort {
	return c.remote
}

// Buffered returns the number of received bytes that were not consumed yet
func (c *Conn[P]) Buffered() int {
	return c.buf.len()
}

// Close releases the socket and records reason. Closing a closed connection
// changes nothing, in particular not the recorded error.
func (c *Conn[P]) Close(reason string) {
	c.close(reason, nil)
}

// WriteSome performs one send call. A send that would block reports 0 bytes
// and no error. Any other failure closes the connection.
func (c *Conn[P]) WriteSome(p []byte) (int, error) {
	if !c.IsConnected() {
		return 0, ErrClosed
	}
	n, err := c.sys.Send(c.handle, p)
	if c.cfg.SendTimeout > 0 {
		c.lastSend = c.clock()
	}
	if err != nil {
		if sock.IsWouldBlock(err) {
			return 0, nil
		}
		c.close("send error", err)
		return 0, err
	}
	bytesSentTotal.Add(n)
	return n, nil
}

// Write sends all of p, spinning on WriteSome while the socket would block.
// It monopolizes the calling goroutine until done or failed, so keep messages
// small or use WriteNonblock when tick latency matters.
func (c *Conn[P]) Write(p []byte) error {
	for len(p) > 0 {
		n, err := c.WriteSome(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

// WriteNonblock sends p with exactly one send call. Anything short of a full
// send, including a partial send under backpressure, closes the connection.
func (c *Conn[P]) WriteNonblock(p []byte) error {
	n, err := c.WriteSome(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		err = fmt.Errorf("%w: %d/%d bytes", io.ErrShortWrite, n, len(p))
		c.close("send error", err)
		return err
	}
	return nil
}

// --------------------------------------------------------------------------
// Engine Methods
// --------------------------------------------------------------------------

// open adopts handle h and prepares it for polling. On failure the handle is
// closed and the reason recorded.
func (c *Conn[P]) open(now time.Time, h sock.Handle) error {
	c.handle = h
	c.buf.reset()
	c.lastSend = now
	c.recvExpiry = now.Add(c.cfg.RecvTimeout)

	if err := c.sys.SetNonblock(h); err != nil {
		c.close("set nonblock error", err)
		return errors.New(c.lastErr)
	}
	if err := c.sys.SetNoDelay(h); err != nil {
		c.close("setsockopt TCP_NODELAY error", err)
		return errors.New(c.lastErr)
	}
	return nil
}

// pollConn runs the per-tick timeout checks and at most one receive
func (c *Conn[P]) pollConn(now time.Time, h IHandler[P]) {
	if !c.IsConnected() {
		return
	}
	if c.cfg.SendTimeout > 0 && !now.Before(c.lastSend.Add(c.cfg.SendTimeout)) {
		h.OnSendTimeout(c)
		c.lastSend = now
		if !c.IsConnected() {
			return
		}
	}

	gotData := c.read(h)
	if !c.IsConnected() {
		return
	}

	if c.cfg.RecvTimeout > 0 {
		if !gotData && !now.Before(c.recvExpiry) {
			h.OnRecvTimeout(c)
			gotData = true
		}
		if gotData {
			c.recvExpiry = now.Add(c.cfg.RecvTimeout)
		}
	}
}

// read performs one receive and hands the unconsumed bytes to the handler.
// It reports whether a data event was delivered.
func (c *Conn[P]) read(h IHandler[P]) bool {
	n, err := c.sys.Recv(c.handle, c.buf.space())
	if err != nil {
		if !sock.IsWouldBlock(err) {
			c.close("read error", err)
		}
		return false
	}
	if n == 0 {
		c.close("remote close", nil)
		return false
	}
	bytesReceivedTotal.Add(n)
	c.buf.advance(n)

	data := c.buf.pending()
	remainder := h.OnData(c, data)
	if remainder < 0 || remainder > len(data) {
		c.buf.reset()
		c.close("invalid data remainder", fmt.Errorf("%d of %d bytes", remainder, len(data)))
		return true
	}

	switch c.buf.consume(remainder) {
	case consumedCompacted:
		compactionsTotal.Inc()
	case consumedFull:
		if c.IsConnected() {
			overflowsTotal.Inc()
			c.close("recv buffer full", nil)
		}
	}
	return true
}

// close releases the socket once; later calls keep the first reason
func (c *Conn[P]) close(reason string, err error) {
	if c.handle == sock.Invalid {
		return
	}
	c.setError(reason, err)
	if cerr := c.sys.Close(c.handle); cerr != nil {
		Logger.Debugf("close %d: %v", c.handle, cerr)
	}
	c.handle = sock.Invalid
}

// setError records reason, followed by the error text if err is set
func (c *Conn[P]) setError(reason string, err error) {
	c.lastErr = formatError(reason, err)
}

func formatError(reason string, err error) string {
	msg := reason
	if err != nil {
		msg = reason + " " + err.Error()
	}
	if len(msg) > maxErrorLen {
		// cut on a rune boundary, OS error text may be localized
		cut := maxErrorLen
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut]
	}
	return msg
}
