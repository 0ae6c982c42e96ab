package serve

import (
	"bytes"
	"github.com/ValentinKolb/pollnet/lib/codec"
	"github.com/ValentinKolb/pollnet/lib/frame"
	"github.com/ValentinKolb/pollnet/lib/pollnet"
	"github.com/puzpuzpuz/xsync/v3"
	"net/netip"
	"strings"
	"time"
)

const (
	ModeUpper = "upper"
	ModeFrame = "frame"
)

// peer is the per-connection payload of the demo server
type peer struct {
	sessionID uint64
}

// session describes one live connection. Sessions are keyed by a stable id
// because a connection's slot in the pool changes when others disconnect.
type session struct {
	ID     uint64
	Addr   netip.AddrPort
	Since  time.Time
	Frames uint64
	Bytes  uint64
}

// handler implements pollnet.IHandler for the demo server
type handler struct {
	pollnet.BaseHandler[peer]

	server   *pollnet.Server[peer]
	mode     string
	codec    codec.ICodec
	maxBody  int
	sessions *xsync.MapOf[uint64, session]
	nextID   uint64
	out      []byte
}

func newHandler(server *pollnet.Server[peer], mode string, c codec.ICodec, maxBody int) *handler {
	return &handler{
		server:   server,
		mode:     mode,
		codec:    c,
		maxBody:  maxBody,
		sessions: xsync.NewMapOf[uint64, session](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see pollnet.IHandler)
// --------------------------------------------------------------------------

func (h *handler) OnConnected(c *pollnet.Conn[peer]) {
	h.nextID++
	c.Payload.sessionID = h.nextID
	h.sessions.Store(h.nextID, session{ID: h.nextID, Addr: c.RemoteAddr(), Since: time.Now()})
	Logger.Infof("new connection from %s, session=%d, total=%d", c.RemoteAddr(), h.nextID, h.server.ConnCount())
}

func (h *handler) OnDisconnected(c *pollnet.Conn[peer]) {
	h.sessions.Delete(c.Payload.sessionID)
	Logger.Infof("client disconnected: %s, session=%d, reason=%s, total=%d",
		c.RemoteAddr(), c.Payload.sessionID, c.LastError(), h.server.ConnCount())
}

func (h *handler) OnSendTimeout(c *pollnet.Conn[peer]) {
	Logger.Debugf("send timeout: %s", c.RemoteAddr())
}

func (h *handler) OnRecvTimeout(c *pollnet.Conn[peer]) {
	Logger.Infof("recv timeout: %s", c.RemoteAddr())
	c.Close("recv timeout")
}

func (h *handler) OnData(c *pollnet.Conn[peer], data []byte) int {
	if h.mode == ModeUpper {
		Logger.Debugf("received %d bytes from %s", len(data), c.RemoteAddr())
		if err := c.Write(bytes.ToUpper(data)); err != nil {
			Logger.Debugf("echo to %s: %v", c.RemoteAddr(), err)
		}
		h.account(c, 0, len(data))
		return 0
	}

	frames := 0
	remainder, err := frame.Split(data, h.maxBody, func(body []byte) {
		if !c.IsConnected() {
			return
		}
		frames++
		h.reply(c, body)
	})
	if err != nil {
		c.Close(err.Error())
		return 0
	}
	h.account(c, frames, len(data)-remainder)
	return remainder
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// reply decodes one frame body and answers greetings with their uppercased body
func (h *handler) reply(c *pollnet.Conn[peer], body []byte) {
	var msg codec.Message
	if err := h.codec.Decode(body, &msg); err != nil {
		c.Close("decode error " + err.Error())
		return
	}
	Logger.Debugf("recv %s seq=%d from %s", msg.Kind, msg.Seq, c.RemoteAddr())
	if msg.Kind != codec.KindGreeting {
		return
	}

	resp := codec.NewMessage(codec.KindReply, msg.Seq, strings.ToUpper(msg.Body))
	enc, err := h.codec.Encode(resp)
	if err != nil {
		Logger.Errorf("encode reply: %v", err)
		return
	}
	h.out = frame.Append(h.out[:0], enc)
	if err := c.Write(h.out); err != nil {
		Logger.Debugf("reply to %s: %v", c.RemoteAddr(), err)
	}
}

// account adds traffic statistics to the session of c
func (h *handler) account(c *pollnet.Conn[peer], frames, n int) {
	h.sessions.Compute(c.Payload.sessionID, func(old session, loaded bool) (session, bool) {
		if !loaded {
			return old, true
		}
		old.Frames += uint64(frames)
		old.Bytes += uint64(n)
		return old, false
	})
}
