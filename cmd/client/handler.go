package client

import (
	"github.com/ValentinKolb/pollnet/lib/codec"
	"github.com/ValentinKolb/pollnet/lib/frame"
	"github.com/ValentinKolb/pollnet/lib/pollnet"
	"github.com/eapache/queue"
	"sort"
	"time"
)

// stats is the client payload. It survives reconnects.
type stats struct {
	connects int
	replies  int
	bytes    int
}

// handler implements pollnet.IHandler for the demo client.
//
// Greetings wait in the outbox until the client is connected. A greeting stays
// in unanswered until its reply arrives and is queued again after a reconnect.
type handler struct {
	pollnet.BaseHandler[stats]

	client     *pollnet.Client[stats]
	codec      codec.ICodec
	frameMode  bool
	maxBody    int
	body       string
	outbox     *queue.Queue
	unanswered map[uint64][]byte
	expect     int
}

func newHandler(client *pollnet.Client[stats], c codec.ICodec, frameMode bool, maxBody int) *handler {
	return &handler{
		client:     client,
		codec:      c,
		frameMode:  frameMode,
		maxBody:    maxBody,
		outbox:     queue.New(),
		unanswered: make(map[uint64][]byte),
	}
}

// enqueue prepares count messages carrying body
func (h *handler) enqueue(count int, body string) error {
	h.body = body
	for seq := uint64(1); seq <= uint64(count); seq++ {
		if !h.frameMode {
			h.outbox.Add([]byte(body))
			h.expect += len(body)
			continue
		}
		enc, err := h.codec.Encode(codec.NewMessage(codec.KindGreeting, seq, body))
		if err != nil {
			return err
		}
		f := frame.Encode(enc)
		h.unanswered[seq] = f
		h.outbox.Add(f)
		h.expect++
	}
	return nil
}

// done reports whether every expected reply arrived
func (h *handler) done() bool {
	if h.frameMode {
		return h.client.Payload.replies >= h.expect
	}
	return h.client.Payload.bytes >= h.expect
}

// --------------------------------------------------------------------------
// Interface Methods (docu see pollnet.IHandler)
// --------------------------------------------------------------------------

func (h *handler) OnConnected(c *pollnet.Conn[stats]) {
	c.Payload.connects++
	Logger.Infof("connected to %s (connection #%d), %d messages queued", c.RemoteAddr(), c.Payload.connects, h.outbox.Length())
	h.flush(c)
}

func (h *handler) OnDisconnected(c *pollnet.Conn[stats]) {
	Logger.Warningf("disconnected: %s", c.LastError())
	if h.frameMode {
		h.requeue()
	}
}

func (h *handler) OnConnectFailed() {
	Logger.Warningf("connect to %s failed: %s", h.client.ServerAddr(), h.client.LastError())
}

func (h *handler) OnSendTimeout(c *pollnet.Conn[stats]) {
	if !h.frameMode {
		return
	}
	enc, err := h.codec.Encode(codec.NewMessage(codec.KindHeartbeat, 0, ""))
	if err != nil {
		Logger.Errorf("encode heartbeat: %v", err)
		return
	}
	if err := c.WriteNonblock(frame.Encode(enc)); err != nil {
		Logger.Warningf("heartbeat: %v", err)
	}
}

func (h *handler) OnRecvTimeout(c *pollnet.Conn[stats]) {
	Logger.Warningf("no data from %s, closing", c.RemoteAddr())
	c.Close("recv timeout")
}

func (h *handler) OnData(c *pollnet.Conn[stats], data []byte) int {
	if !h.frameMode {
		c.Payload.bytes += len(data)
		Logger.Infof("recv: %s", data)
		return 0
	}

	remainder, err := frame.Split(data, h.maxBody, func(body []byte) {
		var msg codec.Message
		if err := h.codec.Decode(body, &msg); err != nil {
			Logger.Errorf("decode: %v", err)
			return
		}
		if msg.Kind != codec.KindReply {
			return
		}
		if _, ok := h.unanswered[msg.Seq]; !ok {
			return
		}
		delete(h.unanswered, msg.Seq)
		c.Payload.replies++
		rtt := time.Since(time.UnixMilli(msg.SentAt))
		Logger.Infof("reply seq=%d body=%q rtt=%s", msg.Seq, msg.Body, rtt)
	})
	if err != nil {
		c.Close(err.Error())
		return 0
	}
	return remainder
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// flush writes the outbox in order and stops at the first failed write
func (h *handler) flush(c *pollnet.Conn[stats]) {
	for h.outbox.Length() > 0 {
		f := h.outbox.Peek().([]byte)
		if err := c.Write(f); err != nil {
			Logger.Warningf("send: %v", err)
			return
		}
		h.outbox.Remove()
	}
}

// requeue rebuilds the outbox from the unanswered greetings in sequence order
func (h *handler) requeue() {
	seqs := make([]uint64, 0, len(h.unanswered))
	for seq := range h.unanswered {
		seqs = append(seqs, seq)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })

	for h.outbox.Length() > 0 {
		h.outbox.Remove()
	}
	for _, seq := range seqs {
		h.outbox.Add(h.unanswered[seq])
	}
}
