package serve

import (
	"github.com/ValentinKolb/pollnet/lib/codec"
	"github.com/ValentinKolb/pollnet/lib/frame"
	"github.com/ValentinKolb/pollnet/lib/pollnet"
	"github.com/ValentinKolb/pollnet/lib/sock/socktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
	"net/netip"
	"strings"
	"testing"
	"time"
)

var listenAddr = netip.MustParseAddrPort("127.0.0.1:9000")

// fakeClock is a manually advanced time source
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

type testServer struct {
	net     *socktest.Net
	clock   *fakeClock
	server  *pollnet.Server[peer]
	handler *handler
	codec   codec.ICodec
}

func newTestServer(t *testing.T, mode string) *testServer {
	t.Helper()
	ts := &testServer{
		net:   socktest.New(),
		clock: &fakeClock{now: time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)},
		codec: codec.NewJSONCodec(),
	}
	cfg := pollnet.DefaultServerConfig()
	srv, err := pollnet.NewServer[peer](cfg, pollnet.WithSys(ts.net), pollnet.WithClock(ts.clock.Now))
	require.NoError(t, err)
	require.NoError(t, srv.Init("", "127.0.0.1", 9000))
	ts.server = srv
	ts.handler = newHandler(srv, mode, ts.codec, cfg.RecvBufSize-frame.HeaderLen)
	return ts
}

// connect dials the server and lets it accept the connection
func (ts *testServer) connect(t *testing.T) *socktest.Endpoint {
	t.Helper()
	ep, err := ts.net.Dial(listenAddr)
	require.NoError(t, err)
	ts.server.Poll(ts.handler)
	return ep
}

func (ts *testServer) encode(t *testing.T, kind codec.MessageKind, seq uint64, body string) []byte {
	t.Helper()
	enc, err := ts.codec.Encode(codec.NewMessage(kind, seq, body))
	require.NoError(t, err)
	return frame.Encode(enc)
}

// decodeAll splits and decodes every frame the endpoint received
func (ts *testServer) decodeAll(t *testing.T, data []byte) []codec.Message {
	t.Helper()
	var msgs []codec.Message
	remainder, err := frame.Split(data, 0, func(body []byte) {
		var msg codec.Message
		require.NoError(t, ts.codec.Decode(body, &msg))
		msgs = append(msgs, msg)
	})
	require.NoError(t, err)
	require.Equal(t, 0, remainder)
	return msgs
}

func TestFrameModeRepliesToGreetings(t *testing.T) {
	ts := newTestServer(t, ModeFrame)
	ep := ts.connect(t)
	require.Equal(t, 1, ts.handler.sessions.Size())

	greeting := ts.encode(t, codec.KindGreeting, 7, "hello pollnet")
	heartbeat := ts.encode(t, codec.KindHeartbeat, 0, "")
	stream := append(append([]byte(nil), greeting...), heartbeat...)
	require.NoError(t, ep.Write(stream))
	ts.server.Poll(ts.handler)

	replies := ts.decodeAll(t, ep.Read())
	require.Len(t, replies, 1, "heartbeats are not answered")
	assert.Equal(t, codec.KindReply, replies[0].Kind)
	assert.Equal(t, uint64(7), replies[0].Seq)
	assert.Equal(t, "HELLO POLLNET", replies[0].Body)

	s, ok := ts.handler.sessions.Load(1)
	require.True(t, ok)
	assert.Equal(t, uint64(2), s.Frames)
	assert.Equal(t, uint64(len(stream)), s.Bytes)
	assert.Equal(t, ep.Addr(), s.Addr)
}

func TestFrameModeAccountsPartialFrames(t *testing.T) {
	ts := newTestServer(t, ModeFrame)
	ep := ts.connect(t)

	greeting := ts.encode(t, codec.KindGreeting, 1, "abc")
	require.NoError(t, ep.Write(greeting[:6]))
	ts.server.Poll(ts.handler)

	s, _ := ts.handler.sessions.Load(1)
	assert.Equal(t, uint64(0), s.Frames)
	assert.Equal(t, uint64(0), s.Bytes)
	assert.Empty(t, ep.Read())

	require.NoError(t, ep.Write(greeting[6:]))
	ts.server.Poll(ts.handler)

	s, _ = ts.handler.sessions.Load(1)
	assert.Equal(t, uint64(1), s.Frames)
	assert.Equal(t, uint64(len(greeting)), s.Bytes)
	replies := ts.decodeAll(t, ep.Read())
	require.Len(t, replies, 1)
	assert.Equal(t, "ABC", replies[0].Body)
}

func TestFrameModeClosesOnBadInput(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		prefix string
	}{
		{"undecodable", frame.Encode([]byte("not a message")), "decode error"},
		{"oversized", frame.Encode(make([]byte, 5000)), "frame too large"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t, ModeFrame)
			ep := ts.connect(t)

			var conn *pollnet.Conn[peer]
			ts.server.ForEachConn(func(c *pollnet.Conn[peer]) { conn = c })
			require.NotNil(t, conn)

			require.NoError(t, ep.Write(tc.data))
			ts.server.Poll(ts.handler)
			reason := conn.LastError()

			assert.True(t, strings.HasPrefix(reason, tc.prefix), "got %q", reason)
			assert.Equal(t, 0, ts.server.ConnCount())
			assert.Equal(t, 0, ts.handler.sessions.Size())
			assert.True(t, ep.PeerClosed())
		})
	}
}

func TestUpperModeEchoes(t *testing.T) {
	ts := newTestServer(t, ModeUpper)
	ep := ts.connect(t)

	require.NoError(t, ep.Write([]byte("hello")))
	ts.server.Poll(ts.handler)
	require.NoError(t, ep.Write([]byte(" world")))
	ts.server.Poll(ts.handler)

	assert.Equal(t, "HELLO WORLD", string(ep.Read()))
	s, ok := ts.handler.sessions.Load(1)
	require.True(t, ok)
	assert.Equal(t, uint64(0), s.Frames)
	assert.Equal(t, uint64(11), s.Bytes)
}

func TestFailedEchoClosesSession(t *testing.T) {
	ts := newTestServer(t, ModeUpper)
	ep := ts.connect(t)

	ts.net.Fail(socktest.OpSend, unix.EPIPE)
	require.NoError(t, ep.Write([]byte("hello")))
	ts.server.Poll(ts.handler)

	assert.Equal(t, 0, ts.server.ConnCount())
	assert.Equal(t, 0, ts.handler.sessions.Size())
	assert.True(t, ep.PeerClosed())
}

func TestSessionsFollowConnections(t *testing.T) {
	ts := newTestServer(t, ModeUpper)
	first := ts.connect(t)
	ts.connect(t)
	require.Equal(t, 2, ts.handler.sessions.Size())

	first.Close()
	ts.server.Poll(ts.handler)

	assert.Equal(t, 1, ts.handler.sessions.Size())
	_, ok := ts.handler.sessions.Load(1)
	assert.False(t, ok)
	_, ok = ts.handler.sessions.Load(2)
	assert.True(t, ok)

	// session ids are never reused
	ts.connect(t)
	_, ok = ts.handler.sessions.Load(3)
	assert.True(t, ok)
}

func TestRecvTimeoutClosesConnection(t *testing.T) {
	ts := newTestServer(t, ModeUpper)
	ep := ts.connect(t)

	ts.clock.now = ts.clock.now.Add(pollnet.DefaultRecvTimeout)
	ts.server.Poll(ts.handler)

	assert.Equal(t, 0, ts.server.ConnCount())
	assert.Equal(t, 0, ts.handler.sessions.Size())
	assert.True(t, ep.PeerClosed())
}
