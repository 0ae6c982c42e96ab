package pollnet

import (
	"fmt"
	"github.com/ValentinKolb/pollnet/lib/sock/socktest"
	"time"
)

var t0 = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

// fakeClock is a manually advanced time source
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: t0}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// recorder records every callback as a string event. The optional hooks run
// after the event was recorded.
type recorder struct {
	events []string

	onConnected    func(c *Conn[int])
	onDisconnected func(c *Conn[int])
	onData         func(c *Conn[int], data []byte) int
	onSendTimeout  func(c *Conn[int])
	onRecvTimeout  func(c *Conn[int])
}

func (r *recorder) OnConnected(c *Conn[int]) {
	r.events = append(r.events, "connected")
	if r.onConnected != nil {
		r.onConnected(c)
	}
}

func (r *recorder) OnDisconnected(c *Conn[int]) {
	r.events = append(r.events, "disconnected: "+c.LastError())
	if r.onDisconnected != nil {
		r.onDisconnected(c)
	}
}

func (r *recorder) OnConnectFailed() {
	r.events = append(r.events, "connect failed")
}

func (r *recorder) OnData(c *Conn[int], data []byte) int {
	r.events = append(r.events, fmt.Sprintf("data: %s", data))
	if r.onData != nil {
		return r.onData(c, data)
	}
	return 0
}

func (r *recorder) OnSendTimeout(c *Conn[int]) {
	r.events = append(r.events, "send timeout")
	if r.onSendTimeout != nil {
		r.onSendTimeout(c)
	}
}

func (r *recorder) OnRecvTimeout(c *Conn[int]) {
	r.events = append(r.events, "recv timeout")
	if r.onRecvTimeout != nil {
		r.onRecvTimeout(c)
	}
}

// take returns the recorded events and resets the log
func (r *recorder) take() []string {
	ev := r.events
	r.events = nil
	return ev
}

// count returns how often event was recorded
func (r *recorder) count(event string) int {
	n := 0
	for _, e := range r.events {
		if e == event {
			n++
		}
	}
	return n
}

// testEnv bundles the fakes shared by the engine tests
type testEnv struct {
	net   *socktest.Net
	clock *fakeClock
}

func newTestEnv() *testEnv {
	return &testEnv{net: socktest.New(), clock: newFakeClock()}
}

func (e *testEnv) options() []Option {
	return []Option{WithSys(e.net), WithClock(e.clock.Now)}
}
