//go:build unix

package sock

import (
	"fmt"
	"golang.org/x/sys/unix"
	"net/netip"
	"testing"
	"time"
)

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		err        error
		wouldBlock bool
		inProgress bool
		connected  bool
	}{
		{unix.EAGAIN, true, false, false},
		{unix.EWOULDBLOCK, true, false, false},
		{fmt.Errorf("recv: %w", unix.EAGAIN), true, false, false},
		{unix.EINPROGRESS, false, true, false},
		{unix.EALREADY, false, true, false},
		{unix.EISCONN, false, false, true},
		{unix.ECONNREFUSED, false, false, false},
		{nil, false, false, false},
	}
	for _, tc := range tests {
		if got := IsWouldBlock(tc.err); got != tc.wouldBlock {
			t.Errorf("IsWouldBlock(%v) = %v, expected %v", tc.err, got, tc.wouldBlock)
		}
		if got := IsInProgress(tc.err); got != tc.inProgress {
			t.Errorf("IsInProgress(%v) = %v, expected %v", tc.err, got, tc.inProgress)
		}
		if got := IsConnected(tc.err); got != tc.connected {
			t.Errorf("IsConnected(%v) = %v, expected %v", tc.err, got, tc.connected)
		}
	}
}

func TestParseIPv4(t *testing.T) {
	addr, err := ParseIPv4("")
	if err != nil || addr != netip.IPv4Unspecified() {
		t.Errorf("Empty address should be the wildcard, got %v, %v", addr, err)
	}

	addr, err = ParseIPv4("10.0.0.1")
	if err != nil || addr != netip.MustParseAddr("10.0.0.1") {
		t.Errorf("Expected 10.0.0.1, got %v, %v", addr, err)
	}

	for _, bad := range []string{"::1", "localhost", "10.0.0"} {
		if _, err := ParseIPv4(bad); err == nil {
			t.Errorf("ParseIPv4(%q) should fail", bad)
		}
	}
}

func TestSockaddrConversion(t *testing.T) {
	addr := netip.MustParseAddrPort("192.168.1.2:8080")
	sa, err := toSockaddr(addr)
	if err != nil {
		t.Fatalf("toSockaddr failed: %v", err)
	}
	if back := fromSockaddr(sa); back != addr {
		t.Errorf("Expected %s, got %s", addr, back)
	}

	if _, err := toSockaddr(netip.MustParseAddrPort("[::1]:80")); err == nil {
		t.Error("IPv6 addresses should be rejected")
	}
	if got := fromSockaddr(&unix.SockaddrUnix{Name: "/tmp/x"}); got.IsValid() {
		t.Errorf("Unknown families should map to the zero value, got %s", got)
	}
}

// isCloseOnExec reports whether FD_CLOEXEC is set on h
func isCloseOnExec(t *testing.T, h Handle) bool {
	t.Helper()
	flags, err := unix.FcntlInt(uintptr(h), unix.F_GETFD, 0)
	if err != nil {
		t.Fatalf("fcntl: %v", err)
	}
	return flags&unix.FD_CLOEXEC != 0
}

func TestSocketCloseOnExec(t *testing.T) {
	sys := Unix()
	h, err := sys.Socket()
	if err != nil {
		t.Fatalf("socket: %v", err)
	}
	defer sys.Close(h)

	if !isCloseOnExec(t, h) {
		t.Error("New sockets should be close-on-exec")
	}
}

// TestUnixLoopback exercises the real syscalls over 127.0.0.1
func TestUnixLoopback(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping socket test in short mode")
	}
	EnsureInit()
	sys := Unix()

	l, err := sys.Socket()
	if err != nil {
		t.Fatalf("socket: %v", err)
	}
	defer sys.Close(l)
	for _, step := range []func() error{
		func() error { return sys.SetNonblock(l) },
		func() error { return sys.SetReuseAddr(l) },
		func() error { return sys.Bind(l, netip.MustParseAddrPort("127.0.0.1:0")) },
		func() error { return sys.Listen(l, 5) },
	} {
		if err := step(); err != nil {
			t.Fatalf("listener setup: %v", err)
		}
	}
	addr, err := sys.SockName(l)
	if err != nil || addr.Port() == 0 {
		t.Fatalf("SockName returned %s, %v", addr, err)
	}

	if _, _, err := sys.Accept(l); !IsWouldBlock(err) {
		t.Errorf("Accept without pending connections should block, got %v", err)
	}

	c, err := sys.Socket()
	if err != nil {
		t.Fatalf("socket: %v", err)
	}
	defer func() {
		if c != Invalid {
			_ = sys.Close(c)
		}
	}()
	if err := sys.SetNonblock(c); err != nil {
		t.Fatalf("nonblock: %v", err)
	}

	var accepted Handle = Invalid
	deadline := time.Now().Add(5 * time.Second)
	connected := false
	for (!connected || accepted == Invalid) && time.Now().Before(deadline) {
		if !connected {
			err := sys.Connect(c, addr)
			switch {
			case err == nil || IsConnected(err):
				connected = true
			case !IsInProgress(err):
				t.Fatalf("connect: %v", err)
			}
		}
		if accepted == Invalid {
			if h, _, err := sys.Accept(l); err == nil {
				accepted = h
			} else if !IsWouldBlock(err) {
				t.Fatalf("accept: %v", err)
			}
		}
		time.Sleep(time.Millisecond)
	}
	if !connected || accepted == Invalid {
		t.Fatal("loopback connection was not established")
	}
	defer sys.Close(accepted)
	if !isCloseOnExec(t, accepted) {
		t.Error("Accepted sockets should be close-on-exec")
	}

	if err := sys.SetNoDelay(c); err != nil {
		t.Errorf("nodelay: %v", err)
	}
	if peer, err := sys.PeerName(c); err != nil || peer != addr {
		t.Errorf("PeerName returned %s, %v, expected %s", peer, err, addr)
	}

	if n, err := sys.Send(c, []byte("ping")); err != nil || n != 4 {
		t.Fatalf("send returned %d, %v", n, err)
	}
	if err := sys.SetNonblock(accepted); err != nil {
		t.Fatalf("nonblock: %v", err)
	}

	buf := make([]byte, 16)
	var got []byte
	for len(got) < 4 && time.Now().Before(deadline) {
		n, err := sys.Recv(accepted, buf)
		if err != nil && !IsWouldBlock(err) {
			t.Fatalf("recv: %v", err)
		}
		got = append(got, buf[:n]...)
		time.Sleep(time.Millisecond)
	}
	if string(got) != "ping" {
		t.Errorf("Expected ping, got %q", got)
	}

	// an orderly close reads as zero bytes without error
	_ = sys.Close(c)
	c = Invalid
	for time.Now().Before(deadline) {
		n, err := sys.Recv(accepted, buf)
		if err == nil {
			if n != 0 {
				t.Fatalf("unexpected %d bytes after close", n)
			}
			return
		}
		if !IsWouldBlock(err) {
			t.Fatalf("recv after close: %v", err)
		}
		time.Sleep(time.Millisecond)
	}
	t.Error("remote close was not observed")
}
