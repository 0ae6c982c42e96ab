//go:build unix

package socktest

import (
	"golang.org/x/sys/unix"
	"net/netip"
)

// Endpoint is the test-controlled far side of a fake connection
type Endpoint struct {
	s *socket
}

// Write delivers p to the engine side as one receive chunk.
func (e *Endpoint) Write(p []byte) error {
	if e.s.closed {
		return unix.EBADF
	}
	if e.s.peer == nil || e.s.peer.closed {
		return unix.EPIPE
	}
	e.s.peer.inbox = append(e.s.peer.inbox, append([]byte(nil), p...))
	return nil
}

// Read drains everything the engine side has sent so far.
func (e *Endpoint) Read() []byte {
	var out []byte
	for _, chunk := range e.s.inbox {
		out = append(out, chunk...)
	}
	e.s.inbox = nil
	return out
}

// Close closes the far side; the engine observes an orderly remote close
// once it has drained the data already written.
func (e *Endpoint) Close() {
	if e.s.closed {
		return
	}
	e.s.closed = true
	if e.s.peer != nil {
		e.s.peer.eof = true
	}
}

// PeerClosed reports whether the engine side released its socket.
func (e *Endpoint) PeerClosed() bool {
	return e.s.eof
}

// Addr returns the local address of the endpoint.
func (e *Endpoint) Addr() netip.AddrPort {
	return e.s.local
}
