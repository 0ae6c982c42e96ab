// Package pollnet is a single-threaded, non-blocking TCP connection engine that
// is embedded in a caller-driven poll loop. It lets applications build custom
// binary-protocol clients and servers without a goroutine per connection and
// without an OS readiness multiplexer: every connection is scanned on every
// tick.
//
// The package focuses on:
//   - Byte-stream reassembly with incomplete-message carry-over between the
//     engine and the application
//   - A connect / retry / timeout state machine for outbound connections
//   - A fixed-capacity connection pool with accept, per-tick I/O and O(1)
//     removal for inbound connections
//
// Key Components:
//
//   - Conn: One socket with a fixed-capacity receive buffer (head and tail
//     cursors, compaction once the consumed prefix reaches half the capacity),
//     advisory send and receive timeouts and a captured last-error string.
//     Application state lives in the generic Payload field.
//
//   - Client: Owns one Conn plus the state of the current connect attempt.
//     Poll drives idle -> connecting -> connected and back, honoring the retry
//     interval and the per-attempt timeout. AllowReconnect overrides the backoff.
//
//   - Server: Owns a listening socket and a pool of MaxConns connections. Poll
//     accepts at most one connection per tick while the pool has room, services
//     every active connection and swap-removes the closed ones. A connection's
//     pool index is therefore not a stable identity; store your own key in the
//     Payload if you need one.
//
//   - IHandler: The callbacks the application implements. OnData receives the
//     unconsumed bytes and returns how many trailing bytes form an incomplete
//     message; those bytes are presented again, followed by new data, on the
//     next receive.
//
// Usage:
//
//	srv, err := pollnet.NewServer[peer](pollnet.DefaultServerConfig())
//	if err != nil { ... }
//	if err := srv.Init("", "127.0.0.1", 1234); err != nil { ... }
//	for running {
//	    srv.Poll(handler)
//	}
//
// Thread Safety:
//
//	Nothing in this package is safe for concurrent use. Poll never blocks on
//	I/O, with the single exception of Conn.Write, which spins until the whole
//	buffer is sent. Closing a connection from inside any callback is allowed
//	and takes effect before the next check of that connection.
package pollnet
