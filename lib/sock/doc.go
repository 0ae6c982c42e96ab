// Package sock is the thin operating-system boundary of pollnet. It defines the
// ISys interface through which the engine creates, configures and drives
// non-blocking IPv4 stream sockets, and the helpers that classify the errors
// those calls return.
//
// The package focuses on:
//   - A minimal syscall surface (socket, bind, listen, connect, accept, send,
//     recv, close and the few socket options the engine needs)
//   - Error classification (would-block, connect in progress, already connected)
//     so the engine never inspects raw errno values itself
//   - One-time, process-wide network initialization
//
// Key Components:
//
//   - ISys: The socket interface consumed by the pollnet engine. Production code
//     uses Unix(), tests use the in-memory implementation from the socktest
//     sub-package.
//
//   - Handle: An OS socket identifier. Invalid is the closed sentinel.
//
//   - IsWouldBlock / IsInProgress / IsConnected: Error classifiers for the
//     non-blocking call results.
//
// Thread Safety:
//
//	The functions of this package are safe for concurrent use. The engine itself
//	is single-threaded and never shares a Handle between goroutines.
package sock
