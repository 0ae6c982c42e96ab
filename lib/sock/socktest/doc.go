// Package socktest provides a deterministic, in-memory implementation of
// sock.ISys for testing code built on the pollnet engine without touching the
// operating system.
//
// Key Components:
//
//   - Net: The fake socket layer. It keeps every handle in memory, supports
//     listeners with bounded backlogs, scripted connect results and per
//     operation fault injection.
//
//   - Endpoint: The far side of a fake connection. Server tests obtain one from
//     Net.Dial, client tests from Net.Remote. Each Endpoint.Write is delivered
//     as one chunk, so tests control exactly how a byte stream is split across
//     receive calls.
//
// All errors are unix.Errno values, so the classifiers of the sock package
// behave exactly as they do with real sockets.
//
// Net is not safe for concurrent use; like the engine it is meant to be driven
// from a single goroutine.
package socktest
