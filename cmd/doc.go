// Package cmd implements the command-line interface of pollnet. The binaries
// are small demo applications that run the engine in a busy poll loop.
//
// The package is organized into several subpackages:
//
//   - serve: A pollnet server that uppercases what it receives, either as a
//     raw byte stream or as length-prefixed messages
//   - client: A pollnet client that sends length-prefixed greetings and prints
//     the replies, reconnecting according to the retry configuration
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See pollnet -help for a list of all commands.
package cmd
