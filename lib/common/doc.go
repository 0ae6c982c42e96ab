// Package common provides utilities shared across pollnet's packages and
// binaries.
//
// The package focuses on:
//   - Custom logging implementation integrated with Dragonboat's logger
//     registry, so every package can declare its logger with
//     logger.GetLogger(name) and still get consistent formatting
//
// Key Components:
//
//   - CreateLogger: Logger factory producing "LEVEL | name | message" lines.
//
//   - InitLoggers: Installs the factory and applies one level to all of the
//     loggers used by pollnet.
package common
