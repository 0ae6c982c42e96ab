// Package codec provides the message codecs of pollnet's demo protocol. It
// defines a common interface and two implementations for turning a Message
// into a frame body and back.
//
// Key Components:
//
//   - ICodec: Core interface that all codec implementations satisfy.
//
//   - jsonCodecImpl: encoding/json, human-readable, useful for debugging with
//     tools like netcat.
//
//   - msgpackCodecImpl: MessagePack via github.com/vmihailenco/msgpack/v5, with
//     short field keys for compact frames.
//
// Thread Safety:
//
//	All codec implementations are stateless and safe for concurrent use.
package codec
