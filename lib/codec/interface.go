package codec

import "fmt"

// ICodec is the interface for all Message codecs
type ICodec interface {
	// Encode serializes a Message into a byte array
	Encode(msg Message) ([]byte, error)
	// Decode deserializes a byte array into msg
	Decode(b []byte, msg *Message) error
	// Name returns the name the codec is selected by
	Name() string
}

// New returns the codec registered under name ("json" or "msgpack")
func New(name string) (ICodec, error) {
	switch name {
	case "json":
		return NewJSONCodec(), nil
	case "msgpack":
		return NewMsgpackCodec(), nil
	default:
		return nil, fmt.Errorf("invalid codec %s (expected json or msgpack)", name)
	}
}
