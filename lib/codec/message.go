package codec

import "time"

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// MessageKind distinguishes the demo protocol messages
type MessageKind uint8

const (
	KindGreeting  MessageKind = iota + 1 // application payload sent by the client
	KindHeartbeat                        // sent when the connection was idle
	KindReply                            // server response to a greeting
)

func (k MessageKind) String() string {
	switch k {
	case KindGreeting:
		return "greeting"
	case KindHeartbeat:
		return "heartbeat"
	case KindReply:
		return "reply"
	default:
		return "unknown"
	}
}

// Message is the body of one frame of the demo protocol
type Message struct {
	Kind   MessageKind `json:"kind" msgpack:"k"`
	Seq    uint64      `json:"seq" msgpack:"s"`
	SentAt int64       `json:"sent_at" msgpack:"t"` // unix milliseconds
	Body   string      `json:"body,omitempty" msgpack:"b,omitempty"`
}

// NewMessage creates a message stamped with the current time
func NewMessage(kind MessageKind, seq uint64, body string) Message {
	return Message{
		Kind:   kind,
		Seq:    seq,
		SentAt: time.Now().UTC().UnixMilli(),
		Body:   body,
	}
}
