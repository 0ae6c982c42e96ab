package codec

import (
	"github.com/vmihailenco/msgpack/v5"
)

// NewMsgpackCodec creates a new codec using MessagePack encoding
func NewMsgpackCodec() ICodec {
	return &msgpackCodecImpl{}
}

// msgpackCodecImpl implements the ICodec interface using msgpack encoding
type msgpackCodecImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.ICodec)
// --------------------------------------------------------------------------

func (m msgpackCodecImpl) Encode(msg Message) ([]byte, error) {
	return msgpack.Marshal(&msg)
}

func (m msgpackCodecImpl) Decode(b []byte, msg *Message) error {
	return msgpack.Unmarshal(b, msg)
}

func (m msgpackCodecImpl) Name() string {
	return "msgpack"
}
