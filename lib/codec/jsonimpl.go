package codec

import (
	"encoding/json"
)

// NewJSONCodec creates a new codec using json encoding
func NewJSONCodec() ICodec {
	return &jsonCodecImpl{}
}

// jsonCodecImpl implements the ICodec interface using json encoding
type jsonCodecImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.ICodec)
// --------------------------------------------------------------------------

func (j jsonCodecImpl) Encode(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

func (j jsonCodecImpl) Decode(b []byte, msg *Message) error {
	return json.Unmarshal(b, msg)
}

func (j jsonCodecImpl) Name() string {
	return "json"
}
