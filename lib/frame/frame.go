package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderLen is the size of the length prefix
const HeaderLen = 4

// ErrTooLarge is returned when a header announces a body above the limit
var ErrTooLarge = errors.New("frame too large")

// Append appends body, preceded by its length header, to dst.
func Append(dst []byte, body []byte) []byte {
	var header [HeaderLen]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(body)))
	dst = append(dst, header[:]...)
	return append(dst, body...)
}

// Encode returns a new buffer holding one frame.
func Encode(body []byte) []byte {
	return Append(make([]byte, 0, HeaderLen+len(body)), body)
}

// Split calls fn for each complete frame at the start of data, in order, and
// returns the number of trailing bytes that do not form a complete frame yet.
// A maxBody of 0 disables the size check. The body passed to fn aliases data.
func Split(data []byte, maxBody int, fn func(body []byte)) (remainder int, err error) {
	for len(data) >= HeaderLen {
		bodyLen := binary.LittleEndian.Uint32(data[:HeaderLen])
		if maxBody > 0 && uint64(bodyLen) > uint64(maxBody) {
			return len(data), fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, bodyLen, maxBody)
		}
		total := HeaderLen + int(bodyLen)
		if len(data) < total {
			break
		}
		fn(data[HeaderLen:total])
		data = data[total:]
	}
	return len(data), nil
}
