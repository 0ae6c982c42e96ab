package pollnet

// consumeResult tells the connection what recvBuffer.consume did
type consumeResult int

const (
	consumedAll       consumeResult = iota // nothing left, cursors reset
	consumedPartial                        // suffix kept in place
	consumedCompacted                      // suffix moved to offset 0
	consumedFull                           // suffix kept but no room left to receive
)

// recvBuffer is a fixed-capacity receive buffer. Bytes in [head, tail) are
// received but not yet consumed; 0 <= head <= tail <= len(data).
type recvBuffer struct {
	data []byte
	head int
	tail int
}

func newRecvBuffer(capacity int) recvBuffer {
	return recvBuffer{data: make([]byte, capacity)}
}

func (b *recvBuffer) reset() {
	b.head, b.tail = 0, 0
}

// space returns the free region behind tail
func (b *recvBuffer) space() []byte {
	return b.data[b.tail:]
}

// advance marks n bytes of space as received
func (b *recvBuffer) advance(n int) {
	b.tail += n
}

// pending returns the unconsumed bytes. The capacity is clipped so a handler
// appending to the slice cannot overwrite the free region.
func (b *recvBuffer) pending() []byte {
	return b.data[b.head:b.tail:b.tail]
}

func (b *recvBuffer) len() int {
	return b.tail - b.head
}

func (b *recvBuffer) cap() int {
	return len(b.data)
}

// consume keeps the last remainder bytes of the pending range.
// Once the consumed prefix reaches half the capacity the suffix is moved to
// the front, so every received byte is moved at most a constant number of times.
func (b *recvBuffer) consume(remainder int) consumeResult {
	if remainder == 0 {
		b.reset()
		return consumedAll
	}
	b.head = b.tail - remainder
	if b.head >= len(b.data)/2 {
		b.compact()
		return consumedCompacted
	}
	if b.tail == len(b.data) {
		return consumedFull
	}
	return consumedPartial
}

// compact moves the unconsumed bytes to offset 0
func (b *recvBuffer) compact() {
	n := copy(b.data, b.data[b.head:b.tail])
	b.head = 0
	b.tail = n
}
