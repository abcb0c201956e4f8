package tcp

// sendDescriptors bounds the number of in-flight caller-owned send buffers
// a single TCB can track at once (spec.md's "zero-copy linked send buffer").
// No allocator runs in the hot path, so this is a small fixed arena rather
// than a slice that grows.
const sendDescriptors = 8

// sendChunk is one caller-owned buffer enqueued via SendByReference. The
// engine never copies payload bytes out of data; it only reads from data
// while building outgoing segments and expects the caller to keep it alive
// (and not mutate it) until send_done fires for this chunk.
type sendChunk struct {
	data []byte // caller-owned; nil means this slot is free.
	off  int    // bytes of data already consumed into transmitted segments.
	acked int   // bytes of data already acknowledged.
	next int8   // index of the next chunk in the linked list, or -1.
}

// sendBuf is the linked list of pending caller-owned send chunks. head is
// the oldest chunk not yet fully acknowledged; peek/advance walk from it to
// the first chunk with unsent bytes. Chunks are released (and send_done
// fired) once fully acknowledged.
type sendBuf struct {
	chunks [sendDescriptors]sendChunk
	head   int8 // -1 if empty.
	tail   int8 // -1 if empty.
	free   int8 // head of the free list, -1 if the arena is full.
}

func (s *sendBuf) init() {
	for i := range s.chunks {
		s.chunks[i] = sendChunk{next: int8(i + 1)}
	}
	s.chunks[sendDescriptors-1].next = -1
	s.free = 0
	s.head = -1
	s.tail = -1
}

// hasMore reports whether more than one chunk is queued, used by output.go
// to decide whether to withhold PSH the way tcp_output.c's TF_NOPUSH does
// (see SPEC_FULL.md "supplemented features").
func (s *sendBuf) hasMore() bool {
	return s.head != -1 && s.chunks[s.head].next != -1
}

// empty reports whether there is no queued data at all.
func (s *sendBuf) empty() bool { return s.head == -1 }

// enqueue links data onto the tail of the send list. It returns false if
// the fixed arena is exhausted (errTooManySendChunks).
func (s *sendBuf) enqueue(data []byte) bool {
	if s.free == -1 {
		return false
	}
	idx := s.free
	s.free = s.chunks[idx].next
	s.chunks[idx] = sendChunk{data: data, next: -1}
	if s.tail == -1 {
		s.head = idx
		s.tail = idx
	} else {
		s.chunks[s.tail].next = idx
		s.tail = idx
	}
	return true
}

// extend grows the tail chunk's length in place: data must be the same
// backing array as the tail chunk's current data with additional bytes
// appended past its previous end, the host-owned buffer-pool-slot use case
// SendByExtension exists for (distinct from enqueueing a fresh chunk via
// SendByReference). Returns false when there is no tail chunk, or data
// does not actually extend it, in which case the caller should fall back
// to enqueueing data as a new chunk.
func (s *sendBuf) extend(data []byte) bool {
	if s.tail == -1 {
		return false
	}
	c := &s.chunks[s.tail]
	if len(c.data) == 0 || len(data) <= len(c.data) || &c.data[0] != &data[0] {
		return false
	}
	c.data = data
	return true
}

// peek returns the unsent portion of the first chunk that still has unsent
// bytes, or nil if everything queued has been sent.
func (s *sendBuf) peek() []byte {
	for i := s.head; i != -1; i = s.chunks[i].next {
		if c := &s.chunks[i]; c.off < len(c.data) {
			return c.data[c.off:]
		}
	}
	return nil
}

// advance marks n bytes as transmitted (moved into a segment, not yet
// acknowledged), moving on to later chunks once earlier ones are fully sent.
func (s *sendBuf) advance(n int) {
	for i := s.head; n > 0 && i != -1; i = s.chunks[i].next {
		c := &s.chunks[i]
		remaining := len(c.data) - c.off
		take := n
		if take > remaining {
			take = remaining
		}
		c.off += take
		n -= take
	}
}

// rewindTo sets the head chunk's transmit pointer back to relOffset bytes
// past whatever has already been acknowledged, so previously-sent-but-lost
// data is re-offered by peek/advance on the next BuildNextSegment call, and
// marks every later chunk as unsent again. It never rewinds past
// already-acknowledged bytes (c.acked is the floor).
func (s *sendBuf) rewindTo(relOffset int) {
	if s.head == -1 {
		return
	}
	c := &s.chunks[s.head]
	off := c.acked + relOffset
	if off < c.acked {
		off = c.acked
	}
	if off > len(c.data) {
		off = len(c.data)
	}
	c.off = off
	for i := c.next; i != -1; i = s.chunks[i].next {
		s.chunks[i].off = 0
	}
}

// ack marks n bytes as acknowledged, releasing fully-acknowledged chunks
// back to the free list and returning the released chunks' data slices so
// the caller can fire send_done for each.
func (s *sendBuf) ack(n int, done []([]byte)) []([]byte) {
	for n > 0 && s.head != -1 {
		idx := s.head
		c := &s.chunks[idx]
		remaining := len(c.data) - c.acked
		take := n
		if take > remaining {
			take = remaining
		}
		c.acked += take
		n -= take
		if c.acked < len(c.data) {
			break
		}
		done = append(done, c.data)
		s.head = c.next
		if s.head == -1 {
			s.tail = -1
		}
		c.data = nil
		c.next = s.free
		s.free = idx
	}
	return done
}
