package tcp

// sackHole describes one sequence range [start, end) on a scoreboard, per
// RFC 2018: in ControlBlock.sndSack a gap in our outstanding data the peer
// has not yet SACKed, in ControlBlock.sack an out-of-order block already
// received from the peer. Entries form an intrusive, sequence-ordered
// singly linked list drawn from sackState's fixed arena; there is no
// allocation on the hot path.
type sackHole struct {
	start Value // first sequence number of the range.
	end   Value // one past the last sequence number of the range.
	next  int8  // index into sackState.holes, or -1.
	rxmit bool  // not set by the retransmit path; always false.
}

// sackState is the per-connection SACK scoreboard: the fixed hole arena
// plus a free list and the head of the in-use (sequence-ordered) list.
type sackState struct {
	holes [maxSACKHoles]sackHole
	head  int8 // first (lowest sequence) hole, or -1 if none.
	free  int8 // free list head, or -1 if the arena is exhausted.
}

func (s *sackState) init() {
	for i := range s.holes {
		s.holes[i].next = int8(i + 1)
	}
	s.holes[maxSACKHoles-1].next = -1
	s.free = 0
	s.head = -1
}

// reset clears the scoreboard, called at handshake time and whenever the
// cumulative ACK passes the entire hole list.
func (s *sackState) reset() {
	s.init()
}

// alloc takes a free slot, or -1 if the arena is exhausted (insert then
// drops the new range; markReceived keeps only the left-hand part of a
// split hole).
func (s *sackState) alloc() int8 {
	if s.free == -1 {
		return -1
	}
	idx := s.free
	s.free = s.holes[idx].next
	return idx
}

func (s *sackState) release(idx int8) {
	s.holes[idx] = sackHole{next: s.free}
	s.free = idx
}

// markReceived removes (or trims) the portion of the scoreboard covered by
// [start, end) because that range has now been received, the way a SACK
// block or the arrival of previously-missing data shrinks a hole.
func (s *sackState) markReceived(start, end Value) {
	prev := int8(-1)
	cur := s.head
	for cur != -1 {
		h := &s.holes[cur]
		next := h.next
		switch {
		case end.LessThanEq(h.start) || h.end.LessThanEq(start):
			// No overlap.
		case start.LessThanEq(h.start) && h.end.LessThanEq(end):
			// Hole fully covered: remove it.
			if prev == -1 {
				s.head = next
			} else {
				s.holes[prev].next = next
			}
			s.release(cur)
			cur = next
			continue
		case start.LessThanEq(h.start):
			h.start = end
		case h.end.LessThanEq(end):
			h.end = start
		default:
			// Covered range splits the hole in two; try to allocate a new
			// slot for the right-hand remainder, otherwise just shrink the
			// hole to its left-hand remainder (losing precision, not
			// correctness: the right remainder will be re-reported by a
			// later duplicate ACK's SACK block).
			newEnd := h.end
			h.end = start
			if idx := s.alloc(); idx != -1 {
				s.holes[idx] = sackHole{start: end, end: newEnd, next: next}
				h.next = idx
			}
		}
		prev = cur
		cur = h.next
	}
}

// insert adds a newly discovered hole [start, end) to the scoreboard,
// keeping the list sequence-ordered. If the arena is full the hole is
// dropped silently (the cumulative ACK / timer path still makes progress,
// just without fine-grained fast retransmit for this particular gap).
func (s *sackState) insert(start, end Value) {
	if start == end {
		return
	}
	idx := s.alloc()
	if idx == -1 {
		return
	}
	s.holes[idx] = sackHole{start: start, end: end, next: -1}
	if s.head == -1 || start.LessThan(s.holes[s.head].start) {
		s.holes[idx].next = s.head
		s.head = idx
		return
	}
	prev := s.head
	for s.holes[prev].next != -1 && s.holes[s.holes[prev].next].start.LessThan(start) {
		prev = s.holes[prev].next
	}
	s.holes[idx].next = s.holes[prev].next
	s.holes[prev].next = idx
}

// firstUnacked returns the lowest-sequence hole still outstanding, used by
// the retransmit path to pick the next segment to resend. ok is false if
// the scoreboard is empty.
func (s *sackState) firstUnacked() (start, end Value, ok bool) {
	if s.head == -1 {
		return 0, 0, false
	}
	h := s.holes[s.head]
	return h.start, h.end, true
}

// empty reports whether the scoreboard has no outstanding holes.
func (s *sackState) empty() bool { return s.head == -1 }
