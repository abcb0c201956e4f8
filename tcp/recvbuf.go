package tcp

// recvBuf is a circular receive buffer that additionally tracks, via a
// bitmap, which octets within the window beyond the contiguous front have
// already arrived out of order (spec.md's reassembly model). Bytes are
// written into buf at the ring position corresponding to their sequence
// number modulo len(buf); once the contiguous run at the front grows, the
// covered bitmap bits are cleared and the run becomes visible to
// ReceiveByReference/ReceiveContiguify.
type recvBuf struct {
	buf      []byte   // caller-provided backing storage, set by setBuffer.
	off      int      // ring index of the first unread (oldest readable) byte.
	readable int      // number of contiguous bytes available to read from off.
	oooFar   bool     // not set or read anywhere in the package.
	oooMask  bitmap64 // bit i set means buf[(off+readable+i)%len(buf)] holds valid out-of-order data.
}

// setBuffer installs the backing ring storage. Must be called before use.
func (r *recvBuf) setBuffer(b []byte) {
	r.buf = b
	r.off = 0
	r.readable = 0
	r.oooMask = 0
}

// free returns the number of bytes of window space left (readable region
// plus tracked-but-not-yet-contiguous region count toward the used total).
func (r *recvBuf) free() int {
	used := r.readable + r.oooMask.count()
	return len(r.buf) - used
}

// writeAt stores seg's payload at a relative offset (in bytes, from the
// current contiguous front, i.e. relOff==0 means "next expected byte")
// into the ring and updates the out-of-order bitmap. relOff==0 writes
// grow readable directly and may additionally absorb bitmap-tracked runs
// that are now contiguous. It returns the total number of bytes newly
// added to the contiguous readable region, which can exceed len(data) when
// the write also absorbs previously-buffered out-of-order bytes behind it
// (the caller must advance RCV.NXT by this amount, not by len(data)).
func (r *recvBuf) writeAt(relOff int, data []byte) int {
	n := len(data)
	if n == 0 {
		return 0
	}
	for i := 0; i < n; i++ {
		pos := (r.off + r.readable + relOff + i) % len(r.buf)
		r.buf[pos] = data[i]
	}
	if relOff == 0 {
		r.readable += n
		return n + r.absorbContiguousTail(n)
	}
	r.oooMask.setRange(uint(relOff), uint(n))
	return r.absorbLeadingRun()
}

// absorbContiguousTail shifts any out-of-order bitmap bits left by n bytes
// (since the contiguous front moved forward by n) and then folds in a
// leading run that is now contiguous, returning how many bytes that run
// contributed to readable.
func (r *recvBuf) absorbContiguousTail(n int) int {
	r.oooMask >>= bitmap64(n)
	return r.absorbLeadingRun()
}

// absorbLeadingRun moves any now-contiguous out-of-order bytes at the
// start of oooMask into the readable region, returning how many bytes moved.
func (r *recvBuf) absorbLeadingRun() int {
	run := r.oooMask.leadingRun()
	if run == 0 {
		return 0
	}
	r.readable += run
	r.oooMask >>= bitmap64(run)
	return run
}

// peek returns up to max bytes of the contiguous readable region as one or
// two slices (the second non-nil only if the region wraps the ring).
func (r *recvBuf) peek(max int) (a, b []byte) {
	n := r.readable
	if n > max {
		n = max
	}
	if n == 0 {
		return nil, nil
	}
	first := len(r.buf) - r.off
	if n <= first {
		return r.buf[r.off : r.off+n], nil
	}
	return r.buf[r.off:], r.buf[:n-first]
}

// commit discards n bytes from the front of the readable region (commit_receive).
func (r *recvBuf) commit(n int) {
	if n > r.readable {
		n = r.readable
	}
	r.off = (r.off + n) % len(r.buf)
	r.readable -= n
}

// contiguify copies the readable region into dst (which must be at least
// r.readable bytes, used for ReceiveContiguify when the caller wants one
// flat slice instead of dealing with ring wraparound).
func (r *recvBuf) contiguify(dst []byte) int {
	a, b := r.peek(len(dst))
	n := copy(dst, a)
	n += copy(dst[n:], b)
	return n
}
