package tcp

// OptionCodec encodes and decodes the variable-length TCP option space
// (bytes 20 onward of the header, up to 40 bytes). It is stateless beyond
// its Flags field and safe to reuse across segments.
type OptionCodec struct {
	Flags OptionFlags
}

// OptionFlags tune OptionCodec.ForEachOption's strictness.
type OptionFlags uint8

const (
	// OptFlagSkipSizeValidation disables the fixed-size checks for options
	// with a well-known length (MSS, window scale, SACK-permitted, ...).
	OptFlagSkipSizeValidation OptionFlags = 1 << iota
	// OptFlagSkipObsolete causes ForEachOption to skip invoking fn for
	// options IsObsolete reports true for.
	OptFlagSkipObsolete
)

// HasAny reports whether any of ofTheseFlags is set in flags.
func (flags OptionFlags) HasAny(ofTheseFlags OptionFlags) bool {
	return flags&ofTheseFlags != 0
}

// PutOption16 encodes kind with a 16-bit big-endian value as its sole data.
func (op OptionCodec) PutOption16(dst []byte, kind OptionKind, v uint16) (int, error) {
	return op.PutOption(dst, kind, byte(v>>8), byte(v))
}

// PutOption32 encodes kind with a 32-bit big-endian value as its sole data.
func (op OptionCodec) PutOption32(dst []byte, kind OptionKind, v uint32) (int, error) {
	return op.PutOption(dst, kind, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// PutOption encodes kind followed by data, prefixed by a length byte, into
// dst. It returns the number of bytes written.
func (op OptionCodec) PutOption(dst []byte, kind OptionKind, data ...byte) (int, error) {
	putSize := 2 + len(data)
	switch {
	case len(dst) < putSize:
		return -1, errShortOptionBuf
	case putSize > 255:
		return -1, errOptionTooLong
	case kind == OptNop || kind == OptEnd:
		return -1, errOptionKindReserved
	}
	dst[0] = byte(kind)
	dst[1] = byte(putSize)
	copy(dst[2:], data)
	return putSize, nil
}

// sackBlock is one [left, right) edge pair from a peer's SACK option
// (RFC 2018 §3), reporting a range of our own outstanding data the peer has
// already received out of order.
type sackBlock struct{ start, end Value }

// parsedOptions is the result of walking one segment's option space,
// collecting every field this engine negotiates or acts on (RFC 9293 §3.8,
// RFC 7323, RFC 2018, RFC 3168).
type parsedOptions struct {
	mss           uint16
	haveMSS       bool
	wscale        uint8
	haveWScale    bool
	sackPermitted bool
	tsVal, tsEcr  uint32
	haveTS        bool
	sackBlocks    [maxSACKReportBlocks]sackBlock
	nSACK         int
}

// parseOptions walks opts and collects every option kind this engine cares
// about in one pass; handshake-only fields (mss, wscale, sackPermitted) and
// steady-state fields (timestamps, SACK blocks) are both filled in since the
// caller (input.go) knows from the segment's own flags which half applies.
func parseOptions(opts []byte) (p parsedOptions) {
	var codec OptionCodec
	codec.ForEachOption(opts, func(kind OptionKind, data []byte) error {
		switch kind {
		case OptMaxSegmentSize:
			if len(data) == 2 {
				p.mss = uint16(data[0])<<8 | uint16(data[1])
				p.haveMSS = true
			}
		case OptWindowScale:
			if len(data) == 1 {
				p.wscale = data[0]
				p.haveWScale = true
			}
		case OptSACKPermitted:
			p.sackPermitted = true
		case OptTimestamps:
			if len(data) == 8 {
				p.tsVal = uint32(data[0])<<24 | uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3])
				p.tsEcr = uint32(data[4])<<24 | uint32(data[5])<<16 | uint32(data[6])<<8 | uint32(data[7])
				p.haveTS = true
			}
		case OptSACK:
			for i := 0; i+8 <= len(data) && p.nSACK < maxSACKReportBlocks; i += 8 {
				start := uint32(data[i])<<24 | uint32(data[i+1])<<16 | uint32(data[i+2])<<8 | uint32(data[i+3])
				end := uint32(data[i+4])<<24 | uint32(data[i+5])<<16 | uint32(data[i+6])<<8 | uint32(data[i+7])
				p.sackBlocks[p.nSACK] = sackBlock{Value(start), Value(end)}
				p.nSACK++
			}
		}
		return nil
	})
	return p
}

// writeOptions composes the option bytes for an outgoing segment into dst,
// returning the length written (always a multiple of 4 so the header's data
// offset field stays an integral word count). Layout follows spec.md §6:
// MSS, NOP+WSCALE, NOP+NOP+SACKPERM (SYN only), NOP+NOP+TIMESTAMP, then
// outstanding SACK blocks, NOP-padded to the next 4-byte boundary.
func (tcb *ControlBlock) writeOptions(dst []byte, seg Segment) int {
	var codec OptionCodec
	n := 0
	isSyn := seg.Flags.HasAny(FlagSYN)
	if isSyn {
		mss := tcb.opts.mss
		if mss == 0 {
			mss = defaultMSS
		}
		if w, err := codec.PutOption16(dst[n:], OptMaxSegmentSize, mss); err == nil {
			n += w
		}
		if n+4 <= len(dst) {
			dst[n] = byte(OptNop)
			if w, err := codec.PutOption(dst[n+1:], OptWindowScale, requestedWindowScale); err == nil {
				n += 1 + w
			}
		}
		if n+4 <= len(dst) {
			dst[n], dst[n+1] = byte(OptNop), byte(OptNop)
			if w, err := codec.PutOption(dst[n+2:], OptSACKPermitted); err == nil {
				n += 2 + w
			}
		}
	}
	if (isSyn || tcb.opts.tsOK) && n+12 <= len(dst) {
		dst[n], dst[n+1] = byte(OptNop), byte(OptNop)
		tsVal := uint32(tcb.clock.ticks) + tcb.opts.tsOffset
		tsEcr := tcb.opts.tsRecent
		data := [8]byte{
			byte(tsVal >> 24), byte(tsVal >> 16), byte(tsVal >> 8), byte(tsVal),
			byte(tsEcr >> 24), byte(tsEcr >> 16), byte(tsEcr >> 8), byte(tsEcr),
		}
		if w, err := codec.PutOption(dst[n+2:], OptTimestamps, data[:]...); err == nil {
			n += 2 + w
		}
	}
	if !isSyn && tcb.opts.sackOK && !tcb.sack.empty() {
		n += tcb.writeSACKBlocks(dst[n:])
	}
	for n%4 != 0 && n < len(dst) {
		dst[n] = byte(OptNop)
		n++
	}
	return n
}

// writeSACKBlocks reports up to maxSACKReportBlocks outstanding out-of-order
// ranges (tcb.sack, not the peer-facing scoreboard) as one SACK option.
func (tcb *ControlBlock) writeSACKBlocks(dst []byte) int {
	var raw [maxSACKReportBlocks * 8]byte
	k := 0
	cur := tcb.sack.head
	for cur != -1 && k < maxSACKReportBlocks {
		h := tcb.sack.holes[cur]
		off := k * 8
		raw[off+0] = byte(h.start >> 24)
		raw[off+1] = byte(h.start >> 16)
		raw[off+2] = byte(h.start >> 8)
		raw[off+3] = byte(h.start)
		raw[off+4] = byte(h.end >> 24)
		raw[off+5] = byte(h.end >> 16)
		raw[off+6] = byte(h.end >> 8)
		raw[off+7] = byte(h.end)
		k++
		cur = h.next
	}
	if k == 0 {
		return 0
	}
	var codec OptionCodec
	w, err := codec.PutOption(dst, OptSACK, raw[:k*8]...)
	if err != nil {
		return 0
	}
	return w
}

// ForEachOption walks the option bytes of a TCP header, calling fn with the
// kind and data of each option found. NOP bytes are skipped without
// invoking fn; iteration stops at the first End-of-option-list byte or at
// the end of opts.
func (op OptionCodec) ForEachOption(opts []byte, fn func(OptionKind, []byte) error) error {
	off := 0
	skipSizeValidation := op.Flags.HasAny(OptFlagSkipSizeValidation)
	skipObsolete := op.Flags.HasAny(OptFlagSkipObsolete)
	for off < len(opts) && opts[off] != 0 {
		kind := OptionKind(opts[off])
		off++
		if kind == OptNop {
			continue
		}
		if len(opts[off:]) < 1 {
			return errShortOptionBuf
		}
		size := int(opts[off]) // Total option length including kind and length bytes.
		off++
		dataLen := size - 2
		if dataLen < 0 || len(opts[off:]) < dataLen {
			return errShortOptionBuf
		}

		if !skipSizeValidation {
			expectSize := -1
			switch kind {
			case OptTimestamps:
				expectSize = 10
			case OptMaxSegmentSize, OptUserTimeout:
				expectSize = 4
			case OptWindowScale:
				expectSize = 3
			case OptSACKPermitted:
				expectSize = 2
			}
			if expectSize != -1 && size != expectSize {
				return errOptionBadLength
			}
		}
		if !(skipObsolete && kind.IsObsolete()) {
			err := fn(kind, opts[off:off+dataLen])
			if err != nil {
				return err
			}
		}
		off += dataLen
	}
	return nil
}
