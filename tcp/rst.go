package tcp

// offsetIPv6DestAddr is the byte offset of the destination address field
// within a 40-byte IPv6 header, per RFC 8200 §3.
const offsetIPv6DestAddr = 24

// RSTQueue is a small fixed-size queue of pending stateless RST responses,
// used for the cases spec.md calls out where no TCB exists to hang a
// pending-flags queue off of: an unsolicited segment arriving for a closed
// or unknown connection still warrants a RST (RFC 9293 §3.10.7.1).
// It is not safe for concurrent use; callers must synchronize access.
type RSTQueue struct {
	buf [4]rstEntry
	len uint8
}

type rstEntry struct {
	remoteAddr [16]byte
	remotePort uint16
	localPort  uint16
	seq        Value
	ack        Value
	flags      Flags
}

// Queue enqueues a RST response. Silently drops if srcaddr is not a valid
// IPv6 address or the queue is full.
func (q *RSTQueue) Queue(srcaddr []byte, remotePort, localPort uint16, seq, ack Value, flags Flags) {
	if len(srcaddr) == 16 && q.len < uint8(len(q.buf)) {
		entry := &q.buf[q.len]
		copy(entry.remoteAddr[:], srcaddr)
		entry.remotePort = remotePort
		entry.localPort = localPort
		entry.seq = seq
		entry.ack = ack
		entry.flags = flags
		q.len++
	}
}

// Pending returns the number of queued RST entries.
func (q *RSTQueue) Pending() int { return int(q.len) }

// Drain writes one pending RST to the carrier buffer and returns the TCP
// frame length written. Returns (0, nil) if the queue is empty or
// offsetToIP < 0. carrierData is expected to hold, starting at offsetToIP,
// a 40-byte IPv6 header immediately followed (at offsetToFrame) by the TCP
// header this function fills in; offsetToFrame must equal
// offsetToIP+40 for any IPv6 extension-header-free packet.
func (q *RSTQueue) Drain(carrierData []byte, offsetToIP, offsetToFrame int) (int, error) {
	if q.len == 0 || offsetToIP < 0 {
		return 0, nil
	}
	q.len--
	entry := &q.buf[q.len]
	tfrm, err := NewFrame(carrierData[offsetToFrame:])
	if err != nil {
		return 0, nil
	}
	tfrm.ClearHeader()
	tfrm.SetSourcePort(entry.localPort)
	tfrm.SetDestinationPort(entry.remotePort)
	tfrm.SetSegment(Segment{
		SEQ:   entry.seq,
		ACK:   entry.ack,
		Flags: entry.flags,
	}, sizeHeaderTCP/4)
	tfrm.SetUrgentPtr(0)
	destOff := offsetToIP + offsetIPv6DestAddr
	if destOff+16 > offsetToFrame || destOff < offsetToIP {
		return 0, errShortBuffer
	}
	copy(carrierData[destOff:destOff+16], entry.remoteAddr[:])
	return sizeHeaderTCP, nil
}
