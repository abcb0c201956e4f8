package tcp

// Listener is the passive-open counterpart of ControlBlock: it owns a
// fixed-size pool of ControlBlocks (via ConnPool) and matches inbound SYNs
// against a bound port, handing out established connections through
// Accept. Like ControlBlock, it runs single-threaded and cooperative: no
// mutex, no goroutines (SPEC_FULL.md §5).
type Listener struct {
	port     uint16
	pool     ConnPool
	incoming []*ControlBlock // handshaking, not yet delivered to the user.
	accepted []*ControlBlock // delivered via Accept, still owned by the listener's bookkeeping until closed.
	callbacks Callbacks
	listenerID uint32
	rst        RSTQueue // stateless RSTs for SYNs the host's AcceptReady refused.
	logger
}

// DrainRST writes one pending refusal RST into carrierData; see
// RSTQueue.Drain for the buffer layout it expects.
func (l *Listener) DrainRST(carrierData []byte, offsetToIP, offsetToFrame int) (int, error) {
	return l.rst.Drain(carrierData, offsetToIP, offsetToFrame)
}

// PendingRST reports how many refusal RSTs are waiting to be drained.
func (l *Listener) PendingRST() int { return l.rst.Pending() }

// Reset (re)initializes the listener to listen on port, backed by pool.
func (l *Listener) Reset(port uint16, pool ConnPool, listenerID uint32, cb Callbacks) error {
	if port == 0 {
		return errZeroListenPort
	}
	if pool == nil {
		return errNilPool
	}
	l.port = port
	l.pool = pool
	l.listenerID = listenerID
	l.callbacks = cb
	l.incoming = l.incoming[:0]
	l.accepted = l.accepted[:0]
	l.trace("listener:reset")
	return nil
}

// Close stops listening; already-accepted connections are unaffected.
func (l *Listener) Close() error {
	if l.isClosed() {
		return errAlreadyClosed
	}
	for _, c := range l.incoming {
		if c != nil {
			l.pool.Put(c)
		}
	}
	l.incoming = l.incoming[:0]
	l.port = 0
	return nil
}

func (l *Listener) isClosed() bool { return l.port == 0 }

// LocalPort returns the bound port, 0 if closed.
func (l *Listener) LocalPort() uint16 { return l.port }

// NumberReadyToAccept returns how many handshakes have completed and are
// waiting for Accept.
func (l *Listener) NumberReadyToAccept() (n int) {
	for _, c := range l.incoming {
		if c != nil && c.State() == StateEstablished {
			n++
		}
	}
	return n
}

// Accept removes and returns the first fully-established incoming
// connection, or ok=false if none is ready yet.
func (l *Listener) Accept() (tcb *ControlBlock, ok bool) {
	for i, c := range l.incoming {
		if c == nil || c.State() != StateEstablished {
			continue
		}
		l.incoming[i] = nil
		l.accepted = append(l.accepted, c)
		if l.callbacks.AcceptedConnection != nil {
			l.callbacks.AcceptedConnection(c.connID, &c.remoteAddr, c.remotePort)
		}
		l.compactIncoming()
		return c, true
	}
	return nil, false
}

func (l *Listener) compactIncoming() {
	w := 0
	for _, c := range l.incoming {
		if c == nil {
			continue
		}
		l.incoming[w] = c
		w++
	}
	l.incoming = l.incoming[:w]
}

// HandleSegment matches an inbound segment against the listener's tracked
// handshakes, opening a fresh ControlBlock from the pool on an unmatched
// SYN, and routing everything else to the matching ControlBlock's own
// HandleSegment. It is the listener analogue of match.go's Match helper.
func (l *Listener) HandleSegment(host Host, frm Frame, remoteAddr *[16]byte) error {
	if l.isClosed() {
		return errAlreadyClosed
	}
	if frm.DestinationPort() != l.port {
		return errNotOurPort
	}
	remotePort := frm.SourcePort()

	for _, c := range l.incoming {
		if c != nil && c.Match(l.port, remotePort, remoteAddr) {
			return c.HandleSegment(host, frm)
		}
	}
	for _, c := range l.accepted {
		if c != nil && c.Match(l.port, remotePort, remoteAddr) {
			return c.HandleSegment(host, frm)
		}
	}

	_, flags := frm.OffsetAndFlags()
	if flags != FlagSYN {
		return errDropSegment // Stray non-SYN segment for an unknown connection; the caller's RST queue handles the reply.
	}

	decision := AcceptAccept
	if l.callbacks.AcceptReady != nil {
		decision = l.callbacks.AcceptReady(l.listenerID, remoteAddr, remotePort)
	}
	switch decision {
	case AcceptRefuse:
		seg := frm.Segment(len(frm.Payload()))
		ack := seg.SEQ + Value(seg.LEN()) // LEN already counts the SYN's sequence number.
		l.rst.Queue(remoteAddr[:], remotePort, l.port, 0, ack, FlagRST|FlagACK)
		return errDropSegment
	case AcceptDefer:
		return errDropSegment
	}

	tcb, iss, connID, ok := l.pool.Get()
	if !ok {
		l.logerr("listener:pool-exhausted")
		return errDropSegment
	}
	tcb.connID = connID
	tcb.callbacks = l.callbacks
	tcb.localPort = l.port
	tcb.remotePort = remotePort
	tcb.remoteAddr = *remoteAddr
	if err := tcb.Open(iss, defaultAdvertisedWindow); err != nil {
		l.pool.Put(tcb)
		return err
	}
	if err := tcb.HandleSegment(host, frm); err != nil {
		l.pool.Put(tcb)
		return err
	}
	l.incoming = append(l.incoming, tcb)
	return nil
}

// defaultAdvertisedWindow is the local receive window a Listener opens new
// connections with before the application has a chance to call
// SetRecvWindow with an application-sized buffer.
const defaultAdvertisedWindow = 4096
