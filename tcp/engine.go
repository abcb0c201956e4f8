package tcp

// This file implements the host-visible user operations named in
// SPEC_FULL.md §6: Initialize, Bind, Connect, SendByReference/Extension,
// ReceiveByReference/Contiguify, CommitReceive, SendEndOfStream, Abort and
// Deinitialize. ControlBlock's lower-level Open/Close/Send/Recv (tcb.go)
// remain the RFC 9293 primitives these build on.

// Initialize resets tcb to a pristine closed TCB, installs its send/receive
// ring buffers (sendBuf is descriptor-only and needs no backing array;
// recvBuf needs one, sized by the host to the connection's desired receive
// window), wires up the callback set and records the opaque connID the
// host will use to address this connection in future calls.
func (tcb *ControlBlock) Initialize(connID uint32, recvBuffer []byte, cb Callbacks) error {
	if len(recvBuffer) == 0 {
		return errBufferTooSmall
	}
	*tcb = ControlBlock{}
	tcb.connID = connID
	tcb.callbacks = cb
	tcb.recvBuf.setBuffer(recvBuffer)
	tcb.sendBuf.init()
	tcb.sack.init()
	tcb.rcv.WND = Size(len(recvBuffer))
	return nil
}

// Bind assigns the local port a subsequent Connect or Listen uses. Calling
// Bind is optional before Connect: bindActive auto-binds via host.Autobind
// if the caller never bound explicitly.
func (tcb *ControlBlock) Bind(localPort uint16) error {
	if tcb._state != StateClosed {
		return errTCBNotClosed
	}
	tcb.localPort = localPort
	return nil
}

// Connect actively opens a connection to (remoteAddr, remotePort),
// generating the initial SYN segment into buf and returning its length.
// The ISN comes from host.GenerateISN, never from the engine itself
// (SPEC_FULL.md Open Question 1).
func (tcb *ControlBlock) Connect(host Host, remotePort uint16, remoteAddr *[16]byte, buf []byte) (int, error) {
	if tcb._state != StateClosed {
		return 0, errTCBNotClosed
	}
	tcb.clock = snapshotClock(host)
	if err := tcb.bindActive(host, tcb.localPort, remotePort, remoteAddr); err != nil {
		return 0, err
	}
	iss := host.GenerateISN(tcb.localPort, remotePort, remoteAddr)
	syn := ClientSynSegment(iss, tcb.rcv.WND)
	if err := tcb.Send(syn); err != nil {
		return 0, err
	}
	syn.Flags |= FlagECE | FlagCWR // ECN-setup SYN (RFC 3168 §6.1.1), set on the wire copy only.
	frm, err := NewFrame(buf)
	if err != nil {
		return 0, err
	}
	frm.ClearHeader()
	frm.SetSourcePort(tcb.localPort)
	frm.SetDestinationPort(remotePort)
	optLen := tcb.writeOptions(buf[sizeHeaderTCP:], syn)
	frm.SetSegment(syn, uint8((sizeHeaderTCP+optLen)/4))
	tcb.timers.arm(timerRexmt, host.GetTicks(), host.TicksPerSecond(), initialRTO)
	return sizeHeaderTCP + optLen, nil
}

// SendByReference enqueues a caller-owned buffer for transmission without
// copying it; send_done (Callbacks.SendDone) fires once every byte of data
// has been acknowledged, at which point the caller may reuse/free it.
func (tcb *ControlBlock) SendByReference(data []byte) error {
	if !tcb._state.isOpen() || tcb._state.IsClosing() {
		return errConnectionClosing
	}
	if !tcb.sendBuf.enqueue(data) {
		return errTooManySendChunks
	}
	return nil
}

// SendByExtension behaves like SendByReference but is used when the host's
// transport already owns a buffer it would rather grow in place (e.g. a
// message pool slot that just received more bytes) than enqueue as a
// separate chunk. When data extends the most recently queued chunk's
// backing array, the tail chunk's length is updated in place instead of
// pushing a new descriptor, so send_done still fires once per caller
// buffer rather than once per extension. Falls back to SendByReference
// when there is nothing to extend (first send, or an unrelated buffer).
func (tcb *ControlBlock) SendByExtension(data []byte) error {
	if !tcb._state.isOpen() || tcb._state.IsClosing() {
		return errConnectionClosing
	}
	if tcb.sendBuf.extend(data) {
		return nil
	}
	return tcb.SendByReference(data)
}

// SendEndOfStream is the user-facing equivalent of Close: no more
// SendByReference/SendByExtension calls are permitted afterward, and a FIN
// is queued once all previously-enqueued data drains.
func (tcb *ControlBlock) SendEndOfStream() error {
	return tcb.Close()
}

// ReceiveByReference returns the contiguous bytes currently available to
// read without copying (it may return two slices if the ring has
// wrapped); call CommitReceive once the caller is done with them.
func (tcb *ControlBlock) ReceiveByReference(max int) (a, b []byte) {
	return tcb.recvBuf.peek(max)
}

// ReceiveContiguify copies the currently available bytes into dst as one
// flat slice, for callers that cannot deal with a wrapped ring. Returns
// the number of bytes copied.
func (tcb *ControlBlock) ReceiveContiguify(dst []byte) int {
	return tcb.recvBuf.contiguify(dst)
}

// CommitReceive releases n bytes at the front of the receive buffer back
// to the ring's free space, advancing the local window.
func (tcb *ControlBlock) CommitReceive(n int) {
	tcb.recvBuf.commit(n)
	tcb.rcv.WND = Size(tcb.recvBuf.free())
}

// Abort immediately tears down the connection without waiting for a
// graceful FIN exchange. No RST reaches the peer: the RST it places in the
// pending queue is cleared again by the close that follows.
func (tcb *ControlBlock) Abort() {
	wasOpen := tcb._state.isOpen()
	if wasOpen && tcb._state != StateClosed {
		tcb.pending[0] = FlagRST
		tcb.rstPtr = tcb.snd.NXT
	}
	tcb.close()
	if wasOpen {
		tcb.notifyDisconnected(ReasonAborted)
	}
}

// Deinitialize releases the TCB's association with its current
// connection; the backing memory (recvBuf's slice, the TCB itself) remains
// valid for the host to pass to a future Initialize call, matching
// spec.md's "no allocator in hot paths" design note.
func (tcb *ControlBlock) Deinitialize() {
	tcb.Abort()
	tcb.recvBuf.setBuffer(nil)
	tcb.callbacks = Callbacks{}
}
