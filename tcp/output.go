package tcp

// BuildNextSegment asks the TCB for its next pending segment (if any) and
// encodes it, together with as much queued send-buffer data as the window
// and negotiated MSS allow, into buf. It returns the encoded length and
// whether a segment was actually produced (false if there is nothing to
// send right now). Callers (the engine's per-connection poll entry point)
// are expected to call this after every HandleSegment/HandleTimerFired and
// after every SendByReference/SendByExtension/SendEndOfStream call, since
// none of those block waiting for data to drain.
func (tcb *ControlBlock) BuildNextSegment(host Host, buf []byte) (n int, ok bool) {
	const maxOptionsLen = maxHeaderTCP - sizeHeaderTCP
	tcb.clock = snapshotClock(host)
	maxPayload := int(tcb.opts.mss)
	avail := len(buf) - sizeHeaderTCP - maxOptionsLen
	if avail < 0 {
		avail = 0
	}
	if maxPayload <= 0 || maxPayload > avail {
		maxPayload = avail
	}
	payload := tcb.sendBuf.peek()
	if len(payload) > maxPayload {
		payload = payload[:maxPayload]
	}

	seg, ok := tcb.PendingSegment(len(payload))
	if !ok {
		// A zero window with data still queued needs PERSIST armed or the
		// connection can stall forever waiting for a window update that
		// itself needs an ACK we have no more reason to send (RFC 9293
		// §3.8.6.1); REXMT already covers the case where a send is merely
		// awaiting an RTO.
		if tcb.snd.WND == 0 && !tcb.sendBuf.empty() && !tcb.timers.armed[timerRexmt] && !tcb.timers.armed[timerPersist] {
			tcb.timers.arm(timerPersist, host.GetTicks(), host.TicksPerSecond(), persistMinBackoff)
		}
		return 0, false
	}
	if seg.DATALEN > 0 && tcb.sendBuf.hasMore() {
		// tcp_output.c's TF_NOPUSH-equivalent: withhold PSH while more data
		// is queued behind this segment (SPEC_FULL.md "supplemented
		// features"), but still send the data itself.
		seg.Flags &^= FlagPSH
	}
	if seg.Flags.HasAny(FlagFIN) && (int(seg.DATALEN) < len(tcb.sendBuf.peek()) || tcb.sendBuf.hasMore()) {
		seg.Flags &^= FlagFIN // FIN stays pending until the send buffer has drained.
	}
	if tcb.ecnCWRPending {
		seg.Flags |= FlagCWR
	}

	frm, err := NewFrame(buf)
	if err != nil {
		return 0, false
	}
	frm.ClearHeader()
	optLen := tcb.writeOptions(buf[sizeHeaderTCP:], seg)
	frm.SetSegment(seg, uint8((sizeHeaderTCP+optLen)/4))
	copy(buf[sizeHeaderTCP+optLen:], payload[:seg.DATALEN])

	if err := tcb.Send(seg); err != nil {
		tcb.softError()
		return 0, false
	}
	tcb.forceProbe = false
	if seg.Flags.HasAny(FlagCWR) {
		tcb.ecnCWRPending = false
	}
	if seg.DATALEN > 0 {
		tcb.sendBuf.advance(int(seg.DATALEN))
	}
	tcb.timers.arm(timerRexmt, host.GetTicks(), host.TicksPerSecond(), tcb.timers.nextRTO(tcb.cc.rtt.rto()))
	return sizeHeaderTCP + optLen + int(seg.DATALEN), true
}

// drainSendDone releases fully-acknowledged send chunks and fires
// SendDone/ForwardProgress for each, called from Recv's ACK-processing
// path once snd.una has advanced.
func (tcb *ControlBlock) drainSendDone(ackedBytes Size) {
	if ackedBytes == 0 {
		return
	}
	if tcb.callbacks.ForwardProgress != nil {
		tcb.callbacks.ForwardProgress(tcb.connID, ackedBytes)
	}
	var done [sendDescriptors][]byte
	released := tcb.sendBuf.ack(int(ackedBytes), done[:0])
	if tcb.callbacks.SendDone == nil {
		return
	}
	for _, buf := range released {
		tcb.callbacks.SendDone(tcb.connID, buf)
	}
}
