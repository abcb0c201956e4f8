package tcp

// HandleSegment is the entry point a host calls whenever it has decoded an
// incoming IPv6 datagram down to the TCP payload for this connection (the
// host owns demuxing via Listener in listener.go and ControlBlock.Match in
// match.go). frm must already
// have passed Frame.ValidateExceptCRC; checksum verification, being
// IP-version specific, is left to the host (see frame.go's Checksum
// helper) or to test harnesses like hostsim.
func (tcb *ControlBlock) HandleSegment(host Host, frm Frame) error {
	tcb.clock = snapshotClock(host)
	offset, flags := frm.OffsetAndFlags()
	_ = offset
	payload := frm.Payload()
	seg := frm.Segment(len(payload))

	if tcb.IncomingIsKeepalive(seg) {
		tcb.timers.arm(timerKeep, host.GetTicks(), host.TicksPerSecond(), keepIdle)
		return nil
	}

	if flags.HasAny(FlagSYN) && tcb._state.IsPreestablished() {
		tcb.parseHandshakeOptions(frm.Options())
	}

	var opts parsedOptions
	establishedOpts := tcb._state == StateEstablished && !flags.HasAny(FlagSYN)
	if establishedOpts && (tcb.opts.tsOK || tcb.opts.sackOK) {
		opts = parseOptions(frm.Options())
	}

	if establishedOpts && tcb.opts.tsOK && opts.haveTS {
		if tcb.pawsReject(opts.tsVal) {
			tcb.pending[0] |= FlagACK
			return nil
		}
		tcb.opts.tsRecent = opts.tsVal
		tcb.opts.tsRecentAge = tcb.clock.ticks
	}

	inOrder := seg.SEQ == tcb.rcv.NXT
	if !inOrder && tcb._state == StateEstablished && seg.SEQ.InWindow(tcb.rcv.NXT, tcb.rcv.WND) {
		// Out-of-order but in-window: buffer it and record the hole instead
		// of rejecting outright, the way [ControlBlock.Recv]'s "sequential
		// only" contract otherwise would.
		relOff := int(Sizeof(tcb.rcv.NXT, seg.SEQ))
		absorbed := tcb.recvBuf.writeAt(relOff, payload)
		if len(payload) > 0 {
			// Report the block we actually received, not the gap before it
			// (the gap isn't itself a SACK-reportable range; RFC 2018 §3
			// blocks describe data already in hand).
			tcb.sack.insert(seg.SEQ, seg.SEQ.Add(seg.DATALEN))
		}
		if flags.HasAny(FlagFIN) {
			tcb.reassFinSeq = seg.SEQ.Add(seg.DATALEN)
			tcb.reassFinPending = true
		}
		if absorbed > 0 {
			tcb.rcv.NXT.UpdateForward(Size(absorbed))
			tcb.deliverReassembledFIN()
			if tcb.callbacks.ReceiveAvailable != nil {
				tcb.callbacks.ReceiveAvailable(tcb.connID, tcb.recvBuf.readable)
			}
		}
		tcb.pending[0] |= FlagACK // duplicate ACK carrying an implicit SACK block.
		return nil
	}

	if establishedOpts && tcb.opts.sackOK && opts.nSACK > 0 {
		tcb.applyPeerSACK(opts.sackBlocks[:opts.nSACK])
	}

	prevNXT := tcb.rcv.NXT
	err := tcb.Recv(seg)
	if err != nil {
		return err
	}

	if len(payload) > 0 {
		absorbed := tcb.recvBuf.writeAt(0, payload)
		if absorbed > len(payload) {
			// writeAt also folded in previously-buffered out-of-order bytes
			// behind this segment; RCV.NXT must advance past all of them,
			// not just this segment's own length (Recv only advanced by
			// seg.LEN()).
			tcb.rcv.NXT.UpdateForward(Size(absorbed - len(payload)))
			tcb.deliverReassembledFIN()
		}
		tcb.sack.markReceived(prevNXT, tcb.rcv.NXT)
		if tcb.callbacks.ReceiveAvailable != nil {
			tcb.callbacks.ReceiveAvailable(tcb.connID, tcb.recvBuf.readable)
		}
	}

	if tcb._state == StateEstablished && tcb.callbacks.Established != nil && !tcb.establishedFired {
		tcb.establishedFired = true
		tcb.callbacks.Established(tcb.connID)
	}

	tcb.timers.arm(timerDelack, host.GetTicks(), host.TicksPerSecond(), delackMax)
	return nil
}

// parseHandshakeOptions negotiates MSS/window scale/timestamps/SACK
// permitted/ECN from a SYN or SYN-ACK's option space (RFC 9293 §3.8,
// RFC 7323, RFC 2018, RFC 3168).
func (tcb *ControlBlock) parseHandshakeOptions(opts []byte) {
	p := parseOptions(opts)
	if p.haveWScale {
		tcb.opts.wndScaleOK = true
		tcb.opts.sndScale = p.wscale // peer's advertised shift, applied to their window field.
		tcb.opts.rcvScale = requestedWindowScale
	}
	if p.sackPermitted {
		tcb.opts.sackOK = true
	}
	if p.haveTS {
		tcb.opts.tsOK = true
		tcb.opts.tsRecent = p.tsVal
		tcb.opts.tsRecentAge = tcb.clock.ticks
	}
	tcb.recomputeMSS(p.mss, 0)
}

// HandleTimerFired is the entry point a host calls when its single
// physical timer for this connection expires (the engine does not arm that
// timer through Host.SetTimer; see timerKind).
// It multiplexes back out to whichever of the five logical timers
// actually matured.
func (tcb *ControlBlock) HandleTimerFired(host Host) {
	tcb.clock = snapshotClock(host)
	now := host.GetTicks()
	fired := tcb.timers.expired(now)
	rate := host.TicksPerSecond()

	if fired[timerRexmt] {
		tcb.onRexmtTimeout(host, rate)
	}
	if fired[timerPersist] {
		tcb.onPersistTimeout(host, rate)
	}
	if fired[timerDelack] {
		tcb.pending[0] |= FlagACK
	}
	if fired[timerKeep] {
		tcb.onKeepTimeout(host, rate)
	}
	if fired[timer2MSL] {
		tcb.close()
		tcb.notifyDisconnected(ReasonTimeWait)
	}
}

func (tcb *ControlBlock) onRexmtTimeout(host Host, rate uint64) {
	giveUp := tcb.timers.onRexmtExpired()
	if giveUp {
		tcb.close()
		tcb.notifyDisconnected(ReasonTimedOut)
		return
	}
	tcb.cc.onRTOExpired()
	// Force retransmission of everything from snd.una by rewinding snd.nxt
	// and the send buffer's transmit pointer in lockstep; output.go's next
	// PendingSegment call will resend from there.
	tcb.snd.NXT = tcb.snd.UNA
	tcb.sendBuf.rewindTo(0)
	tcb.sndSack.reset()
	tcb.timers.arm(timerRexmt, host.GetTicks(), rate, tcb.timers.nextRTO(tcb.cc.rtt.rto()))
}

func (tcb *ControlBlock) onPersistTimeout(host Host, rate uint64) {
	if tcb.snd.WND != 0 {
		tcb.timers.disarm(timerPersist)
		return
	}
	// Zero-window probe (RFC 9293 §3.8.6.1): force a one-byte send past the
	// window to provoke a fresh window update; PendingSegment's maxPayload
	// carve-out is what actually lets this bypass the window check.
	tcb.forceProbe = true
	backoff := tcb.cc.rtt.rto() << tcb.timers.shift
	if backoff > persistMaxBackoff {
		backoff = persistMaxBackoff
	}
	tcb.timers.arm(timerPersist, host.GetTicks(), rate, backoff)
}

func (tcb *ControlBlock) onKeepTimeout(host Host, rate uint64) {
	tcb.softErrCount++
	if tcb.softErrCount > keepMaxIdle {
		tcb.close()
		tcb.notifyDisconnected(ReasonTimedOut)
		return
	}
	tcb.pending[0] |= FlagACK // the probe is a plain ACK at SND.NXT sent by the next BuildNextSegment; MakeKeepalive is not used here.
	tcb.timers.arm(timerKeep, host.GetTicks(), rate, keepIntvl)
}
