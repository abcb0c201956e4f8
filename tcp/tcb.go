package tcp

import (
	"log/slog"
	"math"
	"time"
)

// ControlBlock is the Transmission Control Block (TCB) for one connection,
// per RFC 9293 §3.3.1. Buffer management, option negotiation, congestion
// control, the SACK scoreboard and timers are all layered on top of the
// sequence-space bookkeeping originally proven out in the teacher repo's
// own ControlBlock; see sendbuf.go, recvbuf.go, sackhole.go, cc.go and
// timers.go for those layers.
//
// A ControlBlock's internal state is driven by the "System Calls" defined
// in RFC 9293: Open (active or passive), Send, Recv, Close. The host-facing
// operations (Initialize/Connect and friends in engine.go, Listener in
// listener.go) use the host-callback vocabulary, but the underlying state
// machine below is the same one RFC 9293 describes.
type ControlBlock struct {
	// # Send Sequence Space
	//
	//	     1         2          3          4
	//	----------|----------|----------|----------
	//		   SND.UNA    SND.NXT    SND.UNA
	//								+SND.WND
	//	1. old sequence numbers which have been acknowledged
	//	2. sequence numbers of unacknowledged data
	//	3. sequence numbers allowed for new data transmission
	//	4. future sequence numbers which are not yet allowed
	snd sendSpace
	// # Receive Sequence Space
	//
	//		1          2          3
	//	----------|----------|----------
	//		   RCV.NXT    RCV.NXT
	//					 +RCV.WND
	rcv recvSpace
	// rstPtr holds the sequence number of a pending RST so it remains
	// "believable" (RFC 9293) until PendingSegment drains it.
	rstPtr Value
	// pending is the queue of pending flags to be sent in the next 2
	// segments. The second slot holds a FIN queued behind a CloseWait ACK.
	pending      [2]Flags
	_state       State // leading underscore keeps State() from shadowing the field in autocomplete.
	challengeAck bool

	opts    negotiatedOptions
	cc      ccState
	sack    sackState // out-of-order blocks received from the peer above RCV.NXT; reported back to it as SACK blocks.
	sndSack sackState // gaps in our own outstanding data per the peer's SACK reports; drives selective retransmission.
	timers  timerSet
	sendBuf sendBuf
	recvBuf recvBuf

	// ecnCWRPending is set when an ECN-Echo signals congestion (RFC 3168
	// §6.1.2) and cleared once the next outgoing segment carries CWR.
	ecnCWRPending bool

	// forceProbe tells PendingSegment to produce a one-byte probe outside
	// the normal window check; set by onPersistTimeout and cleared by
	// BuildNextSegment once a segment goes out, making RFC 9293 §3.8.6.1
	// persist probing reachable with a zero window.
	forceProbe bool

	// reassFinSeq/reassFinPending record a FIN that arrived out of order
	// (input.go's HandleSegment) until RCV.NXT catches up to it via
	// in-order delivery or reassembly absorption; see deliverReassembledFIN.
	reassFinSeq     Value
	reassFinPending bool

	softErrCount     uint8 // soft send failures plus KEEP expiries, never reset; onKeepTimeout disconnects once it exceeds keepMaxIdle.
	establishedFired bool

	// clock caches the most recent tick snapshot seen by any host-aware
	// entry point (HandleSegment, BuildNextSegment, Connect,
	// HandleTimerFired), so Recv/Send's state machine can arm ticks-based
	// timers (timer2MSL) without needing a Host parameter of their own.
	clock hostClock

	callbacks Callbacks
	connID    uint32 // opaque identifier the host assigned at Initialize, echoed back in callbacks.

	localPort  uint16
	remotePort uint16
	remoteAddr [16]byte

	logger
}

// LocalPort returns the locally bound port, 0 if unbound.
func (tcb *ControlBlock) LocalPort() uint16 { return tcb.localPort }

// RemotePort returns the connected peer's port, 0 before a connection is established.
func (tcb *ControlBlock) RemotePort() uint16 { return tcb.remotePort }

// RemoteAddr returns a pointer to the connected peer's IPv6 address.
func (tcb *ControlBlock) RemoteAddr() *[16]byte { return &tcb.remoteAddr }

// negotiatedOptions tracks which TCP options were successfully negotiated
// during the handshake, plus the values needed to keep using them.
type negotiatedOptions struct {
	mss uint16

	wndScaleOK bool
	sndScale   uint8 // shift applied to the peer's advertised window (their WSCALE option value).
	rcvScale   uint8 // shift this engine advertises on its own window; always requestedWindowScale.
	tsOK       bool
	tsRecent   uint32 // last timestamp received from peer (TSval echoed back as TSecr).
	tsRecentAge uint64 // tcb.clock.ticks snapshot when tsRecent was last updated, for PAWS.
	tsOffset   uint32 // local clock offset applied before sending our own TSval.
	sackOK     bool
	ecnOK      bool // latched during the SYN exchange (rcvListen/rcvSynSent), never re-evaluated; see SPEC_FULL.md §4.
	tfoRequested bool
	tfoAccepted  bool
}

// State returns the current state of the TCP connection.
func (tcb *ControlBlock) State() State { return tcb._state }

// RecvNext returns the next sequence number expected to be received from remote.
func (tcb *ControlBlock) RecvNext() Value { return tcb.rcv.NXT }

// RecvWindow returns the receive window size. If connection is closed will return 0.
func (tcb *ControlBlock) RecvWindow() Size { return tcb.rcv.WND }

// ISS returns the initial sequence number of the connection.
func (tcb *ControlBlock) ISS() Value { return tcb.snd.ISS }

// MaxInFlightData returns the maximum size of a segment that can be sent by
// taking into account the send window size and the unacked data. Returns 0
// before StateSynRcvd.
func (tcb *ControlBlock) MaxInFlightData() Size {
	if !tcb._state.hasIRS() {
		return 0
	}
	unacked := Sizeof(tcb.snd.UNA, tcb.snd.NXT)
	avail := tcb.snd.WND - unacked
	if cwnd := tcb.cc.effectiveWindow(); cwnd < avail {
		avail = cwnd
	}
	return avail
}

// SetRecvWindow sets the local receive window size, the maximum amount of
// data permitted to be in flight from the remote peer.
func (tcb *ControlBlock) SetRecvWindow(wnd Size) {
	tcb.rcv.WND = wnd
}

// SetLogger sets the logger to be used by the ControlBlock.
func (tcb *ControlBlock) SetLogger(log *slog.Logger) {
	tcb.logger = logger{log: log}
}

// IncomingIsKeepalive checks if an incoming segment is a keepalive segment.
// Segments which are keepalives should not be passed into Recv or Send methods.
func (tcb *ControlBlock) IncomingIsKeepalive(incomingSegment Segment) bool {
	return incomingSegment.SEQ == tcb.rcv.NXT-1 &&
		incomingSegment.Flags == FlagACK &&
		incomingSegment.ACK == tcb.snd.NXT && incomingSegment.DATALEN == 0
}

// MakeKeepalive creates a TCP keepalive segment (RFC 9293 §3.8.4): a
// zero-length ACK one sequence number below SND.UNA. This segment should
// not be passed into Recv or Send methods.
func (tcb *ControlBlock) MakeKeepalive() Segment {
	return Segment{
		SEQ:     tcb.snd.UNA - 1,
		ACK:     tcb.rcv.NXT,
		Flags:   FlagACK,
		WND:     tcb.rcv.WND,
		DATALEN: 0,
	}
}

// sendSpace contains Send Sequence Space data. Its sequence numbers correspond to local data.
type sendSpace struct {
	ISS Value // initial send sequence number, defined locally on connection start
	UNA Value // send unacknowledged.
	NXT Value // send next.
	WND Size  // send window defined by remote.
	UP  Value // urgent pointer, tracked but never surfaced; see SPEC_FULL.md Open Question 2.
}

// inFlight returns amount of unacked bytes sent out.
func (snd *sendSpace) inFlight() Size {
	return Sizeof(snd.UNA, snd.NXT)
}

// maxSend returns maximum segment datalength receivable by remote peer.
func (snd *sendSpace) maxSend() Size {
	return snd.WND - snd.inFlight()
}

// recvSpace contains Receive Sequence Space data. Its sequence numbers correspond to remote data.
type recvSpace struct {
	IRS Value // initial receive sequence number, defined by remote in SYN segment received.
	NXT Value // receive next.
	WND Size  // receive window defined by local.
	UP  Value // urgent pointer last seen from remote, tracked but never surfaced.
}

// Open implements a passive opening of a connection (wait for incoming packets).
// Upon success [ControlBlock] enters LISTEN state, such as that of a server.
// To open an active connection use [ControlBlock.Send] with a segment
// generated with [ClientSynSegment].
func (tcb *ControlBlock) Open(iss Value, wnd Size) (err error) {
	switch {
	case tcb._state != StateClosed && tcb._state != StateListen:
		err = errTCBNotClosed
	case wnd > math.MaxUint16:
		err = errWindowTooLarge
	}
	if err != nil {
		tcb.logerr("tcb:open", slog.String("err", err.Error()))
		return err
	}
	tcb._state = StateListen
	tcb.prepareToHandshake(iss, wnd)
	tcb.trace("tcb:open-server")
	return nil
}

// prepareToHandshake initializes the TCB send/receive spaces with initial
// send sequence number and local window.
func (tcb *ControlBlock) prepareToHandshake(iss Value, wnd Size) {
	tcb.resetRcv(wnd, 0)
	tcb.resetSnd(iss, 1)
	tcb.pending = [2]Flags{}
	tcb.cc.reset(tcb.opts.mss)
	tcb.sack.reset()
	tcb.sndSack.reset()
}

// HasPending returns true if there is a pending control segment to send.
// Calls to Send will advance the pending queue.
func (tcb *ControlBlock) HasPending() bool { return tcb.pending[0] != 0 }

// PendingSegment calculates a suitable next segment to send from a payload
// length. Apart from consuming a pending challenge ACK, it does not modify
// the ControlBlock state or pending segment queue.
func (tcb *ControlBlock) PendingSegment(payloadLen int) (_ Segment, ok bool) {
	if tcb.challengeAck {
		tcb.challengeAck = false
		return Segment{SEQ: tcb.snd.NXT, ACK: tcb.rcv.NXT, Flags: FlagACK, WND: tcb.rcv.WND}, true
	}
	pending := tcb.pending[0]
	established := tcb._state == StateEstablished
	if !established && tcb._state != StateCloseWait {
		payloadLen = 0
	}
	if pending == 0 && payloadLen == 0 {
		return Segment{}, false
	}

	maxPayload := tcb.snd.maxSend()
	if cwnd := tcb.cc.effectiveWindow(); cwnd < maxPayload {
		maxPayload = cwnd
	}
	if payloadLen > int(maxPayload) {
		if maxPayload == 0 && !tcb.pending[0].HasAny(FlagFIN|FlagRST|FlagSYN) {
			if !tcb.forceProbe || payloadLen == 0 {
				return Segment{}, false
			}
			// RFC 9293 §3.8.6.1 persist probe: one octet sent outside the
			// window to provoke a fresh window update from the peer.
			maxPayload = 1
		} else if maxPayload > tcb.snd.WND {
			panic("tcb: bad window calculation")
		}
		payloadLen = int(maxPayload)
	}

	if established {
		pending |= FlagACK
	} else {
		payloadLen = 0
	}

	var ack Value
	if pending.HasAny(FlagACK) {
		ack = tcb.rcv.NXT
	}

	var seq Value = tcb.snd.NXT
	if pending.HasAny(FlagRST) {
		seq = tcb.rstPtr
	}

	seg := Segment{
		SEQ:     seq,
		ACK:     ack,
		WND:     tcb.rcv.WND,
		Flags:   pending,
		DATALEN: Size(payloadLen),
	}
	tcb.traceSeg("tcb:pending-out", seg)
	return seg, true
}

// Recv processes a segment being received from the network, updating TCB
// state. The ControlBlock only accepts segments that are the next expected
// sequence number; out-of-order buffering is the caller's (input.go's)
// responsibility, layered on top via recvBuf/sack.
func (tcb *ControlBlock) Recv(seg Segment) (err error) {
	err = tcb.validateIncomingSegment(seg)
	if err != nil {
		tcb.traceRcv("tcb:rcv.reject")
		tcb.traceSeg("tcb:rcv.reject", seg)
		tcb.logerr("tcb:rcv.reject", slog.String("err", err.Error()))
		return err
	}

	var pending Flags
	switch tcb._state {
	case StateListen:
		pending, err = tcb.rcvListen(seg)
	case StateSynSent:
		pending, err = tcb.rcvSynSent(seg)
	case StateSynRcvd:
		pending, err = tcb.rcvSynRcvd(seg)
	case StateEstablished:
		pending, err = tcb.rcvEstablished(seg)
	case StateFinWait1:
		pending, err = tcb.rcvFinWait1(seg)
	case StateFinWait2:
		pending, err = tcb.rcvFinWait2(seg)
	case StateCloseWait:
	case StateLastAck:
		if seg.Flags.HasAny(FlagACK) {
			tcb.close()
			tcb.notifyDisconnected(ReasonNormal)
		}
	case StateClosing:
		if seg.Flags.HasAny(FlagACK) {
			tcb._state = StateTimeWait
			tcb.timers.startTimeWait(tcb.clock.ticks, tcb.clock.rate)
		}
	default:
		panic("tcb: unexpected recv state " + tcb._state.String())
	}
	if err != nil {
		return err
	}

	tcb.pending[0] |= pending

	wnd := Size(seg.WND)
	if tcb.opts.wndScaleOK && !seg.Flags.HasAny(FlagSYN) {
		wnd <<= tcb.opts.sndScale
	}
	tcb.snd.WND = wnd
	if seg.Flags.HasAny(FlagACK) {
		prevUNA := tcb.snd.UNA
		tcb.snd.UNA = seg.ACK
		acked := Sizeof(prevUNA, seg.ACK)
		if acked > 0 {
			// cwnd growth (RFC 5681) is driven by SND.UNA actually
			// advancing, not by SND.NXT moving during the handshake.
			tcb.cc.onAck(acked, false)
			tcb.timers.clearREXMTIfCaughtUp(tcb.snd.UNA, tcb.snd.NXT)
			tcb.sndSack.markReceived(prevUNA, tcb.snd.UNA)
			if tcb.snd.UNA == tcb.snd.NXT {
				tcb.sndSack.reset()
			}
		}
		tcb.drainSendDone(acked)
	}
	seglen := seg.LEN()
	tcb.rcv.NXT.UpdateForward(seglen)
	tcb.deliverReassembledFIN()

	if tcb.logenabled(slog.LevelDebug) {
		tcb.traceRcv("tcb:rcv")
		tcb.traceSeg("recv:seg", seg)
	}
	return err
}

// Send processes a segment being sent to the network, updating TCB state.
func (tcb *ControlBlock) Send(seg Segment) error {
	err := tcb.validateOutgoingSegment(seg)
	if err != nil {
		tcb.traceSnd("tcb:snd.reject")
		tcb.traceSeg("tcb:snd.reject", seg)
		tcb.logerr("tcb:snd.reject", slog.String("err", err.Error()))
		return err
	}

	hasFIN := seg.Flags.HasAny(FlagFIN)
	hasACK := seg.Flags.HasAny(FlagACK)
	var newPending Flags
	switch tcb._state {
	case StateClosed:
		if seg.Flags == FlagSYN {
			tcb._state = StateSynSent
			tcb.prepareToHandshake(seg.SEQ, seg.WND)
			tcb.trace("tcb:open-client")
		}
	case StateSynRcvd:
		if hasFIN {
			tcb._state = StateFinWait1
		}
	case StateClosing:
		if hasACK {
			tcb._state = StateTimeWait
			tcb.timers.startTimeWait(tcb.clock.ticks, tcb.clock.rate)
		}
	case StateEstablished:
		if hasFIN {
			tcb._state = StateFinWait1
		}
	case StateCloseWait:
		if hasFIN {
			tcb._state = StateLastAck
		} else if hasACK {
			newPending = finack
		}
	}

	tcb.pending[0] &^= seg.Flags
	if tcb.pending[0] == 0 {
		tcb.pending = [2]Flags{tcb.pending[1] &^ (seg.Flags & (FlagFIN)), 0}
	}
	tcb.pending[0] |= newPending

	seglen := seg.LEN()
	tcb.snd.NXT.UpdateForward(seglen)
	tcb.rcv.WND = seg.WND
	if seglen > 0 {
		tcb.timers.armREXMT()
	}

	if tcb.logenabled(slog.LevelDebug) {
		tcb.traceSnd("tcb:snd")
		tcb.traceSeg("tcb:snd", seg)
	}

	return nil
}

func (tcb *ControlBlock) validateOutgoingSegment(seg Segment) (err error) {
	hasAck := seg.Flags.HasAny(FlagACK)
	isFirst := tcb._state == StateClosed && seg.isFirstSYN()
	checkSeq := !isFirst && !seg.Flags.HasAny(FlagRST)
	seglast := seg.Last()
	// persistProbeOK admits the one-octet RFC 9293 §3.8.6.1 persist probe
	// PendingSegment builds (forceProbe) past the otherwise-fatal zero
	// window check; it is the only way a zero window ever gets data sent
	// against it.
	persistProbeOK := tcb.forceProbe && tcb.snd.WND == 0 && seg.DATALEN == 1 && seg.SEQ == tcb.snd.NXT
	zeroWindowOK := (tcb.snd.WND == 0 && seg.DATALEN == 0 && seg.SEQ == tcb.snd.NXT) || persistProbeOK
	outOfWindow := checkSeq && !seg.SEQ.InWindow(tcb.snd.NXT, tcb.snd.WND) &&
		!zeroWindowOK
	switch {
	case tcb._state == StateClosed && !isFirst:
		err = errTCBClosedPipe
	case seg.WND > math.MaxUint16:
		err = errWindowTooLarge
	case hasAck && seg.ACK != tcb.rcv.NXT:
		err = errAckNotNext
	case outOfWindow:
		if tcb.snd.WND == 0 {
			err = errZeroWindow
		} else {
			err = errSeqNotInWindow
		}
	case seg.DATALEN > 0 && (tcb._state == StateFinWait1 || tcb._state == StateFinWait2):
		err = errConnectionClosing
	case checkSeq && tcb.snd.WND == 0 && seg.DATALEN > 0 && seg.SEQ == tcb.snd.NXT && !persistProbeOK:
		err = errZeroWindow
	case checkSeq && !seglast.InWindow(tcb.snd.NXT, tcb.snd.WND) && !zeroWindowOK:
		err = errLastNotInWindow
	}
	return err
}

func (tcb *ControlBlock) validateIncomingSegment(seg Segment) (err error) {
	flags := seg.Flags
	hasAck := flags.HasAll(FlagACK)
	checkSEQ := !flags.HasAny(FlagSYN)
	established := tcb._state == StateEstablished
	preestablished := tcb._state.IsPreestablished()
	acksOld := hasAck && !tcb.snd.UNA.LessThan(seg.ACK)
	acksUnsentData := hasAck && !seg.ACK.LessThanEq(tcb.snd.NXT)
	ctlOrDataSegment := established && (seg.DATALEN > 0 || flags.HasAny(FlagFIN|FlagRST))
	zeroWindowOK := tcb.rcv.WND == 0 && seg.DATALEN == 0 && seg.SEQ == tcb.rcv.NXT
	switch {
	case seg.WND > math.MaxUint16:
		err = errWindowOverflow
	case tcb._state == StateClosed:
		err = errTCBClosedPipe

	case checkSEQ && tcb.rcv.WND == 0 && seg.DATALEN > 0 && seg.SEQ == tcb.rcv.NXT:
		err = errZeroWindow

	case checkSEQ && !seg.SEQ.InWindow(tcb.rcv.NXT, tcb.rcv.WND) && !zeroWindowOK:
		err = errSeqNotInWindow

	case checkSEQ && !seg.Last().InWindow(tcb.rcv.NXT, tcb.rcv.WND) && !zeroWindowOK:
		err = errLastNotInWindow

	case checkSEQ && seg.SEQ != tcb.rcv.NXT:
		// Diverts from strict RFC 9293 TCB handling: only sequential
		// segments are accepted here; out-of-order data is instead
		// buffered and SACKed by input.go/recvbuf.go/sackhole.go before
		// ever reaching this method.
		err = errRequireSequential
	}
	if err != nil {
		return err
	}
	if flags.HasAny(FlagRST) {
		return tcb.handleRST(seg.SEQ)
	}

	isDebug := tcb.logenabled(slog.LevelDebug)
	switch {
	case established && acksOld && !ctlOrDataSegment:
		err = errDropSegment
		tcb.pending[0] &= FlagFIN
		if seg.ACK == tcb.snd.UNA && tcb.snd.UNA != tcb.snd.NXT {
			// A pure duplicate ACK (RFC 5681 §2): no data, window
			// unchanged in effect, ACK# sitting exactly at SND.UNA while
			// data remains outstanding. Drives the fast-retransmit
			// dup-ACK counter; see cc.go's ccState.onAck.
			tcb.cc.onAck(0, true)
			if tcb.cc.needsFastRetransmit {
				tcb.cc.needsFastRetransmit = false
				tcb.retransmitLoss()
			}
		}
		if isDebug {
			tcb.debug("rcv:ACK-dup", slog.String("state", tcb._state.String()),
				slog.Uint64("seg.ack", uint64(seg.ACK)), slog.Uint64("snd.una", uint64(tcb.snd.UNA)))
		}

	case established && acksUnsentData:
		err = errDropSegment
		tcb.pending[0] = FlagACK
		if isDebug {
			tcb.debug("rcv:ACK-unsent", slog.String("state", tcb._state.String()),
				slog.Uint64("seg.ack", uint64(seg.ACK)), slog.Uint64("snd.nxt", uint64(tcb.snd.NXT)))
		}

	case preestablished && (acksOld || acksUnsentData):
		err = errDropSegment
		tcb.pending[0] = FlagRST
		tcb.rstPtr = seg.ACK
		tcb.resetSnd(tcb.snd.ISS, seg.WND)
		if isDebug {
			tcb.debug("rcv:RST-old", slog.String("state", tcb._state.String()), slog.Uint64("ack", uint64(seg.ACK)))
		}
	}
	return err
}

func (tcb *ControlBlock) resetSnd(localISS Value, remoteWND Size) {
	tcb.snd = sendSpace{
		ISS: localISS,
		UNA: localISS,
		NXT: localISS,
		WND: remoteWND,
	}
}

func (tcb *ControlBlock) resetRcv(localWND Size, remoteISS Value) {
	tcb.rcv = recvSpace{
		IRS: remoteISS,
		NXT: remoteISS,
		WND: localWND,
	}
}

func (tcb *ControlBlock) handleRST(seq Value) error {
	tcb.debug("rcv:RST", slog.String("state", tcb._state.String()))
	if seq != tcb.rcv.NXT {
		// RFC 9293: a RST whose sequence number is within the window but
		// does not exactly match RCV.NXT MUST be challenged with an ACK.
		tcb.challengeAck = true
		tcb.pending[0] |= FlagACK
		return errDropSegment
	}
	if tcb._state.IsPreestablished() {
		tcb.pending[0] = 0
		tcb._state = StateListen
		tcb.resetSnd(tcb.snd.ISS+tcb.rstJump(), tcb.snd.WND)
		tcb.resetRcv(tcb.rcv.WND, 3_14159_2653^tcb.rcv.IRS)
	} else {
		tcb.close()
		tcb.notifyDisconnected(ReasonReset)
		return errConnReset
	}
	return errDropSegment
}

func (tcb *ControlBlock) rstJump() Value {
	return 100
}

// close sets ControlBlock state to closed and resets all sequence numbers and pending flag.
func (tcb *ControlBlock) close() {
	tcb._state = StateClosed
	tcb.pending = [2]Flags{}
	tcb.resetRcv(0, 0)
	tcb.resetSnd(0, 0)
	tcb.timers.disarmAll()
	tcb.debug("tcb:close")
}

// Close implements a passive/active closing of a connection. It does not
// immediately delete the TCB but initiates the process so that pending
// outgoing segments carry out the closing handshake. After a call to Close
// users should not send more data via SendByReference/SendByExtension.
func (tcb *ControlBlock) Close() (err error) {
	switch tcb._state {
	case StateClosed:
		err = errConnNotexist
	case StateCloseWait:
		tcb._state = StateLastAck
		tcb.pending = [2]Flags{FlagFIN, FlagACK}
	case StateListen, StateSynSent:
		tcb.close()
	case StateSynRcvd, StateEstablished:
		tcb.pending[0] = (tcb.pending[0] & FlagACK) | FlagFIN
	case StateFinWait2, StateTimeWait:
		err = errConnectionClosing
	default:
		err = errInvalidState
	}
	if err == nil {
		tcb.trace("tcb:close", slog.String("state", tcb._state.String()))
	} else {
		tcb.logerr("tcb:close", slog.String("err", err.Error()))
	}
	return err
}

// recomputeMSS recalculates the effective maximum segment size from the
// negotiated peer MSS, minus the 12 bytes a negotiated timestamp option
// takes (SACK blocks are not deducted), and an optional path MTU hint
// (see SPEC_FULL.md "supplemented features"). A pathMTU of 0 means
// "unknown, use default"; parseHandshakeOptions always passes 0.
func (tcb *ControlBlock) recomputeMSS(peerMSS uint16, pathMTU uint16) {
	mss := peerMSS
	if mss == 0 {
		mss = defaultMSS
	}
	overhead := uint16(0)
	if tcb.opts.tsOK {
		overhead += 12 // timestamp option padded to a 4-byte boundary alongside NOPs.
	}
	if mss > overhead {
		mss -= overhead
	}
	if pathMTU != 0 {
		maxFromMTU := pathMTU - sizeHeaderTCP - ipv6HeaderSize
		if maxFromMTU < mss {
			mss = maxFromMTU
		}
	}
	tcb.opts.mss = mss
	tcb.cc.reset(mss)
}

// softError records a transient send-path failure (e.g. the host's
// send_message returned ENOBUFS) without tearing down the connection. The
// count is shared with KEEP expiries and only leads to a disconnect through
// onKeepTimeout, once it exceeds keepMaxIdle; REXMT does not consult it.
// Mirrors tcp_subr.c's t_softerror field.
func (tcb *ControlBlock) softError() {
	tcb.softErrCount++
}

func (tcb *ControlBlock) notifyDisconnected(reason DisconnectReason) {
	if tcb.callbacks.Disconnected != nil {
		tcb.callbacks.Disconnected(tcb.connID, reason)
	}
}

// pawsReject implements the RFC 1323 §4.2.1 Protection Against Wrapped
// Sequence numbers check: a segment whose TSval is older than the last
// TSval we accepted (tsRecent) is a relic of a previous incarnation of the
// sequence space and must be dropped, unless tsRecent itself is stale
// enough (pawsIdleAge) that it can no longer be trusted.
func (tcb *ControlBlock) pawsReject(tsVal uint32) bool {
	if !tcb.opts.tsOK {
		return false
	}
	if tsVal-tcb.opts.tsRecent < 1<<31 {
		return false // tsVal is not older than tsRecent (serial arithmetic, RFC 1323 §4.2.1).
	}
	age := tcb.clock.ticks - tcb.opts.tsRecentAge
	return tcb.clock.rate == 0 || time.Duration(age)*time.Second/time.Duration(tcb.clock.rate) < pawsIdleAge
}

// applyPeerSACK folds the SACK blocks a peer reported for our outstanding
// data into sndSack, the scoreboard driving hole-aware fast retransmission.
func (tcb *ControlBlock) applyPeerSACK(blocks []sackBlock) {
	if len(blocks) == 0 || tcb.snd.UNA == tcb.snd.NXT {
		return
	}
	if tcb.sndSack.empty() {
		tcb.sndSack.insert(tcb.snd.UNA, tcb.snd.NXT)
	}
	for _, b := range blocks {
		tcb.sndSack.markReceived(b.start, b.end)
	}
}

// retransmitLoss rewinds SND.NXT (and the send buffer's transmit pointer in
// lockstep) back to the start of the lowest unacknowledged hole the peer's
// SACK scoreboard reports, or to SND.UNA when no scoreboard data is
// available, so the next BuildNextSegment call resends the lost data
// instead of waiting for REXMT.
func (tcb *ControlBlock) retransmitLoss() {
	rewindSeq := tcb.snd.UNA
	if tcb.opts.sackOK {
		if start, _, ok := tcb.sndSack.firstUnacked(); ok && start.InWindow(tcb.snd.UNA, Sizeof(tcb.snd.UNA, tcb.snd.NXT)) {
			rewindSeq = start
		}
	}
	tcb.sendBuf.rewindTo(int(Sizeof(tcb.snd.UNA, rewindSeq)))
	tcb.snd.NXT = rewindSeq
	tcb.pending[0] |= FlagACK
}

// deliverReassembledFIN completes a FIN that arrived out of order once
// RCV.NXT has caught up to its sequence number, either through in-order
// delivery or through reassembly absorbing the intervening bytes.
func (tcb *ControlBlock) deliverReassembledFIN() {
	if !tcb.reassFinPending || tcb.rcv.NXT != tcb.reassFinSeq {
		return
	}
	tcb.reassFinPending = false
	tcb.rcv.NXT.UpdateForward(1)
	tcb.pending[0] |= FlagACK
	switch tcb._state {
	case StateEstablished:
		tcb._state = StateCloseWait
		tcb.pending[1] = FlagFIN
	case StateFinWait1:
		tcb._state = StateClosing
	case StateFinWait2:
		tcb._state = StateTimeWait
		tcb.timers.startTimeWait(tcb.clock.ticks, tcb.clock.rate)
	}
}

// ECNMarkNext reports whether ECN was successfully negotiated for this
// connection, so a host's IP layer can set the ECT codepoint on the next
// outgoing datagram; the Host interface has no traffic-class hook of its
// own, so marking the IPv6 header is left to the caller.
func (tcb *ControlBlock) ECNMarkNext() bool { return tcb.opts.ecnOK }
