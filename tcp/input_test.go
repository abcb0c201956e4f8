package tcp

import "testing"

func TestParseHandshakeOptionsNegotiatesMSSAndWindowScale(t *testing.T) {
	tcb := newScenarioTCB(4096)
	var codec OptionCodec
	opts := make([]byte, 16)
	n, _ := codec.PutOption16(opts, OptMaxSegmentSize, 1200)
	m, _ := codec.PutOption(opts[n:], OptWindowScale, 5)
	n += m
	p, _ := codec.PutOption(opts[n:], OptSACKPermitted)
	n += p

	tcb.parseHandshakeOptions(opts[:n])

	if !tcb.opts.wndScaleOK || tcb.opts.sndScale != 5 {
		t.Fatalf("window scale not negotiated: ok=%v scale=%d", tcb.opts.wndScaleOK, tcb.opts.sndScale)
	}
	if !tcb.opts.sackOK {
		t.Fatal("SACK-permitted not negotiated")
	}
	if tcb.opts.mss != 1200 {
		t.Fatalf("mss=%d want 1200 (no timestamp overhead)", tcb.opts.mss)
	}
}

func TestParseHandshakeOptionsTimestampsAddOverhead(t *testing.T) {
	tcb := newScenarioTCB(4096)
	// OptTimestamps needs exactly 10 total bytes (2 header + TSval + TSecr).
	opts := []byte{byte(OptTimestamps), 10, 1, 2, 3, 4, 5, 6, 7, 8}

	tcb.parseHandshakeOptions(opts)
	if !tcb.opts.tsOK {
		t.Fatal("timestamps not negotiated")
	}
	if tcb.opts.tsRecent != 0x01020304 {
		t.Fatalf("tsRecent=%#x want 0x01020304", tcb.opts.tsRecent)
	}
	if tcb.opts.mss != defaultMSS-12 {
		t.Fatalf("mss=%d want defaultMSS-12=%d (timestamp overhead deducted)", tcb.opts.mss, defaultMSS-12)
	}
}

func TestParseHandshakeOptionsDefaultsMSSWhenAbsent(t *testing.T) {
	tcb := newScenarioTCB(4096)
	tcb.parseHandshakeOptions(nil)
	if tcb.opts.mss != defaultMSS {
		t.Fatalf("mss=%d want defaultMSS=%d when peer sends no MSS option", tcb.opts.mss, defaultMSS)
	}
}

func TestHandleTimerFiredDelackSetsPendingACK(t *testing.T) {
	tcb := newScenarioTCB(4096)
	tcb.Open(100, 4096)
	host := &fakeHost{ticks: 1000}
	tcb.timers.arm(timerDelack, host.GetTicks(), host.TicksPerSecond(), 0)
	host.ticks = 1000
	tcb.HandleTimerFired(host)
	if tcb.pending[0]&FlagACK == 0 {
		t.Fatal("expired DELACK timer should set a pending ACK")
	}
}

func TestHandleTimerFiredRexmtRewindsSendAndBacksOff(t *testing.T) {
	tcb := newScenarioTCB(4096)
	tcb.Open(100, 4096)
	tcb.snd.UNA = 100
	tcb.snd.NXT = 150
	host := &fakeHost{ticks: 0}
	tcb.timers.arm(timerRexmt, 0, host.TicksPerSecond(), 0)
	tcb.HandleTimerFired(host)
	if tcb.snd.NXT != tcb.snd.UNA {
		t.Fatalf("snd.NXT=%d want rewound to snd.UNA=%d", tcb.snd.NXT, tcb.snd.UNA)
	}
	if tcb.timers.shift == 0 {
		t.Fatal("REXMT expiry should advance the backoff shift")
	}
}

func TestHandleTimerFiredRexmtGivesUpAfterMaxBackoff(t *testing.T) {
	tcb := newScenarioTCB(4096)
	tcb.Open(100, 4096)
	var fired bool
	var reason DisconnectReason
	tcb.callbacks.Disconnected = func(connID uint32, r DisconnectReason) { fired = true; reason = r }
	host := &fakeHost{ticks: 0}
	tcb.timers.shift = rexmtShiftMax
	tcb.timers.arm(timerRexmt, 0, host.TicksPerSecond(), 0)
	tcb.HandleTimerFired(host)
	if tcb.State() != StateClosed {
		t.Fatalf("state=%s want CLOSED once REXMT gives up", tcb.State())
	}
	if !fired || reason != ReasonTimedOut {
		t.Fatalf("Disconnected fired=%v reason=%v want true,ReasonTimedOut", fired, reason)
	}
}

func TestHandleTimerFired2MSLClosesAndNotifies(t *testing.T) {
	tcb := newScenarioTCB(4096)
	tcb.Open(100, 4096)
	var fired bool
	var reason DisconnectReason
	tcb.callbacks.Disconnected = func(connID uint32, r DisconnectReason) { fired = true; reason = r }
	host := &fakeHost{ticks: 0}
	tcb.timers.arm(timer2MSL, 0, host.TicksPerSecond(), 0)
	tcb.HandleTimerFired(host)
	if tcb.State() != StateClosed {
		t.Fatalf("state=%s want CLOSED after 2MSL expiry", tcb.State())
	}
	if !fired || reason != ReasonTimeWait {
		t.Fatalf("Disconnected fired=%v reason=%v want true,ReasonTimeWait", fired, reason)
	}
}

func TestHandleSegmentCompletesHandshakeAndFiresEstablished(t *testing.T) {
	var established bool

	fresh := newScenarioTCB(4096)
	fresh.Open(900, 4096)
	fresh.callbacks.Established = func(uint32) { established = true }

	syn := ClientSynSegment(100, 4096)
	synBuf := make([]byte, sizeHeaderTCP)
	synFrm, _ := NewFrame(synBuf)
	synFrm.ClearHeader()
	synFrm.SetSourcePort(12345)
	synFrm.SetDestinationPort(500)
	synFrm.SetSegment(syn, sizeHeaderTCP/4)

	host := &fakeHost{}
	if err := fresh.HandleSegment(host, synFrm); err != nil {
		t.Fatalf("HandleSegment(SYN): %v", err)
	}
	if fresh.State() != StateSynRcvd {
		t.Fatalf("state=%s want SYN-RECEIVED", fresh.State())
	}

	synack, ok := fresh.PendingSegment(0)
	if !ok {
		t.Fatal("expected a pending SYN|ACK")
	}
	fresh.Send(synack)

	finalAck := Segment{SEQ: synack.ACK, ACK: synack.SEQ + 1, Flags: FlagACK, WND: 4096}
	ackBuf := make([]byte, sizeHeaderTCP)
	ackFrm, _ := NewFrame(ackBuf)
	ackFrm.ClearHeader()
	ackFrm.SetSourcePort(12345)
	ackFrm.SetDestinationPort(500)
	ackFrm.SetSegment(finalAck, sizeHeaderTCP/4)
	if err := fresh.HandleSegment(host, ackFrm); err != nil {
		t.Fatalf("HandleSegment(ACK): %v", err)
	}
	if fresh.State() != StateEstablished {
		t.Fatalf("state=%s want ESTABLISHED", fresh.State())
	}
	if !established {
		t.Fatal("Established callback should fire exactly once the handshake completes")
	}
}
