package tcp

import "testing"

// stubPool is a trivial fixed-size ConnPool for exercising Listener without
// a host-managed allocator, mirroring the teacher's own small fixed-pool
// test doubles.
type stubPool struct {
	next  int
	tcbs  []*ControlBlock
	isn   Value
}

func newStubPool(n int) *stubPool {
	p := &stubPool{tcbs: make([]*ControlBlock, n), isn: 9000}
	for i := range p.tcbs {
		tcb := newScenarioTCB(4096)
		p.tcbs[i] = tcb
	}
	return p
}

func (p *stubPool) Get() (tcb *ControlBlock, iss Value, connID uint32, ok bool) {
	if p.next >= len(p.tcbs) {
		return nil, 0, 0, false
	}
	tcb = p.tcbs[p.next]
	connID = uint32(p.next + 1)
	p.next++
	return tcb, p.isn, connID, true
}

func (p *stubPool) Put(tcb *ControlBlock) {}

// buildSynFrame encodes a raw client SYN addressed to dstPort from srcPort,
// the same fixed-header encoding engine.go's Connect produces.
func buildSynFrame(t *testing.T, srcPort, dstPort uint16, clientISS Value, clientWND Size) []byte {
	t.Helper()
	buf := make([]byte, sizeHeaderTCP)
	frm, err := NewFrame(buf)
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	frm.ClearHeader()
	frm.SetSourcePort(srcPort)
	frm.SetDestinationPort(dstPort)
	syn := ClientSynSegment(clientISS, clientWND)
	frm.SetSegment(syn, sizeHeaderTCP/4)
	return buf
}

func TestListenerResetRejectsBadArgs(t *testing.T) {
	var l Listener
	if err := l.Reset(0, newStubPool(1), 1, Callbacks{}); err == nil {
		t.Fatal("Reset should reject port 0")
	}
	if err := l.Reset(80, nil, 1, Callbacks{}); err == nil {
		t.Fatal("Reset should reject a nil pool")
	}
}

func TestListenerHandleSegmentAcceptsNewConnection(t *testing.T) {
	var l Listener
	pool := newStubPool(2)
	if err := l.Reset(80, pool, 1, Callbacks{}); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	host := &fakeHost{}
	var remote [16]byte
	remote[15] = 7

	synBuf := buildSynFrame(t, 12345, 80, 100, 4096)
	frm, err := NewFrame(synBuf)
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	if err := l.HandleSegment(host, frm, &remote); err != nil {
		t.Fatalf("HandleSegment(SYN): %v", err)
	}
	if len(l.incoming) != 1 {
		t.Fatalf("listener tracked %d incoming connections, want 1", len(l.incoming))
	}
	if l.incoming[0].State() != StateSynRcvd {
		t.Fatalf("new connection state=%s want SYN-RECEIVED", l.incoming[0].State())
	}
	if _, ok := l.Accept(); ok {
		t.Fatal("Accept should return nothing before the handshake completes")
	}

	server := l.incoming[0]
	synack, ok := server.PendingSegment(0)
	if !ok || !synack.Flags.HasAll(FlagSYN | FlagACK) {
		t.Fatalf("server should have SYN|ACK pending, got ok=%v seg=%s", ok, synack)
	}
	server.Send(synack)

	ack := Segment{SEQ: synack.ACK, ACK: synack.SEQ + 1, Flags: FlagACK, WND: 4096}
	ackBuf := make([]byte, sizeHeaderTCP)
	ackFrm, _ := NewFrame(ackBuf)
	ackFrm.ClearHeader()
	ackFrm.SetSourcePort(12345)
	ackFrm.SetDestinationPort(80)
	ackFrm.SetSegment(ack, sizeHeaderTCP/4)
	if err := l.HandleSegment(host, ackFrm, &remote); err != nil {
		t.Fatalf("HandleSegment(final ACK): %v", err)
	}
	if server.State() != StateEstablished {
		t.Fatalf("server state=%s want ESTABLISHED", server.State())
	}
	if n := l.NumberReadyToAccept(); n != 1 {
		t.Fatalf("NumberReadyToAccept=%d want 1", n)
	}

	accepted, ok := l.Accept()
	if !ok || accepted != server {
		t.Fatal("Accept should hand back the now-established connection")
	}
	if len(l.incoming) != 0 {
		t.Fatal("Accept should remove the connection from the incoming queue")
	}
}

func TestListenerHandleSegmentDropsStrayNonSYN(t *testing.T) {
	var l Listener
	pool := newStubPool(1)
	l.Reset(80, pool, 1, Callbacks{})
	host := &fakeHost{}
	var remote [16]byte

	buf := make([]byte, sizeHeaderTCP)
	frm, _ := NewFrame(buf)
	frm.ClearHeader()
	frm.SetSourcePort(1111)
	frm.SetDestinationPort(80)
	frm.SetSegment(Segment{SEQ: 1, ACK: 1, Flags: FlagACK, WND: 4096}, sizeHeaderTCP/4)

	if err := l.HandleSegment(host, frm, &remote); err != errDropSegment {
		t.Fatalf("HandleSegment(stray ACK) err=%v want errDropSegment", err)
	}
	if len(l.incoming) != 0 {
		t.Fatal("a stray non-SYN segment must not create a new connection")
	}
}

func TestListenerHandleSegmentRejectsWrongPort(t *testing.T) {
	var l Listener
	l.Reset(80, newStubPool(1), 1, Callbacks{})
	host := &fakeHost{}
	var remote [16]byte
	buf := buildSynFrame(t, 1, 81, 1, 4096)
	frm, _ := NewFrame(buf)
	if err := l.HandleSegment(host, frm, &remote); err != errNotOurPort {
		t.Fatalf("err=%v want errNotOurPort", err)
	}
}

func TestListenerPoolExhaustionDropsSegment(t *testing.T) {
	var l Listener
	l.Reset(80, newStubPool(0), 1, Callbacks{})
	host := &fakeHost{}
	var remote [16]byte
	buf := buildSynFrame(t, 1, 80, 1, 4096)
	frm, _ := NewFrame(buf)
	if err := l.HandleSegment(host, frm, &remote); err != errDropSegment {
		t.Fatalf("err=%v want errDropSegment on pool exhaustion", err)
	}
}

func TestListenerCloseReturnsIncomingToPool(t *testing.T) {
	var l Listener
	pool := newStubPool(1)
	l.Reset(80, pool, 1, Callbacks{})
	host := &fakeHost{}
	var remote [16]byte
	buf := buildSynFrame(t, 1, 80, 1, 4096)
	frm, _ := NewFrame(buf)
	l.HandleSegment(host, frm, &remote)
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if l.LocalPort() != 0 {
		t.Fatal("Close should clear the bound port")
	}
	if err := l.Close(); err != errAlreadyClosed {
		t.Fatalf("second Close err=%v want errAlreadyClosed", err)
	}
}
