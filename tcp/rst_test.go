package tcp

import "testing"

func TestRSTQueueQueueAndDrain(t *testing.T) {
	var q RSTQueue
	var remote [16]byte
	remote[15] = 9
	q.Queue(remote[:], 4000, 80, 55, 56, FlagRST|FlagACK)
	if q.Pending() != 1 {
		t.Fatalf("Pending=%d want 1", q.Pending())
	}

	carrier := make([]byte, 40+sizeHeaderTCP)
	n, err := q.Drain(carrier, 0, 40)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if n != sizeHeaderTCP {
		t.Fatalf("Drain wrote %d bytes, want %d", n, sizeHeaderTCP)
	}
	if q.Pending() != 0 {
		t.Fatal("Drain should dequeue the entry")
	}

	frm, err := NewFrame(carrier[40:])
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	if frm.SourcePort() != 80 || frm.DestinationPort() != 4000 {
		t.Fatalf("ports=%d/%d want 80/4000", frm.SourcePort(), frm.DestinationPort())
	}
	_, flags := frm.OffsetAndFlags()
	if !flags.HasAll(FlagRST | FlagACK) {
		t.Fatalf("flags=%s want RST|ACK", flags)
	}
	if frm.Seq() != 55 || frm.Ack() != 56 {
		t.Fatalf("seq/ack=%d/%d want 55/56", frm.Seq(), frm.Ack())
	}
	gotAddr := carrier[offsetIPv6DestAddr : offsetIPv6DestAddr+16]
	if string(gotAddr) != string(remote[:]) {
		t.Fatal("Drain should write the remote address into the IPv6 destination field")
	}
}

func TestRSTQueueDropsInvalidAddr(t *testing.T) {
	var q RSTQueue
	q.Queue([]byte{1, 2, 3}, 1, 2, 0, 0, FlagRST)
	if q.Pending() != 0 {
		t.Fatal("Queue should silently drop a non-16-byte address")
	}
}

func TestRSTQueueBoundedCapacity(t *testing.T) {
	var q RSTQueue
	var remote [16]byte
	for i := 0; i < 10; i++ {
		q.Queue(remote[:], uint16(i), 80, 0, 0, FlagRST)
	}
	if q.Pending() != len(q.buf) {
		t.Fatalf("Pending=%d want capped at %d", q.Pending(), len(q.buf))
	}
}

func TestRSTQueueDrainEmptyIsNoop(t *testing.T) {
	var q RSTQueue
	carrier := make([]byte, 60)
	n, err := q.Drain(carrier, 0, 40)
	if n != 0 || err != nil {
		t.Fatalf("Drain on empty queue = %d,%v want 0,nil", n, err)
	}
}
