package ipv6

import "testing"

func TestFrameNewFrameRejectsShortBuffer(t *testing.T) {
	if _, err := NewFrame(make([]byte, 39)); err == nil {
		t.Fatal("NewFrame should reject a buffer shorter than the 40-byte header")
	}
}

func TestFrameVersionTrafficAndFlowRoundTrip(t *testing.T) {
	buf := make([]byte, 40)
	f, err := NewFrame(buf)
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	f.SetVersionTrafficAndFlow(6, 0x2b, 0xabcde)
	version, tos, flow := f.VersionTrafficAndFlow()
	if version != 6 {
		t.Fatalf("version=%d want 6", version)
	}
	if tos != 0x2b {
		t.Fatalf("tos=%#x want 0x2b", tos)
	}
	if flow != 0xabcde {
		t.Fatalf("flow=%#x want 0xabcde", flow)
	}
}

func TestFramePayloadLengthAndPayload(t *testing.T) {
	buf := make([]byte, 40+10)
	f, _ := NewFrame(buf)
	f.SetPayloadLength(10)
	copy(f.Payload(), []byte("0123456789"))
	if string(f.Payload()) != "0123456789" {
		t.Fatalf("Payload=%q want 0123456789", f.Payload())
	}
	if f.PayloadLength() != 10 {
		t.Fatalf("PayloadLength=%d want 10", f.PayloadLength())
	}
}

func TestFrameNextHeaderAndHopLimit(t *testing.T) {
	buf := make([]byte, 40)
	f, _ := NewFrame(buf)
	f.SetNextHeader(ProtoTCP)
	f.SetHopLimit(64)
	if f.NextHeader() != ProtoTCP {
		t.Fatalf("NextHeader=%d want ProtoTCP", f.NextHeader())
	}
	if f.HopLimit() != 64 {
		t.Fatalf("HopLimit=%d want 64", f.HopLimit())
	}
}

func TestFrameSourceAndDestinationAddr(t *testing.T) {
	buf := make([]byte, 40)
	f, _ := NewFrame(buf)
	src := f.SourceAddr()
	src[0] = 0xfe
	src[1] = 0x80
	dst := f.DestinationAddr()
	dst[15] = 1
	if buf[8] != 0xfe || buf[9] != 0x80 {
		t.Fatal("SourceAddr should alias the underlying buffer")
	}
	if buf[39] != 1 {
		t.Fatal("DestinationAddr should alias the underlying buffer")
	}
}

func TestFramePseudoSum16IncludesProtoAndLen(t *testing.T) {
	buf := make([]byte, 40)
	f, _ := NewFrame(buf)
	f.SetNextHeader(ProtoTCP)
	base := f.PseudoSum16(20)

	buf2 := make([]byte, 40)
	f2, _ := NewFrame(buf2)
	f2.SetNextHeader(ProtoUDP)
	other := f2.PseudoSum16(20)

	if base == other {
		t.Fatal("PseudoSum16 should vary with NextHeader")
	}

	withMoreLen := f.PseudoSum16(40)
	if withMoreLen == base {
		t.Fatal("PseudoSum16 should vary with protoLen")
	}
}

func TestFrameValidateSizeDetectsShortBuffer(t *testing.T) {
	buf := make([]byte, 45)
	f, _ := NewFrame(buf)
	f.SetPayloadLength(10) // claims 10 bytes of payload but only 5 are present.
	if err := f.ValidateSize(); err == nil {
		t.Fatal("ValidateSize should reject a payload length exceeding the buffer")
	}
	f.SetPayloadLength(5)
	if err := f.ValidateSize(); err != nil {
		t.Fatalf("ValidateSize: %v", err)
	}
}

func TestFrameClearHeaderZeroesOnlyHeader(t *testing.T) {
	buf := make([]byte, 44)
	for i := range buf {
		buf[i] = 0xff
	}
	f, _ := NewFrame(buf)
	f.ClearHeader()
	for i := 0; i < 40; i++ {
		if buf[i] != 0 {
			t.Fatalf("header byte %d = %#x want 0", i, buf[i])
		}
	}
	for i := 40; i < 44; i++ {
		if buf[i] != 0xff {
			t.Fatalf("payload byte %d was clobbered by ClearHeader", i)
		}
	}
}
