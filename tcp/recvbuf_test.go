package tcp

import (
	"bytes"
	"testing"
)

func TestRecvBufInOrderWrite(t *testing.T) {
	var r recvBuf
	r.setBuffer(make([]byte, 16))
	r.writeAt(0, []byte("hello"))
	a, b := r.peek(16)
	if b != nil {
		t.Fatal("unexpected wraparound slice on a fresh buffer")
	}
	if !bytes.Equal(a, []byte("hello")) {
		t.Fatalf("peek=%q want %q", a, "hello")
	}
	if r.free() != 16-5 {
		t.Fatalf("free=%d want %d", r.free(), 16-5)
	}
}

func TestRecvBufOutOfOrderAbsorb(t *testing.T) {
	var r recvBuf
	r.setBuffer(make([]byte, 16))
	// Bytes 5..9 arrive before bytes 0..4: held out-of-order, nothing readable yet.
	r.writeAt(5, []byte("world"))
	if a, _ := r.peek(16); len(a) != 0 {
		t.Fatalf("out-of-order data should not be readable yet, got %q", a)
	}
	// Filling the gap should absorb the held run into the readable region.
	r.writeAt(0, []byte("hello"))
	a, _ := r.peek(16)
	if !bytes.Equal(a, []byte("helloworld")) {
		t.Fatalf("peek=%q want %q", a, "helloworld")
	}
}

func TestRecvBufCommitAdvancesRing(t *testing.T) {
	var r recvBuf
	r.setBuffer(make([]byte, 8))
	r.writeAt(0, []byte("abcd"))
	r.commit(2)
	a, _ := r.peek(8)
	if !bytes.Equal(a, []byte("cd")) {
		t.Fatalf("peek after commit=%q want %q", a, "cd")
	}
	if r.free() != 8-2 {
		t.Fatalf("free=%d want %d", r.free(), 8-2)
	}
}

func TestRecvBufWrapAround(t *testing.T) {
	var r recvBuf
	r.setBuffer(make([]byte, 8))
	r.writeAt(0, []byte("abcdef"))
	r.commit(6) // off now at 6, readable 0.
	r.writeAt(0, []byte("ghij")) // wraps: 2 bytes at [6:8], 2 bytes at [0:2].
	a, b := r.peek(8)
	got := append(append([]byte{}, a...), b...)
	if !bytes.Equal(got, []byte("ghij")) {
		t.Fatalf("wrapped peek=%q want %q", got, "ghij")
	}
}

func TestRecvBufContiguify(t *testing.T) {
	var r recvBuf
	r.setBuffer(make([]byte, 8))
	r.writeAt(0, []byte("abcdef"))
	r.commit(6)
	r.writeAt(0, []byte("ghij"))
	dst := make([]byte, 4)
	n := r.contiguify(dst)
	if n != 4 || !bytes.Equal(dst, []byte("ghij")) {
		t.Fatalf("contiguify n=%d dst=%q want 4 %q", n, dst, "ghij")
	}
}
