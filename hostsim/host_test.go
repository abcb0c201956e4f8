package hostsim

import "testing"

func TestHostAutobindCyclesEphemeralRange(t *testing.T) {
	h, err := New(1000, 1280)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	seen := make(map[uint16]bool)
	for i := 0; i < 10; i++ {
		p, err := h.Autobind()
		if err != nil {
			t.Fatalf("Autobind: %v", err)
		}
		if p < 49152 {
			t.Fatalf("Autobind returned %d, want an ephemeral port >= 49152", p)
		}
		if seen[p] {
			t.Fatalf("Autobind returned duplicate port %d within %d calls", p, i)
		}
		seen[p] = true
	}
}

func TestHostGenerateISNDeterministicForSameKey(t *testing.T) {
	h, err := New(1000, 1280)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var addr [16]byte
	addr[15] = 1
	a := h.GenerateISN(1234, 80, &addr)
	b := h.GenerateISN(1234, 80, &addr)
	if a != b {
		t.Fatalf("GenerateISN should be deterministic for a fixed tick and tuple: %d != %d", a, b)
	}

	h.Advance(1)
	c := h.GenerateISN(1234, 80, &addr)
	if c == a {
		t.Fatal("GenerateISN should vary once the host's tick counter advances")
	}
}

func TestHostGenerateISNVariesByTuple(t *testing.T) {
	h, err := New(1000, 1280)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var addr1, addr2 [16]byte
	addr1[15] = 1
	addr2[15] = 2
	a := h.GenerateISN(1234, 80, &addr1)
	b := h.GenerateISN(1234, 80, &addr2)
	if a == b {
		t.Fatal("GenerateISN should differ for different remote addresses")
	}
}

func TestHostSendMessageCollectsOutbox(t *testing.T) {
	h, err := New(1000, 1280)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	msg := h.NewMessage(16)
	if len(msg) != 16 {
		t.Fatalf("NewMessage returned %d bytes, want 16", len(msg))
	}
	if err := h.SendMessage(msg); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if len(h.Outbox) != 1 {
		t.Fatalf("Outbox has %d entries, want 1", len(h.Outbox))
	}
}

func TestHostSetTimerDisarmsOnZeroDeadline(t *testing.T) {
	h, err := New(1000, 1280)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.SetTimer(7, 500)
	if _, ok := h.timers[7]; !ok {
		t.Fatal("SetTimer should record a nonzero deadline")
	}
	h.SetTimer(7, 0)
	if _, ok := h.timers[7]; ok {
		t.Fatal("SetTimer(0) should disarm the timer")
	}
}
