// Package hostsim is a reference implementation of tcp.Host suitable for
// tests and single-node examples: it keeps every connection's timer in a
// map keyed by connID instead of real hardware interrupts, and derives initial
// sequence numbers the RFC 6528 way, keyed off a boot secret expanded with
// HKDF rather than a process-global PRNG.
package hostsim

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"io"
	"sync/atomic"

	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/hkdf"

	"github.com/soypat/tcplp6/tcp"
)

var errNoMoreEphemeralPorts = errors.New("hostsim: ephemeral port range exhausted")

// Host is a minimal, single-threaded tcp.Host. It does not itself move
// bytes on a wire: Outbox collects messages the engine hands to
// SendMessage so a test driver can inspect or loopback them.
type Host struct {
	ticksPerSecond uint64
	ticks          uint64
	nextEphemeral  uint16
	isnKey         [32]byte
	pathMTU        uint16

	Outbox [][]byte

	timers map[uint32]uint64
}

// New creates a Host ticking at ticksPerSecond, deriving its ISN key from
// a fresh random boot secret via HKDF-SHA256 (RFC 5869), matching
// SPEC_FULL.md's DOMAIN STACK wiring of golang.org/x/crypto.
func New(ticksPerSecond uint64, pathMTU uint16) (*Host, error) {
	var secret [32]byte
	if _, err := io.ReadFull(rand.Reader, secret[:]); err != nil {
		return nil, err
	}
	kdf := hkdf.New(sha256.New, secret[:], nil, []byte("tcplp6 isn key"))
	h := &Host{
		ticksPerSecond: ticksPerSecond,
		nextEphemeral:  49152,
		pathMTU:        pathMTU,
		timers:         make(map[uint32]uint64),
	}
	if _, err := io.ReadFull(kdf, h.isnKey[:]); err != nil {
		return nil, err
	}
	return h, nil
}

// Advance moves the simulated clock forward by d ticks; callers drive the
// engine's timer-expiry entry point (HandleTimerFired) themselves, since the
// engine does not call SetTimer (hostsim does not spawn goroutines).
func (h *Host) Advance(d uint64) { atomic.AddUint64(&h.ticks, d) }

func (h *Host) NewMessage(size int) []byte { return make([]byte, size) }

func (h *Host) SendMessage(msg []byte) error {
	h.Outbox = append(h.Outbox, msg)
	return nil
}

func (h *Host) GetTicks() uint64 { return atomic.LoadUint64(&h.ticks) }

func (h *Host) TicksPerSecond() uint64 { return h.ticksPerSecond }

func (h *Host) SetTimer(connID uint32, deadline uint64) {
	if deadline == 0 {
		delete(h.timers, connID)
		return
	}
	h.timers[connID] = deadline
}

// Autobind hands out ephemeral ports in RFC 6335's dynamic range,
// wrapping back to 49152 on exhaustion rather than ever returning 0.
func (h *Host) Autobind() (uint16, error) {
	start := h.nextEphemeral
	for {
		p := h.nextEphemeral
		if h.nextEphemeral == 65535 {
			h.nextEphemeral = 49152
		} else {
			h.nextEphemeral++
		}
		if p != 0 {
			return p, nil
		}
		if h.nextEphemeral == start {
			return 0, errNoMoreEphemeralPorts
		}
	}
}

// GenerateISN implements RFC 6528 §3's M+F(localip,localport,remoteip,remoteport,secretkey)
// construction: F is a keyed BLAKE2s-128 MAC over the local port, remote
// port and remote address (the local address is not included), and M is
// the host's tick counter so the sequence space keeps moving even if the
// tuple repeats.
func (h *Host) GenerateISN(localPort, remotePort uint16, remoteAddr *[16]byte) tcp.Value {
	mac, err := blake2s.New128(h.isnKey[:])
	if err != nil {
		// isnKey is always exactly 32 bytes, the only way New128 errors.
		panic(err)
	}
	var portBuf [4]byte
	binary.BigEndian.PutUint16(portBuf[0:2], localPort)
	binary.BigEndian.PutUint16(portBuf[2:4], remotePort)
	mac.Write(portBuf[:])
	mac.Write(remoteAddr[:])
	sum := mac.Sum(nil)
	f := binary.BigEndian.Uint32(sum)
	m := uint32(h.GetTicks())
	return tcp.Value(m + f)
}

func (h *Host) PathMTU(connID uint32) uint16 { return h.pathMTU }
