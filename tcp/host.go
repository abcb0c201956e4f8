package tcp

// DisconnectReason classifies why a connection's disconnected callback
// fired, giving hosts finer granularity than a single bit of "it's gone"
// (see SPEC_FULL.md §7 Open Question 3).
type DisconnectReason uint8

const (
	ReasonNormal   DisconnectReason = iota // orderly close, both FINs exchanged.
	ReasonRefused                          // remote sent RST during handshake.
	ReasonReset                            // remote sent RST on an established connection.
	ReasonTimedOut                         // REXMT exhausted rexmtShiftMax retries.
	ReasonTimeWait                         // 2MSL elapsed, TCB recycled.
	ReasonAborted                          // local Abort call.
)

// Callbacks is the host-visible notification contract (spec.md §6). Every
// field is optional; a host leaves the ones it does not care about nil.
// All callbacks fire synchronously, re-entrancy-safe, from within whichever
// ControlBlock/Listener method the host is currently calling — never from
// a goroutine the host did not start itself, matching the single-threaded
// cooperative model in SPEC_FULL.md §5.
type Callbacks struct {
	// Established fires once the three-way handshake completes, for both
	// active and passive opens.
	Established func(connID uint32)
	// AcceptReady is consulted on a Listener for every incoming SYN, before
	// any TCB is committed to it (spec.md §4.1's accept_ready contract): a
	// nil callback accepts every SYN, matching the zero value of
	// AcceptDecision.
	AcceptReady func(listenerID uint32, remoteAddr *[16]byte, remotePort uint16) AcceptDecision
	// AcceptedConnection fires on the freshly accepted connection itself,
	// right after AcceptReady's corresponding Accept call hands it a TCB.
	AcceptedConnection func(connID uint32, remoteAddr *[16]byte, remotePort uint16)
	// SendDone fires once a SendByReference/SendByExtension chunk has been
	// fully acknowledged and the caller-owned buffer may be reused/freed.
	SendDone func(connID uint32, buf []byte)
	// ForwardProgress fires whenever SND.UNA advances, useful for hosts
	// that want finer-grained send-side flow control than waiting for
	// whole-chunk SendDone.
	ForwardProgress func(connID uint32, acked Size)
	// ReceiveAvailable fires whenever new contiguous data becomes
	// available to ReceiveByReference/ReceiveContiguify.
	ReceiveAvailable func(connID uint32, n int)
	// Disconnected fires exactly once per connection, when it leaves the
	// engine's tracked set (StateClosed is reached from any other state).
	Disconnected func(connID uint32, reason DisconnectReason)
}

// AcceptDecision is the host's verdict on an incoming SYN, returned from
// Callbacks.AcceptReady (spec.md §4.1).
type AcceptDecision uint8

const (
	// AcceptAccept opens a TCB for the connection and proceeds with the
	// handshake; the zero value, so a nil AcceptReady callback accepts
	// every incoming SYN.
	AcceptAccept AcceptDecision = iota
	// AcceptDefer silently drops the SYN, neither opening a TCB nor
	// refusing the peer; the peer's own SYN retransmission will retry.
	AcceptDefer
	// AcceptRefuse answers the SYN with a RST, telling the peer promptly
	// that nothing is listening rather than leaving it to time out.
	AcceptRefuse
)

// hostClock is a snapshot of a Host's tick counter and rate, cached on
// ControlBlock by every host-aware entry point so state-machine code that
// doesn't itself carry a Host parameter (Recv/Send) can still arm
// ticks-based timers.
type hostClock struct {
	ticks uint64
	rate  uint64
}

func snapshotClock(host Host) hostClock {
	return hostClock{ticks: host.GetTicks(), rate: host.TicksPerSecond()}
}

// Host is the set of functions the engine calls out to; spec.md §6's
// "host-provided functions". An implementation lives outside this module
// (hostsim is a reference one used by tests).
type Host interface {
	// NewMessage allocates a buffer of at least size bytes for an
	// outgoing segment; the engine fills it in and hands it to
	// SendMessage. Returning nil signals a transient allocation failure
	// (softError territory, not a hard error).
	NewMessage(size int) []byte
	// SendMessage hands a fully-built IPv6+TCP datagram (as returned by
	// NewMessage, resized to its final length) to the host's output path.
	SendMessage(msg []byte) error
	// GetTicks returns the current value of the host's monotonic tick
	// counter, at TicksPerSecond resolution.
	GetTicks() uint64
	// TicksPerSecond reports the tick rate GetTicks counts in.
	TicksPerSecond() uint64
	// SetTimer asks the host to invoke the engine's timer-expiry entry
	// point (see input.go's HandleTimerFired) no later than deadline
	// (in GetTicks units). A deadline of 0 disarms the physical timer.
	SetTimer(connID uint32, deadline uint64)
	// Autobind asks the host to choose an ephemeral local port for a
	// connection that did not call Bind explicitly.
	Autobind() (port uint16, err error)
	// GenerateISN asks the host for a fresh initial sequence number,
	// ideally derived the way RFC 6528 describes (see hostsim for a
	// reference BLAKE2s-keyed implementation); the engine never
	// generates one on its own (SPEC_FULL.md Open Question 1).
	GenerateISN(localPort, remotePort uint16, remoteAddr *[16]byte) Value
	// PathMTU optionally reports the outgoing interface MTU for a
	// connection; 0 means "unknown, use defaultMSS".
	PathMTU(connID uint32) uint16
}
