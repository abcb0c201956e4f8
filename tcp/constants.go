package tcp

import "time"

// Compile-time constants replacing what a hosted TCP stack would otherwise
// keep as runtime-tunable global state (sysctls, /proc knobs, ...). A
// constrained node has one build, so these are `const` rather than fields
// on some global Config value; see SPEC_FULL.md §9 "Global state".
const (
	// ipv6HeaderSize is the fixed IPv6 header size used by recomputeMSS's
	// path-MTU clamp; extension headers are not accounted for since the
	// core never constructs them.
	ipv6HeaderSize = 40

	// defaultMSS is the fixed default data MSS for this port (spec.md §6:
	// "5·106 − 36 − 20 = 474 bytes"), used whenever a peer sends no MSS
	// option.
	defaultMSS = 474

	// maxSACKHoles bounds the per-TCB SACK scoreboard arena (spec.md §3,
	// §4.6): a fixed 5-slot pool, no allocation.
	maxSACKHoles = 5

	// maxSACKReportBlocks is TCP_MAX_SACK (spec.md §6): the most SACK
	// blocks ever placed in one outgoing segment's option space.
	maxSACKReportBlocks = 4

	// requestedWindowScale is the shift count this engine always requests
	// on its own SYN (spec.md §6: "window-scaling 'request' flag is set on
	// SYN but negotiated scale is 0, buffers are small").
	requestedWindowScale = 0

	// pawsIdleAge is the RFC 1323 §4.2.1 PAWS staleness bound: a
	// ts_recent older than this is no longer trusted to reject segments.
	pawsIdleAge = 24 * 24 * time.Hour

	// rexmtShiftMax is the ceiling on consecutive REXMT backoffs
	// (tcp_timer.c TCPTV_REXMTMAX / TCP_MAXRXTSHIFT) before the
	// connection is declared dead.
	rexmtShiftMax = 12

	// initialRTO is the retransmission timeout used before any RTT sample
	// exists (RFC 6298 §2.1).
	initialRTO = time.Second

	// minRTO/maxRTO clamp the computed RTO (RFC 6298 §2.4-2.5).
	minRTO = time.Second
	maxRTO = 60 * time.Second

	// persistMinBackoff is the first PERSIST timer interval armed when a
	// zero window stalls a pending send (tcp_timer.c TCPTV_PERSMIN).
	persistMinBackoff = 5 * time.Second
	// persistMaxBackoff caps the PERSIST timer's exponential backoff
	// (tcp_timer.c TCPTV_PERSMAX).
	persistMaxBackoff = 60 * time.Second

	// keepIdle is the quiescent period before the first keepalive probe
	// (tcp_timer.c TCPTV_KEEP_IDLE).
	keepIdle = 2 * time.Hour
	// keepIntvl is the interval between keepalive probes once started.
	keepIntvl = 75 * time.Second
	// keepMaxIdle is the number of unacknowledged probes tolerated before
	// the connection is declared dead.
	keepMaxIdle = 8

	// msl is the Maximum Segment Lifetime used to size TIME-WAIT (spec.md
	// §6: TIME-WAIT lasts exactly 2*msl == 60s on this port, far shorter
	// than the RFC 9293 §3.3.3 default of 2 minutes, sized for a
	// constrained radio network rather than the general internet).
	msl = 30 * time.Second

	// delackMax is the maximum time a pure ACK may be withheld waiting to
	// be piggybacked (spec.md §6: TCPTV_DELACK == 100ms on this port).
	delackMax = 100 * time.Millisecond
)
