package tcp

import "time"

// timerKind enumerates the five logical per-connection timers spec.md
// calls out (DELACK, REXMT, PERSIST, KEEP, 2MSL). timerSet.nextDeadline
// computes the soonest deadline among the ones currently running. The
// engine does not call Host.SetTimer itself; the host drives all five by
// calling HandleTimerFired, which fires whichever have reached their
// deadline.
type timerKind uint8

const (
	timerDelack timerKind = iota
	timerRexmt
	timerPersist
	timerKeep
	timer2MSL
	numTimers
)

// timerSet multiplexes the five logical timers onto ticks supplied by the
// host (host.GetTicks), which are opaque monotonic counts, not time.Time;
// deadlines are stored as an absolute tick value plus the tick rate needed
// to convert a duration into a delta of ticks.
type timerSet struct {
	deadline [numTimers]uint64
	armed    [numTimers]bool
	shift    uint8 // RTO exponential backoff shift for REXMT/PERSIST.
}

// arm schedules kind to fire at now+d, given the host's tick rate (ticks
// per second, from host.TicksPerSecond). A positive d shorter than one tick
// is rounded up to one tick.
func (t *timerSet) arm(kind timerKind, now uint64, ticksPerSecond uint64, d time.Duration) {
	delta := uint64(d) * ticksPerSecond / uint64(time.Second)
	if delta == 0 && d > 0 {
		delta = 1
	}
	t.deadline[kind] = now + delta
	t.armed[kind] = true
}

func (t *timerSet) disarm(kind timerKind) { t.armed[kind] = false }

func (t *timerSet) disarmAll() {
	t.armed = [numTimers]bool{}
	t.shift = 0
}

// armREXMT (re)starts the retransmission timer using RFC 6298's backoff:
// RTO doubles on each consecutive expiry (tracked via shift) and is reset
// to the RTT estimator's current RTO whenever fresh data is acknowledged
// (see clearREXMTIfCaughtUp).
func (t *timerSet) armREXMT() {
	// Actual scheduling happens in output.go/input.go where the host's
	// ticks/rate are available; this only marks intent so callers know a
	// (re)arm is owed before the next host.SetTimer call.
	t.armed[timerRexmt] = true
}

// clearREXMTIfCaughtUp disarms REXMT once all outstanding data has been
// acknowledged (snd.una == snd.nxt), per RFC 6298 §5.2, and resets the
// backoff shift.
func (t *timerSet) clearREXMTIfCaughtUp(una, nxt Value) {
	if una == nxt {
		t.disarm(timerRexmt)
		t.shift = 0
	}
}

// nextRTO returns the current retransmission timeout applying the
// exponential backoff shift accumulated from consecutive REXMT expiries.
func (t *timerSet) nextRTO(base time.Duration) time.Duration {
	rto := base << t.shift
	if rto > maxRTO {
		rto = maxRTO
	} else if rto < minRTO {
		rto = minRTO
	}
	return rto
}

// onRexmtExpired increments the backoff shift and reports whether the
// connection should be declared dead (rexmtShiftMax consecutive expiries).
func (t *timerSet) onRexmtExpired() (giveUp bool) {
	t.shift++
	return t.shift > rexmtShiftMax
}

// startTimeWait arms the 2MSL timer for 2*msl (RFC 9293 §3.3.3); tcb.go and
// control_rcvhandlers.go call this on every transition into StateTimeWait,
// supplying the host clock
// snapshot cached in ControlBlock.clock since Recv/Send don't carry a host
// parameter of their own.
func (t *timerSet) startTimeWait(now, ticksPerSecond uint64) {
	t.arm(timer2MSL, now, ticksPerSecond, 2*msl)
}

// nextDeadline returns the soonest armed deadline and whether any timer is
// armed at all, for collapsing onto the single physical host timer.
func (t *timerSet) nextDeadline() (deadline uint64, ok bool) {
	for k := timerKind(0); k < numTimers; k++ {
		if !t.armed[k] {
			continue
		}
		if !ok || t.deadline[k] < deadline {
			deadline = t.deadline[k]
			ok = true
		}
	}
	return deadline, ok
}

// expired returns the set of timers whose deadline is at or before now,
// disarming each one-shot timer as it fires (REXMT/PERSIST re-arm
// themselves via their handler in input.go/output.go if still needed).
func (t *timerSet) expired(now uint64) (fired [numTimers]bool) {
	for k := timerKind(0); k < numTimers; k++ {
		if t.armed[k] && t.deadline[k] <= now {
			fired[k] = true
			t.armed[k] = false
		}
	}
	return fired
}
