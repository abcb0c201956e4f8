package tcp

import (
	"testing"
	"time"
)

func TestTimerSetArmAndExpire(t *testing.T) {
	var ts timerSet
	ts.arm(timerDelack, 1000, 1000, 200*time.Millisecond)
	deadline, ok := ts.nextDeadline()
	if !ok || deadline != 1200 {
		t.Fatalf("deadline=%d ok=%v want 1200,true", deadline, ok)
	}
	fired := ts.expired(1199)
	if fired[timerDelack] {
		t.Fatal("timer should not have fired before its deadline")
	}
	fired = ts.expired(1200)
	if !fired[timerDelack] {
		t.Fatal("timer should fire at its deadline")
	}
	if _, ok := ts.nextDeadline(); ok {
		t.Fatal("fired timer should be disarmed")
	}
}

func TestTimerSetNextDeadlinePicksSoonest(t *testing.T) {
	var ts timerSet
	ts.arm(timerKeep, 0, 1000, 5*time.Second)
	ts.arm(timerRexmt, 0, 1000, 1*time.Second)
	ts.arm(timer2MSL, 0, 1000, 10*time.Second)
	deadline, ok := ts.nextDeadline()
	if !ok || deadline != 1000 {
		t.Fatalf("deadline=%d want 1000 (REXMT is soonest)", deadline)
	}
}

func TestTimerSetClearREXMTIfCaughtUp(t *testing.T) {
	var ts timerSet
	ts.arm(timerRexmt, 0, 1000, time.Second)
	ts.shift = 3
	ts.clearREXMTIfCaughtUp(100, 200)
	if !ts.armed[timerRexmt] {
		t.Fatal("REXMT should remain armed while una != nxt")
	}
	ts.clearREXMTIfCaughtUp(200, 200)
	if ts.armed[timerRexmt] || ts.shift != 0 {
		t.Fatal("REXMT should disarm and backoff shift reset once una==nxt")
	}
}

func TestTimerSetOnRexmtExpiredBackoff(t *testing.T) {
	var ts timerSet
	for i := uint8(0); i <= rexmtShiftMax; i++ {
		giveUp := ts.onRexmtExpired()
		if i < rexmtShiftMax && giveUp {
			t.Fatalf("should not give up before shift exceeds %d, shift=%d", rexmtShiftMax, i+1)
		}
	}
	if !ts.onRexmtExpired() {
		t.Fatal("should give up once shift exceeds rexmtShiftMax")
	}
}

func TestTimerSetNextRTOBounds(t *testing.T) {
	var ts timerSet
	if got := ts.nextRTO(time.Second); got != time.Second {
		t.Fatalf("nextRTO with shift 0 = %v want %v", got, time.Second)
	}
	ts.shift = 10
	if got := ts.nextRTO(time.Second); got != maxRTO {
		t.Fatalf("nextRTO should clamp to maxRTO, got %v", got)
	}
}

func TestTimerSetDisarmAll(t *testing.T) {
	var ts timerSet
	ts.arm(timerDelack, 0, 1000, time.Second)
	ts.arm(timerKeep, 0, 1000, time.Second)
	ts.shift = 5
	ts.disarmAll()
	if _, ok := ts.nextDeadline(); ok {
		t.Fatal("disarmAll should leave no timer armed")
	}
	if ts.shift != 0 {
		t.Fatal("disarmAll should reset backoff shift")
	}
}
