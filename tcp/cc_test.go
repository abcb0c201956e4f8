package tcp

import (
	"testing"
	"time"
)

func TestCCStateResetInitialWindow(t *testing.T) {
	var c ccState
	c.reset(1460)
	// RFC 3390: IW = min(4*MSS, max(2*MSS, 4380)) = min(5840, 4380) = 4380.
	if c.cwnd != 4380 {
		t.Fatalf("cwnd=%d want 4380", c.cwnd)
	}

	c.reset(100)
	// min(4*100, max(2*100, 4380)) = min(400, 4380) = 400.
	if c.cwnd != 400 {
		t.Fatalf("cwnd=%d want 400", c.cwnd)
	}
}

func TestCCStateSlowStartGrowth(t *testing.T) {
	var c ccState
	c.reset(1000)
	before := c.cwnd
	c.onAck(1000, false)
	if c.cwnd <= before {
		t.Fatalf("cwnd should grow in slow start, before=%d after=%d", before, c.cwnd)
	}
}

func TestCCStateFastRetransmitOnTripleDupAck(t *testing.T) {
	var c ccState
	c.reset(1000)
	c.cwnd = 10000
	c.onAck(0, true)
	c.onAck(0, true)
	if c.inRecovery {
		t.Fatal("should not enter recovery before the third duplicate ACK")
	}
	c.onAck(0, true)
	if !c.inRecovery {
		t.Fatal("should enter fast recovery on the third duplicate ACK")
	}
	if c.cwnd <= c.ssthresh {
		t.Fatalf("cwnd should inflate above ssthresh entering recovery: cwnd=%d ssthresh=%d", c.cwnd, c.ssthresh)
	}
}

func TestCCStateRecoveryExitDeflatesWindow(t *testing.T) {
	var c ccState
	c.reset(1000)
	c.cwnd = 10000
	c.onAck(0, true)
	c.onAck(0, true)
	c.onAck(0, true) // enters recovery.
	ssthresh := c.ssthresh
	c.onAck(1000, false) // new data acked: exit recovery.
	if c.inRecovery {
		t.Fatal("recovery should end on fresh cumulative ACK")
	}
	if c.cwnd != ssthresh {
		t.Fatalf("cwnd=%d want ssthresh=%d on recovery exit", c.cwnd, ssthresh)
	}
}

func TestCCStateOnRTOExpiredCollapsesWindow(t *testing.T) {
	var c ccState
	c.reset(1000)
	c.cwnd = 20000
	c.onRTOExpired()
	if c.cwnd != Size(c.mss) {
		t.Fatalf("cwnd=%d want mss=%d after RTO", c.cwnd, c.mss)
	}
	if c.inRecovery {
		t.Fatal("RTO should not leave the connection marked in fast recovery")
	}
}

func TestRTTEstimatorFirstSampleSeedsVariance(t *testing.T) {
	var r rttEstimator
	r.sample(100 * time.Millisecond)
	if r.srtt != 100*time.Millisecond {
		t.Fatalf("srtt=%v want 100ms", r.srtt)
	}
	if r.rttvar != 50*time.Millisecond {
		t.Fatalf("rttvar=%v want 50ms", r.rttvar)
	}
}

func TestRTTEstimatorRTOBeforeFirstSample(t *testing.T) {
	var r rttEstimator
	if got := r.rto(); got != initialRTO {
		t.Fatalf("rto=%v want initialRTO=%v before any sample", got, initialRTO)
	}
}

func TestRTTEstimatorRTOClampsToBounds(t *testing.T) {
	var r rttEstimator
	r.sample(time.Microsecond)
	if got := r.rto(); got < minRTO {
		t.Fatalf("rto=%v should be clamped to minRTO=%v", got, minRTO)
	}
	r2 := rttEstimator{}
	r2.sample(time.Hour)
	if got := r2.rto(); got > maxRTO {
		t.Fatalf("rto=%v should be clamped to maxRTO=%v", got, maxRTO)
	}
}
