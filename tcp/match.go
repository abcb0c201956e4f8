package tcp

// ConnPool lets a Listener borrow and return ControlBlocks from a
// host-managed fixed-size pool, mirroring the teacher repo's own pool
// interface in its listener but over ControlBlock (the connID is the
// pool's concern to assign/recycle; the engine just uses whatever value
// Get returns when invoking callbacks).
type ConnPool interface {
	Get() (tcb *ControlBlock, iss Value, connID uint32, ok bool)
	Put(tcb *ControlBlock)
}

// Match reports whether tcb is the connection for a segment arriving from
// (remoteAddr, remotePort) to localPort, the four-tuple test (spec.md
// component 10 "Matching & auto-bind") every demultiplexing path uses
// before handing a segment to HandleSegment.
func (tcb *ControlBlock) Match(localPort, remotePort uint16, remoteAddr *[16]byte) bool {
	return tcb.localPort == localPort && tcb.remotePort == remotePort && tcb.remoteAddr == *remoteAddr
}

// bindActive fills in the four-tuple for a connection that is about to
// actively open (Connect), auto-binding localPort via the host if the
// caller did not call Bind first.
func (tcb *ControlBlock) bindActive(host Host, localPort, remotePort uint16, remoteAddr *[16]byte) error {
	if localPort == 0 {
		p, err := host.Autobind()
		if err != nil {
			return err
		}
		localPort = p
	}
	tcb.localPort = localPort
	tcb.remotePort = remotePort
	tcb.remoteAddr = *remoteAddr
	return nil
}
