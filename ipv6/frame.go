// Package ipv6 implements a minimal, self-contained IPv6 header framer.
//
// It exists only to drive the tcp engine end-to-end in tests and in the
// hostsim reference host; the tcp package never imports it. A real 6LoWPAN
// node reconstitutes IPv6 headers from compressed 802.15.4 frames, which is
// explicitly outside this module's scope.
package ipv6

import (
	"encoding/binary"
	"errors"
)

// NewFrame returns a new Frame with data set to buf.
// An error is returned if the buffer size is smaller than the fixed
// 40 octet IPv6 header.
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < sizeHeader {
		return Frame{buf: nil}, errShortBuf
	}
	return Frame{buf: buf}, nil
}

const sizeHeader = 40

// NextHeader protocol numbers relevant to this module.
const (
	ProtoTCP     NextHeader = 6
	ProtoUDP     NextHeader = 17
	ProtoICMPv6  NextHeader = 58
	ProtoNone    NextHeader = 59
	ProtoFragHdr NextHeader = 44
)

// NextHeader identifies the protocol carried in an IPv6 payload.
type NextHeader uint8

// ToS carries the IPv6 traffic class octet (DSCP + ECN).
type ToS uint8

// Frame encapsulates the raw data of an IPv6 packet and provides methods
// for manipulating, validating and retrieving header fields and payload
// data. See RFC 8200.
type Frame struct {
	buf []byte
}

// RawData returns the underlying slice with which the frame was created.
func (f Frame) RawData() []byte { return f.buf }

// Payload returns the contents of the IPv6 packet, which may be zero sized.
// Call [Frame.ValidateSize] beforehand to avoid a panic.
func (f Frame) Payload() []byte {
	pl := f.PayloadLength()
	return f.buf[sizeHeader : sizeHeader+pl]
}

// VersionTrafficAndFlow returns the version, traffic class and flow label
// fields of the IPv6 header. Version should be 6 for IPv6.
func (f Frame) VersionTrafficAndFlow() (version uint8, tos ToS, flow uint32) {
	v := binary.BigEndian.Uint32(f.buf[0:4])
	version = uint8(v >> (32 - 4))
	tos = ToS(v >> (32 - 12))
	flow = v & 0x000f_ffff
	return version, tos, flow
}

// SetVersionTrafficAndFlow sets the version, ToS and flow label in the
// IPv6 header. Version must be 6.
func (f Frame) SetVersionTrafficAndFlow(version uint8, tos ToS, flow uint32) {
	v := flow | uint32(tos)<<(32-12) | uint32(version)<<(32-4)
	binary.BigEndian.PutUint32(f.buf[0:4], v)
}

// PayloadLength returns the size of the payload in octets, including any
// extension headers.
func (f Frame) PayloadLength() uint16 {
	return binary.BigEndian.Uint16(f.buf[4:6])
}

// SetPayloadLength sets the payload length field. See [Frame.PayloadLength].
func (f Frame) SetPayloadLength(pl uint16) {
	binary.BigEndian.PutUint16(f.buf[4:6], pl)
}

// NextHeader returns the Next Header field, which usually specifies the
// transport protocol carried in the payload.
func (f Frame) NextHeader() NextHeader {
	return NextHeader(f.buf[6])
}

// SetNextHeader sets the Next Header field. See [Frame.NextHeader].
func (f Frame) SetNextHeader(proto NextHeader) {
	f.buf[6] = uint8(proto)
}

// HopLimit returns the Hop Limit of the IPv6 header.
func (f Frame) HopLimit() uint8 { return f.buf[7] }

// SetHopLimit sets the Hop Limit field. See [Frame.HopLimit].
func (f Frame) SetHopLimit(hop uint8) { f.buf[7] = hop }

// SourceAddr returns a pointer to the source address in the IP header.
func (f Frame) SourceAddr() *[16]byte {
	return (*[16]byte)(f.buf[8:24])
}

// DestinationAddr returns a pointer to the destination address in the
// IP header.
func (f Frame) DestinationAddr() *[16]byte {
	return (*[16]byte)(f.buf[24:40])
}

// PseudoSum16 folds the IPv6 pseudo-header (RFC 8200 §8.1) used by TCP's
// checksum into an accumulator, the way the teacher's CRC791 pseudo-header
// helper did for IPv4; tcp/frame.go calls this when computing the TCP
// checksum for an outgoing segment in tests and in hostsim.
func (f Frame) PseudoSum16(protoLen int) uint32 {
	var sum uint32
	addr := f.SourceAddr()
	for i := 0; i < 16; i += 2 {
		sum += uint32(binary.BigEndian.Uint16(addr[i : i+2]))
	}
	addr = f.DestinationAddr()
	for i := 0; i < 16; i += 2 {
		sum += uint32(binary.BigEndian.Uint16(addr[i : i+2]))
	}
	sum += uint32(protoLen)
	sum += uint32(f.NextHeader())
	return sum
}

// ClearHeader zeros out the header contents.
func (f Frame) ClearHeader() {
	for i := range f.buf[:sizeHeader] {
		f.buf[i] = 0
	}
}

var (
	errShortFrame = errors.New("ipv6: short frame")
	errShortBuf   = errors.New("ipv6: short buffer for frame")
)

// ValidateSize checks the frame's payload length field against the actual
// buffer backing the frame and returns a non-nil error on mismatch.
func (f Frame) ValidateSize() error {
	tl := f.PayloadLength()
	if int(tl)+sizeHeader > len(f.RawData()) {
		return errShortFrame
	}
	return nil
}
