package canonkv

import (
	"encoding/binary"
	"io"
)

// ensureCapacity grows buf's capacity (not length) to at least minCap,
// doubling from 16 until it fits.
func ensureCapacity(buf []byte, minCap int) []byte {
	c := cap(buf)
	if minCap > c {
		if c < 16 {
			c = 16
		}
		for minCap > c {
			c <<= 1
		}
		old := buf
		buf = make([]byte, len(old), c)
		copy(buf, old)
	}
	return buf
}

// grow extends buf's length by n bytes and returns the offset of the new
// region. The new bytes are not cleared: they are zero only when fresh
// capacity had to be allocated, otherwise they hold whatever was already
// in buf's spare capacity.
func grow(buf []byte, n int) (int, []byte) {
	off := len(buf)
	newLen := off + n
	buf = ensureCapacity(buf, newLen)
	return off, buf[:newLen]
}

func appendRaw(buf []byte, chunk []byte) []byte {
	n := len(chunk)
	off, buf := grow(buf, n)
	copy(buf[off:], chunk)
	return buf
}

// bytesBuilder adapts a growable []byte to io.Writer, for handing to
// msgpack's encoder when serialising bookkeeping records.
type bytesBuilder struct {
	Buf []byte
}

var _ io.Writer = (*bytesBuilder)(nil)

func (bb *bytesBuilder) Write(b []byte) (int, error) {
	bb.Buf = appendRaw(bb.Buf, b)
	return len(b), nil
}

func (bb *bytesBuilder) WriteByte(v byte) error {
	off, buf := grow(bb.Buf, 1)
	buf[off] = v
	bb.Buf = buf
	return nil
}

// byteTarget is anything Lower/Lift can place fixed-width fields into at
// explicit offsets: either the main buffer (fixedBuf, fixed-size, never
// reallocated) or a LinearMemory (growable — offsets already allocated
// stay valid even if a later Allocate call reallocates the backing array).
type byteTarget interface {
	putUint8(off int, v uint8)
	putUint16(off int, v uint16)
	putUint32(off int, v uint32)
	putUint64(off int, v uint64)
	getUint8(off int) uint8
	getUint16(off int) uint16
	getUint32(off int) uint32
	getUint64(off int) uint64
}

// fixedBuf writes into a preallocated, already-sized buffer at explicit
// offsets, as Lower does when placing each record field at its computed
// aligned position rather than purely appending.
type fixedBuf struct {
	Buf []byte
}

var _ byteTarget = fixedBuf{}

func (b fixedBuf) putUint8(off int, v uint8) {
	b.Buf[off] = v
}

func (b fixedBuf) putUint16(off int, v uint16) {
	binary.LittleEndian.PutUint16(b.Buf[off:], v)
}

func (b fixedBuf) putUint32(off int, v uint32) {
	binary.LittleEndian.PutUint32(b.Buf[off:], v)
}

func (b fixedBuf) putUint64(off int, v uint64) {
	binary.LittleEndian.PutUint64(b.Buf[off:], v)
}

func (b fixedBuf) getUint8(off int) uint8 {
	return b.Buf[off]
}

func (b fixedBuf) getUint16(off int) uint16 {
	return binary.LittleEndian.Uint16(b.Buf[off:])
}

func (b fixedBuf) getUint32(off int) uint32 {
	return binary.LittleEndian.Uint32(b.Buf[off:])
}

func (b fixedBuf) getUint64(off int) uint64 {
	return binary.LittleEndian.Uint64(b.Buf[off:])
}

// ceilPow2Width rounds a byte count n up to the smallest of {1, 2, 4}
// bytes that can hold it, per the flags-width rule in §4.2 (flags size is
// ceil(flag_count/8), then rounded up to this set).
func ceilPow2Width(n int) int {
	switch {
	case n <= 1:
		return 1
	case n <= 2:
		return 2
	default:
		return 4
	}
}

// discWidthForCaseCount returns the smallest of {1, 2, 4} bytes whose
// unsigned range covers n distinct case indices, per §4.2's discriminant
// rule ("ceil_to_pow2(bytes_needed_for(case_count))"). Unlike
// ceilPow2Width, the input here is a case *count*, not a byte count: 3
// cases still fit a single byte (0..255), so discWidthForCaseCount(3) == 1,
// not 4.
func discWidthForCaseCount(n int) int {
	switch {
	case n <= 1<<8:
		return 1
	case n <= 1<<16:
		return 2
	default:
		return 4
	}
}

// alignUp rounds off up to the next multiple of align (align must be a
// power of two).
func alignUp(off, align int) int {
	return (off + align - 1) &^ (align - 1)
}
