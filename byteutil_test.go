package canonkv

import (
	"reflect"
	"testing"
)

func TestEnsureCapacity(t *testing.T) {
	buf := make([]byte, 0, 4)
	buf = ensureCapacity(buf, 20)
	if cap(buf) < 20 {
		t.Fatalf("cap = %d, wanted >= 20", cap(buf))
	}
	if cap(buf)&(cap(buf)-1) != 0 {
		t.Fatalf("cap = %d, wanted a power of two", cap(buf))
	}
}

func TestGrowAndAppendRaw(t *testing.T) {
	var buf []byte
	off, buf := grow(buf, 3)
	if off != 0 || len(buf) != 3 {
		t.Fatalf("grow = (off=%d, len=%d), wanted (0, 3)", off, len(buf))
	}
	buf = appendRaw(buf[:0], []byte{1, 2, 3})
	buf = appendRaw(buf, []byte{4, 5})
	if !reflect.DeepEqual(buf, []byte{1, 2, 3, 4, 5}) {
		t.Fatalf("appendRaw chain = %x, wanted 0102030405", buf)
	}
}

func TestBytesBuilderWrite(t *testing.T) {
	var bb bytesBuilder
	_, _ = bb.Write([]byte{1, 2})
	_ = bb.WriteByte(3)
	if !reflect.DeepEqual(bb.Buf, []byte{1, 2, 3}) {
		t.Fatalf("bb.Buf = %x, wanted 010203", bb.Buf)
	}
}

func TestFixedBufRoundtrip(t *testing.T) {
	b := fixedBuf{Buf: make([]byte, 16)}
	b.putUint8(0, 0xAB)
	b.putUint16(2, 0x1234)
	b.putUint32(4, 0xDEADBEEF)
	b.putUint64(8, 0x0102030405060708)

	if got := b.getUint8(0); got != 0xAB {
		t.Fatalf("getUint8 = %x, wanted ab", got)
	}
	if got := b.getUint16(2); got != 0x1234 {
		t.Fatalf("getUint16 = %x, wanted 1234", got)
	}
	if got := b.getUint32(4); got != 0xDEADBEEF {
		t.Fatalf("getUint32 = %x, wanted deadbeef", got)
	}
	if got := b.getUint64(8); got != 0x0102030405060708 {
		t.Fatalf("getUint64 = %x, wanted 0102030405060708", got)
	}

	// little-endian on the wire
	if b.Buf[2] != 0x34 || b.Buf[3] != 0x12 {
		t.Fatalf("uint16 bytes = %x %x, wanted 34 12 (little-endian)", b.Buf[2], b.Buf[3])
	}
}

func TestCeilPow2Width(t *testing.T) {
	cases := []struct {
		n    int
		want int
	}{
		{0, 1}, {1, 1}, {2, 2}, {3, 4}, {4, 4}, {255, 4}, {1000, 4},
	}
	for _, c := range cases {
		if got := ceilPow2Width(c.n); got != c.want {
			t.Errorf("ceilPow2Width(%d) = %d, wanted %d", c.n, got, c.want)
		}
	}
}

func TestDiscWidthForCaseCount(t *testing.T) {
	cases := []struct {
		n    int
		want int
	}{
		{1, 1}, {2, 1}, {3, 1}, {256, 1}, {257, 2}, {65536, 2}, {65537, 4},
	}
	for _, c := range cases {
		if got := discWidthForCaseCount(c.n); got != c.want {
			t.Errorf("discWidthForCaseCount(%d) = %d, wanted %d", c.n, got, c.want)
		}
	}
}

func TestAlignUp(t *testing.T) {
	cases := []struct {
		off, align, want int
	}{
		{0, 4, 0}, {1, 4, 4}, {4, 4, 4}, {5, 4, 8}, {3, 8, 8}, {0, 1, 0},
	}
	for _, c := range cases {
		if got := alignUp(c.off, c.align); got != c.want {
			t.Errorf("alignUp(%d, %d) = %d, wanted %d", c.off, c.align, got, c.want)
		}
	}
}
