package canonkv

import "testing"

func TestInc(t *testing.T) {
	b := []byte{0x00, 0x00}
	n, ok := inc(b)
	if !ok || n != 2 || b[0] != 0x00 || b[1] != 0x01 {
		t.Fatalf("inc = (n=%d, ok=%v, b=%x), wanted (2, true, 0001)", n, ok, b)
	}

	b = []byte{0x01, 0xFF}
	n, ok = inc(b)
	if !ok || n != 1 || b[0] != 0x02 {
		t.Fatalf("inc(trailing FF) = (n=%d, ok=%v, b=%x), wanted (1, true, 02ff)", n, ok, b)
	}

	if _, ok := inc([]byte{0xFF}); ok {
		t.Fatalf("inc(FF) = true, wanted false")
	}
}

func TestPrefixUpperBound(t *testing.T) {
	if got := prefixUpperBound([]byte{0x01, 0x02}); string(got) != string([]byte{0x01, 0x03}) {
		t.Fatalf("prefixUpperBound = %x, wanted 0103", got)
	}
	if got := prefixUpperBound([]byte{0x55, 0xFF}); string(got) != string([]byte{0x56}) {
		t.Fatalf("prefixUpperBound(trailing FF) = %x, wanted 56 (truncated, not 5600)", got)
	}
	if got := prefixUpperBound([]byte{0xFF}); got != nil {
		t.Fatalf("prefixUpperBound(FF) = %x, wanted nil", got)
	}
	if got := prefixUpperBound(nil); got != nil {
		t.Fatalf("prefixUpperBound(nil) = %x, wanted nil", got)
	}
}
