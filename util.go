package canonkv

// inc increments data in place as a big-endian counter starting from its
// last byte. It returns the number of leading bytes of data that hold the
// incremented result (bytes past that point are unincremented input and
// should be discarded by the caller) and whether overflow occurred (every
// byte was already 0xFF).
func inc(data []byte) (n int, ok bool) {
	for i := len(data) - 1; i >= 0; i-- {
		if data[i] != 0xFF {
			data[i]++
			return i + 1, true
		}
	}
	return 0, false
}

// prefixUpperBound returns the smallest byte string that is strictly
// greater than every string sharing the given prefix, or nil if no such
// string exists (prefix is empty or all 0xFF), meaning "no upper bound".
// The result is truncated to the incremented byte, not padded back out to
// len(prefix): a prefix ending in one or more 0xFF bytes would otherwise
// yield a non-minimal, over-inclusive bound.
func prefixUpperBound(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}
	end := append([]byte(nil), prefix...)
	n, ok := inc(end)
	if !ok {
		return nil
	}
	return end[:n]
}
