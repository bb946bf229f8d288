package kvutil

// NextPrefix returns the lexicographically smallest key that is larger than
// every key carrying the input prefix. An empty result means no upper bound
// exists (the prefix was all 0xff bytes).
func NextPrefix(prefix []byte) []byte {
	buf := make([]byte, len(prefix))
	copy(buf, prefix)
	var i int
	for i = len(prefix) - 1; i >= 0; i-- {
		buf[i]++
		if buf[i] != 0 {
			break
		}
	}
	// bytes past the carry position no longer bound the range
	return buf[:i+1]
}

// PrefixSpan returns the half open key range [start, end) covering every key
// with the given prefix, for engines that take explicit bounds instead of a
// prefix option.
func PrefixSpan(prefix []byte) (start []byte, end []byte) {
	start = make([]byte, len(prefix))
	copy(start, prefix)
	return start, NextPrefix(prefix)
}
