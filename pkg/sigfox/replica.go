package sigfox

// generateReplicas derives replicas 1 and 2 from the primary encoded
// frame (replica 0), per spec.md §4.4: a fixed bytewise transform
// providing redundancy for the demodulator. The decode path
// never needs to invert this - only replica 0 is ever decoded.
//
// Replica 1 is the bit-inversion of each bit-reversed byte of replica 0;
// replica 2 is replica 0 with its byte order reversed. Both are
// deterministic, fixed functions of replica 0 alone.
func generateReplicas(replica0 []byte) (replica1, replica2 []byte) {
	n := len(replica0)
	replica1 = make([]byte, n)
	replica2 = make([]byte, n)

	for i, b := range replica0 {
		replica1[i] = ^ReverseByte(b)
		replica2[n-1-i] = b
	}

	return replica1, replica2
}
