package protocol

// Sum computes the single-byte frame checksum: all bytes summed modulo 256,
// then inverted. Both directions of the link use the same digest.
//
// For a lone opcode byte the result equals the opcode's bitwise complement,
// which is what turns the bare commands into their fixed two-byte wire
// pairs.
func Sum(parts ...[]byte) byte {
	var sum byte
	for _, part := range parts {
		for _, b := range part {
			sum += b
		}
	}
	return sum ^ 0xFF
}
