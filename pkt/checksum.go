package pkt

// CalculateChecksum computes the checksum over a serialized chunk using the
// TCP/IP checksum algorithm: 16-bit words are summed and the result is
// folded back to 16 bits.
func CalculateChecksum(data []byte) [2]byte {
	var sum uint32
	for i := 0; i < len(data); i += 2 {
		if i+1 < len(data) {
			sum += uint32(data[i])<<8 | uint32(data[i+1])
		} else {
			sum += uint32(data[i]) << 8
		}
	}

	// Fold 32-bit sum to 16 bits
	for sum>>16 > 0 {
		sum = (sum & 0xFFFF) + (sum >> 16)
	}

	return [2]byte{byte(sum >> 8), byte(sum & 0xFF)}
}

// VerifyChecksum validates a serialized chunk whose header carries the
// inverted checksum. Summing the whole datagram must then yield 0xFFFF.
func VerifyChecksum(data []byte) bool {
	return CalculateChecksum(data) == [2]byte{0xFF, 0xFF}
}
