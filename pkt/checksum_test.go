package pkt

import (
	"testing"
)

func TestCalculateChecksum(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected [2]byte
	}{
		{
			name:     "empty",
			data:     []byte{},
			expected: [2]byte{0x00, 0x00},
		},
		{
			name:     "single word",
			data:     []byte{0x00, 0x01},
			expected: [2]byte{0x00, 0x01},
		},
		{
			name:     "odd length pads with zero",
			data:     []byte{0x12},
			expected: [2]byte{0x12, 0x00},
		},
		{
			name:     "overflow folds back into sum",
			data:     []byte{0xFF, 0xFF, 0x00, 0x02},
			expected: [2]byte{0x00, 0x02},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateChecksum(tt.data); got != tt.expected {
				t.Errorf("CalculateChecksum() = %04X, expected %04X", got, tt.expected)
			}
		})
	}
}

func TestVerifyChecksum(t *testing.T) {
	// The inverted checksum at an even offset makes the whole buffer sum to
	// 0xFFFF, mirroring how the chunk header stores it.
	data := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02, 0x00, 0x00}
	checksum := CalculateChecksum(data)
	data[6] = ^checksum[0]
	data[7] = ^checksum[1]

	if !VerifyChecksum(data) {
		t.Errorf("VerifyChecksum() = false for buffer with valid checksum")
	}

	data[0] ^= 0x01
	if VerifyChecksum(data) {
		t.Errorf("VerifyChecksum() = true for corrupted buffer")
	}
}
