package unreliable

import (
	"fmt"

	"github.com/TyOverby/unreliable/pkt"
)

// Config holds the construction-time settings shared by Sender and Receiver.
type Config struct {
	// DatagramLength is the maximum size in bytes of a single UDP datagram.
	// It bounds both message slicing and the serialized size of every chunk,
	// and sizes the Receiver's read buffer.
	DatagramLength uint16

	// Replication is the number of times each chunk is queued for sending.
	// Duplicates are absorbed transparently on the receiving side. It should
	// almost always be 1, and rarely 2 or above.
	Replication int

	// MaxBufferBytes caps the payload bytes a Receiver buffers per peer for
	// partially received messages. When the cap is exceeded the oldest
	// incomplete messages are evicted first. 0 means unbounded.
	MaxBufferBytes int
}

// NewDefaultConfig creates a typical configuration: datagrams sized to stay
// under common path MTUs, no replication and a 1 MiB per-peer buffer bound.
func NewDefaultConfig() *Config {
	return &Config{
		DatagramLength: 1200,
		Replication:    1,
		MaxBufferBytes: 1 << 20,
	}
}

func (c *Config) validate() error {
	if c.DatagramLength <= pkt.MsgPadding {
		return fmt.Errorf("datagram length %d must exceed the framing overhead of %d bytes", c.DatagramLength, pkt.MsgPadding)
	}
	if c.Replication < 1 {
		return fmt.Errorf("replication must be at least 1, got %d", c.Replication)
	}
	if c.MaxBufferBytes < 0 {
		return fmt.Errorf("max buffer bytes must not be negative, got %d", c.MaxBufferBytes)
	}
	return nil
}
